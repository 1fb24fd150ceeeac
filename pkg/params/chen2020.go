package params

// chen2020 holds the Chen et al. (2020) LG M50 21700 lithium-ion cell
// parameterisation ("Development of Experimental Techniques for
// Parameterization of Multi-scale Lithium-ion Battery Models",
// J. Electrochem. Soc. 167 080534). Functional entries (OCPs, exchange
// current densities) live with the model library; only the numeric
// parameters belong in the flat mapping.
var chen2020 = map[string]float64{
	"Nominal cell capacity [A.h]":     5.0,
	"Current function [A]":            5.0,
	"Ambient temperature [K]":         298.15,
	"Initial temperature [K]":         298.15,
	"Reference temperature [K]":       298.15,
	"Lower voltage cut-off [V]":       2.5,
	"Upper voltage cut-off [V]":       4.2,
	"Electrode height [m]":            0.065,
	"Electrode width [m]":             1.58,
	"Negative current collector thickness [m]": 1.2e-05,
	"Positive current collector thickness [m]": 1.6e-05,
	"Separator thickness [m]":                  1.2e-05,
	"Separator porosity":                       0.47,

	"Negative electrode thickness [m]":                       8.52e-05,
	"Negative electrode porosity":                            0.25,
	"Negative electrode active material volume fraction":     0.75,
	"Negative particle radius [m]":                           5.86e-06,
	"Negative electrode conductivity [S.m-1]":                215.0,
	"Negative electrode Bruggeman coefficient (electrolyte)": 1.5,
	"Maximum concentration in negative electrode [mol.m-3]":  33133.0,
	"Initial concentration in negative electrode [mol.m-3]":  29866.0,

	"Positive electrode thickness [m]":                       7.56e-05,
	"Positive electrode porosity":                            0.335,
	"Positive electrode active material volume fraction":     0.665,
	"Positive particle radius [m]":                           5.22e-06,
	"Positive electrode conductivity [S.m-1]":                0.18,
	"Positive electrode Bruggeman coefficient (electrolyte)": 1.5,
	"Maximum concentration in positive electrode [mol.m-3]":  63104.0,
	"Initial concentration in positive electrode [mol.m-3]":  17038.0,

	"Initial concentration in electrolyte [mol.m-3]": 1000.0,
	"Cation transference number":                     0.2594,
}
