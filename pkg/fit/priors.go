package fit

import (
	"fmt"
	"math"
)

// Prior is a one-dimensional prior distribution over a fit parameter.
type Prior interface {
	// LogPDF returns the log probability density at x.
	LogPDF(x float64) float64
	// Mean returns the distribution mean, used as a fallback initial value.
	Mean() float64
}

// Gaussian is a normal prior with the given mean and standard deviation.
type Gaussian struct {
	Mu    float64
	Sigma float64
}

// NewGaussian constructs a Gaussian prior; sigma must be positive.
func NewGaussian(mu, sigma float64) (Gaussian, error) {
	if sigma <= 0 {
		return Gaussian{}, fmt.Errorf("gaussian prior: sigma must be positive, got %v", sigma)
	}
	return Gaussian{Mu: mu, Sigma: sigma}, nil
}

// LogPDF implements Prior.
func (g Gaussian) LogPDF(x float64) float64 {
	z := (x - g.Mu) / g.Sigma
	return -0.5*z*z - math.Log(g.Sigma) - 0.5*math.Log(2*math.Pi)
}

// Mean implements Prior.
func (g Gaussian) Mean() float64 { return g.Mu }

// Uniform is a flat prior on [Lower, Upper].
type Uniform struct {
	Lower float64
	Upper float64
}

// NewUniform constructs a Uniform prior; the interval must be non-degenerate.
func NewUniform(lower, upper float64) (Uniform, error) {
	if !(lower < upper) {
		return Uniform{}, fmt.Errorf("uniform prior: require lower < upper, got [%v, %v]", lower, upper)
	}
	return Uniform{Lower: lower, Upper: upper}, nil
}

// LogPDF implements Prior. Values outside the support have -Inf density.
func (u Uniform) LogPDF(x float64) float64 {
	if x < u.Lower || x > u.Upper {
		return math.Inf(-1)
	}
	return -math.Log(u.Upper - u.Lower)
}

// Mean implements Prior.
func (u Uniform) Mean() float64 { return 0.5 * (u.Lower + u.Upper) }
