// Command mapfit demonstrates maximum a posteriori estimation of
// equivalent-circuit resistances from noisy synthetic discharge data. It
// generates a measurement trace, fits R0 and R1 under Gaussian priors,
// records the fit in the catalog and optionally exports the set as
// artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"battcore/internal/blob"
	"battcore/internal/catalog"
	"battcore/internal/catalog/stores"
	"battcore/internal/export"
	"battcore/internal/model/ecm"
	"battcore/internal/obs"
	"battcore/pkg/dataset"
	"battcore/pkg/fit"
	"battcore/pkg/model"
	"battcore/pkg/optim"
	"battcore/pkg/params"
)

var exitFunc = os.Exit

const setName = "ECM"

// trueR0 and trueR1 are the ground-truth resistances recovered by the fit.
const (
	trueR0 = 0.001
	trueR1 = 0.0005
)

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type options struct {
	sigma      float64
	seed       int64
	iterations int
	dbPath     string
	exportDir  string
	paramsOut  string
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mapfit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.Float64Var(&opts.sigma, "sigma", 0.005, "observation noise standard deviation [V]")
	fs.Int64Var(&opts.seed, "seed", 8, "random seed for noise and optimiser")
	fs.IntVar(&opts.iterations, "iterations", 100, "maximum optimiser iterations")
	fs.StringVar(&opts.dbPath, "db", "", "sqlite catalog path (empty keeps the catalog in memory)")
	fs.StringVar(&opts.exportDir, "export", "", "artifact directory; when set the fitted set is exported as json and csv")
	fs.StringVar(&opts.paramsOut, "params-out", "", "write the updated parameter set to this json file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(context.Background(), opts, stdout); err != nil {
		fmt.Fprintf(stderr, "mapfit failed: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if opts.sigma <= 0 {
		return fmt.Errorf("sigma must be positive, got %v", opts.sigma)
	}

	set, err := params.NewFromValues(map[string]float64{
		ecm.KeyR0:          trueR0,
		ecm.KeyR1:          trueR1,
		ecm.KeyC1:          10000,
		ecm.KeyR2:          0.0003,
		ecm.KeyC2:          5000,
		ecm.KeyCapacity:    5.0,
		ecm.KeyNominalCap:  5.0,
		ecm.KeyUpperCutoff: 4.2,
		ecm.KeyLowerCutoff: 3.0,
		ecm.KeyInitialSoC:  0.9,
	})
	if err != nil {
		return err
	}
	sim, err := ecm.New(set)
	if err != nil {
		return err
	}

	inputs := model.Inputs{
		Experiment: model.Experiment{Steps: []model.Step{
			model.Discharge(1, 600, 10),
			model.Rest(300, 10),
		}},
	}

	observed, err := synthesize(ctx, sim, inputs, opts.sigma, opts.seed)
	if err != nil {
		return err
	}

	r0Prior, err := fit.NewGaussian(0.0008, 0.0004)
	if err != nil {
		return err
	}
	r1Prior, err := fit.NewGaussian(0.0006, 0.0003)
	if err != nil {
		return err
	}
	fitParams, err := fit.NewParameters(
		fit.Parameter{Name: ecm.KeyR0, Prior: r0Prior, Bounds: fit.Bounds{Lower: 1e-4, Upper: 1e-2}},
		fit.Parameter{Name: ecm.KeyR1, Prior: r1Prior, Bounds: fit.Bounds{Lower: 1e-4, Upper: 1e-2}},
	)
	if err != nil {
		return err
	}

	problem, err := optim.NewFittingProblem(sim, fitParams, observed, inputs, model.ColumnVoltage)
	if err != nil {
		return err
	}
	likelihood, err := optim.NewGaussianLogLikelihood(problem, opts.sigma)
	if err != nil {
		return err
	}
	posterior, err := optim.NewLogPosterior(likelihood)
	if err != nil {
		return err
	}

	recorder, err := obs.NewPrometheusRecorder(prometheus.NewRegistry(), "battcore")
	if err != nil {
		return err
	}
	search := optim.PatternSearch{
		MaxIterations: opts.iterations,
		Seed:          opts.seed,
		Recorder:      recorder,
	}
	result, estimates, err := optim.Minimise(ctx, search, posterior, fitParams)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "MAP estimate after %d iterations (%d evaluations):\n", result.Iterations, result.Evaluations)
	truth := []float64{trueR0, trueR1}
	for i, name := range fitParams.Names() {
		fmt.Fprintf(stdout, "  %-10s %.6g (true %.6g)\n", name, estimates[i], truth[i])
	}
	fmt.Fprintf(stdout, "  negative log posterior: %.4f\n", result.Cost)

	store, err := openCatalog(opts.dbPath)
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	var fitRecord catalog.FitResult
	err = store.RunInTransaction(ctx, func(tx catalog.Transaction) error {
		if _, err := tx.PutSet(catalog.Entry{Name: setName, Values: set.Values()}); err != nil {
			return err
		}
		fitRecord, err = tx.RecordFit(catalog.FitResult{
			SetName:     setName,
			Parameters:  fitParams.Names(),
			Estimates:   estimates,
			Cost:        result.Cost,
			Iterations:  result.Iterations,
			Evaluations: result.Evaluations,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("record fit: %w", err)
	}
	fmt.Fprintf(stdout, "recorded %s in catalog\n", fitRecord.ID)

	updates := make(map[string]float64, len(estimates))
	for i, name := range fitParams.Names() {
		updates[name] = estimates[i]
	}
	if err := set.Update(updates); err != nil {
		return err
	}
	if opts.paramsOut != "" {
		// The set already carries the MAP estimates; merging fit initials
		// back in would undo them.
		if err := set.ExportParameters(opts.paramsOut, nil); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote parameter set to %s\n", opts.paramsOut)
	}

	if opts.exportDir != "" {
		if err := exportSet(ctx, store, opts.exportDir, recorder, stdout); err != nil {
			return err
		}
	}
	return nil
}

// synthesize predicts the experiment and perturbs the voltage with Gaussian
// noise.
func synthesize(ctx context.Context, sim model.Simulator, inputs model.Inputs, sigma float64, seed int64) (dataset.Dataset, error) {
	clean, err := sim.Predict(ctx, inputs)
	if err != nil {
		return dataset.Dataset{}, err
	}
	voltage, err := clean.Column(model.ColumnVoltage)
	if err != nil {
		return dataset.Dataset{}, err
	}
	current, err := clean.Column(model.ColumnCurrent)
	if err != nil {
		return dataset.Dataset{}, err
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range voltage {
		voltage[i] += rng.NormFloat64() * sigma
	}
	return dataset.New(map[string][]float64{
		dataset.TimeColumn:  clean.Time(),
		model.ColumnCurrent: current,
		model.ColumnVoltage: voltage,
	})
}

func openCatalog(dbPath string) (catalog.Store, error) {
	if dbPath == "" {
		return stores.NewMemory(), nil
	}
	return stores.NewSQLite(dbPath)
}

func exportSet(ctx context.Context, store catalog.Store, dir string, recorder obs.MetricsRecorder, stdout io.Writer) error {
	artifacts, err := blob.NewFilesystem(dir)
	if err != nil {
		return err
	}
	worker := export.NewWorker(store, artifacts, nil, recorder)
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	record, err := worker.Enqueue(ctx, export.Input{SetName: setName, IncludeFits: true, RequestedBy: "mapfit"})
	if err != nil {
		return err
	}
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		current, ok := worker.Get(record.ID)
		if !ok {
			return fmt.Errorf("export %s disappeared", record.ID)
		}
		if current.Status == export.StatusFailed {
			return fmt.Errorf("export failed: %s", current.Error)
		}
		if current.Status == export.StatusSucceeded {
			for _, artifact := range current.Artifacts {
				fmt.Fprintf(stdout, "exported %s (%d bytes)\n", artifact.Key, artifact.SizeBytes)
			}
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("export %s timed out", record.ID)
}
