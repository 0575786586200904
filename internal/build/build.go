// Package build turns a config.ModelConfig into a ready measurement model.
package build

import (
	"fmt"

	"github.com/banshee-data/sensorlaw/internal/config"
	"github.com/banshee-data/sensorlaw/internal/measurement"
	"github.com/banshee-data/sensorlaw/internal/pdf"
	"gonum.org/v1/gonum/mat"
)

// Table builds a discrete-state, discrete-measurement model.
func Table(cfg *config.ModelConfig, opts ...measurement.Option) (*measurement.Model[int, int], error) {
	if err := expectKind(cfg, config.KindTable); err != nil {
		return nil, err
	}
	tc := cfg.Table
	tbl, err := pdf.NewTable(tc.Rows, tc.States, tc.Sensors, pdf.NewSource(cfg.GetSeed()))
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	return measurement.New[int, int](tbl, opts...)
}

// LinearGaussian builds a continuous-state, continuous-measurement model.
func LinearGaussian(cfg *config.ModelConfig, opts ...measurement.Option) (*measurement.Model[[]float64, []float64], error) {
	if err := expectKind(cfg, config.KindLinearGaussian); err != nil {
		return nil, err
	}
	gc := cfg.Gaussian

	h := dense(gc.H)
	var j mat.Matrix
	if gc.J != nil {
		j = dense(gc.J)
	}
	r, err := symmetric(gc.R)
	if err != nil {
		return nil, fmt.Errorf("build linear gaussian: %w", err)
	}

	g, err := pdf.NewLinearGaussian(h, j, gc.Bias, r, pdf.NewSource(cfg.GetSeed()))
	if err != nil {
		return nil, fmt.Errorf("build linear gaussian: %w", err)
	}
	return measurement.New[[]float64, []float64](g, opts...)
}

// Poisson builds a continuous-state, count-measurement model.
func Poisson(cfg *config.ModelConfig, opts ...measurement.Option) (*measurement.Model[int, []float64], error) {
	if err := expectKind(cfg, config.KindPoisson); err != nil {
		return nil, err
	}
	pc := cfg.Poisson
	p, err := pdf.NewPoisson(pc.W, pc.V, pc.C, pdf.NewSource(cfg.GetSeed()))
	if err != nil {
		return nil, fmt.Errorf("build poisson: %w", err)
	}
	return measurement.New[int, []float64](p, opts...)
}

// Sampling returns the sampling method selected by cfg and the arguments
// that go with it (nil unless the method takes any).
func Sampling(cfg *config.ModelConfig) (pdf.SamplingMethod, pdf.SamplingArgs) {
	method := pdf.ParseSamplingMethod(cfg.GetSamplingMethod())
	if method == pdf.MCMC {
		return method, pdf.MCMCArgs{Steps: cfg.GetMCMCSteps(), BurnIn: cfg.GetMCMCBurnIn()}
	}
	return method, nil
}

// SampleOptions returns the Simulate options selected by cfg.
func SampleOptions(cfg *config.ModelConfig) []measurement.SampleOption {
	method, args := Sampling(cfg)
	opts := []measurement.SampleOption{measurement.WithMethod(method)}
	if args != nil {
		opts = append(opts, measurement.WithArgs(args))
	}
	return opts
}

func expectKind(cfg *config.ModelConfig, kind string) error {
	if cfg == nil {
		return fmt.Errorf("nil model config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if got := cfg.GetKind(); got != kind {
		return fmt.Errorf("config describes a %q model, want %q", got, kind)
	}
	return nil
}

// dense flattens validated, rectangular rows into a Dense.
func dense(rows [][]float64) *mat.Dense {
	r, c := len(rows), len(rows[0])
	data := make([]float64, 0, r*c)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(r, c, data)
}

func symmetric(rows [][]float64) (*mat.SymDense, error) {
	n := len(rows)
	for i := range n {
		for j := i + 1; j < n; j++ {
			if rows[i][j] != rows[j][i] {
				return nil, fmt.Errorf("%w: R[%d][%d]=%v differs from R[%d][%d]=%v",
					pdf.ErrInvalidParameters, i, j, rows[i][j], j, i, rows[j][i])
			}
		}
	}
	return mat.NewSymDense(n, dense(rows).RawMatrix().Data), nil
}
