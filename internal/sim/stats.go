package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/sensorlaw/internal/measurement"
	"github.com/banshee-data/sensorlaw/internal/pdf"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrZeroLikelihood is returned by Reweight when no state explains the
// observation.
var ErrZeroLikelihood = errors.New("observation has zero likelihood under every state")

// Frequency is the empirical share of one discrete outcome.
type Frequency struct {
	Value    int     `json:"value"`
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
}

// Frequencies tallies discrete draws, ordered by value.
func Frequencies(samples []int) []Frequency {
	counts := make(map[int]int)
	for _, z := range samples {
		counts[z]++
	}

	out := make([]Frequency, 0, len(counts))
	for v, c := range counts {
		out = append(out, Frequency{Value: v, Count: c, Fraction: float64(c) / float64(len(samples))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// DimSummary is the sample mean and standard deviation of one measurement
// component.
type DimSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize returns per-component statistics of vector draws. All samples
// must share one length.
func Summarize(samples [][]float64) ([]DimSummary, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	dim := len(samples[0])
	for i, z := range samples {
		if len(z) != dim {
			return nil, fmt.Errorf("%w: sample %d has length %d, want %d", measurement.ErrDimensionMismatch, i, len(z), dim)
		}
	}

	column := make([]float64, len(samples))
	out := make([]DimSummary, dim)
	for d := range dim {
		for i, z := range samples {
			column[i] = z[d]
		}
		mean, std := stat.MeanStdDev(column, nil)
		out[d] = DimSummary{Mean: mean, StdDev: std, Min: floats.Min(column), Max: floats.Max(column)}
	}
	return out, nil
}

// Counts converts integer draws to float64 for plotting and statistics.
func Counts(samples []int) []float64 {
	out := make([]float64, len(samples))
	for i, z := range samples {
		out[i] = float64(z)
	}
	return out
}

// Reweight evaluates the likelihood of observation z under each
// hypothesised state and returns the normalized weights. sensor is
// ignored when the model has no sensor parameter.
func Reweight[M, S any](model *measurement.Model[M, S], z M, states []S, sensor S) ([]float64, error) {
	weights := make([]float64, len(states))
	without := model.SystemWithoutSensorParams()
	for i, x := range states {
		var (
			p   pdf.Probability
			err error
		)
		if without {
			p, err = model.ProbabilityGetWithoutSensorParams(z, x)
		} else {
			p, err = model.ProbabilityGet(z, x, sensor)
		}
		if err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
		weights[i] = p.Float64()
	}

	total := floats.Sum(weights)
	if total == 0 {
		return nil, ErrZeroLikelihood
	}
	floats.Scale(1/total, weights)
	return weights, nil
}
