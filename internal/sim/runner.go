// Package sim drives measurement models: repeated simulation at a fixed
// state, empirical summaries of the draws, and likelihood reweighting of
// hypothesised states against an observation.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/sensorlaw/internal/measurement"
	"github.com/banshee-data/sensorlaw/internal/monitoring"
	"github.com/banshee-data/sensorlaw/internal/pdf"
	"github.com/banshee-data/sensorlaw/internal/timeutil"
	"github.com/google/uuid"
)

// MaxSamples bounds a single run.
const MaxSamples = 10_000_000

// ErrInvalidRequest is returned for requests that cannot be run.
var ErrInvalidRequest = errors.New("invalid simulation request")

// Request describes one simulation run. Sensor is ignored when the model
// has no sensor parameter.
type Request[S any] struct {
	State  S
	Sensor S
	Count  int
	Method pdf.SamplingMethod // empty selects pdf.Default
	Args   pdf.SamplingArgs
}

// Result holds every draw of a run with its likelihood under the model
// that produced it.
type Result[M any] struct {
	ID          uuid.UUID
	Method      pdf.SamplingMethod
	StartedAt   time.Time
	FinishedAt  time.Time
	Samples     []M
	Likelihoods []float64
}

// Duration returns the wall time of the run.
func (r *Result[M]) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunOption tunes Run.
type RunOption func(*runOptions)

type runOptions struct {
	clock timeutil.Clock
	logf  func(format string, v ...interface{})
}

// WithClock sets the clock used for run timestamps.
func WithClock(c timeutil.Clock) RunOption {
	return func(o *runOptions) { o.clock = c }
}

// WithLogger overrides the run logger.
func WithLogger(f func(format string, v ...interface{})) RunOption {
	return func(o *runOptions) { o.logf = f }
}

// Run draws req.Count measurements from model and evaluates the
// likelihood of each. It stops at the first error and returns no partial
// result. ctx is checked between draws.
func Run[M, S any](ctx context.Context, model *measurement.Model[M, S], req Request[S], opts ...RunOption) (*Result[M], error) {
	o := runOptions{clock: timeutil.RealClock{}, logf: monitoring.Prefixed("[sim] ")}
	for _, opt := range opts {
		opt(&o)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidRequest)
	}
	if req.Count <= 0 || req.Count > MaxSamples {
		return nil, fmt.Errorf("%w: count %d outside [1, %d]", ErrInvalidRequest, req.Count, MaxSamples)
	}
	method := req.Method
	if method == "" {
		method = pdf.Default
	}

	res := &Result[M]{
		ID:          uuid.New(),
		Method:      method,
		StartedAt:   o.clock.Now(),
		Samples:     make([]M, 0, req.Count),
		Likelihoods: make([]float64, 0, req.Count),
	}

	sampleOpts := []measurement.SampleOption{
		measurement.WithMethod(method),
		measurement.WithArgs(req.Args),
	}
	without := model.SystemWithoutSensorParams()
	for i := range req.Count {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s stopped after %d samples: %w", res.ID, i, err)
		}

		var (
			z   M
			p   pdf.Probability
			err error
		)
		if without {
			z, err = model.SimulateWithoutSensorParams(req.State, sampleOpts...)
		} else {
			z, err = model.Simulate(req.State, req.Sensor, sampleOpts...)
		}
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}

		if without {
			p, err = model.ProbabilityGetWithoutSensorParams(z, req.State)
		} else {
			p, err = model.ProbabilityGet(z, req.State, req.Sensor)
		}
		if err != nil {
			return nil, fmt.Errorf("likelihood of sample %d: %w", i, err)
		}

		res.Samples = append(res.Samples, z)
		res.Likelihoods = append(res.Likelihoods, p.Float64())
	}

	res.FinishedAt = o.clock.Now()
	o.logf("run %s: %d samples (%s) in %v", res.ID, req.Count, method, res.Duration())
	return res, nil
}
