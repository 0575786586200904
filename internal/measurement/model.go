// Package measurement owns the measurement model of a recursive Bayesian
// estimator: the law P(Z | X[, U]) of a sensor reading Z given the hidden
// state X and an optional sensor parameter U.
//
// A Model borrows a pdf.Conditional and exposes the two operations every
// estimator needs in its update step: Simulate draws a synthetic
// measurement, ProbabilityGet weighs an observed one against a
// hypothesised state.
package measurement

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/sensorlaw/internal/monitoring"
	"github.com/banshee-data/sensorlaw/internal/pdf"
)

// Conditioning arity of a model with and without a sensor parameter.
const (
	ArgsWithSensorParams    = 2
	ArgsWithoutSensorParams = 1
)

var (
	// ErrNotConfigured is returned by operations that need a distribution
	// when none has been bound.
	ErrNotConfigured = errors.New("measurement model has no distribution")
	// ErrDimensionMismatch is returned when the call's conditioning values
	// do not match the model or its distribution.
	ErrDimensionMismatch = pdf.ErrDimensionMismatch
	// ErrUnsupportedSamplingMethod is returned when the bound distribution
	// cannot sample with the requested method.
	ErrUnsupportedSamplingMethod = pdf.ErrUnsupportedSamplingMethod
)

// Model is a measurement model with measurement type M and state type S.
// The state and the sensor parameter share type S.
//
// The distribution is borrowed, never owned: it may be shared with other
// models or estimators. A Model is safe for concurrent use when its
// distribution is; rebinding with MeasurementPdfSet while calls are in
// flight lets each call see either the old or the new distribution.
type Model[M, S any] struct {
	mu   sync.RWMutex
	dist pdf.Conditional[M, S]

	withoutSensorParams bool
	logf                func(format string, v ...interface{})
}

// Option configures a Model at construction.
type Option func(*options)

type options struct {
	withoutSensorParams bool
	logf                func(format string, v ...interface{})
}

// WithoutSensorParams declares an unconfigured model whose distribution
// will be conditioned on the state only. It is ignored when New receives a
// distribution, whose arity decides instead.
func WithoutSensorParams() Option {
	return func(o *options) { o.withoutSensorParams = true }
}

// WithLogger overrides the diagnostic logger (monitoring.Logf by default).
func WithLogger(f func(format string, v ...interface{})) Option {
	return func(o *options) { o.logf = f }
}

// New creates a Model. dist may be nil, leaving the model unconfigured
// until MeasurementPdfSet is called.
func New[M, S any](dist pdf.Conditional[M, S], opts ...Option) (*Model[M, S], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Model[M, S]{
		withoutSensorParams: o.withoutSensorParams,
		logf:                o.logf,
	}
	if m.logf == nil {
		m.logf = func(format string, v ...interface{}) { monitoring.Logf(format, v...) }
	}

	if dist != nil {
		switch n := dist.NumConditionalArguments(); n {
		case ArgsWithoutSensorParams:
			m.withoutSensorParams = true
		case ArgsWithSensorParams:
			m.withoutSensorParams = false
		default:
			return nil, fmt.Errorf("%w: distribution declares %d conditional arguments, want %d or %d",
				ErrDimensionMismatch, n, ArgsWithoutSensorParams, ArgsWithSensorParams)
		}
		m.dist = dist
	}
	return m, nil
}

// MeasurementSizeGet returns the dimension of the measurement variable.
func (m *Model[M, S]) MeasurementSizeGet() (int, error) {
	d := m.MeasurementPdfGet()
	if d == nil {
		return 0, ErrNotConfigured
	}
	return d.Dimension(), nil
}

// SystemWithoutSensorParams reports whether the sensor-parameter slot is
// omitted. It never changes after construction.
func (m *Model[M, S]) SystemWithoutSensorParams() bool {
	return m.withoutSensorParams
}

// MeasurementPdfGet returns the bound distribution, or nil when unconfigured.
func (m *Model[M, S]) MeasurementPdfGet() pdf.Conditional[M, S] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dist
}

// MeasurementPdfSet binds dist, replacing any previous distribution. A nil
// dist is ignored: a configured model stays configured.
func (m *Model[M, S]) MeasurementPdfSet(dist pdf.Conditional[M, S]) {
	if dist == nil {
		m.logf("measurement: ignoring nil distribution")
		return
	}
	m.mu.Lock()
	rebind := m.dist != nil
	m.dist = dist
	m.mu.Unlock()

	if rebind {
		m.logf("measurement: distribution rebound (%d conditional arguments, dimension %d)",
			dist.NumConditionalArguments(), dist.Dimension())
	}
}

// Simulate draws a measurement from P(Z | X=x, U=s).
func (m *Model[M, S]) Simulate(x, s S, opts ...SampleOption) (M, error) {
	return m.simulate([]S{x, s}, opts)
}

// SimulateWithoutSensorParams draws a measurement from P(Z | X=x). Valid
// only when SystemWithoutSensorParams is true.
func (m *Model[M, S]) SimulateWithoutSensorParams(x S, opts ...SampleOption) (M, error) {
	return m.simulate([]S{x}, opts)
}

// ProbabilityGet evaluates the likelihood of z given X=x and U=s: a density
// for continuous measurements, a probability mass for discrete ones.
func (m *Model[M, S]) ProbabilityGet(z M, x, s S) (pdf.Probability, error) {
	return m.probability(z, []S{x, s})
}

// ProbabilityGetWithoutSensorParams evaluates the likelihood of z given
// X=x. Valid only when SystemWithoutSensorParams is true.
func (m *Model[M, S]) ProbabilityGetWithoutSensorParams(z M, x S) (pdf.Probability, error) {
	return m.probability(z, []S{x})
}

func (m *Model[M, S]) simulate(cond []S, opts []SampleOption) (M, error) {
	var zero M
	so := sampleOptions{method: pdf.Default}
	for _, opt := range opts {
		opt(&so)
	}

	d, err := m.bind(cond)
	if err != nil {
		return zero, err
	}
	if !d.SupportsMethod(so.method) {
		return zero, fmt.Errorf("%w: %q", ErrUnsupportedSamplingMethod, so.method)
	}

	z, err := d.SampleGiven(cond, so.method, so.args)
	if err != nil {
		return zero, fmt.Errorf("simulate measurement: %w", err)
	}
	return z, nil
}

func (m *Model[M, S]) probability(z M, cond []S) (pdf.Probability, error) {
	d, err := m.bind(cond)
	if err != nil {
		return 0, err
	}

	p, err := d.DensityAt(z, cond)
	if err != nil {
		return 0, fmt.Errorf("measurement probability: %w", err)
	}
	if p < 0 {
		return 0, fmt.Errorf("measurement probability: %w: %v", pdf.ErrInvalidProbability, float64(p))
	}
	return p, nil
}

// bind snapshots the distribution and checks that cond matches both the
// model's sensor-parameter mode and the distribution's declared arity.
func (m *Model[M, S]) bind(cond []S) (pdf.Conditional[M, S], error) {
	d := m.MeasurementPdfGet()
	if d == nil {
		return nil, ErrNotConfigured
	}

	want := ArgsWithSensorParams
	if m.withoutSensorParams {
		want = ArgsWithoutSensorParams
	}
	if len(cond) != want {
		if m.withoutSensorParams {
			return nil, fmt.Errorf("%w: model has no sensor parameter", ErrDimensionMismatch)
		}
		return nil, fmt.Errorf("%w: model requires a sensor parameter", ErrDimensionMismatch)
	}
	if n := d.NumConditionalArguments(); n != want {
		return nil, fmt.Errorf("%w: distribution declares %d conditional arguments, model passes %d",
			ErrDimensionMismatch, n, want)
	}
	return d, nil
}
