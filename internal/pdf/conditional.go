package pdf

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnsupportedSamplingMethod is returned when a distribution cannot
	// draw with the requested sampling method.
	ErrUnsupportedSamplingMethod = errors.New("unsupported sampling method")
	// ErrDimensionMismatch is returned when conditioning values or a
	// measurement do not fit the distribution's declared shape.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidProbability is returned for negative or NaN probabilities.
	ErrInvalidProbability = errors.New("invalid probability")
	// ErrInvalidParameters is returned when a distribution is constructed
	// from inconsistent parameters.
	ErrInvalidParameters = errors.New("invalid distribution parameters")
)

// SamplingMethod names a strategy for drawing a value from a distribution.
// The set is open: any name may be used, and each distribution reports
// which names it honours through SupportsMethod.
type SamplingMethod string

const (
	Default   SamplingMethod = "default"   // Whatever the distribution implements natively
	Cholesky  SamplingMethod = "cholesky"  // Cholesky-factor transform of standard normals
	BoxMuller SamplingMethod = "boxmuller" // Box-Muller standard normals
	Inversion SamplingMethod = "inversion" // Inverse-CDF search
	Rejection SamplingMethod = "rejection" // Reserved; no distribution in this package implements it
	MCMC      SamplingMethod = "mcmc"      // Metropolis chain, tuned by MCMCArgs
)

// ParseSamplingMethod maps a user-supplied name to a SamplingMethod.
// The empty string selects Default.
func ParseSamplingMethod(name string) SamplingMethod {
	if name == "" {
		return Default
	}
	return SamplingMethod(name)
}

func (m SamplingMethod) String() string { return string(m) }

// SamplingArgs carries algorithm-specific tuning for a sampling method.
// Distributions ignore arguments they do not understand.
type SamplingArgs any

// MCMCArgs tunes the Metropolis sampler. Each draw runs BurnIn discarded
// transitions followed by Steps transitions and returns the final state.
type MCMCArgs struct {
	Steps  int // Chain length; values <= 0 select DefaultMCMCSteps
	BurnIn int // Extra leading transitions; values < 0 count as 0
}

// DefaultMCMCSteps is the chain length used when MCMCArgs is absent.
const DefaultMCMCSteps = 100

// Probability is a density (continuous measurements, may exceed 1) or a
// probability mass (discrete measurements). It is never negative.
type Probability float64

// NewProbability validates p and returns it as a Probability.
func NewProbability(p float64) (Probability, error) {
	if math.IsNaN(p) || p < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProbability, p)
	}
	return Probability(p), nil
}

// Float64 returns the probability as a float64.
func (p Probability) Float64() float64 { return float64(p) }

// Conditional is a family of distributions over a measurement variable M
// indexed by an ordered list of conditioning values of type S.
type Conditional[M, S any] interface {
	// NumConditionalArguments returns the number of conditioning values
	// every call must supply.
	NumConditionalArguments() int
	// Dimension returns the dimensionality of the measurement variable.
	Dimension() int
	// SupportsMethod reports whether SampleGiven honours m.
	SupportsMethod(m SamplingMethod) bool
	// SampleGiven draws one value given the conditioning values.
	SampleGiven(cond []S, m SamplingMethod, args SamplingArgs) (M, error)
	// DensityAt evaluates the density or mass at z given the conditioning values.
	DensityAt(z M, cond []S) (Probability, error)
}

// CheckArity returns a wrapped ErrDimensionMismatch unless cond holds
// exactly n conditioning values.
func CheckArity[S any](cond []S, n int) error {
	if len(cond) != n {
		return fmt.Errorf("%w: got %d conditional arguments, want %d", ErrDimensionMismatch, len(cond), n)
	}
	return nil
}

// CheckLen returns a wrapped ErrDimensionMismatch unless v has length n.
func CheckLen(v []float64, n int, what string) error {
	if len(v) != n {
		return fmt.Errorf("%w: %s has length %d, want %d", ErrDimensionMismatch, what, len(v), n)
	}
	return nil
}

func unsupported(dist string, m SamplingMethod) error {
	return fmt.Errorf("%w: %s does not implement %q", ErrUnsupportedSamplingMethod, dist, m)
}
