package pdf

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// LinearGaussian is the linear-Gaussian measurement law
//
//	z ~ N(H·x + J·u + b, R)
//
// with x the state, u the optional sensor parameter and R the measurement
// noise covariance. When J is nil the distribution takes only the state.
type LinearGaussian struct {
	h     *mat.Dense
	j     *mat.Dense // nil: no sensor parameter
	bias  *mat.VecDense
	r     *mat.SymDense
	chol  mat.Cholesky
	lower mat.TriDense

	rnd *rand.Rand
	src rand.Source
}

// NewLinearGaussian builds a LinearGaussian. h is m×n, j (optional) is
// m×p, bias (optional) has length m, r is m×m positive definite.
func NewLinearGaussian(h, j mat.Matrix, bias []float64, r mat.Symmetric, src rand.Source) (*LinearGaussian, error) {
	if h == nil || r == nil {
		return nil, fmt.Errorf("%w: H and R are required", ErrInvalidParameters)
	}
	m, _ := h.Dims()
	if r.SymmetricDim() != m {
		return nil, fmt.Errorf("%w: R has dimension %d, want %d", ErrInvalidParameters, r.SymmetricDim(), m)
	}

	g := &LinearGaussian{
		h:    mat.DenseCopyOf(h),
		bias: mat.NewVecDense(m, nil),
		r:    mat.NewSymDense(m, nil),
	}
	g.r.CopySym(r)

	if j != nil {
		if rows, _ := j.Dims(); rows != m {
			return nil, fmt.Errorf("%w: J has %d rows, want %d", ErrInvalidParameters, rows, m)
		}
		g.j = mat.DenseCopyOf(j)
	}
	if bias != nil {
		if err := CheckLen(bias, m, "bias"); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}
		g.bias.CopyVec(mat.NewVecDense(m, bias))
	}

	if ok := g.chol.Factorize(g.r); !ok {
		return nil, fmt.Errorf("%w: R is not positive definite", ErrInvalidParameters)
	}
	g.chol.LTo(&g.lower)

	g.src = sourceOrDefault(src)
	g.rnd = rand.New(g.src)
	return g, nil
}

// StateSize returns the expected state length.
func (g *LinearGaussian) StateSize() int {
	_, n := g.h.Dims()
	return n
}

// SensorSize returns the expected sensor-parameter length, or 0 when the
// distribution takes no sensor parameter.
func (g *LinearGaussian) SensorSize() int {
	if g.j == nil {
		return 0
	}
	_, p := g.j.Dims()
	return p
}

func (g *LinearGaussian) NumConditionalArguments() int {
	if g.j == nil {
		return 1
	}
	return 2
}

func (g *LinearGaussian) Dimension() int {
	m, _ := g.h.Dims()
	return m
}

func (g *LinearGaussian) SupportsMethod(m SamplingMethod) bool {
	switch m {
	case Default, Cholesky, BoxMuller:
		return true
	}
	return false
}

// Mean returns H·x + J·u + b for the given conditioning values.
func (g *LinearGaussian) Mean(cond [][]float64) ([]float64, error) {
	if err := CheckArity(cond, g.NumConditionalArguments()); err != nil {
		return nil, err
	}
	if err := CheckLen(cond[0], g.StateSize(), "state"); err != nil {
		return nil, err
	}

	mean := mat.NewVecDense(g.Dimension(), nil)
	mean.MulVec(g.h, mat.NewVecDense(len(cond[0]), cond[0]))
	if g.j != nil {
		if err := CheckLen(cond[1], g.SensorSize(), "sensor parameter"); err != nil {
			return nil, err
		}
		var ju mat.VecDense
		ju.MulVec(g.j, mat.NewVecDense(len(cond[1]), cond[1]))
		mean.AddVec(mean, &ju)
	}
	mean.AddVec(mean, g.bias)
	return mean.RawVector().Data, nil
}

func (g *LinearGaussian) SampleGiven(cond [][]float64, m SamplingMethod, _ SamplingArgs) ([]float64, error) {
	if !g.SupportsMethod(m) {
		return nil, unsupported("linear gaussian", m)
	}
	mean, err := g.Mean(cond)
	if err != nil {
		return nil, err
	}

	switch m {
	case BoxMuller:
		return g.sampleBoxMuller(mean), nil
	default:
		return distmv.NormalRand(nil, mean, &g.chol, g.src), nil
	}
}

// sampleBoxMuller draws standard normals in pairs and maps them through
// the lower Cholesky factor of R.
func (g *LinearGaussian) sampleBoxMuller(mean []float64) []float64 {
	n := len(mean)
	e := make([]float64, n)
	for i := 0; i < n; i += 2 {
		u1 := 1 - g.rnd.Float64() // (0, 1]
		u2 := g.rnd.Float64()
		radius := math.Sqrt(-2 * math.Log(u1))
		e[i] = radius * math.Cos(2*math.Pi*u2)
		if i+1 < n {
			e[i+1] = radius * math.Sin(2*math.Pi*u2)
		}
	}

	z := mat.NewVecDense(n, nil)
	z.MulVec(&g.lower, mat.NewVecDense(n, e))
	z.AddVec(z, mat.NewVecDense(n, mean))
	return z.RawVector().Data
}

func (g *LinearGaussian) DensityAt(z []float64, cond [][]float64) (Probability, error) {
	if err := CheckLen(z, g.Dimension(), "measurement"); err != nil {
		return 0, err
	}
	mean, err := g.Mean(cond)
	if err != nil {
		return 0, err
	}
	return NewProbability(math.Exp(distmv.NormalLogProb(z, mean, &g.chol)))
}
