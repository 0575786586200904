package pdf

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinRate is the floor applied to the Poisson rate so that every count
// keeps a positive mass.
const MinRate = 1e-9

// maxInversionCount caps the inversion search for extreme rates.
const maxInversionCount = 1 << 20

// Poisson is a count measurement driven by a continuous state:
//
//	z ~ Poisson(λ),  λ = max(MinRate, w·x + v·u + c)
//
// When v is nil the distribution takes only the state.
type Poisson struct {
	w []float64
	v []float64 // nil: no sensor parameter
	c float64

	src rand.Source
	rnd *rand.Rand
}

// NewPoisson builds a Poisson count law with state weights w, optional
// sensor-parameter weights v and offset c.
func NewPoisson(w, v []float64, c float64, src rand.Source) (*Poisson, error) {
	if len(w) == 0 {
		return nil, fmt.Errorf("%w: state weights are required", ErrInvalidParameters)
	}
	if v != nil && len(v) == 0 {
		return nil, fmt.Errorf("%w: sensor weights must be nil or non-empty", ErrInvalidParameters)
	}
	src = sourceOrDefault(src)
	p := &Poisson{
		w:   append([]float64(nil), w...),
		c:   c,
		src: src,
		rnd: rand.New(src),
	}
	if v != nil {
		p.v = append([]float64(nil), v...)
	}
	return p, nil
}

func (p *Poisson) NumConditionalArguments() int {
	if p.v == nil {
		return 1
	}
	return 2
}

func (p *Poisson) Dimension() int { return 1 }

func (p *Poisson) SupportsMethod(m SamplingMethod) bool {
	return m == Default || m == Inversion
}

// Rate returns λ for the given conditioning values.
func (p *Poisson) Rate(cond [][]float64) (float64, error) {
	if err := CheckArity(cond, p.NumConditionalArguments()); err != nil {
		return 0, err
	}
	if err := CheckLen(cond[0], len(p.w), "state"); err != nil {
		return 0, err
	}
	rate := floats.Dot(p.w, cond[0]) + p.c
	if p.v != nil {
		if err := CheckLen(cond[1], len(p.v), "sensor parameter"); err != nil {
			return 0, err
		}
		rate += floats.Dot(p.v, cond[1])
	}
	if math.IsNaN(rate) || rate < MinRate {
		rate = MinRate
	}
	return rate, nil
}

func (p *Poisson) SampleGiven(cond [][]float64, m SamplingMethod, _ SamplingArgs) (int, error) {
	if !p.SupportsMethod(m) {
		return 0, unsupported("poisson", m)
	}
	rate, err := p.Rate(cond)
	if err != nil {
		return 0, err
	}
	if m == Inversion {
		return p.invert(rate), nil
	}
	return int(distuv.Poisson{Lambda: rate, Src: p.src}.Rand()), nil
}

// invert walks the CDF term by term until it passes a uniform draw. Terms
// are carried in log space: exp(-rate) underflows for rates above ~745.
func (p *Poisson) invert(rate float64) int {
	u := p.rnd.Float64()
	logRate := math.Log(rate)
	logTerm := -rate
	cdf := math.Exp(logTerm)
	k := 0
	for u > cdf && k < maxInversionCount {
		k++
		logTerm += logRate - math.Log(float64(k))
		term := math.Exp(logTerm)
		cdf += term
		if term == 0 && float64(k) > rate {
			break
		}
	}
	return k
}

// DensityAt returns the Poisson mass at z. Negative counts have mass 0.
func (p *Poisson) DensityAt(z int, cond [][]float64) (Probability, error) {
	rate, err := p.Rate(cond)
	if err != nil {
		return 0, err
	}
	if z < 0 {
		return 0, nil
	}
	return NewProbability(distuv.Poisson{Lambda: rate}.Prob(float64(z)))
}
