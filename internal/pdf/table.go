package pdf

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// RowSumTolerance bounds how far a Table row may sum from 1.
const RowSumTolerance = 1e-9

// Table is a discrete conditional distribution P(Z=k | X=i[, U=j]) over
// outcomes 0..Outcomes()-1, stored as one probability row per
// conditioning combination.
type Table struct {
	rows     [][]float64
	cdf      [][]float64
	cats     []distuv.Categorical
	states   int
	sensors  int // 0: no sensor parameter
	outcomes int

	rnd *rand.Rand
}

// NewTable builds a Table. Row i*max(sensors,1)+j holds P(Z | X=i, U=j).
// sensors == 0 declares a distribution conditioned on the state only.
func NewTable(rows [][]float64, states, sensors int, src rand.Source) (*Table, error) {
	if states <= 0 || sensors < 0 {
		return nil, fmt.Errorf("%w: states=%d sensors=%d", ErrInvalidParameters, states, sensors)
	}
	want := states * max(sensors, 1)
	if len(rows) != want {
		return nil, fmt.Errorf("%w: got %d rows, want %d", ErrInvalidParameters, len(rows), want)
	}
	if len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: rows must have at least one outcome", ErrInvalidParameters)
	}

	src = sourceOrDefault(src)
	t := &Table{
		rows:     make([][]float64, len(rows)),
		cdf:      make([][]float64, len(rows)),
		cats:     make([]distuv.Categorical, len(rows)),
		states:   states,
		sensors:  sensors,
		outcomes: len(rows[0]),
		rnd:      rand.New(src),
	}
	for i, row := range rows {
		if len(row) != t.outcomes {
			return nil, fmt.Errorf("%w: row %d has %d outcomes, want %d", ErrInvalidParameters, i, len(row), t.outcomes)
		}
		for k, p := range row {
			if math.IsNaN(p) || p < 0 {
				return nil, fmt.Errorf("%w: row %d outcome %d has probability %v", ErrInvalidParameters, i, k, p)
			}
		}
		if sum := floats.Sum(row); math.Abs(sum-1) > RowSumTolerance {
			return nil, fmt.Errorf("%w: row %d sums to %v", ErrInvalidParameters, i, sum)
		}

		t.rows[i] = append([]float64(nil), row...)
		t.cdf[i] = make([]float64, t.outcomes)
		floats.CumSum(t.cdf[i], row)
		t.cats[i] = distuv.NewCategorical(t.rows[i], src)
	}
	return t, nil
}

// Outcomes returns the number of measurement outcomes.
func (t *Table) Outcomes() int { return t.outcomes }

// States returns the number of state values.
func (t *Table) States() int { return t.states }

// Sensors returns the number of sensor-parameter values (0 when absent).
func (t *Table) Sensors() int { return t.sensors }

func (t *Table) NumConditionalArguments() int {
	if t.sensors == 0 {
		return 1
	}
	return 2
}

func (t *Table) Dimension() int { return 1 }

func (t *Table) SupportsMethod(m SamplingMethod) bool {
	switch m {
	case Default, Inversion, MCMC:
		return true
	}
	return false
}

// row resolves the conditioning values to a row index.
func (t *Table) row(cond []int) (int, error) {
	if err := CheckArity(cond, t.NumConditionalArguments()); err != nil {
		return 0, err
	}
	x := cond[0]
	if x < 0 || x >= t.states {
		return 0, fmt.Errorf("%w: state %d outside [0, %d)", ErrDimensionMismatch, x, t.states)
	}
	if t.sensors == 0 {
		return x, nil
	}
	s := cond[1]
	if s < 0 || s >= t.sensors {
		return 0, fmt.Errorf("%w: sensor parameter %d outside [0, %d)", ErrDimensionMismatch, s, t.sensors)
	}
	return x*t.sensors + s, nil
}

func (t *Table) SampleGiven(cond []int, m SamplingMethod, args SamplingArgs) (int, error) {
	if !t.SupportsMethod(m) {
		return 0, unsupported("table", m)
	}
	i, err := t.row(cond)
	if err != nil {
		return 0, err
	}

	switch m {
	case Inversion:
		return t.invert(i), nil
	case MCMC:
		return metropolis(t.rows[i], mcmcChain(args), t.rnd), nil
	default:
		return int(t.cats[i].Rand()), nil
	}
}

// invert returns the first outcome whose cumulative mass reaches u.
func (t *Table) invert(i int) int {
	u := t.rnd.Float64()
	cdf := t.cdf[i]
	for k, c := range cdf {
		if u < c && t.rows[i][k] > 0 {
			return k
		}
	}
	// Rounding left u above the final cumulative value.
	for k := t.outcomes - 1; k >= 0; k-- {
		if t.rows[i][k] > 0 {
			return k
		}
	}
	return t.outcomes - 1
}

// DensityAt returns P(Z=z | cond). Outcomes outside the table have mass 0.
func (t *Table) DensityAt(z int, cond []int) (Probability, error) {
	i, err := t.row(cond)
	if err != nil {
		return 0, err
	}
	if z < 0 || z >= t.outcomes {
		return 0, nil
	}
	return Probability(t.rows[i][z]), nil
}
