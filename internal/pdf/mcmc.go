package pdf

import "math/rand/v2"

// chainLength is the resolved shape of one Metropolis draw.
type chainLength struct {
	burnIn int
	steps  int
}

func (c chainLength) total() int { return c.burnIn + c.steps }

// mcmcChain extracts the chain shape from args, applying defaults.
func mcmcChain(args SamplingArgs) chainLength {
	var a MCMCArgs
	switch v := args.(type) {
	case MCMCArgs:
		a = v
	case *MCMCArgs:
		if v != nil {
			a = *v
		}
	}
	c := chainLength{burnIn: max(a.BurnIn, 0), steps: a.Steps}
	if c.steps <= 0 {
		c.steps = DefaultMCMCSteps
	}
	return c
}

// metropolis runs a Metropolis chain over the outcomes of weights with a
// uniform proposal and returns the final state. The chain starts at a
// uniformly chosen outcome with positive weight, so the result always lies
// in the support.
func metropolis(weights []float64, chain chainLength, rnd *rand.Rand) int {
	support := make([]int, 0, len(weights))
	for k, w := range weights {
		if w > 0 {
			support = append(support, k)
		}
	}
	if len(support) == 0 {
		return 0
	}

	cur := support[rnd.IntN(len(support))]
	for range chain.total() {
		prop := rnd.IntN(len(weights))
		if weights[prop] == 0 {
			continue
		}
		if ratio := weights[prop] / weights[cur]; ratio >= 1 || rnd.Float64() < ratio {
			cur = prop
		}
	}
	return cur
}
