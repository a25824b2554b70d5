package optimizer

import (
	"math/rand"

	"mepa/internal/mepa"
	"mepa/internal/optimizer/genetic"
)

// passByGene maps a gene (0..3) to one of the four required passes, so the
// genetic search in genetic.go can treat "which order to run the passes
// in" as a genome.
var passByGene = []func(*mepa.Code) (*mepa.Code, bool, error){
	jumpThreading,
	unreachableBlockElimination,
	constantPropagation,
	deadStoreElimination,
}

// runOrder applies the passes named by order, each to its own fixed
// point, once through in sequence, and returns the resulting code.
func runOrder(code *mepa.Code, order []int) *mepa.Code {
	for _, gene := range order {
		pass := passByGene[gene%len(passByGene)]
		for {
			next, changed, err := pass(code)
			if err != nil || !changed {
				break
			}
			code = next
		}
	}
	return code
}

// SearchPassOrder supplements the deterministic fixed-point driver with a
// genetic search over pass orderings (spec.md §9): since passes interact
// (e.g. jump threading can leave blocks with no incoming edge for
// unreachable-block elimination to remove), some orderings reach a
// smaller result than others.
// Fitness is the resulting instruction count after one full pass over the
// searched order — fewer instructions wins. seed makes the search
// reproducible.
func SearchPassOrder(code *mepa.Code, seed int64) (*mepa.Code, error) {
	normalized, err := code.NormalizeLabels()
	if err != nil {
		return nil, err
	}

	ga := genetic.New(
		func(rng *rand.Rand) int { return rng.Intn(len(passByGene)) },
		func(order []int) float64 { return float64(runOrder(normalized, order).Len()) },
		len(passByGene),
	)
	ga.Population = 30
	ga.Generations = 20

	result := ga.Run(seed)
	return runOrder(normalized, result.Best), nil
}
