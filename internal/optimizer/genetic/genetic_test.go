package genetic

import (
	"math/rand"
	"testing"
)

// sumFitness treats the genome as a slice of small ints and scores it by
// its sum — minimized at the all-zero genome, giving the search something
// deterministic to converge toward.
func sumFitness(genome []int) float64 {
	total := 0.0
	for _, g := range genome {
		total += float64(g)
	}
	return total
}

func randomSmallInt(rng *rand.Rand) int { return rng.Intn(10) }

func TestRunIsDeterministicForAFixedSeed(t *testing.T) {
	newSearch := func() *Genetic[int] {
		g := New(randomSmallInt, sumFitness, 5)
		g.Population = 20
		g.Generations = 15
		return g
	}

	r1 := newSearch().Run(42)
	r2 := newSearch().Run(42)

	if len(r1.BestPerGen) != len(r2.BestPerGen) {
		t.Fatalf("BestPerGen length differs: %d vs %d", len(r1.BestPerGen), len(r2.BestPerGen))
	}
	for i := range r1.BestPerGen {
		if r1.BestPerGen[i] != r2.BestPerGen[i] {
			t.Fatalf("generation %d diverged between identically seeded runs: %v vs %v",
				i, r1.BestPerGen[i], r2.BestPerGen[i])
		}
	}
}

func TestRunTracksBestGenomeAcrossGenerations(t *testing.T) {
	g := New(randomSmallInt, sumFitness, 8)
	g.Population = 40
	g.Generations = 30
	result := g.Run(7)

	if len(result.BestPerGen) != g.Generations {
		t.Fatalf("BestPerGen has %d entries, want %d", len(result.BestPerGen), g.Generations)
	}
	// Best must be at least as good as the best single generation observed,
	// since Run only ever updates Best on a strict improvement.
	minOfGens := result.BestPerGen[0]
	for _, v := range result.BestPerGen {
		if v < minOfGens {
			minOfGens = v
		}
	}
	if sumFitness(result.Best) > minOfGens {
		t.Errorf("Best fitness %v worse than the best generation's %v", sumFitness(result.Best), minOfGens)
	}
}

func TestReproduceRecombinesBothParents(t *testing.T) {
	g := New(randomSmallInt, sumFitness, 6)
	g.MutationRate = 0 // isolate crossover from mutation noise
	rng := rand.New(rand.NewSource(1))

	father := []int{1, 1, 1, 1, 1, 1}
	mother := []int{9, 9, 9, 9, 9, 9}

	sawMixedChild := false
	for trial := 0; trial < 20; trial++ {
		children := g.reproduce(rng, father, mother)
		for _, child := range children {
			hasFatherGene, hasMotherGene := false, false
			for _, gene := range child {
				if gene == 1 {
					hasFatherGene = true
				}
				if gene == 9 {
					hasMotherGene = true
				}
			}
			if hasFatherGene && hasMotherGene {
				sawMixedChild = true
			}
		}
	}
	if !sawMixedChild {
		t.Error("reproduce should produce a child carrying genes from both parents, not copy only one")
	}
}
