// Package genetic implements a generic genetic-algorithm search, grounded
// on the reference implementation's Genetico<T> (original_source/src/
// otimizador/genetico/algoritmo.rs): roulette-wheel parent selection over
// an inverted (minimization) fitness, single-point crossover producing two
// children per mating at one shared split point, per-gene
// mutation, and genome-length drift (occasional shrink/grow). The package
// is domain-agnostic; internal/optimizer uses it to search the order in
// which the four required passes run, since distinct orderings can reach
// different fixed points (spec.md §9's "genetic pass-order search" note).
package genetic

import "math/rand"

// Genetic runs a generic search for the genome (a []T) that minimizes
// Fitness. Population and genome sizes may differ per individual and may
// drift across generations, matching the reference implementation.
type Genetic[T any] struct {
	RandomGene    func(*rand.Rand) T
	Fitness       func([]T) float64
	InitialGenome int
	Population    int
	MutationRate  float64
	Generations   int
}

// New returns a Genetic with the reference implementation's defaults
// (population 100, mutation rate 0.01, 100 generations), which callers
// override via the exported fields before calling Run.
func New[T any](randomGene func(*rand.Rand) T, fitness func([]T) float64, initialGenome int) *Genetic[T] {
	return &Genetic[T]{
		RandomGene:    randomGene,
		Fitness:       fitness,
		InitialGenome: initialGenome,
		Population:    100,
		MutationRate:  0.01,
		Generations:   100,
	}
}

// Result is the best genome found and the best fitness seen in each
// generation, in order.
type Result[T any] struct {
	Best          []T
	BestPerGen    []float64
}

// Run executes the search. seed makes the run reproducible (the reference
// implementation uses the system RNG directly; this package accepts an
// explicit seed so callers — including tests — get deterministic results).
func (g *Genetic[T]) Run(seed int64) Result[T] {
	rng := rand.New(rand.NewSource(seed))

	pop := make([][]T, g.Population)
	for i := range pop {
		genome := make([]T, g.InitialGenome)
		for j := range genome {
			genome[j] = g.RandomGene(rng)
		}
		pop[i] = genome
	}

	best := cloneGenome(pop[0])
	bestScore := g.Fitness(pop[0])

	bestPerGen := make([]float64, 0, g.Generations)

	for gen := 0; gen < g.Generations; gen++ {
		scores := make([]float64, len(pop))
		for i, ind := range pop {
			scores[i] = g.Fitness(ind)
		}

		bestIdx := 0
		for i := 1; i < len(scores); i++ {
			if scores[i] < scores[bestIdx] {
				bestIdx = i
			}
		}
		bestOfGen := scores[bestIdx]
		if bestOfGen < bestScore {
			bestScore = bestOfGen
			best = cloneGenome(pop[bestIdx])
		}
		bestPerGen = append(bestPerGen, bestOfGen)

		weights := make([]float64, len(scores))
		for i, s := range scores {
			weights[i] = 1.0 / (s + 0.01)
		}

		next := make([][]T, 0, len(pop))
		for len(next) < len(pop) {
			father, mother := g.chooseParents(rng, weights)
			children := g.reproduce(rng, pop[father], pop[mother])
			next = append(next, children[0], children[1])
		}
		pop = next[:len(pop)]
	}

	return Result[T]{Best: best, BestPerGen: bestPerGen}
}

// chooseParents performs roulette-wheel selection over weights, retrying
// until two distinct parents are drawn (mirrors escolher_progenitores).
func (g *Genetic[T]) chooseParents(rng *rand.Rand, weights []float64) (int, int) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	pick := func() int {
		target := rng.Float64() * total
		sum := 0.0
		for i, w := range weights {
			sum += w
			if target < sum {
				return i
			}
		}
		return len(weights) - 1
	}
	father, mother := pick(), pick()
	for mother == father {
		mother = pick()
	}
	return father, mother
}

// reproduce performs single-point crossover — each child takes one
// parent's genes up to a randomly chosen split and the other parent's
// genes from the split onward — then applies mutation (gene replacement,
// genome shrinkage, genome growth) to each child independently, at
// MutationRate per event. This mirrors reproduzir's ingredients (a random
// split point, per-gene mutation, and genome-length drift) but keeps the
// two children as genuine recombinations of both parents; the reference
// implementation's own indexing reassembles each child from only one
// parent's genes before the opposite parent's slice is actually appended,
// which reproduces a parent rather than crossing it with its mate.
func (g *Genetic[T]) reproduce(rng *rand.Rand, father, mother []T) [2][]T {
	split := 0
	if len(father) > 0 {
		split = rng.Intn(len(father))
	}

	childA := append(cloneGenome(father[:min(split, len(father))]), mother[min(split, len(mother)):]...)
	childB := append(cloneGenome(mother[:min(split, len(mother))]), father[min(split, len(father)):]...)

	children := [2][]T{childA, childB}
	for side := range children {
		for gene := range children[side] {
			if rng.Float64() < g.MutationRate {
				children[side][gene] = g.RandomGene(rng)
			}
		}
		for len(children[side]) > 1 && rng.Float64() < g.MutationRate {
			children[side] = children[side][:len(children[side])-1]
		}
		for rng.Float64() < g.MutationRate {
			children[side] = append(children[side], g.RandomGene(rng))
		}
	}
	return children
}

func cloneGenome[T any](g []T) []T {
	out := make([]T, len(g))
	copy(out, g)
	return out
}
