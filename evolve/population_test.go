package evolve

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/baldhumanity/blockevo/evolve/nn"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Evolution.PopSize = 6
	cfg.Evolution.Seed = 42
	cfg.Network.HiddenSizes = []int{8}
	cfg.Scheduler.Workers = 2
	cfg.Scheduler.MaxPlacements = 30
	return cfg
}

func newTestPopulation(t *testing.T, cfg *Config) *Population {
	t.Helper()
	pop, err := NewPopulation(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return pop
}

func TestNewPopulation(t *testing.T) {
	pop := newTestPopulation(t, testConfig())
	assert.Equal(t, 1, pop.Generation)
	require.Len(t, pop.Players, 6)
	keys := map[int]bool{}
	for _, p := range pop.Players {
		assert.False(t, keys[p.Key], "duplicate key %d", p.Key)
		keys[p.Key] = true
		assert.Equal(t, []int{NumInputs, 8, NumOutputs}, p.Network.Sizes())
		assert.Zero(t, p.Fitness)
	}
}

func TestNewPopulation_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Evolution.PopSize = 0
	_, err := NewPopulation(cfg, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestNextGeneration(t *testing.T) {
	cfg := testConfig()
	cfg.Evolution.SurvivalRate = 0.34 // ceil(2.04) = 3 survivors
	pop := newTestPopulation(t, cfg)
	for i, p := range pop.Players {
		p.SetFitness(float64(10 * i))
		p.Terminal = true
	}
	best := pop.Players[5]
	bestNet := best.Network.Clone()
	survivorKeys := []int{pop.Players[5].Key, pop.Players[4].Key, pop.Players[3].Key}

	require.NoError(t, pop.NextGeneration())
	assert.Equal(t, 2, pop.Generation)
	require.Len(t, pop.Players, 6)

	assert.Same(t, best, pop.Players[0], "best survives in first position")
	assert.True(t, best.Network.Equal(bestNet), "survivors are not mutated")
	for i, key := range survivorKeys {
		assert.Equal(t, key, pop.Players[i].Key)
		assert.Equal(t, []int{key}, pop.Ancestors[key])
	}
	for _, p := range pop.Players {
		assert.Zero(t, p.Fitness)
		assert.False(t, p.Terminal)
	}
	for _, p := range pop.Players[3:] {
		parents := pop.Ancestors[p.Key]
		require.Len(t, parents, 2)
		for _, parent := range parents {
			assert.Contains(t, survivorKeys, parent)
		}
	}
}

func TestNextGeneration_MinSurvivors(t *testing.T) {
	cfg := testConfig()
	cfg.Evolution.PopSize = 10
	cfg.Evolution.SurvivalRate = 0.05
	pop := newTestPopulation(t, cfg)
	for i, p := range pop.Players {
		p.SetFitness(float64(i))
	}
	top := []int{pop.Players[9].Key, pop.Players[8].Key}

	require.NoError(t, pop.NextGeneration())
	assert.Equal(t, top, []int{pop.Players[0].Key, pop.Players[1].Key})
	assert.Len(t, pop.Players, 10)
}

func TestNextGeneration_ZeroFitness(t *testing.T) {
	pop := newTestPopulation(t, testConfig())
	first := pop.Players[0]
	require.NoError(t, pop.NextGeneration())
	assert.Len(t, pop.Players, 6)
	// equal fitness keeps population order
	assert.Same(t, first, pop.Players[0])
}

func TestNextGeneration_SingleSurvivor(t *testing.T) {
	cfg := testConfig()
	cfg.Evolution.PopSize = 3
	cfg.Evolution.SurvivalRate = 0.1
	cfg.Evolution.MinSurvivors = 1
	cfg.Evolution.MutationRate = 0
	pop := newTestPopulation(t, cfg)
	pop.Players[1].SetFitness(5)
	only := pop.Players[1]

	require.NoError(t, pop.NextGeneration())
	require.Len(t, pop.Players, 3)
	assert.Same(t, only, pop.Players[0])
	for _, p := range pop.Players[1:] {
		assert.True(t, p.Network.Equal(only.Network), "self crossover without mutation copies the parent")
		assert.NotSame(t, only.Network, p.Network)
		assert.Equal(t, []int{only.Key, only.Key}, pop.Ancestors[p.Key])
	}
}

func TestRankPlayers_Stable(t *testing.T) {
	players := []*Player{
		{Key: 1, Fitness: 5},
		{Key: 2, Fitness: 9},
		{Key: 3, Fitness: 5},
		{Key: 4, Fitness: 0},
	}
	ranked := rankPlayers(players)
	keys := make([]int, len(ranked))
	for i, p := range ranked {
		keys[i] = p.Key
	}
	assert.Equal(t, []int{2, 1, 3, 4}, keys)
	assert.Equal(t, 1, players[0].Key, "input order is untouched")
}

func TestSelectParent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	t.Run("only positive fitness is picked", func(t *testing.T) {
		survivors := []*Player{{Key: 1}, {Key: 2, Fitness: 10}, {Key: 3}}
		for i := 0; i < 200; i++ {
			assert.Equal(t, 2, selectParent(rng, survivors).Key)
		}
	})

	t.Run("proportional to fitness", func(t *testing.T) {
		survivors := []*Player{{Key: 1, Fitness: 1}, {Key: 2, Fitness: 3}}
		const n = 20000
		hits := 0
		for i := 0; i < n; i++ {
			if selectParent(rng, survivors).Key == 2 {
				hits++
			}
		}
		assert.InDelta(t, 0.75, float64(hits)/n, 0.02)
	})

	t.Run("zero total is uniform", func(t *testing.T) {
		survivors := []*Player{{Key: 1}, {Key: 2}, {Key: 3}}
		counts := map[int]int{}
		for i := 0; i < 3000; i++ {
			counts[selectParent(rng, survivors).Key]++
		}
		for key := 1; key <= 3; key++ {
			assert.InDelta(t, 1000, counts[key], 150, "key %d", key)
		}
	})
}

func TestBreed_KeepsParentsIntact(t *testing.T) {
	cfg := testConfig()
	cfg.Evolution.MutationRate = 1
	pop := newTestPopulation(t, cfg)
	survivors := pop.Players[:2]
	before := []*nn.Network{survivors[0].Network.Clone(), survivors[1].Network.Clone()}

	child, parents, err := pop.breed(survivors)
	require.NoError(t, err)
	assert.Equal(t, survivors[0].Network.Sizes(), child.Sizes())
	assert.False(t, child.Equal(survivors[0].Network))
	assert.Contains(t, []int{survivors[0].Key, survivors[1].Key}, parents[0])
	assert.True(t, survivors[0].Network.Equal(before[0]))
	assert.True(t, survivors[1].Network.Equal(before[1]))
}

func TestPopulationBest(t *testing.T) {
	pop := newTestPopulation(t, testConfig())
	pop.Players[2].SetFitness(12)
	pop.Players[4].SetFitness(12)
	assert.Same(t, pop.Players[2], pop.Best())
	assert.Equal(t, 24.0, floats.Sum(pop.Fitnesses()))
}
