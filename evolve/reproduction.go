package evolve

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/baldhumanity/blockevo/evolve/nn"
)

// rankPlayers returns the players sorted by fitness, best first. Equal
// fitness keeps population order.
func rankPlayers(players []*Player) []*Player {
	ranked := make([]*Player, len(players))
	copy(ranked, players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})
	return ranked
}

// selectParent performs roulette-wheel selection over the survivors: a draw
// in [0, total) picks the first survivor whose cumulative fitness reaches it.
// With zero total fitness every survivor is equally likely.
func selectParent(rng *rand.Rand, survivors []*Player) *Player {
	total := 0.0
	for _, p := range survivors {
		total += p.Fitness
	}
	if total <= 0 {
		return survivors[rng.Intn(len(survivors))]
	}
	draw := rng.Float64() * total
	cumulative := 0.0
	for _, p := range survivors {
		cumulative += p.Fitness
		if cumulative >= draw {
			return p
		}
	}
	// Rounding can leave the draw a hair above the final cumulative sum.
	return survivors[len(survivors)-1]
}

// breed creates one offspring network from two roulette-selected survivors
// and mutates it. Survivor networks are never written.
func (p *Population) breed(survivors []*Player) (*nn.Network, [2]int, error) {
	a := selectParent(p.rng, survivors)
	b := selectParent(p.rng, survivors)
	child, err := nn.Crossover(p.rng, a.Network, b.Network)
	if err != nil {
		return nil, [2]int{}, fmt.Errorf("crossover of %d and %d: %w", a.Key, b.Key, err)
	}
	child.Mutate(p.rng, p.Config.Evolution.MutationRate, p.Config.Evolution.MutationPower)
	return child, [2]int{a.Key, b.Key}, nil
}

// newNetwork creates a randomly initialized network with the configured topology.
func (p *Population) newNetwork() (*nn.Network, error) {
	return nn.New(p.rng, p.Config.LayerSizes(),
		nn.WithActivation(p.Config.Network.Activation),
		nn.WithInitRange(p.Config.Network.InitRange))
}
