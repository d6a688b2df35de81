package evolve

import (
	"fmt"
	"math/rand"
)

// Population holds the state of the genetic algorithm: a fixed-size, ordered
// set of players and the generation counter. It is not safe for concurrent
// use; the Scheduler only touches it once every rollout has finished.
type Population struct {
	Config     *Config
	Players    []*Player
	Generation int           // starts at 1
	Ancestors  map[int][]int // player key -> parent keys; survivors map to themselves
	rng        *rand.Rand
	nextKey    int
}

// NewPopulation creates the first generation of randomly initialized players.
func NewPopulation(config *Config, rng *rand.Rand) (*Population, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := &Population{
		Config:     config,
		Players:    make([]*Player, 0, config.Evolution.PopSize),
		Generation: 1,
		Ancestors:  make(map[int][]int),
		rng:        rng,
		nextKey:    1,
	}
	for i := 0; i < config.Evolution.PopSize; i++ {
		net, err := p.newNetwork()
		if err != nil {
			return nil, fmt.Errorf("failed to create network %d: %w", i, err)
		}
		key := p.getNextKey()
		p.Players = append(p.Players, NewPlayer(key, net))
		p.Ancestors[key] = []int{}
	}
	return p, nil
}

func (p *Population) getNextKey() int {
	key := p.nextKey
	p.nextKey++
	return key
}

// NextGeneration replaces the population using the fitness already recorded
// on every player: the top ranked players survive unchanged, the rest of the
// slots are filled with mutated crossover offspring of the survivors. Every
// player then starts the new generation with zero fitness.
func (p *Population) NextGeneration() error {
	ranked := rankPlayers(p.Players)
	survivors := ranked[:p.Config.survivorCount()]

	next := make([]*Player, 0, len(p.Players))
	ancestors := make(map[int][]int, len(p.Players))
	for _, s := range survivors {
		next = append(next, s)
		ancestors[s.Key] = []int{s.Key}
	}
	for len(next) < len(p.Players) {
		net, parents, err := p.breed(survivors)
		if err != nil {
			return fmt.Errorf("reproduction failed in generation %d: %w", p.Generation, err)
		}
		key := p.getNextKey()
		next = append(next, NewPlayer(key, net))
		ancestors[key] = parents[:]
	}

	for _, pl := range next {
		pl.Reset()
	}
	p.Players = next
	p.Ancestors = ancestors
	p.Generation++
	return nil
}

// Fitnesses returns the fitness of every player in population order.
func (p *Population) Fitnesses() []float64 {
	out := make([]float64, len(p.Players))
	for i, pl := range p.Players {
		out[i] = pl.Fitness
	}
	return out
}

// Best returns the fittest player of the current generation.
func (p *Population) Best() *Player {
	var best *Player
	for _, pl := range p.Players {
		if best == nil || pl.Fitness > best.Fitness {
			best = pl
		}
	}
	return best
}
