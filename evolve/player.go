package evolve

import (
	"fmt"

	"github.com/baldhumanity/blockevo/evolve/nn"
	"github.com/baldhumanity/blockevo/puzzle"
)

const boardCells = puzzle.Size * puzzle.Size

// Player is one individual of the population: a network used as a placement
// policy, and the fitness earned by its most recent rollout.
type Player struct {
	Key      int
	Network  *nn.Network
	Fitness  float64
	Terminal bool
}

// NewPlayer wraps a network. The player takes ownership of net.
func NewPlayer(key int, net *nn.Network) *Player {
	return &Player{Key: key, Network: net}
}

// String returns a short description of the player.
func (p *Player) String() string {
	return fmt.Sprintf("Player(Key: %d, Fitness: %.1f, Terminal: %t)", p.Key, p.Fitness, p.Terminal)
}

// AddScore accumulates the reward of one placement.
func (p *Player) AddScore(score float64) { p.Fitness += score }

// SetFitness records the final score of a finished rollout.
func (p *Player) SetFitness(score float64) { p.Fitness = score }

// Reset prepares the player for a new rollout.
func (p *Player) Reset() {
	p.Fitness = 0
	p.Terminal = false
}

// Encode builds the network input: the 64 board cells (1 if filled) followed
// by one 64-cell feasibility map per hand slot. Missing slots are all zeros.
func Encode(b *puzzle.Board, h puzzle.Hand) []float64 {
	in := make([]float64, NumInputs)
	for r := 0; r < puzzle.Size; r++ {
		for c := 0; c < puzzle.Size; c++ {
			if b[r][c].Filled() {
				in[r*puzzle.Size+c] = 1
			}
		}
	}
	for slot := 0; slot < puzzle.HandSize && slot < len(h); slot++ {
		feasible := b.Feasibility(h[slot])
		base := boardCells + slot*boardCells
		for i, ok := range feasible {
			if ok {
				in[base+i] = 1
			}
		}
	}
	return in
}

// Decide implements puzzle.Decider. It scores every (slot, row, col) with the
// network and returns the legal placement with the highest score; ties go to
// the earliest in slot, row, col order. ok is false when nothing is legal.
func (p *Player) Decide(b *puzzle.Board, h puzzle.Hand) (puzzle.Action, bool) {
	out, err := p.Network.Predict(Encode(b, h))
	if err != nil {
		// Topology is fixed by NewPopulation, so this is a programming error.
		panic(fmt.Sprintf("player %d: %v", p.Key, err))
	}
	return pickAction(b, h, out)
}

// pickAction decodes network output into the best legal action.
func pickAction(b *puzzle.Board, h puzzle.Hand, out []float64) (puzzle.Action, bool) {
	var best puzzle.Action
	bestVal, found := 0.0, false
	for slot := 0; slot < puzzle.HandSize && slot < len(h); slot++ {
		for r := 0; r < puzzle.Size; r++ {
			for c := 0; c < puzzle.Size; c++ {
				v := out[slot*boardCells+r*puzzle.Size+c]
				if found && v <= bestVal {
					continue
				}
				if !b.CanPlace(h[slot], r, c) {
					continue
				}
				best = puzzle.Action{Block: slot, Row: r, Col: c}
				bestVal, found = v, true
			}
		}
	}
	return best, found
}
