package puzzle

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	// ErrHandIndex is returned when a placement names a hand slot that does not exist.
	ErrHandIndex = errors.New("hand index out of range")
	// ErrGameOver is returned when a placement is attempted after the game ended.
	ErrGameOver = errors.New("game is over")
)

// Action selects a hand slot and the board anchor for its top-left corner.
type Action struct {
	Block int
	Row   int
	Col   int
}

// Decider chooses the next placement. ok is false when no legal placement
// exists, which ends the game.
type Decider interface {
	Decide(b *Board, h Hand) (a Action, ok bool)
}

// Result describes the effect of one placement.
type Result struct {
	Placed   []Pos
	Lines    int
	Blocks   int
	Gained   int
	Refilled bool
	Over     bool
}

// Stats are running counters for one game.
type Stats struct {
	Placements   int
	LinesCleared int
}

// Game is a single play session: one board, one hand and a score. A Game is
// not safe for concurrent use; callers that share it must serialize access.
type Game struct {
	board         Board
	hand          Hand
	score         int
	over          bool
	stats         Stats
	rng           *rand.Rand
	maxPlacements int
}

// GameOption configures a Game.
type GameOption func(*Game)

// WithMaxPlacements ends the game after n placements. Zero means unlimited.
func WithMaxPlacements(n int) GameOption {
	return func(g *Game) { g.maxPlacements = n }
}

// NewGame starts a game on an empty board with a fresh hand drawn from rng.
func NewGame(rng *rand.Rand, opts ...GameOption) *Game {
	g := &Game{rng: rng}
	for _, opt := range opts {
		opt(g)
	}
	g.Reset()
	return g
}

// Reset clears the board, score and counters and deals a new hand.
func (g *Game) Reset() {
	g.board = Board{}
	g.hand = Deal(g.rng)
	g.score = 0
	g.over = false
	g.stats = Stats{}
}

// Board returns a snapshot of the board.
func (g *Game) Board() Board { return g.board }

// Hand returns a snapshot of the current hand.
func (g *Game) Hand() Hand { return g.hand.Clone() }

// Score returns the accumulated score.
func (g *Game) Score() int { return g.score }

// Over reports whether the game has ended.
func (g *Game) Over() bool { return g.over }

// Stats returns the running counters.
func (g *Game) Stats() Stats { return g.stats }

// Place applies the full turn pipeline for the shape in hand slot handIndex:
// place, detect and sweep full lines, score, consume the shape, refill an
// empty hand and test for game over. On error the game is unchanged.
func (g *Game) Place(handIndex, row, col int) (Result, error) {
	if g.over {
		return Result{}, ErrGameOver
	}
	if handIndex < 0 || handIndex >= len(g.hand) {
		return Result{}, fmt.Errorf("%w: %d (hand has %d)", ErrHandIndex, handIndex, len(g.hand))
	}
	placedBoard, placed, err := g.board.Place(g.hand[handIndex], row, col)
	if err != nil {
		return Result{}, fmt.Errorf("%s at (%d,%d): %w", g.hand[handIndex].Name(), row, col, err)
	}

	res := Result{Placed: placed}
	marked, lines, blocks := placedBoard.DetectAndMark()
	if lines > 0 {
		placedBoard = marked.Sweep()
		res.Lines, res.Blocks = lines, blocks
		res.Gained = Score(lines, blocks)
	}
	g.board = placedBoard
	g.score += res.Gained
	g.stats.Placements++
	g.stats.LinesCleared += lines

	g.hand = g.hand.Without(handIndex)
	if len(g.hand) == 0 {
		g.hand = Deal(g.rng)
		res.Refilled = true
	}
	if g.board.IsTerminal(g.hand) || (g.maxPlacements > 0 && g.stats.Placements >= g.maxPlacements) {
		g.over = true
	}
	res.Over = g.over
	return res, nil
}

// Step asks d for an action and applies it. A decider with no legal action
// ends the game; that is reported through Result.Over, not as an error.
func (g *Game) Step(d Decider) (Result, error) {
	if g.over {
		return Result{}, ErrGameOver
	}
	board := g.board
	a, ok := d.Decide(&board, g.hand.Clone())
	if !ok {
		g.over = true
		return Result{Over: true}, nil
	}
	return g.Place(a.Block, a.Row, a.Col)
}
