package evolve

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/baldhumanity/blockevo/evolve/nn"
	"github.com/baldhumanity/blockevo/puzzle"
)

var (
	// ErrAlreadyRunning is returned when a second run is started while one is active.
	ErrAlreadyRunning = errors.New("scheduler is already running")
	// ErrIndex is returned by snapshot accessors for an unknown individual.
	ErrIndex = errors.New("individual index out of range")
)

// RolloutState is the per-individual state machine.
type RolloutState int

const (
	Running RolloutState = iota
	Terminal
)

func (s RolloutState) String() string {
	switch s {
	case Running:
		return "running"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("RolloutState(%d)", int(s))
	}
}

// rollout is one individual's game. Its mutex makes each tick atomic with
// respect to snapshot readers.
type rollout struct {
	mu     sync.Mutex
	player *Player
	game   *puzzle.Game
	state  RolloutState
}

// tick applies exactly one decide+place+score step.
func (r *rollout) tick() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Terminal {
		return nil
	}
	res, err := r.game.Step(r.player)
	if err != nil {
		return fmt.Errorf("player %d: %w", r.player.Key, err)
	}
	if res.Gained > 0 {
		r.player.AddScore(float64(res.Gained))
	}
	if res.Over {
		r.player.SetFitness(float64(r.game.Score()))
		r.player.Terminal = true
		r.state = Terminal
	}
	return nil
}

// RolloutSnapshot is a consistent copy of one rollout between ticks.
type RolloutSnapshot struct {
	Key        int
	Board      puzzle.Board
	Hand       puzzle.Hand
	Score      int
	Placements int
	State      RolloutState
}

// Scheduler owns a population and one rollout per individual. It advances
// all rollouts tick by tick and, once every rollout is terminal, breeds the
// next generation and restarts every game.
type Scheduler struct {
	config  *Config
	logger  *log.Logger
	runID   uuid.UUID
	seeds   *rand.Rand // seeds each rollout's game, only used at generation barriers
	running atomic.Bool
	ticks   atomic.Int64

	mu       sync.RWMutex // write-held only while the population is replaced
	pop      *Population
	tracker  *Tracker
	rollouts []*rollout
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the progress logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler creates the initial population and deals every rollout its
// first hand. All randomness derives from Evolution.Seed, so a fixed seed
// reproduces a run regardless of how ticks interleave.
func NewScheduler(config *Config, opts ...Option) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	seed := config.Evolution.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	master := rand.New(rand.NewSource(seed))

	pop, err := NewPopulation(config, rand.New(rand.NewSource(master.Int63())))
	if err != nil {
		return nil, fmt.Errorf("failed to create population: %w", err)
	}
	s := &Scheduler{
		config:  config,
		logger:  log.Default(),
		runID:   uuid.New(),
		seeds:   rand.New(rand.NewSource(master.Int63())),
		pop:     pop,
		tracker: NewTracker(pop.Generation),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetRollouts()
	return s, nil
}

// resetRollouts gives every player an empty board and a fresh hand.
// Callers hold s.mu for writing, or own s exclusively.
func (s *Scheduler) resetRollouts() {
	rollouts := make([]*rollout, len(s.pop.Players))
	for i, p := range s.pop.Players {
		p.Reset()
		rng := rand.New(rand.NewSource(s.seeds.Int63()))
		rollouts[i] = &rollout{
			player: p,
			game:   puzzle.NewGame(rng, puzzle.WithMaxPlacements(s.config.Scheduler.MaxPlacements)),
		}
	}
	s.rollouts = rollouts
}

func (s *Scheduler) acquire() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return nil
}

func (s *Scheduler) release() { s.running.Store(false) }

// Tick advances every running rollout by one step and reports whether all
// rollouts are terminal. It does not advance the generation.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	if err := s.acquire(); err != nil {
		return false, err
	}
	defer s.release()
	return s.tick(ctx)
}

// tick runs one step of each rollout on a bounded worker pool. Cancellation
// is checked before a step starts; a started step always completes.
func (s *Scheduler) tick(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := s.config.Scheduler.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, r := range s.rollouts {
		r := r
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.tick()
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.ticks.Add(1)
	return s.allTerminal(), nil
}

func (s *Scheduler) allTerminal() bool {
	for _, r := range s.rollouts {
		r.mu.Lock()
		state := r.state
		r.mu.Unlock()
		if state != Terminal {
			return false
		}
	}
	return true
}

// RunGeneration ticks until every rollout is terminal, then advances to the
// next generation. If ctx is canceled first, every board is left between
// ticks and a later call resumes where this one stopped.
func (s *Scheduler) RunGeneration(ctx context.Context) (GenerationStats, error) {
	if err := s.acquire(); err != nil {
		return GenerationStats{}, err
	}
	defer s.release()
	return s.runGeneration(ctx)
}

// Run executes generations one after another until n have completed, or
// until ctx is canceled when n <= 0. onGeneration, if not nil, receives the
// statistics of each completed generation.
func (s *Scheduler) Run(ctx context.Context, n int, onGeneration func(GenerationStats)) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	for i := 0; n <= 0 || i < n; i++ {
		stats, err := s.runGeneration(ctx)
		if err != nil {
			return err
		}
		if onGeneration != nil {
			onGeneration(stats)
		}
	}
	return nil
}

func (s *Scheduler) runGeneration(ctx context.Context) (GenerationStats, error) {
	start := time.Now()
	s.logger.Printf("****** Generation %d (run %s) ******", s.pop.Generation, s.runID)
	for {
		done, err := s.tick(ctx)
		if err != nil {
			return s.GenerationStats(), fmt.Errorf("generation %d: %w", s.pop.Generation, err)
		}
		if done {
			break
		}
	}
	stats, err := s.advance()
	if err != nil {
		return stats, err
	}
	s.logger.Printf(" Fitness min %.0f, avg %.1f, max %.0f, best ever %.0f (improved in generation %d)",
		stats.LastGenMin, stats.LastGenAvg, stats.LastGenMax, stats.BestFitnessEver, stats.LastImproved)
	s.logger.Printf("Generation %d finished in %s", stats.Generation-1, time.Since(start).Round(time.Millisecond))
	return stats, nil
}

// advance is the generation barrier: every rollout is terminal, so nothing
// else reads or writes the population while it is replaced.
func (s *Scheduler) advance() (GenerationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.pop.Generation
	if best := s.pop.Best(); best != nil {
		s.logger.Printf(" Best of generation %d: Key: %d, Fitness: %.0f", gen, best.Key, best.Fitness)
	}
	stats := s.tracker.Record(gen, s.pop.Fitnesses())
	if err := s.pop.NextGeneration(); err != nil {
		return stats, err
	}
	s.resetRollouts()
	return stats, nil
}

// RunID identifies this scheduler in logs.
func (s *Scheduler) RunID() uuid.UUID { return s.runID }

// Ticks returns the number of completed ticks across all generations.
func (s *Scheduler) Ticks() int64 { return s.ticks.Load() }

// Len returns the population size.
func (s *Scheduler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rollouts)
}

// Generation returns the generation currently being played.
func (s *Scheduler) Generation() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pop.Generation
}

// GenerationStats returns the current run statistics.
func (s *Scheduler) GenerationStats() GenerationStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Stats()
}

// Snapshot returns a consistent copy of individual i's rollout.
func (s *Scheduler) Snapshot(i int) (RolloutSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.rollouts) {
		return RolloutSnapshot{}, fmt.Errorf("%w: %d", ErrIndex, i)
	}
	r := s.rollouts[i]
	r.mu.Lock()
	defer r.mu.Unlock()
	return RolloutSnapshot{
		Key:        r.player.Key,
		Board:      r.game.Board(),
		Hand:       r.game.Hand(),
		Score:      r.game.Score(),
		Placements: r.game.Stats().Placements,
		State:      r.state,
	}, nil
}

// BoardSnapshot returns individual i's board.
func (s *Scheduler) BoardSnapshot(i int) (puzzle.Board, error) {
	snap, err := s.Snapshot(i)
	return snap.Board, err
}

// HandSnapshot returns individual i's hand.
func (s *Scheduler) HandSnapshot(i int) (puzzle.Hand, error) {
	snap, err := s.Snapshot(i)
	return snap.Hand, err
}

// NetworkTopology exports individual i's network for visualization.
func (s *Scheduler) NetworkTopology(i int) ([]nn.LayerTopology, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.rollouts) {
		return nil, fmt.Errorf("%w: %d", ErrIndex, i)
	}
	return s.rollouts[i].player.Network.Topology(), nil
}
