package evolve

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarizes the most recently completed generation for
// dashboards. LastGen* describe the generation numbered Generation-1 once at
// least one generation has finished.
type GenerationStats struct {
	Generation      int     // generation currently running
	BestFitnessEver float64 // monotonic maximum across all generations
	LastGenMin      float64
	LastGenAvg      float64
	LastGenMax      float64
	LastImproved    int // generation in which BestFitnessEver last rose, 0 if never
}

// Tracker accumulates per-generation fitness summaries.
type Tracker struct {
	stats   GenerationStats
	History []GenerationStats
}

// NewTracker starts tracking at the given generation.
func NewTracker(generation int) *Tracker {
	return &Tracker{stats: GenerationStats{Generation: generation}}
}

// Record summarizes the fitnesses of a finished generation and returns the
// updated statistics.
func (t *Tracker) Record(generation int, fitnesses []float64) GenerationStats {
	s := t.stats
	if len(fitnesses) > 0 {
		s.LastGenMin = floats.Min(fitnesses)
		s.LastGenAvg = stat.Mean(fitnesses, nil)
		s.LastGenMax = floats.Max(fitnesses)
		if s.LastGenMax > s.BestFitnessEver {
			s.BestFitnessEver = s.LastGenMax
			s.LastImproved = generation
		}
	}
	s.Generation = generation + 1
	t.stats = s
	t.History = append(t.History, s)
	return s
}

// Stats returns the current statistics.
func (t *Tracker) Stats() GenerationStats { return t.stats }

// Stagnant reports how many generations have passed since the best fitness
// last improved.
func (t *Tracker) Stagnant() int {
	if len(t.History) == 0 {
		return 0
	}
	return t.stats.Generation - 1 - t.stats.LastImproved
}
