// Package blockevo trains neural-network players for an 8x8 block-packing
// puzzle with a genetic algorithm.
//
// Every individual of a fixed-size population plays its own game: each turn
// its network scores every (hand slot, anchor) pair and the best legal
// placement is applied. When all games are over the fittest players survive
// unchanged and the rest of the population is refilled with mutated
// crossover offspring.
//
// The module is split into:
//
//	puzzle      shapes, board rules, scoring and the single-game turn protocol
//	evolve/nn   fixed-topology feed-forward networks backed by gonum matrices
//	evolve      players, the genetic algorithm and the concurrent scheduler
//
// Basic usage:
//
//	// Load configuration
//	config, err := evolve.LoadConfig("path/to/config")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	// Create the scheduler and its first generation
//	sched, err := evolve.NewScheduler(config)
//	if err != nil {
//		log.Fatalf("Error creating scheduler: %v", err)
//	}
//
//	// Run 100 generations
//	err = sched.Run(ctx, 100, func(stats evolve.GenerationStats) {
//		fmt.Printf("best so far: %.0f\n", stats.BestFitnessEver)
//	})
package blockevo
