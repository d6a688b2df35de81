package evolve

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/baldhumanity/blockevo/evolve/nn"
	"github.com/baldhumanity/blockevo/puzzle"
)

// Fixed network interface: the board plus one feasibility map per hand slot
// in, one score per (hand slot, anchor) out.
const (
	NumInputs  = puzzle.Size*puzzle.Size + puzzle.HandSize*puzzle.Size*puzzle.Size
	NumOutputs = puzzle.HandSize * puzzle.Size * puzzle.Size
)

// Config stores the configuration parameters for a training run.
type Config struct {
	Evolution EvolutionConfig
	Network   NetworkConfig
	Scheduler SchedulerConfig
}

// EvolutionConfig holds the genetic algorithm parameters.
type EvolutionConfig struct {
	PopSize       int     `ini:"pop_size"`
	SurvivalRate  float64 `ini:"survival_rate"` // fraction of the ranked population kept each generation
	MinSurvivors  int     `ini:"min_survivors"`
	MutationRate  float64 `ini:"mutation_rate"`
	MutationPower float64 `ini:"mutation_power"` // half-width of the uniform perturbation
	Seed          int64   `ini:"seed"`           // 0 picks a time-based seed
}

// NetworkConfig holds the hidden topology and initialization of every network.
type NetworkConfig struct {
	HiddenSizes []int   `ini:"hidden_sizes" delim:" "`
	Activation  string  `ini:"activation"`
	InitRange   float64 `ini:"init_range"`
}

// SchedulerConfig holds rollout scheduling parameters.
type SchedulerConfig struct {
	Workers       int `ini:"workers"`        // 0 uses runtime.NumCPU()
	MaxPlacements int `ini:"max_placements"` // 0 means unlimited
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{
		Evolution: EvolutionConfig{
			PopSize:       10,
			SurvivalRate:  0.2,
			MinSurvivors:  2,
			MutationRate:  0.1,
			MutationPower: 0.1,
		},
		Network: NetworkConfig{
			HiddenSizes: []int{128, 64},
			Activation:  nn.DefaultActivation,
			InitRange:   1.0,
		},
	}
	cfg.Scheduler.Workers = runtime.NumCPU()
	return cfg
}

// LoadConfig loads configuration parameters from an INI file.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := loadConfig(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	return cfg, nil
}

// loadConfig accepts any source ini.LoadSources does (path, []byte, io.Reader).
func loadConfig(source interface{}) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{}, source)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if err := file.Section("Evolution").MapTo(&config.Evolution); err != nil {
		return nil, fmt.Errorf("failed to map [Evolution] section: %w", err)
	}
	if err := file.Section("Network").MapTo(&config.Network); err != nil {
		return nil, fmt.Errorf("failed to map [Network] section: %w", err)
	}
	if err := file.Section("Scheduler").MapTo(&config.Scheduler); err != nil {
		return nil, fmt.Errorf("failed to map [Scheduler] section: %w", err)
	}

	config.Network.Activation = strings.ToLower(strings.TrimSpace(config.Network.Activation))

	config.applyDefaults(file)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyDefaults fills keys that are absent from the file.
func (c *Config) applyDefaults(file *ini.File) {
	def := DefaultConfig()
	evo := file.Section("Evolution")
	if !evo.HasKey("pop_size") {
		c.Evolution.PopSize = def.Evolution.PopSize
	}
	if !evo.HasKey("survival_rate") {
		c.Evolution.SurvivalRate = def.Evolution.SurvivalRate
	}
	if !evo.HasKey("min_survivors") {
		c.Evolution.MinSurvivors = def.Evolution.MinSurvivors
	}
	if !evo.HasKey("mutation_rate") {
		c.Evolution.MutationRate = def.Evolution.MutationRate
	}
	if !evo.HasKey("mutation_power") {
		c.Evolution.MutationPower = def.Evolution.MutationPower
	}
	network := file.Section("Network")
	if !network.HasKey("hidden_sizes") {
		c.Network.HiddenSizes = def.Network.HiddenSizes
	}
	if c.Network.Activation == "" {
		c.Network.Activation = def.Network.Activation
	}
	if !network.HasKey("init_range") {
		c.Network.InitRange = def.Network.InitRange
	}
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = def.Scheduler.Workers
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Evolution.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if c.Evolution.SurvivalRate <= 0 || c.Evolution.SurvivalRate > 1 {
		return fmt.Errorf("config error: survival_rate must be in (0, 1]")
	}
	if c.Evolution.MinSurvivors <= 0 {
		return fmt.Errorf("config error: min_survivors must be positive")
	}
	if c.Evolution.MutationRate < 0 || c.Evolution.MutationRate > 1 {
		return fmt.Errorf("config error: mutation_rate must be between 0 and 1")
	}
	if c.Evolution.MutationPower < 0 {
		return fmt.Errorf("config error: mutation_power cannot be negative")
	}
	if len(c.Network.HiddenSizes) == 0 {
		return fmt.Errorf("config error: hidden_sizes needs at least one layer")
	}
	for i, s := range c.Network.HiddenSizes {
		if s <= 0 {
			return fmt.Errorf("config error: hidden_sizes[%d] must be positive", i)
		}
	}
	if _, err := nn.GetActivation(c.Network.Activation); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.Network.InitRange <= 0 {
		return fmt.Errorf("config error: init_range must be positive")
	}
	if c.Scheduler.Workers < 0 {
		return fmt.Errorf("config error: workers cannot be negative")
	}
	if c.Scheduler.MaxPlacements < 0 {
		return fmt.Errorf("config error: max_placements cannot be negative")
	}
	return nil
}

// LayerSizes returns the full network topology, inputs first.
func (c *Config) LayerSizes() []int {
	sizes := make([]int, 0, len(c.Network.HiddenSizes)+2)
	sizes = append(sizes, NumInputs)
	sizes = append(sizes, c.Network.HiddenSizes...)
	return append(sizes, NumOutputs)
}

// survivorCount is how many ranked individuals survive selection.
func (c *Config) survivorCount() int {
	// The epsilon keeps 0.3*10 from rounding up to 4.
	n := int(math.Ceil(c.Evolution.SurvivalRate*float64(c.Evolution.PopSize) - 1e-9))
	if n < c.Evolution.MinSurvivors {
		n = c.Evolution.MinSurvivors
	}
	if n > c.Evolution.PopSize {
		n = c.Evolution.PopSize
	}
	return n
}
