// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
// Any key absent from a user file falls back to the embedded default;
// out-of-range values are clamped at load time, never rejected.
type Config struct {
	Grid        GridConfig        `yaml:"grid"`
	Development DevelopmentConfig `yaml:"development"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Fitness     FitnessConfig     `yaml:"fitness"`
	Evolution   EvolutionConfig   `yaml:"evolution"`
	RedQueen    RedQueenConfig    `yaml:"red_queen"`
	Cataclysm   CataclysmConfig   `yaml:"cataclysm"`
	Group       GroupConfig       `yaml:"group"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// GridConfig holds resource grid parameters.
type GridConfig struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	Seed         int64   `yaml:"seed"`
	Octaves      int     `yaml:"octaves"`      // noise octaves for field initialization
	Scale        float64 `yaml:"scale"`        // base noise frequency
	Lacunarity   float64 `yaml:"lacunarity"`   // frequency multiplier per octave
	Gain         float64 `yaml:"gain"`         // amplitude multiplier per octave
	Diffusion    float64 `yaml:"diffusion"`    // fraction moved toward neighborhood mean per step
	Decay        float64 `yaml:"decay"`        // fraction subtracted per step
	Regen        float64 `yaml:"regen"`        // fraction regrown toward initial capacity per step
	Neighborhood int     `yaml:"neighborhood"` // 4 or 8
	Persist      bool    `yaml:"persist"`      // shared-occupancy mode: keep grid and cells across organisms
}

// DevelopmentConfig holds developmental engine parameters.
type DevelopmentConfig struct {
	Steps        int     `yaml:"steps"`         // developmental step budget
	ZygoteEnergy float64 `yaml:"zygote_energy"` // starting energy of the single zygote cell
}

// PhysicsConfig holds the mutable physical constants of the universe.
// Meta-innovation may drift these per run ("physics drift").
type PhysicsConfig struct {
	PhotosynthesisScale float64 `yaml:"photosynthesis_scale"`
	ChemosynthesisScale float64 `yaml:"chemosynthesis_scale"`
	MetabolicScale      float64 `yaml:"metabolic_scale"`
	BlastScale          float64 `yaml:"blast_scale"`
	CarcassFraction     float64 `yaml:"carcass_fraction"` // energy deposited as detritus on death
}

// FitnessConfig holds fitness evaluation parameters.
// The four weights are global unless autotelic evolution is enabled,
// in which case each genome carries its own evolvable copy.
type FitnessConfig struct {
	LifetimeTicks    int     `yaml:"lifetime_ticks"`
	Floor            float64 `yaml:"floor"`
	ReproThreshold   float64 `yaml:"repro_threshold"`
	WeightLifespan   float64 `yaml:"weight_lifespan"`
	WeightEfficiency float64 `yaml:"weight_efficiency"`
	WeightRepro      float64 `yaml:"weight_repro"`
	WeightComplexity float64 `yaml:"weight_complexity"`
}

// EvolutionConfig holds evolutionary loop parameters.
type EvolutionConfig struct {
	Population     int     `yaml:"population"`
	Generations    int     `yaml:"generations"`
	Pressure       float64 `yaml:"pressure"`        // tournament pressure, 0-1
	MutationRate   float64 `yaml:"mutation_rate"`   // parametric mutation probability per gene
	InnovationRate float64 `yaml:"innovation_rate"` // structural mutation probability per offspring
	MetaRate       float64 `yaml:"meta_rate"`       // meta-innovation probability per offspring
	CrossoverRate  float64 `yaml:"crossover_rate"`  // two-parent crossover probability per offspring
	Autotelic      bool    `yaml:"autotelic"`       // per-genome evolvable fitness weights
	Workers        int     `yaml:"workers"`         // 0 = GOMAXPROCS; forced serial when grid.persist
}

// RedQueenConfig holds host-parasite co-evolution parameters.
type RedQueenConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Virulence float64 `yaml:"virulence"` // 0-1 penalty strength against the dominant kingdom
}

// CataclysmConfig holds mass extinction parameters.
type CataclysmConfig struct {
	Enabled          bool    `yaml:"enabled"`
	Period           int     `yaml:"period"`            // every N generations; 0 = probabilistic only
	Probability      float64 `yaml:"probability"`       // per-generation trigger chance
	KillFraction     float64 `yaml:"kill_fraction"`     // fraction of the population removed
	Hypermutation    float64 `yaml:"hypermutation"`     // mutation rate multiplier after a cataclysm
	HyperGenerations int     `yaml:"hyper_generations"` // how long hypermutation lasts
}

// GroupConfig holds multi-level selection parameters.
type GroupConfig struct {
	Enabled    bool    `yaml:"enabled"`
	ColonySize int     `yaml:"colony_size"`
	Weight     float64 `yaml:"weight"` // blend of colony mean into member fitness, 0-1
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	Buffer int `yaml:"buffer"` // record channel depth; a full channel drops records
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.Clamp()
	return cfg, nil
}

// Clamp forces every parameter into its valid domain. Out-of-range values
// are corrected silently: the loop must always be able to run with whatever
// the caller supplied.
func (c *Config) Clamp() {
	c.Grid.Width = clampInt(c.Grid.Width, 4, 4096)
	c.Grid.Height = clampInt(c.Grid.Height, 4, 4096)
	c.Grid.Octaves = clampInt(c.Grid.Octaves, 1, 8)
	c.Grid.Scale = clamp(c.Grid.Scale, 0.25, 64)
	c.Grid.Lacunarity = clamp(c.Grid.Lacunarity, 1, 4)
	c.Grid.Gain = clamp(c.Grid.Gain, 0.1, 1)
	c.Grid.Diffusion = clamp(c.Grid.Diffusion, 0, 1)
	c.Grid.Decay = clamp(c.Grid.Decay, 0, 1)
	c.Grid.Regen = clamp(c.Grid.Regen, 0, 1)
	if c.Grid.Neighborhood != 4 {
		c.Grid.Neighborhood = 8
	}

	c.Development.Steps = clampInt(c.Development.Steps, 10, 200)
	c.Development.ZygoteEnergy = clamp(c.Development.ZygoteEnergy, 0.1, 100)

	c.Physics.PhotosynthesisScale = clamp(c.Physics.PhotosynthesisScale, 0, 10)
	c.Physics.ChemosynthesisScale = clamp(c.Physics.ChemosynthesisScale, 0, 10)
	c.Physics.MetabolicScale = clamp(c.Physics.MetabolicScale, 0, 10)
	c.Physics.BlastScale = clamp(c.Physics.BlastScale, 0, 10)
	c.Physics.CarcassFraction = clamp(c.Physics.CarcassFraction, 0, 1)

	c.Fitness.LifetimeTicks = clampInt(c.Fitness.LifetimeTicks, 1, 10000)
	c.Fitness.Floor = clamp(c.Fitness.Floor, 1e-12, 1)
	c.Fitness.ReproThreshold = clamp(c.Fitness.ReproThreshold, 0.1, 1e6)
	c.Fitness.WeightLifespan = clamp(c.Fitness.WeightLifespan, 0, 10)
	c.Fitness.WeightEfficiency = clamp(c.Fitness.WeightEfficiency, 0, 10)
	c.Fitness.WeightRepro = clamp(c.Fitness.WeightRepro, 0, 10)
	c.Fitness.WeightComplexity = clamp(c.Fitness.WeightComplexity, 0, 10)

	c.Evolution.Population = clampInt(c.Evolution.Population, 2, 10000)
	c.Evolution.Generations = clampInt(c.Evolution.Generations, 1, 1000000)
	c.Evolution.Pressure = clamp(c.Evolution.Pressure, 0, 1)
	c.Evolution.MutationRate = clamp(c.Evolution.MutationRate, 0, 1)
	c.Evolution.InnovationRate = clamp(c.Evolution.InnovationRate, 0, 1)
	c.Evolution.MetaRate = clamp(c.Evolution.MetaRate, 0, 1)
	c.Evolution.CrossoverRate = clamp(c.Evolution.CrossoverRate, 0, 1)
	if c.Evolution.Workers < 0 {
		c.Evolution.Workers = 0
	}

	c.RedQueen.Virulence = clamp(c.RedQueen.Virulence, 0, 1)

	if c.Cataclysm.Period < 0 {
		c.Cataclysm.Period = 0
	}
	c.Cataclysm.Probability = clamp(c.Cataclysm.Probability, 0, 1)
	c.Cataclysm.KillFraction = clamp(c.Cataclysm.KillFraction, 0, 0.95)
	c.Cataclysm.Hypermutation = clamp(c.Cataclysm.Hypermutation, 1, 20)
	c.Cataclysm.HyperGenerations = clampInt(c.Cataclysm.HyperGenerations, 0, 1000)

	c.Group.ColonySize = clampInt(c.Group.ColonySize, 2, 1000)
	c.Group.Weight = clamp(c.Group.Weight, 0, 1)

	c.Telemetry.Buffer = clampInt(c.Telemetry.Buffer, 1, 100000)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
