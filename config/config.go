// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/evolve/habitat"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Run        RunConfig        `yaml:"run"`
	Habitat    HabitatConfig    `yaml:"habitat"`
	Population PopulationConfig `yaml:"population"`
	Genome     GenomeConfig     `yaml:"genome"`
	Epoch      EpochConfig      `yaml:"epoch"`
	Selection  SelectionConfig  `yaml:"selection"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Archive    ArchiveConfig    `yaml:"archive"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// RunConfig holds run identity and seeding.
type RunConfig struct {
	Seed        int64 `yaml:"seed"`         // simulation generator seed
	PaletteSeed int64 `yaml:"palette_seed"` // display colour generator seed, 0 = derive from seed
	Epochs      int   `yaml:"epochs"`       // epochs to run, 0 = until cancelled
}

// HabitatConfig holds grid dimensions.
type HabitatConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PopulationConfig holds population sizing.
type PopulationConfig struct {
	Initial int `yaml:"initial"` // agents seeded at start and reseeded on extinction
	Max     int `yaml:"max"`     // hard cap on reproduction, 0 = habitat capacity
}

// GenomeConfig holds genome construction parameters.
type GenomeConfig struct {
	Connections int `yaml:"connections"`
	Hidden      int `yaml:"hidden"` // hidden units in the catalog
}

// EpochConfig holds epoch length and between-epoch policy.
type EpochConfig struct {
	Steps   int  `yaml:"steps"`
	Scatter bool `yaml:"scatter"` // relocate survivors randomly after reproduction
}

// SelectionConfig holds culling and reproduction policy.
type SelectionConfig struct {
	Zone    string  `yaml:"zone"`    // survival zone, see habitat.ZoneNames
	Portion float64 `yaml:"portion"` // reproduction target as a fraction of population.initial
}

// TelemetryConfig holds output settings.
type TelemetryConfig struct {
	OutputDir     string `yaml:"output_dir"`     // empty disables file output
	SnapshotEvery int    `yaml:"snapshot_every"` // epochs between JSON snapshots, 0 = never
	LogEvery      int    `yaml:"log_every"`      // epochs between stats log lines
}

// ArchiveConfig holds the SQLite run archive settings.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Capacity      int   // Habitat.Width * Habitat.Height
	MaxPopulation int   // Population.Max, or Capacity when unset
	Target        int   // reproduction target after clamping
	PaletteSeed   int64 // effective palette seed
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

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
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
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()
	return cfg, nil
}

// ComputeDerived recalculates Derived after fields were changed in code.
func (c *Config) ComputeDerived() {
	c.Derived.Capacity = c.Habitat.Width * c.Habitat.Height

	c.Derived.MaxPopulation = c.Population.Max
	if c.Derived.MaxPopulation <= 0 || c.Derived.MaxPopulation > c.Derived.Capacity {
		c.Derived.MaxPopulation = c.Derived.Capacity
	}

	c.Derived.Target = min(int(float64(c.Population.Initial)*c.Selection.Portion), c.Derived.MaxPopulation)

	c.Derived.PaletteSeed = c.Run.PaletteSeed
	if c.Derived.PaletteSeed == 0 {
		c.Derived.PaletteSeed = c.Run.Seed ^ 0x5eed
	}
}

// Validate checks that the configuration describes a runnable simulation.
func (c *Config) Validate() error {
	var errs []error
	if c.Habitat.Width <= 0 || c.Habitat.Height <= 0 {
		errs = append(errs, fmt.Errorf("habitat: size %dx%d must be positive", c.Habitat.Width, c.Habitat.Height))
	}
	if c.Population.Initial <= 0 {
		errs = append(errs, fmt.Errorf("population.initial %d must be positive", c.Population.Initial))
	}
	if capacity := c.Habitat.Width * c.Habitat.Height; c.Population.Initial > capacity {
		errs = append(errs, fmt.Errorf("population.initial %d exceeds habitat capacity %d", c.Population.Initial, capacity))
	}
	if c.Population.Max < 0 {
		errs = append(errs, fmt.Errorf("population.max %d must not be negative", c.Population.Max))
	}
	if c.Genome.Connections < 0 || c.Genome.Hidden < 0 {
		errs = append(errs, fmt.Errorf("genome: connections %d and hidden %d must not be negative", c.Genome.Connections, c.Genome.Hidden))
	}
	if c.Epoch.Steps <= 0 {
		errs = append(errs, fmt.Errorf("epoch.steps %d must be positive", c.Epoch.Steps))
	}
	if c.Run.Epochs < 0 {
		errs = append(errs, fmt.Errorf("run.epochs %d must not be negative", c.Run.Epochs))
	}
	if c.Selection.Portion <= 0 {
		errs = append(errs, fmt.Errorf("selection.portion %v must be positive", c.Selection.Portion))
	}
	if _, err := habitat.ParseZone(c.Selection.Zone); err != nil {
		errs = append(errs, fmt.Errorf("selection.zone: %w (known: %v)", err, habitat.ZoneNames()))
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		errs = append(errs, errors.New("archive.path is required when the archive is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
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
