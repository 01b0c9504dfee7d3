package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/boxclim/internal/dynamo"
)

const (
	DefaultStartDate = 1745.0
	DefaultEndDate   = 2300.0
	DefaultMaxSpinup = 2000
	DefaultLogLevel  = "info"
)

// Component kinds understood by the experiment registry.
const (
	KindCarbonCycle = "carbon-cycle"
	KindPrescribed  = "prescribed"
)

type Config struct {
	Run        RunConfig         `yaml:"run"`
	Components []ComponentConfig `yaml:"components"`
	Settings   []Setting         `yaml:"settings"`
}

type RunConfig struct {
	Name      string  `yaml:"name"`
	StartDate float64 `yaml:"start_date"`
	EndDate   float64 `yaml:"end_date"`
	DoSpinup  bool    `yaml:"do_spinup"`
	MaxSpinup int     `yaml:"max_spinup"`
	LogDir    string  `yaml:"log_dir,omitempty"`
	LogLevel  string  `yaml:"log_level,omitempty"`
}

type ComponentConfig struct {
	Name     string             `yaml:"name"`
	Kind     string             `yaml:"kind"`
	Provides []string           `yaml:"provides,omitempty"`
	Units    map[string]string  `yaml:"units,omitempty"`
	Defaults map[string]float64 `yaml:"defaults,omitempty"`
}

// Setting is one (component, variable, date, value, unit) tuple applied
// before the run is prepared. A nil Date means an undated value.
type Setting struct {
	Component string   `yaml:"component"`
	Variable  string   `yaml:"variable"`
	Date      *float64 `yaml:"date,omitempty"`
	Value     float64  `yaml:"value"`
	Unit      string   `yaml:"unit,omitempty"`
}

// Dated builds a Setting for date.
func Dated(component, variable string, date, value float64, unit string) Setting {
	return Setting{Component: component, Variable: variable, Date: &date, Value: value, Unit: unit}
}

func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Name:      "default",
			StartDate: DefaultStartDate,
			EndDate:   DefaultEndDate,
			DoSpinup:  true,
			MaxSpinup: DefaultMaxSpinup,
			LogLevel:  DefaultLogLevel,
		},
		Components: []ComponentConfig{
			{Name: "carbon-cycle", Kind: KindCarbonCycle},
			{
				Name:     "forcing",
				Kind:     KindPrescribed,
				Provides: []string{"ffi_emissions", "sst"},
				Units:    map[string]string{"ffi_emissions": "Pg C/yr", "sst": "degC"},
				Defaults: map[string]float64{"ffi_emissions": 0, "sst": 0},
			},
		},
	}
}

func (c *Config) Validate() error {
	r := c.Run
	if r.EndDate <= r.StartDate {
		return fmt.Errorf("%w: end date %g not after start date %g", dynamo.ErrParameterBounds, r.EndDate, r.StartDate)
	}
	if r.MaxSpinup < 0 {
		return fmt.Errorf("%w: max_spinup %d", dynamo.ErrParameterBounds, r.MaxSpinup)
	}
	if len(c.Components) == 0 {
		return fmt.Errorf("%w: no components configured", dynamo.ErrUnknownComponent)
	}
	seen := make(map[string]bool, len(c.Components))
	for _, comp := range c.Components {
		if comp.Name == "" {
			return fmt.Errorf("%w: component of kind %q has no name", dynamo.ErrUnknownComponent, comp.Kind)
		}
		if seen[comp.Name] {
			return fmt.Errorf("%w: %s", dynamo.ErrDuplicateName, comp.Name)
		}
		seen[comp.Name] = true
	}
	for _, s := range c.Settings {
		if !seen[s.Component] {
			return fmt.Errorf("%w: setting %s.%s", dynamo.ErrUnknownComponent, s.Component, s.Variable)
		}
	}
	return nil
}

// Component returns the named component entry.
func (c *Config) Component(name string) (*ComponentConfig, bool) {
	for i := range c.Components {
		if c.Components[i].Name == name {
			return &c.Components[i], true
		}
	}
	return nil, false
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Components = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrMalformedValue, err)
	}
	if len(cfg.Components) == 0 {
		cfg.Components = DefaultConfig().Components
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Env holds process defaults read from the environment.
type Env struct {
	DataDir  string `env:"BOXCLIM_DATA" envDefault:"./data"`
	LogLevel string `env:"BOXCLIM_LOG_LEVEL" envDefault:"info"`
	LogDir   string `env:"BOXCLIM_LOG_DIR"`
}

// LoadEnv reads the given dotenv files, then the environment. Missing files
// are skipped; variables already set in the environment win.
func LoadEnv(files ...string) (Env, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return e, nil
}

// ApplyEnv fills logging fields the run file left empty.
func (c *Config) ApplyEnv(e Env) {
	if c.Run.LogDir == "" {
		c.Run.LogDir = e.LogDir
	}
	if c.Run.LogLevel == "" || c.Run.LogLevel == DefaultLogLevel {
		if e.LogLevel != "" {
			c.Run.LogLevel = e.LogLevel
		}
	}
}
