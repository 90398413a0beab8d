// Package config loads the optional ycomp configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultDB              = "ycomp.db"
	DefaultSNPPageSize     = 250
	DefaultSTRPageSize     = 500
	DefaultTimeout         = Duration(15 * time.Second)
	DefaultMaxAge          = 3500
	DefaultConfidenceLevel = 0.95
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(v)
	return nil
}

// Config is the top-level configuration. Fields map 1:1 to the YAML file.
type Config struct {
	// DB is the path of the SQLite database file.
	DB string `yaml:"db"`

	FTDNA    FTDNAConfig    `yaml:"ftdna"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// FTDNAConfig holds settings for fetching FTDNA group project pages.
type FTDNAConfig struct {
	// Group is the default group project for fetch-ftdna commands.
	Group string `yaml:"group"`

	// PageSize is the number of kits requested per result page. When zero,
	// fetches use a per-kind default: SNP pages carry wider rows than STR
	// pages and default to half the size (250 against 500).
	PageSize int `yaml:"page_size"`

	// Timeout is the base HTTP timeout for a fetch. Commands extend it in
	// proportion to the number of kits being fetched.
	Timeout Duration `yaml:"timeout"`

	// CookieFile is a default path for `ycomp ftdna signin`.
	CookieFile string `yaml:"cookie_file"`
}

// AnalysisConfig holds comparison defaults.
type AnalysisConfig struct {
	// MaxAge is the TMRCA cutoff, in years before present, above which a
	// clade's SNPs are ignored by SNP comparison.
	MaxAge int `yaml:"max_age"`

	// ConfidenceLevel is the two-sided level for STR distance intervals.
	ConfidenceLevel float64 `yaml:"confidence_level"`
}

// DefaultPath is the conventional config file location, relative to the
// working directory.
const DefaultPath = "ycomp.yaml"

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config file at the conventional location, falling
// back to pure defaults when no file exists.
func LoadOrDefault() (*Config, error) {
	if _, err := os.Stat(DefaultPath); os.IsNotExist(err) {
		return Defaults(), nil
	}
	return Load(DefaultPath)
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		DB: DefaultDB,
		FTDNA: FTDNAConfig{
			Timeout: DefaultTimeout,
		},
		Analysis: AnalysisConfig{
			MaxAge:          DefaultMaxAge,
			ConfidenceLevel: DefaultConfidenceLevel,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.DB == "" {
		return fmt.Errorf("db is required")
	}
	if cfg.FTDNA.PageSize < 0 {
		return fmt.Errorf("ftdna.page_size must not be negative")
	}
	if cfg.FTDNA.Timeout <= 0 {
		return fmt.Errorf("ftdna.timeout must be positive")
	}
	if cfg.Analysis.MaxAge <= 0 {
		return fmt.Errorf("analysis.max_age must be positive")
	}
	if cfg.Analysis.ConfidenceLevel <= 0 || cfg.Analysis.ConfidenceLevel >= 1 {
		return fmt.Errorf("analysis.confidence_level must be between 0 and 1")
	}
	return nil
}
