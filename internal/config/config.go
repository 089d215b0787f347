// Package config provides configuration management for logmine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/logmine/internal/db/gorm"
	"github.com/thebtf/logmine/internal/output"
	"github.com/thebtf/logmine/internal/preprocess"
	"github.com/thebtf/logmine/internal/processor"
	"github.com/thebtf/logmine/internal/telemetry"
	"github.com/thebtf/logmine/pkg/similarity"
)

// Environment variables overriding the settings file.
const (
	EnvDBURL   = "LOGMINE_DB_URL"
	EnvTable   = "LOGMINE_TABLE_NAME"
	EnvOutput  = "LOGMINE_OUTPUT"
	EnvMetrics = "LOGMINE_METRICS_EXPORTER"
)

const (
	// DefaultPlaceholder is the text shown at varying pattern positions.
	DefaultPlaceholder = "---"
	// DefaultMaxConns bounds open database connections.
	DefaultMaxConns = 4
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all logmine settings.
type Config struct {
	DBURL           string `yaml:"db_url"`
	Table           string `yaml:"table"`
	Output          string `yaml:"output"`
	Delimiter       string `yaml:"delimiter"`
	Format          string `yaml:"format"`
	Sorted          string `yaml:"sorted"`
	Placeholder     string `yaml:"pattern_placeholder"`
	MetricsExporter string `yaml:"metrics_exporter"`

	Variables []string `yaml:"variables"`

	K1         float64 `yaml:"k1"`
	K2         float64 `yaml:"k2"`
	MaxDist    float64 `yaml:"max_dist"`
	MinMembers uint64  `yaml:"min_members"`
	BatchSize  int     `yaml:"batch_size"`
	Workers    int     `yaml:"workers"`
	MaxConns   int     `yaml:"max_conns"`

	SingleCore         bool `yaml:"single_core"`
	NumberAlign        bool `yaml:"number_align"`
	MaskVariables      bool `yaml:"mask_variables"`
	HighlightPatterns  bool `yaml:"highlight_patterns"`
	HighlightVariables bool `yaml:"highlight_variables"`
}

// Default returns the default configuration.
func Default() *Config {
	clustering := similarity.DefaultConfig()
	return &Config{
		DBURL:           DBPath(),
		Table:           gorm.DefaultTable,
		Output:          "-",
		Delimiter:       preprocess.DefaultDelimiter,
		Format:          output.FormatText,
		Sorted:          output.SortDesc,
		Placeholder:     DefaultPlaceholder,
		MetricsExporter: telemetry.ExporterNone,

		K1:         clustering.K1,
		K2:         clustering.K2,
		MaxDist:    clustering.MaxDist,
		MinMembers: 1,
		MaxConns:   DefaultMaxConns,

		NumberAlign:        true,
		HighlightPatterns:  true,
		HighlightVariables: true,
	}
}

// DataDir returns the per-user logmine directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".logmine")
}

// DBPath returns the default sqlite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "logmine.db")
}

// SettingsPath returns the default settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// EnsureDataDir creates the data directory if needed.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll creates the data directory and the default settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Load reads the settings file at path over the defaults, then applies
// environment overrides. An empty path selects SettingsPath(). A missing
// file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = SettingsPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBURL); v != "" {
		c.DBURL = v
	}
	if v := os.Getenv(EnvTable); v != "" {
		c.Table = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output = v
	}
	if v := os.Getenv(EnvMetrics); v != "" {
		c.MetricsExporter = v
	}
}

// Validate checks the settings that can be checked without opening anything.
// Database settings are checked separately by ValidateDatabase.
func (c *Config) Validate() error {
	if err := c.Clustering().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := preprocess.ParseRules(c.Variables); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.OutputOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ValidateDatabase checks the settings needed to open the log table.
func (c *Config) ValidateDatabase() error {
	if c.DBURL == "" {
		return fmt.Errorf("%w: empty database URL", ErrInvalidConfig)
	}
	return nil
}

// Clustering returns the clustering parameters.
func (c *Config) Clustering() similarity.Config {
	return similarity.Config{K1: c.K1, K2: c.K2, MaxDist: c.MaxDist}
}

// Processor returns the pipeline parameters.
func (c *Config) Processor() processor.Config {
	return processor.Config{
		Clustering: c.Clustering(),
		Delimiter:  c.Delimiter,
		Variables:  c.Variables,
		MinMembers: c.MinMembers,
		BatchSize:  c.BatchSize,
		Workers:    c.Workers,
		SingleCore: c.SingleCore,
	}
}

// Store returns the database parameters.
func (c *Config) Store() gorm.Config {
	return gorm.Config{
		URL:      c.DBURL,
		Table:    c.Table,
		MaxConns: c.MaxConns,
	}
}

// OutputOptions returns the rendering options.
func (c *Config) OutputOptions() output.Options {
	return output.Options{
		Sort:               c.Sorted,
		Placeholder:        c.Placeholder,
		Format:             c.Format,
		NumberAlign:        c.NumberAlign,
		MaskVariables:      c.MaskVariables,
		HighlightPatterns:  c.HighlightPatterns,
		HighlightVariables: c.HighlightVariables,
	}
}
