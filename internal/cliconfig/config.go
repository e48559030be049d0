// Package cliconfig loads the optional hulksema.yaml file that configures
// the hulksema command: where fixtures live, how the run ledger is kept,
// and how many bundles run concurrently.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level hulksema.yaml configuration.
type Config struct {
	// FixturesDir is where bundled .hulk.txtar fixtures are discovered.
	// Defaults to "testdata/fixtures" if omitted.
	FixturesDir string `yaml:"fixtures_dir,omitempty"`

	// LedgerPath is the SQLite database file the run ledger is appended
	// to. Defaults to "hulksema-ledger.db" if omitted.
	LedgerPath string `yaml:"ledger_path,omitempty"`

	// Color controls ANSI output: "auto" (detect TTY), "always", or
	// "never". Defaults to "auto".
	Color string `yaml:"color,omitempty"`

	// Concurrency bounds how many fixture bundles Check runs at once.
	// Defaults to 4 if omitted or non-positive.
	Concurrency int `yaml:"concurrency,omitempty"`
}

const (
	defaultFixturesDir = "testdata/fixtures"
	defaultLedgerPath  = "hulksema-ledger.db"
	defaultConcurrency = 4
)

// LoadConfig reads and parses a hulksema.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses hulksema.yaml content from bytes. path is used only
// for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for hulksema.yaml starting at dir and walking up to
// parent directories. Returns "" with a nil error if none is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "hulksema.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		candidate = filepath.Join(dir, "hulksema.yml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	switch c.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("%s: color must be one of auto, always, never (got %q)", path, c.Color)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%s: concurrency must not be negative", path)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.FixturesDir == "" {
		c.FixturesDir = defaultFixturesDir
	}
	if c.LedgerPath == "" {
		c.LedgerPath = defaultLedgerPath
	}
	if c.Color == "" {
		c.Color = "auto"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
}

// Default returns the configuration used when no hulksema.yaml is found.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}
