package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Flags take precedence
// over config values.
type Config struct {
	// DB is the default snapshot database path.
	DB string `yaml:"db"`

	// SaveDelayMS is the debounce window for replayed stores, in
	// milliseconds. Zero means the built-in default.
	SaveDelayMS int `yaml:"save_delay_ms"`
}

// SaveDelay returns the configured debounce window.
func (c *Config) SaveDelay() time.Duration {
	return time.Duration(c.SaveDelayMS) * time.Millisecond
}

// LoadConfig reads and strictly parses a YAML config file. Unknown
// fields are rejected to catch typos.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// resolveConfig loads the config file named by --config, or returns an
// empty config when the flag is unset.
func resolveConfig(opts *RootOptions) (*Config, error) {
	if opts.Config == "" {
		return &Config{}, nil
	}
	return LoadConfig(opts.Config)
}

// resolveDB picks the database path: the --db flag wins, then the
// config file.
func resolveDB(opts *RootOptions, flagDB string) (string, error) {
	if flagDB != "" {
		return flagDB, nil
	}
	cfg, err := resolveConfig(opts)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "loading config", err)
	}
	if cfg.DB != "" {
		return cfg.DB, nil
	}
	return "", NewExitError(ExitCommandError, "no database path: pass --db or set db in the config file")
}
