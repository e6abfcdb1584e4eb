// Package config loads the ardt configuration from a YAML file with
// environment-variable overrides. Binaries call Load once at startup and
// thread the resulting value into dataset constructors; the library never
// reads configuration globally.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	// EnvConfigPath names the environment variable that overrides the
	// configuration file location.
	EnvConfigPath = "ARDT_CONFIG_PATH"

	// DefaultConfigFile is used when neither an explicit path nor
	// ARDT_CONFIG_PATH is set.
	DefaultConfigFile = "ardt_config.yaml"

	envPrefix = "ARDT"
)

// Config is the process-wide configuration consumed by dataset constructors.
type Config struct {
	// WorkingDir is the cache root every dataset keys its working
	// directory off. A leading ~ is expanded.
	WorkingDir string `yaml:"working_dir" envconfig:"WORKING_DIR" validate:"required"`

	Logging  Logging  `yaml:"logging"`
	Datasets Datasets `yaml:"datasets"`
}

// Logging controls the slog handler installed by logging.Setup.
type Logging struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
}

// Datasets holds per-dataset source locations. Paths are validated by the
// dataset constructors that consume them, not at load time, so a config
// naming only the datasets in use stays valid.
type Datasets struct {
	Dreamer Dreamer `yaml:"dreamer"`
	EDF     EDF     `yaml:"edf"`
}

// Dreamer locates the single JSON document the DREAMER recordings ship as.
type Dreamer struct {
	Path string `yaml:"path" envconfig:"DREAMER_PATH"`
}

// EDF locates a directory of EDF recordings and its ratings table.
type EDF struct {
	Path        string `yaml:"path" envconfig:"EDF_PATH"`
	RatingsPath string `yaml:"ratings_path" envconfig:"EDF_RATINGS_PATH"`

	// Signals maps a signal type to the EDF signal indices that carry it,
	// since montages vary per lab. When empty, edfset falls back to its
	// defaults.
	Signals map[string]EDFSignal `yaml:"signals"`
}

// EDFSignal declares which EDF signal indices belong to one signal type and
// the rate they were captured at.
type EDFSignal struct {
	Indices    []int `yaml:"indices"`
	SampleRate int   `yaml:"sample_rate"`
}

// Load reads the configuration. Environment defaults are applied first, the
// YAML file second (values it sets win), validation last. An empty path
// falls back to ARDT_CONFIG_PATH and then to ./ardt_config.yaml; a missing
// file is not an error as long as the environment supplies what validation
// requires.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = DefaultConfigFile
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ExpandedWorkingDir returns WorkingDir with a leading ~ expanded to the
// current user's home directory.
func (c *Config) ExpandedWorkingDir() (string, error) {
	if c.WorkingDir == "~" || strings.HasPrefix(c.WorkingDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(c.WorkingDir, "~")), nil
	}
	return c.WorkingDir, nil
}
