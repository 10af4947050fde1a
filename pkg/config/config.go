package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the dot directory.
const FileName = "sky-install.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SKY_INSTALL_"

// Config is the complete installer configuration.
type Config struct {
	// Home overrides the user home directory the installation is derived from.
	Home    string        `yaml:"home"`
	Tools   ToolsConfig   `yaml:"tools"`
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`
	History HistoryConfig `yaml:"history"`
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Lock    LockConfig    `yaml:"lock"`
}

// ToolsConfig names the external programs.
type ToolsConfig struct {
	Git   string `yaml:"git" validate:"required"`
	Cargo string `yaml:"cargo" validate:"required"`
}

// BuildConfig holds build defaults.
type BuildConfig struct {
	Variant string `yaml:"variant" validate:"oneof=release debug"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path defaults to history.db in the dot directory.
	Path string `yaml:"path"`
	// Keep is the number of runs retained; zero keeps everything.
	Keep int `yaml:"keep" validate:"gte=0"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter" validate:"oneof=stdout otlp none"`
	Endpoint string `yaml:"endpoint" validate:"required_if=Exporter otlp"`
}

// MetricsConfig configures the prometheus textfile written after a command.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile" validate:"required_if=Enabled true"`
}

// LockConfig configures the installation lock.
type LockConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Tools: ToolsConfig{
			Git:   "git",
			Cargo: "cargo",
		},
		Build: BuildConfig{
			Variant: "release",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		History: HistoryConfig{
			Enabled: true,
			Keep:    100,
		},
		Tracing: TracingConfig{
			Exporter: "none",
		},
		Lock: LockConfig{
			Enabled: true,
		},
	}
}

// DefaultPath returns the configuration path under home.
func DefaultPath(home string) string {
	return filepath.Join(home, ".scaii", FileName)
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is only an error when explicit is set.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv merges SKY_INSTALL_* variables into the configuration.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"HOME":      &c.Home,
		"GIT":       &c.Tools.Git,
		"CARGO":     &c.Tools.Cargo,
		"VARIANT":   &c.Build.Variant,
		"LOG_LEVEL": &c.Logging.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "HISTORY"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sHISTORY value %q: %w", EnvPrefix, v, err)
		}
		c.History.Enabled = enabled
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
