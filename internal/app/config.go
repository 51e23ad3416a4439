package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/specialistvlad/treeplug/internal/loader"
	"gopkg.in/yaml.v3"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ModulesPath   string `yaml:"modules_path"`   // module .hcl files
	ModulePattern string `yaml:"module_pattern"` // doublestar, relative to ModulesPath

	// LibraryPaths are directories or doublestar patterns searched for
	// library files named by #r directives.
	LibraryPaths []string `yaml:"library_paths"`
	// BaseReferences are linked into every module before its own directives.
	BaseReferences   []string `yaml:"base_references"`
	WarningsAsErrors bool     `yaml:"warnings_as_errors"`
	Lenient          bool     `yaml:"lenient"`

	LogFormat       string `yaml:"log_format"`
	LogLevel        string `yaml:"log_level"`
	HealthcheckPort int    `yaml:"healthcheck_port"`
	WorkerCount     int    `yaml:"workers"`

	PublishURL       string `yaml:"publish_url"`
	PublishNamespace string `yaml:"publish_namespace"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		ModulesPath:    "modules",
		ModulePattern:  loader.DefaultPattern,
		BaseReferences: []string{"core"},
		LogFormat:      "text",
		LogLevel:       "info",
		WorkerCount:    4,
	}
}

// LoadConfigFile reads a YAML config file on top of base. Keys absent from
// the file keep base's values; unknown keys are an error.
func LoadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading config file: %w", err)
	}

	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModulesPath == "" {
		return nil, errors.New("ModulesPath is a required configuration field and cannot be empty")
	}
	if cfg.ModulePattern == "" {
		cfg.ModulePattern = loader.DefaultPattern
	}
	if !doublestar.ValidatePattern(cfg.ModulePattern) {
		return nil, fmt.Errorf("invalid module pattern %q", cfg.ModulePattern)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if cfg.WorkerCount <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck-port %d out of range", cfg.HealthcheckPort)
	}

	return &cfg, nil
}
