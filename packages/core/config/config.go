package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	kenv "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "PRBALCHECK_"

// Config represents the prbalcheck configuration
type Config struct {
	Environment  string                       `json:"environment,omitempty" koanf:"environment,omitempty"`
	Environments map[string]map[string]string `json:"environments,omitempty" koanf:"environments,omitempty"`
	Variables    map[string]string            `json:"variables,omitempty" koanf:"variables,omitempty"`
	EnvFile      string                       `json:"envFile,omitempty" koanf:"envFile,omitempty"`
	Rules        []string                     `json:"rules,omitempty" koanf:"rules,omitempty"`   // Extra YAML rule files
	Output       string                       `json:"output,omitempty" koanf:"output,omitempty"` // console, json, junit or tap
	OutputFile   string                       `json:"outputFile,omitempty" koanf:"outputFile,omitempty"`
	LogLevel     string                       `json:"logLevel,omitempty" koanf:"logLevel,omitempty"`
	StateDB      string                       `json:"stateDB,omitempty" koanf:"stateDB,omitempty"` // SQLite file for the variable store
	MetricsFile  string                       `json:"metricsFile,omitempty" koanf:"metricsFile,omitempty"`
	Bail         *bool                        `json:"bail,omitempty" koanf:"bail,omitempty"`
	Verbose      *bool                        `json:"verbose,omitempty" koanf:"verbose,omitempty"`
	NoColor      *bool                        `json:"noColor,omitempty" koanf:"noColor,omitempty"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Environment: "dev",
		Output:      "console",
		LogLevel:    "warn",
	}
}

// BoolPtr returns a pointer to b, for building configs in code
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".prbalcheck.json",
	"prbalcheck.config.json",
	".prbalcheck.yaml",
	".prbalcheck.yml",
}

// envKeys maps PRBALCHECK_* suffixes to config keys.
var envKeys = map[string]string{
	"ENVIRONMENT":  "environment",
	"ENV_FILE":     "envFile",
	"OUTPUT":       "output",
	"OUTPUT_FILE":  "outputFile",
	"LOG_LEVEL":    "logLevel",
	"STATE_DB":     "stateDB",
	"METRICS_FILE": "metricsFile",
	"BAIL":         "bail",
	"VERBOSE":      "verbose",
	"NO_COLOR":     "noColor",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return load(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory. With
// no file present the defaults and environment overrides still apply.
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return load(configPath)
		}
	}
	return load("")
}

func load(path string) (*Config, error) {
	// Fresh instance per load so repeated loads do not share state.
	k := koanf.New(".")

	if err := k.Load(structs.Provider(*DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	err := k.Load(kenv.Provider(EnvPrefix, ".", func(s string) string {
		return envKeys[strings.TrimPrefix(s, EnvPrefix)]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &c, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return kyaml.Parser()
	}
	return kjson.Parser()
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Environment != "" {
		result.Environment = other.Environment
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.StateDB != "" {
		result.StateDB = other.StateDB
	}
	if other.MetricsFile != "" {
		result.MetricsFile = other.MetricsFile
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Variables) > 0 {
		merged := make(map[string]string, len(c.Variables)+len(other.Variables))
		for k, v := range c.Variables {
			merged[k] = v
		}
		for k, v := range other.Variables {
			merged[k] = v
		}
		result.Variables = merged
	}
	if len(other.Environments) > 0 {
		merged := make(map[string]map[string]string, len(c.Environments)+len(other.Environments))
		for name, vars := range c.Environments {
			merged[name] = vars
		}
		for name, vars := range other.Environments {
			merged[name] = vars
		}
		result.Environments = merged
	}

	// Rule files accumulate
	if len(other.Rules) > 0 {
		result.Rules = append(append([]string{}, c.Rules...), other.Rules...)
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
