// Package config loads modstream settings from .modstream/config.json under
// the package root, with MODSTREAM_* environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"modstream/internal/errors"
	"modstream/internal/frame"
	"modstream/internal/imports"
	"modstream/internal/loader"
)

// CurrentVersion is the config schema version.
const CurrentVersion = 1

// Dir is the per-package config directory.
const Dir = ".modstream"

// Config represents the complete modstream configuration
type Config struct {
	Version         int    `json:"version" toml:"version" mapstructure:"version"`
	Root            string `json:"root" toml:"root" mapstructure:"root"`
	Scheme          string `json:"scheme" toml:"scheme" mapstructure:"scheme"`
	Parser          string `json:"parser" toml:"parser" mapstructure:"parser"`
	StrictParse     bool   `json:"strictParse" toml:"strictParse" mapstructure:"strictParse"`
	Compression     string `json:"compression" toml:"compression" mapstructure:"compression"`
	MaxPayloadBytes int    `json:"maxPayloadBytes" toml:"maxPayloadBytes" mapstructure:"maxPayloadBytes"`
	TargetsFile     string `json:"targetsFile" toml:"targetsFile" mapstructure:"targetsFile"`

	Serve   ServeConfig   `json:"serve" toml:"serve" mapstructure:"serve"`
	Load    LoadConfig    `json:"load" toml:"load" mapstructure:"load"`
	Logging LoggingConfig `json:"logging" toml:"logging" mapstructure:"logging"`
}

// ServeConfig contains HTTP delivery settings
type ServeConfig struct {
	Addr              string `json:"addr" toml:"addr" mapstructure:"addr"`
	ShutdownTimeoutMs int    `json:"shutdownTimeoutMs" toml:"shutdownTimeoutMs" mapstructure:"shutdownTimeoutMs"`
}

// LoadConfig contains progressive loader settings
type LoadConfig struct {
	Mode string `json:"mode" toml:"mode" mapstructure:"mode"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" toml:"format" mapstructure:"format"`
	Level  string `json:"level" toml:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:         CurrentVersion,
		Root:            ".",
		Scheme:          "bundle",
		Parser:          string(imports.KindAuto),
		StrictParse:     false,
		Compression:     string(frame.CompressionNone),
		MaxPayloadBytes: frame.DefaultMaxPayload,
		TargetsFile:     "modstream.toml",
		Serve: ServeConfig{
			Addr:              "localhost:8420",
			ShutdownTimeoutMs: 5000,
		},
		Load: LoadConfig{
			Mode: string(loader.ModeStreaming),
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// envBindings maps config keys to their environment variables.
var envBindings = map[string]string{
	"root":                    "MODSTREAM_ROOT",
	"scheme":                  "MODSTREAM_SCHEME",
	"parser":                  "MODSTREAM_PARSER",
	"strictParse":             "MODSTREAM_STRICT_PARSE",
	"compression":             "MODSTREAM_COMPRESSION",
	"maxPayloadBytes":         "MODSTREAM_MAX_PAYLOAD_BYTES",
	"targetsFile":             "MODSTREAM_TARGETS_FILE",
	"serve.addr":              "MODSTREAM_SERVE_ADDR",
	"serve.shutdownTimeoutMs": "MODSTREAM_SERVE_SHUTDOWN_TIMEOUT_MS",
	"load.mode":               "MODSTREAM_LOAD_MODE",
	"logging.format":          "MODSTREAM_LOG_FORMAT",
	"logging.level":           "MODSTREAM_LOG_LEVEL",
}

// configPathEnv names an explicit config file, overriding the package lookup.
const configPathEnv = "MODSTREAM_CONFIG_PATH"

// EnvOverride records one setting taken from the environment.
type EnvOverride struct {
	Key    string `json:"key"`
	EnvVar string `json:"envVar"`
	Value  string `json:"value"`
}

// LoadResult describes where a configuration came from.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// Load loads configuration for the package at root.
func Load(root string) (*Config, error) {
	result, err := LoadWithDetails(root)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadWithDetails loads configuration and reports the config file used and
// the environment overrides applied. A missing config file is not an error.
func LoadWithDetails(root string) (*LoadResult, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	result := &LoadResult{}
	if path := os.Getenv(configPathEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(filepath.Join(root, Dir))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.NewBundleError(errors.ConfigInvalid, "failed to read config", err)
		}
		result.UsedDefaults = true
	} else {
		result.ConfigPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewBundleError(errors.ConfigInvalid, "failed to decode config", err)
	}
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(root, cfg.Root)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewBundleError(errors.ConfigInvalid, "invalid config", err)
	}

	result.Config = &cfg
	result.EnvOverrides = envOverrides()
	return result, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("version", cfg.Version)
	v.SetDefault("root", cfg.Root)
	v.SetDefault("scheme", cfg.Scheme)
	v.SetDefault("parser", cfg.Parser)
	v.SetDefault("strictParse", cfg.StrictParse)
	v.SetDefault("compression", cfg.Compression)
	v.SetDefault("maxPayloadBytes", cfg.MaxPayloadBytes)
	v.SetDefault("targetsFile", cfg.TargetsFile)
	v.SetDefault("serve.addr", cfg.Serve.Addr)
	v.SetDefault("serve.shutdownTimeoutMs", cfg.Serve.ShutdownTimeoutMs)
	v.SetDefault("load.mode", cfg.Load.Mode)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

func envOverrides() []EnvOverride {
	var out []EnvOverride
	for key, env := range envBindings {
		if value, ok := os.LookupEnv(env); ok {
			out = append(out, EnvOverride{Key: key, EnvVar: env, Value: value})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// GetSupportedEnvVars returns the sorted environment variables that
// override configuration.
func GetSupportedEnvVars() []string {
	vars := []string{configPathEnv}
	for _, env := range envBindings {
		vars = append(vars, env)
	}
	sort.Strings(vars)
	return vars
}

// Save writes the configuration to .modstream/config.json under root.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0644)
}

// MarshalTOML renders the configuration as TOML.
func (c *Config) MarshalTOML() ([]byte, error) {
	return toml.Marshal(c)
}

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if !schemePattern.MatchString(c.Scheme) {
		return &ConfigError{Field: "scheme", Message: fmt.Sprintf("%q is not a valid URI scheme", c.Scheme)}
	}
	if _, err := imports.ParseKind(c.Parser); err != nil {
		return &ConfigError{Field: "parser", Message: err.Error()}
	}
	if _, err := frame.ParseCompression(c.Compression); err != nil {
		return &ConfigError{Field: "compression", Message: err.Error()}
	}
	if c.MaxPayloadBytes <= 0 {
		return &ConfigError{Field: "maxPayloadBytes", Message: "must be positive"}
	}
	if c.Serve.Addr == "" {
		return &ConfigError{Field: "serve.addr", Message: "must not be empty"}
	}
	if _, err := loader.ParseMode(c.Load.Mode); err != nil {
		return &ConfigError{Field: "load.mode", Message: err.Error()}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
