// Package config provides advanced configuration loading with multiple sources.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration from multiple sources. The loading
// order, lowest to highest priority:
//  1. Default values (in code)
//  2. Base configuration file (base.yaml)
//  3. Environment-specific file (e.g. production.yaml)
//  4. Environment variables
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
}

// NewLoader creates a new configuration loader with sensible defaults.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{
		basePath:    basePath,
		environment: env,
		sources:     make([]string, 0),
	}
}

// Load loads configuration using the source hierarchy and validates the
// final result.
func (l *Loader) Load() (*Config, error) {
	cfg := l.defaultConfig()
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	cfg.LoadedFrom = l.sources

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile loads configuration from a YAML file if it exists.
func (l *Loader) loadFile(name string, cfg *Config) error {
	path := filepath.Join(l.basePath, name+".yaml")

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	l.sources = append(l.sources, path)
	return nil
}

// loadEnvironmentVariables overlays environment variables on the
// configuration. This is the highest priority source.
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	if val := os.Getenv("SUPABASE_URL"); val != "" {
		cfg.Supabase.URL = val
	}
	if val := os.Getenv("SUPABASE_SERVICE_ROLE_KEY"); val != "" {
		cfg.Supabase.ServiceRoleKey = val
	}
	if val := os.Getenv("GENERATION_ENDPOINT"); val != "" {
		cfg.Generation.Endpoint = val
	}
	if val := os.Getenv("GENERATION_API_KEY"); val != "" {
		cfg.Generation.APIKey = val
	}
	if val := os.Getenv("PREFETCH_ENABLED"); val != "" {
		cfg.Prefetch.Enabled = parseBool(val)
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("ENABLE_METRICS"); val != "" {
		cfg.Metrics.Enabled = parseBool(val)
	}
	if val := os.Getenv("ENABLE_TRACING"); val != "" {
		cfg.Tracing.Enabled = parseBool(val)
	}
	if val := os.Getenv("OTLP_ENDPOINT"); val != "" {
		cfg.Tracing.Endpoint = val
	}
}

// defaultConfig returns a configuration with sensible defaults so the
// pipeline can run with only the Supabase and endpoint settings supplied.
func (l *Loader) defaultConfig() *Config {
	return &Config{
		Environment: l.environment,
		Supabase: Supabase{
			ContactsTable: "contacts",
			MeetingsTable: "meetings",
		},
		Generation: Generation{
			Timeout:       30 * time.Second,
			StreamTimeout: 2 * time.Minute,
			Breaker: Breaker{
				MaxRequests:      5,
				Interval:         30 * time.Second,
				Timeout:          60 * time.Second,
				FailureThreshold: 0.8,
				MinRequests:      5,
			},
		},
		Prefetch: Prefetch{
			Enabled:     true,
			MaxMeetings: 0,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "rapport",
		},
		Tracing: Tracing{
			Enabled:     false,
			ServiceName: "rapport-backend",
			SampleRate:  0.1,
		},
	}
}

func parseBool(s string) bool {
	val, _ := strconv.ParseBool(s)
	return val
}

// LoadWithLoader loads configuration using the layered loader. This is the
// recommended way to load configuration.
func LoadWithLoader() (*Config, error) {
	env := getEnvironment()
	loader := NewLoader(os.Getenv("CONFIG_DIR"), env)
	return loader.Load()
}

// MustLoadWithLoader loads configuration and panics on error. Use this only
// at session construction.
func MustLoadWithLoader() *Config {
	cfg, err := LoadWithLoader()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
