// Package config provides configuration management for the rapport backend.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the root configuration for one session of the guide pipeline.
type Config struct {
	Environment Environment `yaml:"environment"`

	Supabase   Supabase   `yaml:"supabase"`
	Generation Generation `yaml:"generation"`
	Prefetch   Prefetch   `yaml:"prefetch"`
	Logging    Logging    `yaml:"logging"`
	Metrics    Metrics    `yaml:"metrics"`
	Tracing    Tracing    `yaml:"tracing"`

	// LoadedFrom records the sources the configuration was assembled from.
	LoadedFrom []string `yaml:"-"`
}

// Supabase configures the record store collaborator.
type Supabase struct {
	URL            string `yaml:"url" validate:"required,url"`
	ServiceRoleKey string `yaml:"service_role_key" validate:"required"`
	ContactsTable  string `yaml:"contacts_table" validate:"required"`
	MeetingsTable  string `yaml:"meetings_table" validate:"required"`
}

// Generation configures the remote generation proxy.
type Generation struct {
	Endpoint      string        `yaml:"endpoint" validate:"required,url"`
	APIKey        string        `yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	StreamTimeout time.Duration `yaml:"stream_timeout" validate:"gt=0"`

	Breaker Breaker `yaml:"breaker"`
}

// Breaker configures the circuit breaker guarding the generation endpoint.
type Breaker struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Prefetch configures the background guide prefetcher.
type Prefetch struct {
	Enabled bool `yaml:"enabled"`
	// MaxMeetings caps how many meetings one prefetch run will generate
	// guides for. Zero means no cap.
	MaxMeetings int `yaml:"max_meetings" validate:"gte=0"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Metrics configures the Prometheus collector.
type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required"`
}

// Tracing configures OTLP trace export.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// IsDevelopment reports whether the configuration targets development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

func getEnvironment() Environment {
	switch os.Getenv("RAPPORT_ENV") {
	case "production":
		return Production
	case "staging":
		return Staging
	default:
		return Development
	}
}
