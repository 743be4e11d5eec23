package config

import (
	"time"

	"github.com/vyrodovalexey/avabackoff/internal/form"
	"github.com/vyrodovalexey/avabackoff/internal/observability"
)

// Default values.
const (
	DefaultAddress           = ":8080"
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultRequestsPerSecond = 50
	DefaultBurst             = 100
	DefaultMetricsPath       = "/metrics"
	DefaultServiceName       = "avabackoff"
	DefaultLocale            = "en"
)

// Config is the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Locale  string        `yaml:"locale" json:"locale"`

	// Policy is the default policy served by the API and shown by the CLI,
	// in its form representation.
	Policy form.Values `yaml:"policy" json:"policy"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Address         string          `yaml:"address" json:"address"`
	ReadTimeout     Duration        `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    Duration        `yaml:"writeTimeout" json:"writeTimeout"`
	ShutdownTimeout Duration        `yaml:"shutdownTimeout" json:"shutdownTimeout"`
	RateLimit       RateLimitConfig `yaml:"rateLimit" json:"rateLimit"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Endpoint     string  `yaml:"endpoint" json:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         DefaultAddress,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: DefaultRequestsPerSecond,
				Burst:             DefaultBurst,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: TracingConfig{
			SamplingRate: 1.0,
			ServiceName:  DefaultServiceName,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		Locale: DefaultLocale,
		Policy: form.Default(),
	}
}

// LogConfig converts the logging section for observability.NewLogger.
func (c *Config) LogConfig() observability.LogConfig {
	lc := observability.DefaultLogConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Output = c.Logging.Output
	return lc
}

// TracerConfig converts the tracing section for observability.NewTracer.
func (c *Config) TracerConfig() observability.TracerConfig {
	return observability.TracerConfig{
		ServiceName:  c.Tracing.ServiceName,
		OTLPEndpoint: c.Tracing.Endpoint,
		SamplingRate: c.Tracing.SamplingRate,
		Enabled:      c.Tracing.Enabled,
	}
}
