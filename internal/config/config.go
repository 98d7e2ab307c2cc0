package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the proxy process.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream" json:"upstream"`
	CORS          CORSConfig          `yaml:"cors" json:"cors"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Host           string   `yaml:"host,omitempty" json:"host,omitempty"`
	Port           int      `yaml:"port" json:"port"`
	ReadTimeout    Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout   Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout    Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	MaxHeaderBytes int      `yaml:"maxHeaderBytes,omitempty" json:"maxHeaderBytes,omitempty"`
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UpstreamConfig configures the client used to reach the upstream API.
// BaseURL is identity-critical: it is fixed at startup and a config reload
// cannot change it.
type UpstreamConfig struct {
	BaseURL             string   `yaml:"baseURL" json:"baseURL"`
	Timeout             Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	MaxIdleConns        int      `yaml:"maxIdleConns,omitempty" json:"maxIdleConns,omitempty"`
	MaxIdleConnsPerHost int      `yaml:"maxIdleConnsPerHost,omitempty" json:"maxIdleConnsPerHost,omitempty"`
	IdleConnTimeout     Duration `yaml:"idleConnTimeout,omitempty" json:"idleConnTimeout,omitempty"`
	TLSHandshakeTimeout Duration `yaml:"tlsHandshakeTimeout,omitempty" json:"tlsHandshakeTimeout,omitempty"`
}

// CORSConfig configures cross-origin access. Exactly one origin is allowed;
// "*" permits any origin.
type CORSConfig struct {
	AllowedOrigin string `yaml:"allowedOrigin" json:"allowedOrigin"`
}

// ObservabilityConfig groups logging, metrics, and tracing configuration.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Tracing TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// MetricsConfig configures the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
}

// DefaultConfig returns a Config with default values. Loading a config file
// overlays the file's values on top of these defaults, so a minimal file only
// needs the settings it changes.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    Duration(10 * time.Second),
			WriteTimeout:   Duration(60 * time.Second),
			IdleTimeout:    Duration(120 * time.Second),
			MaxHeaderBytes: 1 << 20,
		},
		Upstream: UpstreamConfig{
			BaseURL:             "https://pokeapi.co/api/v2/",
			Timeout:             Duration(30 * time.Second),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     Duration(90 * time.Second),
			TLSHandshakeTimeout: Duration(10 * time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigin: "*",
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Port:    9090,
				Path:    "/metrics",
			},
			Tracing: TracingConfig{
				Enabled:      false,
				ServiceName:  "pokeproxy",
				OTLPEndpoint: "localhost:4317",
				SamplingRate: 1.0,
			},
		},
	}
}

// String returns a loggable summary of the config without dumping every field.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Address: %s, UpstreamBaseURL: %s, AllowedOrigin: %s, LogLevel: %s, MetricsEnabled: %t, TracingEnabled: %t}",
		c.Server.Address(), c.Upstream.BaseURL, c.CORS.AllowedOrigin,
		c.Observability.Logging.Level, c.Observability.Metrics.Enabled, c.Observability.Tracing.Enabled,
	)
}
