package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates proxy configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a proxy configuration.
func ValidateConfig(config *Config) error {
	v := NewValidator()
	return v.Validate(config)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&config.Server)
	v.validateUpstream(&config.Upstream)
	v.validateCORS(&config.CORS)
	v.validateObservability(&config.Observability)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// validateServer validates the HTTP listener configuration.
func (v *Validator) validateServer(server *ServerConfig) {
	if err := validatePort(server.Port); err != nil {
		v.addError("server.port", err.Error())
	}

	if server.ReadTimeout.Duration() < 0 {
		v.addError("server.readTimeout", "readTimeout cannot be negative")
	}

	if server.WriteTimeout.Duration() < 0 {
		v.addError("server.writeTimeout", "writeTimeout cannot be negative")
	}

	if server.IdleTimeout.Duration() < 0 {
		v.addError("server.idleTimeout", "idleTimeout cannot be negative")
	}

	if server.MaxHeaderBytes < 0 {
		v.addError("server.maxHeaderBytes", "maxHeaderBytes cannot be negative")
	}
}

// validateUpstream validates the upstream client configuration.
func (v *Validator) validateUpstream(upstream *UpstreamConfig) {
	switch {
	case upstream.BaseURL == "":
		v.addError("upstream.baseURL", "baseURL is required")
	default:
		u, err := url.Parse(upstream.BaseURL)
		switch {
		case err != nil:
			v.addError("upstream.baseURL", fmt.Sprintf("invalid URL: %v", err))
		case u.Scheme != "http" && u.Scheme != "https":
			v.addError("upstream.baseURL", "scheme must be http or https")
		case u.Host == "":
			v.addError("upstream.baseURL", "host is required")
		}
	}

	if upstream.Timeout.Duration() <= 0 {
		v.addError("upstream.timeout", "timeout must be positive")
	}

	if upstream.MaxIdleConns < 0 {
		v.addError("upstream.maxIdleConns", "maxIdleConns cannot be negative")
	}

	if upstream.MaxIdleConnsPerHost < 0 {
		v.addError("upstream.maxIdleConnsPerHost", "maxIdleConnsPerHost cannot be negative")
	}

	if upstream.IdleConnTimeout.Duration() < 0 {
		v.addError("upstream.idleConnTimeout", "idleConnTimeout cannot be negative")
	}

	if upstream.TLSHandshakeTimeout.Duration() < 0 {
		v.addError("upstream.tlsHandshakeTimeout", "tlsHandshakeTimeout cannot be negative")
	}
}

// validateCORS validates CORS configuration.
func (v *Validator) validateCORS(cors *CORSConfig) {
	if cors.AllowedOrigin == "" {
		v.addError("cors.allowedOrigin", "allowedOrigin is required")
		return
	}

	if cors.AllowedOrigin == "*" {
		return
	}

	u, err := url.Parse(cors.AllowedOrigin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.addError("cors.allowedOrigin", "allowedOrigin must be \"*\" or an origin of the form scheme://host[:port]")
		return
	}

	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		v.addError("cors.allowedOrigin", "allowedOrigin must not include a path, query, or fragment")
	}
}

// validateObservability validates observability configuration.
func (v *Validator) validateObservability(obs *ObservabilityConfig) {
	validLevels := map[string]bool{
		"":      true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[strings.ToLower(obs.Logging.Level)] {
		v.addError("observability.logging.level", fmt.Sprintf("invalid log level: %s", obs.Logging.Level))
	}

	validFormats := map[string]bool{
		"":        true,
		"json":    true,
		"console": true,
	}

	if !validFormats[strings.ToLower(obs.Logging.Format)] {
		v.addError("observability.logging.format", fmt.Sprintf("invalid log format: %s", obs.Logging.Format))
	}

	if obs.Metrics.Enabled {
		if obs.Metrics.Path != "" && !strings.HasPrefix(obs.Metrics.Path, "/") {
			v.addError("observability.metrics.path", "metrics path must start with /")
		}

		if err := validatePort(obs.Metrics.Port); err != nil {
			v.addError("observability.metrics.port", err.Error())
		}
	}

	if obs.Tracing.Enabled {
		if obs.Tracing.ServiceName == "" {
			v.addError("observability.tracing.serviceName", "serviceName is required when tracing is enabled")
		}

		if obs.Tracing.OTLPEndpoint == "" {
			v.addError("observability.tracing.otlpEndpoint", "otlpEndpoint is required when tracing is enabled")
		}
	}

	if obs.Tracing.SamplingRate < 0 || obs.Tracing.SamplingRate > 1 {
		v.addError("observability.tracing.samplingRate", "samplingRate must be between 0 and 1")
	}
}

// validatePort checks that a port number is usable for listening.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
