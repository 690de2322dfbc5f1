package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "DAYAML_"

// LoadConfig loads configuration from a YAML file at the specified path.
// Fields the file leaves out keep their defaults. The configuration is not
// modified by environment variables; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// variable overrides named DAYAML_SECTION_FIELD (e.g.
// DAYAML_SERVER_LISTEN_ADDRESS). An empty path starts from Default().
//
// The loading sequence is:
// 1. Load YAML from file, or use defaults
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Unparseable values are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError

	str := func(name string, dst *string) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			*dst = val
		}
	}
	boolean := func(name string, dst *bool) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, envError(name, val, "a boolean"))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, envError(name, val, "an integer"))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, envError(name, val, "a duration"))
				return
			}
			*dst = d
		}
	}

	// Check overrides
	boolean("CHECK_CHECK_ALL", &cfg.Check.CheckAll)
	integer("CHECK_WORKERS", &cfg.Check.Workers)
	integer("CHECK_CONTEXT_LINES", &cfg.Check.ContextLines)
	integer("CHECK_MAX_DEPTH", &cfg.Check.MaxDepth)
	if val := os.Getenv(EnvPrefix + "CHECK_SKIP_FILES"); val != "" {
		cfg.Check.SkipFiles = nil
		for _, name := range strings.Split(val, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Check.SkipFiles = append(cfg.Check.SkipFiles, name)
			}
		}
	}

	// Logging overrides
	str("LOGGING_LEVEL", &cfg.Logging.Level)
	str("LOGGING_FORMAT", &cfg.Logging.Format)
	boolean("LOGGING_ADD_SOURCE", &cfg.Logging.AddSource)

	// Metrics overrides
	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	str("METRICS_PATH", &cfg.Metrics.Path)
	str("METRICS_NAMESPACE", &cfg.Metrics.Namespace)

	// Server overrides
	str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	if val := os.Getenv(EnvPrefix + "SERVER_MAX_BODY_BYTES"); val != "" {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			errs = append(errs, envError("SERVER_MAX_BODY_BYTES", val, "an integer"))
		} else {
			cfg.Server.MaxBodyBytes = n
		}
	}

	if val := os.Getenv(EnvPrefix + "SERVER_RATE_LIMIT_REQUESTS_PER_SECOND"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			errs = append(errs, envError("SERVER_RATE_LIMIT_REQUESTS_PER_SECOND", val, "a number"))
		} else {
			cfg.Server.RateLimit.RequestsPerSecond = f
		}
	}
	integer("SERVER_RATE_LIMIT_BURST", &cfg.Server.RateLimit.Burst)
	boolean("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	str("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	str("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)
	str("SERVER_TLS_MIN_VERSION", &cfg.Server.TLS.MinVersion)
	integer("SERVER_RATE_LIMIT_MAX_CONCURRENT", &cfg.Server.RateLimit.MaxConcurrent)

	// Watch overrides
	duration("WATCH_DEBOUNCE", &cfg.Watch.Debounce)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func envError(name, val, want string) FieldError {
	return FieldError{
		Field:   EnvPrefix + name,
		Message: fmt.Sprintf("invalid value %q: must be %s", val, want),
	}
}
