package config

import "time"

// Config is the root configuration structure for the checker. Every section
// is optional; a missing file yields Default().
type Config struct {
	// Check controls which files are checked and how.
	Check CheckConfig `yaml:"check"`

	// Logging controls the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics controls the Prometheus collectors.
	Metrics MetricsConfig `yaml:"metrics"`

	// Server configures the HTTP validation service started by "serve".
	Server ServerConfig `yaml:"server"`

	// Watch configures re-checking files as they change.
	Watch WatchConfig `yaml:"watch"`
}

// CheckConfig contains file selection and checking options.
type CheckConfig struct {
	// CheckAll disables the default directory ignores (.git*, .github*,
	// .venv*, sources).
	// Default: false
	CheckAll bool `yaml:"check_all"`

	// Workers is the number of files checked concurrently.
	// Default: 4
	Workers int `yaml:"workers"`

	// SkipFiles lists file name suffixes skipped in addition to the
	// built-in list of docassemble's bundled files.
	SkipFiles []string `yaml:"skip_files"`

	// ContextLines is the number of source lines shown around each error
	// in text output. Zero disables context.
	// Default: 0
	ContextLines int `yaml:"context_lines"`

	// MaxDepth limits document nesting. Zero means unlimited.
	// Default: 0
	MaxDepth int `yaml:"max_depth"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn" or "error".
	// Default: "warn"
	Level string `yaml:"level"`

	// Format is "text" or "json".
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes the source file and line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled turns on collection and the metrics endpoint.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "dayaml"
	Namespace string `yaml:"namespace"`
}

// ServerConfig contains HTTP service settings.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits the size of a submitted interview.
	// Default: 4MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RateLimit bounds validation requests. Disabled by default.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// TLS serves HTTPS when enabled.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains the server certificate settings.
type TLSConfig struct {
	// Enabled turns on HTTPS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM files holding the certificate chain and
	// its private key.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`
}

// RateLimitConfig limits validation requests across all clients.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. Zero disables it.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests allowed above the rate at once.
	// Zero means twice RequestsPerSecond.
	Burst int `yaml:"burst"`

	// MaxConcurrent is the number of validations run at the same time.
	// Zero means unlimited.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// WatchConfig contains watch mode settings.
type WatchConfig struct {
	// Debounce is how long to wait after the last change to a file before
	// checking it again.
	// Default: 200ms
	Debounce time.Duration `yaml:"debounce"`
}
