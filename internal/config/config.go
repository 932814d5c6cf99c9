// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Auth     AuthConfig
	Logging  LoggingConfig
	Notify   NotifyConfig
	Archive  ArchiveConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver selects the result store: postgres or sqlite (default: postgres)
	Driver string `env:"DATABASE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string or the SQLite DSN (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies the embedded schema on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// UploadConfig holds CSV mark upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 5MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"5242880"`

	// MaxConcurrent is the maximum number of parallel uploads (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single upload operation (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`

	// LenientMarks writes 0 for unparsable marks instead of failing the row (default: false)
	LenientMarks bool `env:"UPLOAD_LENIENT_MARKS" default:"false"`

	// ErrorDisplayLimit caps the errors rendered in summaries (default: 10)
	ErrorDisplayLimit int `env:"UPLOAD_ERROR_DISPLAY_LIMIT" default:"10"`

	// ResultRetention is how long finished uploads stay queryable (default: 5m)
	ResultRetention time.Duration `env:"UPLOAD_RESULT_RETENTION" default:"5m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// AuthConfig holds settings for verifying Supabase access tokens.
type AuthConfig struct {
	// JWTSecret is the HS256 secret of the Supabase project (required)
	JWTSecret string `env:"SUPABASE_JWT_SECRET" envAlt:"JWT_SECRET" required:"true"`

	// Issuer, when set, must match the token's iss claim
	Issuer string `env:"SUPABASE_JWT_ISSUER"`

	// Audience, when set, must be present in the token's aud claim (default: authenticated)
	Audience string `env:"SUPABASE_JWT_AUDIENCE" default:"authenticated"`

	// UploadRoles lists the roles allowed to write marks (default: admin,teacher)
	UploadRoles []string `env:"AUTH_UPLOAD_ROLES" default:"admin,teacher"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// NotifyConfig holds settings for result-published events.
type NotifyConfig struct {
	// AMQPURL is the broker URL; empty disables publishing to a broker
	AMQPURL string `env:"NOTIFY_AMQP_URL" envAlt:"RABBITMQ_URL"`

	// Exchange is the topic exchange events are published to (default: results)
	Exchange string `env:"NOTIFY_EXCHANGE" default:"results"`
}

// ArchiveConfig holds settings for archiving raw CSV uploads to object storage.
type ArchiveConfig struct {
	// Bucket is the target bucket; empty disables archiving
	Bucket string `env:"ARCHIVE_BUCKET"`

	// Region is the bucket region (default: auto)
	Region string `env:"ARCHIVE_REGION" default:"auto"`

	// Endpoint overrides the S3 endpoint for R2/MinIO
	Endpoint string `env:"ARCHIVE_ENDPOINT"`

	// AccessKey and SecretKey configure static credentials; empty uses the default chain
	AccessKey string `env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `env:"ARCHIVE_SECRET_KEY"`

	// Prefix is prepended to every object key (default: uploads)
	Prefix string `env:"ARCHIVE_PREFIX" default:"uploads"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
