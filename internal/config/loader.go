package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Lookup resolves a variable name. It has the shape of os.LookupEnv.
type Lookup func(name string) (string, bool)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads the process environment, applies defaults and validates.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFiles reads the given dotenv files and then the environment, which
// wins over anything the files set. A variable exported empty counts as
// unset. Missing files are skipped.
func LoadFiles(paths ...string) (*Config, error) {
	fileVars := make(map[string]string)
	for _, p := range paths {
		vars, err := godotenv.Read(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config load: %s: %w", p, err)
		}
		for k, v := range vars {
			fileVars[k] = v
		}
	}

	return LoadFrom(func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
		v, ok := fileVars[name]
		return v, ok
	})
}

// LoadFrom builds a Config from lookup. Every unset required variable is
// reported, not just the first.
func LoadFrom(lookup Lookup) (*Config, error) {
	cfg := &Config{}
	l := loader{lookup: lookup}

	l.fill(reflect.ValueOf(cfg).Elem())
	if len(l.missing) > 0 {
		l.errs = append(l.errs, fmt.Errorf("required environment variable(s) not set: %s",
			strings.Join(l.missing, ", ")))
	}
	if err := errors.Join(l.errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

type loader struct {
	lookup  Lookup
	missing []string
	errs    []error
}

func (l *loader) get(names ...string) string {
	for _, n := range names {
		if n == "" {
			continue
		}
		if v, ok := l.lookup(n); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// fill walks the struct tree. Leaves carry env, envAlt, default and
// required tags; nested section structs are descended into.
func (l *loader) fill(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			l.fill(fv)
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}

		raw := l.get(name, sf.Tag.Get("envAlt"))
		if raw == "" {
			if sf.Tag.Get("required") == "true" {
				l.missing = append(l.missing, name)
				continue
			}
			raw = sf.Tag.Get("default")
		}
		if raw == "" {
			continue
		}

		if err := assign(fv, raw); err != nil {
			l.errs = append(l.errs, fmt.Errorf("%s=%q: %w", name, raw, err))
		}
	}
}

func assign(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(strings.TrimSpace(raw))
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", fv.Type().Elem().Kind())
		}
		var list []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		fv.Set(reflect.ValueOf(list))
	default:
		return fmt.Errorf("unsupported type %s", fv.Kind())
	}
	return nil
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	validDrivers := map[string]bool{"postgres": true, "sqlite": true}
	if !validDrivers[strings.ToLower(c.Database.Driver)] {
		errs = append(errs, fmt.Sprintf("DATABASE_DRIVER (%q) must be one of: postgres, sqlite", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}
	if c.Upload.ErrorDisplayLimit <= 0 {
		errs = append(errs, "UPLOAD_ERROR_DISPLAY_LIMIT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	// Auth validation
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "SUPABASE_JWT_SECRET is required")
	}
	if len(c.Auth.UploadRoles) == 0 {
		errs = append(errs, "AUTH_UPLOAD_ROLES must list at least one role")
	}

	// Notify validation
	if c.Notify.AMQPURL != "" && c.Notify.Exchange == "" {
		errs = append(errs, "NOTIFY_EXCHANGE is required when NOTIFY_AMQP_URL is set")
	}

	// Archive validation
	if (c.Archive.AccessKey == "") != (c.Archive.SecretKey == "") {
		errs = append(errs, "ARCHIVE_ACCESS_KEY and ARCHIVE_SECRET_KEY must be set together")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String is safe to log: the database URL and secrets are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {Driver: %q, URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.Driver, c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Upload: {MaxFileSize: %d, MaxConcurrent: %d, LenientMarks: %v}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.LenientMarks))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString("Auth: {JWTSecret: [MASKED]}, ")
	b.WriteString(fmt.Sprintf("Notify: {Enabled: %v, Exchange: %q}, ", c.Notify.AMQPURL != "", c.Notify.Exchange))
	b.WriteString(fmt.Sprintf("Archive: {Bucket: %q}, ", c.Archive.Bucket))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
