package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DataConfig describes where the session dataset comes from when nothing
// has been uploaded.
type DataConfig struct {
	DefaultFile    string
	Encoding       string
	ColumnsFile    string
	CacheDir       string
	MaxUploadBytes int64
	LoadWorkers    int
	LoadTimeout    time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

var (
	validEncodings  = []string{"latin1", "utf-8"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
)

// env reads typed values from the environment and remembers every value
// that was set but could not be parsed.
type env struct {
	errs []error
}

func lookup[T any](e *env, key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, raw, err))
		return def
	}
	return v
}

func (e *env) String(key, def string) string {
	return lookup(e, key, def, func(s string) (string, error) { return s, nil })
}

func (e *env) Lower(key, def string) string {
	return strings.ToLower(e.String(key, def))
}

func (e *env) Int(key string, def int) int {
	return lookup(e, key, def, strconv.Atoi)
}

func (e *env) Int64(key string, def int64) int64 {
	return lookup(e, key, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

func (e *env) Bool(key string, def bool) bool {
	return lookup(e, key, def, strconv.ParseBool)
}

func (e *env) Duration(key string, def time.Duration) time.Duration {
	return lookup(e, key, def, time.ParseDuration)
}

func (e *env) List(key string, def []string) []string {
	return lookup(e, key, def, func(s string) ([]string, error) {
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return parts, nil
	})
}

func Load() (*Config, error) {
	var e env

	cfg := &Config{
		Server: ServerConfig{
			Host:            e.String("SERVER_HOST", "localhost"),
			Port:            e.Int("SERVER_PORT", 8501),
			ReadTimeout:     e.Duration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    e.Duration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     e.Duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: e.Duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			DefaultFile:    e.String("DATA_DEFAULT_FILE", "Superstore_2023.csv"),
			Encoding:       e.Lower("DATA_ENCODING", "latin1"),
			ColumnsFile:    e.String("DATA_COLUMNS_FILE", ""),
			CacheDir:       e.String("DATA_CACHE_DIR", ""),
			MaxUploadBytes: e.Int64("DATA_MAX_UPLOAD_BYTES", 32<<20),
			LoadWorkers:    e.Int("DATA_LOAD_WORKERS", 4),
			LoadTimeout:    e.Duration("DATA_LOAD_TIMEOUT", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:  e.Lower("LOG_LEVEL", "info"),
			Format: e.Lower("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: e.Bool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    e.Int("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  e.Int("SECURITY_RATE_LIMIT_BURST", 20),
			AllowedOrigins:  e.List("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8501"}),
			TrustedProxies:  e.List("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := errors.Join(append(e.errs, cfg.validate()...)...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate reports every problem at once rather than the first one.
func (c *Config) validate() []error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	oneOf := func(name, value string, valid []string) {
		check(slices.Contains(valid, value), "invalid %s %q, must be one of: %s", name, value, strings.Join(valid, ", "))
	}

	check(c.Server.Port >= 1 && c.Server.Port <= 65535, "server port must be between 1 and 65535, got %d", c.Server.Port)
	check(c.Server.ReadTimeout > 0, "server read timeout must be positive")
	check(c.Server.WriteTimeout > 0, "server write timeout must be positive")
	check(c.Server.ShutdownTimeout > 0, "server shutdown timeout must be positive")

	check(c.Data.DefaultFile != "", "default data file cannot be empty")
	oneOf("data encoding", c.Data.Encoding, validEncodings)
	check(c.Data.MaxUploadBytes > 0, "max upload size must be positive")
	check(c.Data.LoadWorkers > 0, "load workers must be positive")
	check(c.Data.LoadTimeout > 0, "load timeout must be positive")

	oneOf("log level", c.Logger.Level, validLogLevels)
	oneOf("log format", c.Logger.Format, validLogFormats)

	check(c.Security.RateLimitRPS > 0, "rate limit RPS must be positive")
	check(c.Security.RateLimitBurst > 0, "rate limit burst must be positive")

	return errs
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
