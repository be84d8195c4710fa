package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// UpstreamConfig points at the academy REST API that owns credentials,
// users and academic periods.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects the durable backend for the operator's session
// records. "bolt" needs no external services and is the default.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	BoltPath string         `mapstructure:"bolt_path"`
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	TokenSecret    string        `mapstructure:"token_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	StorageBackendBolt     = "bolt"
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a config entirely from environment variables,
// used for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:           getEnv("SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnv("UPSTREAM_BASE_URL", ""),
			APIKey:  getEnv("UPSTREAM_API_KEY", ""),
			Timeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			Backend:  getEnv("STORAGE_BACKEND", StorageBackendBolt),
			BoltPath: getEnv("STORAGE_BOLT_PATH", "portal.db"),
			Database: DatabaseConfig{
				MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 10),
				MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
				ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
				ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
				Source:          getEnv("DATABASE_SOURCE", ""),
			},
		},
		Security: SecurityConfig{
			TokenSecret:    getEnv("SECURITY_TOKEN_SECRET", ""),
			AccessTokenTTL: getEnvAsDuration("SECURITY_ACCESS_TOKEN_TTL", 12*time.Hour),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Upstream.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("upstream config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *UpstreamConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case StorageBackendBolt:
		if c.BoltPath == "" {
			return errors.New("bolt_path is required for the bolt backend")
		}
	case StorageBackendPostgres:
		if c.Database.Source == "" {
			return errors.New("database.source is required for the postgres backend")
		}
		if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
			return errors.New("database.max_idle_conns cannot be greater than max_open_conns")
		}
	case StorageBackendMemory:
		// nothing to check; state is lost on restart
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if len(c.TokenSecret) < 32 {
		return errors.New("token_secret must be at least 32 characters")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("access_token_ttl must be positive")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}
