// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for CORS and cookies.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Token holds JWT signing settings for access and refresh tokens.
	Token TokenConfig

	// Media holds media-host (S3) and upload settings.
	Media MediaConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so container
// orchestrators can manage each independently. If DATABASE_URL is set, it
// takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "viewtube").
	User string

	// Password is the MariaDB password (default: "viewtube").
	Password string

	// Name is the database name (default: "viewtube").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// TokenConfig holds JWT signing settings. Access and refresh tokens are
// signed with distinct secrets so a leaked access secret cannot be used to
// mint refresh tokens.
type TokenConfig struct {
	// AccessSecret signs short-lived access tokens.
	AccessSecret string

	// RefreshSecret signs long-lived refresh tokens.
	RefreshSecret string

	// AccessTTL is the access token lifetime (default: 15m).
	AccessTTL time.Duration

	// RefreshTTL is the refresh token lifetime (default: 240h / 10 days).
	RefreshTTL time.Duration
}

// MediaConfig holds media-host and upload settings. Avatars and cover images
// are stored on an S3-compatible object store (AWS S3 or MinIO).
type MediaConfig struct {
	// MaxUploadSize is the maximum upload file size in bytes.
	MaxUploadSize int64

	// S3Region is the object store region.
	S3Region string

	// S3Endpoint overrides the S3 endpoint for MinIO-style deployments.
	// Empty means the default AWS endpoint.
	S3Endpoint string

	// S3Bucket is the bucket holding uploaded media.
	S3Bucket string

	// S3AccessKey and S3SecretKey are static credentials for the store.
	S3AccessKey string
	S3SecretKey string

	// PublicBaseURL is the URL prefix under which uploaded objects are
	// publicly reachable (CDN or bucket website endpoint).
	PublicBaseURL string
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "viewtube"),
			Password:        getEnv("DB_PASSWORD", "viewtube"),
			Name:            getEnv("DB_NAME", "viewtube"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Token: TokenConfig{
			AccessSecret:  getEnv("ACCESS_TOKEN_SECRET", ""),
			RefreshSecret: getEnv("REFRESH_TOKEN_SECRET", ""),
			AccessTTL:     getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTTL:    getEnvDuration("REFRESH_TOKEN_TTL", 240*time.Hour),
		},

		Media: MediaConfig{
			MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
			S3Region:      getEnv("MEDIA_S3_REGION", "us-east-1"),
			S3Endpoint:    getEnv("MEDIA_S3_ENDPOINT", ""),
			S3Bucket:      getEnv("MEDIA_S3_BUCKET", "viewtube-media"),
			S3AccessKey:   getEnv("MEDIA_S3_ACCESS_KEY", ""),
			S3SecretKey:   getEnv("MEDIA_S3_SECRET_KEY", ""),
			PublicBaseURL: getEnv("MEDIA_PUBLIC_BASE_URL", ""),
		},
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Token.AccessSecret == "" || cfg.Token.RefreshSecret == "" {
			return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required in production")
		}
		if len(cfg.Token.AccessSecret) < 32 || len(cfg.Token.RefreshSecret) < 32 {
			return nil, fmt.Errorf("token secrets must be at least 32 characters in production")
		}
		if cfg.Token.AccessSecret == cfg.Token.RefreshSecret {
			return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
		}
	}

	// Provide dev-only default secrets so local dev works without .env.
	if cfg.Token.AccessSecret == "" {
		cfg.Token.AccessSecret = "dev-access-secret-do-not-use-in-production!!"
	}
	if cfg.Token.RefreshSecret == "" {
		cfg.Token.RefreshSecret = "dev-refresh-secret-do-not-use-in-production!!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInt64 reads an int64 env var or returns the default.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "240h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
