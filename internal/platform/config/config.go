package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StoragePostgres StorageBackend = "postgres"
	StorageMongo    StorageBackend = "mongo"
)

// MinJWTSecretBytes is the minimum accepted HMAC secret length (256-bit class).
const MinJWTSecretBytes = 32

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Notify      NotifyConfig
	Logging     LoggingConfig
	Environment string
}

type ServerConfig struct {
	Host string
	Port int
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	Backend StorageBackend

	DatabaseURL    string
	MaxConnections int

	MongoURI              string
	MongoDatabase         string
	MongoEventsCollection string
	MongoUsersCollection  string
}

// AuthConfig configures access token issuance/verification and password hashing.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	// AccessLifetime is the validity window of issued access tokens.
	AccessLifetime time.Duration
	// Leeway tolerates clock skew when checking expiry.
	Leeway time.Duration

	BcryptCost int
}

type RateLimitConfig struct {
	// LoginPerMinute bounds login attempts per client IP; 0 disables the limit.
	LoginPerMinute int
}

type NotifyConfig struct {
	// NATSURL enables event-change notifications when set.
	NATSURL       string
	SubjectPrefix string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Storage: StorageConfig{
			Backend:               StorageBackend(strings.ToLower(getEnv("STORAGE_BACKEND", string(StorageMemory)))),
			DatabaseURL:           getEnv("DATABASE_URL", ""),
			MaxConnections:        getEnvInt("DATABASE_MAX_CONNECTIONS", 10),
			MongoURI:              getEnv("MONGODB_URI", ""),
			MongoDatabase:         getEnv("MONGODB_DB_NAME", "my_events_backend"),
			MongoEventsCollection: getEnv("MONGODB_EVENTS_COLLECTION", "events"),
			MongoUsersCollection:  getEnv("MONGODB_USERS_COLLECTION", "users"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			Issuer:         getEnv("JWT_ISSUER", "events-api"),
			AccessLifetime: time.Duration(getEnvInt("JWT_ACCESS_MINUTES", 30)) * time.Minute,
			Leeway:         30 * time.Second,
			BcryptCost:     getEnvInt("BCRYPT_COST", 12),
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
		},
		Notify: NotifyConfig{
			NATSURL:       getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "events"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if v := os.Getenv("JWT_LEEWAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("JWT_LEEWAY must be a duration (e.g. 30s): %w", err)
		}
		cfg.Auth.Leeway = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements. Flag overrides are applied before calling it again.
func (c Config) Validate() error {
	if len(c.Auth.JWTSecret) < MinJWTSecretBytes {
		return fmt.Errorf("JWT_SECRET is required and must be at least %d bytes", MinJWTSecretBytes)
	}
	if c.Auth.AccessLifetime <= 0 {
		return fmt.Errorf("JWT_ACCESS_MINUTES must be positive")
	}
	if c.Auth.Leeway < 0 {
		return fmt.Errorf("JWT_LEEWAY must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be a valid TCP port")
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	case StorageMongo:
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORAGE_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory|postgres|mongo, got %q", c.Storage.Backend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
