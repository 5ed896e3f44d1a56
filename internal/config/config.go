package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config represents application configuration
type Config struct {
	Server      ServerConfig      `json:"server"`
	Database    DatabaseConfig    `json:"database"`
	Store       StoreConfig       `json:"store"`
	Redis       RedisConfig       `json:"redis"`
	Logging     LoggingConfig     `json:"logging"`
	Security    SecurityConfig    `json:"security"`
	Retention   RetentionConfig   `json:"retention"`
	ObjectStore ObjectStoreConfig `json:"object_store"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port            string        `json:"port"`
	Host            string        `json:"host"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	Environment     string        `json:"environment"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"dbname"`
	SSLMode        string        `json:"sslmode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleTime    time.Duration `json:"max_idle_time"`
	MigrationsPath string        `json:"migrations_path"`
}

// StoreConfig selects the entity store backend
type StoreConfig struct {
	Driver string `json:"driver"` // postgres, memory
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Enabled  bool          `json:"enabled"`
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	PoolSize int           `json:"pool_size"`
	Timeout  time.Duration `json:"timeout"`
	Channel  string        `json:"channel"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json, text
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	JWTSecret   string   `json:"jwt_secret"`
	JWTIssuer   string   `json:"jwt_issuer"`
	CORSOrigins []string `json:"cors_origins"`
}

// RetentionConfig represents soft-delete retention and purge configuration
type RetentionConfig struct {
	Window         time.Duration `json:"window"`
	Schedule       string        `json:"schedule"`
	BatchSize      int           `json:"batch_size"`
	ObjectAttempts int           `json:"object_attempts"`
	ObjectBackoff  time.Duration `json:"object_backoff"`
	LockName       string        `json:"lock_name"`
	LockTTL        time.Duration `json:"lock_ttl"`
}

// ObjectStoreConfig represents remote attachment storage configuration
type ObjectStoreConfig struct {
	Driver       string `json:"driver"` // s3, memory
	Bucket       string `json:"bucket"`
	Region       string `json:"region"`
	Endpoint     string `json:"endpoint"`
	UsePathStyle bool   `json:"use_path_style"`
}

// Load loads configuration from environment variables and defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "fixora"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 20),
			MaxIdleTime:    getEnvDuration("DB_MAX_IDLE_TIME", 30*time.Minute),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
			Timeout:  getEnvDuration("REDIS_TIMEOUT", 5*time.Second),
			Channel:  getEnv("REDIS_NOTIFY_CHANNEL", "fixora:notifications"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			JWTIssuer:   getEnv("JWT_ISSUER", ""),
			CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"*"}),
		},
		Retention: RetentionConfig{
			Window:         getEnvDuration("RETENTION_WINDOW", 720*time.Hour),
			Schedule:       getEnv("PURGE_SCHEDULE", "0 3 * * *"),
			BatchSize:      getEnvInt("PURGE_BATCH_SIZE", 100),
			ObjectAttempts: getEnvInt("PURGE_OBJECT_ATTEMPTS", 3),
			ObjectBackoff:  getEnvDuration("PURGE_OBJECT_BACKOFF", 200*time.Millisecond),
			LockName:       getEnv("PURGE_LOCK_NAME", "fixora:purge"),
			LockTTL:        getEnvDuration("PURGE_LOCK_TTL", time.Hour),
		},
		ObjectStore: ObjectStoreConfig{
			Driver:       strings.ToLower(getEnv("OBJECT_STORE_DRIVER", "s3")),
			Bucket:       getEnv("OBJECT_STORE_BUCKET", ""),
			Region:       getEnv("OBJECT_STORE_REGION", "us-east-1"),
			Endpoint:     getEnv("OBJECT_STORE_ENDPOINT", ""),
			UsePathStyle: getEnvBool("OBJECT_STORE_PATH_STYLE", false),
		},
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	switch c.ObjectStore.Driver {
	case "s3":
		if c.ObjectStore.Bucket == "" {
			return fmt.Errorf("object store bucket is required for driver s3")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported object store driver: %s", c.ObjectStore.Driver)
	}

	if c.Retention.Window <= 0 {
		return fmt.Errorf("retention window must be positive")
	}
	if c.Retention.BatchSize <= 0 {
		return fmt.Errorf("purge batch size must be positive")
	}
	if c.Retention.ObjectAttempts <= 0 {
		return fmt.Errorf("purge object attempts must be positive")
	}
	if c.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(c.Retention.Schedule); err != nil {
			return fmt.Errorf("invalid purge schedule %q: %w", c.Retention.Schedule, err)
		}
	}

	if c.Security.JWTSecret == "" || c.Security.JWTSecret == "your-secret-key-change-in-production" {
		if c.IsProduction() {
			return fmt.Errorf("JWT secret must be set in production")
		}
	}

	return nil
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis host:port address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return defaultValue
}
