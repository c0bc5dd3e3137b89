package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER
const (
	DriverPostgres = "postgres"
	DriverGorm     = "gorm"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database"`

	// Device lifecycle events
	Events EventsConfig `json:"events"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// CORS configuration
	CORS CORSConfig `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	GinMode         string        `json:"gin_mode"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver     string `json:"driver"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	User       string `json:"user"`
	Password   string `json:"password"`
	DBName     string `json:"db_name"`
	SSLMode    string `json:"ssl_mode"`
	MaxConns   int    `json:"max_conns"`
	MinConns   int    `json:"min_conns"`
	SQLitePath string `json:"sqlite_path"`
}

// EventsConfig holds MQTT settings for device lifecycle events
type EventsConfig struct {
	Enabled        bool          `json:"enabled"`
	BrokerHost     string        `json:"broker_host"`
	BrokerPort     int           `json:"broker_port"`
	BrokerUser     string        `json:"broker_user"`
	BrokerPass     string        `json:"broker_pass"`
	UseTLS         bool          `json:"use_tls"`
	CACertPath     string        `json:"ca_cert_path"`
	ClientID       string        `json:"client_id"`
	TopicPrefix    string        `json:"topic_prefix"`
	PublishTimeout time.Duration `json:"publish_timeout"`

	// State reports from devices; empty StateTopic disables the listener
	StateTopic     string `json:"state_topic"`
	StateQueueSize int    `json:"state_queue_size"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout, stderr, or file path
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// Load loads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	// A missing .env is fine, variables may be set directly
	_ = godotenv.Load()

	env := &envReader{}

	config := &Config{
		Server: ServerConfig{
			Port:            env.getEnv("PORT", "8080"),
			ReadTimeout:     env.getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    env.getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     env.getDuration("IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: env.getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			GinMode:         env.getEnv("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(env.getEnv("STORE_DRIVER", DriverPostgres)),
			Host:       env.getEnv("POSTGRES_HOST", "localhost"),
			Port:       env.getInt("POSTGRES_PORT", 5432),
			User:       env.getEnv("POSTGRES_USER", ""),
			Password:   env.getEnv("POSTGRES_PASSWORD", ""),
			DBName:     env.getEnv("POSTGRES_DB", "devices"),
			SSLMode:    env.getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns:   env.getInt("POSTGRES_MAX_CONNS", 25),
			MinConns:   env.getInt("POSTGRES_MIN_CONNS", 5),
			SQLitePath: env.getEnv("SQLITE_PATH", "./data/devices.db"),
		},
		Events: EventsConfig{
			Enabled:        env.getBool("EVENTS_ENABLED", false),
			BrokerHost:     env.getEnv("BROKER_HOST", "localhost"),
			BrokerPort:     env.getInt("BROKER_PORT", 1883),
			BrokerUser:     env.getEnv("BROKER_USER", ""),
			BrokerPass:     env.getEnv("BROKER_PASS", ""),
			UseTLS:         env.getBool("BROKER_TLS", false),
			CACertPath:     env.getEnv("BROKER_CA_FILE", ""),
			ClientID:       env.getEnv("MQTT_CLIENT_ID", "devices-api"),
			TopicPrefix:    strings.TrimSuffix(env.getEnv("EVENTS_TOPIC_PREFIX", "devices/events"), "/"),
			PublishTimeout: env.getDuration("MQTT_PUBLISH_TIMEOUT", 5*time.Second),
			StateTopic:     env.getEnv("EVENTS_STATE_TOPIC", ""),
			StateQueueSize: env.getInt("EVENTS_STATE_QUEUE_SIZE", 1024),
		},
		Logging: LoggingConfig{
			Level:        env.getEnv("LOG_LEVEL", "info"),
			Format:       env.getEnv("LOG_FORMAT", "text"),
			Output:       env.getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: env.getBool("LOG_ENABLE_CALLER", false),
		},
		CORS: CORSConfig{
			AllowedOrigins:   env.getStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   env.getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders:   env.getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}),
			ExposedHeaders:   env.getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length", "X-Request-ID"}),
			AllowCredentials: env.getBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           env.getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
	}

	if err := env.err(); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverGorm:
		if c.Database.User == "" {
			return fmt.Errorf("POSTGRES_USER is required for store driver %q", c.Database.Driver)
		}
		if c.Database.Password == "" {
			return fmt.Errorf("POSTGRES_PASSWORD is required for store driver %q", c.Database.Driver)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for store driver %q", c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (expected postgres, gorm, sqlite or memory)", c.Database.Driver)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.Events.Enabled && c.Events.BrokerHost == "" {
		return fmt.Errorf("BROKER_HOST is required when EVENTS_ENABLED is set")
	}
	if c.Events.StateTopic != "" && c.Events.StateQueueSize <= 0 {
		return fmt.Errorf("EVENTS_STATE_QUEUE_SIZE must be positive")
	}
	if c.CORS.AllowCredentials && containsWildcard(c.CORS.AllowedOrigins) {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be combined with a wildcard origin")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.Events.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Events.BrokerHost, c.Events.BrokerPort)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// envReader reads typed values and collects parse failures instead of exiting
type envReader struct {
	errs []error
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func (r *envReader) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (r *envReader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return intValue
}

func (r *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	r.errs = append(r.errs, fmt.Errorf("invalid %s: %q (expected true/false or 1/0)", key, value))
	return defaultValue
}

func (r *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return duration
}

func (r *envReader) getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
