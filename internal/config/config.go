package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Cache     CacheConfig
	StoreDB   StoreDBConfig
	Guest     GuestConfig
	Rooms     RoomsConfig
	Functions FunctionsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"creatorhub-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// CacheConfig holds Redis settings for sessions, presence and queues.
type CacheConfig struct {
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StoreDBConfig holds durable store settings. The profile store can run on
// SQLite (default) or MySQL; the remaining collections always use SQLite.
type StoreDBConfig struct {
	Type string `envconfig:"STORE_DB_TYPE" default:"sqlite"` // sqlite or mysql
	Path string `envconfig:"STORE_DB_PATH" default:"./data/creatorhub.db"`
	// MySQL settings (profile store only)
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"3306"`
	Name     string `envconfig:"STORE_DB_NAME" default:"creatorhub"`
	User     string `envconfig:"STORE_DB_USER" default:"root"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
}

// GuestConfig holds anonymous guest session settings.
type GuestConfig struct {
	TTL             time.Duration `envconfig:"GUEST_SESSION_TTL" default:"24h"`
	StartingCredits int64         `envconfig:"GUEST_STARTING_CREDITS" default:"40"`
}

// RoomsConfig holds presence and queue settings.
type RoomsConfig struct {
	PresenceTTL        time.Duration `envconfig:"ROOMS_PRESENCE_TTL" default:"45s"`
	DefaultWaitMinutes int           `envconfig:"ROOMS_DEFAULT_WAIT_MINUTES" default:"5"`
}

// FunctionsConfig holds the external settlement functions endpoint.
type FunctionsConfig struct {
	BaseURL    string        `envconfig:"FUNCTIONS_BASE_URL" default:""`
	ServiceKey string        `envconfig:"FUNCTIONS_SERVICE_KEY" default:""`
	Timeout    time.Duration `envconfig:"FUNCTIONS_TIMEOUT" default:"20s"`
}

// MySQLDSN returns the MySQL data source name for the profile store.
func (s *StoreDBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.Port, s.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
