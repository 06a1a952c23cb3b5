package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Supported DB_DRIVER values
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Bot     BotConfig
	Channel ChannelConfig
	Admin   AdminConfig
	DB      DBConfig
	Session SessionConfig
	Server  ServerConfig
}

// BotConfig holds Telegram bot configuration
type BotConfig struct {
	Token       string  `envconfig:"BOT_TOKEN" required:"true"`
	SendRate    float64 `envconfig:"BOT_SEND_RATE" default:"30"`
	PollTimeout int     `envconfig:"BOT_POLL_TIMEOUT" default:"60"`
}

// ChannelConfig holds the channel members must be subscribed to
type ChannelConfig struct {
	ID           string        `envconfig:"CHANNEL_ID" required:"true"`
	URL          string        `envconfig:"CHANNEL_URL"`
	CheckTimeout time.Duration `envconfig:"CHANNEL_CHECK_TIMEOUT" default:"5s"`
}

// AdminConfig holds the administrator identities
type AdminConfig struct {
	IDs []int64 `envconfig:"ADMIN_IDS"`
}

// DBConfig holds database configuration
type DBConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"mysql"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT"` // 0 selects the driver default
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASSWORD"`
	Database string `envconfig:"DB_NAME" default:"movie_bot"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
}

// SessionConfig holds conversational session settings
type SessionConfig struct {
	TTL           time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// Default ports used when DB_PORT is unset
const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// EffectivePort returns DB_PORT, or the driver's standard port when unset
func (c *DBConfig) EffectivePort() int {
	if c.Port > 0 {
		return c.Port
	}
	if c.Driver == DriverPostgres {
		return defaultPostgresPort
	}
	return defaultMySQLPort
}

// DSN returns the data source name for the configured driver
func (c *DBConfig) DSN() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.EffectivePort(), c.User, c.Password, c.Database, c.SSLMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.EffectivePort(), c.Database)
}

// InviteURL returns the link shown in the subscription prompt
func (c *ChannelConfig) InviteURL() string {
	if c.URL != "" {
		return c.URL
	}
	name := strings.TrimPrefix(c.ID, "@")
	if _, err := strconv.ParseInt(name, 10, 64); err == nil {
		return ""
	}
	return "https://t.me/" + name
}

// Load loads configuration from environment variables.
// envFile, when present on disk, is loaded first without overriding
// variables already set in the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	var cfg Config

	if err := envconfig.Process("", &cfg.Bot); err != nil {
		return nil, fmt.Errorf("failed to load bot config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Channel); err != nil {
		return nil, fmt.Errorf("failed to load channel config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Admin); err != nil {
		return nil, fmt.Errorf("failed to load admin config: %w", err)
	}

	if err := envconfig.Process("", &cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to load db config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Session); err != nil {
		return nil, fmt.Errorf("failed to load session config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.Bot.SendRate <= 0 {
		return fmt.Errorf("BOT_SEND_RATE must be positive")
	}
	if c.Channel.ID == "" {
		return fmt.Errorf("CHANNEL_ID is required")
	}
	if c.Channel.InviteURL() == "" {
		return fmt.Errorf("CHANNEL_URL is required when CHANNEL_ID is numeric")
	}
	if c.Channel.CheckTimeout <= 0 {
		return fmt.Errorf("CHANNEL_CHECK_TIMEOUT must be positive")
	}
	switch c.DB.Driver {
	case DriverMySQL, DriverPostgres:
		if c.DB.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for driver %s", c.DB.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be one of mysql, postgres, memory")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	return nil
}
