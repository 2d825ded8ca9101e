package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"roomly/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Booking       BookingConfig       `yaml:"booking"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Backup        BackupConfig        `yaml:"backup"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	API           APIConfig           `yaml:"api"`
	Rooms         []models.Room       `yaml:"rooms"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BookingConfig struct {
	MaxBookingDays int `yaml:"max_booking_days"`
}

type SchedulerConfig struct {
	TickInterval       string `yaml:"tick_interval"`
	LookaheadDays      int    `yaml:"lookahead_days"`
	DefaultLeadMinutes int    `yaml:"default_lead_minutes"`
	DisplayTimezone    string `yaml:"display_timezone"`
}

// DisplayLocation returns the timezone reminder messages are rendered in.
// Unset or unknown names fall back to UTC.
func (c SchedulerConfig) DisplayLocation() *time.Location {
	if c.DisplayTimezone != "" {
		if loc, err := time.LoadLocation(c.DisplayTimezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// Tick parses the scan interval, defaulting to 2 minutes.
func (c SchedulerConfig) Tick() time.Duration {
	if c.TickInterval != "" {
		if d, err := time.ParseDuration(c.TickInterval); err == nil && d > 0 {
			return d
		}
	}
	return time.Duration(models.DefaultSchedulerTickSeconds) * time.Second
}

// Lookahead returns the scan window, defaulting to 7 days.
func (c SchedulerConfig) Lookahead() time.Duration {
	days := c.LookaheadDays
	if days <= 0 {
		days = models.DefaultLookaheadDays
	}
	return time.Duration(days) * 24 * time.Hour
}

type NotificationsConfig struct {
	Mode  string      `yaml:"mode"` // "smtp" or "log"
	SMTP  SMTPConfig  `yaml:"smtp"`
	Retry RetryConfig `yaml:"retry"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type RetryConfig struct {
	MaxAttempts  int    `yaml:"max_attempts"`
	InitialDelay string `yaml:"initial_delay"`
	MaxDelay     string `yaml:"max_delay"`
}

func (c RetryConfig) InitialDelayDuration() time.Duration {
	if d, err := time.ParseDuration(c.InitialDelay); err == nil && d > 0 {
		return d
	}
	return 2 * time.Second
}

func (c RetryConfig) MaxDelayDuration() time.Duration {
	if d, err := time.ParseDuration(c.MaxDelay); err == nil && d > 0 {
		return d
	}
	return time.Minute
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Interval      string `yaml:"interval"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Load reads the YAML config with environment variable expansion. A .env
// file, when present, is loaded first so ${VAR} references resolve.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expanded, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth is enabled but no api keys are configured")
	}

	mode := c.Notifications.Mode
	if mode != "" && mode != "smtp" && mode != "log" {
		return fmt.Errorf("unknown notifications mode %q", mode)
	}
	if mode == "smtp" {
		if c.Notifications.SMTP.Host == "" || c.Notifications.SMTP.From == "" {
			return errors.New("smtp notifications require host and from address")
		}
	}

	return ValidateRooms(c.Rooms)
}

// ValidateRooms rejects a catalog with missing or duplicate room IDs.
func ValidateRooms(rooms []models.Room) error {
	seen := make(map[int64]bool, len(rooms))
	for _, room := range rooms {
		if room.ID == 0 {
			return fmt.Errorf("room %q has invalid ID 0", room.Name)
		}
		if seen[room.ID] {
			return fmt.Errorf("duplicate room ID found: %d", room.ID)
		}
		seen[room.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = models.RateLimitRPS
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = models.RateLimitBurst
	}

	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.DefaultMaxBookingDays
	}

	if c.Scheduler.LookaheadDays == 0 {
		c.Scheduler.LookaheadDays = models.DefaultLookaheadDays
	}
	if c.Scheduler.DefaultLeadMinutes == 0 {
		c.Scheduler.DefaultLeadMinutes = models.DefaultReminderLeadMinutes
	}

	if c.Notifications.Mode == "" {
		c.Notifications.Mode = "log"
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
