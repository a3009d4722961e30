package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/security"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserID is used when CADENCE_USER_ID is unset.
const DefaultUserID = "00000000-0000-0000-0000-000000000001"

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv         string
	LogLevel       string
	UserID         string
	MaxOccurrences int
	ProfilePath    string

	// Database
	DatabaseURL    string
	DatabaseDriver string
	SQLitePath     string

	// Redis
	RedisURL string

	// RabbitMQ
	RabbitMQURL string

	// Outbox
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxRetries   int
	OutboxRetention    time.Duration

	// Worker
	WorkerHealthAddr string

	// CalDAV
	CalDAVURL          string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVSyncSchedule string

	// MCP
	MCPAddr      string
	MCPAuthToken string

	Profile Profile
}

// Profile is the per-user scheduling profile. It seeds pattern analysis
// when there is too little history, and sets slot search defaults.
type Profile struct {
	Timezone        string `yaml:"timezone"`
	WorkStartHour   int    `yaml:"work_start_hour"`
	WorkEndHour     int    `yaml:"work_end_hour"`
	ProductiveHours []int  `yaml:"productive_hours"`
	SlotDuration    int    `yaml:"slot_duration_minutes"`
	SyncSchedule    string `yaml:"sync_schedule"`
}

// DefaultProfile mirrors the analyzer's defaults.
func DefaultProfile() Profile {
	return Profile{
		Timezone:        "Local",
		WorkStartHour:   9,
		WorkEndHour:     17,
		ProductiveHours: []int{9, 10, 14},
		SlotDuration:    60,
		SyncSchedule:    "*/15 * * * *",
	}
}

// ErrInvalidProfile is returned when a profile file fails validation.
var ErrInvalidProfile = errors.New("invalid scheduling profile")

// Location resolves the profile timezone.
func (p Profile) Location() (*time.Location, error) {
	if p.Timezone == "" || p.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(p.Timezone)
}

// Validate checks hour bounds and the timezone.
func (p Profile) Validate() error {
	if p.WorkStartHour < 0 || p.WorkEndHour > 24 || p.WorkStartHour >= p.WorkEndHour {
		return fmt.Errorf("%w: work hours %d-%d", ErrInvalidProfile, p.WorkStartHour, p.WorkEndHour)
	}
	for _, h := range p.ProductiveHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("%w: productive hour %d", ErrInvalidProfile, h)
		}
	}
	if p.SlotDuration <= 0 {
		return fmt.Errorf("%w: slot duration %d", ErrInvalidProfile, p.SlotDuration)
	}
	if _, err := p.Location(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

// Load loads configuration from environment variables, then overlays the
// profile named by CADENCE_CONFIG when set.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	databaseURL := getEnv("DATABASE_URL", "")
	driver := getEnv("DATABASE_DRIVER", "")
	if driver == "" {
		driver = "sqlite"
		if databaseURL != "" {
			driver = "postgres"
		}
	}

	cfg := &Config{
		AppEnv:         getEnv("CADENCE_ENV", "development"),
		LogLevel:       getEnv("CADENCE_LOG_LEVEL", "info"),
		UserID:         getEnv("CADENCE_USER_ID", DefaultUserID),
		MaxOccurrences: getIntEnv("CADENCE_MAX_OCCURRENCES", 1000),
		ProfilePath:    getEnv("CADENCE_CONFIG", ""),

		DatabaseURL:    databaseURL,
		DatabaseDriver: driver,
		SQLitePath:     getEnv("SQLITE_PATH", ""),

		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		OutboxPollInterval: getDurationEnv("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:    getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:   getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxRetention:    getDurationEnv("OUTBOX_RETENTION", 7*24*time.Hour),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),

		CalDAVURL:          getEnv("CALDAV_URL", ""),
		CalDAVUsername:     getEnv("CALDAV_USERNAME", ""),
		CalDAVPassword:     getEnv("CALDAV_PASSWORD", ""),
		CalDAVSyncSchedule: getEnv("CALDAV_SYNC_SCHEDULE", ""),

		MCPAddr:      getEnv("MCP_ADDR", "127.0.0.1:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),

		Profile: DefaultProfile(),
	}

	if cfg.ProfilePath != "" {
		if err := cfg.LoadFile(cfg.ProfilePath); err != nil {
			return nil, err
		}
	}
	if cfg.CalDAVSyncSchedule == "" {
		cfg.CalDAVSyncSchedule = cfg.Profile.SyncSchedule
	}

	return cfg, nil
}

// LoadFile overlays a YAML profile onto the current one. Keys missing from
// the file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := security.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	profile := c.Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	c.Profile = profile
	c.ProfilePath = path
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// CalDAVEnabled reports whether a CalDAV server is configured.
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
