package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server holds the settings of the central API process.
type Server struct {
	Port              string
	DBName            string
	Location          *time.Location
	LogLevel          string
	LogFormat         string
	DBDebug           bool
	RetentionDays     int
	RetentionSchedule string
}

// Agent holds the settings of the end-user agent.
type Agent struct {
	ServerURL          string
	Hostname           string
	Username           string
	LogLevel           string
	IdleThreshold      time.Duration
	CheckpointInterval time.Duration
	SnapshotInterval   time.Duration
	MouseInterval      time.Duration
	PeriodInterval     time.Duration
	PollInterval       time.Duration
}

// LoadDotEnv reads .env if present. A missing file is not an error.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return n, nil
}

func getSeconds(key string, fallback int) (time.Duration, error) {
	n, err := getInt(key, fallback)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", key, n)
	}
	return time.Duration(n) * time.Second, nil
}

// LoadServer reads the server configuration from the environment.
func LoadServer() (Server, error) {
	cfg := Server{
		Port:              getEnv("SERVER_PORT", ":8080"),
		DBName:            getEnv("DB_NAME", "activity_monitor.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		DBDebug:           getEnv("DB_DEBUG", "0") == "1",
		RetentionSchedule: getEnv("RETENTION_SCHEDULE", ""),
	}

	tz := getEnv("TIMEZONE", "America/Sao_Paulo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.RetentionDays, err = getInt("RETENTION_DAYS", 30); err != nil {
		return cfg, err
	}
	if cfg.RetentionDays <= 0 {
		return cfg, fmt.Errorf("RETENTION_DAYS: must be positive, got %d", cfg.RetentionDays)
	}
	return cfg, nil
}

// LoadAgent reads the agent configuration from the environment. Hostname and
// username default to the machine's own values.
func LoadAgent() (Agent, error) {
	cfg := Agent{
		ServerURL: getEnv("SERVER_URL", "http://localhost:8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	host, _ := os.Hostname()
	cfg.Hostname = getEnv("HOSTNAME_OVERRIDE", host)
	cfg.Username = getEnv("USERNAME_OVERRIDE", currentUser())
	if cfg.Hostname == "" || cfg.Username == "" {
		return cfg, fmt.Errorf("could not determine hostname/username; set HOSTNAME_OVERRIDE and USERNAME_OVERRIDE")
	}

	var err error
	durations := []struct {
		dst      *time.Duration
		key      string
		fallback int
	}{
		{&cfg.IdleThreshold, "IDLE_THRESHOLD_SEC", 60},
		{&cfg.CheckpointInterval, "CHECKPOINT_INTERVAL_SEC", 60},
		{&cfg.SnapshotInterval, "SNAPSHOT_INTERVAL_SEC", 10},
		{&cfg.MouseInterval, "MOUSE_INTERVAL_SEC", 5},
		{&cfg.PeriodInterval, "PERIOD_CHECK_INTERVAL_SEC", 10},
		{&cfg.PollInterval, "POLL_INTERVAL_SEC", 2},
	}
	for _, d := range durations {
		if *d.dst, err = getSeconds(d.key, d.fallback); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func currentUser() string {
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
