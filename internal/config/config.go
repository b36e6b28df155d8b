package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the wiki server and admin CLI.
type Config struct {
	DBPath           string
	ServerPort       int
	LogLevel         string
	SentryDSN        string
	Environment      string
	ShutdownGrace    time.Duration
	RateLimit        RateLimitConfig
	BackupSchedule   string
	BackupCategories []string
}

// RateLimitConfig configures the per-client HTTP rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

const (
	defaultDBPath         = "./data/sotnwiki.db"
	defaultServerPort     = 8080
	defaultLogLevel       = "info"
	defaultEnvironment    = "development"
	defaultShutdownGrace  = 10 * time.Second
	defaultRateLimitRPS   = 5.0
	defaultRateLimitBurst = 20
	defaultRateLimitTTL   = 10 * time.Minute
	defaultBackupSchedule = "@daily"
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		ShutdownGrace: defaultShutdownGrace,
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	rpsValue := getEnv("RATE_LIMIT_RPS", strconv.FormatFloat(defaultRateLimitRPS, 'f', -1, 64))
	rps, err := strconv.ParseFloat(rpsValue, 64)
	if err != nil || rps <= 0 {
		return nil, eris.Errorf("invalid RATE_LIMIT_RPS value: %s", rpsValue)
	}

	burstValue := getEnv("RATE_LIMIT_BURST", strconv.Itoa(defaultRateLimitBurst))
	burst, err := strconv.Atoi(burstValue)
	if err != nil || burst <= 0 {
		return nil, eris.Errorf("invalid RATE_LIMIT_BURST value: %s", burstValue)
	}

	ttlValue := getEnv("RATE_LIMIT_CLIENT_TTL", defaultRateLimitTTL.String())
	ttl, err := time.ParseDuration(ttlValue)
	if err != nil || ttl <= 0 {
		return nil, eris.Errorf("invalid RATE_LIMIT_CLIENT_TTL value: %s", ttlValue)
	}

	cfg.RateLimit = RateLimitConfig{
		RequestsPerSecond: rps,
		Burst:             burst,
		ClientTTL:         ttl,
	}

	// An explicitly empty BACKUP_SCHEDULE disables scheduled backups.
	if value, ok := os.LookupEnv("BACKUP_SCHEDULE"); ok {
		cfg.BackupSchedule = strings.TrimSpace(value)
	} else {
		cfg.BackupSchedule = defaultBackupSchedule
	}

	if categoriesJSON := os.Getenv("BACKUP_CATEGORIES"); categoriesJSON != "" {
		categories, err := parseCategories(categoriesJSON)
		if err != nil {
			return nil, eris.Wrap(err, "parsing BACKUP_CATEGORIES")
		}
		cfg.BackupCategories = categories
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseCategories(raw string) ([]string, error) {
	// Accept either a JSON array of strings or an object with a `categories` field.
	var arrayInput []string
	if err := json.Unmarshal([]byte(raw), &arrayInput); err == nil {
		return trimNonEmpty(arrayInput)
	}

	var objectInput struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal([]byte(raw), &objectInput); err != nil {
		return nil, eris.Wrap(err, "decoding JSON")
	}

	return trimNonEmpty(objectInput.Categories)
}

func trimNonEmpty(values []string) ([]string, error) {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil, eris.New("categories list is empty")
	}

	return result, nil
}
