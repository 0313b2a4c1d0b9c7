package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings for the portal and the stub API.
type Config struct {
	PatientAPIBase string
	Port           string
	MockAPIPort    string
	APITimeout     time.Duration
	PreviewLimit   int
	LogLevel       string

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	loaded := godotenv.Load(envFiles...) == nil

	cfg := &Config{
		PatientAPIBase: getenv("PATIENT_API_BASE", "http://localhost:5000"),
		Port:           getenv("PORT", "8080"),
		MockAPIPort:    getenv("MOCKAPI_PORT", "5000"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		EnvFileLoaded:  loaded,
	}

	timeout, err := time.ParseDuration(getenv("API_TIMEOUT", "2s"))
	if err != nil {
		return nil, fmt.Errorf("API_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("API_TIMEOUT must be positive, got %s", timeout)
	}
	cfg.APITimeout = timeout

	limit, err := strconv.Atoi(getenv("PREVIEW_LIMIT", "5"))
	if err != nil {
		return nil, fmt.Errorf("PREVIEW_LIMIT: %w", err)
	}
	if limit < 1 {
		return nil, fmt.Errorf("PREVIEW_LIMIT must be at least 1, got %d", limit)
	}
	cfg.PreviewLimit = limit

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
