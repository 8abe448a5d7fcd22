package logger

import (
	"io"
	"os"
	"strconv"
)

// Config holds logger configuration.
type Config struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // explicit destination; overrides Environment and File
	ServiceName string    // "service" field on every line

	// Environment is local, dev or prod. Outside local, lines also go to File.
	Environment string
	File        FileConfig
}

// FileConfig configures the rotated log file.
type FileConfig struct {
	Path       string
	Only       bool // skip stdout
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig returns a JSON logger at info level writing to stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		Output:      os.Stdout,
		ServiceName: "orderbatch",
		Environment: "local",
	}
}

// ConfigFromEnv reads LOG_*, SERVICE_NAME and APP_ENV.
func ConfigFromEnv() *Config {
	return &Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      getEnv("LOG_FORMAT", "json"),
		ServiceName: getEnv("SERVICE_NAME", "orderbatch"),
		Environment: getEnv("APP_ENV", "local"),
		File: FileConfig{
			Path:       getEnv("LOG_FILE", "/var/log/orderbatch/batch.log"),
			Only:       getEnvBool("LOG_FILE_ONLY", false),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 7),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return i
}
