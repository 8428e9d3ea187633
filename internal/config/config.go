package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Config holds runtime settings for the server.
type Config struct {
	ServerAddr       string
	StorageRoot      string
	MaxActiveJobs    int
	MaxUploadBytes   int64
	SweepInterval    time.Duration
	Retention        time.Duration
	ErrorRetention   time.Duration
	RetentionEnabled bool
	AllowedOrigins   []string
}

// Load reads environment variables and returns normalized runtime config.
func Load() Config {
	return Config{
		ServerAddr:       getEnv("SERVER_ADDR", ":8080"),
		StorageRoot:      getEnv("STORAGE_ROOT", "./data"),
		MaxActiveJobs:    getEnvInt("MAX_ACTIVE_JOBS", runtime.NumCPU()),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 2048)) << 20,
		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", time.Hour),
		Retention:        getEnvDuration("RETENTION", 24*time.Hour),
		ErrorRetention:   getEnvDuration("ERROR_RETENTION", 0),
		RetentionEnabled: getEnv("RETENTION_ENABLED", "true") == "true",
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
}

// UploadsDir is where client uploads land before conversion.
func (c Config) UploadsDir() string { return filepath.Join(c.StorageRoot, "uploads") }

// WorkDir holds fetched remote media awaiting encode.
func (c Config) WorkDir() string { return filepath.Join(c.StorageRoot, "work") }

// OutputDir holds finished artifacts until the sweeper reclaims them.
func (c Config) OutputDir() string { return filepath.Join(c.StorageRoot, "output") }

// JobsDir holds one snapshot file per job.
func (c Config) JobsDir() string { return filepath.Join(c.StorageRoot, "jobs") }

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out int
	_, err := fmt.Sscanf(value, "%d", &out)
	if err != nil || out <= 0 {
		return fallback
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	out, err := time.ParseDuration(value)
	if err != nil || out < 0 {
		return fallback
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
