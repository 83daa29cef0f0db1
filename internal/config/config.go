// Package config provides configuration management for the LacyLights DDP server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the server.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// DDP receiver configuration
	DDPListenAddr      string
	DDPMaxBufferSize   int
	DDPPixelCount      int
	DDPPollInterval    time.Duration
	DDPReadWindow      time.Duration
	DDPImplicitOutputs bool

	// Status reply (answered on device id 251)
	StatusManufacturer string
	StatusModel        string

	// Art-Net bridge configuration
	ArtNetEnabled   bool
	ArtNetPort      int
	ArtNetBroadcast string

	// Prometheus endpoint
	MetricsEnabled bool

	// CORS configuration
	CORSOrigin string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "8000"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./ddp.db"),

		// DDP
		DDPListenAddr:      getEnv("DDP_LISTEN_ADDR", ":4048"),
		DDPMaxBufferSize:   getEnvInt("DDP_MAX_BUFFER_SIZE", 2048),
		DDPPixelCount:      getEnvInt("DDP_PIXEL_COUNT", 30),
		DDPPollInterval:    time.Duration(getEnvInt("DDP_POLL_INTERVAL_MS", 2)) * time.Millisecond,
		DDPReadWindow:      time.Duration(getEnvInt("DDP_READ_WINDOW_MS", 1)) * time.Millisecond,
		DDPImplicitOutputs: getEnvBool("DDP_IMPLICIT_OUTPUTS", true),

		// Status
		StatusManufacturer: getEnv("STATUS_MANUFACTURER", "lacylights"),
		StatusModel:        getEnv("STATUS_MODEL", "ddp-receiver"),

		// Art-Net
		ArtNetEnabled:   getEnvBool("ARTNET_ENABLED", false),
		ArtNetPort:      getEnvInt("ARTNET_PORT", 6454),
		ArtNetBroadcast: getEnv("ARTNET_BROADCAST", "255.255.255.255"),

		// Metrics
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
