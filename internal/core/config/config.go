// Package config provides configuration management for the rulebuilder service.
package config

import (
	"os"
	"strings"
	"time"
)

// Environment variables read outside viper's key mapping.
const (
	EnvPrefix   = "RB"
	EnvAPIToken = "RB_CATALOG_API_TOKEN"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Database DatabaseConfig
}

// ServerConfig holds configuration for the gRPC editor service.
type ServerConfig struct {
	Host           string
	Port           int
	MetricsPort    int
	RequestTimeout time.Duration
	MaxSessions    int
	// SessionIdle closes sessions unused for this long; zero keeps them open.
	SessionIdle    time.Duration
}

// CatalogConfig holds configuration for the remote rule service.
type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
	// TTL of cached catalog entries; zero never expires.
	TTL time.Duration
	// APIToken comes from RB_CATALOG_API_TOKEN only.
	APIToken string
}

// DatabaseConfig holds the drafts database location.
type DatabaseConfig struct {
	URL string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50061,
			MetricsPort:    9464,
			RequestTimeout: 30 * time.Second,
			MaxSessions:    1000,
			SessionIdle:    30 * time.Minute,
		},
		Catalog: CatalogConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 10 * time.Second,
			TTL:     5 * time.Minute,
		},
		Database: DatabaseConfig{
			URL: "sqlite://./data/rulebuilder.db",
		},
	}
}

// APIToken returns the rule service token from the environment.
func APIToken() string {
	return strings.TrimSpace(os.Getenv(EnvAPIToken))
}
