package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller on the returned struct.
func LoadConfig(configPath string) (*Config, error) {
	def := Default()
	v := viper.New()

	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.metrics_port", def.Server.MetricsPort)
	v.SetDefault("server.request_timeout", def.Server.RequestTimeout.String())
	v.SetDefault("server.max_sessions", def.Server.MaxSessions)
	v.SetDefault("server.session_idle", def.Server.SessionIdle.String())
	v.SetDefault("catalog.base_url", def.Catalog.BaseURL)
	v.SetDefault("catalog.timeout", def.Catalog.Timeout.String())
	v.SetDefault("catalog.ttl", def.Catalog.TTL.String())
	v.SetDefault("database.url", def.Database.URL)

	// RB_SERVER_PORT, RB_CATALOG_BASE_URL, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := validateNoSecretsInConfig(configPath); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			MetricsPort:    v.GetInt("server.metrics_port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxSessions:    v.GetInt("server.max_sessions"),
			SessionIdle:    v.GetDuration("server.session_idle"),
		},
		Catalog: CatalogConfig{
			BaseURL:  v.GetString("catalog.base_url"),
			Timeout:  v.GetDuration("catalog.timeout"),
			TTL:      v.GetDuration("catalog.ttl"),
			APIToken: APIToken(),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks port ranges, positive limits and URL shapes.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	// 0 disables the metrics listener
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("metrics_port must be between 0 and 65535, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.MetricsPort != 0 && cfg.Server.MetricsPort == cfg.Server.Port {
		return fmt.Errorf("metrics_port must differ from port %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive, got %d", cfg.Server.MaxSessions)
	}
	if cfg.Server.SessionIdle < 0 {
		return fmt.Errorf("session_idle must not be negative, got %v", cfg.Server.SessionIdle)
	}
	if cfg.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog timeout must be positive, got %v", cfg.Catalog.Timeout)
	}
	if cfg.Catalog.TTL < 0 {
		return fmt.Errorf("catalog ttl must not be negative, got %v", cfg.Catalog.TTL)
	}
	u, err := url.Parse(cfg.Catalog.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("catalog base_url must be an http(s) URL, got %q", cfg.Catalog.BaseURL)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
// The file is read on its own so a token set in the environment is not mistaken
// for one in the file.
func validateNoSecretsInConfig(configPath string) error {
	fv := viper.New()
	fv.SetConfigFile(configPath)
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if fv.IsSet("api_token") || fv.IsSet("catalog.api_token") {
		return fmt.Errorf("API tokens not allowed in config files (use %s environment variable)", EnvAPIToken)
	}
	return nil
}
