package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	ServicesFile string `mapstructure:"services_file"`
	SinksFile    string `mapstructure:"sinks_file"`

	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	TokenStoreType      string        `mapstructure:"token_store_type"`
	BBoltPath           string        `mapstructure:"bbolt_path"`
	TokenTTLSeconds     int64         `mapstructure:"token_ttl_seconds"`
	TokenCleanupSeconds int64         `mapstructure:"token_cleanup_interval_seconds"`
	TokenTTL            time.Duration `mapstructure:"-"`
	TokenCleanup        time.Duration `mapstructure:"-"`

	// Demo flow settings.
	DemoService  string `mapstructure:"demo_service"`
	DemoUsername string `mapstructure:"demo_username"`
	DemoPassword string `mapstructure:"demo_password"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "apiwire")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("services_file", "./configs/services.yaml")
	v.SetDefault("sinks_file", "./configs/sinks.yaml")
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("token_store_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/tokens.db")
	v.SetDefault("token_ttl_seconds", int64(time.Hour/time.Second))
	v.SetDefault("token_cleanup_interval_seconds", int64((10*time.Minute)/time.Second))
	v.SetDefault("demo_service", "authsvc")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.TokenTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid token_ttl_seconds (must be positive seconds)")
	}
	if cfg.TokenCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid token_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.TokenTTL = time.Duration(cfg.TokenTTLSeconds) * time.Second
	cfg.TokenCleanup = time.Duration(cfg.TokenCleanupSeconds) * time.Second

	return &cfg, nil
}
