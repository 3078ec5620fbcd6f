package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Backend   BackendConfig   `mapstructure:"backend"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Chat      ChatConfig      `mapstructure:"chat"`
}

// BackendConfig holds connection settings for the platform API
type BackendConfig struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ShareToken   string        `mapstructure:"share_token"`
	SessionToken string        `mapstructure:"session_token"`
}

// RetryConfig controls the transport retry policy
type RetryConfig struct {
	Max     int     `mapstructure:"max"`
	Backoff float64 `mapstructure:"backoff"`
}

// RateLimitConfig throttles outgoing API requests
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// GatewayConfig holds settings for the local gateway server
type GatewayConfig struct {
	Listen    string `mapstructure:"listen"`
	LoginPath string `mapstructure:"login_path"`
	Metrics   bool   `mapstructure:"metrics"`
}

// ChatConfig holds settings for the interactive chat view
type ChatConfig struct {
	PageSize     int           `mapstructure:"page_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Global config instance
var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.coursechat")
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "coursechat"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.AutomaticEnv()
	bindEnvironmentVariables()

	// Missing config file is fine; defaults and env cover everything
	_ = viper.ReadInConfig()

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("backend.url", "http://localhost:8000")
	viper.SetDefault("backend.timeout", 30*time.Second)

	viper.SetDefault("retry.max", 5)
	viper.SetDefault("retry.backoff", 2.0)

	viper.SetDefault("rate_limit.enabled", false)
	viper.SetDefault("rate_limit.rps", 10.0)
	viper.SetDefault("rate_limit.burst", 5)

	viper.SetDefault("logging.log_file", "./.coursechat/system.log")
	viper.SetDefault("logging.preserve", true)
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("gateway.listen", ":8080")
	viper.SetDefault("gateway.login_path", "/login")
	viper.SetDefault("gateway.metrics", true)

	viper.SetDefault("chat.page_size", 25)
	viper.SetDefault("chat.poll_interval", time.Second)
}

// bindEnvironmentVariables maps environment variables onto viper keys so the
// gateway can be configured without a settings file
func bindEnvironmentVariables() {
	viper.BindEnv("backend.url", "COURSECHAT_BACKEND_URL")
	viper.BindEnv("backend.share_token", "COURSECHAT_SHARE_TOKEN")
	viper.BindEnv("backend.session_token", "COURSECHAT_SESSION_TOKEN")
	viper.BindEnv("gateway.listen", "COURSECHAT_GATEWAY_LISTEN")
	viper.BindEnv("logging.level", "COURSECHAT_LOG_LEVEL")
}

// BuildSettingsPath resolves a filename relative to the settings directory
func BuildSettingsPath(filename string) string {
	return filepath.Join("./.coursechat", filename)
}
