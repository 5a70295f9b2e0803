package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig
	Gateway GatewayConfig
	Storage StorageConfig
	Log     LogConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
}

// GatewayConfig holds the OpenClaw gateway configuration
type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds the data and workspace directories
type StorageConfig struct {
	DataDir      string `mapstructure:"data_dir"`
	WorkspaceDir string `mapstructure:"workspace_dir"`
	ActivityDB   string `mapstructure:"activity_db"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads the configuration from config.yaml (or the file named by
// CONFIG_PATH), applying defaults and OPENCLAW_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3000")
	v.SetDefault("gateway.base_url", "http://127.0.0.1:18789")
	v.SetDefault("gateway.model", "openclaw")
	v.SetDefault("gateway.timeout", 5*time.Minute)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.workspace_dir", "/data/.openclaw/workspace")
	v.SetDefault("storage.activity_db", "activity.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("openclaw")
	v.AutomaticEnv()
	_ = v.BindEnv("gateway.token", "OPENCLAW_GATEWAY_TOKEN")
	_ = v.BindEnv("gateway.base_url", "OPENCLAW_GATEWAY_URL")
	_ = v.BindEnv("storage.workspace_dir", "OPENCLAW_WORKSPACE")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
