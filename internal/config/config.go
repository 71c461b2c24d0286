package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// LarkConfig holds Lark API configuration. Messaging is optional: with
// empty credentials the server runs with a no-op sender.
type LarkConfig struct {
	AppID      string        `mapstructure:"app_id"`
	AppSecret  string        `mapstructure:"app_secret"`
	OpsChatID  string        `mapstructure:"ops_chat_id"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
}

// UploadConfig holds spreadsheet ingestion limits
type UploadConfig struct {
	MaxFileSizeMB int `mapstructure:"max_file_size_mb"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Enabled reports whether Lark messaging is configured
func (c LarkConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != "" && c.OpsChatID != ""
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/attendance.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Lark defaults
	viper.SetDefault("lark.api_timeout", 30*time.Second)

	// Upload defaults
	viper.SetDefault("upload.max_file_size_mb", 20)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("lark.ops_chat_id", "LARK_OPS_CHAT_ID")
	viper.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("upload.max_file_size_mb must be positive")
	}

	// Lark credentials are optional but must be consistent.
	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}

	return nil
}
