package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// MaxUploadBytes caps the request body of a CSV upload.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Driver  string `mapstructure:"driver"` // postgres | sqlite
	DSN     string `mapstructure:"dsn"`
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type RegistryConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ReconcileConfig struct {
	DateWindowDays int    `mapstructure:"date_window_days"`
	AutoSchedule   string `mapstructure:"auto_schedule"`
	RulesFile      string `mapstructure:"rules_file"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_bytes", 32<<20)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.path", "data/reconcile.db")
	v.SetDefault("database.log_mode", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("registry.timeout", 10*time.Second)

	v.SetDefault("reconcile.date_window_days", 5)
	v.SetDefault("reconcile.auto_schedule", "")
}

// Load reads configuration from the given YAML file (optional) and the environment.
// Environment variables use the RECON_ prefix, e.g. RECON_DATABASE_DSN.
// A missing file is not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.Reconcile.DateWindowDays < 0 {
		return nil, fmt.Errorf("reconcile.date_window_days must be >= 0, got %d", c.Reconcile.DateWindowDays)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("server.max_upload_bytes must be > 0, got %d", c.Server.MaxUploadBytes)
	}
	return &c, nil
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
