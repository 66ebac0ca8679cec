package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"timalaus_progression/internal/leaderboard"
	"timalaus_progression/internal/progression"
	"timalaus_progression/internal/repository"
	"timalaus_progression/internal/worker"
	"timalaus_progression/pkg/auth"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
	envPrefix    = "APP"
)

var ErrMissingJWTSecret = errors.New("auth.jwtSecret is required")

type Config struct {
	Database    repository.Config  `mapstructure:"database"`
	Server      ServerConfig       `mapstructure:"server"`
	Auth        auth.Config        `mapstructure:"auth"`
	Redis       leaderboard.Config `mapstructure:"redis"`
	Worker      worker.Config      `mapstructure:"worker"`
	Catalog     CatalogConfig      `mapstructure:"catalog"`
	Progression progression.Config `mapstructure:"progression"`
	LogLevel    string             `mapstructure:"logLevel"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type CatalogConfig struct {
	CacheSize int           `mapstructure:"cacheSize"`
	TTL       time.Duration `mapstructure:"ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "timalaus")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.audience", "authenticated")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", leaderboard.DefaultKey)
	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.queueSize", 1024)
	v.SetDefault("catalog.cacheSize", 256)
	v.SetDefault("catalog.ttl", "5m")
	v.SetDefault("logLevel", "info")
}

// Load reads config.yaml from the working directory. An optional .env file is loaded first
// and APP_ prefixed variables override file values, e.g. APP_AUTH_JWTSECRET.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(configPath)
}

func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(dir)
	v.SetConfigType(configFormat)

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{Progression: progression.DefaultConfig()}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if err := c.Progression.Validate(); err != nil {
		return fmt.Errorf("invalid progression config: %w", err)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
