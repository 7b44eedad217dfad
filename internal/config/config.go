package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "SHOWS"

type Config struct {
	Server struct {
		Addr              string        `mapstructure:"addr"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
		ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
		CORS              bool          `mapstructure:"cors"`
		WriteRate         float64       `mapstructure:"write_rate"` // writes per second per client, 0 disables
		WriteBurst        int           `mapstructure:"write_burst"`
	} `mapstructure:"server"`
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
	Storage struct {
		Driver string `mapstructure:"driver"`
		SQLite struct {
			Path           string        `mapstructure:"path"`
			BusyTimeout    time.Duration `mapstructure:"busy_timeout"`
			Synchronous    string        `mapstructure:"synchronous"`
			CacheSize      int           `mapstructure:"cache_size"` // SQLite page cache, 0 keeps the driver default
			IntegrityCheck bool          `mapstructure:"integrity_check"`
		} `mapstructure:"sqlite"`
		Redis struct {
			Address  string `mapstructure:"address"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
			Prefix   string `mapstructure:"prefix"`
		} `mapstructure:"redis"`
	} `mapstructure:"storage"`
	Cache struct {
		Size int           `mapstructure:"size"` // 0 disables the read cache
		TTL  time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Shows struct {
		UpdateSource string `mapstructure:"update_source"`
	} `mapstructure:"shows"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 3*time.Second)
	v.SetDefault("server.cors", false)
	v.SetDefault("server.write_rate", 0)
	v.SetDefault("server.write_burst", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite.path", "./data/shows.db")
	v.SetDefault("storage.sqlite.busy_timeout", 5*time.Second)
	v.SetDefault("storage.sqlite.synchronous", "NORMAL")
	v.SetDefault("storage.sqlite.cache_size", 0)
	v.SetDefault("storage.sqlite.integrity_check", true)
	v.SetDefault("storage.redis.address", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "shows:")
	v.SetDefault("cache.size", 0)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("shows.update_source", "body")
}

// Load reads configuration from path (or config.yaml in . and ./config when
// path is empty), then SHOWS_* environment variables, then defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	switch strings.ToUpper(c.Storage.SQLite.Synchronous) {
	case "", "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("config: unknown storage.sqlite.synchronous %q", c.Storage.SQLite.Synchronous)
	}
	switch c.Shows.UpdateSource {
	case "body", "query":
	default:
		return fmt.Errorf("config: unknown shows.update_source %q", c.Shows.UpdateSource)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("config: cache.size must not be negative, got %d", c.Cache.Size)
	}
	if c.Server.WriteRate < 0 {
		return fmt.Errorf("config: server.write_rate must not be negative, got %v", c.Server.WriteRate)
	}
	return nil
}
