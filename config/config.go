package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// ProviderConfig points at the index quote source.
type ProviderConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	SHCode   string        `mapstructure:"sh_code"` // Shanghai composite, e.g. "sh000001"
	SZCode   string        `mapstructure:"sz_code"` // Shenzhen component, e.g. "sz399001"
	PageSize int           `mapstructure:"page_size"`
}

type TrackerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`          // sleep after a successful cycle
	RetryInterval   time.Duration `mapstructure:"retry_interval"`    // sleep after a failed cycle
	CloseHour       int           `mapstructure:"close_hour"`        // daily record is taken at or after this hour
	Timezone        string        `mapstructure:"timezone"`          // IANA name or "Local"
	CurrentDataFile string        `mapstructure:"current_data_file"` // combined artifact for static consumers
	RetentionDays   int           `mapstructure:"retention_days"`    // 0 keeps hourly artifacts forever
	RetentionAt     string        `mapstructure:"retention_at"`      // "HH:MM" for the retention job
}

type StorageConfig struct {
	Driver  string `mapstructure:"driver"`   // "file", "sqlite", "postgres" or "mongo"
	DataDir string `mapstructure:"data_dir"` // file driver
	Path    string `mapstructure:"path"`     // sqlite driver
}

type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // gin mode: "debug", "release", "test"
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// Load reads config.yaml from dir (or the default search path when dir is empty),
// applies a .env file when present and lets environment variables override keys.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("ignoring .env: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if dir != "" {
		v.AddConfigPath(dir)
	} else {
		ex, _ := os.Executable()
		if strings.Contains(ex, "go-build") {
			pwd, _ := os.Getwd()
			v.AddConfigPath(filepath.Join(pwd, "config"))
		} else {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., TRACKER_CLOSE_HOUR)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Printf("config.yaml not found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.base_url", "https://vip.stock.finance.sina.com.cn")
	v.SetDefault("provider.timeout", 10*time.Second)
	v.SetDefault("provider.sh_code", "sh000001")
	v.SetDefault("provider.sz_code", "sz399001")
	v.SetDefault("provider.page_size", 80)

	v.SetDefault("tracker.interval", time.Hour)
	v.SetDefault("tracker.retry_interval", 5*time.Minute)
	v.SetDefault("tracker.close_hour", 15)
	v.SetDefault("tracker.timezone", "Local")
	v.SetDefault("tracker.current_data_file", "static/data/current_data.json")
	v.SetDefault("tracker.retention_days", 0)
	v.SetDefault("tracker.retention_at", "02:00")

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.path", "data/tracker.db")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.dbname", "volumetracker")
	v.SetDefault("postgres.create_db", true)
	v.SetDefault("postgres.max_open_conns", 5)
	v.SetDefault("postgres.max_idle_conns", 2)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("mongo.database", "volumetracker")
	v.SetDefault("mongo.collection", "series")
	v.SetDefault("mongo.timeout", 10*time.Second)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 7)
}

// Validate rejects settings the tracker cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "file", "sqlite", "postgres", "mongo":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Provider.SHCode == "" || c.Provider.SZCode == "" {
		return fmt.Errorf("provider instrument codes must be set")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	if c.Tracker.Interval <= 0 || c.Tracker.RetryInterval <= 0 {
		return fmt.Errorf("tracker intervals must be positive")
	}
	if c.Tracker.CloseHour < 0 || c.Tracker.CloseHour > 23 {
		return fmt.Errorf("tracker.close_hour %d out of range", c.Tracker.CloseHour)
	}
	if c.Tracker.RetentionDays < 0 {
		return fmt.Errorf("tracker.retention_days must not be negative")
	}
	if _, err := c.Tracker.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (t TrackerConfig) Location() (*time.Location, error) {
	if t.Timezone == "" || t.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", t.Timezone, err)
	}
	return loc, nil
}
