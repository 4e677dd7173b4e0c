// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"pricecast/db"
	"pricecast/logging"
)

// Config is the YAML configuration file. Environment variables override it.
type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Driver   string `yaml:"driver"` // sqlite, postgres, memory
		Path     string `yaml:"path"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`
	ML struct {
		ModelType string `yaml:"model_type"`
		ModelPath string `yaml:"model_path"`
		CacheSize int    `yaml:"cache_size"`
		Watch     bool   `yaml:"watch"`
	} `yaml:"ml"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	var c Config
	c.Http.Port = 8080
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}
	c.Database.Driver = db.DriverSQLite
	c.Database.Path = "predictions.db"
	c.Database.Host = "localhost"
	c.Database.Port = 5432
	c.Database.Name = "stock_predictions"
	c.Database.SSLMode = "disable"
	c.ML.ModelType = "gbtree"
	c.ML.ModelPath = "models/stock_price.json"
	c.ML.CacheSize = 1024
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 5
	c.Log.MaxAgeDays = 30
	return &c
}

// Load reads path over the defaults and then applies PRICECAST_* environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("PRICECAST_DB_DRIVER", &c.Database.Driver)
	setString("PRICECAST_DB_PATH", &c.Database.Path)
	setString("PRICECAST_DB_HOST", &c.Database.Host)
	setString("PRICECAST_DB_USER", &c.Database.User)
	setString("PRICECAST_DB_PASSWORD", &c.Database.Password)
	setString("PRICECAST_DB_NAME", &c.Database.Name)
	setString("PRICECAST_MODEL_PATH", &c.ML.ModelPath)
	setString("PRICECAST_LOG_LEVEL", &c.Log.Level)

	for key, dst := range map[string]*int{
		"PRICECAST_HTTP_PORT": &c.Http.Port,
		"PRICECAST_DB_PORT":   &c.Database.Port,
	} {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

// Validate reports the first setting that is out of range or inconsistent.
func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	switch c.Database.Driver {
	case db.DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case db.DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("database.host and database.name are required for postgres")
		}
	case db.DriverMemory:
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.ML.ModelPath == "" {
		return errors.New("ml.model_path is required")
	}
	if c.ML.CacheSize < 0 {
		return errors.New("ml.cache_size must not be negative")
	}
	return nil
}

// StoreConfig returns the persistence settings. Credentials are URL-escaped,
// so a password such as "p@ss" needs no manual encoding.
func (c *Config) StoreConfig() db.Config {
	out := db.Config{Driver: c.Database.Driver, Path: c.Database.Path}
	if c.Database.Driver == db.DriverPostgres {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.Database.User, c.Database.Password),
			Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
			Path:     "/" + c.Database.Name,
			RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
		}
		out.DSN = u.String()
	}
	return out
}

// LogConfig returns the logging section.
func (c *Config) LogConfig() logging.Config {
	return logging.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}
