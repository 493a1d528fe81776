/*
config.go - Application configuration

PURPOSE:
  Loads server configuration from, in order of precedence:
  1. Environment variables (YARDSTOCK_ prefix)
  2. A YAML config file (optional, --config flag or ./yardstock.yaml)
  3. Built-in defaults

KEYS:
  listen_addr  HTTP listen address            (default ":8080")
  db_path      SQLite database file           (default "yardstock.db")
  stock_floor  Minimum importable stock number (default 10400)
  log_level    debug | info | warn | error    (default "info")
*/
package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config holds everything the binaries need to start.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	DBPath     string `mapstructure:"db_path"`
	StockFloor int    `mapstructure:"stock_floor"`
	LogLevel   string `mapstructure:"log_level"`
}

// Load reads configuration. cfgFile may be empty, in which case only
// the default search path is tried and a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("db_path", "yardstock.db")
	v.SetDefault("stock_floor", 10400)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("YARDSTOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("yardstock")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing default file is fine; anything else is not.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// ParseLevel maps the configured log level onto charmbracelet levels,
// defaulting to info for unknown values.
func (c *Config) ParseLevel() log.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
