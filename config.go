package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds all configuration for the jmemcached server.
type Config struct {
	// Listener settings
	TCPPort   int    `mapstructure:"tcp_port"`
	Interface string `mapstructure:"interface"`

	// Cache bounds
	MaxMemory int64 `mapstructure:"max_memory"` // megabytes, 0 = unbounded
	MaxItems  int64 `mapstructure:"max_items"`  // 0 = unbounded

	// Process management
	Daemonize bool   `mapstructure:"daemonize"`
	Username  string `mapstructure:"username"`
	Pidfile   string `mapstructure:"pidfile"`

	// Verbosity
	Verbose          bool `mapstructure:"verbose"`
	VeryVerbose      bool `mapstructure:"very_verbose"`
	ExtremelyVerbose bool `mapstructure:"extremely_verbose"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		TCPPort:   11211,
		Interface: "",
		MaxMemory: 64,
		MaxItems:  0,
	}
}

// LoadConfig loads configuration from an optional config file, environment
// variables and the bound command line flags, in rising precedence.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("jmemcached")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/jmemcached/")
	viper.AddConfigPath("$HOME/.jmemcached")

	viper.SetEnvPrefix("JMEMCACHED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("tcp_port", config.TCPPort)
	viper.SetDefault("interface", config.Interface)
	viper.SetDefault("max_memory", config.MaxMemory)
	viper.SetDefault("max_items", config.MaxItems)
	viper.SetDefault("daemonize", config.Daemonize)
	viper.SetDefault("username", config.Username)
	viper.SetDefault("pidfile", config.Pidfile)
	viper.SetDefault("verbose", config.Verbose)
	viper.SetDefault("very_verbose", config.VeryVerbose)
	viper.SetDefault("extremely_verbose", config.ExtremelyVerbose)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "error reading config file")
		}
		// no config file is fine
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	return config, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TCPPort < 1 || c.TCPPort > 65535 {
		return errors.Errorf("invalid tcp_port: %d (must be 1-65535)", c.TCPPort)
	}
	if c.MaxMemory < 0 {
		return errors.Errorf("max_memory must not be negative, got %d", c.MaxMemory)
	}
	if c.MaxItems < 0 {
		return errors.Errorf("max_items must not be negative, got %d", c.MaxItems)
	}
	return nil
}

// MaxBytes converts the configured megabyte budget to bytes.
func (c *Config) MaxBytes() int64 {
	return c.MaxMemory * 1024 * 1024
}
