package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds configuration for both the chat and the dice service.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	DiceAddr           string        `mapstructure:"dice_addr" yaml:"dice_addr"`
	StoreURI           string        `mapstructure:"store_uri" yaml:"store_uri"`
	DiceURI            string        `mapstructure:"dice_uri" yaml:"dice_uri"`
	DiceTimeout        time.Duration `mapstructure:"dice_timeout" yaml:"dice_timeout"`
	StoreTimeout       time.Duration `mapstructure:"store_timeout" yaml:"store_timeout"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat          string        `mapstructure:"log_format" yaml:"log_format"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":3002",
		DiceAddr:           ":3001",
		StoreURI:           "sqlite://chat.db",
		DiceURI:            "http://localhost:3001/",
		DiceTimeout:        3 * time.Second,
		StoreTimeout:       5 * time.Second,
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		MaxMessageBytes:    64 << 10,
		RateLimitPerMinute: 60,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.DiceAddr != "" {
		c.DiceAddr = other.DiceAddr
	}
	if other.StoreURI != "" {
		c.StoreURI = other.StoreURI
	}
	if other.DiceURI != "" {
		c.DiceURI = other.DiceURI
	}
	if other.DiceTimeout != 0 {
		c.DiceTimeout = other.DiceTimeout
	}
	if other.StoreTimeout != 0 {
		c.StoreTimeout = other.StoreTimeout
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
}

// Validate checks the settings the chat service cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.StoreURI == "" {
		errs = append(errs, errors.New("store_uri is required"))
	}
	if u, err := url.Parse(c.DiceURI); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("dice_uri %q is not an absolute URL", c.DiceURI))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("rate_limit_per_minute must not be negative"))
	}
	if c.MaxMessageBytes < 0 {
		errs = append(errs, errors.New("max_message_bytes must not be negative"))
	}
	return errors.Join(errs...)
}
