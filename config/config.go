// Package config loads CLI settings from an optional YAML file and TURNKEY_* environment
// variables. Environment variables take precedence over the file.
//
//	organization_id: 5f3a0c2e-8d43-4b7e-a1b2-1d2e3f4a5b6c
//	key_name: default
//	keys_dir: /home/me/.config/turnkey/keys
//	signer_public_key: 04...
//	notarizer_public_key: 04...
//	log_level: debug
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/anchorageoss/turnkeycrypto/point"
)

// EnvPrefix prefixes every environment variable the loader reads
const EnvPrefix = "TURNKEY"

// Config holds the CLI settings
type Config struct {
	OrganizationID     string `mapstructure:"organization_id"`
	KeyName            string `mapstructure:"key_name"`
	KeysDir            string `mapstructure:"keys_dir"`
	SignerPublicKey    string `mapstructure:"signer_public_key"`
	NotarizerPublicKey string `mapstructure:"notarizer_public_key"`
	LogLevel           string `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"organization_id":      "",
	"key_name":             "default",
	"keys_dir":             "",
	"signer_public_key":    "",
	"notarizer_public_key": "",
	"log_level":            "info",
}

// Option configures Load
type Option func(*loader)

type loader struct {
	viper *viper.Viper
}

// WithViper sets a custom viper instance
func WithViper(v *viper.Viper) Option {
	return func(l *loader) {
		l.viper = v
	}
}

// Load reads path, if non-empty, and the environment into a validated Config.
func Load(path string, opts ...Option) (*Config, error) {
	l := &loader{viper: viper.New()}
	for _, opt := range opts {
		opt(l)
	}
	v := l.viper

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config parse error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks that every configured key and level parses
func (c *Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if _, err := c.SignerKey(); err != nil {
		errs = append(errs, fmt.Errorf("signer_public_key: %w", err))
	}
	if _, err := c.NotarizerKey(); err != nil {
		errs = append(errs, fmt.Errorf("notarizer_public_key: %w", err))
	}
	return errors.Join(errs...)
}

// Level returns the configured log level, falling back to info
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// SignerKey returns the uncompressed enclave signer key, or nil when unset
func (c *Config) SignerKey() ([]byte, error) {
	return optionalKey(c.SignerPublicKey)
}

// NotarizerKey returns the uncompressed notarizer key, or nil when unset
func (c *Config) NotarizerKey() ([]byte, error) {
	return optionalKey(c.NotarizerPublicKey)
}

func optionalKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	p, err := point.ParseHex(s)
	if err != nil {
		return nil, err
	}
	return p.Bytes(false), nil
}
