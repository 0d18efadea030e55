package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "SCOREKEEP_"
	envConfigFile = "SCOREKEEP_CONFIG"
	envDotenvFile = "SCOREKEEP_ENV_FILE"
	defaultDotenv = ".env"
)

// Load builds a Config by layering, low to high precedence:
//  1. defaults (New())
//  2. YAML file named by SCOREKEEP_CONFIG
//  3. variables from .env (or SCOREKEEP_ENV_FILE), never overriding the real environment
//  4. PORT and API_KEY
//  5. SCOREKEEP_* variables
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	if err := loadDotenv(); err != nil {
		return nil, err
	}

	compat := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		switch key {
		case "PORT":
			if value == "" {
				return "", nil
			}
			return "addr", ":" + strings.TrimPrefix(value, ":")
		case "API_KEY":
			return "api_key", value
		}
		return "", nil
	})
	if err := k.Load(compat, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// SCOREKEEP_RATE_LIMIT_MAX -> rate_limit_max
	prefixed := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(prefixed, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotenv() error {
	path := os.Getenv(envDotenvFile)
	explicit := path != ""
	if !explicit {
		path = defaultDotenv
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
}
