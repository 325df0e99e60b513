package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read directly by the loader.
const (
	envPrefix  = "MAPBOARD_"
	envConfig  = "MAPBOARD_CONFIG"
	envDotFile = "MAPBOARD_ENV_FILE"
	defaultDot = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if MAPBOARD_CONFIG is set
//  3. env (prefix MAPBOARD_), after an optional .env file has been applied
//     to the process environment
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// MAPBOARD_DB_PATH -> db_path (flat keys, underscores preserved)
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.PointsMode = strings.ToLower(strings.TrimSpace(cfg.PointsMode))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv applies MAPBOARD_ENV_FILE (default .env) when the file exists.
// Variables already present in the environment win.
func loadDotEnv() error {
	path := os.Getenv(envDotFile)
	if path == "" {
		path = defaultDot
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Validate checks field rules and the points configuration.
func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, v.Errors.One())
	}

	switch c.PointsMode {
	case PointsModeTiered:
		if c.PointsBase <= 0 {
			return fmt.Errorf("%w: points_base must be positive", ErrInvalidConfig)
		}
	case PointsModeTable:
		if len(c.PointsTable) == 0 {
			return fmt.Errorf("%w: points_table must not be empty in table mode", ErrInvalidConfig)
		}
		for i, p := range c.PointsTable {
			if p < 0 {
				return fmt.Errorf("%w: points_table[%d] is negative", ErrInvalidConfig, i)
			}
			if i > 0 && p > c.PointsTable[i-1] {
				return fmt.Errorf("%w: points_table must be non-increasing (rank %d scores more than rank %d)", ErrInvalidConfig, i+1, i)
			}
		}
	}
	return nil
}
