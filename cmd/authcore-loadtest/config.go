package main

import (
	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

type loadConfig struct {
	Identities  int    `koanf:"identities"`
	Concurrency int    `koanf:"concurrency"`
	Ops         int    `koanf:"ops"`
	RaceRounds  int    `koanf:"race-rounds"`
	RaceWidth   int    `koanf:"race-width"`
	RedisAddr   string `koanf:"redis-addr"`
	RedisPrefix string `koanf:"redis-prefix"`
	DatabaseURL string `koanf:"database-url"`
	LogLevel    string `koanf:"log-level"`
	LogFormat   string `koanf:"log-format"`
}

// envConfig fills connection settings the file and flags left empty.
type envConfig struct {
	RedisAddr   string `env:"AUTHCORE_REDIS_ADDR"`
	DatabaseURL string `env:"AUTHCORE_DATABASE_URL"`
}

func registerFlags(fs *pflag.FlagSet) {
	fs.Int("identities", 1000, "number of identities to seed")
	fs.Int("concurrency", 64, "number of concurrent workers")
	fs.Int("ops", 20000, "Authorize calls in the authorize phase")
	fs.Int("race-rounds", 200, "refresh race rounds")
	fs.Int("race-width", 8, "concurrent Refresh calls per race round")
	fs.String("redis-addr", "", "redis address; empty uses AUTHCORE_REDIS_ADDR or an embedded miniredis")
	fs.String("redis-prefix", "ac:load", "snapshot cache key prefix")
	fs.String("database-url", "", "postgres DSN; empty uses AUTHCORE_DATABASE_URL or the in-memory store")
	fs.String("log-level", "warn", "debug, info, warn or error")
	fs.String("log-format", "text", "text or json")
}

// readConfig layers flag defaults, the YAML file, then explicitly set flags.
// Environment variables only fill connection settings that are still empty.
func readConfig(fs *pflag.FlagSet, path string) (loadConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return loadConfig{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return loadConfig{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	var cfg loadConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return loadConfig{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	var fromEnv envConfig
	if err := env.Parse(&fromEnv); err != nil {
		return loadConfig{}, oops.Code("CONFIG_INVALID").With("source", "env").Wrap(err)
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = fromEnv.RedisAddr
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fromEnv.DatabaseURL
	}

	if err := cfg.validate(); err != nil {
		return loadConfig{}, err
	}
	return cfg, nil
}

func (c loadConfig) validate() error {
	switch {
	case c.Identities <= 0:
		return oops.Code("CONFIG_INVALID").Errorf("identities must be > 0")
	case c.Concurrency <= 0:
		return oops.Code("CONFIG_INVALID").Errorf("concurrency must be > 0")
	case c.Ops < 0 || c.RaceRounds < 0:
		return oops.Code("CONFIG_INVALID").Errorf("ops and race-rounds must be >= 0")
	case c.RaceWidth < 2:
		return oops.Code("CONFIG_INVALID").Errorf("race-width must be >= 2")
	}
	return nil
}
