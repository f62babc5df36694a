// Package config reads the CLI settings from the environment. A .env file in
// the working directory is loaded first; variables already set win.
package config

import (
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/phimuemue/openschafkopf-sub003/engine/ai"
	"github.com/phimuemue/openschafkopf-sub003/engine/support"
)

// Environment variables.
const (
	EnvLogLevel     = "SCHAFKOPF_LOG_LEVEL"
	EnvLogFormat    = "SCHAFKOPF_LOG_FORMAT"
	EnvSamples      = "SCHAFKOPF_SAMPLES"
	EnvBudgetMS     = "SCHAFKOPF_BUDGET_MS"
	EnvThreads      = "SCHAFKOPF_THREADS"
	EnvSeed         = "SCHAFKOPF_SEED"
	EnvRNG          = "SCHAFKOPF_RNG"
	EnvTableEntries = "SCHAFKOPF_TABLE_ENTRIES"
)

// Config holds the settings. Zero numeric fields mean the engine default.
type Config struct {
	LogLevel     logrus.Level
	LogFormat    string // "text" or "json"
	Samples      int
	Budget       time.Duration
	Threads      int
	Seed         *uint64
	RNG          string // "pcg" or "chacha"
	TableEntries int
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{LogLevel: logrus.InfoLevel, LogFormat: "text", RNG: "pcg"}
}

// Load reads the given .env files (".env" when none are named), ignoring
// missing ones, and then the process environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Wrapf(err, "loading %s", f)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvLogLevel); ok {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			return Config{}, errors.Wrap(err, EnvLogLevel)
		}
		cfg.LogLevel = lvl
	}
	if v, ok := get(EnvLogFormat); ok {
		v = strings.ToLower(v)
		if v != "text" && v != "json" {
			return Config{}, errors.Errorf("%s: unknown format %q", EnvLogFormat, v)
		}
		cfg.LogFormat = v
	}
	if v, ok := get(EnvRNG); ok {
		v = strings.ToLower(v)
		if _, ok := support.Factory(v); !ok {
			return Config{}, errors.Errorf("%s: unknown generator %q", EnvRNG, v)
		}
		cfg.RNG = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvSamples, &cfg.Samples},
		{EnvThreads, &cfg.Threads},
		{EnvTableEntries, &cfg.TableEntries},
	}
	for _, e := range ints {
		v, ok := get(e.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, errors.Errorf("%s: want a non-negative integer, got %q", e.key, v)
		}
		*e.dst = n
	}
	if v, ok := get(EnvBudgetMS); ok {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, errors.Errorf("%s: want a positive integer, got %q", EnvBudgetMS, v)
		}
		cfg.Budget = time.Duration(ms) * time.Millisecond
	}
	if v, ok := get(EnvSeed); ok {
		seed, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return Config{}, errors.Wrap(err, EnvSeed)
		}
		cfg.Seed = &seed
	}
	return cfg, nil
}

// NewLogger returns a logrus logger writing to stderr at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// Engine returns the engine configuration, logging through log.
func (c Config) Engine(log *logrus.Logger) ai.Config {
	cfg := ai.DefaultConfig()
	if c.Samples > 0 {
		cfg.Samples = c.Samples
	}
	if c.Budget > 0 {
		cfg.Budget = c.Budget
	}
	if c.Threads > 0 {
		cfg.Threads = c.Threads
	}
	if c.TableEntries > 0 {
		cfg.TableEntries = c.TableEntries
	}
	if f, ok := support.Factory(c.RNG); ok {
		cfg.Source = f
	}
	if log != nil {
		cfg.Logger = support.NewLogrusLogger(log)
	}
	return cfg
}
