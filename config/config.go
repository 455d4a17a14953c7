// Package config loads the service configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the decision service
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Decision DecisionConfig `yaml:"decision"`
	Features FeaturesConfig `yaml:"features"`
	Models   ModelsConfig   `yaml:"models"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DecisionConfig toggles how actions are selected and placed
type DecisionConfig struct {
	Stochastic    bool   `yaml:"stochastic"`
	Sampling      string `yaml:"sampling"` // observed, weighted
	SemanticPlace bool   `yaml:"semantic_place"`
	Seed          uint64 `yaml:"seed"` // 0 seeds from the clock
}

// FeaturesConfig controls the feature vector layout
type FeaturesConfig struct {
	HistoryBuffer int  `yaml:"history_buffer"`
	Positions     bool `yaml:"positions"`
	Semantics     bool `yaml:"semantics"`
}

// ModelsConfig locates the pretrained model files
type ModelsConfig struct {
	Dir    string `yaml:"dir"`
	Action string `yaml:"action"`
	Place  string `yaml:"place"`
	Move   string `yaml:"move"`
}

type MonitorConfig struct {
	HistorySize     int    `yaml:"history_size"`
	RepeatThreshold int    `yaml:"repeat_threshold"`
	Store           string `yaml:"store"` // memory, redis
	RedisAddr       string `yaml:"redis_addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "localhost:7450",
			ShutdownTimeout: 2 * time.Second,
		},
		Decision: DecisionConfig{
			Sampling: "observed",
		},
		Features: FeaturesConfig{
			HistoryBuffer: 0,
			Positions:     true,
			Semantics:     true,
		},
		Models: ModelsConfig{
			Dir:    "models",
			Action: "action.json",
			Place:  "place_target.json",
			Move:   "move_target.json",
		},
		Monitor: MonitorConfig{
			HistorySize:     50,
			RepeatThreshold: 8,
			Store:           "memory",
			RedisAddr:       "127.0.0.1:6379",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		bs, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(bs, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	var errs []error
	cfg.Server.Addr = envStr("TABLESIM_ADDR", cfg.Server.Addr)
	cfg.Decision.Stochastic = envBool("TABLESIM_STOCHASTIC", cfg.Decision.Stochastic, &errs)
	cfg.Decision.Sampling = envStr("TABLESIM_SAMPLING", cfg.Decision.Sampling)
	cfg.Decision.SemanticPlace = envBool("TABLESIM_SEMANTIC_PLACE", cfg.Decision.SemanticPlace, &errs)
	cfg.Features.HistoryBuffer = envInt("TABLESIM_HISTORY_BUFFER", cfg.Features.HistoryBuffer, &errs)
	cfg.Models.Dir = envStr("TABLESIM_MODELS_DIR", cfg.Models.Dir)
	cfg.Monitor.Store = envStr("TABLESIM_MONITOR_STORE", cfg.Monitor.Store)
	cfg.Monitor.RedisAddr = envStr("TABLESIM_REDIS_ADDR", cfg.Monitor.RedisAddr)
	cfg.Logging.Level = envStr("TABLESIM_LOG_LEVEL", cfg.Logging.Level)
	return errors.Join(errs...)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func envBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

// Validate rejects settings the service cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.Monitor.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("monitor.history_size must be positive, got %d", c.Monitor.HistorySize))
	}
	if c.Monitor.RepeatThreshold <= 0 {
		errs = append(errs, fmt.Errorf("monitor.repeat_threshold must be positive, got %d", c.Monitor.RepeatThreshold))
	}
	switch c.Monitor.Store {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown monitor.store %q", c.Monitor.Store))
	}
	switch c.Decision.Sampling {
	case "observed", "weighted":
	default:
		errs = append(errs, fmt.Errorf("unknown decision.sampling %q", c.Decision.Sampling))
	}
	if c.Features.HistoryBuffer < 0 {
		errs = append(errs, fmt.Errorf("features.history_buffer must not be negative, got %d", c.Features.HistoryBuffer))
	}
	return errors.Join(errs...)
}

// ModelPath resolves a model file name against the models directory
func (m ModelsConfig) ModelPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.Dir, name)
}
