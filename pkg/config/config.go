/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Configuration for the akaylee command. Values come from defaults, an
optional config file, AKAYLEE_ prefixed environment variables and command line
flags, merged by viper and decoded into Config.
*/

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kleascm/akaylee-inference/pkg/alignment"
	"github.com/kleascm/akaylee-inference/pkg/logging"
	"github.com/kleascm/akaylee-inference/pkg/monitoring"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. AKAYLEE_ALIGNMENT_WORKERS
const EnvPrefix = "AKAYLEE"

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the complete tool configuration
type Config struct {
	Alignment AlignmentConfig      `mapstructure:"alignment"`
	Logging   logging.LoggerConfig `mapstructure:"logging"`
	Metrics   MetricsConfig        `mapstructure:"metrics"`
	Corpus    CorpusConfig         `mapstructure:"corpus"`
}

// AlignmentConfig controls how message batches are aligned
type AlignmentConfig struct {
	Strategy    string `mapstructure:"strategy"`     // sequential or parallel
	Workers     int    `mapstructure:"workers"`      // 0 = GOMAXPROCS
	MaxBranches int    `mapstructure:"max_branches"` // 0 = unlimited
	Depth       int    `mapstructure:"depth"`        // 0 = real leaves
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// CorpusConfig controls message loading
type CorpusConfig struct {
	MaxSize int `mapstructure:"max_size"` // 0 = unlimited
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("alignment.strategy", string(alignment.Sequential))
	v.SetDefault("alignment.workers", 0)
	v.SetDefault("alignment.max_branches", 100000)
	v.SetDefault("alignment.depth", 0)

	def := logging.DefaultLoggerConfig()
	v.SetDefault("logging.level", string(def.Level))
	v.SetDefault("logging.format", string(def.Format))
	v.SetDefault("logging.output_dir", def.OutputDir)
	v.SetDefault("logging.max_files", def.MaxFiles)
	v.SetDefault("logging.timestamp", def.Timestamp)
	v.SetDefault("logging.caller", def.Caller)
	v.SetDefault("logging.colors", def.Colors)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("corpus.max_size", 0)
}

// Prepare sets defaults and environment handling on v and reads file when given
func Prepare(v *viper.Viper, file string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if _, err := alignment.ParseStrategy(c.Alignment.Strategy); err != nil {
		return fmt.Errorf("%w: alignment.strategy: %v", ErrInvalidConfig, err)
	}
	if c.Alignment.Workers < 0 {
		return fmt.Errorf("%w: alignment.workers must not be negative", ErrInvalidConfig)
	}
	if c.Alignment.MaxBranches < 0 {
		return fmt.Errorf("%w: alignment.max_branches must not be negative", ErrInvalidConfig)
	}
	if c.Alignment.Depth < 0 {
		return fmt.Errorf("%w: alignment.depth must not be negative", ErrInvalidConfig)
	}
	if c.Corpus.MaxSize < 0 {
		return fmt.Errorf("%w: corpus.max_size must not be negative", ErrInvalidConfig)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr is required when metrics are enabled", ErrInvalidConfig)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: logging: %v", ErrInvalidConfig, err)
	}
	return nil
}

// AlignmentOptions builds alignment options from the configuration
func (c *Config) AlignmentOptions(logger logrus.FieldLogger, reporters ...monitoring.Reporter) alignment.Options {
	// Validate has already rejected unknown names
	strategy, _ := alignment.ParseStrategy(c.Alignment.Strategy)
	return alignment.Options{
		Strategy:    strategy,
		Workers:     c.Alignment.Workers,
		Depth:       c.Alignment.Depth,
		MaxBranches: c.Alignment.MaxBranches,
		Reporters:   reporters,
		Logger:      logger,
	}
}
