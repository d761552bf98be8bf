/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the akaylee commands. Provides configuration loading,
logging and metrics setup, and symbol and message loading used by every command.
*/

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/kleascm/akaylee-inference/pkg/alignment"
	"github.com/kleascm/akaylee-inference/pkg/config"
	"github.com/kleascm/akaylee-inference/pkg/corpus"
	"github.com/kleascm/akaylee-inference/pkg/logging"
	"github.com/kleascm/akaylee-inference/pkg/monitoring"
	"github.com/kleascm/akaylee-inference/pkg/schema"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Env carries the state shared by the commands of one root command
type Env struct {
	viper      *viper.Viper
	configFile string
}

// session is the per invocation setup: configuration, logger and telemetry
type session struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.MetricsServer
	options alignment.Options
}

// LoadConfig loads configuration from defaults, file, environment and flags
func (e *Env) LoadConfig() (*config.Config, error) {
	if err := config.Prepare(e.viper, e.configFile); err != nil {
		return nil, err
	}
	return config.Load(e.viper)
}

// open prepares logging and metrics for cmd
func (e *Env) open(cmd *cobra.Command) (*session, error) {
	cfg, err := e.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLoggerTo(&cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	s := &session{config: cfg, logger: logger}
	reporters := []monitoring.Reporter{monitoring.NewLoggerReporter(logger.GetLogger())}

	if cfg.Metrics.Enabled {
		s.metrics = monitoring.NewMetricsServer(cfg.Metrics.Addr, logger.GetLogger())
		prom, err := monitoring.NewPrometheusReporter(s.metrics.Registry())
		if err != nil {
			logger.Close()
			return nil, err
		}
		if err := s.metrics.Start(cmd.Context()); err != nil {
			logger.Close()
			return nil, err
		}
		reporters = append(reporters, prom)
	}

	s.options = cfg.AlignmentOptions(logger.GetLogger(), reporters...)
	return s, nil
}

func (s *session) close() {
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metrics.Stop(ctx); err != nil {
			s.logger.GetLogger().WithError(err).Warn("Failed to stop metrics endpoint")
		}
	}
	s.logger.Close()
}

// loadSymbol reads path and picks the named symbol, or the only one when name
// is empty
func loadSymbol(path, name string) (*vocabulary.Symbol, []*vocabulary.Symbol, error) {
	symbols, err := schema.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, fmt.Errorf("no symbols in %s", path)
	}
	if name == "" {
		if len(symbols) > 1 {
			return nil, nil, fmt.Errorf("%s holds %d symbols, choose one with --symbol", path, len(symbols))
		}
		return symbols[0], symbols, nil
	}
	for _, s := range symbols {
		if s.Name == name {
			return s, symbols, nil
		}
	}
	return nil, nil, fmt.Errorf("symbol %s not found in %s", name, path)
}

// loadMessages returns the corpus directory content when dir is set, the
// symbol's own samples otherwise
func (s *session) loadMessages(symbol *vocabulary.Symbol, dir string) ([]*vocabulary.RawMessage, error) {
	if dir == "" {
		return symbol.Messages, nil
	}
	c := corpus.NewCorpus(s.config.Corpus.MaxSize)
	if _, err := c.LoadDir(dir, s.logger.GetLogger()); err != nil {
		return nil, err
	}
	return c.ByPriority(), nil
}
