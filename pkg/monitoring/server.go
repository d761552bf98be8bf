/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: server.go
Description: HTTP endpoint exposing alignment metrics in the Prometheus text format.
*/

package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MetricsServer serves /metrics for a registry
type MetricsServer struct {
	addr     string
	registry *prometheus.Registry
	logger   logrus.FieldLogger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
	wg       sync.WaitGroup
}

// NewMetricsServer creates a server for addr with a fresh registry carrying the
// Go runtime and process collectors
func NewMetricsServer(addr string, logger logrus.FieldLogger) *MetricsServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &MetricsServer{addr: addr, registry: reg, logger: logger}
}

// Registry returns the registry served by the endpoint
func (s *MetricsServer) Registry() *prometheus.Registry {
	return s.registry
}

// Addr returns the bound address once started, the configured one before
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start begins serving in the background
func (s *MetricsServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("metrics server already running")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Metrics server stopped")
		}
	}()

	s.logger.WithField("addr", ln.Addr().String()).Info("Metrics endpoint started")
	return nil
}

// Stop shuts the server down, waiting for in-flight scrapes
func (s *MetricsServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("metrics server not running")
	}
	s.running = false

	err := s.server.Shutdown(ctx)
	s.wg.Wait()
	s.listener = nil
	return err
}
