/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter hooks for alignment telemetry. The aligner notifies every
registered reporter once per message and once per batch; reporters log the events
or export them as Prometheus metrics.
*/

package monitoring

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// MessageEvent describes the alignment of one message
type MessageEvent struct {
	Symbol    string        `json:"symbol"`     // Name of the symbol aligned against
	Index     int           `json:"index"`      // Position of the message in the batch
	MessageID uuid.UUID     `json:"message_id"` // Identity of the message
	Paths     int           `json:"paths"`      // Paths created by the search
	Duration  time.Duration `json:"duration"`   // Time spent on the message
	Err       error         `json:"-"`          // Failure cause, nil on success
}

// BatchSummary describes a completed alignment batch
type BatchSummary struct {
	Symbol   string        `json:"symbol"`
	Messages int           `json:"messages"`
	Aligned  int           `json:"aligned"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Reporter defines the interface for alignment telemetry hooks.
// Implementations must be safe for concurrent use: parallel alignment reports
// from several goroutines.
type Reporter interface {
	// OnMessageAligned is called after a message produced a value row
	OnMessageAligned(event MessageEvent)
	// OnMessageFailed is called after a message matched no decomposition
	OnMessageFailed(event MessageEvent)
	// OnBatchCompleted is called once every message of a batch was handled
	OnBatchCompleted(summary BatchSummary)
}

// LoggerReporter logs alignment events
type LoggerReporter struct {
	logger logrus.FieldLogger
}

// NewLoggerReporter creates a new LoggerReporter
func NewLoggerReporter(logger logrus.FieldLogger) *LoggerReporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LoggerReporter{logger: logger}
}

// OnMessageAligned logs a successful alignment at debug level
func (r *LoggerReporter) OnMessageAligned(event MessageEvent) {
	r.logger.WithFields(logrus.Fields{
		"symbol":   event.Symbol,
		"index":    event.Index,
		"message":  event.MessageID,
		"paths":    event.Paths,
		"duration": event.Duration,
	}).Debug("Message aligned")
}

// OnMessageFailed logs a failed alignment
func (r *LoggerReporter) OnMessageFailed(event MessageEvent) {
	r.logger.WithFields(logrus.Fields{
		"symbol":  event.Symbol,
		"index":   event.Index,
		"message": event.MessageID,
		"paths":   event.Paths,
		"error":   event.Err,
	}).Warn("Message could not be aligned")
}

// OnBatchCompleted logs the batch summary
func (r *LoggerReporter) OnBatchCompleted(summary BatchSummary) {
	r.logger.WithFields(logrus.Fields{
		"symbol":   summary.Symbol,
		"messages": summary.Messages,
		"aligned":  summary.Aligned,
		"failed":   summary.Failed,
		"duration": summary.Duration,
	}).Info("Alignment completed")
}

// PrometheusReporter exports alignment metrics
type PrometheusReporter struct {
	aligned  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	paths    *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

// NewPrometheusReporter creates the alignment metrics and registers them on reg.
// Metrics already registered by an earlier reporter are reused.
func NewPrometheusReporter(reg prometheus.Registerer) (*PrometheusReporter, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusReporter{
		aligned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "akaylee",
				Name:      "messages_aligned_total",
				Help:      "Messages aligned against a symbol.",
			},
			[]string{"symbol"},
		),
		failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "akaylee",
				Name:      "messages_failed_total",
				Help:      "Messages no decomposition of the symbol could explain.",
			},
			[]string{"symbol"},
		),
		paths: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "akaylee",
				Name:      "alignment_paths",
				Help:      "Parsing paths created per message.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"symbol"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "akaylee",
				Name:      "alignment_duration_seconds",
				Help:      "Alignment duration per message in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
	}

	var err error
	r.aligned, err = register(reg, r.aligned)
	if err != nil {
		return nil, err
	}
	r.failed, err = register(reg, r.failed)
	if err != nil {
		return nil, err
	}
	r.paths, err = register(reg, r.paths)
	if err != nil {
		return nil, err
	}
	r.duration, err = register(reg, r.duration)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// OnMessageAligned counts the message and observes its search cost
func (r *PrometheusReporter) OnMessageAligned(event MessageEvent) {
	r.aligned.WithLabelValues(event.Symbol).Inc()
	r.observe(event)
}

// OnMessageFailed counts the failure and observes its search cost
func (r *PrometheusReporter) OnMessageFailed(event MessageEvent) {
	r.failed.WithLabelValues(event.Symbol).Inc()
	r.observe(event)
}

// OnBatchCompleted has nothing to export beyond the per message metrics
func (r *PrometheusReporter) OnBatchCompleted(summary BatchSummary) {}

func (r *PrometheusReporter) observe(event MessageEvent) {
	r.paths.WithLabelValues(event.Symbol).Observe(float64(event.Paths))
	r.duration.WithLabelValues(event.Symbol).Observe(event.Duration.Seconds())
}
