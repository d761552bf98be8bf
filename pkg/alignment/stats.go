/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Batch statistics for alignment runs. Counters are updated atomically so
parallel workers can share one Stats value.
*/

package alignment

import (
	"sync/atomic"
	"time"
)

// Stats tracks the outcome of an alignment batch.
// Uses atomic operations for thread-safe updates.
type Stats struct {
	Messages  int64         `json:"messages"`   // Messages submitted
	Aligned   int64         `json:"aligned"`    // Messages that produced a row
	Failed    int64         `json:"failed"`     // Messages that matched no decomposition
	Paths     int64         `json:"paths"`      // Parsing paths created over the batch
	StartTime time.Time     `json:"start_time"` // When the batch started
	Duration  time.Duration `json:"duration"`   // Wall clock time of the batch
}

// IncrementAligned atomically increments the aligned counter
func (s *Stats) IncrementAligned() {
	atomic.AddInt64(&s.Aligned, 1)
}

// IncrementFailed atomically increments the failure counter
func (s *Stats) IncrementFailed() {
	atomic.AddInt64(&s.Failed, 1)
}

// AddPaths atomically adds to the explored path counter
func (s *Stats) AddPaths(n int) {
	atomic.AddInt64(&s.Paths, int64(n))
}

// GetStats returns the statistics as a loggable map
func (s *Stats) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"messages": atomic.LoadInt64(&s.Messages),
		"aligned":  atomic.LoadInt64(&s.Aligned),
		"failed":   atomic.LoadInt64(&s.Failed),
		"paths":    atomic.LoadInt64(&s.Paths),
		"duration": s.Duration.String(),
	}
}
