/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus.go
Description: Message corpus. Stores captured raw messages in insertion order with
thread-safe access, orders them by capture time and loads them from sample
directories.
*/

package corpus

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/sirupsen/logrus"
)

// Corpus manages a collection of raw messages
type Corpus struct {
	messages map[uuid.UUID]*vocabulary.RawMessage // Message id to message
	order    []uuid.UUID                          // Insertion order
	mu       sync.RWMutex                         // Read-write mutex for thread safety
	maxSize  int                                  // Zero for no limit
	dropped  int
}

// NewCorpus creates an empty corpus. A positive maxSize caps the number of
// messages; the oldest insertions are evicted first.
func NewCorpus(maxSize int) *Corpus {
	return &Corpus{
		messages: make(map[uuid.UUID]*vocabulary.RawMessage),
		maxSize:  maxSize,
	}
}

// Add stores a message. Adding a message already present is a no-op.
func (c *Corpus) Add(msg *vocabulary.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.messages[msg.ID]; exists {
		return
	}
	if c.maxSize > 0 && len(c.order) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.messages, oldest)
		c.dropped++
	}
	c.messages[msg.ID] = msg
	c.order = append(c.order, msg.ID)
}

// Get retrieves a message by id, nil when absent
func (c *Corpus) Get(id uuid.UUID) *vocabulary.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages[id]
}

// All returns the messages in insertion order
func (c *Corpus) All() []*vocabulary.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*vocabulary.RawMessage, len(c.order))
	for i, id := range c.order {
		out[i] = c.messages[id]
	}
	return out
}

// ByPriority returns the messages ordered by capture time, earliest first.
// Messages captured in the same millisecond keep their insertion order.
func (c *Corpus) ByPriority() []*vocabulary.RawMessage {
	out := c.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

// Remove deletes a message, reporting whether it was present
func (c *Corpus) Remove(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.messages[id]; !exists {
		return false
	}
	delete(c.messages, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Size returns the number of messages
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// GetStats returns corpus statistics
func (c *Corpus) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, m := range c.messages {
		total += len(m.Data)
	}
	avg := 0.0
	if len(c.order) > 0 {
		avg = float64(total) / float64(len(c.order))
	}
	return map[string]interface{}{
		"size":        len(c.order),
		"max_size":    c.maxSize,
		"dropped":     c.dropped,
		"total_bytes": total,
		"avg_length":  avg,
	}
}

// LoadDir adds every regular file of dir to the corpus, one message per file.
// Files ending in .hex hold one hex encoded message per non empty line. The
// capture time of a message is the modification time of its file.
func (c *Corpus) LoadDir(dir string, logger logrus.FieldLogger) (int, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read corpus directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return loaded, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return loaded, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var payloads [][]byte
		if strings.EqualFold(filepath.Ext(path), ".hex") {
			payloads, err = decodeHexLines(data)
			if err != nil {
				return loaded, fmt.Errorf("%s: %w", path, err)
			}
		} else {
			payloads = [][]byte{data}
		}

		for _, p := range payloads {
			msg := vocabulary.NewRawMessage(p)
			msg.Date = info.ModTime()
			msg.Source = entry.Name()
			c.Add(msg)
			loaded++
		}
	}

	logger.WithFields(logrus.Fields{
		"dir":      dir,
		"messages": loaded,
	}).Info("Corpus loaded")
	return loaded, nil
}

func decodeHexLines(data []byte) ([][]byte, error) {
	var out [][]byte
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		msg, err := hex.DecodeString(strings.ReplaceAll(text, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
