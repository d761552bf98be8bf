/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus_test.go
Description: Tests for the message corpus.
*/

package corpus_test

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kleascm/akaylee-inference/pkg/corpus"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorpusBasicOperations(t *testing.T) {
	c := corpus.NewCorpus(0)
	a := vocabulary.NewRawMessage([]byte("a"))
	b := vocabulary.NewRawMessage([]byte("bb"))

	c.Add(a)
	c.Add(b)
	c.Add(a)
	assert.Equal(t, 2, c.Size())
	assert.Same(t, b, c.Get(b.ID))
	assert.Equal(t, []*vocabulary.RawMessage{a, b}, c.All())

	stats := c.GetStats()
	assert.Equal(t, 3, stats["total_bytes"])
	assert.Equal(t, 1.5, stats["avg_length"])

	assert.True(t, c.Remove(a.ID))
	assert.False(t, c.Remove(a.ID))
	assert.Nil(t, c.Get(a.ID))
	assert.Equal(t, []*vocabulary.RawMessage{b}, c.All())
}

func TestCorpusEvictsOldest(t *testing.T) {
	c := corpus.NewCorpus(2)
	msgs := []*vocabulary.RawMessage{
		vocabulary.NewRawMessage([]byte("1")),
		vocabulary.NewRawMessage([]byte("2")),
		vocabulary.NewRawMessage([]byte("3")),
	}
	for _, m := range msgs {
		c.Add(m)
	}
	assert.Equal(t, msgs[1:], c.All())
	assert.Equal(t, 1, c.GetStats()["dropped"])
}

func TestCorpusByPriority(t *testing.T) {
	c := corpus.NewCorpus(0)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	late := vocabulary.NewRawMessage([]byte("late"))
	late.Date = base.Add(time.Second)
	early := vocabulary.NewRawMessage([]byte("early"))
	early.Date = base
	tie := vocabulary.NewRawMessage([]byte("tie"))
	tie.Date = base

	c.Add(late)
	c.Add(early)
	c.Add(tie)

	assert.Equal(t, []*vocabulary.RawMessage{early, tie, late}, c.ByPriority())
	assert.Equal(t, base.UnixMilli(), early.Priority())
}

func TestCorpusConcurrentAdd(t *testing.T) {
	c := corpus.NewCorpus(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Add(vocabulary.NewRawMessage([]byte{byte(j)}))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, c.Size())
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.bin"), []byte("GET /"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "many.hex"), []byte("# capture\n0102ff\n\n41 42\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := corpus.NewCorpus(0)
	n, err := c.LoadDir(dir, logger)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data := map[string]string{}
	for _, m := range c.All() {
		data[string(m.Data)] = m.Source
	}
	assert.Equal(t, map[string]string{
		"\x01\x02\xff": "many.hex",
		"AB":           "many.hex",
		"GET /":        "one.bin",
	}, data)
}

func TestLoadDirErrors(t *testing.T) {
	c := corpus.NewCorpus(0)
	_, err := c.LoadDir(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.hex"), []byte("zz\n"), 0o644))
	_, err = c.LoadDir(dir, nil)
	assert.ErrorContains(t, err, "line 1")
}
