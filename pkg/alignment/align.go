/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: align.go
Description: Data alignment of a message batch against a field tree. Every message is
parsed independently with its own field parser; the first complete decomposition
gives the message row. Messages can be processed one after another or by a bounded
pool of goroutines, and both strategies produce the same matrix.
*/

package alignment

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-inference/pkg/domain"
	"github.com/kleascm/akaylee-inference/pkg/monitoring"
	"github.com/kleascm/akaylee-inference/pkg/parser"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/iter"
)

var (
	// ErrNoMatch is the failure cause of a message no decomposition explains
	ErrNoMatch = errors.New("alignment: no decomposition matches the message")
	// ErrUnknownStrategy is returned for an unsupported execution strategy
	ErrUnknownStrategy = errors.New("alignment: unknown strategy")
	// ErrNilRoot is returned when no field tree is given
	ErrNilRoot = errors.New("alignment: nil root field")
)

// Strategy selects how messages of a batch are scheduled
type Strategy string

const (
	Sequential Strategy = "sequential"
	Parallel   Strategy = "parallel"
)

// ParseStrategy resolves a strategy name, empty meaning sequential
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case "", Sequential:
		return Sequential, nil
	case Parallel:
		return Parallel, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
}

// Options controls an alignment run
type Options struct {
	Strategy    Strategy              // Scheduling of messages, sequential when empty
	Workers     int                   // Parallel goroutines, GOMAXPROCS when zero
	Depth       int                   // Column depth below the root, zero for real leaves
	MaxBranches int                   // Paths one message may create, zero for no limit
	Memory      *parser.Memory        // Bindings visible to references before parsing
	Reporters   []monitoring.Reporter // Telemetry hooks
	Logger      logrus.FieldLogger    // Defaults to the standard logger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) depth() int {
	if o.Depth <= 0 {
		return -1
	}
	return o.Depth
}

// Failure records why a message produced no row
type Failure struct {
	Index   int                    `json:"index"`   // Position in the batch
	Message *vocabulary.RawMessage `json:"message"` // The message itself
	Err     error                  `json:"-"`       // Cause, ErrNoMatch or ErrBranchLimit
	Reason  string                 `json:"reason"`  // Err as text
}

// Error implements the error interface
func (f Failure) Error() string {
	return fmt.Sprintf("message %d (%s): %v", f.Index, f.Message.ID, f.Err)
}

// Unwrap exposes the cause
func (f Failure) Unwrap() error { return f.Err }

// Result is the outcome of aligning a batch
type Result struct {
	Matrix   *Matrix   `json:"matrix"`
	Failures []Failure `json:"failures"`
	Stats    *Stats    `json:"stats"`
}

// outcome of a single message, merged in input order
type outcome struct {
	row     *Row
	failure *Failure
	fatal   error
}

// Align parses every message against root and builds the value matrix.
// Messages that match no decomposition, or exhaust the branch budget, become
// failures; configuration errors and cancellation abort the batch.
func Align(ctx context.Context, messages []*vocabulary.RawMessage, root *vocabulary.Field, opts Options) (*Result, error) {
	return align(ctx, "", messages, root, opts)
}

// AlignSymbol aligns the messages of symbol against its own fields
func AlignSymbol(ctx context.Context, symbol *vocabulary.Symbol, opts Options) (*Result, error) {
	if symbol == nil {
		return nil, ErrNilRoot
	}
	return align(ctx, symbol.Name, symbol.Messages, symbol.Field, opts)
}

func align(ctx context.Context, name string, messages []*vocabulary.RawMessage, root *vocabulary.Field, opts Options) (*Result, error) {
	if root == nil {
		return nil, ErrNilRoot
	}
	if name == "" {
		name = root.Name
	}
	if err := checkDomains(root); err != nil {
		return nil, err
	}
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}

	logger := opts.logger().WithFields(logrus.Fields{"symbol": name, "strategy": strategy})
	columns := root.LeafFields(opts.depth())
	stats := &Stats{Messages: int64(len(messages)), StartTime: time.Now()}

	logger.WithField("messages", len(messages)).Debug("Alignment started")

	run := func(i int) outcome {
		if err := ctx.Err(); err != nil {
			return outcome{fatal: err}
		}
		return alignMessage(name, i, messages[i], root, columns, opts, stats)
	}

	outcomes := make([]outcome, len(messages))
	switch strategy {
	case Parallel:
		indices := make([]int, len(messages))
		for i := range indices {
			indices[i] = i
		}
		mapper := iter.Mapper[int, outcome]{MaxGoroutines: opts.workers()}
		outcomes = mapper.Map(indices, func(i *int) outcome { return run(*i) })
	default:
		for i := range messages {
			outcomes[i] = run(i)
			if outcomes[i].fatal != nil {
				break
			}
		}
	}

	result := &Result{
		Matrix: &Matrix{Fields: columns, Rows: make([]Row, 0, len(messages))},
		Stats:  stats,
	}
	for _, o := range outcomes {
		switch {
		case o.fatal != nil:
			return nil, o.fatal
		case o.failure != nil:
			result.Failures = append(result.Failures, *o.failure)
		case o.row != nil:
			result.Matrix.Rows = append(result.Matrix.Rows, *o.row)
		}
	}
	stats.Duration = time.Since(stats.StartTime)

	summary := monitoring.BatchSummary{
		Symbol:   name,
		Messages: len(messages),
		Aligned:  len(result.Matrix.Rows),
		Failed:   len(result.Failures),
		Duration: stats.Duration,
	}
	for _, r := range opts.Reporters {
		r.OnBatchCompleted(summary)
	}
	logger.WithFields(stats.GetStats()).Debug("Alignment finished")
	return result, nil
}

func alignMessage(name string, index int, msg *vocabulary.RawMessage, root *vocabulary.Field, columns []*vocabulary.Field, opts Options, stats *Stats) outcome {
	start := time.Now()
	fp := parser.NewFieldParser(parser.Config{MaxBranches: opts.MaxBranches}, opts.logger())

	paths, err := fp.Parse(root, parser.NewPathWithMemory(msg.Data, opts.Memory), true)
	created := fp.Variables().Created()
	stats.AddPaths(created)

	event := monitoring.MessageEvent{
		Symbol:    name,
		Index:     index,
		MessageID: msg.ID,
		Paths:     created,
	}

	var cells [][]byte
	switch {
	case err != nil && !errors.Is(err, parser.ErrBranchLimit):
		return outcome{fatal: fmt.Errorf("message %d: %w", index, err)}
	case err != nil:
		// branch budget exhausted counts against the message, not the batch
	case len(paths) == 0:
		err = ErrNoMatch
	default:
		var ok bool
		cells, ok = paths[0].Values(columns)
		if !ok {
			err = ErrNoMatch
		}
	}

	event.Duration = time.Since(start)
	if err != nil {
		stats.IncrementFailed()
		event.Err = err
		for _, r := range opts.Reporters {
			r.OnMessageFailed(event)
		}
		return outcome{failure: &Failure{Index: index, Message: msg, Err: err, Reason: err.Error()}}
	}

	stats.IncrementAligned()
	for _, r := range opts.Reporters {
		r.OnMessageAligned(event)
	}
	return outcome{row: &Row{Index: index, Message: msg, Cells: cells}}
}

// checkDomains rejects malformed trees before any message is read. References
// may target any field or domain node of the tree.
func checkDomains(root *vocabulary.Field) error {
	known := make(map[uuid.UUID]bool)
	root.Walk(func(f *vocabulary.Field) {
		known[f.ID] = true
		domain.Walk(f.Domain, func(n domain.Node) bool {
			known[n.ID()] = true
			return true
		})
	})

	var err error
	root.Walk(func(f *vocabulary.Field) {
		if err != nil || !f.IsLeaf() {
			return
		}
		if f.Domain == nil {
			err = fmt.Errorf("%w: %s", parser.ErrNoDomain, f.Path())
			return
		}
		if verr := domain.Validate(f.Domain, known); verr != nil {
			err = fmt.Errorf("field %s: %w", f.Path(), verr)
		}
	})
	return err
}
