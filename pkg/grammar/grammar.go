/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: grammar.go
Description: Grammar interface and SymbolGrammar implementation. A symbol grammar
specializes a symbol: it produces messages whose content follows the field domains,
and mutates known messages one field at a time while keeping them inside the symbol.
*/

package grammar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-inference/pkg/alignment"
	"github.com/kleascm/akaylee-inference/pkg/domain"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/sirupsen/logrus"
)

// ErrUnresolvedRef is returned when a reference points to a value not generated yet
var ErrUnresolvedRef = errors.New("grammar: reference target not generated yet")

// Grammar defines the interface for grammar-based input generation and mutation.
type Grammar interface {
	// Generate returns a new valid input as a byte slice.
	Generate() ([]byte, error)
	// Mutate takes a valid input and returns a mutated, still-valid input.
	Mutate(input []byte) ([]byte, error)
	// Name returns the name of the grammar.
	Name() string
}

// SymbolGrammar generates messages from the domains of a symbol
type SymbolGrammar struct {
	symbol    *vocabulary.Symbol
	rng       *rand.Rand
	opts      alignment.Options
	logger    logrus.FieldLogger
	MaxLength int // Extra bytes allowed above the minimum of unbounded values
	MaxRepeat int // Extra iterations allowed above the minimum of unbounded repeats
}

// NewSymbolGrammar creates a grammar over symbol. The same seed always yields the
// same sequence of messages.
func NewSymbolGrammar(symbol *vocabulary.Symbol, seed int64, opts alignment.Options) *SymbolGrammar {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SymbolGrammar{
		symbol:    symbol,
		rng:       rand.New(rand.NewSource(seed)),
		opts:      opts,
		logger:    logger,
		MaxLength: 16,
		MaxRepeat: 4,
	}
}

// Name returns the name of the grammar.
func (g *SymbolGrammar) Name() string {
	return "SymbolGrammar(" + g.symbol.Name + ")"
}

// Generate returns a message specialized from the symbol fields
func (g *SymbolGrammar) Generate() ([]byte, error) {
	memory := make(map[uuid.UUID][]byte)
	out, err := g.field(g.symbol.Field, memory)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", g.symbol.Name, err)
	}
	return out, nil
}

// Mutate aligns input, regenerates one of its leaf values and checks the result
// still aligns. Inputs outside the symbol, and mutations leaving it, fall back
// to a fresh message.
func (g *SymbolGrammar) Mutate(input []byte) ([]byte, error) {
	ctx := context.Background()
	opts := g.opts
	opts.Strategy = alignment.Sequential
	opts.Reporters = nil
	opts.Depth = 0

	msg := vocabulary.NewRawMessage(input)
	res, err := alignment.Align(ctx, []*vocabulary.RawMessage{msg}, g.symbol.Field, opts)
	if err != nil {
		return nil, err
	}
	if len(res.Matrix.Rows) == 0 {
		g.logger.WithField("grammar", g.Name()).Debug("Input outside the symbol, generating instead")
		return g.Generate()
	}

	columns := res.Matrix.Fields
	cells := res.Matrix.Rows[0].Cells
	j := g.rng.Intn(len(columns))

	value, err := g.node(columns[j].Domain, make(map[uuid.UUID][]byte))
	if err != nil {
		g.logger.WithFields(logrus.Fields{"field": columns[j].Name, "error": err}).Debug("Field cannot be regenerated alone")
		return g.Generate()
	}

	mutated := make([][]byte, len(cells))
	copy(mutated, cells)
	mutated[j] = value
	out := bytes.Join(mutated, nil)

	check, err := alignment.Align(ctx, []*vocabulary.RawMessage{vocabulary.NewRawMessage(out)}, g.symbol.Field, opts)
	if err != nil {
		return nil, err
	}
	if len(check.Matrix.Rows) == 0 {
		return g.Generate()
	}
	return out, nil
}

func (g *SymbolGrammar) field(f *vocabulary.Field, memory map[uuid.UUID][]byte) ([]byte, error) {
	var out []byte
	if f.IsLeaf() {
		if f.Domain == nil {
			return nil, fmt.Errorf("field %s has no domain", f.Path())
		}
		v, err := g.node(f.Domain, memory)
		if err != nil {
			return nil, err
		}
		out = v
	} else {
		for _, c := range f.Children {
			v, err := g.field(c, memory)
			if err != nil {
				return nil, err
			}
			out = append(out, v...)
		}
	}
	memory[f.ID] = out
	return out, nil
}

func (g *SymbolGrammar) node(n domain.Node, memory map[uuid.UUID][]byte) ([]byte, error) {
	var out []byte
	switch v := n.(type) {
	case *domain.Value:
		if v.Constant != nil {
			out = append([]byte{}, v.Constant...)
			break
		}
		max := v.Max
		if max == domain.Unbounded {
			max = v.Min + g.MaxLength
		}
		out = v.Type.Generate(g.rng, v.Min+g.rng.Intn(max-v.Min+1))
	case *domain.Agg:
		for _, c := range v.Nodes {
			part, err := g.node(c, memory)
			if err != nil {
				return nil, err
			}
			out = append(out, part...)
		}
	case *domain.Alt:
		if len(v.Nodes) == 0 {
			return nil, domain.ErrEmptyCombinator
		}
		part, err := g.node(v.Nodes[g.rng.Intn(len(v.Nodes))], memory)
		if err != nil {
			return nil, err
		}
		out = part
	case *domain.Repeat:
		max := v.Max
		if max == domain.Unbounded {
			max = v.Min + g.MaxRepeat
		}
		count := v.Min + g.rng.Intn(max-v.Min+1)
		for i := 0; i < count; i++ {
			part, err := g.node(v.Child, memory)
			if err != nil {
				return nil, err
			}
			out = append(out, part...)
		}
	case *domain.Ref:
		bound, ok := memory[v.Target]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedRef, v)
		}
		out = append([]byte{}, bound...)
	default:
		return nil, fmt.Errorf("grammar: unsupported node %T", n)
	}
	memory[n.ID()] = out
	return out, nil
}
