/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inference.go
Description: Entry point for symbol inference. Provides the InferenceEngine interface
so the CLI and callers can select a refinement operation by name, and the engine
backed by cluster-by-key-field.
*/

package inference

import (
	"context"
	"fmt"

	"github.com/kleascm/akaylee-inference/pkg/alignment"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
)

// InferenceEngine defines the interface for symbol refinement engines
type InferenceEngine interface {
	// InferSymbols derives new symbols from the messages of symbol
	InferSymbols(ctx context.Context, symbol *vocabulary.Symbol) ([]*vocabulary.Symbol, error)
	// Format returns the name the engine is selected by
	Format() string
}

// ClusterEngine refines a symbol by splitting it on the value of a key field
type ClusterEngine struct {
	KeyField string            // Name of an immediate child of the symbol
	Options  alignment.Options // Alignment options used to read the key values
}

// NewClusterEngine creates an engine clustering on the named field
func NewClusterEngine(keyField string, opts alignment.Options) *ClusterEngine {
	return &ClusterEngine{KeyField: keyField, Options: opts}
}

// Format returns the name of the engine
func (e *ClusterEngine) Format() string { return "cluster" }

// InferSymbols clusters symbol and returns one symbol per key value
func (e *ClusterEngine) InferSymbols(ctx context.Context, symbol *vocabulary.Symbol) ([]*vocabulary.Symbol, error) {
	if symbol == nil {
		return nil, fmt.Errorf("%w: nil symbol", ErrKeyFieldNotChild)
	}
	key := ChildByName(symbol.Field, e.KeyField)
	if key == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyFieldNotChild, e.KeyField)
	}
	res, err := ClusterByKeyField(ctx, symbol, key, e.Options)
	if err != nil {
		return nil, err
	}
	return res.Symbols(), nil
}

// ChildByName returns the immediate child of parent named name
func ChildByName(parent *vocabulary.Field, name string) *vocabulary.Field {
	for _, c := range parent.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// NewEngine returns the inference engine for the given format
func NewEngine(format, keyField string, opts alignment.Options) InferenceEngine {
	switch format {
	case "cluster", "key":
		return NewClusterEngine(keyField, opts)
	default:
		return nil
	}
}
