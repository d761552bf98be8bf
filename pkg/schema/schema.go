/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: schema.go
Description: YAML symbol definitions. A document names a symbol, lists its fields
with their domain trees and optionally carries hex encoded sample messages. Symbols
produced by clustering are written back in the same format, several per stream.
*/

package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidDomain is returned for domain entries that are empty or ambiguous
	ErrInvalidDomain = errors.New("schema: invalid domain")
	// ErrUnknownRef is returned for references naming no field or label
	ErrUnknownRef = errors.New("schema: unknown reference target")
	// ErrNoFields is returned for documents without fields
	ErrNoFields = errors.New("schema: symbol has no fields")
)

// Document is the YAML form of a symbol
type Document struct {
	Symbol      string      `yaml:"symbol"`
	Description string      `yaml:"description,omitempty"`
	Fields      []FieldSpec `yaml:"fields"`
	Messages    []string    `yaml:"messages,omitempty"` // Hex encoded samples
}

// FieldSpec describes a leaf (with a domain) or a layer (with fields)
type FieldSpec struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Domain      *DomainSpec `yaml:"domain,omitempty"`
	Fields      []FieldSpec `yaml:"fields,omitempty"`
}

// DomainSpec describes one domain node. Exactly one of the variant keys is set;
// Min and Max apply to typed values.
type DomainSpec struct {
	Label  string       `yaml:"label,omitempty"` // Name other refs can point to
	ASCII  *string      `yaml:"ascii,omitempty"`
	Hex    *string      `yaml:"hex,omitempty"`
	Raw    *string      `yaml:"raw,omitempty"`
	Type   string       `yaml:"type,omitempty"`
	Min    int          `yaml:"min,omitempty"`
	Max    *int         `yaml:"max,omitempty"` // Omitted or -1 for unbounded
	Agg    []DomainSpec `yaml:"agg,omitempty"`
	Alt    []DomainSpec `yaml:"alt,omitempty"`
	Repeat *RepeatSpec  `yaml:"repeat,omitempty"`
	Ref    string       `yaml:"ref,omitempty"`
	Set    []string     `yaml:"set,omitempty"` // Hex encoded accepted values
}

// RepeatSpec describes a repetition
type RepeatSpec struct {
	Domain DomainSpec `yaml:"domain"`
	Min    int        `yaml:"min,omitempty"`
	Max    *int       `yaml:"max,omitempty"`
}

// Parse decodes a single symbol document
func Parse(data []byte) (*vocabulary.Symbol, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse symbol: %w", err)
	}
	return doc.Build()
}

// ParseAll decodes every document of a YAML stream
func ParseAll(r io.Reader) ([]*vocabulary.Symbol, error) {
	dec := yaml.NewDecoder(r)
	var symbols []*vocabulary.Symbol
	for {
		var doc Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return symbols, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse symbol %d: %w", len(symbols)+1, err)
		}
		symbol, err := doc.Build()
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
}

// Load reads every symbol of a YAML file
func Load(path string) ([]*vocabulary.Symbol, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbol file: %w", err)
	}
	defer f.Close()

	symbols, err := ParseAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return symbols, nil
}

// Marshal encodes a symbol as a document
func Marshal(symbol *vocabulary.Symbol) ([]byte, error) {
	return MarshalAll([]*vocabulary.Symbol{symbol})
}

// MarshalAll encodes symbols as a multi document stream
func MarshalAll(symbols []*vocabulary.Symbol) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, s := range symbols {
		doc, err := NewDocument(s)
		if err != nil {
			return nil, err
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode symbol %s: %w", s.Name, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes symbols to path
func Save(path string, symbols []*vocabulary.Symbol) error {
	data, err := MarshalAll(symbols)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write symbol file: %w", err)
	}
	return nil
}
