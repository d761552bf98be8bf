/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: encode.go
Description: Symbol to document conversion.
*/

package schema

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-inference/pkg/domain"
	"github.com/kleascm/akaylee-inference/pkg/types"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
)

type encoder struct {
	names  map[uuid.UUID]string // Reference target to the name used in documents
	labels map[uuid.UUID]string // Nodes that need a label to be referenced
}

// NewDocument converts a symbol into its document form
func NewDocument(symbol *vocabulary.Symbol) (*Document, error) {
	e, err := newEncoder(symbol)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Symbol:      symbol.Name,
		Description: symbol.Description,
	}
	if symbol.IsLeaf() {
		// a symbol reduced to its root still needs one field to carry the domain
		spec, err := e.field(symbol.Field)
		if err != nil {
			return nil, err
		}
		doc.Fields = []FieldSpec{spec}
	}
	for _, c := range symbol.Children {
		spec, err := e.field(c)
		if err != nil {
			return nil, err
		}
		doc.Fields = append(doc.Fields, spec)
	}
	for _, m := range symbol.Messages {
		doc.Messages = append(doc.Messages, hex.EncodeToString(m.Data))
	}
	return doc, nil
}

// newEncoder names every reference target: fields by their name when it is
// unambiguous, other nodes by a generated label
func newEncoder(symbol *vocabulary.Symbol) (*encoder, error) {
	e := &encoder{
		names:  make(map[uuid.UUID]string),
		labels: make(map[uuid.UUID]string),
	}

	var targets []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	nodes := make(map[uuid.UUID]bool)
	symbol.Walk(func(f *vocabulary.Field) {
		domain.Walk(f.Domain, func(n domain.Node) bool {
			nodes[n.ID()] = true
			if r, ok := n.(*domain.Ref); ok && !seen[r.Target] {
				seen[r.Target] = true
				targets = append(targets, r.Target)
			}
			return true
		})
	})

	next := 0
	for _, target := range targets {
		if f := fieldFor(symbol, target); f != nil && symbol.FindByName(f.Name) == f {
			e.names[target] = f.Name
			continue
		}
		if !nodes[target] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRef, target)
		}
		next++
		label := fmt.Sprintf("_ref%d", next)
		e.names[target] = label
		e.labels[target] = label
	}
	return e, nil
}

// fieldFor returns the field a reference target designates
func fieldFor(symbol *vocabulary.Symbol, target uuid.UUID) *vocabulary.Field {
	var found *vocabulary.Field
	symbol.Walk(func(f *vocabulary.Field) {
		if found != nil {
			return
		}
		if f.ID == target && !f.IsLeaf() {
			found = f
		}
		if f.IsLeaf() && f.Domain != nil && f.Domain.ID() == target {
			found = f
		}
	})
	return found
}

func (e *encoder) field(f *vocabulary.Field) (FieldSpec, error) {
	spec := FieldSpec{Name: f.Name, Description: f.Description}
	if !f.IsLeaf() {
		for _, c := range f.Children {
			cs, err := e.field(c)
			if err != nil {
				return spec, err
			}
			spec.Fields = append(spec.Fields, cs)
		}
		return spec, nil
	}
	if f.Domain == nil {
		return spec, fmt.Errorf("%w: field %s has no domain", ErrInvalidDomain, f.Path())
	}
	d, err := e.domain(f.Domain)
	if err != nil {
		return spec, fmt.Errorf("field %s: %w", f.Path(), err)
	}
	spec.Domain = &d
	return spec, nil
}

func (e *encoder) domain(n domain.Node) (DomainSpec, error) {
	spec := DomainSpec{Label: e.labels[n.ID()]}
	switch v := n.(type) {
	case *domain.Value:
		if v.Constant != nil {
			setConstant(&spec, v)
			break
		}
		spec.Type = v.Type.Name()
		spec.Min = v.Min
		if v.Max != domain.Unbounded {
			max := v.Max
			spec.Max = &max
		}
	case *domain.Agg:
		for _, c := range v.Nodes {
			cs, err := e.domain(c)
			if err != nil {
				return spec, err
			}
			spec.Agg = append(spec.Agg, cs)
		}
	case *domain.Alt:
		if set, ok := e.valueSet(v); ok {
			spec.Set = set
			break
		}
		for _, c := range v.Nodes {
			cs, err := e.domain(c)
			if err != nil {
				return spec, err
			}
			spec.Alt = append(spec.Alt, cs)
		}
	case *domain.Repeat:
		child, err := e.domain(v.Child)
		if err != nil {
			return spec, err
		}
		spec.Repeat = &RepeatSpec{Domain: child, Min: v.Min}
		if v.Max != domain.Unbounded {
			max := v.Max
			spec.Repeat.Max = &max
		}
	case *domain.Ref:
		name, ok := e.names[v.Target]
		if !ok {
			return spec, fmt.Errorf("%w: %s", ErrUnknownRef, v.Target)
		}
		spec.Ref = name
	default:
		return spec, fmt.Errorf("%w: unsupported node %T", ErrInvalidDomain, n)
	}
	return spec, nil
}

// valueSet recognizes alternations of raw constants nobody references
func (e *encoder) valueSet(alt *domain.Alt) ([]string, bool) {
	set := make([]string, 0, len(alt.Nodes))
	for _, c := range alt.Nodes {
		v, ok := c.(*domain.Value)
		if !ok || v.Constant == nil || v.Type.Name() != (types.Raw{}).Name() || e.labels[v.ID()] != "" {
			return nil, false
		}
		set = append(set, hex.EncodeToString(v.Constant))
	}
	return set, true
}

func setConstant(spec *DomainSpec, v *domain.Value) {
	data := v.Constant
	switch v.Type.Name() {
	case (types.ASCII{}).Name():
		s := string(data)
		spec.ASCII = &s
	case (types.Raw{}).Name():
		if (types.ASCII{}).CanParse(data) && !strings.HasPrefix(string(data), `"`) {
			s := string(data)
			spec.Raw = &s
			return
		}
		h := hex.EncodeToString(data)
		spec.Hex = &h
	default:
		h := hex.EncodeToString(data)
		spec.Hex = &h
	}
}
