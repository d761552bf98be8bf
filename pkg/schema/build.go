/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: build.go
Description: Conversion between symbol documents and field trees. References are
resolved in a second pass once every field and labelled node exists.
*/

package schema

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-inference/pkg/domain"
	"github.com/kleascm/akaylee-inference/pkg/parser"
	"github.com/kleascm/akaylee-inference/pkg/types"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
)

type pendingRef struct {
	ref   *domain.Ref
	name  string
	field string
}

type builder struct {
	labels map[string]domain.Node
	refs   []pendingRef
}

// Build converts the document into a symbol and checks its domains
func (d *Document) Build() (*vocabulary.Symbol, error) {
	if len(d.Fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFields, d.Symbol)
	}

	b := &builder{labels: make(map[string]domain.Node)}
	fields := make([]*vocabulary.Field, 0, len(d.Fields))
	for i := range d.Fields {
		f, err := b.field(&d.Fields[i])
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", d.Symbol, err)
		}
		fields = append(fields, f)
	}

	messages := make([]*vocabulary.RawMessage, 0, len(d.Messages))
	for i, m := range d.Messages {
		data, err := hex.DecodeString(strings.ReplaceAll(m, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("symbol %s: message %d: %w", d.Symbol, i, err)
		}
		messages = append(messages, vocabulary.NewRawMessage(data))
	}

	symbol := vocabulary.NewSymbol(d.Symbol, fields, messages)
	symbol.Description = d.Description

	for _, p := range b.refs {
		target, ok := b.resolve(symbol, p.name)
		if !ok {
			return nil, fmt.Errorf("symbol %s: field %s: %w: %s", d.Symbol, p.field, ErrUnknownRef, p.name)
		}
		p.ref.Target = target
	}

	if err := Check(symbol); err != nil {
		return nil, err
	}
	return symbol, nil
}

// resolve finds a reference target: labels first, then field names. A leaf
// field is referenced through its domain, a layer through its own id.
func (b *builder) resolve(symbol *vocabulary.Symbol, name string) (uuid.UUID, bool) {
	if n, ok := b.labels[name]; ok {
		return n.ID(), true
	}
	f := symbol.FindByName(name)
	if f == nil {
		return uuid.Nil, false
	}
	if f.IsLeaf() && f.Domain != nil {
		return f.Domain.ID(), true
	}
	return f.ID, true
}

func (b *builder) field(spec *FieldSpec) (*vocabulary.Field, error) {
	if len(spec.Fields) > 0 {
		if spec.Domain != nil {
			return nil, fmt.Errorf("%w: field %s has both a domain and fields", ErrInvalidDomain, spec.Name)
		}
		children := make([]*vocabulary.Field, 0, len(spec.Fields))
		for i := range spec.Fields {
			c, err := b.field(&spec.Fields[i])
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		layer := vocabulary.NewLayer(spec.Name, children...)
		layer.Description = spec.Description
		return layer, nil
	}

	if spec.Domain == nil {
		return nil, fmt.Errorf("%w: field %s", parser.ErrNoDomain, spec.Name)
	}
	d, err := b.domain(spec.Domain, spec.Name)
	if err != nil {
		return nil, err
	}
	f := vocabulary.NewField(spec.Name, d)
	f.Description = spec.Description
	return f, nil
}

func (b *builder) domain(spec *DomainSpec, field string) (domain.Node, error) {
	if n := spec.variants(); n != 1 {
		return nil, fmt.Errorf("%w: field %s: %d variants set", ErrInvalidDomain, field, n)
	}

	var (
		node domain.Node
		err  error
	)
	switch {
	case spec.ASCII != nil:
		node = domain.NewASCII(*spec.ASCII)
	case spec.Hex != nil:
		var data []byte
		if data, err = (types.HexaString{}).Decode(*spec.Hex); err == nil {
			node = domain.NewConstant(types.HexaString{}, data)
		}
	case spec.Raw != nil:
		var data []byte
		if data, err = (types.Raw{}).Decode(*spec.Raw); err == nil {
			node = domain.NewRaw(data)
		}
	case spec.Type != "":
		var t types.Type
		if t, err = types.Lookup(spec.Type); err == nil {
			node = domain.NewValue(t, spec.Min, bound(spec.Max))
		}
	case len(spec.Agg) > 0:
		var children []domain.Node
		if children, err = b.children(spec.Agg, field); err == nil {
			node = domain.NewAgg(children...)
		}
	case len(spec.Alt) > 0:
		var children []domain.Node
		if children, err = b.children(spec.Alt, field); err == nil {
			node = domain.NewAlt(children...)
		}
	case spec.Repeat != nil:
		var child domain.Node
		if child, err = b.domain(&spec.Repeat.Domain, field); err == nil {
			node = domain.NewRepeat(child, spec.Repeat.Min, bound(spec.Repeat.Max))
		}
	case spec.Ref != "":
		ref := domain.NewRef(nil)
		b.refs = append(b.refs, pendingRef{ref: ref, name: spec.Ref, field: field})
		node = ref
	case len(spec.Set) > 0:
		values := make([][]byte, len(spec.Set))
		for i, s := range spec.Set {
			if values[i], err = hex.DecodeString(s); err != nil {
				break
			}
		}
		if err == nil {
			node = domain.NewValueSet(values)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: field %s: %v", ErrInvalidDomain, field, err)
	}

	if spec.Label != "" {
		if _, dup := b.labels[spec.Label]; dup {
			return nil, fmt.Errorf("%w: field %s: duplicate label %s", ErrInvalidDomain, field, spec.Label)
		}
		b.labels[spec.Label] = node
	}
	return node, nil
}

func (b *builder) children(specs []DomainSpec, field string) ([]domain.Node, error) {
	nodes := make([]domain.Node, 0, len(specs))
	for i := range specs {
		n, err := b.domain(&specs[i], field)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (s *DomainSpec) variants() int {
	n := 0
	for _, set := range []bool{
		s.ASCII != nil, s.Hex != nil, s.Raw != nil, s.Type != "",
		len(s.Agg) > 0, len(s.Alt) > 0, s.Repeat != nil, s.Ref != "", len(s.Set) > 0,
	} {
		if set {
			n++
		}
	}
	return n
}

func bound(max *int) int {
	if max == nil || *max < 0 {
		return domain.Unbounded
	}
	return *max
}

// Check validates every domain of symbol. References may point to any field or
// domain node of the symbol.
func Check(symbol *vocabulary.Symbol) error {
	known := make(map[uuid.UUID]bool)
	symbol.Walk(func(f *vocabulary.Field) {
		known[f.ID] = true
		domain.Walk(f.Domain, func(n domain.Node) bool {
			known[n.ID()] = true
			return true
		})
	})

	var errs []error
	symbol.Walk(func(f *vocabulary.Field) {
		if !f.IsLeaf() {
			return
		}
		if f.Domain == nil {
			errs = append(errs, fmt.Errorf("%w: %s", parser.ErrNoDomain, f.Path()))
			return
		}
		if err := domain.Validate(f.Domain, known); err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", f.Path(), err))
		}
	})
	return errors.Join(errs...)
}
