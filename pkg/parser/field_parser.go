/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: field_parser.go
Description: Field level driver of the domain search. Walks a field tree in order,
applies the last-field rule, and commits the bytes each field consumed on every path
that survives. Branches that fail a constraint or a commit are dropped silently; only
configuration mistakes and exhausted branch budgets surface as errors.
*/

package parser

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/sirupsen/logrus"
)

// ErrNoDomain is returned when a leaf field has no definition domain
var ErrNoDomain = errors.New("parser: field has no domain")

// Outcome is the fate of one candidate path after a field was parsed
type Outcome struct {
	Path    *Path  `json:"-"`       // Candidate path
	Matched bool   `json:"matched"` // Whether the field value was committed
	Reason  string `json:"reason"`  // Why the path was rejected
}

// FieldParser parses field trees over paths
type FieldParser struct {
	vp     *VariableParser
	logger logrus.FieldLogger
}

// NewFieldParser creates a field parser with its own branch accounting
func NewFieldParser(config Config, logger logrus.FieldLogger) *FieldParser {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FieldParser{
		vp:     NewVariableParser(config, logger),
		logger: logger,
	}
}

// Variables exposes the underlying variable parser
func (fp *FieldParser) Variables() *VariableParser { return fp.vp }

// Parse returns the paths on which field consumed a prefix of the remaining bytes
// and got its value committed. With last set the field must consume everything left.
func (fp *FieldParser) Parse(field *vocabulary.Field, path *Path, last bool) ([]*Path, error) {
	outcomes, err := fp.ParseOutcomes(field, path, last)
	if err != nil {
		return nil, err
	}
	paths := make([]*Path, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Matched {
			paths = append(paths, o.Path)
		}
	}
	return paths, nil
}

// ParseOutcomes is Parse with the rejected candidates kept alongside the survivors
func (fp *FieldParser) ParseOutcomes(field *vocabulary.Field, path *Path, last bool) ([]Outcome, error) {
	if field == nil {
		return nil, fmt.Errorf("parser: nil field")
	}

	start := path.offset
	var (
		candidates []*Path
		err        error
	)
	if field.IsLeaf() {
		candidates, err = fp.parseLeaf(field, path, last)
	} else {
		candidates, err = fp.parseLayer(field, path, last)
	}
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(candidates))
	matched := 0
	for _, p := range candidates {
		o := fp.commit(field, p, start)
		if o.Matched {
			matched++
		}
		outcomes = append(outcomes, o)
	}

	fp.logger.WithFields(logrus.Fields{
		"field":      field.Name,
		"offset":     start,
		"candidates": len(candidates),
		"matched":    matched,
	}).Debug("Field parsed")

	if fp.vp.exceeded() {
		return nil, ErrBranchLimit
	}
	return outcomes, nil
}

func (fp *FieldParser) parseLeaf(field *vocabulary.Field, path *Path, last bool) ([]*Path, error) {
	if field.Domain == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDomain, field.Path())
	}
	// the field sees the whole remaining window until its own value is committed
	seed := fp.vp.fork(path)
	seed.memory.Bind(field.ID, seed.Remaining())

	paths, err := fp.vp.Parse(field.Domain, seed, last)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", field.Path(), err)
	}
	return paths, nil
}

func (fp *FieldParser) parseLayer(field *vocabulary.Field, path *Path, last bool) ([]*Path, error) {
	seed := fp.vp.fork(path)
	seed.memory.Bind(field.ID, seed.Remaining())

	paths := []*Path{seed}
	for i, child := range field.Children {
		greedy := last && i == len(field.Children)-1
		var next []*Path
		for _, p := range paths {
			res, err := fp.Parse(child, p, greedy)
			if err != nil {
				return nil, err
			}
			next = append(next, res...)
		}
		if len(next) == 0 {
			return nil, nil
		}
		paths = next
	}
	return paths, nil
}

// commit records the bytes consumed by field on p
func (fp *FieldParser) commit(field *vocabulary.Field, p *Path, start int) Outcome {
	var value []byte
	if field.IsLeaf() {
		v, ok := p.memory.Lookup(field.Domain.ID())
		if !ok {
			p.valid = false
			return Outcome{Path: p, Reason: "value unavailable"}
		}
		value = v
	} else {
		value = p.data[start:p.offset]
	}

	if previous, ok := p.fields[field.ID]; ok && !bytes.Equal(previous, value) {
		p.valid = false
		return Outcome{Path: p, Reason: "conflicting assignment"}
	}
	p.fields[field.ID] = value
	p.memory.Bind(field.ID, value)
	return Outcome{Path: p, Matched: true}
}
