/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: variable_parser.go
Description: Backtracking matcher for domain trees. Each call resolves one node against
the remaining bytes of a path and returns every complete way the node can consume a
prefix, one forked path per alternative. A node that cannot match returns no paths;
that is the normal way constraints prune the search.
*/

package parser

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/kleascm/akaylee-inference/pkg/domain"
	"github.com/sirupsen/logrus"
)

var (
	// ErrBranchLimit is returned when a search creates more paths than allowed
	ErrBranchLimit = errors.New("parser: branch limit exceeded")
	// ErrUnknownNode is returned for domain nodes of an unsupported variant
	ErrUnknownNode = errors.New("parser: unknown domain node")
)

// Config bounds a search
type Config struct {
	MaxBranches int `json:"max_branches" mapstructure:"max_branches"` // Paths one message may create, 0 = unlimited
}

// VariableParser matches domain nodes against paths.
// A parser serves a single message search and is not safe for concurrent use.
type VariableParser struct {
	config  Config
	logger  logrus.FieldLogger
	created int
	next    uint64
}

// NewVariableParser creates a parser with the given limits
func NewVariableParser(config Config, logger logrus.FieldLogger) *VariableParser {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &VariableParser{config: config, logger: logger}
}

// Created returns the number of paths forked so far
func (vp *VariableParser) Created() int { return vp.created }

// Reset clears the branch accounting so the parser can serve a new message
func (vp *VariableParser) Reset() {
	vp.created = 0
	vp.next = 0
}

func (vp *VariableParser) fork(p *Path) *Path {
	vp.created++
	vp.next++
	return p.fork(vp.next)
}

func (vp *VariableParser) exceeded() bool {
	return vp.config.MaxBranches > 0 && vp.created > vp.config.MaxBranches
}

// emit forks p, consumes n bytes and binds them to key on the fork
func (vp *VariableParser) emit(p *Path, node domain.Node, n int) *Path {
	child := vp.fork(p)
	child.memory.Bind(node.ID(), child.data[child.offset:child.offset+n])
	child.offset += n
	return child
}

// Parse returns every path on which node consumes a prefix of the remaining
// bytes. With greedy set only consumptions reaching the end of data survive.
func (vp *VariableParser) Parse(node domain.Node, path *Path, greedy bool) ([]*Path, error) {
	if vp.exceeded() {
		return nil, ErrBranchLimit
	}
	if node == nil {
		return nil, domain.ErrNilNode
	}

	var (
		results []*Path
		err     error
	)
	switch n := node.(type) {
	case *domain.Value:
		results = vp.parseValue(n, path, greedy)
	case *domain.Agg:
		results, err = vp.parseAgg(n, path, greedy)
	case *domain.Alt:
		results, err = vp.parseAlt(n, path, greedy)
	case *domain.Repeat:
		results, err = vp.parseRepeat(n, path, greedy)
	case *domain.Ref:
		results = vp.parseRef(n, path, greedy)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownNode, node)
	}
	if err != nil {
		return nil, err
	}
	if vp.exceeded() {
		return nil, ErrBranchLimit
	}
	return results, nil
}

// parseValue tries every admissible length, longest first
func (vp *VariableParser) parseValue(n *domain.Value, path *Path, greedy bool) []*Path {
	remaining := path.Remaining()

	if n.Constant != nil {
		l := len(n.Constant)
		if l > len(remaining) || (greedy && l != len(remaining)) {
			return nil
		}
		if !bytes.Equal(remaining[:l], n.Constant) {
			return nil
		}
		return []*Path{vp.emit(path, n, l)}
	}

	min, max := n.Min, n.Max
	if max == domain.Unbounded || max > len(remaining) {
		max = len(remaining)
	}
	if greedy {
		if len(remaining) < min || len(remaining) > max {
			return nil
		}
		min = len(remaining)
	}

	var results []*Path
	for l := max; l >= min; l-- {
		if n.Type.CanParse(remaining[:l]) {
			results = append(results, vp.emit(path, n, l))
		}
	}
	return results
}

// parseAgg matches children in order; only the last child inherits greediness
func (vp *VariableParser) parseAgg(n *domain.Agg, path *Path, greedy bool) ([]*Path, error) {
	start := path.offset
	paths := []*Path{path}
	for i, child := range n.Nodes {
		last := i == len(n.Nodes)-1
		var next []*Path
		for _, p := range paths {
			res, err := vp.Parse(child, p, greedy && last)
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
	for _, p := range paths {
		p.memory.Bind(n.ID(), p.data[start:p.offset])
	}
	return paths, nil
}

// parseAlt keeps the branches of every child, duplicates included: two children
// consuming the same bytes are two different explanations of them
func (vp *VariableParser) parseAlt(n *domain.Alt, path *Path, greedy bool) ([]*Path, error) {
	start := path.offset
	var results []*Path
	for _, child := range n.Nodes {
		res, err := vp.Parse(child, path, greedy)
		if err != nil {
			return nil, err
		}
		results = append(results, res...)
	}
	for _, p := range results {
		p.memory.Bind(n.ID(), p.data[start:p.offset])
	}
	return results, nil
}

// parseRepeat tiles the child back to back and emits one path per tiling whose
// count lies in range, highest counts first. Zero-width child matches never
// start a new branch; they only pad a short tiling up to the minimum count.
func (vp *VariableParser) parseRepeat(n *domain.Repeat, path *Path, greedy bool) ([]*Path, error) {
	start := path.offset
	levels := [][]*Path{{path}}

	level := levels[0]
	for count := 1; n.Max == domain.Unbounded || count <= n.Max; count++ {
		var next []*Path
		for _, p := range level {
			res, err := vp.Parse(n.Child, p, false)
			if err != nil {
				return nil, err
			}
			for _, r := range res {
				if r.offset == p.offset {
					continue
				}
				next = append(next, r)
			}
		}
		if len(next) == 0 {
			break
		}
		level = next
		levels = append(levels, level)
	}

	var results []*Path
	for count := len(levels) - 1; count >= 0; count-- {
		for _, p := range levels[count] {
			if greedy && !p.AtEnd() {
				continue
			}
			switch {
			case count < n.Min:
				padded, err := vp.pad(n.Child, p, n.Min-count)
				if err != nil {
					return nil, err
				}
				if padded == nil {
					continue
				}
				p = padded
			case count == 0:
				p = vp.fork(p)
			}
			p.memory.Bind(n.ID(), p.data[start:p.offset])
			results = append(results, p)
		}
	}
	return results, nil
}

// pad extends p by times empty matches of child, nil when child cannot match empty there
func (vp *VariableParser) pad(child domain.Node, p *Path, times int) (*Path, error) {
	for i := 0; i < times; i++ {
		res, err := vp.Parse(child, p, false)
		if err != nil {
			return nil, err
		}
		var empty *Path
		for _, r := range res {
			if r.offset == p.offset {
				empty = r
				break
			}
		}
		if empty == nil {
			return nil, nil
		}
		p = empty
	}
	return p, nil
}

// parseRef matches the bytes bound to the target; an unbound target never matches
func (vp *VariableParser) parseRef(n *domain.Ref, path *Path, greedy bool) []*Path {
	value, ok := path.memory.Lookup(n.Target)
	if !ok {
		vp.logger.WithFields(logrus.Fields{
			"target": n.Target.String(),
			"offset": path.offset,
		}).Debug("Reference target not bound yet")
		return nil
	}
	remaining := path.Remaining()
	if len(value) > len(remaining) || (greedy && len(value) != len(remaining)) {
		return nil
	}
	if !bytes.Equal(remaining[:len(value)], value) {
		return nil
	}
	return []*Path{vp.emit(path, n, len(value))}
}
