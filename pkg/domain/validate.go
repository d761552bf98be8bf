/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: validate.go
Description: Structural validation of domain trees. Catches configuration mistakes
(inverted ranges, empty combinators, dangling references) before any message is parsed.
*/

package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidRange    = errors.New("domain: invalid range")
	ErrEmptyCombinator = errors.New("domain: combinator without children")
	ErrDanglingRef     = errors.New("domain: reference target not found")
	ErrNilNode         = errors.New("domain: nil node")
)

// Validate checks node and its descendants. Reference targets must exist either
// inside the tree or in known, which callers fill with the ids of sibling domains.
func Validate(node Node, known map[uuid.UUID]bool) error {
	if node == nil {
		return ErrNilNode
	}

	ids := make(map[uuid.UUID]bool)
	Walk(node, func(n Node) bool {
		ids[n.ID()] = true
		return true
	})

	var err error
	Walk(node, func(n Node) bool {
		if err != nil {
			return false
		}
		err = validateNode(n, ids, known)
		return err == nil
	})
	return err
}

func validateNode(n Node, ids, known map[uuid.UUID]bool) error {
	switch v := n.(type) {
	case *Value:
		if v.Type == nil {
			return fmt.Errorf("%s: missing type", v)
		}
		if err := checkRange(v.Min, v.Max); err != nil {
			return fmt.Errorf("%s: %w", v, err)
		}
		if v.Constant != nil && !v.Type.CanParse(v.Constant) {
			return fmt.Errorf("%s: constant rejected by its own type", v)
		}
	case *Agg:
		if len(v.Nodes) == 0 {
			return fmt.Errorf("%s: %w", v, ErrEmptyCombinator)
		}
		for _, c := range v.Nodes {
			if c == nil {
				return fmt.Errorf("%s: %w", v, ErrNilNode)
			}
		}
	case *Alt:
		if len(v.Nodes) == 0 {
			return fmt.Errorf("%s: %w", v, ErrEmptyCombinator)
		}
		for _, c := range v.Nodes {
			if c == nil {
				return fmt.Errorf("%s: %w", v, ErrNilNode)
			}
		}
	case *Repeat:
		if v.Child == nil {
			return fmt.Errorf("%s: %w", v, ErrNilNode)
		}
		if err := checkRange(v.Min, v.Max); err != nil {
			return fmt.Errorf("%s: %w", v, err)
		}
	case *Ref:
		if !ids[v.Target] && !known[v.Target] {
			return fmt.Errorf("%s: %w", v, ErrDanglingRef)
		}
	}
	return nil
}

func checkRange(min, max int) error {
	if min < 0 {
		return fmt.Errorf("%w: negative minimum %d", ErrInvalidRange, min)
	}
	if max != Unbounded && max < min {
		return fmt.Errorf("%w: maximum %d below minimum %d", ErrInvalidRange, max, min)
	}
	return nil
}
