/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: domain.go
Description: Domain trees describing the bytes a field may contain. Leaves constrain
length and content through a primitive type; combinators (aggregation, alternation,
repetition) compose their children and references tie a node to a value bound earlier
in the same message.
*/

package domain

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-inference/pkg/types"
)

// Unbounded marks an open maximum length or repeat count
const Unbounded = -1

// Kind identifies the variant of a domain node
type Kind int

const (
	KindValue Kind = iota
	KindAgg
	KindAlt
	KindRepeat
	KindRef
)

// String returns the short name of the kind
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "Value"
	case KindAgg:
		return "Agg"
	case KindAlt:
		return "Alt"
	case KindRepeat:
		return "Repeat"
	case KindRef:
		return "Ref"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is one element of a domain tree.
// The ID doubles as the key under which matched bytes are remembered.
type Node interface {
	ID() uuid.UUID
	Kind() Kind
	Children() []Node
	String() string
}

// Value accepts between Min and Max bytes of content accepted by Type.
// A non-nil Constant restricts the content to exactly those bytes.
type Value struct {
	id       uuid.UUID
	Type     types.Type
	Min      int
	Max      int // Unbounded for no limit
	Constant []byte
}

// NewValue creates a ranged value node
func NewValue(t types.Type, min, max int) *Value {
	if t == nil {
		t = types.Raw{}
	}
	return &Value{id: uuid.New(), Type: t, Min: min, Max: max}
}

// NewConstant creates a value node accepting exactly data
func NewConstant(t types.Type, data []byte) *Value {
	if t == nil {
		t = types.Raw{}
	}
	c := make([]byte, len(data))
	copy(c, data)
	return &Value{id: uuid.New(), Type: t, Min: len(c), Max: len(c), Constant: c}
}

// NewASCII creates a constant ASCII node
func NewASCII(s string) *Value { return NewConstant(types.ASCII{}, []byte(s)) }

// NewRaw creates a constant raw node
func NewRaw(data []byte) *Value { return NewConstant(types.Raw{}, data) }

func (v *Value) ID() uuid.UUID    { return v.id }
func (v *Value) Kind() Kind       { return KindValue }
func (v *Value) Children() []Node { return nil }

// IsConstant reports whether the node accepts a single fixed content
func (v *Value) IsConstant() bool { return v.Constant != nil }

// Accepts reports whether data is a valid full consumption for this node
func (v *Value) Accepts(data []byte) bool {
	if v.Constant != nil {
		return bytes.Equal(v.Constant, data)
	}
	if len(data) < v.Min || (v.Max != Unbounded && len(data) > v.Max) {
		return false
	}
	return v.Type.CanParse(data)
}

func (v *Value) String() string {
	if v.Constant != nil {
		return fmt.Sprintf("%s=%s", v.Type.Name(), v.Type.Encode(v.Constant))
	}
	return fmt.Sprintf("%s(%s)", v.Type.Name(), formatRange(v.Min, v.Max))
}

// Agg matches its children in order over consecutive windows
type Agg struct {
	id    uuid.UUID
	Nodes []Node
}

// NewAgg creates an aggregation
func NewAgg(children ...Node) *Agg {
	return &Agg{id: uuid.New(), Nodes: children}
}

func (a *Agg) ID() uuid.UUID    { return a.id }
func (a *Agg) Kind() Kind       { return KindAgg }
func (a *Agg) Children() []Node { return a.Nodes }
func (a *Agg) String() string   { return fmt.Sprintf("Agg[%d]", len(a.Nodes)) }

// Alt matches any one of its children
type Alt struct {
	id    uuid.UUID
	Nodes []Node
}

// NewAlt creates an alternation
func NewAlt(children ...Node) *Alt {
	return &Alt{id: uuid.New(), Nodes: children}
}

func (a *Alt) ID() uuid.UUID    { return a.id }
func (a *Alt) Kind() Kind       { return KindAlt }
func (a *Alt) Children() []Node { return a.Nodes }
func (a *Alt) String() string   { return fmt.Sprintf("Alt[%d]", len(a.Nodes)) }

// Repeat matches Child back to back between Min and Max times
type Repeat struct {
	id    uuid.UUID
	Child Node
	Min   int
	Max   int // Unbounded for no limit
}

// NewRepeat creates a repetition
func NewRepeat(child Node, min, max int) *Repeat {
	return &Repeat{id: uuid.New(), Child: child, Min: min, Max: max}
}

func (r *Repeat) ID() uuid.UUID    { return r.id }
func (r *Repeat) Kind() Kind       { return KindRepeat }
func (r *Repeat) Children() []Node { return []Node{r.Child} }
func (r *Repeat) String() string   { return fmt.Sprintf("Repeat(%s)", formatRange(r.Min, r.Max)) }

// Ref matches the bytes bound to Target earlier in the same message
type Ref struct {
	id     uuid.UUID
	Target uuid.UUID
}

// NewRef creates a reference to target
func NewRef(target Node) *Ref {
	r := &Ref{id: uuid.New()}
	if target != nil {
		r.Target = target.ID()
	}
	return r
}

func (r *Ref) ID() uuid.UUID    { return r.id }
func (r *Ref) Kind() Kind       { return KindRef }
func (r *Ref) Children() []Node { return nil }
func (r *Ref) String() string   { return fmt.Sprintf("Ref(%s)", r.Target.String()[:8]) }

// NewValueSet creates a domain accepting exactly the given values.
// Duplicates are removed keeping first-seen order; a single value becomes a constant.
func NewValueSet(values [][]byte) Node {
	seen := make(map[string]bool, len(values))
	unique := make([]Node, 0, len(values))
	for _, v := range values {
		if seen[string(v)] {
			continue
		}
		seen[string(v)] = true
		unique = append(unique, NewRaw(v))
	}
	if len(unique) == 1 {
		return unique[0]
	}
	return NewAlt(unique...)
}

// Walk visits node and its descendants depth first.
// Returning false from fn stops the descent below that node.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range node.Children() {
		Walk(child, fn)
	}
}

// Find returns the node with the given id below root
func Find(root Node, id uuid.UUID) Node {
	var found Node
	Walk(root, func(n Node) bool {
		if found != nil {
			return false
		}
		if n.ID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Dump renders the tree with one node per line
func Dump(node Node) string {
	var b strings.Builder
	dump(&b, node, 0)
	return strings.TrimRight(b.String(), "\n")
}

func dump(b *strings.Builder, node Node, depth int) {
	if node == nil {
		return
	}
	b.WriteString(strings.Repeat("|--  ", depth))
	b.WriteString(node.String())
	b.WriteString("\n")
	for _, child := range node.Children() {
		dump(b, child, depth+1)
	}
}

func formatRange(min, max int) string {
	if max == Unbounded {
		return fmt.Sprintf("%d..", min)
	}
	if min == max {
		return fmt.Sprintf("%d", min)
	}
	return fmt.Sprintf("%d..%d", min, max)
}
