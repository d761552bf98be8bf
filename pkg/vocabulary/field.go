/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: field.go
Description: Fields of a protocol message format. A field is either a leaf owning a
domain or a layer grouping child fields. Fields keep a stable identity for their
whole life; only their domain may change.
*/

package vocabulary

import (
	"strings"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-inference/pkg/domain"
)

// Field is a node of a message format tree
type Field struct {
	ID          uuid.UUID   // Stable identity of the field
	Name        string      // Public name, not necessarily unique
	Description string      // Free text description
	Domain      domain.Node // Definition domain, required for leaves
	Children    []*Field    // Child fields when the field is a layer
	Layer       bool        // Whether the field was declared as a layer

	parent *Field
}

// NewField creates a leaf field
func NewField(name string, d domain.Node) *Field {
	if name == "" {
		name = "Field"
	}
	return &Field{ID: uuid.New(), Name: name, Domain: d}
}

// NewLayer creates a field grouping children
func NewLayer(name string, children ...*Field) *Field {
	if name == "" {
		name = "Layer"
	}
	f := &Field{ID: uuid.New(), Name: name, Layer: true}
	f.SetChildren(children)
	return f
}

// SetChildren replaces the children of the field and re-parents them
func (f *Field) SetChildren(children []*Field) {
	f.Children = make([]*Field, 0, len(children))
	for _, c := range children {
		if c == nil {
			continue
		}
		c.parent = f
		f.Children = append(f.Children, c)
	}
}

// AddChild appends a child field
func (f *Field) AddChild(child *Field) {
	child.parent = f
	f.Children = append(f.Children, child)
}

// SetDomain replaces the definition domain. Previous alignment results for this
// field are no longer meaningful; nothing is cached so nothing needs clearing.
func (f *Field) SetDomain(d domain.Node) {
	f.Domain = d
}

// Parent returns the parent field or nil for a root
func (f *Field) Parent() *Field { return f.parent }

// IsLeaf reports whether the field has no children
func (f *Field) IsLeaf() bool { return len(f.Children) == 0 }

// HasChild reports whether child is an immediate child of f
func (f *Field) HasChild(child *Field) bool {
	for _, c := range f.Children {
		if c == child {
			return true
		}
	}
	return false
}

// Index returns the position of child among the children of f, or -1
func (f *Field) Index(child *Field) int {
	for i, c := range f.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// LeafFields returns the fields forming the columns of an alignment at the given
// depth. Fields at that depth are returned even when they have children; a
// negative depth descends to the real leaves.
func (f *Field) LeafFields(depth int) []*Field {
	return f.leafFields(depth, 0)
}

func (f *Field) leafFields(depth, current int) []*Field {
	if len(f.Children) == 0 || current == depth {
		return []*Field{f}
	}
	leaves := make([]*Field, 0, len(f.Children))
	for _, c := range f.Children {
		leaves = append(leaves, c.leafFields(depth, current+1)...)
	}
	return leaves
}

// Walk visits the field and all its descendants depth first
func (f *Field) Walk(fn func(*Field)) {
	fn(f)
	for _, c := range f.Children {
		c.Walk(fn)
	}
}

// FindByName returns the first field named name in the tree
func (f *Field) FindByName(name string) *Field {
	var found *Field
	f.Walk(func(c *Field) {
		if found == nil && c.Name == name {
			found = c
		}
	})
	return found
}

// Path returns the names from the root down to the field
func (f *Field) Path() string {
	names := []string{}
	for c := f; c != nil; c = c.parent {
		names = append([]string{c.Name}, names...)
	}
	return strings.Join(names, "/")
}

// Dump renders the field tree with its domains
func (f *Field) Dump() string {
	var b strings.Builder
	f.dump(&b, 0)
	return strings.TrimRight(b.String(), "\n")
}

func (f *Field) dump(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("|--  ", depth))
	b.WriteString(f.Name)
	b.WriteString("\n")
	if f.Domain != nil && f.IsLeaf() {
		for _, line := range strings.Split(domain.Dump(f.Domain), "\n") {
			b.WriteString(strings.Repeat("|--  ", depth+1))
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	for _, c := range f.Children {
		c.dump(b, depth+1)
	}
}
