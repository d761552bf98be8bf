/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: path.go
Description: Parsing paths and their variable memory. A path is one self-consistent
way of consuming a message so far: a cursor into the data, the values committed to
fields and the bytes bound to domain nodes. Paths fork by deep copy so branches of
the search never observe each other.
*/

package parser

import (
	"maps"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
)

// Memory binds domain nodes and fields to the bytes they consumed.
// A memory is owned by exactly one path.
type Memory struct {
	values map[uuid.UUID][]byte
}

// NewMemory creates an empty memory
func NewMemory() *Memory {
	return &Memory{values: make(map[uuid.UUID][]byte)}
}

// Bind records value under key, replacing any previous binding
func (m *Memory) Bind(key uuid.UUID, value []byte) {
	m.values[key] = value
}

// Lookup returns the value bound to key
func (m *Memory) Lookup(key uuid.UUID) ([]byte, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is bound
func (m *Memory) Has(key uuid.UUID) bool {
	_, ok := m.values[key]
	return ok
}

// Len returns the number of bindings
func (m *Memory) Len() int { return len(m.values) }

// Clone returns an independent copy. Bound slices point into the immutable
// message data and are shared.
func (m *Memory) Clone() *Memory {
	return &Memory{values: maps.Clone(m.values)}
}

// Path is one candidate decomposition of a message
type Path struct {
	generation uint64
	data       []byte
	offset     int
	fields     map[uuid.UUID][]byte
	memory     *Memory
	valid      bool
}

// NewPath creates the initial path over a whole message
func NewPath(data []byte) *Path {
	return &Path{
		data:   data,
		fields: make(map[uuid.UUID][]byte),
		memory: NewMemory(),
		valid:  true,
	}
}

// NewPathWithMemory creates an initial path whose memory starts with the given
// bindings, for messages whose references point to values known beforehand
func NewPathWithMemory(data []byte, memory *Memory) *Path {
	p := NewPath(data)
	if memory != nil {
		p.memory = memory.Clone()
	}
	return p
}

func (p *Path) fork(generation uint64) *Path {
	return &Path{
		generation: generation,
		data:       p.data,
		offset:     p.offset,
		fields:     maps.Clone(p.fields),
		memory:     p.memory.Clone(),
		valid:      p.valid,
	}
}

// Data returns the whole message being parsed
func (p *Path) Data() []byte { return p.data }

// Offset returns the number of bytes consumed so far
func (p *Path) Offset() int { return p.offset }

// Remaining returns the bytes not consumed yet
func (p *Path) Remaining() []byte { return p.data[p.offset:] }

// AtEnd reports whether every byte has been consumed
func (p *Path) AtEnd() bool { return p.offset == len(p.data) }

// Generation returns the creation index of the path within its search
func (p *Path) Generation() uint64 { return p.generation }

// Valid reports whether the path still satisfies every constraint. A path
// turns invalid when a field commit on it is rejected.
func (p *Path) Valid() bool { return p.valid }

// FieldValue returns the value committed to field
func (p *Path) FieldValue(field *vocabulary.Field) ([]byte, bool) {
	v, ok := p.fields[field.ID]
	return v, ok
}

// Variable returns the bytes bound to a domain node or field id
func (p *Path) Variable(key uuid.UUID) ([]byte, bool) {
	return p.memory.Lookup(key)
}

// Values returns the committed values of fields in order.
// Fields without a value yield nil and false.
func (p *Path) Values(fields []*vocabulary.Field) ([][]byte, bool) {
	values := make([][]byte, len(fields))
	for i, f := range fields {
		v, ok := p.fields[f.ID]
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// Fork returns an independent copy of the path
func (p *Path) Fork() *Path { return p.fork(p.generation) }
