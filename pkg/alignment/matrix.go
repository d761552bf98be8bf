/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: matrix.go
Description: Value matrix produced by alignment, one row per aligned message and one
column per leaf field in tree order, plus the derived views consumers ask for.
*/

package alignment

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-inference/pkg/types"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
)

// Row holds the cells of one aligned message
type Row struct {
	Index   int                    `json:"index"`   // Position of the message in the batch
	Message *vocabulary.RawMessage `json:"message"` // The aligned message
	Cells   [][]byte               `json:"cells"`   // Field values in column order
}

// Matrix is the message by field value table
type Matrix struct {
	Fields []*vocabulary.Field `json:"-"`
	Rows   []Row               `json:"rows"`
}

// ColumnIndex returns the position of field among the columns, or -1
func (m *Matrix) ColumnIndex(field *vocabulary.Field) int {
	for i, f := range m.Fields {
		if f == field {
			return i
		}
	}
	return -1
}

// Column returns the values of field for every row
func (m *Matrix) Column(field *vocabulary.Field) ([][]byte, bool) {
	idx := m.ColumnIndex(field)
	if idx < 0 {
		return nil, false
	}
	column := make([][]byte, len(m.Rows))
	for i, r := range m.Rows {
		column[i] = r.Cells[idx]
	}
	return column, true
}

// Transpose returns the matrix column by column
func (m *Matrix) Transpose() [][][]byte {
	columns := make([][][]byte, len(m.Fields))
	for j := range m.Fields {
		columns[j] = make([][]byte, len(m.Rows))
		for i, r := range m.Rows {
			columns[j][i] = r.Cells[j]
		}
	}
	return columns
}

// Values returns the concatenated cells of every row
func (m *Matrix) Values() [][]byte {
	values := make([][]byte, len(m.Rows))
	for i, r := range m.Rows {
		values[i] = bytes.Join(r.Cells, nil)
	}
	return values
}

// MessageValues returns the value of field keyed by message id
func (m *Matrix) MessageValues(field *vocabulary.Field) map[uuid.UUID][]byte {
	idx := m.ColumnIndex(field)
	if idx < 0 {
		return nil
	}
	values := make(map[uuid.UUID][]byte, len(m.Rows))
	for _, r := range m.Rows {
		values[r.Message.ID] = r.Cells[idx]
	}
	return values
}

// Encode renders every cell as text. Each column picks the textual type able to
// show all of its values.
func (m *Matrix) Encode() [][]string {
	display := make([]types.Type, len(m.Fields))
	for j, column := range m.Transpose() {
		display[j] = types.InferDisplay(column)
	}
	out := make([][]string, len(m.Rows))
	for i, r := range m.Rows {
		out[i] = make([]string, len(r.Cells))
		for j, c := range r.Cells {
			out[i][j] = display[j].Encode(c)
		}
	}
	return out
}
