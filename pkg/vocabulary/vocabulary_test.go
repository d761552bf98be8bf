/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: vocabulary_test.go
Description: Tests for field trees, messages and symbols.
*/

package vocabulary_test

import (
	"testing"

	"github.com/kleascm/akaylee-inference/pkg/domain"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpSymbol() (*vocabulary.Symbol, map[string]*vocabulary.Field) {
	method := vocabulary.NewField("method", domain.NewASCII("GET"))
	sp := vocabulary.NewField("sp", domain.NewASCII(" "))
	path := vocabulary.NewField("path", domain.NewValue(nil, 1, 16))
	line := vocabulary.NewLayer("line", method, sp, path)
	crlf := vocabulary.NewField("crlf", domain.NewASCII("\r\n"))
	symbol := vocabulary.NewSymbol("http", []*vocabulary.Field{line, crlf}, []*vocabulary.RawMessage{
		vocabulary.NewRawMessage([]byte("GET /\r\n")),
	})
	return symbol, map[string]*vocabulary.Field{
		"method": method, "sp": sp, "path": path, "line": line, "crlf": crlf,
	}
}

func TestFieldTree(t *testing.T) {
	symbol, f := httpSymbol()

	assert.Same(t, symbol.Field, f["line"].Parent())
	assert.Same(t, f["line"], f["path"].Parent())
	assert.Nil(t, symbol.Parent())
	assert.True(t, symbol.HasChild(f["line"]))
	assert.False(t, symbol.HasChild(f["path"]))
	assert.Equal(t, 1, symbol.Index(f["crlf"]))
	assert.Equal(t, -1, symbol.Index(f["path"]))
	assert.True(t, f["line"].Layer)
	assert.True(t, f["path"].IsLeaf())

	assert.Equal(t, "http/line/path", f["path"].Path())
	assert.Same(t, f["sp"], symbol.FindByName("sp"))
	assert.Nil(t, symbol.FindByName("body"))
}

func TestLeafFieldsDepth(t *testing.T) {
	symbol, f := httpSymbol()

	assert.Equal(t, []*vocabulary.Field{f["method"], f["sp"], f["path"], f["crlf"]}, symbol.LeafFields(-1))
	assert.Equal(t, []*vocabulary.Field{f["line"], f["crlf"]}, symbol.LeafFields(1))
	assert.Equal(t, []*vocabulary.Field{symbol.Field}, symbol.LeafFields(0))
}

func TestWalkOrder(t *testing.T) {
	symbol, _ := httpSymbol()
	var names []string
	symbol.Walk(func(f *vocabulary.Field) { names = append(names, f.Name) })
	assert.Equal(t, []string{"http", "line", "method", "sp", "path", "crlf"}, names)
}

func TestSetChildrenSkipsNil(t *testing.T) {
	a := vocabulary.NewField("", nil)
	assert.Equal(t, "Field", a.Name)

	layer := vocabulary.NewLayer("", a, nil)
	assert.Equal(t, "Layer", layer.Name)
	require.Len(t, layer.Children, 1)

	b := vocabulary.NewField("b", domain.NewRaw(nil))
	layer.AddChild(b)
	assert.Same(t, layer, b.Parent())
	assert.Len(t, layer.Children, 2)
}

func TestSymbolData(t *testing.T) {
	symbol, _ := httpSymbol()
	assert.Equal(t, [][]byte{[]byte("GET /\r\n")}, symbol.Data())
	assert.False(t, symbol.IsUnknown())
	assert.Equal(t, "Symbol", vocabulary.NewSymbol("", nil, nil).Name)
}

func TestUnknownSymbol(t *testing.T) {
	msg := vocabulary.NewRawMessage([]byte{0xde, 0xad})
	u := vocabulary.NewUnknownSymbol(msg)
	assert.True(t, u.IsUnknown())
	require.Len(t, u.Children, 1)
	assert.Equal(t, []byte{0xde, 0xad}, u.Children[0].Domain.(*domain.Value).Constant)
	assert.Equal(t, []*vocabulary.RawMessage{msg}, u.Messages)
}

func TestDump(t *testing.T) {
	symbol, _ := httpSymbol()
	dump := symbol.Dump()
	assert.Contains(t, dump, "http\n|--  line\n|--  |--  method\n|--  |--  |--  ascii=GET")
	assert.Contains(t, dump, "|--  |--  raw(1..16)")
}
