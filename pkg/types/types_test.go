/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types_test.go
Description: Tests for primitive value types.
*/

package types_test

import (
	"math/rand"
	"testing"

	"github.com/kleascm/akaylee-inference/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestASCII(t *testing.T) {
	a := types.ASCII{}
	assert.True(t, a.CanParse([]byte("GET /index.html\r\n")))
	assert.True(t, a.CanParse(nil))
	assert.False(t, a.CanParse([]byte{0x00}))
	assert.False(t, a.CanParse([]byte{0x7f}))

	_, err := a.Decode("\x01")
	assert.Error(t, err)

	gen := a.Generate(rand.New(rand.NewSource(1)), 64)
	assert.Len(t, gen, 64)
	assert.True(t, a.CanParse(gen))
}

func TestRawQuoting(t *testing.T) {
	r := types.Raw{}
	assert.Equal(t, `"a\x00b"`, r.Encode([]byte("a\x00b")))

	data, err := r.Decode(`"a\x00b"`)
	require.NoError(t, err)
	assert.Equal(t, []byte("a\x00b"), data)

	data, err = r.Decode("plain")
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), data)

	_, err = r.Decode(`"\q"`)
	assert.Error(t, err)
}

func TestHexaString(t *testing.T) {
	h := types.HexaString{}
	assert.Equal(t, "00ff41", h.Encode([]byte{0x00, 0xff, 0x41}))

	data, err := h.Decode("00 ff 41")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff, 0x41}, data)

	_, err = h.Decode("0")
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	for name, want := range map[string]types.Type{
		"ascii": types.ASCII{},
		"TEXT":  types.ASCII{},
		"raw":   types.Raw{},
		"bytes": types.Raw{},
		"hex":   types.HexaString{},
	} {
		got, err := types.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := types.Lookup("float")
	assert.Error(t, err)
}

func TestInferDisplay(t *testing.T) {
	assert.Equal(t, types.ASCII{}, types.InferDisplay([][]byte{[]byte("GET"), []byte("PUT")}))
	assert.Equal(t, types.HexaString{}, types.InferDisplay([][]byte{[]byte("GET"), {0x01}}))
	assert.Equal(t, types.ASCII{}, types.InferDisplay(nil))
}
