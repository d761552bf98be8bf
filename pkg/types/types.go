/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Primitive value types for field domains. A type answers whether it accepts
a byte window and how that window is represented as text. The parser only ever asks
these two questions; everything richer lives outside the inference core.
*/

package types

import (
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Type is the primitive value oracle consumed by the domain parser
type Type interface {
	// Name returns the canonical name of the type (ascii, raw, hex)
	Name() string
	// CanParse reports whether the type accepts every byte of data
	CanParse(data []byte) bool
	// Encode returns the canonical textual representation of data
	Encode(data []byte) string
	// Decode converts a canonical representation back into bytes
	Decode(s string) ([]byte, error)
	// Generate returns n random bytes accepted by the type
	Generate(r *rand.Rand, n int) []byte
}

// ASCII accepts printable characters plus tab, newline and carriage return
type ASCII struct{}

// Name returns the name of the type
func (ASCII) Name() string { return "ascii" }

// CanParse reports whether data is printable text
func (ASCII) CanParse(data []byte) bool {
	for _, b := range data {
		if !isPrintable(b) {
			return false
		}
	}
	return true
}

// Encode returns data as a string
func (ASCII) Encode(data []byte) string { return string(data) }

// Decode returns the bytes of s, rejecting non printable input
func (a ASCII) Decode(s string) ([]byte, error) {
	data := []byte(s)
	if !a.CanParse(data) {
		return nil, fmt.Errorf("ascii: %q contains non printable bytes", s)
	}
	return data, nil
}

// Generate returns n random printable characters
func (ASCII) Generate(r *rand.Rand, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(0x20 + r.Intn(0x7f-0x20))
	}
	return out
}

// Raw accepts any byte and renders it Go-quoted
type Raw struct{}

// Name returns the name of the type
func (Raw) Name() string { return "raw" }

// CanParse always accepts
func (Raw) CanParse(data []byte) bool { return true }

// Encode renders data as a quoted Go string
func (Raw) Encode(data []byte) string { return strconv.Quote(string(data)) }

// Decode accepts both quoted and bare strings
func (Raw) Decode(s string) ([]byte, error) {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("raw: %w", err)
		}
		return []byte(unquoted), nil
	}
	return []byte(s), nil
}

// Generate returns n random bytes
func (Raw) Generate(r *rand.Rand, n int) []byte {
	out := make([]byte, n)
	r.Read(out)
	return out
}

// HexaString accepts any byte and renders it as lower-case hex
type HexaString struct{}

// Name returns the name of the type
func (HexaString) Name() string { return "hex" }

// CanParse always accepts
func (HexaString) CanParse(data []byte) bool { return true }

// Encode renders data as hex
func (HexaString) Encode(data []byte) string { return hex.EncodeToString(data) }

// Decode parses a hex string, ignoring spaces
func (HexaString) Decode(s string) ([]byte, error) {
	data, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("hex: %w", err)
	}
	return data, nil
}

// Generate returns n random bytes
func (HexaString) Generate(r *rand.Rand, n int) []byte {
	return Raw{}.Generate(r, n)
}

// Lookup resolves a type by name as used in schema files
func Lookup(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "ascii", "string", "text":
		return ASCII{}, nil
	case "raw", "bytes":
		return Raw{}, nil
	case "hex", "hexa", "hexastring":
		return HexaString{}, nil
	default:
		return nil, fmt.Errorf("unknown type: %s", name)
	}
}

// InferDisplay picks the textual type able to represent every value.
// A single non printable value moves the whole set to hex.
func InferDisplay(values [][]byte) Type {
	for _, v := range values {
		if !(ASCII{}).CanParse(v) {
			return HexaString{}
		}
	}
	return ASCII{}
}

func isPrintable(b byte) bool {
	if b >= 0x20 && b < 0x7f {
		return true
	}
	return b == '\t' || b == '\n' || b == '\r'
}
