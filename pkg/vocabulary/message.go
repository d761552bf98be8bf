/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: message.go
Description: Raw messages observed on the wire and the symbols grouping them. A symbol
is the root layer of a message format together with the messages it describes.
*/

package vocabulary

import (
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-inference/pkg/domain"
)

// RawMessage is a single captured message with minimal metadata
type RawMessage struct {
	ID          uuid.UUID              `json:"id"`          // Unique identifier of the message
	Data        []byte                 `json:"data"`        // Captured bytes
	Date        time.Time              `json:"date"`        // Capture time
	Source      string                 `json:"source"`      // Emitter, free form
	Destination string                 `json:"destination"` // Receiver, free form
	Metadata    map[string]interface{} `json:"metadata"`    // Additional metadata
}

// NewRawMessage creates a message captured now
func NewRawMessage(data []byte) *RawMessage {
	return &RawMessage{
		ID:       uuid.New(),
		Data:     data,
		Date:     time.Now(),
		Metadata: make(map[string]interface{}),
	}
}

// Priority is the ordering key of the message: its capture time in milliseconds
func (m *RawMessage) Priority() int64 {
	return m.Date.UnixMilli()
}

// Symbol is a message format: a root layer plus the messages it covers
type Symbol struct {
	*Field
	Messages []*RawMessage
}

// NewSymbol creates a symbol over fields and messages
func NewSymbol(name string, fields []*Field, messages []*RawMessage) *Symbol {
	if name == "" {
		name = "Symbol"
	}
	root := NewLayer(name, fields...)
	return &Symbol{Field: root, Messages: messages}
}

// Data returns the bytes of every message of the symbol, in order
func (s *Symbol) Data() [][]byte {
	data := make([][]byte, len(s.Messages))
	for i, m := range s.Messages {
		data[i] = m.Data
	}
	return data
}

// UnknownSymbolName names symbols wrapping messages no format could abstract
const UnknownSymbolName = "Unknown Symbol"

// NewUnknownSymbol wraps a message that matched no known symbol. Its single field
// accepts the message bytes as a whole.
func NewUnknownSymbol(message *RawMessage) *Symbol {
	field := NewField("Field", domain.NewRaw(message.Data))
	return NewSymbol(UnknownSymbolName, []*Field{field}, []*RawMessage{message})
}

// IsUnknown reports whether the symbol is an unknown symbol
func (s *Symbol) IsUnknown() bool {
	return s.Name == UnknownSymbolName
}
