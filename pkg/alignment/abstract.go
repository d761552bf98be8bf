/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: abstract.go
Description: Abstraction of a single message: find the first known symbol able to
explain it, or wrap it in an unknown symbol.
*/

package alignment

import (
	"context"

	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/sirupsen/logrus"
)

// Abstraction is the symbol chosen for a message and the row it produced
type Abstraction struct {
	Symbol *vocabulary.Symbol
	Row    *Row // Nil for unknown symbols
}

// Abstract returns the first symbol whose fields align the message. When none
// does, the message is wrapped in an unknown symbol. Configuration errors of a
// candidate symbol abort the search.
func Abstract(ctx context.Context, message *vocabulary.RawMessage, symbols []*vocabulary.Symbol, opts Options) (*Abstraction, error) {
	opts.Strategy = Sequential
	opts.Reporters = nil

	for _, symbol := range symbols {
		res, err := align(ctx, symbol.Name, []*vocabulary.RawMessage{message}, symbol.Field, opts)
		if err != nil {
			return nil, err
		}
		if len(res.Matrix.Rows) == 1 {
			opts.logger().WithFields(logrus.Fields{
				"message": message.ID,
				"symbol":  symbol.Name,
			}).Debug("Message abstracted")
			row := res.Matrix.Rows[0]
			return &Abstraction{Symbol: symbol, Row: &row}, nil
		}
	}

	opts.logger().WithField("message", message.ID).Debug("No symbol explains the message")
	return &Abstraction{Symbol: vocabulary.NewUnknownSymbol(message)}, nil
}
