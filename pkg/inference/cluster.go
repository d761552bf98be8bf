/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cluster.go
Description: Cluster-by-key-field. Aligns the messages of a symbol at the depth of its
immediate children, groups them by the exact bytes of one key field and rebuilds a
symbol per group: the key becomes a constant and every other field accepts exactly
the values its messages showed. Trailing fields no message of a group fills are cut.
*/

package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/kleascm/akaylee-inference/pkg/alignment"
	"github.com/kleascm/akaylee-inference/pkg/domain"
	"github.com/kleascm/akaylee-inference/pkg/types"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/sirupsen/logrus"
)

var (
	// ErrKeyFieldNotChild is returned when the key field is not an immediate child of the symbol
	ErrKeyFieldNotChild = errors.New("inference: key field is not a child of the symbol")
	// ErrNoMessages is returned when the symbol has no message to cluster
	ErrNoMessages = errors.New("inference: symbol has no messages")
	// ErrAllExcluded is returned when no message aligned against the symbol
	ErrAllExcluded = errors.New("inference: every message was excluded by alignment")
)

// ClusterPrefix starts the name of every cluster symbol
const ClusterPrefix = "Symbol_"

// Cluster is the symbol rebuilt for one key value
type Cluster struct {
	Key     []byte             `json:"key"`      // Raw key field value
	KeyText string             `json:"key_text"` // Key rendered with the key display type
	Symbol  *vocabulary.Symbol `json:"-"`        // Rebuilt symbol owning the messages
}

// ClusterResult holds the clusters in first-seen key order
type ClusterResult struct {
	Clusters []*Cluster          `json:"clusters"`
	Excluded []alignment.Failure `json:"excluded"` // Messages that joined no cluster
	KeyType  types.Type          `json:"-"`        // Display type chosen for the key
}

// ByKey indexes the clusters by their key text
func (r *ClusterResult) ByKey() map[string]*Cluster {
	byKey := make(map[string]*Cluster, len(r.Clusters))
	for _, c := range r.Clusters {
		byKey[c.KeyText] = c
	}
	return byKey
}

// Symbols returns the cluster symbols in order
func (r *ClusterResult) Symbols() []*vocabulary.Symbol {
	symbols := make([]*vocabulary.Symbol, len(r.Clusters))
	for i, c := range r.Clusters {
		symbols[i] = c.Symbol
	}
	return symbols
}

// ClusterByKeyField splits the messages of symbol by the value of keyField.
// The source symbol is only read. Messages that fail alignment are listed in
// Excluded; the call fails only when none aligned.
func ClusterByKeyField(ctx context.Context, symbol *vocabulary.Symbol, keyField *vocabulary.Field, opts alignment.Options) (*ClusterResult, error) {
	if symbol == nil || keyField == nil || !symbol.HasChild(keyField) {
		name := "<nil>"
		if keyField != nil {
			name = keyField.Name
		}
		return nil, fmt.Errorf("%w: %s", ErrKeyFieldNotChild, name)
	}
	if len(symbol.Messages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMessages, symbol.Name)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithFields(logrus.Fields{"symbol": symbol.Name, "key": keyField.Name})

	opts.Depth = 1
	res, err := alignment.AlignSymbol(ctx, symbol, opts)
	if err != nil {
		return nil, fmt.Errorf("cluster %s: %w", symbol.Name, err)
	}
	for _, f := range res.Failures {
		logger.WithFields(logrus.Fields{
			"index":   f.Index,
			"message": f.Message.ID,
			"error":   f.Err,
		}).Warn("Message excluded from clustering")
	}
	if len(res.Matrix.Rows) == 0 {
		return nil, fmt.Errorf("%w: %d messages", ErrAllExcluded, len(res.Failures))
	}

	matrix := res.Matrix
	keyIdx := matrix.ColumnIndex(keyField)
	keys, _ := matrix.Column(keyField)
	keyType := types.InferDisplay(keys)

	// group rows by key, first seen first
	var order []string
	groups := make(map[string][]alignment.Row)
	for _, row := range matrix.Rows {
		k := string(row.Cells[keyIdx])
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], row)
	}

	result := &ClusterResult{
		Clusters: make([]*Cluster, 0, len(order)),
		Excluded: res.Failures,
		KeyType:  keyType,
	}
	for _, k := range order {
		key := []byte(k)
		cluster := &Cluster{
			Key:     key,
			KeyText: keyType.Encode(key),
		}
		cluster.Symbol = rebuild(ClusterPrefix+cluster.KeyText, matrix.Fields, keyIdx, keyType, groups[k])
		result.Clusters = append(result.Clusters, cluster)

		logger.WithFields(logrus.Fields{
			"cluster":  cluster.Symbol.Name,
			"messages": len(cluster.Symbol.Messages),
			"fields":   len(cluster.Symbol.Children),
		}).Debug("Cluster built")
	}

	logger.WithFields(logrus.Fields{
		"clusters": len(result.Clusters),
		"excluded": len(result.Excluded),
		"key_type": keyType.Name(),
	}).Info("Clustering completed")
	return result, nil
}

// rebuild creates the symbol of one cluster from the rows sharing its key
func rebuild(name string, columns []*vocabulary.Field, keyIdx int, keyType types.Type, rows []alignment.Row) *vocabulary.Symbol {
	last := -1
	fields := make([]*vocabulary.Field, len(columns))
	for j, column := range columns {
		values := make([][]byte, len(rows))
		for i, row := range rows {
			values[i] = row.Cells[j]
			if len(row.Cells[j]) > 0 && j > last {
				last = j
			}
		}

		var d domain.Node
		if j == keyIdx {
			d = domain.NewConstant(keyType, rows[0].Cells[j])
		} else {
			d = domain.NewValueSet(values)
		}
		fields[j] = vocabulary.NewField(column.Name, d)
		fields[j].Description = column.Description
	}

	messages := make([]*vocabulary.RawMessage, len(rows))
	for i, row := range rows {
		messages[i] = row.Message
	}

	symbol := vocabulary.NewSymbol(name, fields[:last+1], messages)
	if last < 0 {
		// every message of the cluster is empty
		symbol.SetDomain(domain.NewRaw(nil))
	}
	return symbol
}
