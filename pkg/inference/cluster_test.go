/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cluster_test.go
Description: Tests for cluster-by-key-field and the inference engine surface.
*/

package inference_test

import (
	"context"
	"io"
	"testing"

	"github.com/kleascm/akaylee-inference/pkg/alignment"
	"github.com/kleascm/akaylee-inference/pkg/domain"
	"github.com/kleascm/akaylee-inference/pkg/inference"
	"github.com/kleascm/akaylee-inference/pkg/types"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func options() alignment.Options {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return alignment.Options{Logger: logger}
}

func rawMessages(data ...string) []*vocabulary.RawMessage {
	out := make([]*vocabulary.RawMessage, len(data))
	for i, d := range data {
		out[i] = vocabulary.NewRawMessage([]byte(d))
	}
	return out
}

// commandSymbol describes messages such as "CMDa#payload"
func commandSymbol(data ...string) *vocabulary.Symbol {
	cmd := vocabulary.NewField("cmd", domain.NewAlt(
		domain.NewASCII("CMDa"),
		domain.NewASCII("CMDb"),
		domain.NewASCII("CMDhello"),
	))
	sep := vocabulary.NewField("sep", domain.NewASCII("#"))
	arg := vocabulary.NewField("arg", domain.NewValue(types.ASCII{}, 0, 20))
	return vocabulary.NewSymbol("commands", []*vocabulary.Field{cmd, sep, arg}, rawMessages(data...))
}

func TestClusterByKeyField(t *testing.T) {
	symbol := commandSymbol("CMDa#x1", "CMDb#y", "CMDa#x2", "CMDhello#", "XXX#", "CMDa#x1")
	key := symbol.Children[0]

	res, err := inference.ClusterByKeyField(context.Background(), symbol, key, options())
	require.NoError(t, err)

	assert.Equal(t, "ascii", res.KeyType.Name())
	require.Len(t, res.Clusters, 3)
	names := []string{}
	for _, c := range res.Clusters {
		names = append(names, c.Symbol.Name)
	}
	assert.Equal(t, []string{"Symbol_CMDa", "Symbol_CMDb", "Symbol_CMDhello"}, names)

	require.Len(t, res.Excluded, 1)
	assert.Equal(t, 4, res.Excluded[0].Index)

	byKey := res.ByKey()
	a := byKey["CMDa"]
	require.NotNil(t, a)
	assert.Equal(t, []byte("CMDa"), a.Key)
	assert.Len(t, a.Symbol.Messages, 3)
	require.Len(t, a.Symbol.Children, 3)
	assert.Equal(t, []string{"cmd", "sep", "arg"}, []string{
		a.Symbol.Children[0].Name, a.Symbol.Children[1].Name, a.Symbol.Children[2].Name,
	})

	// duplicates collapse into a two value set
	argDomain, ok := a.Symbol.Children[2].Domain.(*domain.Alt)
	require.True(t, ok)
	assert.Len(t, argDomain.Nodes, 2)

	keyDomain, ok := a.Symbol.Children[0].Domain.(*domain.Value)
	require.True(t, ok)
	assert.Equal(t, []byte("CMDa"), keyDomain.Constant)

	// the source tree is untouched
	assert.IsType(t, &domain.Alt{}, key.Domain)
	assert.Len(t, symbol.Messages, 6)
}

func TestClusterTrimsTrailingEmptyFields(t *testing.T) {
	symbol := commandSymbol("CMDhello#", "CMDhello#", "CMDb#z")
	res, err := inference.ClusterByKeyField(context.Background(), symbol, symbol.Children[0], options())
	require.NoError(t, err)

	hello := res.ByKey()["CMDhello"]
	require.NotNil(t, hello)
	assert.Len(t, hello.Symbol.Children, 2)

	b := res.ByKey()["CMDb"]
	require.NotNil(t, b)
	assert.Len(t, b.Symbol.Children, 3)
}

func TestClusterPartitionsMessages(t *testing.T) {
	data := []string{"CMDa#1", "CMDb#2", "CMDa#3", "CMDb#", "CMDhello#hi", "CMDa#1"}
	symbol := commandSymbol(data...)

	res, err := inference.ClusterByKeyField(context.Background(), symbol, symbol.Children[0], options())
	require.NoError(t, err)
	require.Empty(t, res.Excluded)

	// every message lands in exactly one cluster
	seen := map[*vocabulary.RawMessage]int{}
	for _, c := range res.Clusters {
		for _, m := range c.Symbol.Messages {
			seen[m]++
		}
	}
	require.Len(t, seen, len(symbol.Messages))
	for _, m := range symbol.Messages {
		assert.Equal(t, 1, seen[m])
	}

	// each rebuilt symbol accepts its own messages and nothing else
	for _, c := range res.Clusters {
		own, err := alignment.AlignSymbol(context.Background(), c.Symbol, options())
		require.NoError(t, err)
		assert.Empty(t, own.Failures, c.Symbol.Name)

		for _, other := range res.Clusters {
			if other == c {
				continue
			}
			foreign, err := alignment.Align(context.Background(), other.Symbol.Messages, c.Symbol.Field, options())
			require.NoError(t, err)
			assert.Empty(t, foreign.Matrix.Rows, "%s accepted messages of %s", c.Symbol.Name, other.Symbol.Name)
		}
	}
}

func TestClusterBinaryKeyUsesHex(t *testing.T) {
	tag := vocabulary.NewField("tag", domain.NewValue(types.Raw{}, 1, 1))
	body := vocabulary.NewField("body", domain.NewValue(types.Raw{}, 0, domain.Unbounded))
	symbol := vocabulary.NewSymbol("frames", []*vocabulary.Field{tag, body}, []*vocabulary.RawMessage{
		vocabulary.NewRawMessage([]byte{0x01, 'a'}),
		vocabulary.NewRawMessage([]byte("Ab")),
		vocabulary.NewRawMessage([]byte{0x01, 'c'}),
	})

	res, err := inference.ClusterByKeyField(context.Background(), symbol, tag, options())
	require.NoError(t, err)
	assert.Equal(t, "hex", res.KeyType.Name())
	require.Len(t, res.Clusters, 2)
	assert.Equal(t, "Symbol_01", res.Clusters[0].Symbol.Name)
	assert.Equal(t, "Symbol_41", res.Clusters[1].Symbol.Name)
	assert.Len(t, res.Clusters[0].Symbol.Messages, 2)
}

func TestClusterEmptyMessages(t *testing.T) {
	key := vocabulary.NewField("key", domain.NewValue(types.Raw{}, 0, 4))
	symbol := vocabulary.NewSymbol("empty", []*vocabulary.Field{key}, rawMessages("", ""))

	res, err := inference.ClusterByKeyField(context.Background(), symbol, key, options())
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	c := res.Clusters[0]
	assert.Equal(t, "Symbol_", c.Symbol.Name)
	assert.Empty(t, c.Symbol.Children)

	again, err := alignment.AlignSymbol(context.Background(), c.Symbol, options())
	require.NoError(t, err)
	assert.Len(t, again.Matrix.Rows, 2)
}

func TestClusterErrors(t *testing.T) {
	symbol := commandSymbol("CMDa#1")

	_, err := inference.ClusterByKeyField(context.Background(), symbol, vocabulary.NewField("alien", domain.NewASCII("x")), options())
	assert.ErrorIs(t, err, inference.ErrKeyFieldNotChild)

	nested := vocabulary.NewLayer("outer", vocabulary.NewLayer("inner", vocabulary.NewField("deep", domain.NewASCII("d"))))
	deep := nested.FindByName("deep")
	_, err = inference.ClusterByKeyField(context.Background(), &vocabulary.Symbol{Field: nested}, deep, options())
	assert.ErrorIs(t, err, inference.ErrKeyFieldNotChild)

	_, err = inference.ClusterByKeyField(context.Background(), commandSymbol(), commandSymbol().Children[0], options())
	assert.ErrorIs(t, err, inference.ErrKeyFieldNotChild)

	empty := commandSymbol()
	_, err = inference.ClusterByKeyField(context.Background(), empty, empty.Children[0], options())
	assert.ErrorIs(t, err, inference.ErrNoMessages)

	bad := commandSymbol("nope", "still nope")
	_, err = inference.ClusterByKeyField(context.Background(), bad, bad.Children[0], options())
	assert.ErrorIs(t, err, inference.ErrAllExcluded)
}

func TestClusterEngine(t *testing.T) {
	engine := inference.NewEngine("cluster", "cmd", options())
	require.NotNil(t, engine)
	assert.Equal(t, "cluster", engine.Format())

	symbols, err := engine.InferSymbols(context.Background(), commandSymbol("CMDa#1", "CMDb#2", "CMDa#3"))
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "Symbol_CMDa", symbols[0].Name)

	_, err = inference.NewEngine("cluster", "missing", options()).InferSymbols(context.Background(), commandSymbol("CMDa#1"))
	assert.ErrorIs(t, err, inference.ErrKeyFieldNotChild)

	assert.Nil(t, inference.NewEngine("json", "", options()))
}
