/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parser_test.go
Description: Tests for the domain search. Covers every node variant, the last-field
rule, references across fields, commit bookkeeping and the branch budget.
*/

package parser_test

import (
	"io"
	"testing"

	"github.com/kleascm/akaylee-inference/pkg/domain"
	"github.com/kleascm/akaylee-inference/pkg/parser"
	"github.com/kleascm/akaylee-inference/pkg/types"
	"github.com/kleascm/akaylee-inference/pkg/vocabulary"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newFieldParser(maxBranches int) *parser.FieldParser {
	return parser.NewFieldParser(parser.Config{MaxBranches: maxBranches}, quietLogger())
}

func consumed(paths []*parser.Path) []int {
	offsets := make([]int, len(paths))
	for i, p := range paths {
		offsets[i] = p.Offset()
	}
	return offsets
}

func TestValueYieldsEveryPrefixLength(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	value := domain.NewValue(types.Raw{}, 1, 10)

	for k := 1; k <= 12; k++ {
		data := make([]byte, k)
		paths, err := vp.Parse(value, parser.NewPath(data), false)
		require.NoError(t, err)

		limit := k
		if limit > 10 {
			limit = 10
		}
		expected := []int{}
		for l := limit; l >= 1; l-- {
			expected = append(expected, l)
		}
		assert.Equal(t, expected, consumed(paths), "input length %d", k)
	}
}

func TestValueGreedyConsumesEverything(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	value := domain.NewValue(types.Raw{}, 1, 10)

	paths, err := vp.Parse(value, parser.NewPath([]byte("hello")), true)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, consumed(paths))

	paths, err = vp.Parse(value, parser.NewPath(make([]byte, 11)), true)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestValueTypePredicate(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	value := domain.NewValue(types.ASCII{}, 1, 4)

	paths, err := vp.Parse(value, parser.NewPath([]byte{'a', 'b', 0x00, 'c'}), false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, consumed(paths))
}

func TestConstantMatch(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	c := domain.NewASCII("GET")

	paths, err := vp.Parse(c, parser.NewPath([]byte("GET /")), false)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	got, ok := paths[0].Variable(c.ID())
	require.True(t, ok)
	assert.Equal(t, []byte("GET"), got)

	paths, err = vp.Parse(c, parser.NewPath([]byte("GET /")), true)
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = vp.Parse(c, parser.NewPath([]byte("PUT /")), false)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestAggregationWithSuffix(t *testing.T) {
	name := vocabulary.NewField("name", domain.NewValue(types.ASCII{}, 1, 10))
	ext := vocabulary.NewField("ext", domain.NewASCII(".txt"))
	root := vocabulary.NewLayer("file", name, ext)

	t.Run("match", func(t *testing.T) {
		paths, err := newFieldParser(0).Parse(root, parser.NewPath([]byte("helloword.txt")), true)
		require.NoError(t, err)
		require.Len(t, paths, 1)

		value, ok := paths[0].FieldValue(name)
		require.True(t, ok)
		assert.Equal(t, "helloword", string(value))
		whole, ok := paths[0].FieldValue(root)
		require.True(t, ok)
		assert.Equal(t, "helloword.txt", string(whole))
	})

	t.Run("wrong suffix", func(t *testing.T) {
		paths, err := newFieldParser(0).Parse(root, parser.NewPath([]byte("helloword.tot")), true)
		require.NoError(t, err)
		assert.Empty(t, paths)
	})
}

func TestAggregationDomainWithSuffix(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	agg := domain.NewAgg(domain.NewValue(types.Raw{}, 1, 10), domain.NewASCII(".txt"))

	paths, err := vp.Parse(agg, parser.NewPath([]byte("helloword.txt")), true)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	got, _ := paths[0].Variable(agg.Nodes[0].ID())
	assert.Equal(t, "helloword", string(got))
}

func TestAlternationKeepsStructuralDuplicates(t *testing.T) {
	pick := func() domain.Node { return domain.NewAlt(domain.NewASCII("to"), domain.NewASCII("toto")) }
	agg := domain.NewAgg(pick(), pick())
	data := []byte("tototo")

	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	paths, err := vp.Parse(agg, parser.NewPath(data), true)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.True(t, p.AtEnd())
		whole, _ := p.Variable(agg.ID())
		assert.Equal(t, "tototo", string(whole))
	}

	vp.Reset()
	paths, err = vp.Parse(agg, parser.NewPath(data), false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{4, 6, 6}, consumed(paths))
}

func TestAlternationSameBytesTwice(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	alt := domain.NewAlt(domain.NewASCII("ab"), domain.NewValue(types.ASCII{}, 2, 2))

	paths, err := vp.Parse(alt, parser.NewPath([]byte("ab")), true)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestRepeatTiling(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	rep := domain.NewRepeat(domain.NewASCII("ab"), 1, 3)

	paths, err := vp.Parse(rep, parser.NewPath([]byte("ababab!")), false)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 4, 2}, consumed(paths))

	vp.Reset()
	paths, err = vp.Parse(rep, parser.NewPath([]byte("abab")), true)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, consumed(paths))

	vp.Reset()
	paths, err = vp.Parse(rep, parser.NewPath([]byte("xx")), false)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestRepeatZeroAndUnbounded(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	rep := domain.NewRepeat(domain.NewASCII("a"), 0, domain.Unbounded)

	paths, err := vp.Parse(rep, parser.NewPath([]byte("aab")), false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, consumed(paths))
}

func TestRepeatOfEmptyMatchTerminates(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	rep := domain.NewRepeat(domain.NewValue(types.Raw{}, 0, 1), 0, domain.Unbounded)

	paths, err := vp.Parse(rep, parser.NewPath([]byte("xy")), true)
	require.NoError(t, err)
	assert.NotEmpty(t, paths)
	for _, p := range paths {
		assert.True(t, p.AtEnd())
	}
}

func TestRepeatBoundedWithEmptyChild(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{MaxBranches: 100000}, quietLogger())
	rep := domain.NewRepeat(domain.NewValue(types.Raw{}, 0, 1), 0, 100)

	paths, err := vp.Parse(rep, parser.NewPath([]byte("ab")), true)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, consumed(paths))
	assert.Less(t, vp.Created(), 20)

	vp.Reset()
	paths, err = vp.Parse(rep, parser.NewPath([]byte("ab")), false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, consumed(paths))

	// empty iterations make up the minimum count
	vp.Reset()
	padded := domain.NewRepeat(domain.NewValue(types.Raw{}, 0, 1), 4, 5)
	paths, err = vp.Parse(padded, parser.NewPath([]byte("ab")), false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, consumed(paths))
	for _, p := range paths {
		got, ok := p.Variable(padded.ID())
		require.True(t, ok)
		assert.Len(t, got, p.Offset())
	}
}

func TestRepeatDistinctTilingsKept(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	rep := domain.NewRepeat(domain.NewValue(types.Raw{}, 1, 2), 2, 2)

	paths, err := vp.Parse(rep, parser.NewPath([]byte("aaa")), true)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3}, consumed(paths))
}

func TestReferenceAcrossFields(t *testing.T) {
	id := vocabulary.NewField("id", domain.NewValue(types.ASCII{}, 1, 8))
	sep := vocabulary.NewField("sep", domain.NewASCII(":"))
	echo := vocabulary.NewField("echo", domain.NewRef(id.Domain))
	root := vocabulary.NewLayer("msg", id, sep, echo)

	paths, err := newFieldParser(0).Parse(root, parser.NewPath([]byte("abc:abc")), true)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	got, _ := paths[0].FieldValue(echo)
	assert.Equal(t, "abc", string(got))

	paths, err = newFieldParser(0).Parse(root, parser.NewPath([]byte("abc:abd")), true)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestReferenceToFieldID(t *testing.T) {
	head := vocabulary.NewLayer("head",
		vocabulary.NewField("a", domain.NewASCII("x")),
		vocabulary.NewField("b", domain.NewASCII("y")),
	)
	ref := domain.NewRef(nil)
	ref.Target = head.ID
	tail := vocabulary.NewField("tail", ref)
	root := vocabulary.NewLayer("msg", head, tail)

	paths, err := newFieldParser(0).Parse(root, parser.NewPath([]byte("xyxy")), true)
	require.NoError(t, err)
	require.Len(t, paths, 1)
}

func TestUnboundReferenceFails(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	target := domain.NewASCII("a")
	paths, err := vp.Parse(domain.NewRef(target), parser.NewPath([]byte("a")), false)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestPreboundMemory(t *testing.T) {
	target := domain.NewValue(types.Raw{}, 1, 4)
	memory := parser.NewMemory()
	memory.Bind(target.ID(), []byte("k1"))

	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	paths, err := vp.Parse(domain.NewRef(target), parser.NewPathWithMemory([]byte("k1"), memory), true)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
	assert.Equal(t, 1, memory.Len())
}

func TestForkIsolation(t *testing.T) {
	vp := parser.NewVariableParser(parser.Config{}, quietLogger())
	value := domain.NewValue(types.Raw{}, 1, 3)

	paths, err := vp.Parse(value, parser.NewPath([]byte("abc")), false)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	seen := map[uint64]bool{}
	for i, p := range paths {
		assert.False(t, seen[p.Generation()])
		seen[p.Generation()] = true
		got, _ := p.Variable(value.ID())
		assert.Len(t, got, 3-i)
	}
}

func TestLeafWithoutDomain(t *testing.T) {
	root := vocabulary.NewLayer("msg", vocabulary.NewField("empty", nil))
	_, err := newFieldParser(0).Parse(root, parser.NewPath([]byte("x")), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrNoDomain)
}

func TestBranchLimit(t *testing.T) {
	fields := make([]*vocabulary.Field, 6)
	for i := range fields {
		fields[i] = vocabulary.NewField("", domain.NewValue(types.Raw{}, 0, 8))
	}
	root := vocabulary.NewLayer("msg", fields...)

	_, err := newFieldParser(50).Parse(root, parser.NewPath(make([]byte, 24)), true)
	assert.ErrorIs(t, err, parser.ErrBranchLimit)

	paths, err := newFieldParser(0).Parse(root, parser.NewPath(make([]byte, 4)), true)
	require.NoError(t, err)
	assert.NotEmpty(t, paths)
}

func TestOutcomesReportConflicts(t *testing.T) {
	field := vocabulary.NewField("f", domain.NewValue(types.Raw{}, 1, 2))
	fp := newFieldParser(0)

	paths, err := fp.Parse(field, parser.NewPath([]byte("ab")), false)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	// parsing the same field again from a committed path must agree with the first value
	outcomes, err := fp.ParseOutcomes(field, paths[1], true)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Matched)
	assert.Equal(t, "conflicting assignment", outcomes[0].Reason)
	assert.False(t, outcomes[0].Path.Valid())
	assert.True(t, paths[0].Valid())
}
