package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegateInsertsReverseThenKey(t *testing.T) {
	prefixes := [][]SortKey{
		nil,
		{SortFrom},
		{SortReverse},
		{SortSize, SortReverse, SortSubject},
	}
	for _, prefix := range prefixes {
		b := NewSortBuilder()
		for _, k := range prefix {
			b.Add(k)
		}
		b.Negate(SortArrival)

		got := b.Build()
		require.Len(t, got, len(prefix)+2)
		assert.Equal(t, []SortKey{SortReverse, SortArrival}, got[len(prefix):])
	}
}

func TestSortBuilderKeepsKeysVerbatim(t *testing.T) {
	b := NewSortBuilder().
		Add(SortFrom).
		Add(SortFrom).
		Negate(SortFrom).
		Negate(SortReverse)

	assert.Equal(t, []SortKey{
		SortFrom, SortFrom, SortReverse, SortFrom, SortReverse, SortReverse,
	}, b.Build())
}

func TestSortBuilderEmpty(t *testing.T) {
	assert.Empty(t, NewSortBuilder().Build())
}

func TestSortBuilderBuildReturnsCopy(t *testing.T) {
	b := NewSortBuilder().Add(SortTo)
	keys := b.Build()
	keys[0] = SortCc
	assert.Equal(t, []SortKey{SortTo}, b.Build())
}

func TestParseSortKey(t *testing.T) {
	for k, name := range sortKeyNames {
		got, err := ParseSortKey(name)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseSortKey(" Date ")
	require.NoError(t, err)
	assert.Equal(t, SortSent, got)

	_, err = ParseSortKey("priority")
	assert.Error(t, err)
}

func TestFormatSortKeys(t *testing.T) {
	assert.Equal(t, "reverse arrival from", FormatSortKeys([]SortKey{SortReverse, SortArrival, SortFrom}))
	assert.Equal(t, "", FormatSortKeys(nil))
}

func TestParseFlag(t *testing.T) {
	assert.Equal(t, FlagSeen, ParseFlag("seen"))
	assert.Equal(t, FlagFlagged, ParseFlag(`\flagged`))
	assert.Equal(t, Flag("$Junk"), ParseFlag("$Junk"))
	assert.True(t, FlagDraft.IsSystem())
	assert.False(t, Flag("$Junk").IsSystem())
	assert.True(t, HasFlag([]Flag{`\SEEN`}, FlagSeen))
}
