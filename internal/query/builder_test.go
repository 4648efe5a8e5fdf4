package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEmptyIsAbsent(t *testing.T) {
	configs := []func(*SearchBuilder){
		func(b *SearchBuilder) {},
		func(b *SearchBuilder) { b.MarkAsRead(true) },
		func(b *SearchBuilder) { b.SortedBy(func(s *SortBuilder) { s.Add(SortFrom) }) },
		func(b *SearchBuilder) {
			b.MarkAsRead(true).SortedBy(func(s *SortBuilder) { s.Negate(SortSize) })
		},
	}
	for i, configure := range configs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			b := NewSearchBuilder()
			configure(b)
			term, ok := b.Build()
			assert.False(t, ok)
			assert.Nil(t, term)
		})
	}
}

func TestBuildSingleTermUnwrapped(t *testing.T) {
	b := NewSearchBuilder().WithSubject("report")
	term, ok := b.Build()
	require.True(t, ok)
	assert.Equal(t, Subject("report"), term)
}

func TestBuildLeftFoldsInInsertionOrder(t *testing.T) {
	a, c, d, e := From("a"), To("c"), Subject("d"), Body("e")
	b := NewSearchBuilder().With(a).With(c).With(d).With(e)

	term, ok := b.Build()
	require.True(t, ok)
	want := And(And(And(a, c), d), e)
	assert.Equal(t, want, term)
}

func TestBuildKeepsEveryTerm(t *testing.T) {
	for n := 1; n <= 8; n++ {
		b := NewSearchBuilder()
		for i := 0; i < n; i++ {
			b.WithHeader("X-N", fmt.Sprint(i))
		}
		term, ok := b.Build()
		require.True(t, ok)
		assert.Equal(t, n, Leaves(term))

		// The leftmost leaf is the first added term.
		leftmost := term
		for {
			and, isAnd := leftmost.(AndTerm)
			if !isAnd {
				break
			}
			leftmost = and.Left
		}
		assert.Equal(t, Header("X-N", "0"), leftmost)
	}
}

func TestFromAndSentOnOrBefore(t *testing.T) {
	b := NewSearchBuilder()
	b.WithFrom("a@x.com")
	b.WithSentOnOrBefore(day1)

	term, ok := b.Build()
	require.True(t, ok)
	assert.Equal(t, AndTerm{
		Left:  TextTerm{Field: FieldFrom, Pattern: "a@x.com"},
		Right: CompareTerm{Attr: AttrSentDate, Op: LessOrEqual, Date: day1},
	}, term)
}

func TestWithNotNegates(t *testing.T) {
	b := NewSearchBuilder().WithNot(Flags([]Flag{FlagSeen}, true)).WithNot(Not(From("x")))
	term, ok := b.Build()
	require.True(t, ok)
	assert.Equal(t, And(NotTerm{Term: Flags([]Flag{FlagSeen}, true)}, From("x")), term)
}

func TestMarkAsReadLastWriteWins(t *testing.T) {
	b := NewSearchBuilder()
	assert.False(t, b.MarkRead())
	b.MarkAsRead(true).MarkAsRead(false)
	assert.False(t, b.MarkRead())
	b.MarkAsRead(true)
	assert.True(t, b.MarkRead())
}

func TestSortedByAppends(t *testing.T) {
	b := NewSearchBuilder()
	assert.False(t, b.HasSortKeys())

	b.SortedBy(func(s *SortBuilder) { s.Add(SortFrom) })
	b.SortedBy(func(s *SortBuilder) { s.Negate(SortArrival) })

	assert.True(t, b.HasSortKeys())
	assert.Equal(t, []SortKey{SortFrom, SortReverse, SortArrival}, b.SortKeys())
}

func TestSugarMapsToComparators(t *testing.T) {
	cases := []struct {
		configure func(*SearchBuilder)
		want      Term
	}{
		{func(b *SearchBuilder) { b.WithReceivedOn(day1) }, ReceivedDate.Eq(day1)},
		{func(b *SearchBuilder) { b.WithReceivedOnOrAfter(day1) }, ReceivedDate.Ge(day1)},
		{func(b *SearchBuilder) { b.WithReceivedAfter(day1) }, ReceivedDate.Gt(day1)},
		{func(b *SearchBuilder) { b.WithReceivedOnOrBefore(day1) }, ReceivedDate.Le(day1)},
		{func(b *SearchBuilder) { b.WithReceivedBefore(day1) }, ReceivedDate.Lt(day1)},
		{func(b *SearchBuilder) { b.WithNotReceivedOn(day1) }, ReceivedDate.Ne(day1)},
		{func(b *SearchBuilder) { b.WithSentOn(day1) }, SentDate.Eq(day1)},
		{func(b *SearchBuilder) { b.WithNotSentOn(day1) }, SentDate.Ne(day1)},
		{func(b *SearchBuilder) { b.WithSizeIs(5) }, Size.Eq(5)},
		{func(b *SearchBuilder) { b.WithSizeIsAtLeast(5) }, Size.Ge(5)},
		{func(b *SearchBuilder) { b.WithSizeIsGreaterThan(5) }, Size.Gt(5)},
		{func(b *SearchBuilder) { b.WithSizeIsNoMoreThan(5) }, Size.Le(5)},
		{func(b *SearchBuilder) { b.WithSizeIsLessThan(5) }, Size.Lt(5)},
		{func(b *SearchBuilder) { b.WithSizeIsNot(5) }, Size.Ne(5)},
		{func(b *SearchBuilder) { b.WithSizeIn(Range[int64]{Lo: 1, Hi: 9}) }, Size.Between(1, 9)},
		{func(b *SearchBuilder) { b.WithSentBetween(day1, day2) }, SentDate.In(Range[time.Time]{Lo: day1, Hi: day2})},
	}
	for _, tc := range cases {
		t.Run(tc.want.String(), func(t *testing.T) {
			b := NewSearchBuilder()
			tc.configure(b)
			got, ok := b.Build()
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
