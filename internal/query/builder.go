package query

import (
	"time"

	"github.com/emersion/go-message/mail"
)

// SearchBuilder collects the terms of one search together with the
// execution directives that travel with it: the sort order and whether
// matches should be marked as read.
//
// Typical use is through a configuration function:
//
//	func(b *query.SearchBuilder) {
//		b.WithFrom("alerts@example.com").
//			WithReceivedAfter(yesterday).
//			MarkAsRead(true)
//		b.SortedBy(func(s *query.SortBuilder) {
//			s.Negate(query.SortArrival)
//		})
//	}
type SearchBuilder struct {
	terms    []Term
	sortKeys []SortKey
	markRead bool
}

func NewSearchBuilder() *SearchBuilder {
	return &SearchBuilder{}
}

// Build combines the collected terms. It reports false when no term was
// added; a single term is returned as is and several are folded left into
// nested AndTerms in insertion order.
func (b *SearchBuilder) Build() (Term, bool) {
	switch len(b.terms) {
	case 0:
		return nil, false
	case 1:
		return b.terms[0], true
	}
	t := b.terms[0]
	for _, next := range b.terms[1:] {
		t = And(t, next)
	}
	return t, true
}

// With adds t to the search.
func (b *SearchBuilder) With(t Term) *SearchBuilder {
	b.terms = append(b.terms, t)
	return b
}

// WithNot adds the negation of t to the search.
func (b *SearchBuilder) WithNot(t Term) *SearchBuilder {
	return b.With(Not(t))
}

// MarkAsRead sets whether matched messages get the \Seen flag. The last
// call wins.
func (b *SearchBuilder) MarkAsRead(mark bool) *SearchBuilder {
	b.markRead = mark
	return b
}

func (b *SearchBuilder) MarkRead() bool {
	return b.markRead
}

// SortedBy runs configure against a fresh SortBuilder and appends the
// resulting keys to the sort order of this search.
func (b *SearchBuilder) SortedBy(configure func(*SortBuilder)) *SearchBuilder {
	sb := NewSortBuilder()
	configure(sb)
	b.sortKeys = append(b.sortKeys, sb.Build()...)
	return b
}

func (b *SearchBuilder) HasSortKeys() bool {
	return len(b.sortKeys) > 0
}

func (b *SearchBuilder) SortKeys() []SortKey {
	return append([]SortKey(nil), b.sortKeys...)
}

func (b *SearchBuilder) WithFrom(pattern string) *SearchBuilder { return b.With(From(pattern)) }
func (b *SearchBuilder) WithTo(pattern string) *SearchBuilder   { return b.With(To(pattern)) }
func (b *SearchBuilder) WithCc(pattern string) *SearchBuilder   { return b.With(Cc(pattern)) }
func (b *SearchBuilder) WithBcc(pattern string) *SearchBuilder  { return b.With(Bcc(pattern)) }

func (b *SearchBuilder) WithFromAddress(addr mail.Address) *SearchBuilder {
	return b.With(FromAddress(addr))
}

func (b *SearchBuilder) WithToAddress(addr mail.Address) *SearchBuilder {
	return b.With(ToAddress(addr))
}

func (b *SearchBuilder) WithCcAddress(addr mail.Address) *SearchBuilder {
	return b.With(CcAddress(addr))
}

func (b *SearchBuilder) WithBccAddress(addr mail.Address) *SearchBuilder {
	return b.With(BccAddress(addr))
}

func (b *SearchBuilder) WithRecipient(field TextField, pattern string) *SearchBuilder {
	return b.With(Recipient(field, pattern))
}

func (b *SearchBuilder) WithSubject(pattern string) *SearchBuilder { return b.With(Subject(pattern)) }
func (b *SearchBuilder) WithBody(pattern string) *SearchBuilder    { return b.With(Body(pattern)) }

func (b *SearchBuilder) WithHeader(name, pattern string) *SearchBuilder {
	return b.With(Header(name, pattern))
}

func (b *SearchBuilder) WithOr(first, second Term) *SearchBuilder  { return b.With(Or(first, second)) }
func (b *SearchBuilder) WithAnd(first, second Term) *SearchBuilder { return b.With(And(first, second)) }

func (b *SearchBuilder) WithReceived(op Comparator, date time.Time) *SearchBuilder {
	return b.With(Received(op, date))
}

func (b *SearchBuilder) WithReceivedOn(date time.Time) *SearchBuilder {
	return b.With(ReceivedDate.Eq(date))
}

func (b *SearchBuilder) WithReceivedOnOrAfter(date time.Time) *SearchBuilder {
	return b.With(ReceivedDate.Ge(date))
}

func (b *SearchBuilder) WithReceivedAfter(date time.Time) *SearchBuilder {
	return b.With(ReceivedDate.Gt(date))
}

func (b *SearchBuilder) WithReceivedOnOrBefore(date time.Time) *SearchBuilder {
	return b.With(ReceivedDate.Le(date))
}

func (b *SearchBuilder) WithReceivedBefore(date time.Time) *SearchBuilder {
	return b.With(ReceivedDate.Lt(date))
}

func (b *SearchBuilder) WithNotReceivedOn(date time.Time) *SearchBuilder {
	return b.With(ReceivedDate.Ne(date))
}

func (b *SearchBuilder) WithReceivedBetween(earliest, latest time.Time) *SearchBuilder {
	return b.With(ReceivedDate.Between(earliest, latest))
}

func (b *SearchBuilder) WithReceivedIn(r Range[time.Time]) *SearchBuilder {
	return b.With(ReceivedDate.In(r))
}

func (b *SearchBuilder) WithSent(op Comparator, date time.Time) *SearchBuilder {
	return b.With(Sent(op, date))
}

func (b *SearchBuilder) WithSentOn(date time.Time) *SearchBuilder {
	return b.With(SentDate.Eq(date))
}

func (b *SearchBuilder) WithSentOnOrAfter(date time.Time) *SearchBuilder {
	return b.With(SentDate.Ge(date))
}

func (b *SearchBuilder) WithSentAfter(date time.Time) *SearchBuilder {
	return b.With(SentDate.Gt(date))
}

func (b *SearchBuilder) WithSentOnOrBefore(date time.Time) *SearchBuilder {
	return b.With(SentDate.Le(date))
}

func (b *SearchBuilder) WithSentBefore(date time.Time) *SearchBuilder {
	return b.With(SentDate.Lt(date))
}

func (b *SearchBuilder) WithNotSentOn(date time.Time) *SearchBuilder {
	return b.With(SentDate.Ne(date))
}

func (b *SearchBuilder) WithSentBetween(earliest, latest time.Time) *SearchBuilder {
	return b.With(SentDate.Between(earliest, latest))
}

func (b *SearchBuilder) WithSentIn(r Range[time.Time]) *SearchBuilder {
	return b.With(SentDate.In(r))
}

func (b *SearchBuilder) WithMessageID(pattern string) *SearchBuilder {
	return b.With(MessageID(pattern))
}

func (b *SearchBuilder) WithMessageNumber(n uint32) *SearchBuilder {
	return b.With(MessageNumber(n))
}

func (b *SearchBuilder) WithSize(op Comparator, size int64) *SearchBuilder {
	return b.With(SizeCompare(op, size))
}

func (b *SearchBuilder) WithSizeIs(size int64) *SearchBuilder { return b.With(Size.Eq(size)) }

func (b *SearchBuilder) WithSizeIsAtLeast(size int64) *SearchBuilder {
	return b.With(Size.Ge(size))
}

func (b *SearchBuilder) WithSizeIsGreaterThan(size int64) *SearchBuilder {
	return b.With(Size.Gt(size))
}

func (b *SearchBuilder) WithSizeIsNoMoreThan(size int64) *SearchBuilder {
	return b.With(Size.Le(size))
}

func (b *SearchBuilder) WithSizeIsLessThan(size int64) *SearchBuilder {
	return b.With(Size.Lt(size))
}

func (b *SearchBuilder) WithSizeIsNot(size int64) *SearchBuilder { return b.With(Size.Ne(size)) }

func (b *SearchBuilder) WithSizeBetween(smallest, largest int64) *SearchBuilder {
	return b.With(Size.Between(smallest, largest))
}

func (b *SearchBuilder) WithSizeIn(r Range[int64]) *SearchBuilder {
	return b.With(Size.In(r))
}

func (b *SearchBuilder) WithFlags(flags []Flag, set bool) *SearchBuilder {
	return b.With(Flags(flags, set))
}

func (b *SearchBuilder) WithModifiedSince(modSeq uint64) *SearchBuilder {
	return b.With(ModifiedSince(modSeq))
}

func (b *SearchBuilder) WithOlder(interval time.Duration) *SearchBuilder {
	return b.With(Older(interval))
}

func (b *SearchBuilder) WithYounger(interval time.Duration) *SearchBuilder {
	return b.With(Younger(interval))
}
