package imapfolder

import (
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailq/internal/query"
)

// ErrInvalidSortOrder is returned for sort key lists the SORT command
// cannot express: no keys, a reverse modifier not followed by a key, or
// two reverse modifiers in a row.
var ErrInvalidSortOrder = errors.New("invalid sort order")

// Criteria translates t into SEARCH criteria. IMAP date keys have day
// granularity, so date comparisons are rounded to whole days and age terms
// are resolved against now to the day.
func Criteria(t query.Term, now time.Time) *imap.SearchCriteria {
	c := criteria(t, now)
	if isEmpty(&c) {
		c = allMessages()
	}
	return &c
}

func criteria(t query.Term, now time.Time) imap.SearchCriteria {
	switch t := t.(type) {
	case query.CompareTerm:
		if t.Attr == query.AttrSize {
			return sizeCriteria(t.Op, t.Size)
		}
		return dateCriteria(t.Attr, t.Op, t.Date)
	case query.TextTerm:
		switch t.Field {
		case query.FieldBody:
			return imap.SearchCriteria{Body: []string{t.Pattern}}
		case query.FieldHeader:
			return headerCriteria(t.Header, t.Pattern)
		default:
			return headerCriteria(t.Field.HeaderName(), t.Pattern)
		}
	case query.AddressTerm:
		return headerCriteria(t.Field.HeaderName(), t.Address.Address)
	case query.FlagTerm:
		flags := make([]imap.Flag, len(t.Flags))
		for i, f := range t.Flags {
			flags[i] = imap.Flag(f)
		}
		if t.Set {
			return imap.SearchCriteria{Flag: flags}
		}
		return imap.SearchCriteria{NotFlag: flags}
	case query.MessageIDTerm:
		return headerCriteria("Message-Id", t.Pattern)
	case query.MessageNumberTerm:
		return imap.SearchCriteria{SeqNum: []imap.SeqSet{imap.SeqSetNum(t.Num)}}
	case query.ModSeqTerm:
		return imap.SearchCriteria{ModSeq: &imap.SearchCriteriaModSeq{ModSeq: t.ModSeq}}
	case query.AgeTerm:
		cutoff := startOfDay(now.Add(-time.Duration(t.Seconds) * time.Second))
		if t.Op == query.AgeYounger {
			return imap.SearchCriteria{Since: cutoff}
		}
		return imap.SearchCriteria{Before: cutoff}
	case query.AndTerm:
		left := criteria(t.Left, now)
		right := criteria(t.Right, now)
		merge(&left, &right)
		return left
	case query.OrTerm:
		return imap.SearchCriteria{Or: [][2]imap.SearchCriteria{{
			nonEmpty(criteria(t.Left, now)),
			nonEmpty(criteria(t.Right, now)),
		}}}
	case query.NotTerm:
		return imap.SearchCriteria{Not: []imap.SearchCriteria{nonEmpty(criteria(t.Term, now))}}
	default:
		panic(fmt.Sprintf("imapfolder: unhandled term type %T", t))
	}
}

func headerCriteria(name, value string) imap.SearchCriteria {
	return imap.SearchCriteria{Header: []imap.SearchCriteriaHeaderField{{Key: name, Value: value}}}
}

func dateCriteria(attr query.Attribute, op query.Comparator, date time.Time) imap.SearchCriteria {
	day := startOfDay(date)
	next := day.AddDate(0, 0, 1)

	var since, before time.Time
	switch op {
	case query.Equal:
		since, before = day, next
	case query.NotEqual:
		return imap.SearchCriteria{Not: []imap.SearchCriteria{dateCriteria(attr, query.Equal, date)}}
	case query.Less:
		before = day
	case query.LessOrEqual:
		before = next
	case query.Greater:
		since = next
	case query.GreaterOrEqual:
		since = day
	}

	if attr == query.AttrSentDate {
		return imap.SearchCriteria{SentSince: since, SentBefore: before}
	}
	return imap.SearchCriteria{Since: since, Before: before}
}

// sizeCriteria maps a size comparison onto LARGER and SMALLER, which are
// both strict. Zero means "unset" for either field, so "at least one byte"
// is written as NOT SMALLER 1.
func sizeCriteria(op query.Comparator, n int64) imap.SearchCriteria {
	switch op {
	case query.Equal:
		switch {
		case n < 0:
			return matchNothing()
		case n == 1:
			c := nonZeroSize()
			c.Smaller = 2
			return c
		case n > 1:
			return imap.SearchCriteria{Larger: n - 1, Smaller: n + 1}
		}
		return imap.SearchCriteria{Smaller: 1}
	case query.NotEqual:
		return imap.SearchCriteria{Not: []imap.SearchCriteria{nonEmpty(sizeCriteria(query.Equal, n))}}
	case query.Less:
		if n <= 0 {
			return matchNothing()
		}
		return imap.SearchCriteria{Smaller: n}
	case query.LessOrEqual:
		if n < 0 {
			return matchNothing()
		}
		return imap.SearchCriteria{Smaller: n + 1}
	case query.Greater:
		switch {
		case n < 0:
			return imap.SearchCriteria{}
		case n == 0:
			return nonZeroSize()
		}
		return imap.SearchCriteria{Larger: n}
	case query.GreaterOrEqual:
		switch {
		case n <= 0:
			return imap.SearchCriteria{}
		case n == 1:
			return nonZeroSize()
		}
		return imap.SearchCriteria{Larger: n - 1}
	}
	return imap.SearchCriteria{}
}

func nonZeroSize() imap.SearchCriteria {
	return imap.SearchCriteria{Not: []imap.SearchCriteria{{Smaller: 1}}}
}

// merge adds the conditions of b to a so that a matches only messages
// matching both.
func merge(a, b *imap.SearchCriteria) {
	a.SeqNum = append(a.SeqNum, b.SeqNum...)
	a.UID = append(a.UID, b.UID...)
	a.Header = append(a.Header, b.Header...)
	a.Body = append(a.Body, b.Body...)
	a.Text = append(a.Text, b.Text...)
	a.Flag = append(a.Flag, b.Flag...)
	a.NotFlag = append(a.NotFlag, b.NotFlag...)
	a.Not = append(a.Not, b.Not...)
	a.Or = append(a.Or, b.Or...)

	a.Since = later(a.Since, b.Since)
	a.SentSince = later(a.SentSince, b.SentSince)
	a.Before = earlier(a.Before, b.Before)
	a.SentBefore = earlier(a.SentBefore, b.SentBefore)

	if b.Larger > a.Larger {
		a.Larger = b.Larger
	}
	if b.Smaller != 0 && (a.Smaller == 0 || b.Smaller < a.Smaller) {
		a.Smaller = b.Smaller
	}
	if b.ModSeq != nil && (a.ModSeq == nil || b.ModSeq.ModSeq > a.ModSeq.ModSeq) {
		a.ModSeq = b.ModSeq
	}
}

func later(a, b time.Time) time.Time {
	if a.IsZero() || b.After(a) {
		return b
	}
	return a
}

func earlier(a, b time.Time) time.Time {
	if a.IsZero() || (!b.IsZero() && b.Before(a)) {
		return b
	}
	return a
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func isEmpty(c *imap.SearchCriteria) bool {
	return len(c.SeqNum) == 0 && len(c.UID) == 0 &&
		c.Since.IsZero() && c.Before.IsZero() &&
		c.SentSince.IsZero() && c.SentBefore.IsZero() &&
		len(c.Header) == 0 && len(c.Body) == 0 && len(c.Text) == 0 &&
		len(c.Flag) == 0 && len(c.NotFlag) == 0 &&
		c.Larger == 0 && c.Smaller == 0 &&
		len(c.Not) == 0 && len(c.Or) == 0 && c.ModSeq == nil
}

func nonEmpty(c imap.SearchCriteria) imap.SearchCriteria {
	if isEmpty(&c) {
		return allMessages()
	}
	return c
}

// allMessages matches every message (sequence set 1:*).
func allMessages() imap.SearchCriteria {
	var all imap.SeqSet
	all.AddRange(1, 0)
	return imap.SearchCriteria{SeqNum: []imap.SeqSet{all}}
}

func matchNothing() imap.SearchCriteria {
	return imap.SearchCriteria{Not: []imap.SearchCriteria{allMessages()}}
}

var sortKeys = map[query.SortKey]imapclient.SortKey{
	query.SortFrom:    imapclient.SortKeyFrom,
	query.SortTo:      imapclient.SortKeyTo,
	query.SortCc:      imapclient.SortKeyCc,
	query.SortSubject: imapclient.SortKeySubject,
	query.SortArrival: imapclient.SortKeyArrival,
	query.SortSent:    imapclient.SortKeyDate,
	query.SortSize:    imapclient.SortKeySize,
}

// SortCriteria pairs every reverse modifier with the key that follows it.
func SortCriteria(keys []query.SortKey) ([]imapclient.SortCriterion, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no sort keys", ErrInvalidSortOrder)
	}
	var out []imapclient.SortCriterion
	reverse := false
	for i, k := range keys {
		if k == query.SortReverse {
			if reverse {
				return nil, fmt.Errorf("%w: repeated reverse at position %d", ErrInvalidSortOrder, i)
			}
			reverse = true
			continue
		}
		key, ok := sortKeys[k]
		if !ok {
			return nil, fmt.Errorf("%w: unknown key %s", ErrInvalidSortOrder, k)
		}
		out = append(out, imapclient.SortCriterion{Key: key, Reverse: reverse})
		reverse = false
	}
	if reverse {
		return nil, fmt.Errorf("%w: trailing reverse", ErrInvalidSortOrder)
	}
	return out, nil
}
