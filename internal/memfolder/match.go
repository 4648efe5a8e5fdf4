package memfolder

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/mailq/internal/query"
)

// match reports whether m, at sequence number seq, satisfies t. Text
// comparisons are case-insensitive substring matches and dates compare
// by calendar day, as an IMAP server evaluates SEARCH keys.
func match(m *Message, seq uint32, t query.Term, now time.Time) bool {
	switch t := t.(type) {
	case query.CompareTerm:
		switch t.Attr {
		case query.AttrSize:
			return compare(m.parsed.Size, t.Size, t.Op)
		case query.AttrSentDate:
			return compareDays(sentDate(m), t.Date, t.Op)
		default:
			return compareDays(m.InternalDate, t.Date, t.Op)
		}
	case query.TextTerm:
		switch t.Field {
		case query.FieldBody:
			return contains(m.parsed.Text, t.Pattern)
		case query.FieldHeader:
			return headerContains(m, t.Header, t.Pattern)
		default:
			return headerContains(m, t.Field.HeaderName(), t.Pattern)
		}
	case query.AddressTerm:
		return headerContains(m, t.Field.HeaderName(), t.Address.Address)
	case query.FlagTerm:
		for _, f := range t.Flags {
			if m.hasFlag(f) != t.Set {
				return false
			}
		}
		return true
	case query.MessageIDTerm:
		return headerContains(m, "Message-Id", t.Pattern)
	case query.MessageNumberTerm:
		return seq == t.Num
	case query.ModSeqTerm:
		return m.ModSeq >= t.ModSeq
	case query.AgeTerm:
		cutoff := now.Add(-time.Duration(t.Seconds) * time.Second)
		if t.Op == query.AgeYounger {
			return !m.InternalDate.Before(cutoff)
		}
		return !m.InternalDate.After(cutoff)
	case query.AndTerm:
		return match(m, seq, t.Left, now) && match(m, seq, t.Right, now)
	case query.OrTerm:
		return match(m, seq, t.Left, now) || match(m, seq, t.Right, now)
	case query.NotTerm:
		return !match(m, seq, t.Term, now)
	default:
		panic(fmt.Sprintf("memfolder: unhandled term type %T", t))
	}
}

func contains(s, pattern string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(pattern))
}

func headerContains(m *Message, name, pattern string) bool {
	for _, h := range m.parsed.Headers {
		if strings.EqualFold(h.Name, name) && contains(h.Value, pattern) {
			return true
		}
	}
	return false
}

func compare(a, b int64, op query.Comparator) bool {
	switch op {
	case query.Equal:
		return a == b
	case query.NotEqual:
		return a != b
	case query.Less:
		return a < b
	case query.LessOrEqual:
		return a <= b
	case query.Greater:
		return a > b
	case query.GreaterOrEqual:
		return a >= b
	}
	return false
}

// compareDays compares the calendar days of a and b, both taken in b's
// location.
func compareDays(a, b time.Time, op query.Comparator) bool {
	return compare(dayNumber(a.In(b.Location())), dayNumber(b), op)
}

func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
