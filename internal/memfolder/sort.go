package memfolder

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/query"
)

// ErrInvalidSortOrder is returned for a sort key list that is empty or
// has a reverse modifier without a key after it.
var ErrInvalidSortOrder = errors.New("invalid sort order")

type sortCriterion struct {
	key     query.SortKey
	reverse bool
}

type sortPlan []sortCriterion

type sortEntry struct {
	seq uint32
	msg *Message
	raw *folder.RawMessage
}

func newSortPlan(keys []query.SortKey) (sortPlan, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no sort keys", ErrInvalidSortOrder)
	}
	var plan sortPlan
	reverse := false
	for i, k := range keys {
		if k == query.SortReverse {
			if reverse {
				return nil, fmt.Errorf("%w: repeated reverse at position %d", ErrInvalidSortOrder, i)
			}
			reverse = true
			continue
		}
		plan = append(plan, sortCriterion{key: k, reverse: reverse})
		reverse = false
	}
	if reverse {
		return nil, fmt.Errorf("%w: trailing reverse", ErrInvalidSortOrder)
	}
	return plan, nil
}

// sort orders entries by each criterion in turn, falling back to sequence
// number when all keys compare equal.
func (p sortPlan) sort(entries []sortEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		for _, c := range p {
			cmp := compareBy(c.key, a.msg, b.msg)
			if c.reverse {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return a.seq < b.seq
	})
}

func compareBy(key query.SortKey, a, b *Message) int {
	switch key {
	case query.SortFrom:
		return strings.Compare(firstMailbox(a.parsed.From), firstMailbox(b.parsed.From))
	case query.SortTo:
		return strings.Compare(firstOf(a.parsed.To), firstOf(b.parsed.To))
	case query.SortCc:
		return strings.Compare(firstOf(a.parsed.Cc), firstOf(b.parsed.Cc))
	case query.SortSubject:
		return strings.Compare(baseSubject(a.parsed.Subject), baseSubject(b.parsed.Subject))
	case query.SortArrival:
		return a.InternalDate.Compare(b.InternalDate)
	case query.SortSent:
		return sentDate(a).Compare(sentDate(b))
	case query.SortSize:
		switch {
		case a.parsed.Size < b.parsed.Size:
			return -1
		case a.parsed.Size > b.parsed.Size:
			return 1
		}
	}
	return 0
}

func firstOf(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return firstMailbox(list[0])
}

// firstMailbox returns the local part of a formatted address, lowercased.
func firstMailbox(formatted string) string {
	if formatted == "" {
		return ""
	}
	addr, err := mail.ParseAddress(formatted)
	if err != nil {
		return strings.ToLower(formatted)
	}
	local, _, _ := strings.Cut(addr.Address, "@")
	return strings.ToLower(local)
}

// baseSubject strips reply and forward prefixes and folds case.
func baseSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	for {
		trimmed := s
		for _, prefix := range []string{"re:", "fwd:", "fw:"} {
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
		}
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "(fwd)"))
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

// sentDate falls back to the internal date for messages without a usable
// Date header.
func sentDate(m *Message) time.Time {
	if m.parsed.Date.IsZero() {
		return m.InternalDate
	}
	return m.parsed.Date
}
