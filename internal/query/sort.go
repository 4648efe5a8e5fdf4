package query

import (
	"fmt"
	"strings"
)

// SortKey is a server-side sort criterion. SortReverse is not a criterion
// of its own: it reverses the key that immediately follows it.
type SortKey int

const (
	SortFrom SortKey = iota
	SortTo
	SortCc
	SortSubject
	SortArrival
	SortSent
	SortSize
	SortReverse
)

var sortKeyNames = map[SortKey]string{
	SortFrom:    "from",
	SortTo:      "to",
	SortCc:      "cc",
	SortSubject: "subject",
	SortArrival: "arrival",
	SortSent:    "sent",
	SortSize:    "size",
	SortReverse: "reverse",
}

func (k SortKey) String() string {
	if name, ok := sortKeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("sortkey(%d)", int(k))
}

// ParseSortKey parses a key name as printed by SortKey.String. "date" is
// accepted as an alias for "sent".
func ParseSortKey(s string) (SortKey, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "date" {
		return SortSent, nil
	}
	for k, n := range sortKeyNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown sort key %q", s)
}

// FormatSortKeys renders keys as a space separated list, e.g.
// "reverse arrival from".
func FormatSortKeys(keys []SortKey) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return strings.Join(names, " ")
}

// SortBuilder accumulates sort keys in priority order, first key highest.
// Keys are kept verbatim: repeated or contradictory keys are not collapsed.
type SortBuilder struct {
	keys []SortKey
}

func NewSortBuilder() *SortBuilder {
	return &SortBuilder{}
}

// Add appends key.
func (b *SortBuilder) Add(key SortKey) *SortBuilder {
	b.keys = append(b.keys, key)
	return b
}

// Negate appends SortReverse followed by key.
func (b *SortBuilder) Negate(key SortKey) *SortBuilder {
	b.keys = append(b.keys, SortReverse, key)
	return b
}

// Build returns a copy of the accumulated keys. An empty result means no
// ordering was requested.
func (b *SortBuilder) Build() []SortKey {
	return append([]SortKey(nil), b.keys...)
}
