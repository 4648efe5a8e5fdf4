package folder

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/mailq/internal/query"
)

// Mode is the access mode a folder is opened in.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// Type says what a folder can contain.
type Type int

const (
	HoldsMessages Type = iota
	HoldsFolders
	HoldsBoth
)

func (t Type) String() string {
	switch t {
	case HoldsFolders:
		return "folders"
	case HoldsBoth:
		return "messages and folders"
	default:
		return "messages"
	}
}

// Status holds the message counters of an open folder.
type Status struct {
	Messages uint32
	Unseen   uint32
	Recent   uint32
}

// Handle is the capability to operate on one open remote folder. All
// methods block until the server has answered; errors are returned as the
// protocol layer produced them.
type Handle interface {
	// Search returns the messages matching term in folder order.
	Search(ctx context.Context, term query.Term) ([]*RawMessage, error)

	// SearchSorted returns the messages matching term in the order given
	// by keys.
	SearchSorted(ctx context.Context, term query.Term, keys []query.SortKey) ([]*RawMessage, error)

	// SortOnly returns every message in the folder in the order given by
	// keys.
	SortOnly(ctx context.Context, keys []query.SortKey) ([]*RawMessage, error)

	// Fetch retrieves the attributes in items for msgs in one round trip
	// and stores them in each message's cache.
	Fetch(ctx context.Context, msgs []*RawMessage, items FetchItem) error

	// SetFlags sets (value true) or clears flags on msgs in one operation.
	SetFlags(ctx context.Context, msgs []*RawMessage, flags []query.Flag, value bool) error

	// Messages returns the messages with sequence numbers in [from, to].
	Messages(ctx context.Context, from, to uint32) ([]*RawMessage, error)

	Status(ctx context.Context) (Status, error)

	// Close ends the handle's scope, expunging deleted messages if asked.
	// Attributes not cached by then can no longer be loaded.
	Close(ctx context.Context, expunge bool) error
}

// FetchItem is a set of message attribute categories to retrieve eagerly.
type FetchItem uint8

const (
	FetchUID FetchItem = 1 << iota
	FetchEnvelope
	FetchFlags
	FetchSize
	FetchHeaders
	FetchBody

	// FetchMessage is the complete message: every header and the body.
	FetchMessage = FetchHeaders | FetchBody
	FetchAll     = FetchUID | FetchEnvelope | FetchFlags | FetchSize | FetchMessage
)

var fetchItemNames = []struct {
	item FetchItem
	name string
}{
	{FetchUID, "uid"},
	{FetchEnvelope, "envelope"},
	{FetchFlags, "flags"},
	{FetchSize, "size"},
	{FetchHeaders, "headers"},
	{FetchBody, "body"},
}

// Has reports whether every item in want is in f.
func (f FetchItem) Has(want FetchItem) bool {
	return f&want == want
}

func (f FetchItem) String() string {
	var names []string
	for _, n := range fetchItemNames {
		if f.Has(n.item) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseFetchItems parses names as printed by FetchItem.String, plus
// "message" for FetchMessage and "all" for FetchAll.
func ParseFetchItems(names []string) (FetchItem, error) {
	var items FetchItem
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case "message":
			items |= FetchMessage
			continue
		case "all":
			items |= FetchAll
			continue
		}
		found := false
		for _, n := range fetchItemNames {
			if n.name == name {
				items |= n.item
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown fetch item %q", raw)
		}
	}
	return items, nil
}
