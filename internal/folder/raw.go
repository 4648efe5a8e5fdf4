package folder

import (
	"context"
	"sync"
	"time"

	"github.com/nhle/mailq/internal/query"
)

// Header is a single message header field in message order.
type Header struct {
	Name  string
	Value string
}

// Attributes is the cached data of a message. Items records which of the
// fields have been populated.
type Attributes struct {
	Items FetchItem

	UID      uint32
	From     string
	Subject  string
	Date     time.Time
	Flags    []query.Flag
	Size     int64
	Headers  []Header
	BodyText string
}

// Loader fetches missing attributes of a message on demand. Handle
// implementations return ErrMessageDetached once their scope has ended.
type Loader interface {
	Load(ctx context.Context, msg *RawMessage, items FetchItem) error
}

// RawMessage is a message as returned by a Handle: its sequence number and
// whatever attributes have been fetched so far.
// It is safe for concurrent use; concurrent loads of one message are
// serialized so each missing item is fetched once.
type RawMessage struct {
	SeqNum uint32

	loadMu sync.Mutex // held across a check-then-load in ensure
	mu     sync.Mutex // guards attrs
	attrs  Attributes
	loader Loader
}

// NewRawMessage returns a message with an empty cache. loader may be nil,
// in which case only attributes stored with Fill are ever readable.
func NewRawMessage(seqNum uint32, loader Loader) *RawMessage {
	return &RawMessage{SeqNum: seqNum, loader: loader}
}

// Has reports whether all of items are cached.
func (m *RawMessage) Has(items FetchItem) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attrs.Items.Has(items)
}

// Fill copies the fields named by a.Items into the cache.
func (m *RawMessage) Fill(a Attributes) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.Items.Has(FetchUID) {
		m.attrs.UID = a.UID
	}
	if a.Items.Has(FetchEnvelope) {
		m.attrs.From = a.From
		m.attrs.Subject = a.Subject
		m.attrs.Date = a.Date
	}
	if a.Items.Has(FetchFlags) {
		m.attrs.Flags = append([]query.Flag(nil), a.Flags...)
	}
	if a.Items.Has(FetchSize) {
		m.attrs.Size = a.Size
	}
	if a.Items.Has(FetchHeaders) {
		m.attrs.Headers = append([]Header(nil), a.Headers...)
	}
	if a.Items.Has(FetchBody) {
		m.attrs.BodyText = a.BodyText
	}
	m.attrs.Items |= a.Items
}

// Attributes returns a copy of the cache.
func (m *RawMessage) Attributes() Attributes {
	a := m.cached()
	a.Flags = append([]query.Flag(nil), a.Flags...)
	a.Headers = append([]Header(nil), a.Headers...)
	return a
}

// cached returns the cache without copying its slices. Fill always stores
// fresh slices, so the returned ones are never written afterwards.
func (m *RawMessage) cached() Attributes {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attrs
}

func (m *RawMessage) ensure(ctx context.Context, items FetchItem) error {
	if m.Has(items) {
		return nil
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	if m.Has(items) {
		return nil
	}
	if m.loader == nil {
		return ErrMessageDetached
	}
	if err := m.loader.Load(ctx, m, items); err != nil {
		return err
	}
	if !m.Has(items) {
		return ErrAttributeUnavailable
	}
	return nil
}
