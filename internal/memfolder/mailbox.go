// Package memfolder keeps a folder of messages in memory and answers
// queries by evaluating terms locally. It backs tests and the offline mode
// of the command line tool.
package memfolder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/mailparse"
	"github.com/nhle/mailq/internal/query"
)

// ErrReadOnly is returned when changing flags through a read-only handle.
var ErrReadOnly = errors.New("folder opened read-only")

// Message is a stored message.
type Message struct {
	UID          uint32
	Flags        []query.Flag
	InternalDate time.Time
	ModSeq       uint64

	raw    []byte
	parsed *mailparse.Parsed
}

func (m *Message) hasFlag(f query.Flag) bool {
	return query.HasFlag(m.Flags, f)
}

func (m *Message) setFlag(f query.Flag, value bool) bool {
	has := m.hasFlag(f)
	switch {
	case value && !has:
		m.Flags = append(m.Flags, f)
		return true
	case !value && has:
		kept := m.Flags[:0]
		for _, g := range m.Flags {
			if !strings.EqualFold(string(g), string(f)) {
				kept = append(kept, g)
			}
		}
		m.Flags = kept
		return true
	}
	return false
}

// Mailbox is an ordered set of messages. Sequence numbers are positions
// in the mailbox, starting at 1.
type Mailbox struct {
	mu       sync.Mutex
	messages []*Message
	nextUID  uint32
	modSeq   uint64
	now      func() time.Time
}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithClock sets the time source used for internal dates and age terms.
func WithClock(now func() time.Time) Option {
	return func(mb *Mailbox) { mb.now = now }
}

func New(opts ...Option) *Mailbox {
	mb := &Mailbox{nextUID: 1, modSeq: 1, now: time.Now}
	for _, opt := range opts {
		opt(mb)
	}
	return mb
}

// Append parses raw and adds it to the end of the mailbox. A zero
// internalDate means now.
func (mb *Mailbox) Append(raw []byte, flags []query.Flag, internalDate time.Time) (uint32, error) {
	parsed, err := mailparse.Parse(raw)
	if err != nil {
		return 0, err
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	if internalDate.IsZero() {
		internalDate = mb.now()
	}
	msg := &Message{
		UID:          mb.nextUID,
		Flags:        append([]query.Flag(nil), flags...),
		InternalDate: internalDate,
		ModSeq:       mb.modSeq,
		raw:          append([]byte(nil), raw...),
		parsed:       parsed,
	}
	mb.nextUID++
	mb.messages = append(mb.messages, msg)
	return msg.UID, nil
}

func (mb *Mailbox) Len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.messages)
}

// LoadDir builds a mailbox from the .eml files in dir, in file name order.
// Each file's modification time becomes the message's internal date.
func LoadDir(dir string, opts ...Option) (*Mailbox, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	mb := New(opts...)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".eml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if _, err := mb.Append(raw, nil, info.ModTime()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return mb, nil
}

// Open returns a handle on the mailbox. Any number of handles may be open
// at once.
func (mb *Mailbox) Open(mode folder.Mode) *Handle {
	return &Handle{mailbox: mb, mode: mode}
}

func attributesOf(m *Message, items folder.FetchItem) folder.Attributes {
	p := m.parsed
	return folder.Attributes{
		Items:    items,
		UID:      m.UID,
		From:     p.From,
		Subject:  p.Subject,
		Date:     p.Date,
		Flags:    append([]query.Flag(nil), m.Flags...),
		Size:     p.Size,
		Headers:  p.Headers,
		BodyText: p.Text,
	}
}
