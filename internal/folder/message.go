package folder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/mailq/internal/query"
)

var (
	// ErrMessageDetached is returned when reading an attribute that was
	// neither pre-fetched nor read while the message's folder was open.
	ErrMessageDetached = errors.New("message detached from closed folder")

	// ErrAttributeUnavailable is returned when the server did not supply
	// a requested attribute.
	ErrAttributeUnavailable = errors.New("message attribute unavailable")

	// ErrFolderClosed is returned by handle operations after Close.
	ErrFolderClosed = errors.New("folder closed")
)

// Message is the read-only view of a message returned by a query. Each
// accessor serves from the pre-fetched cache and otherwise loads the
// attribute through the folder, which must still be open.
type Message struct {
	raw *RawMessage
}

func newMessage(raw *RawMessage) *Message {
	return &Message{raw: raw}
}

// SeqNum is the message sequence number at the time of the query.
func (m *Message) SeqNum() uint32 {
	return m.raw.SeqNum
}

func (m *Message) UID(ctx context.Context) (uint32, error) {
	a, err := m.read(ctx, FetchUID, "uid")
	if err != nil {
		return 0, err
	}
	return a.UID, nil
}

// From is the first sender, formatted as an RFC 5322 address.
func (m *Message) From(ctx context.Context) (string, error) {
	a, err := m.read(ctx, FetchEnvelope, "from")
	if err != nil {
		return "", err
	}
	return a.From, nil
}

func (m *Message) Subject(ctx context.Context) (string, error) {
	a, err := m.read(ctx, FetchEnvelope, "subject")
	if err != nil {
		return "", err
	}
	return a.Subject, nil
}

// Date is the sent date from the envelope.
func (m *Message) Date(ctx context.Context) (time.Time, error) {
	a, err := m.read(ctx, FetchEnvelope, "date")
	if err != nil {
		return time.Time{}, err
	}
	return a.Date, nil
}

func (m *Message) Flags(ctx context.Context) ([]query.Flag, error) {
	a, err := m.read(ctx, FetchFlags, "flags")
	if err != nil {
		return nil, err
	}
	return append([]query.Flag(nil), a.Flags...), nil
}

// Size is the RFC 822 size in bytes.
func (m *Message) Size(ctx context.Context) (int64, error) {
	a, err := m.read(ctx, FetchSize, "size")
	if err != nil {
		return 0, err
	}
	return a.Size, nil
}

// BodyText is the text/plain content of the message.
func (m *Message) BodyText(ctx context.Context) (string, error) {
	a, err := m.read(ctx, FetchBody, "body")
	if err != nil {
		return "", err
	}
	return a.BodyText, nil
}

// Headers returns every header field in message order.
func (m *Message) Headers(ctx context.Context) ([]Header, error) {
	a, err := m.read(ctx, FetchHeaders, "headers")
	if err != nil {
		return nil, err
	}
	return append([]Header(nil), a.Headers...), nil
}

func (m *Message) read(ctx context.Context, item FetchItem, what string) (Attributes, error) {
	if err := m.raw.ensure(ctx, item); err != nil {
		return Attributes{}, fmt.Errorf("reading %s of message %d: %w", what, m.raw.SeqNum, err)
	}
	return m.raw.cached(), nil
}
