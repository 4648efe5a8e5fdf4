package imapfolder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/mailparse"
	"github.com/nhle/mailq/internal/query"
)

// Handle is a selected IMAP mailbox. It implements folder.Handle and
// loads missing message attributes until it is closed.
type Handle struct {
	client      *imapclient.Client
	mailbox     string
	mode        folder.Mode
	numMessages uint32
	numRecent   uint32
	now         func() time.Time
	closed      atomic.Bool
}

var (
	_ folder.Handle = (*Handle)(nil)
	_ folder.Loader = (*Handle)(nil)
)

func (h *Handle) Mailbox() string { return h.mailbox }

func (h *Handle) Mode() folder.Mode { return h.mode }

func (h *Handle) Search(ctx context.Context, term query.Term) ([]*folder.RawMessage, error) {
	if err := h.check(ctx); err != nil {
		return nil, err
	}
	data, err := h.client.Search(Criteria(term, h.now()), nil).Wait()
	if err != nil {
		return nil, err
	}
	return h.raws(data.AllSeqNums()), nil
}

func (h *Handle) SearchSorted(
	ctx context.Context,
	term query.Term,
	keys []query.SortKey,
) ([]*folder.RawMessage, error) {
	return h.sort(ctx, Criteria(term, h.now()), keys)
}

func (h *Handle) SortOnly(ctx context.Context, keys []query.SortKey) ([]*folder.RawMessage, error) {
	all := allMessages()
	return h.sort(ctx, &all, keys)
}

func (h *Handle) sort(
	ctx context.Context,
	criteria *imap.SearchCriteria,
	keys []query.SortKey,
) ([]*folder.RawMessage, error) {
	if err := h.check(ctx); err != nil {
		return nil, err
	}
	sortCriteria, err := SortCriteria(keys)
	if err != nil {
		return nil, err
	}
	seqs, err := h.client.Sort(&imapclient.SortOptions{
		SearchCriteria: criteria,
		SortCriteria:   sortCriteria,
	}).Wait()
	if err != nil {
		return nil, err
	}
	return h.raws(seqs), nil
}

// Fetch retrieves items for msgs with a single FETCH command. Bodies are
// fetched with BODY.PEEK so reading never sets \Seen.
func (h *Handle) Fetch(ctx context.Context, msgs []*folder.RawMessage, items folder.FetchItem) error {
	if err := h.check(ctx); err != nil {
		return err
	}
	if len(msgs) == 0 || items == 0 {
		return nil
	}

	bySeq := make(map[uint32]*folder.RawMessage, len(msgs))
	seqs := make([]uint32, 0, len(msgs))
	for _, m := range msgs {
		bySeq[m.SeqNum] = m
		seqs = append(seqs, m.SeqNum)
	}

	opts := &imap.FetchOptions{
		UID:        items.Has(folder.FetchUID),
		Envelope:   items.Has(folder.FetchEnvelope),
		Flags:      items.Has(folder.FetchFlags),
		RFC822Size: items.Has(folder.FetchSize),
	}
	var section *imap.FetchItemBodySection
	switch {
	case items.Has(folder.FetchBody):
		section = &imap.FetchItemBodySection{Peek: true}
	case items.Has(folder.FetchHeaders):
		section = &imap.FetchItemBodySection{Specifier: imap.PartSpecifierHeader, Peek: true}
	}
	if section != nil {
		opts.BodySection = []*imap.FetchItemBodySection{section}
	}

	fetchCmd := h.client.Fetch(imap.SeqSetNum(seqs...), opts)
	defer fetchCmd.Close()

	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			return fmt.Errorf("collecting message data: %w", err)
		}
		m, ok := bySeq[buf.SeqNum]
		if !ok {
			continue
		}
		attrs, err := attributesFromBuffer(buf, items, section)
		if err != nil {
			return fmt.Errorf("decoding message %d: %w", buf.SeqNum, err)
		}
		m.Fill(attrs)
	}

	return fetchCmd.Close()
}

// Load fetches items for a single message on demand.
func (h *Handle) Load(ctx context.Context, msg *folder.RawMessage, items folder.FetchItem) error {
	if h.closed.Load() {
		return folder.ErrMessageDetached
	}
	return h.Fetch(ctx, []*folder.RawMessage{msg}, items)
}

func (h *Handle) SetFlags(ctx context.Context, msgs []*folder.RawMessage, flags []query.Flag, value bool) error {
	if err := h.check(ctx); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	seqs := make([]uint32, len(msgs))
	for i, m := range msgs {
		seqs[i] = m.SeqNum
	}
	imapFlags := make([]imap.Flag, len(flags))
	for i, f := range flags {
		imapFlags[i] = imap.Flag(f)
	}

	op := imap.StoreFlagsAdd
	if !value {
		op = imap.StoreFlagsDel
	}

	storeCmd := h.client.Store(imap.SeqSetNum(seqs...), &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  imapFlags,
	}, nil)

	return storeCmd.Close()
}

// Messages returns the messages in [from, to], clipped to the mailbox size
// reported when it was selected.
func (h *Handle) Messages(ctx context.Context, from, to uint32) ([]*folder.RawMessage, error) {
	if err := h.check(ctx); err != nil {
		return nil, err
	}
	if from == 0 {
		from = 1
	}
	if to > h.numMessages {
		to = h.numMessages
	}
	var seqs []uint32
	for n := from; n <= to && n != 0; n++ {
		seqs = append(seqs, n)
	}
	return h.raws(seqs), nil
}

// Status reports the message and recent counts from SELECT and counts
// unseen messages with a SEARCH.
func (h *Handle) Status(ctx context.Context) (folder.Status, error) {
	if err := h.check(ctx); err != nil {
		return folder.Status{}, err
	}
	data, err := h.client.Search(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return folder.Status{}, fmt.Errorf("counting unseen messages: %w", err)
	}
	return folder.Status{
		Messages: h.numMessages,
		Unseen:   uint32(len(data.AllSeqNums())),
		Recent:   h.numRecent,
	}, nil
}

// Close unselects the mailbox, expunging messages marked \Deleted when
// expunge is true. Closing twice is a no-op.
func (h *Handle) Close(ctx context.Context, expunge bool) error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if expunge && h.mode == folder.ReadWrite {
		return h.client.UnselectAndExpunge().Wait()
	}
	return h.client.Unselect().Wait()
}

func (h *Handle) check(ctx context.Context) error {
	if h.closed.Load() {
		return folder.ErrFolderClosed
	}
	return ctx.Err()
}

func (h *Handle) raws(seqs []uint32) []*folder.RawMessage {
	out := make([]*folder.RawMessage, len(seqs))
	for i, n := range seqs {
		out[i] = folder.NewRawMessage(n, h)
	}
	return out
}

// attributesFromBuffer converts a FETCH response into cached attributes.
// Items the server left out are not marked as present.
func attributesFromBuffer(
	buf *imapclient.FetchMessageBuffer,
	items folder.FetchItem,
	section *imap.FetchItemBodySection,
) (folder.Attributes, error) {
	attrs := folder.Attributes{Items: items}

	if items.Has(folder.FetchUID) {
		attrs.UID = uint32(buf.UID)
	}

	if items.Has(folder.FetchEnvelope) {
		if buf.Envelope == nil {
			attrs.Items &^= folder.FetchEnvelope
		} else {
			attrs.Subject = buf.Envelope.Subject
			attrs.Date = buf.Envelope.Date
			if len(buf.Envelope.From) > 0 {
				attrs.From = formatAddress(buf.Envelope.From[0])
			}
		}
	}

	if items.Has(folder.FetchFlags) {
		for _, f := range buf.Flags {
			attrs.Flags = append(attrs.Flags, query.Flag(f))
		}
	}

	if items.Has(folder.FetchSize) {
		attrs.Size = buf.RFC822Size
	}

	if section != nil {
		raw := buf.FindBodySection(section)
		if raw == nil {
			attrs.Items &^= folder.FetchMessage
			return attrs, nil
		}
		if items.Has(folder.FetchBody) {
			parsed, err := mailparse.Parse(raw)
			if err != nil {
				return attrs, err
			}
			attrs.Headers = parsed.Headers
			attrs.BodyText = parsed.Text
			attrs.Items |= folder.FetchHeaders
		} else {
			headers, err := mailparse.Headers(raw)
			if err != nil {
				return attrs, err
			}
			attrs.Headers = headers
		}
	}

	return attrs, nil
}

// formatAddress renders an envelope address as an RFC 5322 mailbox.
func formatAddress(a imap.Address) string {
	addr := &mail.Address{Name: a.Name, Address: a.Addr()}
	return addr.String()
}
