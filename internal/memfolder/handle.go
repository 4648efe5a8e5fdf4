package memfolder

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/query"
)

// Handle is an open view of a Mailbox. It implements folder.Handle.
type Handle struct {
	mailbox *Mailbox
	mode    folder.Mode
	closed  atomic.Bool
}

var (
	_ folder.Handle = (*Handle)(nil)
	_ folder.Loader = (*Handle)(nil)
)

func (h *Handle) Search(ctx context.Context, term query.Term) ([]*folder.RawMessage, error) {
	if err := h.check(ctx); err != nil {
		return nil, err
	}
	mb := h.mailbox
	mb.mu.Lock()
	defer mb.mu.Unlock()

	now := mb.now()
	var seqs []uint32
	for i, m := range mb.messages {
		seq := uint32(i + 1)
		if match(m, seq, term, now) {
			seqs = append(seqs, seq)
		}
	}
	return h.raws(seqs), nil
}

func (h *Handle) SearchSorted(ctx context.Context, term query.Term, keys []query.SortKey) ([]*folder.RawMessage, error) {
	plan, err := newSortPlan(keys)
	if err != nil {
		return nil, err
	}
	raw, err := h.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	return h.sorted(raw, plan), nil
}

func (h *Handle) SortOnly(ctx context.Context, keys []query.SortKey) ([]*folder.RawMessage, error) {
	if err := h.check(ctx); err != nil {
		return nil, err
	}
	plan, err := newSortPlan(keys)
	if err != nil {
		return nil, err
	}
	raw, err := h.Messages(ctx, 1, uint32(h.mailbox.Len()))
	if err != nil {
		return nil, err
	}
	return h.sorted(raw, plan), nil
}

func (h *Handle) sorted(raw []*folder.RawMessage, plan sortPlan) []*folder.RawMessage {
	mb := h.mailbox
	mb.mu.Lock()
	defer mb.mu.Unlock()

	entries := make([]sortEntry, 0, len(raw))
	for _, r := range raw {
		if m := mb.at(r.SeqNum); m != nil {
			entries = append(entries, sortEntry{seq: r.SeqNum, msg: m, raw: r})
		}
	}
	plan.sort(entries)

	out := make([]*folder.RawMessage, len(entries))
	for i, e := range entries {
		out[i] = e.raw
	}
	return out
}

func (h *Handle) Fetch(ctx context.Context, msgs []*folder.RawMessage, items folder.FetchItem) error {
	if err := h.check(ctx); err != nil {
		return err
	}
	mb := h.mailbox
	mb.mu.Lock()
	defer mb.mu.Unlock()

	for _, r := range msgs {
		m := mb.at(r.SeqNum)
		if m == nil {
			return fmt.Errorf("no message with sequence number %d", r.SeqNum)
		}
		r.Fill(attributesOf(m, items))
	}
	return nil
}

func (h *Handle) Load(ctx context.Context, msg *folder.RawMessage, items folder.FetchItem) error {
	if h.closed.Load() {
		return folder.ErrMessageDetached
	}
	return h.Fetch(ctx, []*folder.RawMessage{msg}, items)
}

// SetFlags changes flags on msgs and bumps their modification sequence.
func (h *Handle) SetFlags(ctx context.Context, msgs []*folder.RawMessage, flags []query.Flag, value bool) error {
	if err := h.check(ctx); err != nil {
		return err
	}
	if h.mode != folder.ReadWrite {
		return ErrReadOnly
	}
	mb := h.mailbox
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.modSeq++
	for _, r := range msgs {
		m := mb.at(r.SeqNum)
		if m == nil {
			return fmt.Errorf("no message with sequence number %d", r.SeqNum)
		}
		changed := false
		for _, f := range flags {
			if m.setFlag(f, value) {
				changed = true
			}
		}
		if changed {
			m.ModSeq = mb.modSeq
		}
	}
	return nil
}

func (h *Handle) Messages(ctx context.Context, from, to uint32) ([]*folder.RawMessage, error) {
	if err := h.check(ctx); err != nil {
		return nil, err
	}
	n := uint32(h.mailbox.Len())
	if from == 0 {
		from = 1
	}
	if to > n {
		to = n
	}
	var seqs []uint32
	for i := from; i <= to; i++ {
		seqs = append(seqs, i)
	}
	return h.raws(seqs), nil
}

func (h *Handle) Status(ctx context.Context) (folder.Status, error) {
	if err := h.check(ctx); err != nil {
		return folder.Status{}, err
	}
	mb := h.mailbox
	mb.mu.Lock()
	defer mb.mu.Unlock()

	st := folder.Status{Messages: uint32(len(mb.messages))}
	for _, m := range mb.messages {
		if !m.hasFlag(query.FlagSeen) {
			st.Unseen++
		}
		if m.hasFlag(query.FlagRecent) {
			st.Recent++
		}
	}
	return st, nil
}

// Close ends the handle. With expunge on a read-write handle, messages
// flagged \Deleted are removed from the mailbox.
func (h *Handle) Close(_ context.Context, expunge bool) error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !expunge || h.mode != folder.ReadWrite {
		return nil
	}

	mb := h.mailbox
	mb.mu.Lock()
	defer mb.mu.Unlock()

	kept := mb.messages[:0]
	for _, m := range mb.messages {
		if !m.hasFlag(query.FlagDeleted) {
			kept = append(kept, m)
		}
	}
	mb.messages = kept
	return nil
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

// at returns the message with sequence number seq. The caller holds mu.
func (mb *Mailbox) at(seq uint32) *Message {
	if seq == 0 || int(seq) > len(mb.messages) {
		return nil
	}
	return mb.messages[seq-1]
}
