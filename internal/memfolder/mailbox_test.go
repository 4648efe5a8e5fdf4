package memfolder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/query"
)

var clock = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	from, to, subject, date, body string
	arrived                       time.Time
	flags                         []query.Flag
}

func (f fixture) raw() []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMessage-Id: <%d@example.com>\r\n"+
			"Content-Type: text/plain\r\n\r\n%s\r\n",
		f.from, f.to, f.subject, f.date, f.arrived.Unix(), f.body,
	))
}

// newMailbox holds four messages arriving one day apart from March 1.
func newMailbox(t *testing.T) *Mailbox {
	t.Helper()
	mb := New(WithClock(func() time.Time { return clock }))
	fixtures := []fixture{
		{
			from: "Ann <ann@example.com>", to: "team@example.com", subject: "Weekly report",
			date: "Fri, 01 Mar 2024 09:00:00 +0000", body: "numbers are up",
			arrived: time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC),
		},
		{
			from: "bob@example.com", to: "ann@example.com", subject: "Re: lunch",
			date: "Sat, 02 Mar 2024 11:00:00 +0000", body: "pizza at noon",
			arrived: time.Date(2024, 3, 2, 11, 0, 0, 0, time.UTC),
			flags:   []query.Flag{query.FlagSeen},
		},
		{
			from: "Carol <carol@example.com>", to: "team@example.com", subject: "Invoice 42",
			date: "Sun, 03 Mar 2024 08:00:00 +0000", body: "Please pay the INVOICE by Friday. " +
				"This line makes the message noticeably larger than the others.",
			arrived: time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC),
			flags:   []query.Flag{query.FlagFlagged},
		},
		{
			from: "ann@example.com", to: "bob@example.com", subject: "lunch",
			date: "Fri, 08 Mar 2024 12:00:00 +0000", body: "sure",
			arrived: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
			flags:   []query.Flag{query.FlagRecent},
		},
	}
	for _, f := range fixtures {
		_, err := mb.Append(f.raw(), f.flags, f.arrived)
		require.NoError(t, err)
	}
	return mb
}

func search(t *testing.T, h *Handle, term query.Term) []uint32 {
	t.Helper()
	raw, err := h.Search(context.Background(), term)
	require.NoError(t, err)
	return seqs(raw)
}

func seqs(raw []*folder.RawMessage) []uint32 {
	out := []uint32{}
	for _, r := range raw {
		out = append(out, r.SeqNum)
	}
	return out
}

func TestSearchTerms(t *testing.T) {
	h := newMailbox(t).Open(folder.ReadOnly)
	mar2 := time.Date(2024, 3, 2, 23, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		term query.Term
		want []uint32
	}{
		{"from substring", query.From("ANN@"), []uint32{1, 4}},
		{"to", query.To("team"), []uint32{1, 3}},
		{"subject", query.Subject("lunch"), []uint32{2, 4}},
		{"body folds case", query.Body("invoice"), []uint32{3}},
		{"header", query.Header("message-id", "@example.com"), []uint32{1, 2, 3, 4}},
		{"message id", query.MessageID(fmt.Sprintf("<%d@", time.Date(2024, 3, 2, 11, 0, 0, 0, time.UTC).Unix())), []uint32{2}},
		{"address", query.ToAddress(mail.Address{Address: "bob@example.com"}), []uint32{4}},
		{"received on day", query.ReceivedDate.Eq(mar2), []uint32{2}},
		{"received before day", query.ReceivedDate.Lt(mar2), []uint32{1}},
		{"received on or after day", query.ReceivedDate.Ge(mar2), []uint32{2, 3, 4}},
		{"sent differs from received", query.SentDate.Eq(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)), []uint32{4}},
		{"size", query.Size.Gt(230), []uint32{3}},
		{"flag set", query.Flags([]query.Flag{query.FlagSeen}, true), []uint32{2}},
		{"flag unset", query.Flags([]query.Flag{query.FlagSeen, query.FlagFlagged}, false), []uint32{1, 4}},
		{"message number", query.MessageNumber(3), []uint32{3}},
		{"younger", query.Younger(48 * time.Hour), []uint32{4}},
		{"older", query.Older(7 * 24 * time.Hour), []uint32{1, 2, 3}},
		{"or", query.Or(query.Subject("invoice"), query.From("bob")), []uint32{2, 3}},
		{"not", query.Not(query.From("ann")), []uint32{2, 3}},
		{"and", query.And(query.From("ann"), query.SentDate.Le(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))), []uint32{1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, search(t, h, tc.term))
		})
	}
}

func TestSortedSearch(t *testing.T) {
	ctx := context.Background()
	h := newMailbox(t).Open(folder.ReadOnly)

	raw, err := h.SearchSorted(ctx, query.Not(query.Subject("invoice")),
		query.NewSortBuilder().Negate(query.SortArrival).Build())
	require.NoError(t, err)
	assert.Equal(t, []uint32{4, 2, 1}, seqs(raw))

	raw, err = h.SortOnly(ctx, query.NewSortBuilder().Add(query.SortSubject).Add(query.SortSent).Build())
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 2, 4, 1}, seqs(raw))

	raw, err = h.SortOnly(ctx, []query.SortKey{query.SortFrom, query.SortReverse, query.SortSize})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 4, 2, 3}, seqs(raw))
}

func TestSortRejectsMalformedKeys(t *testing.T) {
	h := newMailbox(t).Open(folder.ReadOnly)
	_, err := h.SortOnly(context.Background(), []query.SortKey{query.SortSize, query.SortReverse})
	assert.ErrorIs(t, err, ErrInvalidSortOrder)
}

func TestFolderQueryMarksRead(t *testing.T) {
	ctx := context.Background()
	mb := newMailbox(t)
	f := folder.New(mb.Open(folder.ReadWrite), folder.WithPrefetch(folder.FetchUID|folder.FetchEnvelope))

	unread, err := f.UnreadMessageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), unread)

	msgs, err := f.Search(ctx, func(b *query.SearchBuilder) {
		b.WithFrom("ann").MarkAsRead(true)
		b.SortedBy(func(s *query.SortBuilder) { s.Negate(query.SortSent) })
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	subject, err := msgs[0].Subject(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lunch", subject)

	unread, err = f.UnreadMessageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), unread)

	hasNew, err := f.HasNewMessages(ctx)
	require.NoError(t, err)
	assert.True(t, hasNew)

	require.NoError(t, f.Close(ctx, false))

	from, err := msgs[1].From(ctx)
	require.NoError(t, err)
	assert.Contains(t, from, "ann@example.com")

	_, err = msgs[1].BodyText(ctx)
	assert.ErrorIs(t, err, folder.ErrMessageDetached)

	_, err = f.MessageCount(ctx)
	assert.ErrorIs(t, err, folder.ErrFolderClosed)
}

func TestConcurrentLazyLoadsShareOneCache(t *testing.T) {
	ctx := context.Background()
	f := folder.New(newMailbox(t).Open(folder.ReadOnly), folder.WithPrefetch(folder.FetchUID))

	msgs, err := f.Search(ctx, func(b *query.SearchBuilder) { b.WithSubject("invoice") })
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	const readers = 8
	bodies := make([]string, readers)
	headers := make([][]folder.Header, readers)
	errs := make([]error, readers)

	var wg sync.WaitGroup
	for i := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if headers[i], errs[i] = msgs[0].Headers(ctx); errs[i] != nil {
				return
			}
			bodies[i], errs[i] = msgs[0].BodyText(ctx)
		}()
	}
	wg.Wait()

	for i := range readers {
		require.NoError(t, errs[i])
		assert.Contains(t, bodies[i], "INVOICE")
		assert.Equal(t, headers[0], headers[i])
	}
}

func TestSentDateFallsBackToInternalDate(t *testing.T) {
	mb := New(WithClock(func() time.Time { return clock }))
	arrived := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	_, err := mb.Append([]byte("From: dave@example.com\r\nSubject: undated\r\n\r\nhi\r\n"), nil, arrived)
	require.NoError(t, err)
	h := mb.Open(folder.ReadOnly)

	arrivalDay := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	otherDay := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, []uint32{1}, search(t, h, query.SentDate.Eq(arrivalDay)))
	assert.Empty(t, search(t, h, query.SentDate.Ne(arrivalDay)))
	assert.Equal(t, []uint32{1}, search(t, h, query.SentDate.Ne(otherDay)))
	assert.Equal(t,
		search(t, h, query.Not(query.SentDate.Eq(otherDay))),
		search(t, h, query.SentDate.Ne(otherDay)),
	)
	assert.Equal(t, []uint32{1}, search(t, h, query.SentDate.Gt(otherDay)))
}

func TestSetFlagsBumpsModSeq(t *testing.T) {
	ctx := context.Background()
	h := newMailbox(t).Open(folder.ReadWrite)

	raw, err := h.Messages(ctx, 3, 3)
	require.NoError(t, err)
	require.NoError(t, h.SetFlags(ctx, raw, []query.Flag{"todo"}, true))

	assert.Equal(t, []uint32{3}, search(t, h, query.ModifiedSince(2)))
	assert.Equal(t, []uint32{3}, search(t, h, query.Flags([]query.Flag{"TODO"}, true)))

	require.NoError(t, h.SetFlags(ctx, raw, []query.Flag{"todo"}, false))
	assert.Empty(t, search(t, h, query.Flags([]query.Flag{"todo"}, true)))
}

func TestReadOnlyHandleRejectsFlagChanges(t *testing.T) {
	ctx := context.Background()
	h := newMailbox(t).Open(folder.ReadOnly)
	raw, err := h.Messages(ctx, 1, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, h.SetFlags(ctx, raw, []query.Flag{query.FlagSeen}, true), ErrReadOnly)
}

func TestCloseWithExpungeRemovesDeleted(t *testing.T) {
	ctx := context.Background()
	mb := newMailbox(t)
	h := mb.Open(folder.ReadWrite)

	raw, err := h.Messages(ctx, 2, 3)
	require.NoError(t, err)
	require.NoError(t, h.SetFlags(ctx, raw, []query.Flag{query.FlagDeleted}, true))
	require.NoError(t, h.Close(ctx, true))
	assert.Equal(t, 2, mb.Len())

	again := mb.Open(folder.ReadOnly)
	assert.Equal(t, []uint32{2}, search(t, again, query.Subject("lunch")))
}

func TestMessagesClipsRange(t *testing.T) {
	h := newMailbox(t).Open(folder.ReadOnly)
	raw, err := h.Messages(context.Background(), 0, 99)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3, 4}, seqs(raw))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	msg := fixture{
		from: "ann@example.com", to: "bob@example.com", subject: "hello",
		date: "Fri, 01 Mar 2024 09:00:00 +0000", body: "hi bob",
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.eml"), msg.raw(), 0o600))
	msg.subject = "first"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.eml"), msg.raw(), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600))

	mb, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, mb.Len())

	h := mb.Open(folder.ReadOnly)
	assert.Equal(t, []uint32{1}, search(t, h, query.Subject("first")))
}
