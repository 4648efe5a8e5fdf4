package imapfolder

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/query"
)

const (
	testUser     = "ann"
	testPassword = "secret"
)

func testMessage(from, subject, body string) string {
	return strings.ReplaceAll(fmt.Sprintf(`From: %s
To: team@example.com
Subject: %s
Date: Fri, 01 Mar 2024 10:00:00 +0000
Message-Id: <%s@example.com>
Content-Type: text/plain; charset=utf-8

%s
`, from, subject, strings.ReplaceAll(subject, " ", "-"), body), "\n", "\r\n")
}

// newTestSession starts an in-memory IMAP server holding messages in
// INBOX and returns an authenticated session against it.
func newTestSession(t *testing.T, messages ...string) *Session {
	t.Helper()

	memServer := imapmemserver.New()
	user := imapmemserver.NewUser(testUser, testPassword)
	require.NoError(t, user.Create("INBOX", nil))
	memServer.AddUser(user)

	server := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return memServer.NewSession(), nil, nil
		},
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
		},
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = server.Close() })

	client, err := imapclient.DialInsecure(ln.Addr().String(), nil)
	require.NoError(t, err)
	require.NoError(t, client.Login(testUser, testPassword).Wait())

	for _, msg := range messages {
		appendCmd := client.Append("INBOX", int64(len(msg)), nil)
		_, err := appendCmd.Write([]byte(msg))
		require.NoError(t, err)
		require.NoError(t, appendCmd.Close())
		_, err = appendCmd.Wait()
		require.NoError(t, err)
	}

	s := NewSession(client)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openInbox(t *testing.T, s *Session) *Handle {
	t.Helper()
	h, err := s.Open(context.Background(), "INBOX", folder.ReadWrite)
	require.NoError(t, err)
	return h
}

func TestHandleSearchAndFetch(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t,
		testMessage("Ann <ann@example.com>", "weekly report", "numbers inside"),
		testMessage("bob@example.com", "lunch", "pizza?"),
		testMessage("Ann <ann@example.com>", "invoice", "please pay"),
	)
	h := openInbox(t, s)

	raw, err := h.Search(ctx, query.From("ann@example.com"))
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, uint32(1), raw[0].SeqNum)
	assert.Equal(t, uint32(3), raw[1].SeqNum)

	require.NoError(t, h.Fetch(ctx, raw, folder.FetchUID|folder.FetchEnvelope|folder.FetchBody))
	attrs := raw[1].Attributes()
	assert.True(t, raw[1].Has(folder.FetchMessage))
	assert.NotZero(t, attrs.UID)
	assert.Equal(t, "invoice", attrs.Subject)
	assert.Contains(t, attrs.From, "ann@example.com")
	assert.Equal(t, "please pay", strings.TrimSpace(attrs.BodyText))
	assert.NotEmpty(t, attrs.Headers)
	assert.Equal(t, "From", attrs.Headers[0].Name)
}

func TestHandleFetchHeadersOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, testMessage("bob@example.com", "lunch", "pizza?"))
	h := openInbox(t, s)

	raw, err := h.Messages(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, raw, 1)

	require.NoError(t, h.Fetch(ctx, raw, folder.FetchHeaders))
	assert.True(t, raw[0].Has(folder.FetchHeaders))
	assert.False(t, raw[0].Has(folder.FetchBody))

	var subject string
	for _, hdr := range raw[0].Attributes().Headers {
		if hdr.Name == "Subject" {
			subject = hdr.Value
		}
	}
	assert.Equal(t, "lunch", subject)
}

func TestHandleSetFlagsAndStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t,
		testMessage("a@example.com", "one", "1"),
		testMessage("b@example.com", "two", "2"),
	)
	h := openInbox(t, s)

	st, err := h.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), st.Messages)
	assert.Equal(t, uint32(2), st.Unseen)

	raw, err := h.Search(ctx, query.Subject("two"))
	require.NoError(t, err)
	require.NoError(t, h.SetFlags(ctx, raw, []query.Flag{query.FlagSeen}, true))

	st, err = h.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), st.Unseen)

	seen, err := h.Search(ctx, query.Flags([]query.Flag{query.FlagSeen}, true))
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, uint32(2), seen[0].SeqNum)
}

func TestHandleClosedRejectsCallsAndDetachesMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, testMessage("a@example.com", "one", "1"))
	h := openInbox(t, s)

	raw, err := h.Messages(ctx, 1, 1)
	require.NoError(t, err)
	require.NoError(t, h.Close(ctx, false))
	require.NoError(t, h.Close(ctx, false))

	_, err = h.Search(ctx, query.Subject("one"))
	assert.ErrorIs(t, err, folder.ErrFolderClosed)

	err = h.Load(ctx, raw[0], folder.FetchBody)
	assert.ErrorIs(t, err, folder.ErrMessageDetached)
}

func TestSessionFolderRunsQueryAndMarksRead(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t,
		testMessage("a@example.com", "status update", "all good"),
		testMessage("b@example.com", "other", "noise"),
	)

	var subjects []string
	err := s.Folder(ctx, "INBOX", folder.ReadWrite, func(f *folder.Folder) error {
		f.PreFetchBy(folder.FetchEnvelope)
		msgs, err := f.Search(ctx, func(b *query.SearchBuilder) {
			b.WithBody("good").MarkAsRead(true)
		})
		if err != nil {
			return err
		}
		for _, m := range msgs {
			subject, err := m.Subject(ctx)
			if err != nil {
				return err
			}
			subjects = append(subjects, subject)
		}
		unread, err := f.UnreadMessageCount(ctx)
		assert.Equal(t, uint32(1), unread)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"status update"}, subjects)
}

func TestFolderTypeFromListAttributes(t *testing.T) {
	cases := []struct {
		attrs []imap.MailboxAttr
		want  folder.Type
	}{
		{nil, folder.HoldsBoth},
		{[]imap.MailboxAttr{imap.MailboxAttrHasChildren}, folder.HoldsBoth},
		{[]imap.MailboxAttr{imap.MailboxAttrNoInferiors}, folder.HoldsMessages},
		{[]imap.MailboxAttr{"\\NOSELECT", imap.MailboxAttrHasChildren}, folder.HoldsFolders},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, folderType(tc.attrs), "attrs %v", tc.attrs)
	}
}

func TestSessionFolderType(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	require.NoError(t, s.client.Create("Archive", nil).Wait())

	typ, err := s.FolderType(ctx, "Archive")
	require.NoError(t, err)
	assert.NotEqual(t, folder.HoldsFolders, typ)

	_, err = s.FolderType(ctx, "INBOX")
	require.NoError(t, err)

	_, err = s.FolderType(ctx, "Missing")
	assert.ErrorIs(t, err, ErrNoSuchFolder)
}
