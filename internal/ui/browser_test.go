package ui

import (
	"context"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/memfolder"
	"github.com/nhle/mailq/internal/query"
	"github.com/nhle/mailq/internal/ui/msglist"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func openFolder(t *testing.T, prefetch folder.FetchItem) *folder.Folder {
	t.Helper()
	mb := memfolder.New(memfolder.WithClock(func() time.Time { return now }))
	for i, subject := range []string{"Weekly report", "Lunch"} {
		raw := fmt.Sprintf("From: ann@example.com\r\nSubject: %s\r\n"+
			"Date: Fri, 01 Mar 2024 09:00:00 +0000\r\n\r\nbody of message %d\r\n", subject, i+1)
		var flags []query.Flag
		if i == 1 {
			flags = []query.Flag{query.FlagSeen}
		}
		_, err := mb.Append([]byte(raw), flags, now.Add(-time.Duration(2-i)*time.Hour))
		require.NoError(t, err)
	}
	return folder.New(mb.Open(folder.ReadOnly), folder.WithPrefetch(prefetch))
}

func allMessages(t *testing.T, f *folder.Folder) []*folder.Message {
	t.Helper()
	msgs, err := f.SortedBy(context.Background(), func(s *query.SortBuilder) { s.Add(query.SortArrival) })
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	return msgs
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m tea.Model, msg tea.Msg) (tea.Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next, cmd
}

func loadedBrowser(t *testing.T, msgs []*folder.Message) tea.Model {
	t.Helper()
	b := NewBrowser(context.Background(), "local/INBOX", "sort | 2 matches", msgs, func() time.Time { return now })
	m, _ := update(t, b, tea.WindowSizeMsg{Width: 100, Height: 30})

	loaded := b.Init()()
	require.IsType(t, msglist.LoadedMsg{}, loaded)
	require.NoError(t, loaded.(msglist.LoadedMsg).Err)
	m, _ = update(t, m, loaded)
	return m
}

func TestBrowserListsAndOpensMessages(t *testing.T) {
	f := openFolder(t, folder.FetchEnvelope|folder.FetchFlags)
	m := loadedBrowser(t, allMessages(t, f))

	view := m.View()
	assert.Contains(t, view, "local/INBOX")
	assert.Contains(t, view, "Weekly report")
	assert.Contains(t, view, "Lunch")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, cmd = update(t, m, cmd())
	assert.Equal(t, ViewMessage, m.(Browser).CurrentView())
	assert.Contains(t, m.View(), "Loading message...")

	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.View(), "body of message 1")

	m, _ = update(t, m, keyRunes("h"))
	assert.Contains(t, m.View(), "Subject: Weekly report")

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, ViewList, m.(Browser).CurrentView())
}

func TestBrowserHelpToggle(t *testing.T) {
	f := openFolder(t, folder.FetchEnvelope|folder.FetchFlags)
	m := loadedBrowser(t, allMessages(t, f))

	m, _ = update(t, m, keyRunes("?"))
	assert.Equal(t, ViewHelp, m.(Browser).CurrentView())
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.(Browser).CurrentView())

	_, cmd := update(t, m, keyRunes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestBrowserShowsDetachedError(t *testing.T) {
	f := openFolder(t, folder.FetchEnvelope|folder.FetchFlags)
	m := loadedBrowser(t, allMessages(t, f))
	require.NoError(t, f.Close(context.Background(), false))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = update(t, m, cmd())
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.View(), folder.ErrMessageDetached.Error())
}

func TestBrowserEmptyResult(t *testing.T) {
	m := loadedBrowser(t, nil)
	assert.Contains(t, m.View(), "No matching messages.")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}
