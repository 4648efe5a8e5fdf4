package msglist

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/query"
	"github.com/nhle/mailq/internal/theme"
)

// Summary is the list row of one matched message.
type Summary struct {
	SeqNum  uint32
	From    string
	Subject string
	Date    time.Time
	Unread  bool
}

// Summarize reads the envelope and flags of m, loading them from the folder
// when they were not prefetched.
func Summarize(ctx context.Context, m *folder.Message) (Summary, error) {
	s := Summary{SeqNum: m.SeqNum()}
	var err error
	if s.From, err = m.From(ctx); err != nil {
		return s, err
	}
	if s.Subject, err = m.Subject(ctx); err != nil {
		return s, err
	}
	if s.Date, err = m.Date(ctx); err != nil {
		return s, err
	}
	flags, err := m.Flags(ctx)
	if err != nil {
		return s, err
	}
	s.Unread = !query.HasFlag(flags, query.FlagSeen)
	return s, nil
}

// Item wraps a Summary so it can be used in a bubbles/list.
type Item struct {
	Summary Summary
}

func (i Item) FilterValue() string { return i.Summary.Subject }

func (i Item) Title() string { return i.Summary.Subject }

func (i Item) Description() string { return i.Summary.From }

// ItemDelegate implements list.ItemDelegate for rendering message rows.
type ItemDelegate struct {
	now func() time.Time
}

func (d ItemDelegate) Height() int { return 1 }

func (d ItemDelegate) Spacing() int { return 0 }

func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single message line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	s := it.Summary

	marker := " "
	if s.Unread {
		marker = theme.UnreadStyle.Render("●")
	}
	subject := s.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	age := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(s.Date, d.now()))

	line := fmt.Sprintf("%s %4d %s %s  %s",
		marker, s.SeqNum,
		theme.AddressStyle.Render(s.From),
		subject, age,
	)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly age of t as seen at now.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 365*24*time.Hour:
		return t.Format("Jan 02")
	default:
		return t.Format("2006-01-02")
	}
}
