package msglist

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/keys"
	"github.com/nhle/mailq/internal/theme"
)

// LoadedMsg is sent when the summaries of the matched messages are ready.
type LoadedMsg struct {
	Summaries []Summary
	Err       error
}

// SelectedMsg is sent when the user opens a message. Index is its
// position in the result list.
type SelectedMsg struct {
	Index int
}

// Model is the result list view.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	err    error
	width  int
	height int
}

// New creates a list view. now is used to render message ages.
func New(k *keys.KeyMap, title string, now func() time.Time, width, height int) Model {
	if now == nil {
		now = time.Now
	}
	l := list.New([]list.Item{}, ItemDelegate{now: now}, width, height)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Load returns a command that summarizes msgs in result order.
func Load(ctx context.Context, msgs []*folder.Message) tea.Cmd {
	return func() tea.Msg {
		out := make([]Summary, 0, len(msgs))
		for _, m := range msgs {
			s, err := Summarize(ctx, m)
			if err != nil {
				return LoadedMsg{Summaries: out, Err: err}
			}
			out = append(out, s)
		}
		return LoadedMsg{Summaries: out}
	}
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.err = msg.Err
		items := make([]list.Item, len(msg.Summaries))
		for i, s := range msg.Summaries {
			items[i] = Item{Summary: s}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Select) {
			if len(m.list.Items()) == 0 {
				return m, nil
			}
			index := m.list.Index()
			return m, func() tea.Msg { return SelectedMsg{Index: index} }
		}
	}

	// Navigation keys go to the list.
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Len is the number of rows loaded so far.
func (m Model) Len() int {
	return len(m.list.Items())
}

// View renders the list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		style := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		if m.err != nil {
			return style.Render(theme.ErrorStyle.Render(m.err.Error()))
		}
		return style.Render("No matching messages.")
	}

	if m.err != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.list.View(),
			theme.ErrorStyle.Render(m.err.Error()),
		)
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
