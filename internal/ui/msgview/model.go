package msgview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/keys"
	"github.com/nhle/mailq/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Content is everything the view shows for one message.
type Content struct {
	SeqNum  uint32
	From    string
	Subject string
	Date    time.Time
	Headers []folder.Header
	Body    string
}

// LoadedMsg carries the loaded content of a message.
type LoadedMsg struct {
	Content Content
	Err     error
}

// Load returns a command that reads the headers and body of m. Both are
// fetched lazily if the folder did not prefetch them.
func Load(ctx context.Context, m *folder.Message) tea.Cmd {
	return func() tea.Msg {
		c := Content{SeqNum: m.SeqNum()}
		var err error
		if c.From, err = m.From(ctx); err != nil {
			return LoadedMsg{Content: c, Err: err}
		}
		if c.Subject, err = m.Subject(ctx); err != nil {
			return LoadedMsg{Content: c, Err: err}
		}
		if c.Date, err = m.Date(ctx); err != nil {
			return LoadedMsg{Content: c, Err: err}
		}
		if c.Headers, err = m.Headers(ctx); err != nil {
			return LoadedMsg{Content: c, Err: err}
		}
		if c.Body, err = m.BodyText(ctx); err != nil {
			return LoadedMsg{Content: c, Err: err}
		}
		return LoadedMsg{Content: c}
	}
}

// Model is the message view component.
type Model struct {
	content     *Content
	err         error
	viewport    viewport.Model
	keys        *keys.KeyMap
	showHeaders bool
	loading     bool
	width       int
	height      int
}

// New creates a message view.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		viewport: viewport.New(width, height),
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the message view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		m.err = msg.Err
		c := msg.Content
		m.content = &c
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Headers):
			m.showHeaders = !m.showHeaders
			m.viewport.SetContent(m.renderContent())
			return m, nil
		}
	}

	// Scrolling keys go to the viewport.
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the message view.
func (m Model) View() string {
	if m.loading || m.content == nil {
		text := "No message selected"
		if m.loading {
			text = "Loading message..."
		}
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render(text)
	}
	return m.viewport.View()
}

// renderContent builds the full text shown in the viewport.
func (m Model) renderContent() string {
	if m.content == nil {
		return ""
	}
	c := m.content
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	subject := c.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	sections := []string{
		theme.SubjectStyle.Render(subject),
		fmt.Sprintf("%s %s", metaStyle.Render("From:"), theme.AddressStyle.Render(c.From)),
	}
	if !c.Date.IsZero() {
		sections = append(sections,
			fmt.Sprintf("%s %s", metaStyle.Render("Date:"), c.Date.Local().Format("2006-01-02 15:04")))
	}

	if m.showHeaders {
		sections = append(sections, "")
		for _, h := range c.Headers {
			sections = append(sections, metaStyle.Render(h.Name+":")+" "+h.Value)
		}
	}

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	switch {
	case m.err != nil:
		sections = append(sections, theme.ErrorStyle.Render(m.err.Error()))
	case strings.TrimSpace(c.Body) == "":
		sections = append(sections, theme.HelpStyle.Render("No text content"))
	default:
		sections = append(sections, lipgloss.NewStyle().Width(max(m.width-2, 1)).Render(c.Body))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetLoading clears the current message and shows the loading state.
func (m *Model) SetLoading() {
	m.loading = true
	m.content = nil
	m.err = nil
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	if m.content != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
