package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/keys"
	helpview "github.com/nhle/mailq/internal/ui/help"
	"github.com/nhle/mailq/internal/ui/msglist"
	"github.com/nhle/mailq/internal/ui/msgview"
)

// ViewState is the active view of the browser.
type ViewState int

const (
	ViewList ViewState = iota
	ViewMessage
	ViewHelp
)

// Browser is the root Bubble Tea model for paging through query results.
// It must run while the folder the messages came from is open, since
// attributes that were not prefetched are loaded on demand.
type Browser struct {
	ctx          context.Context
	title        string
	status       string
	msgs         []*folder.Message
	keys         *keys.KeyMap
	layout       Layout
	list         msglist.Model
	message      msgview.Model
	help         helpview.Model
	currentView  ViewState
	previousView ViewState
	ready        bool
}

// NewBrowser creates a browser over msgs. title names the folder and
// status summarizes the query that produced them.
func NewBrowser(ctx context.Context, title, status string, msgs []*folder.Message, now func() time.Time) Browser {
	k := keys.DefaultKeyMap()
	return Browser{
		ctx:     ctx,
		title:   title,
		status:  status,
		msgs:    msgs,
		keys:    k,
		list:    msglist.New(k, title, now, 80, 22),
		message: msgview.New(k, 80, 22),
		help:    helpview.New(k, 80, 22),
	}
}

// Init loads the list rows.
func (b Browser) Init() tea.Cmd {
	return msglist.Load(b.ctx, b.msgs)
}

// Update handles messages and dispatches to the active view.
func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.layout = NewLayout(msg.Width, msg.Height)
		b.ready = true
		h := b.layout.ContentHeight()
		b.list.SetSize(msg.Width, h)
		b.message.SetSize(msg.Width, h)
		b.help.SetSize(msg.Width, h)
		return b, nil

	case msglist.SelectedMsg:
		if msg.Index < 0 || msg.Index >= len(b.msgs) {
			return b, nil
		}
		b.currentView = ViewMessage
		b.message.SetLoading()
		return b, msgview.Load(b.ctx, b.msgs[msg.Index])

	case msgview.BackMsg:
		b.currentView = ViewList
		return b, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, b.keys.Quit):
			return b, tea.Quit

		case key.Matches(msg, b.keys.Help):
			if b.currentView == ViewHelp {
				b.currentView = b.previousView
			} else {
				b.previousView = b.currentView
				b.currentView = ViewHelp
			}
			return b, nil

		case b.currentView == ViewHelp && key.Matches(msg, b.keys.Back):
			b.currentView = b.previousView
			return b, nil
		}
	}

	return b.updateActiveView(msg)
}

// updateActiveView forwards msg to the view that owns it. Load results
// always reach their view even while another one is shown.
func (b Browser) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.(type) {
	case msglist.LoadedMsg:
		b.list, cmd = b.list.Update(msg)
		return b, cmd
	case msgview.LoadedMsg:
		b.message, cmd = b.message.Update(msg)
		return b, cmd
	}

	switch b.currentView {
	case ViewList:
		b.list, cmd = b.list.Update(msg)
	case ViewMessage:
		b.message, cmd = b.message.Update(msg)
	}
	return b, cmd
}

// CurrentView reports the active view.
func (b Browser) CurrentView() ViewState {
	return b.currentView
}

// View renders the header, active view and status bar.
func (b Browser) View() string {
	if !b.ready {
		return "Loading..."
	}

	header := b.layout.RenderHeader(b.title, b.status)
	statusBar := b.layout.RenderStatusBar(b.help.ShortView())
	return b.layout.RenderWithFrame(header, b.renderContent(), statusBar)
}

func (b Browser) renderContent() string {
	switch b.currentView {
	case ViewMessage:
		return b.message.View()
	case ViewHelp:
		return b.help.View()
	default:
		return b.list.View()
	}
}

// Browse runs the browser on the terminal until the user quits or ctx is
// cancelled.
func Browse(
	ctx context.Context,
	title, status string,
	msgs []*folder.Message,
	opts ...tea.ProgramOption,
) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewBrowser(ctx, title, status, msgs, time.Now), opts...)
	_, err := p.Run()
	return err
}
