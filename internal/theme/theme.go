package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// StatusBarStyle is used for the browser's bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// UnreadStyle marks messages without \Seen in the browser list.
var UnreadStyle = lipgloss.NewStyle().
	Foreground(ColorGreen).
	Bold(true)

// PanelStyle wraps overlays such as the help view.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// HeaderStyle is used for the summary line above a result listing.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// SeqStyle renders message sequence numbers and run IDs.
var SeqStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(6).
	Align(lipgloss.Right)

var AddressStyle = lipgloss.NewStyle().
	Foreground(ColorBlue)

var SubjectStyle = lipgloss.NewStyle().
	Bold(true)

// BodyStyle wraps message bodies shown under a result.
var BodyStyle = lipgloss.NewStyle().
	PaddingLeft(2).
	MarginLeft(6).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBorder)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

// StrategyStyle returns a color-coded style for a query strategy name.
func StrategyStyle(strategy string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch strategy {
	case "search":
		return base.Foreground(ColorBlue)
	case "sorted-search":
		return base.Foreground(ColorMagenta)
	case "sort":
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGray)
	}
}

// FlagStyle returns the style for a message flag; system flags are
// colored, keywords are not.
func FlagStyle(flag string) lipgloss.Style {
	base := lipgloss.NewStyle()

	switch strings.ToLower(flag) {
	case `\flagged`:
		return base.Foreground(ColorRed)
	case `\seen`:
		return base.Foreground(ColorGray)
	case `\answered`:
		return base.Foreground(ColorGreen)
	case `\deleted`:
		return base.Foreground(ColorRed).Strikethrough(true)
	default:
		return base.Foreground(ColorYellow)
	}
}
