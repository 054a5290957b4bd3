package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/ebookctl/internal/domain"
)

// Color palette
var (
	Amber      = lipgloss.Color("#E5A00D")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
	Blue       = lipgloss.Color("#3B82F6")
)

// Borders
var (
	ActiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Amber)

	InactiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray)
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Amber)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(Amber).
			Padding(0, 1)
)

// Batch checkbox characters
const (
	CheckedChar   = "[x]"
	UncheckedChar = "[ ]"
)

// SpinnerFrames animate in-flight work
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// List item styles
var (
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateLight)

	NormalItemStyle = lipgloss.NewStyle().
			Foreground(LightGray)
)

// Panel styles
var (
	ListPanelStyle = lipgloss.NewStyle().
			Padding(0, 1)

	DetailPanelStyle = lipgloss.NewStyle().
				Padding(0, 2)
)

// Form styles
var (
	FieldLabelStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Width(14)

	FocusedFieldStyle = lipgloss.NewStyle().
				Foreground(Amber).
				Bold(true)
)

// Modal styles
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Amber).
			Padding(1, 2).
			Background(SlateDark)

	ModalTitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true).
			MarginBottom(1)
)

// Help styles
var (
	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(Amber)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

// Filter styles
var (
	FilterStyle = lipgloss.NewStyle().
			Foreground(Amber)

	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(Amber).
				Bold(true)
)

// statusStyles colors each server status
var statusStyles = map[domain.BookStatus]lipgloss.Style{
	domain.StatusPending:   DimStyle,
	domain.StatusRunning:   lipgloss.NewStyle().Foreground(Blue),
	domain.StatusDone:      SuccessStyle,
	domain.StatusFailed:    ErrorStyle,
	domain.StatusCancelled: lipgloss.NewStyle().Foreground(LightGray).Italic(true),
	domain.StatusQueued:    AccentStyle,
}

// Helper functions

// RenderStatus renders a book status as an upper-case badge
func RenderStatus(s domain.BookStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		style = DimStyle
	}
	return style.Render(strings.ToUpper(string(s)))
}

// Checkbox renders the batch selection marker
func Checkbox(checked bool) string {
	if checked {
		return AccentStyle.Render(CheckedChar)
	}
	return DimStyle.Render(UncheckedChar)
}

// Truncate truncates a string to the given width with ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// Pad pads a string to the given width
func Pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
