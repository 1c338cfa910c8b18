package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// menuRows matches the header height; longer hint lists wrap into columns.
const menuRows = 5

// Menu displays the active view's key hints in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint bar.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update renders hints top-down, starting a new column every menuRows.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	key := colorName(m.theme.MenuKeyColor)

	cols := (len(hints) + menuRows - 1) / menuRows
	widths := make([]int, cols)
	for i, h := range hints {
		if w := tview.TaggedStringWidth(hintText(h)); w > widths[i/menuRows] {
			widths[i/menuRows] = w
		}
	}

	lines := make([]strings.Builder, min(len(hints), menuRows))
	for i, h := range hints {
		row, col := i%menuRows, i/menuRows
		text := hintText(h)
		_, _ = fmt.Fprintf(&lines[row], "[%s::b]<%s>[-:-:-] %s", key, tview.Escape(h.Key), tview.Escape(h.Description))
		if col < cols-1 {
			lines[row].WriteString(strings.Repeat(" ", widths[col]-tview.TaggedStringWidth(text)+2))
		}
	}
	for i := range lines {
		_, _ = fmt.Fprintln(m, lines[i].String())
	}
}

func hintText(h MenuHint) string {
	return "<" + h.Key + "> " + h.Description
}
