package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// maxCrumbs is the longest trail shown in full. Deeper stacks keep the root
// and the last two pages around an ellipsis.
const maxCrumbs = 4

// Crumbs is a breadcrumb bar showing the page stack.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update renders the trail; the last entry is the active page.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	trail := elide(stack)
	parts := make([]string, len(trail))
	for i, name := range trail {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		switch {
		case i == len(trail)-1:
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		case name == "…":
			fg, bg = c.theme.MutedColor, c.theme.BgColor
		}
		parts[i] = fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", colorName(fg), colorName(bg), attr, tview.Escape(name))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}

func elide(stack []string) []string {
	if len(stack) <= maxCrumbs {
		return stack
	}
	out := []string{stack[0], "…"}
	return append(out, stack[len(stack)-2:]...)
}
