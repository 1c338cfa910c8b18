package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// AccountData is what the header shows about the signed-in user.
type AccountData struct {
	Instance string
	Name     string
	Username string
	Email    string
	Phase    string
	Chats    int
	Unread   int
}

// AccountInfo renders AccountData in the header.
type AccountInfo struct {
	*tview.TextView
	theme *Theme
}

// NewAccountInfo creates a new account info panel.
func NewAccountInfo(theme *Theme) *AccountInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &AccountInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders d.
func (ai *AccountInfo) Update(d AccountData) {
	ai.Clear()

	fg := colorName(ai.theme.FgColor)
	val := colorName(ai.theme.CounterColor)
	unread := colorName(ai.theme.UnreadColor)

	dash := func(s string) string {
		if s == "" {
			return "-"
		}
		return tview.Escape(s)
	}
	handle := "-"
	if d.Username != "" {
		handle = "@" + tview.Escape(d.Username)
	}

	_, _ = fmt.Fprintf(ai,
		"[%s::b]Instance:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]     [%s]%s[-]\n"+
			"[%s::b]Handle:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Email:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]State:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Chats:[-:-:-]    [%s]%d[-] [%s](%d unread)[-]",
		fg, val, dash(d.Instance),
		fg, val, dash(d.Name),
		fg, val, handle,
		fg, val, dash(d.Email),
		fg, val, dash(d.Phase),
		fg, val, d.Chats, unread, d.Unread,
	)
}
