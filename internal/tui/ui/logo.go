package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo displays the app's name block in the header. Its last line doubles as
// an unread badge.
type Logo struct {
	*tview.TextView
	theme  *Theme
	unread int
}

// NewLogo creates a new logo component.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	l := &Logo{TextView: tv, theme: theme}
	l.render()
	return l
}

// SetUnread shows n as the badge; zero shows the tagline.
func (l *Logo) SetUnread(n int) {
	if n == l.unread {
		return
	}
	l.unread = n
	l.render()
}

func (l *Logo) render() {
	l.Clear()
	title := colorName(l.theme.TitleColor)
	badge := fmt.Sprintf("[%s]        zap[-:-:-]", colorName(l.theme.MutedColor))
	switch {
	case l.unread > 99:
		badge = fmt.Sprintf("[%s::b]  ● 99+ novas[-:-:-]", colorName(l.theme.UnreadColor))
	case l.unread > 0:
		badge = fmt.Sprintf("[%s::b]%6s novas[-:-:-]", colorName(l.theme.UnreadColor), fmt.Sprintf("● %d", l.unread))
	}
	_, _ = fmt.Fprintf(l,
		"[%s::b] ┳┓┓ ┏┓┏┓┓┏┓[-:-:-]\n"+
			"[%s::b] ┣┫┃ ┣┫┃ ┃┫ [-:-:-]\n"+
			"[%s::b] ┻┛┗┛┛┗┗┛┛┗┛[-:-:-]\n%s",
		title, title, title, badge,
	)
}
