package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/blackzap/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays the key binding and command reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{TextView: tv, theme: theme}
	hv.render()
	return hv
}

func (hv *HelpView) Name() string { return "Help" }

func (hv *HelpView) FocusTarget() tview.Primitive { return hv.TextView }

func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

type helpSection struct {
	title string
	rows  [][2]string
}

var helpSections = []helpSection{
	{"Global", [][2]string{
		{":", "Command mode"},
		{"/", "Filter conversations"},
		{"?", "Help"},
		{"Esc", "Cancel / go back"},
		{"Ctrl-C", "Quit"},
	}},
	{"Conversations", [][2]string{
		{"Enter", "Open conversation"},
		{"1-9", "Jump to Nth conversation"},
		{"0", "Clear filter"},
		{"n", "New conversation"},
		{"t", "Status"},
		{"p", "Profile"},
		{"r", "Refresh"},
		{"o", "Open latest notification"},
		{"q", "Quit"},
	}},
	{"Thread", [][2]string{
		{"i", "Focus composer"},
		{"d", "Contact details"},
		{"Enter", "Send (in composer)"},
	}},
	{"Commands", [][2]string{
		{":chat <name>", "Open conversation by name or @username"},
		{":search <term>", "Search people"},
		{":post <text>", "Post a text status"},
		{":status", "Status list"},
		{":profile", "Your profile and invite QR"},
		{":refresh", "Reload conversations and status"},
		{":notification / :notif", "Open latest notification"},
		{":signout", "Sign out"},
		{":help / :h", "Show this help"},
		{":quit / :q", "Quit"},
	}},
	{"Composer", [][2]string{
		{"/img <url>", "Send an image"},
		{"/audio <url>", "Send an audio"},
		{"/file <url>", "Send a file"},
	}},
}

func (hv *HelpView) render() {
	kc := ui.Tag(hv.theme.MenuKeyColor)
	var sb strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&sb, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&sb, "  [%s]%-16s[-] %s\n", kc, tview.Escape(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(hv, sb.String())
}
