package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/matheus3301/blackzap/internal/tui/ui"
	"github.com/rivo/tview"
)

// ContactInfo shows details for the open conversation's contact.
type ContactInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewContactInfo creates a new contact info view.
func NewContactInfo(theme *ui.Theme) *ContactInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Dados do contato ")
	tv.SetTitleColor(theme.TitleColor)
	return &ContactInfo{TextView: tv, theme: theme}
}

func (ci *ContactInfo) Name() string { return "Detalhes" }

func (ci *ContactInfo) FocusTarget() tview.Primitive { return ci.TextView }

func (ci *ContactInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

// Update renders c.
func (ci *ContactInfo) Update(c chat.Contact) {
	var sb strings.Builder
	name := display(c.Name)
	if c.IsVerified {
		name += fmt.Sprintf(" [%s]✔[-]", ui.Tag(ci.theme.VerifiedColor))
	}
	fmt.Fprintf(&sb, "\n  [::b]%s[-:-:-]\n", name)
	if c.IsVerified && c.VerifiedSubtitle != "" {
		fmt.Fprintf(&sb, "  [%s]%s[-]\n", ui.Tag(ci.theme.MutedColor), display(c.VerifiedSubtitle))
	}
	if c.Username != "" {
		fmt.Fprintf(&sb, "  @%s\n", display(c.Username))
	}
	fmt.Fprintf(&sb, "\n  [::d]Recado:[-:-:-]  %s\n", display(c.About))
	fmt.Fprintf(&sb, "  [::d]Avatar:[-:-:-]  %s\n", display(c.Avatar))
	fmt.Fprintf(&sb, "  [::d]ID:[-:-:-]      %s\n", display(c.ID))
	if c.UnreadCount > 0 {
		fmt.Fprintf(&sb, "\n  [%s]%d não lidas[-]\n", ui.Tag(ci.theme.UnreadColor), c.UnreadCount)
	}
	ci.SetText(sb.String())
}
