package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/matheus3301/blackzap/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the recent chats table.
type ConversationList struct {
	*tview.Table
	theme    *ui.Theme
	contacts []chat.Contact
	visible  []chat.Contact
	filter   string
	loading  bool
	now      func() time.Time
}

// NewConversationList creates an empty conversation list.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{Table: table, theme: theme, now: time.Now}
	cl.render()
	return cl
}

func (cl *ConversationList) Name() string { return "Conversas" }

func (cl *ConversationList) FocusTarget() tview.Primitive { return cl }

func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "1-9", Description: "Jump"},
		{Key: "/", Description: "Filter"},
		{Key: "n", Description: "New chat"},
		{Key: "t", Description: "Status"},
		{Key: "p", Description: "Profile"},
		{Key: "r", Description: "Refresh"},
		{Key: "o", Description: "Notification"},
		{Key: ":", Description: "Command"},
		{Key: "q", Description: "Quit"},
	}
}

// Update replaces the list. The selected row follows its contact.
func (cl *ConversationList) Update(contacts []chat.Contact, loading bool) {
	selected, hadSelection := cl.Selected()
	cl.contacts = contacts
	cl.loading = loading
	cl.render()
	if hadSelection {
		cl.Reselect(selected.ID)
	}
}

// SetFilter narrows the list by name or last message.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string { return cl.filter }

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" ", 0},
		{" TIME", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cl.visible = cl.visible[:0]
	for _, c := range cl.contacts {
		if cl.filter != "" && !containsFold(c.Name, cl.filter) && !containsFold(c.LastMessage, cl.filter) {
			continue
		}
		cl.visible = append(cl.visible, c)
	}

	now := cl.now()
	for i, c := range cl.visible {
		row := i + 1
		name := display(c.Name)
		if c.IsVerified {
			name += fmt.Sprintf(" [%s]✔[-]", ui.Tag(cl.theme.VerifiedColor))
		}
		fg := cl.theme.FgColor
		badge := ""
		if c.UnreadCount > 0 {
			fg = cl.theme.UnreadColor
			badge = fmt.Sprintf("(%d)", c.UnreadCount)
		}
		when := ""
		if c.LastMessageTime != nil {
			when = formatTime(*c.LastMessageTime, now)
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+name).SetExpansion(1).SetTextColor(fg))
		cl.SetCell(row, 1, tview.NewTableCell(" "+display(c.LastMessage)).SetExpansion(2).SetTextColor(cl.theme.MutedColor))
		cl.SetCell(row, 2, tview.NewTableCell(badge).SetTextColor(cl.theme.UnreadColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 3, tview.NewTableCell(when).SetTextColor(fg).SetAlign(tview.AlignRight))
	}

	title := fmt.Sprintf(" Conversas (%d) ", len(cl.contacts))
	switch {
	case cl.filter != "":
		title = fmt.Sprintf(" Conversas (%d/%d) filtro: %s ", len(cl.visible), len(cl.contacts), tview.Escape(cl.filter))
	case cl.loading && len(cl.contacts) == 0:
		title = " Conversas (carregando...) "
	}
	cl.SetTitle(title)
}

// Selected returns the contact under the cursor.
func (cl *ConversationList) Selected() (chat.Contact, bool) {
	row, _ := cl.GetSelection()
	return cl.ByIndex(row)
}

// ByIndex returns the nth visible contact, 1-based.
func (cl *ConversationList) ByIndex(n int) (chat.Contact, bool) {
	if n < 1 || n > len(cl.visible) {
		return chat.Contact{}, false
	}
	return cl.visible[n-1], true
}

// Reselect moves the cursor to id if it is visible.
func (cl *ConversationList) Reselect(id string) {
	for i, c := range cl.visible {
		if c.ID == id {
			cl.Select(i+1, 0)
			return
		}
	}
}
