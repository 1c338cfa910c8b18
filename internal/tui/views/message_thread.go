package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/matheus3301/blackzap/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread shows one conversation and its composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	contact  chat.Contact
	onSend   func(text string)
	now      func() time.Time
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("Mensagem (/img, /audio ou /file <url> para anexos)")
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
		now:      time.Now,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := composer.GetText()
			if text != "" {
				mt.onSend(text)
				composer.SetText("")
			}
		}
	})

	return mt
}

func (mt *MessageThread) Name() string {
	if mt.contact.Name != "" {
		return mt.contact.Name
	}
	return "Conversa"
}

func (mt *MessageThread) FocusTarget() tview.Primitive { return mt.composer }

func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "d", Description: "Details"},
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
	}
}

// SetContact switches the thread to c and clears the old messages.
func (mt *MessageThread) SetContact(c chat.Contact) {
	if c.ID != mt.contact.ID {
		mt.messages.Clear()
	}
	mt.contact = c
	title := " " + display(c.Name) + " "
	if c.Username != "" {
		title = fmt.Sprintf(" %s [%s]@%s[-] ", display(c.Name), ui.Tag(mt.theme.MutedColor), display(c.Username))
	}
	mt.messages.SetTitle(title)
}

// Contact returns the conversation shown.
func (mt *MessageThread) Contact() chat.Contact { return mt.contact }

// SetOnSend sets the callback run with the composer text on Enter.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update renders msgs, oldest first, from selfID's point of view.
func (mt *MessageThread) Update(msgs []backend.Message, selfID string) {
	mt.messages.Clear()
	now := mt.now()
	for _, m := range msgs {
		_, _ = fmt.Fprint(mt.messages, mt.line(m, selfID, now))
	}
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) line(m backend.Message, selfID string, now time.Time) string {
	sender, color := display(mt.contact.Name), mt.theme.IncomingColor
	ticks := ""
	if m.SenderID == selfID {
		sender, color = "Você", mt.theme.OutgoingColor
		ticks = " ✓"
		if m.Status == backend.StatusRead {
			ticks = fmt.Sprintf(" [%s]✓✓[-]", ui.Tag(mt.theme.VerifiedColor))
		} else if m.Status == backend.StatusDelivered {
			ticks = " ✓✓"
		}
	}

	body := display(m.Text)
	if chat.Classify(m.Text) != chat.KindText {
		body = fmt.Sprintf("[::b]%s[-:-:-] [::u]%s[-:-:-]", chat.Preview(m.Text), display(chat.Payload(m.Text)))
	}

	return fmt.Sprintf("[%s::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
		ui.Tag(color), sender, formatTime(m.CreatedAt, now), ticks, body)
}

// Messages returns the message pane for focus management.
func (mt *MessageThread) Messages() *tview.TextView { return mt.messages }

// Composer returns the composer for focus management.
func (mt *MessageThread) Composer() *tview.InputField { return mt.composer }
