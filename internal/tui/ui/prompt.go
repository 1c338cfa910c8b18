package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode selects what a submitted prompt line means.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

const historySize = 50

// Prompt is the ':' command and '/' filter input bar. Submitted commands are
// kept in a history recalled with Up and Down.
type Prompt struct {
	*tview.InputField
	theme    *Theme
	mode     PromptMode
	history  history
	onSubmit func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates a new prompt input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{InputField: input, theme: theme}

	input.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if p.mode != PromptCommand {
			return event
		}
		switch event.Key() {
		case tcell.KeyUp:
			p.SetText(p.history.back())
			return nil
		case tcell.KeyDown:
			p.SetText(p.history.forward())
			return nil
		}
		return event
	})

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			text := p.GetText()
			p.SetText("")
			if p.mode == PromptCommand {
				p.history.add(text)
			}
			if p.onSubmit != nil {
				p.onSubmit(p.mode, text)
			}
		case tcell.KeyEscape:
			p.SetText("")
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})

	return p
}

// SetOnSubmit sets the callback run on Enter. An empty filter submission
// clears the filter, so empty text is passed through.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback run on Escape.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// Activate prepares the prompt for mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.history.rewind()
	p.SetText("")
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter ")
	}
}

// history holds submitted commands, oldest first. pos == len(entries) is the
// empty line below the newest entry.
type history struct {
	entries []string
	pos     int
}

func (h *history) add(line string) {
	if line == "" {
		return
	}
	if n := len(h.entries); n == 0 || h.entries[n-1] != line {
		h.entries = append(h.entries, line)
		if len(h.entries) > historySize {
			h.entries = h.entries[len(h.entries)-historySize:]
		}
	}
	h.rewind()
}

func (h *history) rewind() { h.pos = len(h.entries) }

func (h *history) back() string {
	if h.pos > 0 {
		h.pos--
	}
	return h.at()
}

func (h *history) forward() string {
	if h.pos < len(h.entries) {
		h.pos++
	}
	return h.at()
}

func (h *history) at() string {
	if h.pos >= len(h.entries) {
		return ""
	}
	return h.entries[h.pos]
}
