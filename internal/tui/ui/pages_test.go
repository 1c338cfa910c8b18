package ui

import (
	"slices"
	"testing"

	"github.com/rivo/tview"
)

type stubPage struct {
	*tview.Box
	name string
}

func (s stubPage) Name() string                 { return s.name }
func (s stubPage) Hints() []MenuHint            { return nil }
func (s stubPage) FocusTarget() tview.Primitive { return s.Box }

func newTestPages(ids ...string) *Pages {
	p := NewPages()
	for _, id := range ids {
		p.Register(id, stubPage{Box: tview.NewBox(), name: "N-" + id})
	}
	return p
}

func TestPagesStack(t *testing.T) {
	p := newTestPages("chats", "thread", "details", "help")
	changes := 0
	p.SetOnChange(func() { changes++ })

	p.Reset("chats")
	p.Push("thread")
	p.Push("details")
	if got := p.Names(); !slices.Equal(got, []string{"N-chats", "N-thread", "N-details"}) {
		t.Fatalf("Names() = %v", got)
	}

	p.Push("details")
	if changes != 3 {
		t.Errorf("pushing the current page fired onChange, changes = %d", changes)
	}

	p.Push("chats")
	if p.Current() != "chats" || len(p.Names()) != 1 {
		t.Errorf("pushing a deeper page should pop back to it, stack = %v", p.Names())
	}

	if got := p.Pop(); got != "chats" {
		t.Errorf("Pop() on the last page = %q, want chats", got)
	}

	p.Push("help")
	if got := p.Pop(); got != "chats" {
		t.Errorf("Pop() = %q, want chats", got)
	}
	if p.Top().Name() != "N-chats" {
		t.Errorf("Top() = %q", p.Top().Name())
	}
}

func TestPagesEmpty(t *testing.T) {
	p := NewPages()
	if p.Current() != "" || p.Pop() != "" || len(p.Names()) != 0 {
		t.Error("empty stack should report nothing")
	}
}
