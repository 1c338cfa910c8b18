package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func runeEvent(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestHandleEventPrefersView(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'n', Handler: func() { got = append(got, "global") }})
	r.AddView("chats", &Action{Key: tcell.KeyRune, Rune: 'n', Handler: func() { got = append(got, "chats") }})

	if !r.HandleEvent("chats", runeEvent('n')) {
		t.Fatal("expected a handler for 'n' on chats")
	}
	if !r.HandleEvent("thread", runeEvent('n')) {
		t.Fatal("expected the global handler on thread")
	}
	if r.HandleEvent("chats", runeEvent('x')) {
		t.Error("unbound rune handled")
	}
	if len(got) != 2 || got[0] != "chats" || got[1] != "global" {
		t.Errorf("handlers ran %v", got)
	}
}

func TestHandleEventSpecialKey(t *testing.T) {
	r := NewRegistry()
	ran := false
	r.AddGlobal(&Action{Key: tcell.KeyCtrlR, Handler: func() { ran = true }})

	if r.HandleEvent("any", runeEvent('r')) {
		t.Error("plain 'r' matched Ctrl-R")
	}
	if !r.HandleEvent("any", tcell.NewEventKey(tcell.KeyCtrlR, 0, tcell.ModCtrl)) || !ran {
		t.Error("Ctrl-R not handled")
	}
}

func TestHints(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true})
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'x', Description: "Hidden"})
	r.AddView("chats", &Action{Key: tcell.KeyRune, Rune: 'n', Description: "New", Visible: true})
	r.AddView("chats", &Action{Key: tcell.KeyEnter, Label: "Enter", Description: "Open", Visible: true})

	hints := r.Hints("chats")
	want := []string{"n:New", "Enter:Open", "?:Help"}
	if len(hints) != len(want) {
		t.Fatalf("got %d hints, want %d: %+v", len(hints), len(want), hints)
	}
	for i, h := range hints {
		if got := h.Key + ":" + h.Description; got != want[i] {
			t.Errorf("hint %d = %q, want %q", i, got, want[i])
		}
	}

	if got := r.Hints("thread"); len(got) != 1 || got[0].Description != "Help" {
		t.Errorf("thread hints = %+v", got)
	}
}
