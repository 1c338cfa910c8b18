package views

import (
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/matheus3301/blackzap/internal/tui/ui"
	"github.com/rivo/tview"
)

func TestFormatTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, ""},
		{time.Date(2026, 3, 10, 9, 5, 0, 0, time.Local), "09:05"},
		{time.Date(2026, 3, 9, 23, 59, 0, 0, time.Local), "ontem"},
		{time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local), "01/03/26"},
		{time.Date(2025, 3, 9, 8, 0, 0, 0, time.Local), "09/03/25"},
	}
	for _, tt := range tests {
		if got := formatTime(tt.at, now); got != tt.want {
			t.Errorf("formatTime(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestDisplay(t *testing.T) {
	if got := display("👍🏽 [red]oi"); got != "👍 [red[]oi" {
		t.Errorf("display() = %q", got)
	}
}

func TestConversationListFilter(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	cl.Update([]chat.Contact{
		{ID: "1", Name: "Ana", LastMessage: "bom dia"},
		{ID: "2", Name: "Bruno", LastMessage: "📷 Imagem", UnreadCount: 2},
		{ID: "3", Name: "Carla", LastMessage: "até amanhã"},
	}, false)

	if c, ok := cl.ByIndex(2); !ok || c.ID != "2" {
		t.Fatalf("ByIndex(2) = %+v, %v", c, ok)
	}
	if _, ok := cl.ByIndex(4); ok {
		t.Error("ByIndex past the end returned a contact")
	}

	cl.SetFilter("DIA")
	if c, ok := cl.ByIndex(1); !ok || c.ID != "1" {
		t.Errorf("filtered ByIndex(1) = %+v, %v", c, ok)
	}
	if _, ok := cl.ByIndex(2); ok {
		t.Error("filter kept a non-matching contact")
	}

	cl.SetFilter("")
	if cl.GetRowCount() != 4 {
		t.Errorf("rows = %d, want header + 3", cl.GetRowCount())
	}
}

func TestProfileViewSavesOnlyChanges(t *testing.T) {
	pv := NewProfileView(ui.DefaultTheme())
	pv.Update(&chat.UserProfile{Name: "Ana", Username: "ana", About: "Disponível"}, "ana@example.com")

	if u := pv.update(); !u.Empty() {
		t.Fatalf("unchanged form produced %+v", u)
	}

	pv.form.GetFormItemByLabel("Recado").(*tview.InputField).SetText("  Ocupada ")
	want := backend.ProfileUpdate{About: "Ocupada"}
	if got := pv.update(); got != want {
		t.Errorf("update() = %+v, want %+v", got, want)
	}
}

func TestRenderQR(t *testing.T) {
	qr := renderQR(chat.InviteURL("ana"))
	if !strings.ContainsAny(qr, "█▀▄") {
		t.Errorf("QR has no blocks:\n%s", qr)
	}
}
