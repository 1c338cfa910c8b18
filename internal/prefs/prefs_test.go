package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "prefs.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if s.ActiveChat() != "" || s.AccessToken() != "" || s.NotificationPermission() != "" {
		t.Error("expected empty prefs")
	}
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetActiveChat("user-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAccessToken("tok"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetNotificationPermission("granted"); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permission = %o, want 0600", perm)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.ActiveChat() != "user-1" || reloaded.AccessToken() != "tok" || reloaded.NotificationPermission() != "granted" {
		t.Errorf("reloaded = %q %q %q", reloaded.ActiveChat(), reloaded.AccessToken(), reloaded.NotificationPermission())
	}
}

func TestClearingActiveChatRemovesKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	s, _ := Open(path)
	if err := s.SetActiveChat("user-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetActiveChat(""); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "active_chat_id") {
		t.Errorf("key still present:\n%s", raw)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("active_chat_id = [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected parse error")
	}
}
