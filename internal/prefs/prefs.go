// Package prefs persists small per-instance client state between runs: the
// focused conversation, the access token and the notification permission
// decision.
package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

type data struct {
	ActiveChatID           string `toml:"active_chat_id,omitempty"`
	AccessToken            string `toml:"access_token,omitempty"`
	NotificationPermission string `toml:"notification_permission,omitempty"`
}

// Store is a TOML-backed preferences file. Every setter writes through.
type Store struct {
	path string

	mu   sync.RWMutex
	data data
}

// Open loads the preferences at path. A missing file yields empty prefs.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	if _, err := toml.Decode(string(raw), &s.data); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", path, err)
	}
	return s, nil
}

// ActiveChat returns the persisted focused conversation id.
func (s *Store) ActiveChat() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ActiveChatID
}

// SetActiveChat persists the focused conversation. "" removes the key.
func (s *Store) SetActiveChat(id string) error {
	return s.update(func(d *data) { d.ActiveChatID = id })
}

// AccessToken returns the persisted access token.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.AccessToken
}

// SetAccessToken persists the access token. "" removes the key.
func (s *Store) SetAccessToken(token string) error {
	return s.update(func(d *data) { d.AccessToken = token })
}

// NotificationPermission returns the persisted decision, "" if never asked.
func (s *Store) NotificationPermission() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.NotificationPermission
}

// SetNotificationPermission persists the permission decision.
func (s *Store) SetNotificationPermission(p string) error {
	return s.update(func(d *data) { d.NotificationPermission = p })
}

func (s *Store) update(fn func(*data)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data
	fn(&next)
	if next == s.data {
		return nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(next); err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	s.data = next
	return nil
}
