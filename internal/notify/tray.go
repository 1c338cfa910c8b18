package notify

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/blackzap/internal/bus"
	"go.uber.org/zap"
)

// Tray keeps the visible notifications in memory, newest first, and
// publishes each one on the bus for views to render.
type Tray struct {
	perm   *permission
	bus    *bus.Bus
	logger *zap.Logger

	mu     sync.RWMutex
	items  []Notification
	onShow func(Notification)
}

// NewTray creates a tray. store and b may be nil.
func NewTray(store PermissionStore, enabled bool, b *bus.Bus, logger *zap.Logger) *Tray {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tray{perm: newPermission(store, enabled), bus: b, logger: logger}
}

func (t *Tray) Permission() Permission { return t.perm.get() }

func (t *Tray) RequestPermission(_ context.Context) Permission {
	p, err := t.perm.request()
	if err != nil {
		t.logger.Warn("failed to persist notification permission", zap.Error(err))
	}
	return p
}

// OnShow registers a callback run after each Show.
func (t *Tray) OnShow(fn func(Notification)) {
	t.mu.Lock()
	t.onShow = fn
	t.mu.Unlock()
}

// Show adds n, replacing any notification with the same tag.
func (t *Tray) Show(n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	t.mu.Lock()
	if n.Tag != "" {
		t.items = slices.DeleteFunc(t.items, func(o Notification) bool { return o.Tag == n.Tag })
	}
	t.items = slices.Insert(t.items, 0, n)
	fn := t.onShow
	t.mu.Unlock()

	if t.bus != nil {
		t.bus.Publish(bus.Event{Kind: bus.KindNotification, Timestamp: n.Time, Payload: n})
	}
	if fn != nil {
		fn(n)
	}
}

// Latest returns the newest notification.
func (t *Tray) Latest() (Notification, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.items) == 0 {
		return Notification{}, false
	}
	return t.items[0], true
}

// List returns a copy of the notifications, newest first.
func (t *Tray) List() []Notification {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.items)
}

// Dismiss removes the notification with tag.
func (t *Tray) Dismiss(tag string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = slices.DeleteFunc(t.items, func(o Notification) bool { return o.Tag == tag })
}

// Clear removes every notification.
func (t *Tray) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = nil
}
