// Package notify presents new-message notifications.
package notify

import (
	"context"
	"sync"
	"time"
)

// Permission is the user's decision about notifications.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Notification is one presented alert. Notifications with equal Tag replace
// each other instead of stacking.
type Notification struct {
	Title string
	Body  string
	Icon  string
	Tag   string
	Time  time.Time
}

// Presenter shows notifications.
type Presenter interface {
	Permission() Permission
	// RequestPermission asks once; a persisted decision is returned as is.
	RequestPermission(ctx context.Context) Permission
	Show(n Notification)
}

// PermissionStore persists the permission decision.
type PermissionStore interface {
	NotificationPermission() string
	SetNotificationPermission(p string) error
}

// permission holds the decision shared by the presenters. When no decision
// is stored, a request resolves to granted if enabled, denied otherwise.
type permission struct {
	mu      sync.Mutex
	store   PermissionStore
	enabled bool
	current Permission
}

func newPermission(store PermissionStore, enabled bool) *permission {
	p := &permission{store: store, enabled: enabled, current: PermissionDefault}
	if store != nil {
		if saved := Permission(store.NotificationPermission()); saved != "" {
			p.current = saved
		}
	}
	return p
}

func (p *permission) get() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *permission) request() (Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != PermissionDefault {
		return p.current, nil
	}
	p.current = PermissionDenied
	if p.enabled {
		p.current = PermissionGranted
	}
	if p.store == nil {
		return p.current, nil
	}
	return p.current, p.store.SetNotificationPermission(string(p.current))
}
