package backend

import (
	"context"
	"strings"
	"sync"

	"github.com/matheus3301/blackzap/internal/bus"
)

const feedBuffer = 64

// realtimeKind returns the bus kind for a change, e.g.
// "realtime.messages.insert".
func realtimeKind(table string, t ChangeType) string {
	return "realtime." + table + "." + strings.ToLower(string(t))
}

// relay forwards bus events through convert until cancel is called or ctx
// ends, then closes the returned channel. Events for which convert reports
// false are skipped.
func relay[T any](ctx context.Context, b *bus.Bus, convert func(bus.Event) (T, bool), namespaces ...string) (<-chan T, func()) {
	events, unsub := b.Subscribe(feedBuffer, namespaces...)
	out := make(chan T, feedBuffer)
	done := make(chan struct{})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsub()
			close(done)
		})
	}

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				cancel()
				return
			case evt := <-events:
				v, ok := convert(evt)
				if !ok {
					continue
				}
				select {
				case out <- v:
				case <-done:
					return
				case <-ctx.Done():
					cancel()
					return
				}
			}
		}
	}()

	return out, cancel
}

// closedFeed returns an already closed channel and a no-op cancel.
func closedFeed[T any]() (<-chan T, func()) {
	ch := make(chan T)
	close(ch)
	return ch, func() {}
}

// AuthFeed fans auth state changes out to watchers over the bus.
type AuthFeed struct {
	bus *bus.Bus
}

// NewAuthFeed creates a feed publishing on b.
func NewAuthFeed(b *bus.Bus) *AuthFeed {
	return &AuthFeed{bus: b}
}

// Emit publishes an auth event to every watcher.
func (f *AuthFeed) Emit(evt AuthEvent) {
	kind := bus.KindAuthSignedIn
	switch evt.Type {
	case SignedOut:
		kind = bus.KindAuthSignedOut
	case TokenRefreshed:
		kind = bus.KindAuthRefreshed
	}
	f.bus.Publish(bus.Event{Kind: kind, Payload: evt})
}

// Watch delivers auth events until cancel is called.
func (f *AuthFeed) Watch() (<-chan AuthEvent, func()) {
	return relay(context.Background(), f.bus, func(evt bus.Event) (AuthEvent, bool) {
		ae, ok := evt.Payload.(AuthEvent)
		return ae, ok
	}, "auth.")
}
