package chat

import (
	"context"
	"sync"

	"github.com/matheus3301/blackzap/internal/backend"
	"go.uber.org/zap"
)

// Plan is what the controller does in response to one realtime change.
type Plan struct {
	RefreshChats  bool
	RefreshStatus bool
	// Notify asks for a notification about Message.
	Notify bool
	// MarkRead asks to mark Message's sender as read.
	MarkRead bool
	Message  backend.Message
}

// Route maps a realtime change to a plan for the signed-in userID with
// focusedID being the open conversation ("" if none).
func Route(c backend.Change, userID, focusedID string) Plan {
	switch c.Table {
	case backend.TableStatus:
		return Plan{RefreshStatus: true}

	case backend.TableMessages:
		if c.Type != backend.Insert {
			return Plan{RefreshChats: c.Type == backend.Update}
		}
		m, err := c.Message()
		if err != nil || m.ContactID != userID {
			return Plan{RefreshChats: true}
		}
		return Plan{
			RefreshChats: true,
			Notify:       true,
			MarkRead:     focusedID != "" && m.SenderID == focusedID,
			Message:      m,
		}
	}
	return Plan{}
}

// Router owns the realtime subscription of the signed-in identity and
// forwards every change to a sink. Binding a new identity replaces the
// previous subscription; changes still in flight from a replaced
// subscription are discarded.
type Router struct {
	client backend.Client
	sink   func(backend.Change)
	logger *zap.Logger

	mu     sync.Mutex
	userID string
	cancel func()
	gen    uint64
}

// NewRouter creates a router delivering changes to sink. sink must not block
// for long: it runs on the subscription's forwarding goroutine.
func NewRouter(client backend.Client, sink func(backend.Change), logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{client: client, sink: sink, logger: logger}
}

// Bind subscribes to messages and status for userID. Binding the identity
// already bound is a no-op.
func (r *Router) Bind(ctx context.Context, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil && r.userID == userID {
		return
	}
	r.closeLocked()

	feed, cancel := r.client.Subscribe(ctx, backend.TableMessages, backend.TableStatus)
	r.gen++
	gen := r.gen
	r.userID, r.cancel = userID, cancel

	r.logger.Info("realtime subscription bound", zap.String("user_id", userID))
	go func() {
		for c := range feed {
			if !r.current(gen) {
				continue
			}
			r.sink(c)
		}
		r.ended(gen)
	}()
}

// ended drops the binding of gen once its feed has closed, so the next Bind
// for the same identity subscribes again.
func (r *Router) ended(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil || r.gen != gen {
		return
	}
	r.logger.Warn("realtime feed ended", zap.String("user_id", r.userID))
	r.cancel()
	r.userID, r.cancel = "", nil
}

func (r *Router) current(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil && r.gen == gen
}

// Bound returns the identity currently subscribed, or "".
func (r *Router) Bound() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return ""
	}
	return r.userID
}

// Close tears the subscription down.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Router) closeLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.logger.Info("realtime subscription closed", zap.String("user_id", r.userID))
	r.userID, r.cancel = "", nil
}
