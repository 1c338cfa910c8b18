package chat

import (
	"context"

	"github.com/matheus3301/blackzap/internal/backend"
	"go.uber.org/zap"
)

// Reconciler keeps read state consistent. Marking read is two steps: an
// optimistic local zeroing that is never rolled back, then the backend
// update, whose failure is only logged.
type Reconciler struct {
	client backend.Client
	logger *zap.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(client backend.Client, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{client: client, logger: logger}
}

// Optimistic returns contacts with contactID's unread counter zeroed. The
// input slice is not modified.
func (r *Reconciler) Optimistic(contacts []Contact, contactID string) []Contact {
	out := make([]Contact, len(contacts))
	copy(out, contacts)
	for i := range out {
		if out[i].ID == contactID {
			out[i].UnreadCount = 0
		}
	}
	return out
}

// Persist marks every unread message from contactID to userID as read.
// Nothing to mark is not an error.
func (r *Reconciler) Persist(ctx context.Context, contactID, userID string) error {
	n, err := r.client.MarkRead(ctx, contactID, userID)
	if err != nil {
		r.logger.Error("failed to mark messages as read",
			zap.String("contact_id", contactID),
			zap.Error(err),
		)
		return err
	}
	if n > 0 {
		r.logger.Debug("messages marked read", zap.String("contact_id", contactID), zap.Int("count", n))
	}
	return nil
}
