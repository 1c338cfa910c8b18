package notify

import (
	"context"

	"go.uber.org/zap"
)

// Logger presents notifications as log lines. bzctl uses it when watching.
type Logger struct {
	perm   *permission
	logger *zap.Logger
}

// NewLogger creates a log presenter. store may be nil.
func NewLogger(store PermissionStore, enabled bool, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{perm: newPermission(store, enabled), logger: logger}
}

func (l *Logger) Permission() Permission { return l.perm.get() }

func (l *Logger) RequestPermission(_ context.Context) Permission {
	p, err := l.perm.request()
	if err != nil {
		l.logger.Warn("failed to persist notification permission", zap.Error(err))
	}
	return p
}

func (l *Logger) Show(n Notification) {
	l.logger.Info("notification",
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.String("tag", n.Tag),
	)
}
