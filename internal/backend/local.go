package backend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/blackzap/internal/bus"
	"go.uber.org/zap"
)

// Local is an in-process Client over a Service. It keeps the current
// session in memory and, when given a TokenStore, restores and persists the
// access token across runs.
type Local struct {
	svc    *Service
	feed   *AuthFeed
	tokens TokenStore
	logger *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewLocal creates a Local client. tokens may be nil.
func NewLocal(svc *Service, tokens TokenStore, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Local{
		svc:    svc,
		feed:   NewAuthFeed(bus.New()),
		tokens: tokens,
		logger: logger,
	}
	if tokens != nil {
		l.token = tokens.AccessToken()
	}
	return l
}

func (l *Local) currentToken() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.token
}

func (l *Local) setToken(token string) {
	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	if l.tokens != nil {
		if err := l.tokens.SetAccessToken(token); err != nil {
			l.logger.Warn("failed to persist access token", zap.Error(err))
		}
	}
}

// caller resolves the current session or returns ErrNoSession.
func (l *Local) caller(ctx context.Context) (*Session, error) {
	sess, err := l.Session(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	return sess, nil
}

func (l *Local) Session(ctx context.Context) (*Session, error) {
	token := l.currentToken()
	if token == "" {
		return nil, nil
	}
	sess, err := l.svc.Authenticate(ctx, token)
	if errors.Is(err, ErrUnauthenticated) {
		l.setToken("")
		return nil, nil
	}
	return sess, err
}

func (l *Local) SignUp(ctx context.Context, email, password, fullName string) (*Session, error) {
	sess, err := l.svc.SignUp(ctx, email, password, fullName)
	if err != nil {
		return nil, err
	}
	l.setToken(sess.Token)
	l.feed.Emit(AuthEvent{Type: SignedIn, Session: sess})
	return sess, nil
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*Session, error) {
	sess, err := l.svc.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	l.setToken(sess.Token)
	l.feed.Emit(AuthEvent{Type: SignedIn, Session: sess})
	return sess, nil
}

func (l *Local) SignOut(ctx context.Context) error {
	token := l.currentToken()
	if token == "" {
		return nil
	}
	err := l.svc.SignOut(ctx, token)
	l.setToken("")
	l.feed.Emit(AuthEvent{Type: SignedOut})
	return err
}

func (l *Local) Refresh(ctx context.Context) (*Session, error) {
	token := l.currentToken()
	if token == "" {
		return nil, ErrNoSession
	}
	sess, err := l.svc.Refresh(ctx, token)
	if err != nil {
		return nil, err
	}
	l.setToken(sess.Token)
	l.feed.Emit(AuthEvent{Type: TokenRefreshed, Session: sess})
	return sess, nil
}

func (l *Local) WatchAuth() (<-chan AuthEvent, func()) {
	return l.feed.Watch()
}

func (l *Local) ListMessages(ctx context.Context, userID string, q MessageQuery) ([]Message, error) {
	sess, err := l.caller(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.ListMessages(ctx, sess.UserID, userID, q)
}

func (l *Local) Thread(ctx context.Context, userID, contactID string, limit int) ([]Message, error) {
	sess, err := l.caller(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.Thread(ctx, sess.UserID, userID, contactID, limit)
}

func (l *Local) Profile(ctx context.Context, id string) (*Profile, error) {
	return l.svc.Profile(ctx, id)
}

func (l *Local) Profiles(ctx context.Context, ids []string) ([]Profile, error) {
	return l.svc.Profiles(ctx, ids)
}

func (l *Local) SearchProfiles(ctx context.Context, term, excludeID string, limit int) ([]Profile, error) {
	return l.svc.SearchProfiles(ctx, term, excludeID, limit)
}

func (l *Local) ListStatus(ctx context.Context, since time.Time) ([]Status, error) {
	return l.svc.ListStatus(ctx, since)
}

func (l *Local) SendMessage(ctx context.Context, contactID, text string) (*Message, error) {
	sess, err := l.caller(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.SendMessage(ctx, sess.UserID, contactID, text)
}

func (l *Local) MarkRead(ctx context.Context, contactID, userID string) (int, error) {
	sess, err := l.caller(ctx)
	if err != nil {
		return 0, err
	}
	return l.svc.MarkRead(ctx, sess.UserID, contactID, userID)
}

func (l *Local) UpdateProfile(ctx context.Context, u ProfileUpdate) error {
	sess, err := l.caller(ctx)
	if err != nil {
		return err
	}
	return l.svc.UpdateProfile(ctx, sess.UserID, u)
}

func (l *Local) PostStatus(ctx context.Context, s NewStatus) (*Status, error) {
	sess, err := l.caller(ctx)
	if err != nil {
		return nil, err
	}
	return l.svc.PostStatus(ctx, sess.UserID, s)
}

// Subscribe returns a closed channel when nobody is signed in.
func (l *Local) Subscribe(ctx context.Context, tables ...string) (<-chan Change, func()) {
	sess, err := l.caller(ctx)
	if err != nil {
		return closedFeed[Change]()
	}
	return l.svc.Watch(ctx, sess.UserID, tables...)
}

var _ Client = (*Local)(nil)
