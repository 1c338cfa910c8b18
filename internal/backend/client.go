package backend

import (
	"context"
	"time"
)

// Client is the backend contract consumed by the chat core. It is
// implemented in process by Local and over gRPC by client.Remote.
type Client interface {
	// Session returns the current session, or nil when signed out.
	Session(ctx context.Context) (*Session, error)
	SignUp(ctx context.Context, email, password, fullName string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// Refresh exchanges the current token for a new one.
	Refresh(ctx context.Context) (*Session, error)
	// WatchAuth delivers auth state changes until cancel is called.
	WatchAuth() (<-chan AuthEvent, func())

	// ListMessages returns every message userID sent or received, newest
	// first.
	ListMessages(ctx context.Context, userID string, q MessageQuery) ([]Message, error)
	// Thread returns up to limit messages between userID and contactID,
	// oldest first.
	Thread(ctx context.Context, userID, contactID string, limit int) ([]Message, error)
	Profile(ctx context.Context, id string) (*Profile, error)
	Profiles(ctx context.Context, ids []string) ([]Profile, error)
	SearchProfiles(ctx context.Context, term, excludeID string, limit int) ([]Profile, error)
	// ListStatus returns status posts created strictly after since, newest
	// first.
	ListStatus(ctx context.Context, since time.Time) ([]Status, error)

	SendMessage(ctx context.Context, contactID, text string) (*Message, error)
	// MarkRead sets every unread message from contactID to userID to read
	// and returns how many rows changed.
	MarkRead(ctx context.Context, contactID, userID string) (int, error)
	UpdateProfile(ctx context.Context, u ProfileUpdate) error
	PostStatus(ctx context.Context, s NewStatus) (*Status, error)

	// Subscribe delivers row changes on the given tables visible to the
	// signed-in user. The channel is closed when cancel is called or ctx
	// ends.
	Subscribe(ctx context.Context, tables ...string) (<-chan Change, func())
}

// TokenStore persists the access token between runs.
type TokenStore interface {
	AccessToken() string
	SetAccessToken(token string) error
}
