package backend

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Collections exposed by the backend.
const (
	TableMessages = "messages"
	TableProfiles = "profiles"
	TableStatus   = "status"
)

// Message status values.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Status post types.
const (
	StatusTypeImage = "image"
	StatusTypeVideo = "video"
	StatusTypeText  = "text"
)

// Message is a row of the messages collection. ContactID is the recipient.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	ContactID string    `json:"contact_id"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is a row of the profiles collection.
type Profile struct {
	ID               string `json:"id"`
	FullName         string `json:"full_name"`
	Username         string `json:"username,omitempty"`
	About            string `json:"about,omitempty"`
	Phone            string `json:"phone,omitempty"`
	AvatarURL        string `json:"avatar_url,omitempty"`
	IsVerified       bool   `json:"is_verified"`
	VerifiedSubtitle string `json:"verified_subtitle,omitempty"`
}

// Status is a row of the status collection with its author expanded.
type Status struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Type            string    `json:"type"`
	Content         string    `json:"content"`
	Caption         string    `json:"caption,omitempty"`
	BackgroundColor string    `json:"background_color,omitempty"`
	CreatedAt       time.Time `json:"created_at"`

	AuthorName     string `json:"author_name,omitempty"`
	AuthorAvatar   string `json:"author_avatar,omitempty"`
	AuthorVerified bool   `json:"author_verified"`
}

// ProfileUpdate carries the profile fields to change. Empty fields are left
// untouched.
type ProfileUpdate struct {
	FullName  string `json:"full_name,omitempty"`
	Username  string `json:"username,omitempty"`
	About     string `json:"about,omitempty"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u == ProfileUpdate{}
}

// NewStatus is a status post to publish.
type NewStatus struct {
	Type            string `json:"type"`
	Content         string `json:"content"`
	Caption         string `json:"caption,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
}

// MessageQuery narrows ListMessages. Zero values mean unbounded.
type MessageQuery struct {
	Since time.Time `json:"since"`
	Limit int       `json:"limit,omitempty"`
}

// Session is an authenticated identity with its access token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthEventType names an authentication state change.
type AuthEventType string

const (
	SignedIn       AuthEventType = "SIGNED_IN"
	SignedOut      AuthEventType = "SIGNED_OUT"
	TokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is delivered by WatchAuth. Session is nil for SignedOut.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}

// ChangeType is the kind of row change carried by a realtime event.
type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
	Delete ChangeType = "DELETE"
)

// Change is a realtime row-change event. Record holds the row after the
// change (before it, for deletes).
type Change struct {
	Table  string           `json:"table"`
	Type   ChangeType       `json:"type"`
	Record *structpb.Struct `json:"record"`
}
