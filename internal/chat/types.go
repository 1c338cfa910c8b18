package chat

import (
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
)

const (
	// DefaultAvatar replaces a missing avatar URL.
	DefaultAvatar = "https://i.ibb.co/zVwpKj5w/perfil.jpg"
	// NotificationIcon replaces a missing sender avatar on notifications.
	NotificationIcon = "https://i.ibb.co/1fQLFct0/blackzap.png"
	// StatusRetention is how far back the status list reaches.
	StatusRetention = 24 * time.Hour

	DefaultAbout         = "Disponível"
	UnknownAuthor        = "Usuário"
	UnknownSender        = "Nova mensagem"
	NewConversationLabel = "Nova conversa"
	SearchLimit          = 10
	ThreadLimit          = 200
)

// Contact is the summary of one conversation, rebuilt wholesale on every
// refresh.
type Contact struct {
	ID               string
	Name             string
	Username         string
	Avatar           string
	About            string
	IsVerified       bool
	VerifiedSubtitle string
	LastMessage      string
	LastMessageTime  *time.Time
	UnreadCount      int
	Online           bool
}

// UserProfile is the signed-in user's own profile.
type UserProfile struct {
	Name             string
	About            string
	Phone            string
	Avatar           string
	Username         string
	IsVerified       bool
	VerifiedSubtitle string
}

// StatusAuthor is the author snapshot carried by a status update.
type StatusAuthor struct {
	Name       string
	Avatar     string
	IsVerified bool
}

// StatusUpdate is an ephemeral post shown for StatusRetention.
type StatusUpdate struct {
	ID              string
	UserID          string
	Type            string
	Content         string
	Caption         string
	BackgroundColor string
	Timestamp       time.Time
	User            StatusAuthor
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func userProfileFrom(p backend.Profile) UserProfile {
	return UserProfile{
		Name:             p.FullName,
		About:            orDefault(p.About, DefaultAbout),
		Phone:            p.Phone,
		Avatar:           orDefault(p.AvatarURL, DefaultAvatar),
		Username:         p.Username,
		IsVerified:       p.IsVerified,
		VerifiedSubtitle: p.VerifiedSubtitle,
	}
}

func contactFrom(p backend.Profile) Contact {
	return Contact{
		ID:               p.ID,
		Name:             p.FullName,
		Username:         p.Username,
		Avatar:           orDefault(p.AvatarURL, DefaultAvatar),
		About:            p.About,
		IsVerified:       p.IsVerified,
		VerifiedSubtitle: p.VerifiedSubtitle,
	}
}

func statusUpdateFrom(s backend.Status) StatusUpdate {
	return StatusUpdate{
		ID:              s.ID,
		UserID:          s.UserID,
		Type:            s.Type,
		Content:         s.Content,
		Caption:         s.Caption,
		BackgroundColor: s.BackgroundColor,
		Timestamp:       s.CreatedAt,
		User: StatusAuthor{
			Name:       orDefault(s.AuthorName, UnknownAuthor),
			Avatar:     orDefault(s.AuthorAvatar, DefaultAvatar),
			IsVerified: s.AuthorVerified,
		},
	}
}

// InviteURL is the link shared as a QR code to start a conversation with
// username.
func InviteURL(username string) string {
	return "blackzap://u/" + username
}
