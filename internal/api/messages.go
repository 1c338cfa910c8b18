package api

import (
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
)

type Empty struct{}

type HealthResponse struct {
	Instance     string `json:"instance"`
	Phase        string `json:"phase"`
	UptimeMs     int64  `json:"uptime_ms"`
	MessageCount int64  `json:"message_count"`
}

type SessionResponse struct {
	Session *backend.Session `json:"session,omitempty"`
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ListMessagesRequest struct {
	UserID string               `json:"user_id"`
	Query  backend.MessageQuery `json:"query"`
}

type ThreadRequest struct {
	UserID    string `json:"user_id"`
	ContactID string `json:"contact_id"`
	Limit     int    `json:"limit,omitempty"`
}

type MessagesResponse struct {
	Messages []backend.Message `json:"messages"`
}

type ProfileRequest struct {
	ID string `json:"id"`
}

type ProfileResponse struct {
	Profile *backend.Profile `json:"profile"`
}

type ProfilesRequest struct {
	IDs []string `json:"ids"`
}

type SearchProfilesRequest struct {
	Term      string `json:"term"`
	ExcludeID string `json:"exclude_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type ProfilesResponse struct {
	Profiles []backend.Profile `json:"profiles"`
}

type ListStatusRequest struct {
	Since time.Time `json:"since"`
}

type StatusListResponse struct {
	Status []backend.Status `json:"status"`
}

type SendMessageRequest struct {
	ContactID string `json:"contact_id"`
	Text      string `json:"text"`
}

type MessageResponse struct {
	Message *backend.Message `json:"message"`
}

type MarkReadRequest struct {
	ContactID string `json:"contact_id"`
	UserID    string `json:"user_id"`
}

type MarkReadResponse struct {
	Updated int `json:"updated"`
}

type UpdateProfileRequest struct {
	Update backend.ProfileUpdate `json:"update"`
}

type PostStatusRequest struct {
	Status backend.NewStatus `json:"status"`
}

type StatusResponse struct {
	Status *backend.Status `json:"status"`
}

type WatchRequest struct {
	Tables []string `json:"tables"`
}
