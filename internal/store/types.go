package store

// Message statuses. A message only ever moves forward through these.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// User is an account able to sign in.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    int64
}

// AuthSession is an issued access token.
type AuthSession struct {
	Token     string
	UserID    string
	CreatedAt int64
	ExpiresAt int64

	Email string // owner's email; filled by SessionByToken
}

// Profile is a row of the profiles collection.
type Profile struct {
	ID               string
	FullName         string
	Username         string
	About            string
	Phone            string
	AvatarURL        string
	IsVerified       bool
	VerifiedSubtitle string
}

// Message is a row of the messages collection. Timestamps are unix millis.
type Message struct {
	ID        string
	SenderID  string
	ContactID string
	Text      string
	Status    string
	CreatedAt int64
}

// StatusPost is a row of the status collection with its author's profile
// fields expanded (empty when the author has no profile).
type StatusPost struct {
	ID              string
	UserID          string
	Type            string
	Content         string
	Caption         string
	BackgroundColor string
	CreatedAt       int64

	AuthorName     string
	AuthorAvatar   string
	AuthorVerified bool
}

// MessageQuery narrows ListMessagesForUser.
type MessageQuery struct {
	SinceMs int64 // only rows with created_at > SinceMs; 0 = no bound
	Limit   int   // 0 = unbounded
}
