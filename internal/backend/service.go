package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/blackzap/internal/bus"
	"github.com/matheus3301/blackzap/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SessionTTL is how long an access token stays valid without a refresh.
const SessionTTL = 7 * 24 * time.Hour

// minPasswordLen matches the hosted auth provider's default policy.
const minPasswordLen = 6

// Options tunes a Service.
type Options struct {
	// BcryptCost overrides bcrypt.DefaultCost; tests use bcrypt.MinCost.
	BcryptCost int
	// Now overrides the clock.
	Now func() time.Time
}

// Service is the server side of the backend: it owns the collections,
// authenticates callers and publishes every write as a realtime change.
// Methods that act on behalf of a user take the caller's id explicitly.
type Service struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cost   int
	now    func() time.Time
}

// NewService creates a Service over db, publishing changes on b.
func NewService(db *store.DB, b *bus.Bus, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{db: db, bus: b, logger: logger, cost: opts.BcryptCost, now: opts.Now}
}

// SignUp registers an account, creates its profile and opens a session.
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (*Session, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email %q", ErrInvalidArgument, email)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidArgument, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UnixMilli(),
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if fullName = strings.TrimSpace(fullName); fullName == "" {
		fullName, _, _ = strings.Cut(email, "@")
	}
	if err := s.db.UpsertProfile(ctx, &store.Profile{ID: user.ID, FullName: fullName}); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return s.issue(ctx, user.ID, email)
}

// SignIn checks credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	user, err := s.db.UserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user.ID, user.Email)
}

// Authenticate resolves a token to its session.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	sess, err := s.db.SessionByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil || s.now().UnixMilli() >= sess.ExpiresAt {
		return nil, ErrUnauthenticated
	}
	return &Session{
		Token:     sess.Token,
		UserID:    sess.UserID,
		Email:     sess.Email,
		ExpiresAt: time.UnixMilli(sess.ExpiresAt),
	}, nil
}

// Refresh replaces token with a fresh one.
func (s *Service) Refresh(ctx context.Context, token string) (*Session, error) {
	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	next, err := s.issue(ctx, sess.UserID, sess.Email)
	if err != nil {
		return nil, err
	}
	if err := s.db.DeleteSession(ctx, token); err != nil {
		s.logger.Warn("failed to revoke refreshed token", zap.Error(err))
	}
	return next, nil
}

// SignOut revokes token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.db.DeleteSession(ctx, token)
}

func (s *Service) issue(ctx context.Context, userID, email string) (*Session, error) {
	now := s.now()
	sess := &store.AuthSession{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(SessionTTL).UnixMilli(),
	}
	if err := s.db.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Session{
		Token:     sess.Token,
		UserID:    userID,
		Email:     email,
		ExpiresAt: time.UnixMilli(sess.ExpiresAt),
	}, nil
}

// ListMessages returns the caller's messages, newest first.
func (s *Service) ListMessages(ctx context.Context, caller, userID string, q MessageQuery) ([]Message, error) {
	if caller != userID {
		return nil, ErrForbidden
	}
	var since int64
	if !q.Since.IsZero() {
		since = q.Since.UnixMilli()
	}
	rows, err := s.db.ListMessagesForUser(ctx, userID, store.MessageQuery{SinceMs: since, Limit: q.Limit})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return toMessages(rows), nil
}

// Thread returns messages between the caller and contactID, oldest first.
func (s *Service) Thread(ctx context.Context, caller, userID, contactID string, limit int) ([]Message, error) {
	if caller != userID {
		return nil, ErrForbidden
	}
	rows, err := s.db.ListThread(ctx, userID, contactID, limit)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	return toMessages(rows), nil
}

// Profile returns one profile or ErrNotFound.
func (s *Service) Profile(ctx context.Context, id string) (*Profile, error) {
	row, err := s.db.GetProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if row == nil {
		return nil, ErrNotFound
	}
	p := toProfile(*row)
	return &p, nil
}

// Profiles batch-fetches profiles; unknown ids are absent from the result.
func (s *Service) Profiles(ctx context.Context, ids []string) ([]Profile, error) {
	rows, err := s.db.ProfilesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("batch profiles: %w", err)
	}
	out := make([]Profile, len(rows))
	for i, r := range rows {
		out[i] = toProfile(r)
	}
	return out, nil
}

// SearchProfiles matches username or full name, excluding excludeID.
func (s *Service) SearchProfiles(ctx context.Context, term, excludeID string, limit int) ([]Profile, error) {
	rows, err := s.db.SearchProfiles(ctx, term, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	out := make([]Profile, len(rows))
	for i, r := range rows {
		out[i] = toProfile(r)
	}
	return out, nil
}

// ListStatus returns posts created strictly after since, newest first.
func (s *Service) ListStatus(ctx context.Context, since time.Time) ([]Status, error) {
	rows, err := s.db.ListStatusSince(ctx, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list status: %w", err)
	}
	out := make([]Status, len(rows))
	for i, r := range rows {
		out[i] = toStatus(r)
	}
	return out, nil
}

// SendMessage stores a message from caller to contactID with status sent.
func (s *Service) SendMessage(ctx context.Context, caller, contactID, text string) (*Message, error) {
	if contactID == "" || strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: recipient and text are required", ErrInvalidArgument)
	}
	row := &store.Message{
		ID:        uuid.NewString(),
		SenderID:  caller,
		ContactID: contactID,
		Text:      text,
		Status:    store.StatusSent,
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.db.InsertMessage(ctx, row); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	m := toMessage(*row)
	s.publishMessage(Insert, m)
	return &m, nil
}

// MarkRead marks every unread message from contactID to userID as read and
// publishes one UPDATE per changed row.
func (s *Service) MarkRead(ctx context.Context, caller, contactID, userID string) (int, error) {
	if caller != userID {
		return 0, ErrForbidden
	}
	rows, err := s.db.MarkRead(ctx, contactID, userID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	for _, r := range rows {
		s.publishMessage(Update, toMessage(r))
	}
	return len(rows), nil
}

// UpdateProfile writes the non-empty fields of u to the caller's profile.
func (s *Service) UpdateProfile(ctx context.Context, caller string, u ProfileUpdate) error {
	fields := map[string]any{}
	if u.FullName != "" {
		fields["full_name"] = u.FullName
	}
	if u.Username != "" {
		fields["username"] = strings.TrimPrefix(u.Username, "@")
	}
	if u.About != "" {
		fields["about"] = u.About
	}
	if u.Phone != "" {
		fields["phone"] = u.Phone
	}
	if u.AvatarURL != "" {
		fields["avatar_url"] = u.AvatarURL
	}
	if len(fields) == 0 {
		return nil
	}

	ok, err := s.db.UpdateProfile(ctx, caller, fields)
	if errors.Is(err, store.ErrConflict) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	p, err := s.Profile(ctx, caller)
	if err != nil {
		return err
	}
	rec, err := profileRecord(*p)
	if err != nil {
		s.logger.Error("failed to encode profile change", zap.Error(err))
		return nil
	}
	s.publish(Change{Table: TableProfiles, Type: Update, Record: rec})
	return nil
}

// PostStatus stores a status post authored by caller.
func (s *Service) PostStatus(ctx context.Context, caller string, ns NewStatus) (*Status, error) {
	switch ns.Type {
	case StatusTypeImage, StatusTypeVideo, StatusTypeText:
	default:
		return nil, fmt.Errorf("%w: status type %q", ErrInvalidArgument, ns.Type)
	}
	if strings.TrimSpace(ns.Content) == "" {
		return nil, fmt.Errorf("%w: status content is required", ErrInvalidArgument)
	}

	row := &store.StatusPost{
		ID:              uuid.NewString(),
		UserID:          caller,
		Type:            ns.Type,
		Content:         ns.Content,
		Caption:         ns.Caption,
		BackgroundColor: ns.BackgroundColor,
		CreatedAt:       s.now().UnixMilli(),
	}
	if err := s.db.InsertStatus(ctx, row); err != nil {
		return nil, fmt.Errorf("insert status: %w", err)
	}
	saved, err := s.db.GetStatus(ctx, row.ID)
	if err != nil || saved == nil {
		saved = row
	}
	st := toStatus(*saved)

	rec, err := statusRecord(st)
	if err != nil {
		s.logger.Error("failed to encode status change", zap.Error(err))
		return &st, nil
	}
	s.publish(Change{Table: TableStatus, Type: Insert, Record: rec})
	return &st, nil
}

// MessageCount returns the number of stored messages.
func (s *Service) MessageCount(ctx context.Context) (int64, error) {
	return s.db.MessageCount(ctx)
}

// Watch delivers the changes on tables that caller may see: messages it
// sent or received, and every status and profile row.
func (s *Service) Watch(ctx context.Context, caller string, tables ...string) (<-chan Change, func()) {
	if len(tables) == 0 {
		tables = []string{TableMessages, TableStatus}
	}
	namespaces := make([]string, len(tables))
	for i, t := range tables {
		namespaces[i] = "realtime." + t + "."
	}
	return relay(ctx, s.bus, func(evt bus.Event) (Change, bool) {
		c, ok := evt.Payload.(Change)
		if !ok {
			return Change{}, false
		}
		return c, visible(c, caller)
	}, namespaces...)
}

func visible(c Change, caller string) bool {
	if c.Table != TableMessages {
		return true
	}
	return c.Field("sender_id") == caller || c.Field("contact_id") == caller
}

func (s *Service) publishMessage(t ChangeType, m Message) {
	rec, err := messageRecord(m)
	if err != nil {
		s.logger.Error("failed to encode message change", zap.String("id", m.ID), zap.Error(err))
		return
	}
	s.publish(Change{Table: TableMessages, Type: t, Record: rec})
}

func (s *Service) publish(c Change) {
	s.bus.Publish(bus.Event{Kind: realtimeKind(c.Table, c.Type), Payload: c})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toMessage(r store.Message) Message {
	return Message{
		ID:        r.ID,
		SenderID:  r.SenderID,
		ContactID: r.ContactID,
		Text:      r.Text,
		Status:    r.Status,
		CreatedAt: time.UnixMilli(r.CreatedAt),
	}
}

func toMessages(rows []store.Message) []Message {
	out := make([]Message, len(rows))
	for i, r := range rows {
		out[i] = toMessage(r)
	}
	return out
}

func toProfile(r store.Profile) Profile {
	return Profile{
		ID:               r.ID,
		FullName:         r.FullName,
		Username:         r.Username,
		About:            r.About,
		Phone:            r.Phone,
		AvatarURL:        r.AvatarURL,
		IsVerified:       r.IsVerified,
		VerifiedSubtitle: r.VerifiedSubtitle,
	}
}

func toStatus(r store.StatusPost) Status {
	return Status{
		ID:              r.ID,
		UserID:          r.UserID,
		Type:            r.Type,
		Content:         r.Content,
		Caption:         r.Caption,
		BackgroundColor: r.BackgroundColor,
		CreatedAt:       time.UnixMilli(r.CreatedAt),
		AuthorName:      r.AuthorName,
		AuthorAvatar:    r.AuthorAvatar,
		AuthorVerified:  r.AuthorVerified,
	}
}
