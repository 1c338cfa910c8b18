package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/blackzap/internal/bus"
	"github.com/matheus3301/blackzap/internal/store"
	"golang.org/x/crypto/bcrypt"
)

func testService(t *testing.T, opts Options) *Service {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	opts.BcryptCost = bcrypt.MinCost
	return NewService(db, bus.New(), nil, opts)
}

func signUp(t *testing.T, svc *Service, email, name string) *Session {
	t.Helper()
	sess, err := svc.SignUp(context.Background(), email, "secret123", name)
	if err != nil {
		t.Fatalf("SignUp(%s) error = %v", email, err)
	}
	return sess
}

func receive(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		if !ok {
			t.Fatal("change feed closed")
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func expectQuiet(t *testing.T, ch <-chan Change) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change: %s %s", c.Table, c.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSignUpCreatesProfile(t *testing.T) {
	svc := testService(t, Options{})
	ctx := context.Background()

	sess := signUp(t, svc, " Ana@Example.com ", "Ana Souza")
	if sess.Token == "" || sess.UserID == "" {
		t.Fatalf("incomplete session: %+v", sess)
	}
	if sess.Email != "ana@example.com" {
		t.Errorf("email = %q, want normalised", sess.Email)
	}

	p, err := svc.Profile(ctx, sess.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if p.FullName != "Ana Souza" {
		t.Errorf("profile name = %q", p.FullName)
	}

	if _, err := svc.SignUp(ctx, "ana@example.com", "another1", "x"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate SignUp error = %v, want ErrEmailTaken", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := testService(t, Options{})
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"no at sign", "ana.example.com", "secret123"},
		{"short password", "ana@example.com", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(context.Background(), tt.email, tt.password, "")
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestSignUpDefaultsNameToEmailLocalPart(t *testing.T) {
	svc := testService(t, Options{})
	sess := signUp(t, svc, "bruno@example.com", "  ")
	p, _ := svc.Profile(context.Background(), sess.UserID)
	if p.FullName != "bruno" {
		t.Errorf("FullName = %q, want bruno", p.FullName)
	}
}

func TestSignInAndAuthenticate(t *testing.T) {
	svc := testService(t, Options{})
	ctx := context.Background()
	signUp(t, svc, "ana@example.com", "Ana")

	if _, err := svc.SignIn(ctx, "ana@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v", err)
	}

	sess, err := svc.SignIn(ctx, "ANA@example.com", "secret123")
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != sess.UserID || got.Email != "ana@example.com" {
		t.Errorf("Authenticate = %+v", got)
	}

	if err := svc.SignOut(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("revoked token error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("empty token error = %v", err)
	}
}

func TestTokenExpiryAndRefresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := testService(t, Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	sess := signUp(t, svc, "ana@example.com", "Ana")

	next, err := svc.Refresh(ctx, sess.Token)
	if err != nil {
		t.Fatal(err)
	}
	if next.Token == sess.Token {
		t.Error("Refresh should issue a new token")
	}
	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Error("old token should be revoked after refresh")
	}

	now = now.Add(SessionTTL)
	if _, err := svc.Authenticate(ctx, next.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expired token error = %v", err)
	}
}

func TestSendMessageVisibility(t *testing.T) {
	svc := testService(t, Options{})
	ctx := context.Background()

	ana := signUp(t, svc, "ana@example.com", "Ana")
	bruno := signUp(t, svc, "bruno@example.com", "Bruno")
	carla := signUp(t, svc, "carla@example.com", "Carla")

	brunoFeed, cancelBruno := svc.Watch(ctx, bruno.UserID, TableMessages)
	defer cancelBruno()
	carlaFeed, cancelCarla := svc.Watch(ctx, carla.UserID, TableMessages)
	defer cancelCarla()

	msg, err := svc.SendMessage(ctx, ana.UserID, bruno.UserID, "oi")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != StatusSent {
		t.Errorf("status = %q, want sent", msg.Status)
	}

	c := receive(t, brunoFeed)
	if c.Table != TableMessages || c.Type != Insert {
		t.Fatalf("change = %s %s", c.Table, c.Type)
	}
	got, err := c.Message()
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != msg.ID || got.SenderID != ana.UserID || got.ContactID != bruno.UserID || got.Text != "oi" {
		t.Errorf("decoded record = %+v", got)
	}
	if !got.CreatedAt.Equal(msg.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, msg.CreatedAt)
	}

	expectQuiet(t, carlaFeed)

	if _, err := svc.SendMessage(ctx, ana.UserID, bruno.UserID, "   "); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("blank text error = %v", err)
	}
}

func TestMarkReadPublishesPerRow(t *testing.T) {
	svc := testService(t, Options{})
	ctx := context.Background()

	ana := signUp(t, svc, "ana@example.com", "Ana")
	bruno := signUp(t, svc, "bruno@example.com", "Bruno")

	for _, text := range []string{"1", "2"} {
		if _, err := svc.SendMessage(ctx, ana.UserID, bruno.UserID, text); err != nil {
			t.Fatal(err)
		}
	}

	feed, cancel := svc.Watch(ctx, ana.UserID, TableMessages)
	defer cancel()

	if _, err := svc.MarkRead(ctx, ana.UserID, ana.UserID, bruno.UserID); !errors.Is(err, ErrForbidden) {
		t.Errorf("marking someone else's inbox error = %v", err)
	}

	n, err := svc.MarkRead(ctx, bruno.UserID, ana.UserID, bruno.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("updated = %d, want 2", n)
	}
	for range 2 {
		c := receive(t, feed)
		if c.Type != Update || c.Field("status") != StatusRead {
			t.Errorf("change = %s status=%s", c.Type, c.Field("status"))
		}
	}

	n, err = svc.MarkRead(ctx, bruno.UserID, ana.UserID, bruno.UserID)
	if err != nil || n != 0 {
		t.Errorf("second MarkRead = %d, %v", n, err)
	}
	expectQuiet(t, feed)
}

func TestListMessagesForbiddenForOthers(t *testing.T) {
	svc := testService(t, Options{})
	ana := signUp(t, svc, "ana@example.com", "Ana")
	bruno := signUp(t, svc, "bruno@example.com", "Bruno")

	if _, err := svc.ListMessages(context.Background(), ana.UserID, bruno.UserID, MessageQuery{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Thread(context.Background(), ana.UserID, bruno.UserID, ana.UserID, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("thread error = %v, want ErrForbidden", err)
	}
}

func TestPostStatus(t *testing.T) {
	svc := testService(t, Options{})
	ctx := context.Background()
	ana := signUp(t, svc, "ana@example.com", "Ana")

	feed, cancel := svc.Watch(ctx, "anyone", TableStatus)
	defer cancel()

	st, err := svc.PostStatus(ctx, ana.UserID, NewStatus{Type: StatusTypeText, Content: "bom dia", BackgroundColor: "#b91c1c"})
	if err != nil {
		t.Fatal(err)
	}
	if st.AuthorName != "Ana" {
		t.Errorf("author not expanded: %+v", st)
	}

	c := receive(t, feed)
	if c.Table != TableStatus || c.Type != Insert || c.Field("content") != "bom dia" {
		t.Errorf("change = %s %s %s", c.Table, c.Type, c.Field("content"))
	}

	if _, err := svc.PostStatus(ctx, ana.UserID, NewStatus{Type: "gif", Content: "x"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad type error = %v", err)
	}

	list, err := svc.ListStatus(ctx, st.CreatedAt.Add(-time.Millisecond))
	if err != nil || len(list) != 1 {
		t.Errorf("ListStatus = %v, %v", list, err)
	}
	list, _ = svc.ListStatus(ctx, st.CreatedAt)
	if len(list) != 0 {
		t.Errorf("ListStatus at exact boundary = %d rows, want 0", len(list))
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := testService(t, Options{})
	ctx := context.Background()
	ana := signUp(t, svc, "ana@example.com", "Ana")
	bruno := signUp(t, svc, "bruno@example.com", "Bruno")

	feed, cancel := svc.Watch(ctx, bruno.UserID, TableProfiles)
	defer cancel()

	if err := svc.UpdateProfile(ctx, ana.UserID, ProfileUpdate{Username: "@ana", About: "Ocupada"}); err != nil {
		t.Fatal(err)
	}
	p, _ := svc.Profile(ctx, ana.UserID)
	if p.Username != "ana" || p.About != "Ocupada" || p.FullName != "Ana" {
		t.Errorf("profile = %+v", p)
	}
	if c := receive(t, feed); c.Field("username") != "ana" {
		t.Errorf("profile change username = %q", c.Field("username"))
	}

	if err := svc.UpdateProfile(ctx, bruno.UserID, ProfileUpdate{Username: "ana"}); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username error = %v", err)
	}
	if err := svc.UpdateProfile(ctx, bruno.UserID, ProfileUpdate{}); err != nil {
		t.Errorf("empty update error = %v", err)
	}
	if _, err := svc.Profile(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing profile error = %v", err)
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	svc := testService(t, Options{})
	ctx, cancelCtx := context.WithCancel(context.Background())

	feed, _ := svc.Watch(ctx, "u")
	cancelCtx()

	select {
	case _, ok := <-feed:
		if ok {
			t.Fatal("expected closed feed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("feed not closed after context cancel")
	}
	if n := svc.bus.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}
}
