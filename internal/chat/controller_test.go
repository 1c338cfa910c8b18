package chat

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/bus"
	"github.com/matheus3301/blackzap/internal/config"
	"github.com/matheus3301/blackzap/internal/lifecycle"
	"github.com/matheus3301/blackzap/internal/notify"
	"github.com/matheus3301/blackzap/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type memMarker struct {
	mu sync.Mutex
	id string
}

func (m *memMarker) ActiveChat() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *memMarker) SetActiveChat(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	return nil
}

// flakyClient fails selected calls of an otherwise working client.
type flakyClient struct {
	backend.Client
	failMarkRead atomic.Bool
	failList     atomic.Bool
	listCalls    atomic.Int32
}

func (f *flakyClient) MarkRead(ctx context.Context, contactID, userID string) (int, error) {
	if f.failMarkRead.Load() {
		return 0, errors.New("network down")
	}
	return f.Client.MarkRead(ctx, contactID, userID)
}

func (f *flakyClient) ListMessages(ctx context.Context, userID string, q backend.MessageQuery) ([]backend.Message, error) {
	f.listCalls.Add(1)
	if f.failList.Load() {
		return nil, errors.New("network down")
	}
	return f.Client.ListMessages(ctx, userID, q)
}

type harness struct {
	svc    *backend.Service
	ctrl   *Controller
	client backend.Client
	tray   *notify.Tray
	marker *memMarker
}

func testService(t *testing.T) *backend.Service {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return backend.NewService(db, bus.New(), nil, backend.Options{BcryptCost: bcrypt.MinCost})
}

// newHarness starts a controller over svc. wrap, if set, decorates the
// controller's client.
func newHarness(t *testing.T, svc *backend.Service, wrap func(backend.Client) backend.Client) *harness {
	t.Helper()
	var client backend.Client = backend.NewLocal(svc, nil, nil)
	if wrap != nil {
		client = wrap(client)
	}
	h := &harness{
		svc:    svc,
		client: client,
		tray:   notify.NewTray(nil, true, nil, nil),
		marker: &memMarker{},
	}
	h.ctrl = NewController(Options{
		Client:    client,
		Presenter: h.tray,
		Marker:    h.marker,
		Config:    config.Default().Client,
	})
	h.ctrl.Start(context.Background())
	t.Cleanup(h.ctrl.Stop)
	return h
}

// signUp registers through the controller and waits until the session is
// ready to receive realtime changes.
func (h *harness) signUp(t *testing.T, email, name string) string {
	t.Helper()
	waitFor(t, h.ctrl, "signed out", func(s State) bool { return s.Phase == lifecycle.SignedOut })
	if err := h.ctrl.SignUp(context.Background(), email, "secret123", name); err != nil {
		t.Fatalf("SignUp(%s) error = %v", email, err)
	}
	st := waitFor(t, h.ctrl, "ready", func(s State) bool {
		return s.Phase == lifecycle.Ready && s.Contacts != nil && s.Status != nil
	})
	eventually(t, "realtime bound", func() bool { return h.ctrl.router.Bound() == st.UserID })
	eventually(t, "permission asked", func() bool { return h.tray.Permission() == notify.PermissionGranted })
	return st.UserID
}

// peer signs up a second user with its own client.
func peer(t *testing.T, svc *backend.Service, email, name string) (backend.Client, string) {
	t.Helper()
	c := backend.NewLocal(svc, nil, nil)
	sess, err := c.SignUp(context.Background(), email, "secret123", name)
	if err != nil {
		t.Fatalf("SignUp(%s) error = %v", email, err)
	}
	return c, sess.UserID
}

func waitFor(t *testing.T, c *Controller, what string, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		s := c.Snapshot()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; state = %+v", what, s)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func allRead(t *testing.T, c backend.Client, userID string) bool {
	t.Helper()
	msgs, err := c.ListMessages(context.Background(), userID, backend.MessageQuery{})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range msgs {
		if m.ContactID == userID && m.Status != backend.StatusRead {
			return false
		}
	}
	return true
}

func TestControllerStartsSignedOut(t *testing.T) {
	h := newHarness(t, testService(t), nil)
	st := waitFor(t, h.ctrl, "signed out", func(s State) bool { return s.Phase == lifecycle.SignedOut })
	if st.UserID != "" || st.Profile != nil {
		t.Errorf("state = %+v", st)
	}
	if err := h.ctrl.PostStatus(context.Background(), backend.NewStatus{Type: backend.StatusTypeText, Content: "x"}); !errors.Is(err, backend.ErrNoSession) {
		t.Errorf("PostStatus without session error = %v", err)
	}
}

func TestControllerSignUpLoadsProfile(t *testing.T) {
	h := newHarness(t, testService(t), nil)
	h.signUp(t, "ana@example.com", "Ana")

	st := h.ctrl.Snapshot()
	if st.Email != "ana@example.com" {
		t.Errorf("email = %q", st.Email)
	}
	if st.Profile == nil || st.Profile.Name != "Ana" {
		t.Fatalf("profile = %+v", st.Profile)
	}
	if st.Profile.About != DefaultAbout || st.Profile.Avatar != DefaultAvatar {
		t.Errorf("profile defaults = %+v", st.Profile)
	}
	if len(st.Contacts) != 0 {
		t.Errorf("contacts = %+v", st.Contacts)
	}
}

func TestControllerIncomingMessages(t *testing.T) {
	svc := testService(t)
	h := newHarness(t, svc, nil)
	ana := h.signUp(t, "ana@example.com", "Ana")
	bruno, brunoID := peer(t, svc, "bruno@example.com", "Bruno")
	ctx := context.Background()

	if _, err := bruno.SendMessage(ctx, ana, "oi"); err != nil {
		t.Fatal(err)
	}
	st := waitFor(t, h.ctrl, "unread chat", func(s State) bool {
		return len(s.Contacts) == 1 && s.Contacts[0].UnreadCount == 1
	})
	if c := st.Contacts[0]; c.ID != brunoID || c.Name != "Bruno" || c.LastMessage != "oi" {
		t.Errorf("contact = %+v", c)
	}
	eventually(t, "notification", func() bool { _, ok := h.tray.Latest(); return ok })
	n, _ := h.tray.Latest()
	if n.Title != "Bruno" || n.Body != "oi" || n.Tag != brunoID {
		t.Errorf("notification = %+v", n)
	}

	h.ctrl.Open(brunoID)
	st = waitFor(t, h.ctrl, "opened chat", func(s State) bool {
		return s.FocusedID == brunoID && s.Contacts[0].UnreadCount == 0
	})
	if h.marker.ActiveChat() != brunoID {
		t.Errorf("marker = %q", h.marker.ActiveChat())
	}
	eventually(t, "persisted read", func() bool { return allRead(t, h.client, ana) })

	// While the conversation is open new messages are read on arrival.
	if _, err := bruno.SendMessage(ctx, ana, "[IMAGEM]https://x/y.png"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, h.ctrl, "image preview", func(s State) bool {
		return len(s.Contacts) == 1 && s.Contacts[0].LastMessage == "📷 Imagem" && s.Contacts[0].UnreadCount == 0
	})
	eventually(t, "persisted read", func() bool { return allRead(t, h.client, ana) })
	if got := len(h.tray.List()); got != 1 {
		t.Errorf("notifications = %d, want 1", got)
	}

	thread, err := h.ctrl.Thread(ctx, brunoID)
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 2 || thread[0].Text != "oi" {
		t.Errorf("thread = %+v", thread)
	}
}

func TestControllerOutgoingMessage(t *testing.T) {
	svc := testService(t)
	h := newHarness(t, svc, nil)
	h.signUp(t, "ana@example.com", "Ana")
	_, brunoID := peer(t, svc, "bruno@example.com", "Bruno")

	h.ctrl.Send("ignored without focus")
	h.ctrl.Open(brunoID)
	h.ctrl.Send("olá")

	st := waitFor(t, h.ctrl, "outgoing chat", func(s State) bool {
		return len(s.Contacts) == 1 && s.Contacts[0].LastMessage == "olá"
	})
	if st.Contacts[0].UnreadCount != 0 {
		t.Errorf("own message counted unread: %+v", st.Contacts[0])
	}
	if _, ok := h.tray.Latest(); ok {
		t.Error("own message notified")
	}
}

func TestControllerSignOutClearsState(t *testing.T) {
	svc := testService(t)
	h := newHarness(t, svc, nil)
	ana := h.signUp(t, "ana@example.com", "Ana")
	bruno, brunoID := peer(t, svc, "bruno@example.com", "Bruno")
	if _, err := bruno.SendMessage(context.Background(), ana, "oi"); err != nil {
		t.Fatal(err)
	}
	h.ctrl.Open(brunoID)
	waitFor(t, h.ctrl, "chat loaded", func(s State) bool { return len(s.Contacts) == 1 && s.FocusedID == brunoID })

	if err := h.ctrl.SignOut(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := waitFor(t, h.ctrl, "signed out", func(s State) bool { return s.Phase == lifecycle.SignedOut })
	if st.UserID != "" || st.Profile != nil || st.Contacts != nil || st.FocusedID != "" {
		t.Errorf("state after sign out = %+v", st)
	}
	if h.marker.ActiveChat() != "" {
		t.Errorf("marker = %q", h.marker.ActiveChat())
	}
	eventually(t, "realtime closed", func() bool { return h.ctrl.router.Bound() == "" })
}

func TestControllerSearch(t *testing.T) {
	svc := testService(t)
	h := newHarness(t, svc, nil)
	h.signUp(t, "ana@example.com", "Ana")
	bruno, brunoID := peer(t, svc, "bruno@example.com", "Bruno")
	if err := bruno.UpdateProfile(context.Background(), backend.ProfileUpdate{Username: "bruno"}); err != nil {
		t.Fatal(err)
	}

	// "n" matches both names; the signed-in user is excluded.
	h.ctrl.Search("@n")
	st := waitFor(t, h.ctrl, "search results", func(s State) bool { return len(s.GlobalResults) > 0 })
	if len(st.GlobalResults) != 1 || st.GlobalResults[0].ID != brunoID {
		t.Fatalf("results = %+v", st.GlobalResults)
	}
	if st.GlobalResults[0].LastMessage != NewConversationLabel {
		t.Errorf("result label = %q", st.GlobalResults[0].LastMessage)
	}

	h.ctrl.SelectGlobal(st.GlobalResults[0])
	st = waitFor(t, h.ctrl, "selected", func(s State) bool { return s.FocusedID == brunoID })
	if len(st.Contacts) != 1 || st.Contacts[0].ID != brunoID {
		t.Errorf("contacts = %+v", st.Contacts)
	}

	h.ctrl.Search("  ")
	waitFor(t, h.ctrl, "cleared results", func(s State) bool { return s.GlobalResults == nil })
}

func TestControllerStatus(t *testing.T) {
	h := newHarness(t, testService(t), nil)
	h.signUp(t, "ana@example.com", "Ana")
	ctx := context.Background()

	err := h.ctrl.PostStatus(ctx, backend.NewStatus{Type: "gif", Content: "x"})
	if !errors.Is(err, backend.ErrInvalidArgument) {
		t.Errorf("invalid type error = %v", err)
	}

	if err := h.ctrl.PostStatus(ctx, backend.NewStatus{Type: backend.StatusTypeText, Content: "bom dia", BackgroundColor: "#075e54"}); err != nil {
		t.Fatal(err)
	}
	st := waitFor(t, h.ctrl, "status list", func(s State) bool { return len(s.Status) == 1 })
	if s := st.Status[0]; s.Content != "bom dia" || s.User.Name != "Ana" || s.User.Avatar != DefaultAvatar {
		t.Errorf("status = %+v", s)
	}
}

func TestControllerUpdateProfile(t *testing.T) {
	h := newHarness(t, testService(t), nil)
	h.signUp(t, "ana@example.com", "Ana")

	h.ctrl.UpdateProfile(backend.ProfileUpdate{Username: "@ana", About: "Ocupada"})
	st := waitFor(t, h.ctrl, "profile reload", func(s State) bool { return s.Profile != nil && s.Profile.About == "Ocupada" })
	if st.Profile.Username != "ana" {
		t.Errorf("username = %q", st.Profile.Username)
	}
}

func TestControllerFailedMarkReadIsNotRolledBack(t *testing.T) {
	svc := testService(t)
	var flaky *flakyClient
	h := newHarness(t, svc, func(c backend.Client) backend.Client {
		flaky = &flakyClient{Client: c}
		return flaky
	})
	ana := h.signUp(t, "ana@example.com", "Ana")
	bruno, brunoID := peer(t, svc, "bruno@example.com", "Bruno")
	if _, err := bruno.SendMessage(context.Background(), ana, "oi"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, h.ctrl, "unread chat", func(s State) bool { return len(s.Contacts) == 1 && s.Contacts[0].UnreadCount == 1 })

	flaky.failMarkRead.Store(true)
	h.ctrl.Open(brunoID)
	waitFor(t, h.ctrl, "optimistic read", func(s State) bool { return s.Contacts[0].UnreadCount == 0 })

	time.Sleep(100 * time.Millisecond)
	if got := h.ctrl.Snapshot().Contacts[0].UnreadCount; got != 0 {
		t.Errorf("unread = %d after failed mark read, want 0", got)
	}
	if allRead(t, h.client, ana) {
		t.Error("backend marked read despite failure")
	}
}

func TestControllerFailedRefreshKeepsList(t *testing.T) {
	svc := testService(t)
	var flaky *flakyClient
	h := newHarness(t, svc, func(c backend.Client) backend.Client {
		flaky = &flakyClient{Client: c}
		return flaky
	})
	ana := h.signUp(t, "ana@example.com", "Ana")
	bruno, _ := peer(t, svc, "bruno@example.com", "Bruno")
	if _, err := bruno.SendMessage(context.Background(), ana, "oi"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, h.ctrl, "chat", func(s State) bool { return len(s.Contacts) == 1 && !s.ContactsLoading })

	flaky.failList.Store(true)
	calls := flaky.listCalls.Load()
	h.ctrl.Refresh()
	eventually(t, "failed refresh", func() bool {
		return flaky.listCalls.Load() > calls && !h.ctrl.Snapshot().ContactsLoading
	})
	if got := h.ctrl.Snapshot().Contacts; len(got) != 1 || got[0].LastMessage != "oi" {
		t.Errorf("contacts = %+v", got)
	}
}

func TestControllerRestoresFocus(t *testing.T) {
	marker := &memMarker{id: "someone"}
	c := NewController(Options{Client: backend.NewLocal(testService(t), nil, nil), Marker: marker})
	if got := c.Snapshot().FocusedID; got != "someone" {
		t.Errorf("focused = %q", got)
	}
	if !c.Snapshot().Visible {
		t.Error("controller should start visible")
	}
}

func TestControllerPublishesChanges(t *testing.T) {
	h := newHarness(t, testService(t), nil)
	ch, cancel := h.ctrl.Changes()
	defer cancel()

	h.ctrl.SetVisible(false)
	deadline := time.After(3 * time.Second)
	for {
		select {
		case evt := <-ch:
			if st, ok := evt.Payload.(State); ok && !st.Visible {
				return
			}
		case <-deadline:
			t.Fatal("no state change published")
		}
	}
}

func TestControllerAnnouncesThreadChanges(t *testing.T) {
	svc := testService(t)
	h := newHarness(t, svc, nil)
	h.signUp(t, "ana@example.com", "Ana")
	bruno, brunoID := peer(t, svc, "bruno@example.com", "Bruno")

	ch, cancel := h.ctrl.ThreadChanges()
	defer cancel()

	if _, err := bruno.SendMessage(context.Background(), h.ctrl.Snapshot().UserID, "oi"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Payload != brunoID {
			t.Errorf("thread changed for %v, want %s", evt.Payload, brunoID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no thread change published")
	}
}

func TestControllerNotificationClicked(t *testing.T) {
	svc := testService(t)
	h := newHarness(t, svc, nil)
	ana := h.signUp(t, "ana@example.com", "Ana")
	bruno, brunoID := peer(t, svc, "bruno@example.com", "Bruno")

	if _, err := bruno.SendMessage(context.Background(), ana, "oi"); err != nil {
		t.Fatal(err)
	}
	eventually(t, "notification", func() bool { _, ok := h.tray.Latest(); return ok })
	waitFor(t, h.ctrl, "unread chat", func(s State) bool {
		return len(s.Contacts) == 1 && s.Contacts[0].UnreadCount == 1
	})
	h.ctrl.SetVisible(false)
	waitFor(t, h.ctrl, "hidden", func(s State) bool { return !s.Visible })

	n, _ := h.tray.Latest()
	h.ctrl.NotificationClicked(n.Tag)
	waitFor(t, h.ctrl, "conversation opened", func(s State) bool {
		return s.Visible && s.FocusedID == brunoID && s.Contacts[0].UnreadCount == 0
	})
	if got := h.marker.ActiveChat(); got != brunoID {
		t.Errorf("marker = %q, want %s", got, brunoID)
	}
	eventually(t, "persisted read", func() bool { return allRead(t, h.client, ana) })
}

// countingPresenter counts permission requests.
type countingPresenter struct {
	*notify.Tray
	asks atomic.Int32
}

func (p *countingPresenter) RequestPermission(ctx context.Context) notify.Permission {
	p.asks.Add(1)
	return p.Tray.RequestPermission(ctx)
}

func TestControllerAsksPermissionOnce(t *testing.T) {
	svc := testService(t)
	presenter := &countingPresenter{Tray: notify.NewTray(nil, true, nil, nil)}
	h := &harness{
		svc:    svc,
		client: backend.NewLocal(svc, nil, nil),
		tray:   presenter.Tray,
		marker: &memMarker{},
	}
	h.ctrl = NewController(Options{
		Client:    h.client,
		Presenter: presenter,
		Marker:    h.marker,
		Config:    config.Default().Client,
	})
	h.ctrl.Start(context.Background())
	t.Cleanup(h.ctrl.Stop)
	ctx := context.Background()

	h.signUp(t, "ana@example.com", "Ana")
	_, _ = peer(t, svc, "bruno@example.com", "Bruno")

	for _, email := range []string{"ana@example.com", "bruno@example.com"} {
		if err := h.ctrl.SignOut(ctx); err != nil {
			t.Fatal(err)
		}
		waitFor(t, h.ctrl, "signed out", func(s State) bool { return s.Phase == lifecycle.SignedOut })
		if err := h.ctrl.SignIn(ctx, email, "secret123"); err != nil {
			t.Fatalf("SignIn(%s) error = %v", email, err)
		}
		st := waitFor(t, h.ctrl, "ready", func(s State) bool {
			return s.Phase == lifecycle.Ready && s.Email == email
		})
		eventually(t, "realtime bound", func() bool { return h.ctrl.router.Bound() == st.UserID })
	}
	time.Sleep(50 * time.Millisecond)
	if n := presenter.asks.Load(); n != 1 {
		t.Errorf("permission requested %d times, want 1", n)
	}
}

// gatedClient holds ListMessages calls until released once held is set.
type gatedClient struct {
	backend.Client
	held     atomic.Bool
	waiting  atomic.Int32
	returned atomic.Int32
	release  chan struct{}
}

func (g *gatedClient) ListMessages(ctx context.Context, userID string, q backend.MessageQuery) ([]backend.Message, error) {
	if g.held.Load() {
		g.waiting.Add(1)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		defer g.returned.Add(1)
	}
	return g.Client.ListMessages(ctx, userID, q)
}

func TestControllerOverlappingRefreshes(t *testing.T) {
	svc := testService(t)
	gated := &gatedClient{release: make(chan struct{})}
	h := newHarness(t, svc, func(c backend.Client) backend.Client {
		gated.Client = c
		return gated
	})
	h.signUp(t, "ana@example.com", "Ana")
	waitFor(t, h.ctrl, "chats loaded", func(s State) bool { return !s.ContactsLoading })

	gated.held.Store(true)
	h.ctrl.Refresh()
	h.ctrl.Refresh()
	eventually(t, "two loads in flight", func() bool { return gated.waiting.Load() == 2 })
	if !h.ctrl.Snapshot().ContactsLoading {
		t.Fatal("not loading with two refreshes in flight")
	}

	gated.release <- struct{}{}
	eventually(t, "first load returned", func() bool { return gated.returned.Load() == 1 })
	time.Sleep(50 * time.Millisecond)
	if !h.ctrl.Snapshot().ContactsLoading {
		t.Error("loading cleared while a refresh is still in flight")
	}

	gated.release <- struct{}{}
	waitFor(t, h.ctrl, "loads finished", func(s State) bool { return !s.ContactsLoading })
}
