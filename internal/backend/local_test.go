package backend

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memTokens struct {
	token string
	sets  int
}

func (m *memTokens) AccessToken() string { return m.token }

func (m *memTokens) SetAccessToken(token string) error {
	m.token = token
	m.sets++
	return nil
}

func receiveAuth(t *testing.T, ch <-chan AuthEvent) AuthEvent {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auth event")
	}
	return AuthEvent{}
}

func TestLocalAuthLifecycle(t *testing.T) {
	svc := testService(t, Options{})
	ctx := context.Background()
	tokens := &memTokens{}
	l := NewLocal(svc, tokens, nil)

	events, cancel := l.WatchAuth()
	defer cancel()

	sess, err := l.Session(ctx)
	if err != nil || sess != nil {
		t.Fatalf("initial Session = %+v, %v", sess, err)
	}
	if _, err := l.SendMessage(ctx, "x", "oi"); !errors.Is(err, ErrNoSession) {
		t.Errorf("SendMessage without session error = %v", err)
	}

	signed, err := l.SignUp(ctx, "ana@example.com", "secret123", "Ana")
	if err != nil {
		t.Fatal(err)
	}
	if evt := receiveAuth(t, events); evt.Type != SignedIn || evt.Session.UserID != signed.UserID {
		t.Errorf("event = %+v", evt)
	}
	if tokens.token != signed.Token {
		t.Error("token not persisted")
	}

	refreshed, err := l.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if evt := receiveAuth(t, events); evt.Type != TokenRefreshed {
		t.Errorf("event = %s, want TOKEN_REFRESHED", evt.Type)
	}

	// A second client restores the persisted session.
	restored := NewLocal(svc, tokens, nil)
	sess, err = restored.Session(ctx)
	if err != nil || sess == nil || sess.Token != refreshed.Token {
		t.Fatalf("restored Session = %+v, %v", sess, err)
	}

	if err := l.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	if evt := receiveAuth(t, events); evt.Type != SignedOut || evt.Session != nil {
		t.Errorf("event = %+v", evt)
	}
	if tokens.token != "" {
		t.Error("token should be cleared on sign out")
	}

	// The restored client notices its token was revoked.
	if sess, _ := restored.Session(ctx); sess != nil {
		t.Error("revoked session should read as signed out")
	}
}

func TestLocalSubscribeWithoutSession(t *testing.T) {
	svc := testService(t, Options{})
	l := NewLocal(svc, nil, nil)

	feed, cancel := l.Subscribe(context.Background(), TableMessages)
	defer cancel()
	if _, ok := <-feed; ok {
		t.Error("feed should be closed when signed out")
	}
}

func TestLocalRoundTrip(t *testing.T) {
	svc := testService(t, Options{})
	ctx := context.Background()

	ana := NewLocal(svc, nil, nil)
	bruno := NewLocal(svc, nil, nil)
	anaSess, err := ana.SignUp(ctx, "ana@example.com", "secret123", "Ana")
	if err != nil {
		t.Fatal(err)
	}
	brunoSess, err := bruno.SignUp(ctx, "bruno@example.com", "secret123", "Bruno")
	if err != nil {
		t.Fatal(err)
	}

	feed, cancel := bruno.Subscribe(ctx, TableMessages)
	defer cancel()

	if _, err := ana.SendMessage(ctx, brunoSess.UserID, "[IMAGEM] foto"); err != nil {
		t.Fatal(err)
	}
	if c := receive(t, feed); c.Field("sender_id") != anaSess.UserID {
		t.Errorf("sender = %q", c.Field("sender_id"))
	}

	msgs, err := bruno.ListMessages(ctx, brunoSess.UserID, MessageQuery{})
	if err != nil || len(msgs) != 1 {
		t.Fatalf("ListMessages = %v, %v", msgs, err)
	}
	n, err := bruno.MarkRead(ctx, anaSess.UserID, brunoSess.UserID)
	if err != nil || n != 1 {
		t.Errorf("MarkRead = %d, %v", n, err)
	}
	thread, err := ana.Thread(ctx, anaSess.UserID, brunoSess.UserID, 50)
	if err != nil || len(thread) != 1 || thread[0].Status != StatusRead {
		t.Errorf("Thread = %+v, %v", thread, err)
	}
}
