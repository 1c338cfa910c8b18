package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/blackzap/internal/api"
	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/bus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Remote is a backend.Client talking to bzd over gRPC.
type Remote struct {
	conn   *grpc.ClientConn
	feed   *backend.AuthFeed
	tokens backend.TokenStore
	logger *zap.Logger

	mu    sync.RWMutex
	token string
}

// Dial connects to the daemon's Unix domain socket.
func Dial(socketPath string, tokens backend.TokenStore, logger *zap.Logger) (*Remote, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return New(conn, tokens, logger), nil
}

// New wraps an existing connection. tokens may be nil.
func New(conn *grpc.ClientConn, tokens backend.TokenStore, logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Remote{
		conn:   conn,
		feed:   backend.NewAuthFeed(bus.New()),
		tokens: tokens,
		logger: logger,
	}
	if tokens != nil {
		r.token = tokens.AccessToken()
	}
	return r
}

// Close closes the gRPC connection.
func (r *Remote) Close() error {
	return r.conn.Close()
}

func (r *Remote) currentToken() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token
}

func (r *Remote) setToken(token string) {
	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
	if r.tokens != nil {
		if err := r.tokens.SetAccessToken(token); err != nil {
			r.logger.Warn("failed to persist access token", zap.Error(err))
		}
	}
}

func (r *Remote) invoke(ctx context.Context, method string, req, resp any) error {
	ctx = api.WithToken(ctx, r.currentToken())
	err := r.conn.Invoke(ctx, api.FullMethod(method), req, resp, grpc.CallContentSubtype(api.CodecName))
	return api.FromStatus(err)
}

// authed is invoke for calls that need a session.
func (r *Remote) authed(ctx context.Context, method string, req, resp any) error {
	if r.currentToken() == "" {
		return backend.ErrNoSession
	}
	return r.invoke(ctx, method, req, resp)
}

// Health reports the daemon's phase and counters. It needs no session.
func (r *Remote) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := r.invoke(ctx, api.MethodHealth, &api.Empty{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *Remote) Session(ctx context.Context) (*backend.Session, error) {
	if r.currentToken() == "" {
		return nil, nil
	}
	var resp api.SessionResponse
	if err := r.invoke(ctx, api.MethodGetSession, &api.Empty{}, &resp); err != nil {
		return nil, err
	}
	if resp.Session == nil {
		r.setToken("")
	}
	return resp.Session, nil
}

func (r *Remote) signedIn(sess *backend.Session, typ backend.AuthEventType) {
	r.setToken(sess.Token)
	r.feed.Emit(backend.AuthEvent{Type: typ, Session: sess})
}

func (r *Remote) SignUp(ctx context.Context, email, password, fullName string) (*backend.Session, error) {
	var resp api.SessionResponse
	req := &api.SignUpRequest{Email: email, Password: password, FullName: fullName}
	if err := r.invoke(ctx, api.MethodSignUp, req, &resp); err != nil {
		return nil, err
	}
	if resp.Session == nil {
		return nil, errors.New("sign up returned no session")
	}
	r.signedIn(resp.Session, backend.SignedIn)
	return resp.Session, nil
}

func (r *Remote) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	var resp api.SessionResponse
	if err := r.invoke(ctx, api.MethodSignIn, &api.SignInRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Session == nil {
		return nil, errors.New("sign in returned no session")
	}
	r.signedIn(resp.Session, backend.SignedIn)
	return resp.Session, nil
}

// SignOut always clears the local session, even when the daemon call fails.
func (r *Remote) SignOut(ctx context.Context) error {
	if r.currentToken() == "" {
		return nil
	}
	err := r.invoke(ctx, api.MethodSignOut, &api.Empty{}, &api.Empty{})
	if errors.Is(err, backend.ErrUnauthenticated) {
		err = nil
	}
	r.setToken("")
	r.feed.Emit(backend.AuthEvent{Type: backend.SignedOut})
	return err
}

func (r *Remote) Refresh(ctx context.Context) (*backend.Session, error) {
	var resp api.SessionResponse
	if err := r.authed(ctx, api.MethodRefresh, &api.Empty{}, &resp); err != nil {
		return nil, err
	}
	r.signedIn(resp.Session, backend.TokenRefreshed)
	return resp.Session, nil
}

func (r *Remote) WatchAuth() (<-chan backend.AuthEvent, func()) {
	return r.feed.Watch()
}

func (r *Remote) ListMessages(ctx context.Context, userID string, q backend.MessageQuery) ([]backend.Message, error) {
	var resp api.MessagesResponse
	err := r.authed(ctx, api.MethodListMessages, &api.ListMessagesRequest{UserID: userID, Query: q}, &resp)
	return resp.Messages, err
}

func (r *Remote) Thread(ctx context.Context, userID, contactID string, limit int) ([]backend.Message, error) {
	var resp api.MessagesResponse
	err := r.authed(ctx, api.MethodThread, &api.ThreadRequest{UserID: userID, ContactID: contactID, Limit: limit}, &resp)
	return resp.Messages, err
}

func (r *Remote) Profile(ctx context.Context, id string) (*backend.Profile, error) {
	var resp api.ProfileResponse
	if err := r.authed(ctx, api.MethodGetProfile, &api.ProfileRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

func (r *Remote) Profiles(ctx context.Context, ids []string) ([]backend.Profile, error) {
	var resp api.ProfilesResponse
	err := r.authed(ctx, api.MethodGetProfiles, &api.ProfilesRequest{IDs: ids}, &resp)
	return resp.Profiles, err
}

func (r *Remote) SearchProfiles(ctx context.Context, term, excludeID string, limit int) ([]backend.Profile, error) {
	var resp api.ProfilesResponse
	err := r.authed(ctx, api.MethodSearchProfiles, &api.SearchProfilesRequest{Term: term, ExcludeID: excludeID, Limit: limit}, &resp)
	return resp.Profiles, err
}

func (r *Remote) ListStatus(ctx context.Context, since time.Time) ([]backend.Status, error) {
	var resp api.StatusListResponse
	err := r.authed(ctx, api.MethodListStatus, &api.ListStatusRequest{Since: since}, &resp)
	return resp.Status, err
}

func (r *Remote) SendMessage(ctx context.Context, contactID, text string) (*backend.Message, error) {
	var resp api.MessageResponse
	if err := r.authed(ctx, api.MethodSendMessage, &api.SendMessageRequest{ContactID: contactID, Text: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Message, nil
}

func (r *Remote) MarkRead(ctx context.Context, contactID, userID string) (int, error) {
	var resp api.MarkReadResponse
	err := r.authed(ctx, api.MethodMarkRead, &api.MarkReadRequest{ContactID: contactID, UserID: userID}, &resp)
	return resp.Updated, err
}

func (r *Remote) UpdateProfile(ctx context.Context, u backend.ProfileUpdate) error {
	return r.authed(ctx, api.MethodUpdateProfile, &api.UpdateProfileRequest{Update: u}, &api.Empty{})
}

func (r *Remote) PostStatus(ctx context.Context, s backend.NewStatus) (*backend.Status, error) {
	var resp api.StatusResponse
	if err := r.authed(ctx, api.MethodPostStatus, &api.PostStatusRequest{Status: s}, &resp); err != nil {
		return nil, err
	}
	return resp.Status, nil
}

var watchDesc = &grpc.StreamDesc{StreamName: api.MethodWatch, ServerStreams: true}

// Subscribe opens a Watch stream and returns once the daemon has confirmed
// the subscription. On failure the returned channel is already closed.
func (r *Remote) Subscribe(ctx context.Context, tables ...string) (<-chan backend.Change, func()) {
	out := make(chan backend.Change, 64)
	if r.currentToken() == "" {
		close(out)
		return out, func() {}
	}

	ctx, cancel := context.WithCancel(api.WithToken(ctx, r.currentToken()))
	stream, err := r.conn.NewStream(ctx, watchDesc, api.FullMethod(api.MethodWatch), grpc.CallContentSubtype(api.CodecName))
	if err == nil {
		err = stream.SendMsg(&api.WatchRequest{Tables: tables})
	}
	if err == nil {
		err = stream.CloseSend()
	}
	if err == nil {
		_, err = stream.Header()
	}
	if err != nil {
		r.logger.Warn("realtime subscribe failed", zap.Error(api.FromStatus(err)))
		cancel()
		close(out)
		return out, func() {}
	}

	go func() {
		defer close(out)
		for {
			var c backend.Change
			if err := stream.RecvMsg(&c); err != nil {
				if ctx.Err() == nil {
					r.logger.Warn("realtime stream ended", zap.Error(api.FromStatus(err)))
				}
				return
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel
}

var _ backend.Client = (*Remote)(nil)
