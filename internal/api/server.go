package api

import (
	"context"
	"errors"
	"sync"

	"github.com/matheus3301/blackzap/internal/backend"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Server exposes a backend.Service as the blackzap.v1.Backend gRPC service.
type Server struct {
	svc    *backend.Service
	logger *zap.Logger
	report HealthFunc

	closing   chan struct{}
	closeOnce sync.Once
}

// HealthFunc reports the daemon's state for the Health call.
type HealthFunc func(ctx context.Context) (*HealthResponse, error)

// NewServer creates the service implementation.
func NewServer(svc *backend.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger, closing: make(chan struct{})}
}

// Shutdown ends every open Watch stream and refuses new ones, so a graceful
// stop of the grpc.Server does not wait on them.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// SetHealth installs the Health reporter. Without one Health returns only
// the message count.
func (s *Server) SetHealth(fn HealthFunc) {
	s.report = fn
}

// Register adds the service to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&serviceDesc, s)
}

// NewGRPCServer returns a grpc.Server with the auth interceptors installed
// and s registered.
func NewGRPCServer(s *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(UnaryAuth(s.svc)),
		grpc.ChainStreamInterceptor(StreamAuth(s.svc)),
	)
	srv := grpc.NewServer(opts...)
	s.Register(srv)
	return srv
}

func caller(ctx context.Context) (*backend.Session, error) {
	sess, ok := SessionFrom(ctx)
	if !ok {
		return nil, backend.ErrUnauthenticated
	}
	return sess, nil
}

func (s *Server) health(ctx context.Context, _ *Empty) (*HealthResponse, error) {
	if s.report != nil {
		return s.report(ctx)
	}
	count, err := s.svc.MessageCount(ctx)
	if err != nil {
		return nil, err
	}
	return &HealthResponse{MessageCount: count}, nil
}

func (s *Server) getSession(ctx context.Context, _ *Empty) (*SessionResponse, error) {
	token := tokenFrom(ctx)
	if token == "" {
		return &SessionResponse{}, nil
	}
	sess, err := s.svc.Authenticate(ctx, token)
	if errors.Is(err, backend.ErrUnauthenticated) {
		return &SessionResponse{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &SessionResponse{Session: sess}, nil
}

func (s *Server) signUp(ctx context.Context, req *SignUpRequest) (*SessionResponse, error) {
	sess, err := s.svc.SignUp(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{Session: sess}, nil
}

func (s *Server) signIn(ctx context.Context, req *SignInRequest) (*SessionResponse, error) {
	sess, err := s.svc.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{Session: sess}, nil
}

func (s *Server) signOut(ctx context.Context, _ *Empty) (*Empty, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.SignOut(ctx, sess.Token); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *Server) refresh(ctx context.Context, _ *Empty) (*SessionResponse, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	next, err := s.svc.Refresh(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{Session: next}, nil
}

func (s *Server) listMessages(ctx context.Context, req *ListMessagesRequest) (*MessagesResponse, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := s.svc.ListMessages(ctx, sess.UserID, req.UserID, req.Query)
	if err != nil {
		return nil, err
	}
	return &MessagesResponse{Messages: msgs}, nil
}

func (s *Server) thread(ctx context.Context, req *ThreadRequest) (*MessagesResponse, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := s.svc.Thread(ctx, sess.UserID, req.UserID, req.ContactID, req.Limit)
	if err != nil {
		return nil, err
	}
	return &MessagesResponse{Messages: msgs}, nil
}

func (s *Server) getProfile(ctx context.Context, req *ProfileRequest) (*ProfileResponse, error) {
	p, err := s.svc.Profile(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{Profile: p}, nil
}

func (s *Server) getProfiles(ctx context.Context, req *ProfilesRequest) (*ProfilesResponse, error) {
	profiles, err := s.svc.Profiles(ctx, req.IDs)
	if err != nil {
		return nil, err
	}
	return &ProfilesResponse{Profiles: profiles}, nil
}

func (s *Server) searchProfiles(ctx context.Context, req *SearchProfilesRequest) (*ProfilesResponse, error) {
	profiles, err := s.svc.SearchProfiles(ctx, req.Term, req.ExcludeID, req.Limit)
	if err != nil {
		return nil, err
	}
	return &ProfilesResponse{Profiles: profiles}, nil
}

func (s *Server) listStatus(ctx context.Context, req *ListStatusRequest) (*StatusListResponse, error) {
	posts, err := s.svc.ListStatus(ctx, req.Since)
	if err != nil {
		return nil, err
	}
	return &StatusListResponse{Status: posts}, nil
}

func (s *Server) sendMessage(ctx context.Context, req *SendMessageRequest) (*MessageResponse, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.svc.SendMessage(ctx, sess.UserID, req.ContactID, req.Text)
	if err != nil {
		return nil, err
	}
	return &MessageResponse{Message: m}, nil
}

func (s *Server) markRead(ctx context.Context, req *MarkReadRequest) (*MarkReadResponse, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.svc.MarkRead(ctx, sess.UserID, req.ContactID, req.UserID)
	if err != nil {
		return nil, err
	}
	return &MarkReadResponse{Updated: n}, nil
}

func (s *Server) updateProfile(ctx context.Context, req *UpdateProfileRequest) (*Empty, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.UpdateProfile(ctx, sess.UserID, req.Update); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *Server) postStatus(ctx context.Context, req *PostStatusRequest) (*StatusResponse, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.svc.PostStatus(ctx, sess.UserID, req.Status)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{Status: st}, nil
}

// watch streams realtime changes until the client goes away or the server
// shuts down. Headers are sent once the subscription is live so clients can
// wait for it.
func (s *Server) watch(req *WatchRequest, stream grpc.ServerStream) error {
	ctx, stop := context.WithCancel(stream.Context())
	defer stop()
	sess, err := caller(ctx)
	if err != nil {
		return ToStatus(err)
	}

	select {
	case <-s.closing:
		return status.Error(codes.Unavailable, "server shutting down")
	default:
	}
	go func() {
		select {
		case <-s.closing:
			stop()
		case <-ctx.Done():
		}
	}()

	feed, cancel := s.svc.Watch(ctx, sess.UserID, req.Tables...)
	defer cancel()

	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}
	s.logger.Debug("watch started", zap.String("user_id", sess.UserID), zap.Strings("tables", req.Tables))

	for c := range feed {
		if err := stream.SendMsg(&c); err != nil {
			s.logger.Debug("watch send failed", zap.Error(err))
			return err
		}
	}
	select {
	case <-s.closing:
		s.logger.Debug("watch closed by shutdown", zap.String("user_id", sess.UserID))
		return status.Error(codes.Unavailable, "server shutting down")
	default:
	}
	return nil
}
