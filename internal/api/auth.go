package api

import (
	"context"
	"strings"

	"github.com/matheus3301/blackzap/internal/backend"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const authHeader = "authorization"

type sessionKey struct{}

// WithToken attaches a bearer token to outgoing call metadata.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, authHeader, "Bearer "+token)
}

// tokenFrom extracts the bearer token from incoming call metadata.
func tokenFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get(authHeader) {
		if token, ok := strings.CutPrefix(v, "Bearer "); ok {
			return token
		}
	}
	return ""
}

// SessionFrom returns the session attached by the auth interceptors.
func SessionFrom(ctx context.Context) (*backend.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*backend.Session)
	return sess, ok && sess != nil
}

// Authenticator resolves bearer tokens to sessions.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*backend.Session, error)
}

// UnaryAuth rejects calls to non-public methods that lack a valid token and
// attaches the caller's session to the handler context.
func UnaryAuth(auth Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		sess, err := auth.Authenticate(ctx, tokenFrom(ctx))
		if err != nil {
			return nil, ToStatus(err)
		}
		return handler(context.WithValue(ctx, sessionKey{}, sess), req)
	}
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context { return s.ctx }

// StreamAuth is the streaming counterpart of UnaryAuth.
func StreamAuth(auth Authenticator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		sess, err := auth.Authenticate(ctx, tokenFrom(ctx))
		if err != nil {
			return ToStatus(err)
		}
		return handler(srv, &authedStream{ServerStream: ss, ctx: context.WithValue(ctx, sessionKey{}, sess)})
	}
}
