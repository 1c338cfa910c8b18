package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "blackzap.v1.Backend"

// Method names.
const (
	MethodHealth         = "Health"
	MethodGetSession     = "GetSession"
	MethodSignUp         = "SignUp"
	MethodSignIn         = "SignIn"
	MethodSignOut        = "SignOut"
	MethodRefresh        = "Refresh"
	MethodListMessages   = "ListMessages"
	MethodThread         = "Thread"
	MethodGetProfile     = "GetProfile"
	MethodGetProfiles    = "GetProfiles"
	MethodSearchProfiles = "SearchProfiles"
	MethodListStatus     = "ListStatus"
	MethodSendMessage    = "SendMessage"
	MethodMarkRead       = "MarkRead"
	MethodUpdateProfile  = "UpdateProfile"
	MethodPostStatus     = "PostStatus"
	MethodWatch          = "Watch"
)

// FullMethod returns "/blackzap.v1.Backend/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// publicMethods are served without a bearer token.
var publicMethods = map[string]bool{
	FullMethod(MethodHealth):     true,
	FullMethod(MethodGetSession): true,
	FullMethod(MethodSignUp):     true,
	FullMethod(MethodSignIn):     true,
}

// backendServer is the handler type checked by grpc.RegisterService.
type backendServer interface {
	watch(*WatchRequest, grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*backendServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodHealth, (*Server).health),
		unary(MethodGetSession, (*Server).getSession),
		unary(MethodSignUp, (*Server).signUp),
		unary(MethodSignIn, (*Server).signIn),
		unary(MethodSignOut, (*Server).signOut),
		unary(MethodRefresh, (*Server).refresh),
		unary(MethodListMessages, (*Server).listMessages),
		unary(MethodThread, (*Server).thread),
		unary(MethodGetProfile, (*Server).getProfile),
		unary(MethodGetProfiles, (*Server).getProfiles),
		unary(MethodSearchProfiles, (*Server).searchProfiles),
		unary(MethodListStatus, (*Server).listStatus),
		unary(MethodSendMessage, (*Server).sendMessage),
		unary(MethodMarkRead, (*Server).markRead),
		unary(MethodUpdateProfile, (*Server).updateProfile),
		unary(MethodPostStatus, (*Server).postStatus),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatch,
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(*Server).watch(in, stream)
			},
		},
	},
	Metadata: "blackzap/v1/backend",
}

// unary builds a method descriptor that decodes Req, runs the interceptor
// chain and converts backend errors to gRPC statuses.
func unary[Req, Resp any](name string, call func(*Server, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			handler := func(ctx context.Context, req any) (any, error) {
				resp, err := call(s, ctx, req.(*Req))
				if err != nil {
					return nil, ToStatus(err)
				}
				return resp, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, handler)
		},
	}
}
