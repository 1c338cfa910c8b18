package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/blackzap/internal/backend"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "blackzap.v1"

var sentinels = []struct {
	err    error
	code   codes.Code
	reason string
}{
	{backend.ErrNotFound, codes.NotFound, "NOT_FOUND"},
	{backend.ErrUnauthenticated, codes.Unauthenticated, "UNAUTHENTICATED"},
	{backend.ErrNoSession, codes.Unauthenticated, "NO_SESSION"},
	{backend.ErrInvalidCredentials, codes.Unauthenticated, "INVALID_CREDENTIALS"},
	{backend.ErrForbidden, codes.PermissionDenied, "FORBIDDEN"},
	{backend.ErrEmailTaken, codes.AlreadyExists, "EMAIL_TAKEN"},
	{backend.ErrUsernameTaken, codes.AlreadyExists, "USERNAME_TAKEN"},
	{backend.ErrInvalidArgument, codes.InvalidArgument, "INVALID_ARGUMENT"},
}

// ToStatus converts a backend error into a gRPC status error carrying an
// ErrorInfo detail that FromStatus maps back to the same sentinel.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	for _, s := range sentinels {
		if !errors.Is(err, s.err) {
			continue
		}
		st := status.New(s.code, err.Error())
		if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: s.reason, Domain: errorDomain}); derr == nil {
			st = detailed
		}
		return st.Err()
	}
	return status.Error(codes.Internal, err.Error())
}

// FromStatus converts a gRPC status error back into the backend sentinel
// it was built from. Other errors are returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		for _, s := range sentinels {
			if s.reason == info.GetReason() {
				return wrapMessage(s.err, st.Message())
			}
		}
	}
	if st.Code() == codes.Unauthenticated {
		return wrapMessage(backend.ErrUnauthenticated, st.Message())
	}
	return err
}

func wrapMessage(sentinel error, msg string) error {
	rest, found := strings.CutPrefix(msg, sentinel.Error())
	switch {
	case found && rest == "":
		return sentinel
	case found:
		return fmt.Errorf("%w%s", sentinel, rest)
	default:
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
}
