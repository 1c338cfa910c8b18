package backend

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned when a call needs a valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when a caller acts on another user's data.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned by SignIn on a bad email/password.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrEmailTaken is returned by SignUp when the email is registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken is returned when a username is already in use.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidArgument is returned for malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoSession is returned by client operations that need a signed-in
	// identity when there is none.
	ErrNoSession = errors.New("no active session")
)
