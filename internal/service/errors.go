package service

import "errors"

// Error kinds. Handlers map each kind to one HTTP status.
var (
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	ErrAuth        = errors.New("unauthorized")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not found")
	ErrUpstream    = errors.New("upstream failure")
	ErrRateLimited = errors.New("rate limited")
	ErrGeneration  = errors.New("generation failed")
)

// Error carries a kind, a client-facing message and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func validationError(err error) *Error {
	return newError(ErrValidation, err.Error(), err)
}

func conflictError(msg string, cause error) *Error { return newError(ErrConflict, msg, cause) }
func authError(msg string) *Error                  { return newError(ErrAuth, msg, nil) }
func forbiddenError(msg string) *Error             { return newError(ErrForbidden, msg, nil) }
func upstreamError(msg string, cause error) *Error { return newError(ErrUpstream, msg, cause) }

// Message returns the client-facing text of err when it is a *Error.
func Message(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Error(), true
	}
	return "", false
}
