package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a request rejected by a business rule.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a request that clashes with current state.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized indicates a missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller lacking access.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Error carries a user facing message and a sentinel kind for errors.Is checks.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Invalid builds an ErrValidation with the given message.
func Invalid(message string) error {
	return &Error{Kind: ErrValidation, Message: message}
}

// NotFound builds an ErrNotFound with the given message.
func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// Conflict builds an ErrConflict with the given message.
func Conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}
