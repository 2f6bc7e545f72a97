package domain

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCell         = errors.New("invalid cell")
	ErrInvalidSettings     = errors.New("invalid settings")
	ErrInvalidMode         = errors.New("invalid game mode")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTooSoon             = errors.New("too soon")
	ErrExhausted           = errors.New("all numbers called")
	ErrGameEnded           = errors.New("game has ended")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Kind is the coarse error taxonomy callers branch on.
type Kind string

const (
	KindNone                Kind = ""
	KindInvalidInput        Kind = "InvalidInput"
	KindNotFound            Kind = "NotFound"
	KindUnauthorized        Kind = "Unauthorized"
	KindConflict            Kind = "Conflict"
	KindExhausted           Kind = "Exhausted"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindInternal            Kind = "Internal"
)

// KindOf classifies err. Exhausted is checked before Conflict so the two
// never collapse into each other.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrExhausted):
		return KindExhausted
	case errors.Is(err, ErrTooSoon), errors.Is(err, ErrGameEnded):
		return KindConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidCell),
		errors.Is(err, ErrInvalidSettings), errors.Is(err, ErrInvalidMode),
		errors.Is(err, ErrUsernameEmpty), errors.Is(err, ErrUsernameTooLong):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	default:
		return KindInternal
	}
}
