package claims

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("claim not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("not permitted for role")
)

// Kind names the error category of err, or "internal" for anything else.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrUnauthorized):
		return "authorization"
	default:
		return "internal"
	}
}
