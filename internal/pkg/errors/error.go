package xerrors

import "errors"

// Common reusable application errors
var (
	ErrInternal       = errors.New("internal server error")
	ErrSessionExpired = errors.New("session expired or invalid")
)

// Login failure kinds. Each failed login carries exactly one of these.
var (
	ErrConnection      = errors.New("backend unreachable")
	ErrBackendRejected = errors.New("backend rejected credentials")
	ErrInvalidResponse = errors.New("invalid signin response")
	ErrAccountDisabled = errors.New("account disabled")
	ErrRoleData        = errors.New("role data unavailable")
	ErrRateLimited     = errors.New("too many requests")
)

// UserError pairs a failure kind with the message shown to the user.
// Error returns the message unchanged so it can go straight into a toast.
type UserError struct {
	Kind    error
	Message string
	Err     error
}

func NewUserError(kind error, message string, cause error) *UserError {
	return &UserError{Kind: kind, Message: message, Err: cause}
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage returns the user-facing message carried by err, or fallback
// when err is not a *UserError.
func UserMessage(err error, fallback string) string {
	var ue *UserError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return fallback
}
