package trim

import "errors"

var (
	ErrSubmitting      = errors.New("trim already in progress")
	ErrCompleted       = errors.New("trim already completed")
	ErrRangeTooShort   = errors.New("selection shorter than minimum trim duration")
	ErrLocked          = errors.New("session locked while trimming")
	ErrNoPlayer        = errors.New("no player attached")
	ErrNoVideo         = errors.New("no video loaded")
	ErrSessionClosed   = errors.New("session closed")
	ErrSessionNotFound = errors.New("session not found")
)

const genericFailureMessage = "Failed to trim video"

// serverMessager is implemented by remote errors that carry a message meant
// for the user.
type serverMessager interface {
	ServerMessage() string
}

// failureMessage returns the server-supplied message in err, if any, or
// the generic fallback.
func failureMessage(err error) string {
	var sm serverMessager
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		return sm.ServerMessage()
	}
	return genericFailureMessage
}
