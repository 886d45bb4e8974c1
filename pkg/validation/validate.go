package validation

import (
	"fmt"
	"strings"
)

// Error reports a rejected send request. Validation happens before any side
// effect, so a returned *Error guarantees nothing was persisted or delivered.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

var maxContentLength = 4096

// SetMaxContentLength installs the configured content bound. Called once at
// startup before any traffic is accepted.
func SetMaxContentLength(n int) {
	if n > 0 {
		maxContentLength = n
	}
}

// ValidateSend checks a send request: content must be non-empty after
// trimming and within the configured bound; sender and receiver must be
// non-empty and distinct.
func ValidateSend(sender, receiver, content string) error {
	if strings.TrimSpace(sender) == "" {
		return &Error{Field: "sender", Msg: "must not be empty"}
	}
	if strings.TrimSpace(receiver) == "" {
		return &Error{Field: "receiver", Msg: "must not be empty"}
	}
	if sender == receiver {
		return &Error{Field: "receiver", Msg: "must differ from sender"}
	}
	if strings.TrimSpace(content) == "" {
		return &Error{Field: "content", Msg: "must not be empty"}
	}
	if len(content) > maxContentLength {
		return &Error{Field: "content", Msg: fmt.Sprintf("exceeds maximum length %d", maxContentLength)}
	}
	return nil
}
