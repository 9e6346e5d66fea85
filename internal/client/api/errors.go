package api

import (
	"errors"
	"fmt"
)

// ErrAuthExpired is returned when the session cannot be recovered: there is
// no refresh token, the refresh call failed, or the retried request was
// rejected again. Stored credentials are cleared before it is returned.
var ErrAuthExpired = errors.New("authentication expired, please log in again")

// Error is a failed API call. Status is the HTTP status code, or 0 when the
// request never reached the server.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}
