package client

import (
	"fmt"

	"github.com/xxxsen/bmark/internal/pkg/errcode"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
)

// APIError is a non-zero envelope code returned by the server.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Msg)
}

// Unwrap maps the code back to the shared sentinel, so callers can use
// errors.Is(err, appErr.ErrUnauthorized) and friends.
func (e *APIError) Unwrap() error {
	if e.Code == errcode.ErrAIUnavailable {
		return ErrAIUnavailable
	}
	if err := errcode.ToError(e.Code); err != nil {
		return err
	}
	return appErr.ErrInternal
}
