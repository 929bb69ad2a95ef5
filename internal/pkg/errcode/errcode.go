package errcode

import (
	"errors"

	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
)

// Envelope codes shared by the server and the client.
const (
	ErrInternal = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrImportFormat
	ErrImportEmpty
	ErrAIUnavailable
)

type mapping struct {
	code int
	err  error
	msg  string
}

// Order matters only for errors wrapping more than one sentinel.
var mappings = []mapping{
	{ErrUnauthorized, appErr.ErrUnauthorized, "unauthorized"},
	{ErrForbidden, appErr.ErrForbidden, "forbidden"},
	{ErrNotFound, appErr.ErrNotFound, "not found"},
	{ErrInvalid, appErr.ErrInvalid, "invalid request"},
	{ErrConflict, appErr.ErrConflict, "conflict"},
	{ErrTooMany, appErr.ErrTooMany, "too many items"},
	{ErrImportEmpty, appErr.ErrImportEmpty, "no bookmarks found"},
	{ErrImportFormat, appErr.ErrImportFormat, "unsupported bookmark file"},
}

// FromError picks the envelope code and public message for err. Unknown
// errors report false with ErrInternal.
func FromError(err error) (int, string, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m.code, m.msg, true
		}
	}
	return ErrInternal, "internal error", false
}

// ToError maps a code back to its sentinel, or nil when the code has none.
func ToError(code int) error {
	for _, m := range mappings {
		if m.code == code {
			return m.err
		}
	}
	return nil
}
