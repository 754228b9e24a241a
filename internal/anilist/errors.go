package anilist

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEnvelope means data.Page.media is absent or not a list.
	ErrEnvelope = errors.New("unexpected response envelope")
	// ErrMalformedResponse means the body was not JSON at all.
	ErrMalformedResponse = errors.New("malformed response body")

	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid field value")
)

// FieldError reports which item and field failed normalization.
type FieldError struct {
	Index int    // position in data.Page.media
	ID    string // media id when it could be read
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "media[%d]", e.Index)
	if e.ID != "" {
		fmt.Fprintf(&b, " id=%s", e.ID)
	}
	fmt.Fprintf(&b, ": %s: %v", e.Field, e.Err)
	return b.String()
}

func (e *FieldError) Unwrap() error { return e.Err }

// HTTPStatusError is returned when the endpoint answers with a non-2xx status.
type HTTPStatusError struct {
	StatusCode int
	Body       string // truncated
}

func (e *HTTPStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("anilist: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("anilist: HTTP %d: %s", e.StatusCode, body)
}
