package upload

import (
	"errors"
	"fmt"
)

// ErrUploadInFlight is returned when a second upload is started while one
// is already running. The dispatcher runs exactly one task at a time.
var ErrUploadInFlight = errors.New("an upload is already in progress")

// ErrNotAuthenticated means no stored OAuth token exists yet; the user has
// to run the browser authorisation flow first.
var ErrNotAuthenticated = errors.New("not authenticated with YouTube")

// UploadError represents an HTTP-level failure from the upload endpoint.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether the failure is transient. Only the server
// errors the resumable protocol documents as retriable qualify; everything
// else, auth failures included, is permanent.
func (e *UploadError) IsRetryable() bool {
	switch e.StatusCode {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
