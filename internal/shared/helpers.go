// Package shared provides small helpers used by more than one adapter.
package shared

import (
	"fmt"
	"strings"
)

// StatusError describes a non-2xx HTTP response for a fetched document.
type StatusError struct {
	Status int
	URL    string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status=%d url=%s", e.Status, e.URL)
	}
	return fmt.Sprintf("status=%d url=%s response=%s", e.Status, e.URL, e.Body)
}

// NotFound reports whether the server said the document does not exist.
func (e *StatusError) NotFound() bool {
	return e.Status == 404 || e.Status == 410
}

// NewStatusError keeps the trimmed response body, which servers often use
// to explain why a schema could not be served.
func NewStatusError(status int, url string, body string) *StatusError {
	return &StatusError{Status: status, URL: url, Body: strings.TrimSpace(body)}
}
