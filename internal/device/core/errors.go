package core

import "fmt"

// HTTPStatusError is a non-2xx answer from CORE.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// ClientError reports a 4xx status.
func (e *HTTPStatusError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
