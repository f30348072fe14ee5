// Package apierrors turns non-2xx HTTP responses from the backend, WordPress
// and Serper into structured errors.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MinErrorStatusCode is the lowest status treated as an error.
const MinErrorStatusCode = 400

// maxBodyBytes bounds how much of an error body is kept.
const maxBodyBytes = 64 << 10

// HTTPError represents an HTTP API error response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	Message    string
	// Code is the WordPress-style machine code, e.g. rest_post_invalid_id.
	Code string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP error (%d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Status)
}

// ParseHTTPError reads resp.Body and returns an *HTTPError for error statuses, nil otherwise.
// It understands {"error": ...}, {"message": ..., "code": ...} (WordPress) and plain bodies.
func ParseHTTPError(resp *http.Response) error {
	if resp.StatusCode < MinErrorStatusCode {
		return nil
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    fmt.Sprintf("failed to read error response body: %v", err),
		}
	}

	bodyStr := strings.TrimSpace(string(bodyBytes))

	var jsonErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}

	if json.Unmarshal(bodyBytes, &jsonErr) == nil && (jsonErr.Error != "" || jsonErr.Message != "") {
		msg := jsonErr.Error
		if msg == "" {
			msg = jsonErr.Message
		}
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       bodyStr,
			Message:    msg,
			Code:       jsonErr.Code,
		}
	}

	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       bodyStr,
		Message:    bodyStr,
	}
}

// StatusCode extracts the HTTP status from err when it wraps an *HTTPError.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}

// IsRetryableStatus reports whether status is worth retrying (429 or 5xx).
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
