package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned by Me when the backend does not recognize
// the ambient credentials.
var ErrUnauthenticated = errors.New("not authenticated")

// APIError is a non-2xx response from the backend. Message holds the most
// specific text the body offered.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// TransportError is a request that never completed: connection refused,
// timeout, DNS failure. It is deliberately distinct from APIError so
// callers never conflate "the server said no" with "we never heard back".
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network or server error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// errorFromResponse extracts the most useful message from a failed
// response: a structured {"message"} or {"error"} body, else the raw body
// text, else a generic message carrying the status code.
func errorFromResponse(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("request failed with status %d", resp.StatusCode),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var structured struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		if structured.Message != "" {
			apiErr.Message = structured.Message
			return apiErr
		}
		if structured.Error != "" {
			apiErr.Message = structured.Error
			return apiErr
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		apiErr.Message = text
	}
	return apiErr
}
