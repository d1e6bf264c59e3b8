package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &APIError{Status: status, Message: payload.Error}
	}
	return &APIError{Status: status, Message: fmt.Sprintf("HTTP error! status: %d", status)}
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsConflict reports whether err is a 409 from the backend.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
