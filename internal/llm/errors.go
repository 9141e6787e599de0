package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrQuotaExceeded marks a rate-limit or usage-quota rejection
var ErrQuotaExceeded = errors.New("quota exceeded")

// APIError is a non-2xx reply from a provider's HTTP API
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrQuotaExceeded) match HTTP 429 replies
func (e *APIError) Is(target error) bool {
	return target == ErrQuotaExceeded && e.StatusCode == http.StatusTooManyRequests
}

// newAPIError builds an APIError from a reply body, preferring the
// provider's structured message when present
func newAPIError(provider string, status int, body []byte) *APIError {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
		var s string
		var obj struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		}
		switch {
		case json.Unmarshal(payload.Error, &s) == nil && s != "":
			msg = s
		case json.Unmarshal(payload.Error, &obj) == nil && obj.Message != "":
			msg = obj.Message
			if obj.Status != "" {
				msg = obj.Status + ": " + msg
			}
		}
	}
	return &APIError{Provider: provider, StatusCode: status, Message: msg}
}

// wrapQuota tags err with ErrQuotaExceeded when status is 429
func wrapQuota(provider string, status int, err error) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %w", provider, ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%s API error: %w", provider, err)
}
