package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/strom/pkg/api"
)

// MapHTTPError converts an HTTP response with a non-2xx status code into
// an APIError. It attempts to parse the response body for a descriptive
// message.
func MapHTTPError(resp *http.Response) *api.APIError {
	message := ExtractErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		if message == "" {
			message = "invalid request to agent"
		}
		return api.NewInvalidRequestError("", message)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "agent authentication failed"
		}
		return api.NewServerError(message)

	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = "agent resource not found"
		}
		return api.NewNotFoundError(message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "agent rate limit exceeded"
		}
		return api.NewTooManyRequestsError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("agent error (HTTP %d)", resp.StatusCode)
		}
		return api.NewUpstreamError("", message)
	}
}

// MapNetworkError converts a network-level error (connection refused,
// timeout, DNS failure) into an APIError.
func MapNetworkError(err error) *api.APIError {
	return api.NewUpstreamError("", fmt.Sprintf("agent connection error: %s", err.Error()))
}

// ExtractErrorMessage reads at most 4KiB of body and returns the message of
// an {"error":{"message":...}} or {"detail":...} payload, if present.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Error != nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	if s, ok := payload.Detail.(string); ok {
		return s
	}
	return ""
}
