package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rhuss/strom/pkg/api"
)

var statusByErrorType = map[api.ErrorType]int{
	api.ErrorTypeInvalidRequest:  http.StatusBadRequest,
	api.ErrorTypeUnauthorized:    http.StatusUnauthorized,
	api.ErrorTypeNotFound:        http.StatusNotFound,
	api.ErrorTypeTooManyRequests: http.StatusTooManyRequests,
	api.ErrorTypeUpstreamError:   http.StatusBadGateway,
	api.ErrorTypeServerError:     http.StatusInternalServerError,
}

// HTTPStatusFromError returns the status code for err's type. Unknown types
// are treated as server errors. Body-level failures (413, 415, 405) never
// reach an APIError and are answered by the HTTP adapter directly.
func HTTPStatusFromError(err *api.APIError) int {
	if status, ok := statusByErrorType[err.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse writes apiErr as {"error":{...}} with the given status.
// It must be called before anything else was written to w.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr}); err != nil {
		slog.Debug("writing error body failed", "error", err)
	}
}

// WriteAPIError writes apiErr with the status derived from its type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}
