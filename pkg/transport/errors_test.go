package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/strom/pkg/api"
)

func TestWriteAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        *api.APIError
		wantStatus int
	}{
		{"invalid request", api.NewInvalidRequestError("model", "model is required"), http.StatusBadRequest},
		{"unauthorized", api.NewUnauthorizedError("bad key"), http.StatusUnauthorized},
		{"not found", api.NewNotFoundError("no in-flight response"), http.StatusNotFound},
		{"rate limited", api.NewTooManyRequestsError("slow down"), http.StatusTooManyRequests},
		{"upstream", api.NewUpstreamError(api.CodeUpstreamExhausted, "source ended"), http.StatusBadGateway},
		{"server", api.NewServerError("boom"), http.StatusInternalServerError},
		{"unknown type", &api.APIError{Type: "teapot", Message: "?"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusFromError(tt.err); got != tt.wantStatus {
				t.Errorf("HTTPStatusFromError = %d, want %d", got, tt.wantStatus)
			}

			rec := httptest.NewRecorder()
			WriteAPIError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var body api.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Error == nil || body.Error.Type != tt.err.Type || body.Error.Message != tt.err.Message {
				t.Errorf("body = %+v, want %+v", body.Error, tt.err)
			}
		})
	}
}

func TestWriteErrorResponseKeepsParamAndCode(t *testing.T) {
	rec := httptest.NewRecorder()
	apiErr := api.NewInvalidRequestError("input", "input must be a string or an array of messages")

	WriteErrorResponse(rec, apiErr, http.StatusUnprocessableEntity)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", rec.Code)
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if raw["error"]["param"] != "input" {
		t.Errorf("param = %v", raw["error"]["param"])
	}
}
