package api

import (
	"encoding/json"
	"testing"
)

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with param",
			&APIError{Type: ErrorTypeInvalidRequest, Param: "model", Message: "is required"},
			"invalid_request: is required (param: model)",
		},
		{
			"with code",
			NewUpstreamError(CodeUpstreamExhausted, "stream ended early"),
			"upstream_error[upstream_exhausted]: stream ended early",
		},
		{
			"plain",
			&APIError{Type: ErrorTypeServerError, Message: "internal failure"},
			"server_error: internal failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *APIError
		wantType  ErrorType
		wantParam string
		wantCode  string
	}{
		{"invalid request", NewInvalidRequestError("model", "is required"), ErrorTypeInvalidRequest, "model", ""},
		{"not found", NewNotFoundError("response not found"), ErrorTypeNotFound, "", ""},
		{"server error", NewServerError("internal failure"), ErrorTypeServerError, "", ""},
		{"upstream", NewUpstreamError(CodeProtocolViolation, "bad order"), ErrorTypeUpstreamError, "", CodeProtocolViolation},
		{"unauthorized", NewUnauthorizedError("missing credentials"), ErrorTypeUnauthorized, "", ""},
		{"too many requests", NewTooManyRequestsError("rate limit exceeded"), ErrorTypeTooManyRequests, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.err.Type, tt.wantType)
			}
			if tt.err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", tt.err.Param, tt.wantParam)
			}
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestErrorResponseOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(ErrorResponse{Error: NewServerError("fail")})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"error":{"type":"server_error","message":"fail"}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
