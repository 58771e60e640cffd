package api

import "testing"

func ptr[T any](v T) *T { return &v }

func TestValidateRequest(t *testing.T) {
	cfg := DefaultValidationConfig()

	tests := []struct {
		name      string
		req       *CreateResponseRequest
		wantParam string
	}{
		{
			name: "empty request",
			req:  &CreateResponseRequest{},
		},
		{
			name: "string input",
			req:  &CreateResponseRequest{Input: &Input{Text: ptr("hi")}, Temperature: ptr(0.5)},
		},
		{
			name:      "temperature too high",
			req:       &CreateResponseRequest{Temperature: ptr(2.5)},
			wantParam: "temperature",
		},
		{
			name:      "temperature negative",
			req:       &CreateResponseRequest{Temperature: ptr(-0.1)},
			wantParam: "temperature",
		},
		{
			name: "bad role",
			req: &CreateResponseRequest{Input: &Input{Messages: []InputMessage{
				{Role: "tool", Content: MessageContent{Text: ptr("x")}},
			}}},
			wantParam: "input[0].role",
		},
		{
			name: "bad message type",
			req: &CreateResponseRequest{Input: &Input{Messages: []InputMessage{
				{Role: "user", Type: ptr("function_call"), Content: MessageContent{Text: ptr("x")}},
			}}},
			wantParam: "input[0].type",
		},
		{
			name: "missing content",
			req: &CreateResponseRequest{Input: &Input{Messages: []InputMessage{
				{Role: "user"},
			}}},
			wantParam: "input[0].content",
		},
		{
			name: "bad content type",
			req: &CreateResponseRequest{Input: &Input{Messages: []InputMessage{
				{Role: "user", Content: MessageContent{Text: ptr("ok")}},
				{Role: "user", Content: MessageContent{Parts: []TextContent{{Type: "input_image", Text: "x"}}}},
			}}},
			wantParam: "input[1].content[0].type",
		},
		{
			name: "all roles",
			req: &CreateResponseRequest{Input: &Input{Messages: []InputMessage{
				{Role: "system", Content: MessageContent{Text: ptr("s")}},
				{Role: "developer", Content: MessageContent{Text: ptr("d")}},
				{Role: "user", Content: MessageContent{Parts: []TextContent{{Type: "input_text", Text: "u"}}}},
				{Role: "assistant", Content: MessageContent{Parts: []TextContent{{Type: "output_text", Text: "a"}}}},
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req, cfg)
			if tt.wantParam == "" {
				if err != nil {
					t.Fatalf("ValidateRequest() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateRequest() = nil, want error on %q", tt.wantParam)
			}
			if err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", err.Param, tt.wantParam)
			}
			if err.Type != ErrorTypeInvalidRequest {
				t.Errorf("Type = %q, want %q", err.Type, ErrorTypeInvalidRequest)
			}
		})
	}
}

func TestValidateRequestLimits(t *testing.T) {
	cfg := ValidationConfig{MaxInputMessages: 1, MaxContentSize: 4}

	err := ValidateRequest(&CreateResponseRequest{Input: &Input{Messages: []InputMessage{
		{Role: "user", Content: MessageContent{Text: ptr("a")}},
		{Role: "user", Content: MessageContent{Text: ptr("b")}},
	}}}, cfg)
	if err == nil || err.Param != "input" {
		t.Errorf("message limit: got %v, want input error", err)
	}

	err = ValidateRequest(&CreateResponseRequest{Input: &Input{Text: ptr("too long")}}, cfg)
	if err == nil || err.Param != "input" {
		t.Errorf("size limit: got %v, want input error", err)
	}
}
