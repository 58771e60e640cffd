package api

import (
	"strings"
	"testing"
)

func TestGeneratedIDs(t *testing.T) {
	seenResp := map[string]bool{}
	seenMsg := map[string]bool{}
	for i := 0; i < 500; i++ {
		r, m := NewResponseID(), NewMessageID()
		if !ValidateResponseID(r) {
			t.Fatalf("NewResponseID() = %q", r)
		}
		if !ValidateMessageID(m) {
			t.Fatalf("NewMessageID() = %q", m)
		}
		if seenResp[r] {
			t.Fatalf("duplicate response id %q", r)
		}
		seenResp[r] = true
		seenMsg[m] = true
	}
	// Eight hex digits leave room for rare collisions, not for many.
	if len(seenMsg) < 495 {
		t.Errorf("only %d distinct message ids out of 500", len(seenMsg))
	}
}

func TestMessageIDIsUUIDPrefix(t *testing.T) {
	id := NewMessageID()
	if !strings.HasPrefix(id, MessageIDPrefix) || len(id) != len(MessageIDPrefix)+8 {
		t.Errorf("NewMessageID() = %q", id)
	}
}

func TestValidateIDs(t *testing.T) {
	tests := []struct {
		id       string
		validate func(string) bool
		want     bool
	}{
		{"resp_abcdefghijklmnopqrstuvwx", ValidateResponseID, true},
		{"resp_ABCDEF123456789012345678", ValidateResponseID, true},
		{"run_abcdefghijklmnopqrstuvwx", ValidateResponseID, false},
		{"resp_abc", ValidateResponseID, false},
		{"resp_abcdefghijklmnopqrstuvwxy", ValidateResponseID, false},
		{"resp_abcdefghijklmnopqrstu-_!", ValidateResponseID, false},
		{"", ValidateResponseID, false},
		{"msg_0a1b2c3d", ValidateMessageID, true},
		{"msg_0A1B2C3D", ValidateMessageID, false},
		{"msg_0a1b", ValidateMessageID, false},
		{"msg_0a1b2c3d4", ValidateMessageID, false},
		{"item_0a1b2c3d", ValidateMessageID, false},
		{"msg_", ValidateMessageID, false},
	}
	for _, tt := range tests {
		if got := tt.validate(tt.id); got != tt.want {
			t.Errorf("validate(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
