package api

import (
	"crypto/rand"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ID prefixes.
const (
	ResponseIDPrefix = "resp_"
	MessageIDPrefix  = "msg_"
)

var (
	responseIDPattern = regexp.MustCompile(`^resp_[a-zA-Z0-9]{24}$`)
	messageIDPattern  = regexp.MustCompile(`^msg_[0-9a-f]{8}$`)
)

// NewResponseID returns "resp_" followed by 24 random alphanumerics. It
// names responses whose run did not report an id of its own.
func NewResponseID() string {
	return ResponseIDPrefix + strings.ToLower(rand.Text()[:24])
}

// NewMessageID returns "msg_" followed by the first eight hex digits of a
// random UUID.
func NewMessageID() string {
	return MessageIDPrefix + uuid.NewString()[:8]
}

// ValidateResponseID reports whether id looks like a generated response id.
func ValidateResponseID(id string) bool {
	return responseIDPattern.MatchString(id)
}

// ValidateMessageID reports whether id looks like a generated message id.
func ValidateMessageID(id string) bool {
	return messageIDPattern.MatchString(id)
}
