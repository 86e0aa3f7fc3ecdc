package validate

import (
	"strings"

	"YChat/logger"
)

// Rules holds the tunable validation limits (see config `limits`).
type Rules struct {
	MinUsernameLen     int
	MinPasswordLen     int
	MaxAttachmentBytes int64
}

func DefaultRules() Rules {
	return Rules{MinUsernameLen: 4, MinPasswordLen: 8, MaxAttachmentBytes: 5 << 20}
}

// IsMessageValid checks the minimal shape of an inbound chat message.
func (r Rules) IsMessageValid(conversationID, senderID, text string) bool {
	if strings.TrimSpace(conversationID) == "" ||
		strings.TrimSpace(senderID) == "" ||
		text == "" {
		return false
	}
	return true
}

// IsAttachmentSizeValid rejects attachments above the configured cap.
func (r Rules) IsAttachmentSizeValid(size int64) bool {
	if size > r.MaxAttachmentBytes {
		logger.Warn("attachment rejected: exceeds maximum size limit")
		return false
	}
	return true
}

func (r Rules) IsValidUsername(v string) bool {
	return len(v) >= r.MinUsernameLen
}

func (r Rules) IsValidPassword(v string) bool {
	return len(v) >= r.MinPasswordLen
}
