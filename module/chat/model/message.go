package model

import (
	"github.com/google/uuid"
)

const (
	MsgTableName    = "messages"
	MemberTableName = "conversation_members"

	// TypeMessage is a regular chat message; TypeCall is the marker logged
	// into conversation history when a call is initiated.
	TypeMessage = "message"
	TypeCall    = "call"

	// CallMarkerText is the display text of a call marker message.
	CallMarkerText = "Video Call"
)

// ConversationMessage is one message record in a conversation. The json tags
// are the wire shape clients receive on the `message` event; the bson tags
// are the stored shape.
type ConversationMessage struct {
	ConversationID string `bson:"conversation_id" json:"conversationId"`
	MessageID      string `bson:"message_id" json:"messageId"`
	SenderID       string `bson:"sender_id" json:"senderId"`
	Text           string `bson:"text" json:"message"`
	Type           string `bson:"type" json:"type"`
	Timestamp      int64  `bson:"timestamp" json:"msg_timeStamp"` // unix ms
	File           string `bson:"file,omitempty" json:"file,omitempty"`
}

// ConversationMember links a user to a conversation.
type ConversationMember struct {
	ConversationID string `bson:"conversation_id" json:"conversationId"`
	MemberID       string `bson:"member_id" json:"memberId"`
}

// NewMessageID returns a fresh message id in the `message-<uuid>` form the
// clients already parse.
func NewMessageID() string {
	return "message-" + uuid.NewString()
}
