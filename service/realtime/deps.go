package realtime

import (
	"context"
	"net/http"

	"YChat/module/chat/model"
	"YChat/tools/security"
)

// External collaborators of the realtime core. The document store, blob
// store, token validation and message validation all live elsewhere; the core
// only depends on these shapes.

type ConversationStore interface {
	GetMembers(ctx context.Context, conversationID string) ([]string, error)
	AppendMessage(ctx context.Context, msg *model.ConversationMessage) error
}

type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte) error
}

type MessageValidator interface {
	IsMessageValid(conversationID, senderID, text string) bool
	IsAttachmentSizeValid(size int64) bool
}

// TokenValidator authenticates a new connection from its upgrade request,
// returning the verified identity and auth-session id.
type TokenValidator interface {
	Validate(r *http.Request) (*security.Claims, error)
}

// Identity is what a live connection knows about its user.
type Identity struct {
	UserID      string
	AuthTokenID string
}

func (id Identity) valid() bool {
	return id.UserID != "" && id.AuthTokenID != ""
}
