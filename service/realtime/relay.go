package realtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"YChat/logger"
	"YChat/module/chat/model"
	"YChat/service/presence"
	"YChat/tools/errs"
)

// MessageRelay validates, persists and fans out chat messages. Persistence
// happens before fan-out, fan-out before the sender's acknowledgment; a
// recipient with no live connection simply receives nothing.
type MessageRelay struct {
	dir       *presence.Directory
	store     ConversationStore
	objects   ObjectStore
	validator MessageValidator
	emitter   Emitter
	now       func() time.Time
	newMsgID  func() string
}

func NewMessageRelay(dir *presence.Directory, store ConversationStore, objects ObjectStore, validator MessageValidator, emitter Emitter) *MessageRelay {
	return &MessageRelay{
		dir:       dir,
		store:     store,
		objects:   objects,
		validator: validator,
		emitter:   emitter,
		now:       time.Now,
		newMsgID:  model.NewMessageID,
	}
}

// MessageAckData is the success acknowledgment the sender gets back, echoing
// the persisted fields plus their own local id for client-side reconciliation.
type MessageAckData struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	MessageID      string `json:"messageId"`
	SenderID       string `json:"senderId"`
	TimeStamp      int64  `json:"timeStamp"`
	Status         string `json:"status"`
	File           string `json:"file,omitempty"`
	LocalMessageID string `json:"localMessageId"`
}

// SendMessage runs the full message pipeline. Validation, membership and
// attachment failures come back as a *errs.CodeError for the dispatcher to
// translate; a persistence failure after validation is acknowledged directly
// with the original input and a nil return (the sender can retry from it).
// includeSender controls whether the sender's own connections get the echo —
// that is how another device of the same user sees the message.
func (r *MessageRelay) SendMessage(ctx context.Context, sender Identity, in *MessageInput, ack AckSender, includeSender bool) error {
	if !sender.valid() || !r.validator.IsMessageValid(in.ConversationID, sender.UserID, in.Text) {
		return errs.ErrValidationFailed.WithDetail(
			"message data not correctly formatted, or authentication details missing from connection")
	}

	members, err := r.store.GetMembers(ctx, in.ConversationID)
	if err != nil {
		return errs.ErrDependencyFailed.WithDetail("retrieval of conversation members for permission check failed")
	}
	if !contains(members, sender.UserID) {
		return errs.ErrForbidden.WithDetail("attempt to send message in conversation where user is not a member")
	}

	recipients := make([]string, 0, len(members))
	for _, m := range members {
		if m == sender.UserID && !includeSender {
			continue
		}
		recipients = append(recipients, m)
	}

	msg := &model.ConversationMessage{
		ConversationID: in.ConversationID,
		MessageID:      r.newMsgID(),
		SenderID:       sender.UserID,
		Text:           in.Text,
		Type:           model.TypeMessage,
		Timestamp:      r.now().UnixMilli(),
	}

	if in.File != "" {
		name, aerr := r.storeAttachment(ctx, msg, in.File)
		if aerr != nil {
			return aerr
		}
		msg.File = name
	}

	if err := r.store.AppendMessage(ctx, msg); err != nil {
		// Local failure, reported through the ack rather than as an error:
		// the sender gets their input back and no fan-out happens.
		logger.Errorf("[relay] persist message failed conv=%s sender=%s: %v", in.ConversationID, sender.UserID, err)
		ack(&Ack{Status: StatusFailed, Data: in})
		return nil
	}

	r.emitter.EmitToConns(r.dir.ConnectionIDs(recipients), evMessage, msg)

	ack(&Ack{Status: StatusSuccess, Data: &MessageAckData{
		ConversationID: msg.ConversationID,
		Message:        msg.Text,
		MessageID:      msg.MessageID,
		SenderID:       msg.SenderID,
		TimeStamp:      msg.Timestamp,
		Status:         "sent",
		File:           msg.File,
		LocalMessageID: in.LocalMessageID,
	}})
	return nil
}

// storeAttachment decodes, sniffs and persists an attachment, returning the
// generated object name.
func (r *MessageRelay) storeAttachment(ctx context.Context, msg *model.ConversationMessage, fileB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(fileB64)
	if err != nil {
		return "", errs.ErrValidationFailed.WithDetail("attachment is not valid base64")
	}
	if !r.validator.IsAttachmentSizeValid(int64(len(raw))) {
		return "", errs.ErrValidationFailed.WithDetail("attachment exceeds maximum size limit")
	}
	ext, ok := sniffExtension(raw)
	if !ok {
		return "", errs.ErrUnsupportedMediaType.WithDetail("unrecognised file type")
	}

	name := fmt.Sprintf("%s_%s_%s.%s", msg.ConversationID, msg.SenderID, msg.MessageID, ext)
	if err := r.objects.Put(ctx, name, raw); err != nil {
		return "", errs.ErrDependencyFailed.WithDetail("unexpected issue encountered while uploading file")
	}
	return name, nil
}

// PersistAndFanout logs a marker message (call events) into conversation
// history and broadcasts it to every member's live connections. Fan-out only
// happens when the append succeeded.
func (r *MessageRelay) PersistAndFanout(ctx context.Context, msg *model.ConversationMessage, memberIDs []string) error {
	if err := r.store.AppendMessage(ctx, msg); err != nil {
		return errs.ErrDependencyFailed.WithDetail("persisting marker message failed")
	}
	r.emitter.EmitToConns(r.dir.ConnectionIDs(memberIDs), evMessage, msg)
	return nil
}

// NewMarkerMessage builds a call marker entry for conversation history.
func (r *MessageRelay) NewMarkerMessage(conversationID, senderID string) *model.ConversationMessage {
	return &model.ConversationMessage{
		ConversationID: conversationID,
		MessageID:      r.newMsgID(),
		SenderID:       senderID,
		Text:           model.CallMarkerText,
		Type:           model.TypeCall,
		Timestamp:      r.now().UnixMilli(),
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
