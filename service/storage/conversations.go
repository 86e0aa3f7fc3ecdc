package storage

import (
	"context"

	"YChat/module/chat/model"
	"YChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoConversationStore is the document-store collaborator behind the
// realtime core: conversation membership lookups and message appends.
type MongoConversationStore struct {
	db *mongo.Database
}

func NewMongoConversationStore(db *mongo.Database) *MongoConversationStore {
	return &MongoConversationStore{db: db}
}

func (s *MongoConversationStore) members() *mongo.Collection {
	return s.db.Collection(model.MemberTableName)
}

func (s *MongoConversationStore) messages() *mongo.Collection {
	return s.db.Collection(model.MsgTableName)
}

// GetMembers returns the member user ids of a conversation.
func (s *MongoConversationStore) GetMembers(ctx context.Context, conversationID string) ([]string, error) {
	cur, err := s.members().Find(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return nil, errs.WrapMsg(err, "find conversation members")
	}
	defer cur.Close(ctx)

	var rows []model.ConversationMember
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errs.WrapMsg(err, "decode conversation members")
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.MemberID)
	}
	return out, nil
}

// CreateConversation records the membership rows of a new conversation.
func (s *MongoConversationStore) CreateConversation(ctx context.Context, conversationID string, memberIDs []string) error {
	docs := make([]interface{}, 0, len(memberIDs))
	for _, m := range memberIDs {
		docs = append(docs, model.ConversationMember{ConversationID: conversationID, MemberID: m})
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.members().InsertMany(ctx, docs); err != nil {
		return errs.WrapMsg(err, "insert conversation members")
	}
	return nil
}

// AppendMessage inserts one message record into conversation history.
func (s *MongoConversationStore) AppendMessage(ctx context.Context, msg *model.ConversationMessage) error {
	if _, err := s.messages().InsertOne(ctx, msg); err != nil {
		return errs.WrapMsg(err, "insert conversation message")
	}
	return nil
}

// MessagesByConversation is the read side used by the HTTP history route.
func (s *MongoConversationStore) MessagesByConversation(ctx context.Context, conversationID string, limit int64) ([]model.ConversationMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := s.messages().Find(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return nil, errs.WrapMsg(err, "find conversation messages")
	}
	defer cur.Close(ctx)

	var rows []model.ConversationMessage
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errs.WrapMsg(err, "decode conversation messages")
	}
	if int64(len(rows)) > limit {
		rows = rows[int64(len(rows))-limit:]
	}
	return rows, nil
}
