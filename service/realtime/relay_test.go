package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"YChat/module/chat/model"
	"YChat/module/chat/validate"
	"YChat/service/presence"
	"YChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- shared fakes ----

type emitRecord struct {
	connID string
	event  string
	data   any
}

type broadcastRecord struct {
	connIDs []string
	event   string
	data    any
}

type fakeEmitter struct {
	emits      []emitRecord
	withAcks   []emitRecord
	broadcasts []broadcastRecord
	lastAckCb  AckCallback

	deliver bool
	trace   *[]string
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{deliver: true}
}

func (e *fakeEmitter) Emit(connID, event string, data any) bool {
	e.emits = append(e.emits, emitRecord{connID, event, data})
	return e.deliver
}

func (e *fakeEmitter) EmitWithAck(connID, event string, data any, cb AckCallback) bool {
	e.withAcks = append(e.withAcks, emitRecord{connID, event, data})
	if e.deliver {
		e.lastAckCb = cb
	}
	return e.deliver
}

func (e *fakeEmitter) EmitToConns(connIDs []string, event string, data any) {
	if e.trace != nil {
		*e.trace = append(*e.trace, "fanout")
	}
	e.broadcasts = append(e.broadcasts, broadcastRecord{connIDs, event, data})
}

type fakeStore struct {
	members    map[string][]string
	membersErr error
	appendErr  error
	appended   []*model.ConversationMessage

	trace *[]string
}

func (s *fakeStore) GetMembers(_ context.Context, conversationID string) ([]string, error) {
	if s.membersErr != nil {
		return nil, s.membersErr
	}
	return s.members[conversationID], nil
}

func (s *fakeStore) AppendMessage(_ context.Context, msg *model.ConversationMessage) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	if s.trace != nil {
		*s.trace = append(*s.trace, "append")
	}
	s.appended = append(s.appended, msg)
	return nil
}

type putRecord struct {
	name string
	size int
}

type fakeObjects struct {
	puts   []putRecord
	putErr error
}

func (o *fakeObjects) Put(_ context.Context, name string, data []byte) error {
	if o.putErr != nil {
		return o.putErr
	}
	o.puts = append(o.puts, putRecord{name: name, size: len(data)})
	return nil
}

type ackRecorder struct {
	acks []*Ack
}

func (a *ackRecorder) send(ack *Ack) { a.acks = append(a.acks, ack) }

// ---- helpers ----

var testTime = time.UnixMilli(1700000000000)

func newTestRelay(dir *presence.Directory, store *fakeStore, objects *fakeObjects, em *fakeEmitter) *MessageRelay {
	r := NewMessageRelay(dir, store, objects, validate.Rules{MaxAttachmentBytes: 1 << 20}, em)
	r.now = func() time.Time { return testTime }
	seq := 0
	r.newMsgID = func() string {
		seq++
		return fmt.Sprintf("message-%d", seq)
	}
	return r
}

func connectUser(dir *presence.Directory, user string, conns ...string) {
	for _, c := range conns {
		dir.AddConnection(user, c, presence.Session{AuthTokenID: "tok-" + user})
	}
}

var alice = Identity{UserID: "alice", AuthTokenID: "tok-alice"}

// ---- tests ----

func TestSendMessagePersistsThenFansOut(t *testing.T) {
	dir := presence.NewDirectory()
	connectUser(dir, "alice", "a1")
	connectUser(dir, "bob", "b1", "b2")
	connectUser(dir, "carol", "c1")

	var trace []string
	store := &fakeStore{members: map[string][]string{"conv1": {"alice", "bob", "carol"}}, trace: &trace}
	em := newFakeEmitter()
	em.trace = &trace
	relay := newTestRelay(dir, store, &fakeObjects{}, em)

	rec := &ackRecorder{}
	err := relay.SendMessage(context.Background(), alice,
		&MessageInput{ConversationID: "conv1", Text: "hi", LocalMessageID: "local-7"}, rec.send, false)
	require.NoError(t, err)

	require.Len(t, store.appended, 1)
	msg := store.appended[0]
	assert.Equal(t, "conv1", msg.ConversationID)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, "hi", msg.Text)
	assert.Equal(t, model.TypeMessage, msg.Type)
	assert.Equal(t, testTime.UnixMilli(), msg.Timestamp)

	require.Len(t, em.broadcasts, 1)
	bc := em.broadcasts[0]
	assert.Equal(t, "message", bc.event)
	assert.ElementsMatch(t, []string{"b1", "b2", "c1"}, bc.connIDs)
	assert.Same(t, msg, bc.data)

	// persistence strictly precedes fan-out
	assert.Equal(t, []string{"append", "fanout"}, trace)

	require.Len(t, rec.acks, 1)
	ack := rec.acks[0]
	assert.Equal(t, StatusSuccess, ack.Status)
	data, ok := ack.Data.(*MessageAckData)
	require.True(t, ok)
	assert.Equal(t, msg.MessageID, data.MessageID)
	assert.Equal(t, "sent", data.Status)
	assert.Equal(t, "local-7", data.LocalMessageID)
}

func TestSendMessageEchoesToSenderWhenEnabled(t *testing.T) {
	dir := presence.NewDirectory()
	connectUser(dir, "alice", "a1", "a2")
	connectUser(dir, "bob", "b1")

	store := &fakeStore{members: map[string][]string{"conv1": {"alice", "bob"}}}
	em := newFakeEmitter()
	relay := newTestRelay(dir, store, &fakeObjects{}, em)

	rec := &ackRecorder{}
	err := relay.SendMessage(context.Background(), alice,
		&MessageInput{ConversationID: "conv1", Text: "hi"}, rec.send, true)
	require.NoError(t, err)

	require.Len(t, em.broadcasts, 1)
	assert.ElementsMatch(t, []string{"a1", "a2", "b1"}, em.broadcasts[0].connIDs)
}

func TestSendMessageValidationFailure(t *testing.T) {
	dir := presence.NewDirectory()
	store := &fakeStore{}
	relay := newTestRelay(dir, store, &fakeObjects{}, newFakeEmitter())

	rec := &ackRecorder{}
	err := relay.SendMessage(context.Background(), alice,
		&MessageInput{ConversationID: "conv1", Text: ""}, rec.send, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidationFailed))
	assert.Empty(t, store.appended)
	assert.Empty(t, rec.acks)
}

func TestSendMessageNonMemberForbidden(t *testing.T) {
	dir := presence.NewDirectory()
	store := &fakeStore{members: map[string][]string{"conv1": {"bob", "carol"}}}
	relay := newTestRelay(dir, store, &fakeObjects{}, newFakeEmitter())

	err := relay.SendMessage(context.Background(), alice,
		&MessageInput{ConversationID: "conv1", Text: "hi"}, (&ackRecorder{}).send, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrForbidden))
	assert.Empty(t, store.appended)
}

func TestSendMessageMembersLookupFailure(t *testing.T) {
	dir := presence.NewDirectory()
	store := &fakeStore{membersErr: fmt.Errorf("mongo down")}
	relay := newTestRelay(dir, store, &fakeObjects{}, newFakeEmitter())

	err := relay.SendMessage(context.Background(), alice,
		&MessageInput{ConversationID: "conv1", Text: "hi"}, (&ackRecorder{}).send, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDependencyFailed))
}

func TestSendMessagePersistFailureAcksOriginalInput(t *testing.T) {
	dir := presence.NewDirectory()
	connectUser(dir, "bob", "b1")
	store := &fakeStore{
		members:   map[string][]string{"conv1": {"alice", "bob"}},
		appendErr: fmt.Errorf("write concern failed"),
	}
	em := newFakeEmitter()
	relay := newTestRelay(dir, store, &fakeObjects{}, em)

	in := &MessageInput{ConversationID: "conv1", Text: "hi", LocalMessageID: "local-1"}
	rec := &ackRecorder{}
	err := relay.SendMessage(context.Background(), alice, in, rec.send, false)

	// failure reported through the ack, not the error return
	require.NoError(t, err)
	assert.Empty(t, em.broadcasts)
	require.Len(t, rec.acks, 1)
	assert.Equal(t, StatusFailed, rec.acks[0].Status)
	assert.Same(t, in, rec.acks[0].Data)
}

func TestSendMessageWithAttachment(t *testing.T) {
	pngBytes := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	dir := presence.NewDirectory()
	connectUser(dir, "bob", "b1")
	store := &fakeStore{members: map[string][]string{"conv1": {"alice", "bob"}}}
	objects := &fakeObjects{}
	relay := newTestRelay(dir, store, objects, newFakeEmitter())

	rec := &ackRecorder{}
	err := relay.SendMessage(context.Background(), alice, &MessageInput{
		ConversationID: "conv1",
		Text:           "see attached",
		File:           base64.StdEncoding.EncodeToString(pngBytes),
	}, rec.send, false)
	require.NoError(t, err)

	require.Len(t, objects.puts, 1)
	assert.Equal(t, "conv1_alice_message-1.png", objects.puts[0].name)
	assert.Equal(t, len(pngBytes), objects.puts[0].size)

	require.Len(t, store.appended, 1)
	assert.Equal(t, "conv1_alice_message-1.png", store.appended[0].File)
}

func TestSendMessageAttachmentNotBase64(t *testing.T) {
	dir := presence.NewDirectory()
	store := &fakeStore{members: map[string][]string{"conv1": {"alice"}}}
	relay := newTestRelay(dir, store, &fakeObjects{}, newFakeEmitter())

	err := relay.SendMessage(context.Background(), alice, &MessageInput{
		ConversationID: "conv1", Text: "x", File: "%%%not-base64%%%",
	}, (&ackRecorder{}).send, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidationFailed))
	assert.Empty(t, store.appended)
}

func TestSendMessageAttachmentUnrecognisedType(t *testing.T) {
	dir := presence.NewDirectory()
	store := &fakeStore{members: map[string][]string{"conv1": {"alice"}}}
	objects := &fakeObjects{}
	relay := newTestRelay(dir, store, objects, newFakeEmitter())

	err := relay.SendMessage(context.Background(), alice, &MessageInput{
		ConversationID: "conv1", Text: "x",
		File: base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03, 0x04}),
	}, (&ackRecorder{}).send, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnsupportedMediaType))
	assert.Empty(t, objects.puts)
}

func TestSendMessageAttachmentTooLarge(t *testing.T) {
	pngBytes := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
	dir := presence.NewDirectory()
	store := &fakeStore{members: map[string][]string{"conv1": {"alice"}}}
	relay := NewMessageRelay(dir, store, &fakeObjects{},
		validate.Rules{MaxAttachmentBytes: 16}, newFakeEmitter())

	err := relay.SendMessage(context.Background(), alice, &MessageInput{
		ConversationID: "conv1", Text: "x",
		File: base64.StdEncoding.EncodeToString(pngBytes),
	}, (&ackRecorder{}).send, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidationFailed))
}

func TestSendMessageUploadFailure(t *testing.T) {
	pngBytes := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	dir := presence.NewDirectory()
	store := &fakeStore{members: map[string][]string{"conv1": {"alice"}}}
	objects := &fakeObjects{putErr: fmt.Errorf("bucket unavailable")}
	relay := newTestRelay(dir, store, objects, newFakeEmitter())

	err := relay.SendMessage(context.Background(), alice, &MessageInput{
		ConversationID: "conv1", Text: "x",
		File: base64.StdEncoding.EncodeToString(pngBytes),
	}, (&ackRecorder{}).send, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDependencyFailed))
	assert.Empty(t, store.appended)
}

func TestSendMessageOfflineRecipientsGetNothing(t *testing.T) {
	dir := presence.NewDirectory()
	// bob has no live connection at all
	store := &fakeStore{members: map[string][]string{"conv1": {"alice", "bob"}}}
	em := newFakeEmitter()
	relay := newTestRelay(dir, store, &fakeObjects{}, em)

	rec := &ackRecorder{}
	err := relay.SendMessage(context.Background(), alice,
		&MessageInput{ConversationID: "conv1", Text: "hi"}, rec.send, false)
	require.NoError(t, err)

	// persisted and acknowledged, but nothing to deliver to
	require.Len(t, store.appended, 1)
	require.Len(t, em.broadcasts, 1)
	assert.Empty(t, em.broadcasts[0].connIDs)
	require.Len(t, rec.acks, 1)
	assert.Equal(t, StatusSuccess, rec.acks[0].Status)
}

func TestServerEventNewConversation(t *testing.T) {
	dir := presence.NewDirectory()
	connectUser(dir, "alice", "a1")
	connectUser(dir, "bob", "b1", "b2")
	em := newFakeEmitter()

	events := NewServerEventEmitter(dir, em)
	events.NewConversation([]string{"alice", "bob", "offline-user"}, map[string]any{"conversationId": "conv9"})

	require.Len(t, em.broadcasts, 1)
	assert.Equal(t, "new conversation", em.broadcasts[0].event)
	assert.ElementsMatch(t, []string{"a1", "b1", "b2"}, em.broadcasts[0].connIDs)
}
