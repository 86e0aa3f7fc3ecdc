package realtime

// EventType enumerates every inbound realtime event. Dispatch switches over
// this closed set, so adding a variant without a handler arm is a compile-time
// smell rather than a silently dead string.
type EventType int

const (
	EventUnknown EventType = iota
	EventAck
	EventMessage
	EventCall
	EventRejectCall
	EventCancelCall
	EventSignal
	EventAnswer
	EventIceCandidate
	EventMutedAudio
	EventMutedVideo
)

// Wire names. Inbound names match what the clients already send; outbound
// names match what they already listen for.
const (
	evAck          = "ack"
	evMessage      = "message"
	evCall         = "call"
	evRejectCall   = "reject call"
	evCancelCall   = "cancel call"
	evSignal       = "signal"
	evAnswer       = "answer"
	evIceCandidate = "iceCandidate"
	evMutedAudio   = "mutedAudio"
	evMutedVideo   = "mutedVideo"

	evReceivingCall = "receiving call"
	evCallRejected  = "call rejected"
	evCallCancelled = "call cancelled"
	evOfferSignal   = "offer signal"
	evAnswerSignal  = "answer signal"

	evNewConversation = "new conversation"
)

var eventNames = map[string]EventType{
	evAck:          EventAck,
	evMessage:      EventMessage,
	evCall:         EventCall,
	evRejectCall:   EventRejectCall,
	evCancelCall:   EventCancelCall,
	evSignal:       EventSignal,
	evAnswer:       EventAnswer,
	evIceCandidate: EventIceCandidate,
	evMutedAudio:   EventMutedAudio,
	evMutedVideo:   EventMutedVideo,
}

func ParseEventType(name string) (EventType, bool) {
	t, ok := eventNames[name]
	return t, ok
}

func (t EventType) String() string {
	for name, v := range eventNames {
		if v == t {
			return name
		}
	}
	return "unknown"
}

// ---- inbound payloads ----

type MessageInput struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	File           string `json:"file,omitempty"` // base64
	LocalMessageID string `json:"localMessageId,omitempty"`
}

type CallInput struct {
	UserToCall     string `json:"userToCall"`
	ConversationID string `json:"conversationId"`
}

type RejectCallInput struct {
	UserToAnswer string `json:"userToAnswer"`
}

type CancelCallInput struct {
	UserToCancelCallWith string `json:"userToCancelCallWith"`
}

type OfferInput struct {
	UserToCall string         `json:"userToCall"`
	Offer      map[string]any `json:"offer"`
}

type AnswerInput struct {
	UserToAnswer string         `json:"userToAnswer"`
	Answer       map[string]any `json:"answer"`
}

type IceCandidateInput struct {
	From      string         `json:"from"`
	Candidate map[string]any `json:"candidate"`
}

type MuteInput struct {
	UserToNotify string `json:"userToNotify"`
	Muted        bool   `json:"muted"`
}

// ---- outbound payloads ----

type ReceivingCallData struct {
	CallerUserID string `json:"callerUserId"`
}

type CallPeerData struct {
	From string `json:"from"`
}

type OfferSignalData struct {
	CallerUserID string         `json:"callerUserId"`
	Offer        map[string]any `json:"offer"`
}

type AnswerSignalData struct {
	From   string         `json:"from"`
	Answer map[string]any `json:"answer"`
}

type IceCandidateData struct {
	From      string         `json:"from"`
	Candidate map[string]any `json:"candidate"`
}

type MuteStateData struct {
	From  string `json:"from"`
	Muted bool   `json:"muted"`
}
