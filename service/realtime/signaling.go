package realtime

import (
	"context"
	"fmt"

	"YChat/logger"
	"YChat/service/presence"
	"YChat/tools/errs"
)

// CallSignalingRouter relays the call-establishment handshake between two
// users. Every operation follows the same signal-forward pattern: validate,
// resolve the counterparty's live connection through the presence directory,
// emit to it, and acknowledge the original caller once the counterparty's
// client confirmed receipt. Failures always come back to the caller as a
// failed acknowledgment; the counterparty is never told about routing
// problems. There is no server-side ring timeout: an unanswered call is the
// caller's client's problem.
//
// Routing picks the counterparty's first connection in insertion order. A
// user on several devices gets signaling on exactly one of them.
type CallSignalingRouter struct {
	dir     *presence.Directory
	store   ConversationStore
	relay   *MessageRelay
	emitter Emitter
}

func NewCallSignalingRouter(dir *presence.Directory, store ConversationStore, relay *MessageRelay, emitter Emitter) *CallSignalingRouter {
	return &CallSignalingRouter{dir: dir, store: store, relay: relay, emitter: emitter}
}

// HandleCall initiates a call: membership is checked like a message send, a
// call marker is logged into conversation history and fanned out to all
// members, and only then does the callee's connection get the ring event.
func (s *CallSignalingRouter) HandleCall(ctx context.Context, sender Identity, in *CallInput, ack AckSender) {
	if !sender.valid() || in.UserToCall == "" || in.ConversationID == "" {
		logger.Error("call failed due to invalid data")
		ack(failAck("invalid call information provided"))
		return
	}

	members, err := s.store.GetMembers(ctx, in.ConversationID)
	if err != nil {
		ack(errorAck(errs.ErrDependencyFailed.WithDetail(
			"retrieval of conversation members for permission check failed")))
		return
	}
	if !contains(members, sender.UserID) {
		ack(errorAck(errs.ErrForbidden.WithDetail(
			"attempt to start call in conversation where user is not a member")))
		return
	}

	marker := s.relay.NewMarkerMessage(in.ConversationID, sender.UserID)
	if err := s.relay.PersistAndFanout(ctx, marker, members); err != nil {
		ack(failAck("Internal error."))
		return
	}

	connID, online := s.dir.FirstConnectionID(in.UserToCall)
	if !online {
		ack(failAck("user is not online"))
		return
	}

	delivered := s.emitter.EmitWithAck(connID, evReceivingCall,
		ReceivingCallData{CallerUserID: sender.UserID},
		func(map[string]any) {
			ack(&Ack{Status: StatusSuccess, Message: fmt.Sprintf("call sent to %s", in.UserToCall)})
		})
	if !delivered {
		// presence said online but the connection vanished before the emit
		ack(failAck("user is not online"))
	}
}

func (s *CallSignalingRouter) HandleRejectCall(_ context.Context, sender Identity, in *RejectCallInput, ack AckSender) {
	if !sender.valid() || in.UserToAnswer == "" {
		logger.Error("call reject failed due to invalid data")
		ack(failAck("invalid call information provided"))
		return
	}
	s.forward(in.UserToAnswer, evCallRejected,
		CallPeerData{From: sender.UserID}, ack,
		"user to answer is not online",
		fmt.Sprintf("rejecting call sent to %s", in.UserToAnswer))
}

func (s *CallSignalingRouter) HandleCancelCall(_ context.Context, sender Identity, in *CancelCallInput, ack AckSender) {
	if !sender.valid() || in.UserToCancelCallWith == "" {
		logger.Error("call cancel failed due to invalid data")
		ack(failAck("invalid call information provided"))
		return
	}
	s.forward(in.UserToCancelCallWith, evCallCancelled,
		CallPeerData{From: sender.UserID}, ack,
		"user to cancel call with is not online",
		fmt.Sprintf("cancelling call sent to %s", in.UserToCancelCallWith))
}

// HandleOffer forwards the WebRTC offer to the callee. The offer itself is
// opaque to the server.
func (s *CallSignalingRouter) HandleOffer(_ context.Context, sender Identity, in *OfferInput, ack AckSender) {
	if !sender.valid() || in.UserToCall == "" || in.Offer == nil {
		logger.Error("offer signal failed due to invalid data")
		ack(failAck("invalid call information provided"))
		return
	}
	s.forward(in.UserToCall, evOfferSignal,
		OfferSignalData{CallerUserID: sender.UserID, Offer: in.Offer}, ack,
		"user to call is not online",
		fmt.Sprintf("offer signal sent to %s", in.UserToCall))
}

func (s *CallSignalingRouter) HandleAnswer(_ context.Context, sender Identity, in *AnswerInput, ack AckSender) {
	if !sender.valid() || in.UserToAnswer == "" || in.Answer == nil {
		logger.Error("answer signal failed due to invalid data")
		ack(failAck("invalid call information provided"))
		return
	}
	s.forward(in.UserToAnswer, evAnswerSignal,
		AnswerSignalData{From: sender.UserID, Answer: in.Answer}, ack,
		"user to answer is not online",
		fmt.Sprintf("answer signal sent to %s", in.UserToAnswer))
}

func (s *CallSignalingRouter) HandleIceCandidate(_ context.Context, sender Identity, in *IceCandidateInput, ack AckSender) {
	if !sender.valid() || in.From == "" || in.Candidate == nil {
		logger.Error("ice candidate failed due to invalid data")
		ack(failAck("invalid data provided"))
		return
	}
	s.forward(in.From, evIceCandidate,
		IceCandidateData{From: sender.UserID, Candidate: in.Candidate}, ack,
		"user to send ice candidate is not online",
		fmt.Sprintf("ice candidate sent to %s", in.From))
}

// HandleMute forwards a mute-state change (event picks audio vs video).
func (s *CallSignalingRouter) HandleMute(_ context.Context, sender Identity, event string, in *MuteInput, ack AckSender) {
	if !sender.valid() || in.UserToNotify == "" {
		logger.Error("mute state failed due to invalid data")
		ack(failAck("invalid data provided"))
		return
	}
	s.forward(in.UserToNotify, event,
		MuteStateData{From: sender.UserID, Muted: in.Muted}, ack,
		"user to notify is not online",
		fmt.Sprintf("mute state sent to %s", in.UserToNotify))
}

// forward implements the shared tail of the signal-forward pattern. The
// success ack only fires after the counterparty's client acknowledged the
// emitted event. When the resolved connection is gone by emit time the
// operation ends without any ack — the caller's client must handle the hang.
func (s *CallSignalingRouter) forward(target, event string, data any, ack AckSender, offlineMsg, successMsg string) {
	connID, online := s.dir.FirstConnectionID(target)
	if !online {
		ack(failAck(offlineMsg))
		return
	}

	delivered := s.emitter.EmitWithAck(connID, event, data, func(map[string]any) {
		ack(&Ack{Status: StatusSuccess, Message: successMsg})
	})
	if !delivered {
		logger.Warnf("[signaling] %q target connection vanished user=%s conn=%s", event, target, connID)
	}
}
