package realtime

import (
	"context"

	"YChat/logger"
	"YChat/tools/decode"
	"YChat/tools/errs"
)

// dispatch routes one inbound frame to its handler. The switch is exhaustive
// over EventType; unknown event names never reach it.
func (g *Gateway) dispatch(ctx context.Context, conn *Conn, f *Frame) {
	et, known := ParseEventType(f.Event)
	if !known {
		logger.Infof("[dispatch] no handler for event=%q conn=%s", f.Event, conn.ID)
		return
	}

	if et == EventAck {
		conn.acks.fire(f.AckID, f.Data)
		return
	}

	sender := Identity{UserID: conn.UserID, AuthTokenID: conn.AuthTokenID}
	ack := g.ackSender(conn, f)

	switch et {
	case EventMessage:
		in, err := decode.DecodeMap[MessageInput](f.Data)
		if err != nil {
			ack(errorAck(errs.ErrValidationFailed.WithDetail("malformed message payload")))
			return
		}
		if serr := g.relay.SendMessage(ctx, sender, in, ack, g.echoToSender); serr != nil {
			ack(errorAck(errs.AsCodeError(serr)))
		}

	case EventCall:
		in, err := decode.DecodeMap[CallInput](f.Data)
		if err != nil {
			ack(failAck("invalid call information provided"))
			return
		}
		g.signaling.HandleCall(ctx, sender, in, ack)

	case EventRejectCall:
		in, err := decode.DecodeMap[RejectCallInput](f.Data)
		if err != nil {
			ack(failAck("invalid call information provided"))
			return
		}
		g.signaling.HandleRejectCall(ctx, sender, in, ack)

	case EventCancelCall:
		in, err := decode.DecodeMap[CancelCallInput](f.Data)
		if err != nil {
			ack(failAck("invalid call information provided"))
			return
		}
		g.signaling.HandleCancelCall(ctx, sender, in, ack)

	case EventSignal:
		in, err := decode.DecodeMap[OfferInput](f.Data)
		if err != nil {
			ack(failAck("invalid call information provided"))
			return
		}
		g.signaling.HandleOffer(ctx, sender, in, ack)

	case EventAnswer:
		in, err := decode.DecodeMap[AnswerInput](f.Data)
		if err != nil {
			ack(failAck("invalid call information provided"))
			return
		}
		g.signaling.HandleAnswer(ctx, sender, in, ack)

	case EventIceCandidate:
		in, err := decode.DecodeMap[IceCandidateInput](f.Data)
		if err != nil {
			ack(failAck("invalid data provided"))
			return
		}
		g.signaling.HandleIceCandidate(ctx, sender, in, ack)

	case EventMutedAudio, EventMutedVideo:
		in, err := decode.DecodeMap[MuteInput](f.Data)
		if err != nil {
			ack(failAck("invalid data provided"))
			return
		}
		event := evMutedAudio
		if et == EventMutedVideo {
			event = evMutedVideo
		}
		g.signaling.HandleMute(ctx, sender, event, in, ack)

	case EventUnknown, EventAck:
		// handled above
	}
}

// ackSender binds acknowledgments to the inbound frame's ack_id. A frame
// sent without one gets no acks — the client said it doesn't care.
func (g *Gateway) ackSender(conn *Conn, f *Frame) AckSender {
	return func(a *Ack) {
		if f.AckID == 0 {
			return
		}
		payload, err := marshalEventFrame(evAck, f.AckID, a)
		if err != nil {
			logger.Errorf("[dispatch] marshal ack failed conn=%s: %v", conn.ID, err)
			return
		}
		conn.enqueue(payload)
	}
}
