package realtime

import (
	"encoding/json"
	"fmt"

	"YChat/tools/errs"
)

// Frame is the one wire envelope, both directions:
//
//	{"event": "<name>", "ack_id": 12, "data": {...}}
//
// An `ack` frame answers the frame that carried the same ack_id.
type Frame struct {
	Event string         `json:"event"`
	AckID int64          `json:"ack_id,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

func ParseFrameJSON(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame has no event")
	}
	return f, nil
}

// outFrame is the outbound envelope; Data can be any marshallable payload.
type outFrame struct {
	Event string `json:"event"`
	AckID int64  `json:"ack_id,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func marshalEventFrame(event string, ackID int64, data any) ([]byte, error) {
	return json.Marshal(outFrame{Event: event, AckID: ackID, Data: data})
}

// Ack is the acknowledgment payload every operation terminates with on the
// sender's side.
type Ack struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    any             `json:"data,omitempty"`
	Error   *errs.CodeError `json:"error,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// AckSender delivers a terminal Ack for an inbound frame. The dispatcher
// wires it to the client's ack_id; tests substitute a recorder.
type AckSender func(ack *Ack)

// failAck / errorAck are the two failure shapes: a soft status-only failure
// (signaling style) and a coded failure (relay validation/dependency style).
func failAck(msg string) *Ack {
	return &Ack{Status: StatusFailed, Message: msg}
}

func errorAck(ce *errs.CodeError) *Ack {
	return &Ack{Status: StatusFailed, Message: ce.Msg, Error: ce}
}
