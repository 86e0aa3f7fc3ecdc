package realtime

import (
	"YChat/logger"
)

// Emitter is how relay and signaling reach live connections. The production
// implementation sits on the ConnRegistry; tests substitute a recorder.
type Emitter interface {
	// Emit sends an event to one connection; false when the connection is no
	// longer live.
	Emit(connID, event string, data any) bool
	// EmitWithAck additionally registers a receipt callback that fires when
	// the client acknowledges the event.
	EmitWithAck(connID, event string, data any, cb AckCallback) bool
	// EmitToConns broadcasts one event to many connections, best effort.
	EmitToConns(connIDs []string, event string, data any)
}

type registryEmitter struct {
	registry *ConnRegistry
	fanout   *Fanout
}

// NewRegistryEmitter builds the production emitter over the live-connection
// set, broadcasting through the fanout pool.
func NewRegistryEmitter(registry *ConnRegistry, fanout *Fanout) Emitter {
	return &registryEmitter{registry: registry, fanout: fanout}
}

func (e *registryEmitter) Emit(connID, event string, data any) bool {
	c, ok := e.registry.Get(connID)
	if !ok {
		return false
	}
	payload, err := marshalEventFrame(event, 0, data)
	if err != nil {
		logger.Errorf("[emit] marshal %q failed: %v", event, err)
		return false
	}
	return c.enqueue(payload)
}

func (e *registryEmitter) EmitWithAck(connID, event string, data any, cb AckCallback) bool {
	c, ok := e.registry.Get(connID)
	if !ok {
		return false
	}
	ackID := c.acks.register(cb)
	payload, err := marshalEventFrame(event, ackID, data)
	if err != nil {
		logger.Errorf("[emit] marshal %q failed: %v", event, err)
		return false
	}
	return c.enqueue(payload)
}

func (e *registryEmitter) EmitToConns(connIDs []string, event string, data any) {
	if len(connIDs) == 0 {
		return
	}
	payload, err := marshalEventFrame(event, 0, data)
	if err != nil {
		logger.Errorf("[emit] marshal %q failed: %v", event, err)
		return
	}
	conns := make([]*Conn, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := e.registry.Get(id); ok {
			conns = append(conns, c)
		}
	}
	e.fanout.Broadcast(conns, payload)
}
