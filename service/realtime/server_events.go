package realtime

// ServerEventEmitter pushes server-originated events (not replies to an
// inbound frame) to every live session of the affected users. The HTTP layer
// uses it when a new conversation is created.
type ServerEventEmitter struct {
	dir     connectionIDResolver
	emitter Emitter
}

type connectionIDResolver interface {
	ConnectionIDs(userIDs []string) []string
}

func NewServerEventEmitter(dir connectionIDResolver, emitter Emitter) *ServerEventEmitter {
	return &ServerEventEmitter{dir: dir, emitter: emitter}
}

// NewConversation notifies every listed user, on all their devices, that a
// conversation now exists for them.
func (e *ServerEventEmitter) NewConversation(users []string, data any) {
	e.emitter.EmitToConns(e.dir.ConnectionIDs(users), evNewConversation, data)
}
