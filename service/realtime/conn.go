package realtime

import (
	"sync"
	"time"

	"YChat/logger"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize = 256
	writeDeadline = 5 * time.Second
	pongWait      = 75 * time.Second
	pingEvery     = 25 * time.Second
)

// Conn is one live client connection: the websocket plus its identity and a
// dedicated send queue. gorilla/websocket does not allow concurrent writers,
// so all outbound traffic funnels through the write pump.
type Conn struct {
	ID          string
	UserID      string
	AuthTokenID string

	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	acks      ackRegistry
}

func newConn(id, userID, authTokenID string, ws *websocket.Conn) *Conn {
	return &Conn{
		ID:          id,
		UserID:      userID,
		AuthTokenID: authTokenID,
		ws:          ws,
		send:        make(chan []byte, sendQueueSize),
		done:        make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking. A full queue
// means a slow client; the frame is dropped (delivery here is best effort).
func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		logger.Warnf("[conn] send queue full, dropping frame conn=%s user=%s", c.ID, c.UserID)
		return false
	}
}

// writePump is the single writer for the connection. It also owns the ping
// ticker; pongs are handled on the read side.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[conn] write failed conn=%s err=%v", c.ID, err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// ackRegistry tracks server->client emits that asked for a receipt. When the
// client answers with an ack frame, the stored callback fires exactly once.
type ackRegistry struct {
	mu      sync.Mutex
	nextID  int64
	pending map[int64]AckCallback
}

// AckCallback receives the data the client attached to its ack frame.
type AckCallback func(data map[string]any)

func (r *ackRegistry) register(cb AckCallback) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		r.pending = make(map[int64]AckCallback)
	}
	r.nextID++
	id := r.nextID
	r.pending[id] = cb
	return id
}

func (r *ackRegistry) fire(id int64, data map[string]any) {
	r.mu.Lock()
	cb, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if ok && cb != nil {
		cb(data)
	}
}
