package realtime

import (
	"context"
	"net"
	"net/http"
	"time"

	"YChat/logger"
	"YChat/service/presence"
	"YChat/tools/ids"
	"YChat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// PresenceMirror is the optional external copy of online state (redis).
// Failures are logged and otherwise ignored; the in-memory directory is the
// source of truth.
type PresenceMirror interface {
	Online(ctx context.Context, user string) error
	Offline(ctx context.Context, user string) error
}

// Gateway owns connection lifecycle: authenticate the upgrade, register the
// connection in the presence directory, pump frames through dispatch, and
// release presence when the connection goes away.
type Gateway struct {
	dir       *presence.Directory
	registry  *ConnRegistry
	tokens    TokenValidator
	relay     *MessageRelay
	signaling *CallSignalingRouter
	mirror    PresenceMirror // may be nil

	// echoToSender controls whether a sender's own connections receive their
	// message back on fan-out (multi-device echo).
	echoToSender bool
}

func NewGateway(dir *presence.Directory, registry *ConnRegistry, tokens TokenValidator,
	relay *MessageRelay, signaling *CallSignalingRouter, mirror PresenceMirror, echoToSender bool) *Gateway {
	return &Gateway{
		dir:          dir,
		registry:     registry,
		tokens:       tokens,
		relay:        relay,
		signaling:    signaling,
		mirror:       mirror,
		echoToSender: echoToSender,
	}
}

func (g *Gateway) Registry() *ConnRegistry { return g.registry }

// HandleWS is the gin route for new realtime connections.
func (g *Gateway) HandleWS(c *gin.Context) {
	claims, err := g.tokens.Validate(c.Request)
	if err != nil {
		logger.Errorf("[ws] connection invalidated due to invalid token: %v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorised"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	// Identity must be complete before any presence is recorded; a
	// connection without it is closed outright.
	if claims.UserID == "" || claims.SessionID == "" {
		logger.Error("[ws] disconnecting connection due to missing identity")
		_ = ws.Close()
		return
	}

	connID := ids.GenerateString()
	conn := newConn(connID, claims.UserID, claims.SessionID, ws)

	g.registry.Add(conn)
	g.dir.AddConnection(conn.UserID, connID, presence.Session{AuthTokenID: conn.AuthTokenID})
	g.mirrorOnline(conn.UserID)

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		g.dir.UpdateActivity(conn.UserID, conn.ID)
		return nil
	})

	safe.Go(conn.writePump)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g.readLoop(ctx, conn)
	g.release(conn)
}

// readLoop processes inbound frames until the connection errors or closes.
// Frames from one connection are handled strictly in order.
func (g *Gateway) readLoop(ctx context.Context, conn *Conn) {
	for {
		mt, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s err=%v", conn.ID, err)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", conn.ID, err)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", conn.ID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrameJSON(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] parse frame err conn=%s err=%v sample=%q", conn.ID, perr, sample)
			continue
		}

		g.dir.UpdateActivity(conn.UserID, conn.ID)
		g.dispatch(ctx, conn, frame)
	}
}

// release deregisters a finished connection. Presence absence is tolerated,
// so this is safe to call exactly once per connection in any order relative
// to other users' traffic.
func (g *Gateway) release(conn *Conn) {
	g.registry.Remove(conn.ID)
	g.dir.RemoveConnection(conn.UserID, conn.ID)
	conn.close()

	if len(g.dir.Connections(conn.UserID)) == 0 {
		g.mirrorOffline(conn.UserID)
	}
}

func (g *Gateway) mirrorOnline(user string) {
	if g.mirror == nil {
		return
	}
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.mirror.Online(ctx, user); err != nil {
			logger.Warnf("[ws] presence mirror online failed user=%s: %v", user, err)
		}
	})
}

func (g *Gateway) mirrorOffline(user string) {
	if g.mirror == nil {
		return
	}
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.mirror.Offline(ctx, user); err != nil {
			logger.Warnf("[ws] presence mirror offline failed user=%s: %v", user, err)
		}
	})
}
