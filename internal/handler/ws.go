package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/scripty/hub-server-go/internal/audit"
	"github.com/scripty/hub-server-go/internal/config"
	"github.com/scripty/hub-server-go/internal/hub"
	"github.com/scripty/hub-server-go/internal/protocol"
)

// wsConn is the hub's write side of one websocket. Writes are serialized so
// replies from adapter goroutines never interleave with read-loop replies.
type wsConn struct {
	conn       *websocket.Conn
	remoteAddr string
	mu         sync.Mutex
}

func (c *wsConn) Send(ctx context.Context, msg any) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.WSWriteTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) RemoteAddr() string {
	return c.remoteAddr
}

type WSHandler struct {
	registry       *hub.Registry
	tracker        *hub.Tracker
	dispatcher     *hub.Dispatcher
	metrics        hub.Metrics
	originPatterns []string
	readLimit      int64
	pingInterval   time.Duration
}

func NewWSHandler(
	registry *hub.Registry,
	tracker *hub.Tracker,
	dispatcher *hub.Dispatcher,
	metrics hub.Metrics,
	originPatterns []string,
	readLimit int64,
) *WSHandler {
	if metrics == nil {
		metrics = hub.NopMetrics()
	}
	return &WSHandler{
		registry:       registry,
		tracker:        tracker,
		dispatcher:     dispatcher,
		metrics:        metrics,
		originPatterns: originPatterns,
		readLimit:      readLimit,
		pingInterval:   config.WSPingInterval,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventConnectionRejected,
			Details: map[string]interface{}{"reason": err.Error()},
		})
		return
	}
	conn.SetReadLimit(h.readLimit)

	session := h.registry.Open(&wsConn{conn: conn, remoteAddr: r.RemoteAddr})
	h.metrics.ConnectionOpened()

	log.Info().
		Str("connId", session.ID()).
		Str("remoteAddr", r.RemoteAddr).
		Msg("websocket connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	closeStatus, closeReason := websocket.StatusNormalClosure, ""
	defer func() {
		h.registry.Close(session)
		dropped := h.tracker.DropConnection(session.ID())
		h.metrics.ConnectionClosed()
		_ = conn.Close(closeStatus, closeReason)

		log.Info().
			Str("connId", session.ID()).
			Int("droppedPending", dropped).
			Dur("connected", time.Since(session.ConnectedAt())).
			Msg("websocket connection closed")
	}()

	go h.keepAlive(ctx, conn, session.ID())

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			logReadError(session.ID(), err)
			return
		}

		if err := h.dispatcher.Handle(ctx, session, data); err != nil {
			closeStatus, closeReason = websocket.StatusPolicyViolation, "invalid auth"
			return
		}
	}
}

// keepAlive pings the client until ctx ends. A missed pong closes the
// connection, which ends the read loop.
func (h *WSHandler) keepAlive(ctx context.Context, conn *websocket.Conn, connID string) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, config.WSWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					log.Debug().Err(err).Str("connId", connID).Msg("ping failed, closing connection")
					_ = conn.CloseNow()
				}
				return
			}
		}
	}
}

func logReadError(connID string, err error) {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Debug().Str("connId", connID).Msg("connection closed by client")
		return
	case websocket.StatusMessageTooBig:
		log.Warn().Str("connId", connID).Msg("message exceeded read limit")
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	log.Debug().Err(err).Str("connId", connID).Msg("websocket read failed")
}
