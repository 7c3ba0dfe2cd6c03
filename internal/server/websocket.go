package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dagbolade/blind-auditor/internal/controller"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	refreshPeriod  = 5 * time.Second
	maxMessageSize = 4 * 1024
	clientBuffer   = 32
)

const messageSessionUpdate = "session_update"

// WSMessage is sent to every connected client.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan WSMessage
}

// Hub fans session snapshots out to WebSocket subscribers. A snapshot is
// pushed on every controller notification; the periodic refresh only pushes
// when the session changed since the last one.
type Hub struct {
	mu         sync.Mutex
	subs       map[string]*subscriber
	controller *controller.Controller
	lastSent   time.Time

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewHub(ctrl *controller.Controller) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		subs:       make(map[string]*subscriber),
		controller: ctrl,
		ctx:        ctx,
		cancel:     cancel,
	}
	go h.follow()
	return h
}

// Shutdown disconnects every subscriber and stops following the controller.
func (h *Hub) Shutdown() {
	h.once.Do(func() {
		h.cancel()

		h.mu.Lock()
		n := len(h.subs)
		for id, sub := range h.subs {
			h.removeLocked(id, sub)
		}
		h.mu.Unlock()

		log.Info().Int("clients", n).Msg("session feed stopped")
	})
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) follow() {
	notifyCh := h.controller.NotifyChannel()
	ticker := time.NewTicker(refreshPeriod)
	defer ticker.Stop()

	for {
		select {
		case _, ok := <-notifyCh:
			if !ok {
				return
			}
			h.publish(false)
		case <-ticker.C:
			h.publish(true)
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) publish(onlyIfChanged bool) {
	snap := h.controller.Session()

	h.mu.Lock()
	defer h.mu.Unlock()

	if onlyIfChanged && !snap.UpdatedAt.After(h.lastSent) {
		return
	}
	h.lastSent = snap.UpdatedAt

	msg := WSMessage{
		Type: messageSessionUpdate,
		Data: sessionView{Session: snap, MaxRetries: h.controller.MaxRetries()},
	}
	for id, sub := range h.subs {
		select {
		case sub.send <- msg:
		default:
			log.Warn().Str("client_id", id).Msg("session feed client too slow, disconnecting")
			h.removeLocked(id, sub)
		}
	}
}

func (h *Hub) add(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return false
	}
	h.subs[sub.id] = sub
	log.Info().Str("client_id", sub.id).Int("total", len(h.subs)).Msg("client connected")
	return true
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[sub.id] == sub {
		h.removeLocked(sub.id, sub)
		log.Info().Str("client_id", sub.id).Int("total", len(h.subs)).Msg("client disconnected")
	}
}

// removeLocked closes the send channel, which ends the write pump. Callers
// hold h.mu, so no publish can race the close.
func (h *Hub) removeLocked(id string, sub *subscriber) {
	delete(h.subs, id)
	close(sub.send)
	_ = sub.conn.Close()
}

// readLoop only processes control frames and notices disconnects.
func (h *Hub) readLoop(sub *subscriber) {
	defer h.remove(sub)

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", sub.id).Msg("websocket read error")
			}
			return
		}
	}
}

func writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket upgrades the connection. The current session is always the
// first message a client receives.
func (h *WSHandler) HandleWebSocket(c echo.Context) error {
	if h.hub.ctx.Err() != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server shutting down")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return err
	}

	sub := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan WSMessage, clientBuffer),
	}
	sub.send <- WSMessage{
		Type: messageSessionUpdate,
		Data: sessionView{Session: h.hub.controller.Session(), MaxRetries: h.hub.controller.MaxRetries()},
	}

	if !h.hub.add(sub) {
		_ = conn.Close()
		return nil
	}

	go writeLoop(sub)
	go h.hub.readLoop(sub)
	return nil
}
