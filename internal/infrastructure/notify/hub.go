// Package notify delivers user notifications (status-bar text and modal message boxes) to
// whatever surface stands in for the host UI.
package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNoListeners is returned when a notification had nobody to go to
var ErrNoListeners = errors.New("no notification listeners connected")

// Message types sent to listeners
const (
	TypeStatus = "status"
	TypeModal  = "modal"
)

// Message is the JSON frame written to every listener
type Message struct {
	ID       string                  `json:"id"`
	Type     string                  `json:"type"`
	Text     string                  `json:"text"`
	Duration replication.MessageTime `json:"duration,omitempty"`
	Severity replication.Severity    `json:"severity,omitempty"`
	Icon     replication.Icon        `json:"icon,omitempty"`
	Buttons  []string                `json:"buttons,omitempty"`
	SentAt   time.Time               `json:"sent_at"`
}

// HubConfig configures the websocket hub
type HubConfig struct {
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	SendBuffer     int
	AllowedOrigins []string // empty allows same-origin requests only
}

func (c *HubConfig) applyDefaults() {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 16
	}
}

// Hub fans notifications out to connected websocket listeners. It implements replication.Notifier.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*listener]struct{}
	closed  bool
}

var _ replication.Notifier = (*Hub)(nil)

type listener struct {
	conn *websocket.Conn
	send chan Message
	once sync.Once
}

func (l *listener) stop() {
	l.once.Do(func() { close(l.send) })
}

// NewHub creates a new Hub
func NewHub(cfg HubConfig, logger *zap.Logger) *Hub {
	cfg.applyDefaults()
	h := &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*listener]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// ServeHTTP upgrades the request and keeps the listener registered until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade notification listener", zap.Error(err))
		return
	}

	l := &listener{conn: conn, send: make(chan Message, h.cfg.SendBuffer)}
	if !h.register(l) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	h.logger.Info("notification listener connected", zap.String("remote_addr", r.RemoteAddr))

	go h.writeLoop(l)
	h.readLoop(l)

	h.unregister(l)
	h.logger.Info("notification listener disconnected", zap.String("remote_addr", r.RemoteAddr))
}

func (h *Hub) register(l *listener) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[l] = struct{}{}
	return true
}

func (h *Hub) unregister(l *listener) {
	h.mu.Lock()
	delete(h.clients, l)
	h.mu.Unlock()
	l.stop()
}

// readLoop discards inbound frames; it exists to process pongs and notice disconnects
func (h *Hub) readLoop(l *listener) {
	l.conn.SetReadLimit(4096)
	_ = l.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})
	for {
		if _, _, err := l.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(l *listener) {
	ping := time.NewTicker(h.cfg.PongTimeout * 9 / 10)
	defer func() {
		ping.Stop()
		_ = l.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-l.send:
			_ = l.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = l.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := l.conn.WriteJSON(msg); err != nil {
				h.logger.Warn("failed to write notification", zap.Error(err))
				return
			}
		case <-ping.C:
			_ = l.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Listeners returns the number of connected listeners
func (h *Hub) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetStatusText broadcasts a status-bar message
func (h *Hub) SetStatusText(_ context.Context, text string, duration replication.MessageTime, severity replication.Severity) error {
	return h.broadcast(Message{Type: TypeStatus, Text: text, Duration: duration, Severity: severity})
}

// ShowModal broadcasts a modal message box
func (h *Hub) ShowModal(_ context.Context, text string, icon replication.Icon, buttons ...string) error {
	return h.broadcast(Message{Type: TypeModal, Text: text, Icon: icon, Buttons: buttons})
}

// broadcast queues msg for every listener without blocking. A listener whose queue is full
// is skipped for this message.
func (h *Hub) broadcast(msg Message) error {
	msg.ID = uuid.NewString()
	msg.SentAt = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return ErrNoListeners
	}
	delivered := 0
	for l := range h.clients {
		select {
		case l.send <- msg:
			delivered++
		default:
			h.logger.Warn("notification listener is not keeping up, message dropped", zap.String("message_id", msg.ID))
		}
	}
	if delivered == 0 {
		return ErrNoListeners
	}
	return nil
}

// Close disconnects every listener and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for l := range h.clients {
		l.stop()
		delete(h.clients, l)
	}
}
