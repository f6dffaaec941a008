package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/logging"
)

// Frame types on the live cover feed. Clients only ever send subscribe;
// everything else flows from the bridge.
const (
	WSTypeSubscribe = "subscribe"
	WSTypeEvent     = "event"
	WSTypeResponse  = "response"
	WSTypeError     = "error"

	wsAllChannels = "*"
	wsSendBuffer  = 256
)

// WSMessage is one JSON frame on the feed.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload names the channels a subscribe frame adds.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub fans cover state out to connected dashboards. It satisfies
// bridge.Broadcaster.
type Hub struct {
	logger *logging.Logger

	mu    sync.RWMutex
	peers map[*wsPeer]struct{}
}

type wsPeer struct {
	conn *websocket.Conn
	out  chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
	subject  string
}

// CORS middleware already vetted the origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewHub returns an empty hub.
func NewHub(_ config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{logger: logger, peers: make(map[*wsPeer]struct{})}
}

// Run blocks until ctx ends, then drops every peer.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		close(p.out)
		p.conn.Close()
		delete(h.peers, p)
	}
}

// Broadcast queues payload for every peer subscribed to channel. Slow peers
// lose frames rather than stall the bridge.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding cover event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.peers {
		if p.wants(channel) {
			p.offer(data)
		}
	}
}

// ClientCount reports connected peers for /health.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *Hub) add(p *wsPeer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	n := len(h.peers)
	h.mu.Unlock()
	h.logger.Debug("feed peer joined", "peers", n, "subject", p.subject)
}

// remove closes p.out only if p was still registered, so Run and the read
// loop never both close it.
func (h *Hub) remove(p *wsPeer) {
	h.mu.Lock()
	_, ok := h.peers[p]
	delete(h.peers, p)
	n := len(h.peers)
	h.mu.Unlock()
	if ok {
		close(p.out)
	}
	h.logger.Debug("feed peer left", "peers", n)
}

// handleWebSocket serves GET /ws. Auth middleware has checked a read token.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("feed upgrade failed", "error", err)
		return
	}

	p := &wsPeer{
		conn:     conn,
		out:      make(chan []byte, wsSendBuffer),
		channels: make(map[string]struct{}),
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		p.subject = claims.Subject
	}

	s.hub.add(p)
	go p.writeLoop(s.wsCfg)
	go p.readLoop(s.hub, s.wsCfg)
}

func (p *wsPeer) readLoop(h *Hub, cfg config.WebSocketConfig) {
	defer func() {
		h.remove(p)
		p.conn.Close()
	}()

	idle := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return p.conn.SetReadDeadline(time.Now().Add(idle)) }

	p.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	_ = extend()
	p.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("feed read failed", "subject", p.subject, "error", err)
			}
			return
		}
		_ = extend()
		p.handle(h, data)
	}
}

func (p *wsPeer) writeLoop(cfg config.WebSocketConfig) {
	ping := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ping.Stop()
		p.conn.Close()
	}()
	wait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case data, ok := <-p.out:
			_ = p.conn.SetWriteDeadline(time.Now().Add(wait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(wait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (p *wsPeer) handle(h *Hub, data []byte) {
	var frame struct {
		Type    string             `json:"type"`
		ID      string             `json:"id"`
		Payload WSSubscribePayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		p.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}
	if frame.Type != WSTypeSubscribe {
		p.reply(frame.ID, WSTypeError, map[string]string{"message": "unknown message type: " + frame.Type})
		return
	}

	p.mu.Lock()
	for _, ch := range frame.Payload.Channels {
		p.channels[ch] = struct{}{}
	}
	p.mu.Unlock()

	h.logger.Debug("feed peer subscribed", "channels", frame.Payload.Channels, "subject", p.subject)
	p.reply(frame.ID, WSTypeResponse, map[string]any{"subscribed": frame.Payload.Channels})
}

func (p *wsPeer) wants(channel string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, all := p.channels[wsAllChannels]
	_, one := p.channels[channel]
	return all || one
}

func (p *wsPeer) reply(id, typ string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      typ,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err == nil {
		p.offer(data)
	}
}

// offer drops the frame when the buffer is full or the peer already left.
func (p *wsPeer) offer(data []byte) {
	defer func() { _ = recover() }()
	select {
	case p.out <- data:
	default:
	}
}
