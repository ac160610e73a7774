package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"earnings/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Event types pushed on /ws.
const (
	evSync           = "sync_data"
	evSyncError      = "sync_error"
	evEarningAdded   = "earning_added"
	evEarningDeleted = "earning_deleted"
	evCleared        = "earnings_cleared"
	evStatistics     = "statistics_update"
	evPong           = "pong"
)

const (
	wsSendBuffer = 16
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 4096
)

// event is one JSON message on the feed. Only the fields that belong to its
// type are set.
type event struct {
	Type       string           `json:"type"`
	Earning    *models.Earning  `json:"earning,omitempty"`
	ID         uint             `json:"id,omitempty"`
	Deleted    *int64           `json:"deleted,omitempty"`
	Earnings   []models.Earning `json:"earnings,omitempty"`
	Statistics *models.Stats    `json:"statistics,omitempty"`
	Message    string           `json:"message,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan event
}

// hub fans committed changes out to every connected client. A client whose
// buffer is full is dropped instead of slowing the request that published.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	log     zerolog.Logger
}

func newHub(log zerolog.Logger) *hub {
	return &hub{clients: make(map[*wsClient]struct{}), log: log}
}

// add registers cl and queues first as its opening message.
func (h *hub) add(cl *wsClient, first event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[cl] = struct{}{}
	cl.send <- first
}

func (h *hub) remove(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(cl)
}

func (h *hub) dropLocked(cl *wsClient) {
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) publish(ev event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		h.enqueueLocked(cl, ev)
	}
}

// sendTo queues ev for a single client.
func (h *hub) sendTo(cl *wsClient, ev event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		h.enqueueLocked(cl, ev)
	}
}

func (h *hub) enqueueLocked(cl *wsClient, ev event) {
	select {
	case cl.send <- ev:
	default:
		h.log.Warn().Str("event", ev.Type).Msg("event feed: slow client dropped")
		h.dropLocked(cl)
	}
}

// closeAll disconnects every client. The HTTP server does not track hijacked
// connections, so shutdown calls this.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		h.dropLocked(cl)
	}
}

// broadcast publishes ev followed by fresh statistics read through the
// request's session. Nothing is queried when no client is listening.
func (s *server) broadcast(c *gin.Context, ev event) {
	if s.events.count() == 0 {
		return
	}
	ev.Timestamp = time.Now().UTC()
	s.events.publish(ev)

	stats, err := session(c).Stats()
	if err != nil {
		s.log.Warn().Err(err).Str("request_id", requestID(c)).Msg("event feed: statistics unavailable")
		return
	}
	stats.ApplyGoal(s.cfg.EarningsGoal)
	s.events.publish(event{Type: evStatistics, Statistics: &stats, Timestamp: ev.Timestamp})
}

func (s *server) newUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(s.cfg.CORS, r.Header.Get("Origin"))
		},
	}
}

func originAllowed(cfg CORSConfig, origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// eventsHandler upgrades to a websocket, sends the current rows and
// statistics, and then relays every change until the client goes away.
func (s *server) eventsHandler(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error.
		s.log.Warn().Err(err).Str("request_id", requestID(c)).Msg("event feed: upgrade failed")
		return
	}
	ctx := c.Request.Context()
	cl := &wsClient{conn: conn, send: make(chan event, wsSendBuffer)}
	s.events.add(cl, s.snapshot(ctx))
	s.log.Info().Str("client_ip", c.ClientIP()).Int("clients", s.events.count()).Msg("event feed: client connected")

	go cl.writeLoop()
	s.readLoop(ctx, cl)

	s.events.remove(cl)
	s.log.Info().Str("client_ip", c.ClientIP()).Int("clients", s.events.count()).Msg("event feed: client disconnected")
}

// snapshot reads every row and the statistics in one session.
func (s *server) snapshot(ctx context.Context) event {
	now := time.Now().UTC()
	sess := s.store.Session(ctx)
	defer sess.Close()
	rows, err := sess.List()
	if err != nil {
		s.log.Error().Err(err).Msg("event feed: snapshot failed")
		return event{Type: evSyncError, Message: "could not load earnings", Timestamp: now}
	}
	stats, err := sess.Stats()
	if err != nil {
		s.log.Error().Err(err).Msg("event feed: snapshot failed")
		return event{Type: evSyncError, Message: "could not load statistics", Timestamp: now}
	}
	stats.ApplyGoal(s.cfg.EarningsGoal)
	return event{Type: evSync, Earnings: rows, Statistics: &stats, Timestamp: now}
}

// readLoop answers client requests until the connection fails. Unknown or
// malformed messages are ignored.
func (s *server) readLoop(ctx context.Context, cl *wsClient) {
	cl.conn.SetReadLimit(wsReadLimit)
	_ = cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		switch msg.Type {
		case "ping":
			s.events.sendTo(cl, event{Type: evPong, Timestamp: time.Now().UTC()})
		case "request_sync":
			s.events.sendTo(cl, s.snapshot(ctx))
		}
	}
}

// writeLoop is the only writer on the connection. It ends when the hub
// closes the send channel or a write fails.
func (cl *wsClient) writeLoop() {
	ping := time.NewTicker(wsPingPeriod)
	defer func() {
		ping.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
