package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/signcap/internal/camera"
	"github.com/leonardotrapani/signcap/internal/controller"
	"github.com/leonardotrapani/signcap/internal/preview"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	sendBufferSize = 256
)

// Message types sent to browsers.
const (
	TypeSnapshot = "SNAPSHOT"
	TypeText     = "TEXT"
	TypeProgress = "PROGRESS"
	TypeTrigger  = "TRIGGER"
	TypeLive     = "LIVE"
	TypeClip     = "CLIP"
	TypeResult   = "RESULT"
	TypeAlert    = "ALERT"
	TypeNotice   = "NOTICE"
	TypePong     = "PONG"
	TypeError    = "ERROR"
)

// Message types accepted from browsers.
const (
	RequestPing    = "PING"
	RequestTrigger = "TRIGGER"
)

type Message struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type CameraInfo struct {
	Device    string `json:"device"`
	Format    string `json:"format,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Framerate int    `json:"framerate,omitempty"`
}

type ClipInfo struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Snapshot is everything a newly connected browser needs to render the page.
type Snapshot struct {
	Text           string             `json:"text"`
	Progress       float64            `json:"progress"`
	TriggerEnabled bool               `json:"trigger_enabled"`
	Camera         *CameraInfo        `json:"camera,omitempty"`
	Clip           *ClipInfo          `json:"clip,omitempty"`
	Result         *controller.Result `json:"result,omitempty"`
	Alert          string             `json:"alert,omitempty"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan Message
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub is a controller.Surface that mirrors every update to connected
// WebSocket clients and keeps a snapshot for late joiners.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*wsClient
	snapshot Snapshot
	clip     preview.Handle

	upgrader websocket.Upgrader
	trigger  func(ctx context.Context) (controller.State, error)
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*wsClient),
		snapshot: Snapshot{TriggerEnabled: true},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// OnTrigger sets the handler for TRIGGER requests from browsers.
func (h *Hub) OnTrigger(fn func(ctx context.Context) (controller.State, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trigger = fn
}

func (h *Hub) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot
}

// CurrentClip is the preview currently on screen, zero if none.
func (h *Hub) CurrentClip() preview.Handle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clip
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) SetText(text string) {
	h.update(TypeText, text, func(s *Snapshot) { s.Text = text })
}

func (h *Hub) SetProgress(percent float64) {
	h.update(TypeProgress, percent, func(s *Snapshot) { s.Progress = percent })
}

func (h *Hub) SetTriggerEnabled(enabled bool) {
	h.update(TypeTrigger, enabled, func(s *Snapshot) { s.TriggerEnabled = enabled })
}

func (h *Hub) ShowLive(info camera.Info) {
	ci := &CameraInfo{
		Device:    info.Device,
		Format:    info.InputFormat,
		Width:     info.Width,
		Height:    info.Height,
		Framerate: info.Framerate,
	}
	h.update(TypeLive, ci, func(s *Snapshot) { s.Camera = ci })
}

func (h *Hub) ShowClip(handle preview.Handle) {
	ci := &ClipInfo{
		ID:       handle.ID,
		URL:      "/clip/" + handle.ID,
		MimeType: handle.MimeType,
		Size:     handle.Size,
	}
	h.update(TypeClip, ci, func(s *Snapshot) {
		s.Clip = ci
		h.clip = handle
	})
}

func (h *Hub) ShowResult(r controller.Result) {
	h.update(TypeResult, r, func(s *Snapshot) { s.Result = &r })
}

func (h *Hub) Alert(msg string) {
	h.update(TypeAlert, msg, func(s *Snapshot) { s.Alert = msg })
}

// Notice is transient and not part of the snapshot.
func (h *Hub) Notice(msg string) {
	h.update(TypeNotice, msg, nil)
}

func (h *Hub) update(msgType string, payload any, apply func(s *Snapshot)) {
	msg := Message{Type: msgType, Payload: payload, Timestamp: time.Now().Unix()}

	h.mu.Lock()
	defer h.mu.Unlock()

	if apply != nil {
		apply(&h.snapshot)
	}
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("API: client %s is too slow, dropping it", id)
			delete(h.clients, id)
			c.close()
		}
	}
}

// ServeWS upgrades the request and streams the snapshot followed by live updates.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("API: websocket upgrade failed: %v", err)
		return
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	c := &wsClient{
		id:   clientID,
		conn: conn,
		send: make(chan Message, sendBufferSize),
	}

	// Enqueue the snapshot under the lock so no update can slip in before it.
	h.mu.Lock()
	if old, ok := h.clients[clientID]; ok {
		old.close()
	}
	h.clients[clientID] = c
	c.send <- Message{Type: TypeSnapshot, Payload: h.snapshot, ClientID: clientID, Timestamp: time.Now().Unix()}
	h.mu.Unlock()

	log.Printf("API: websocket client connected: %s", clientID)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if current, ok := h.clients[c.id]; ok && current == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
}

func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		log.Printf("API: websocket client disconnected: %s", c.id)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("API: websocket error for %s: %v", c.id, err)
			}
			return
		}

		switch msg.Type {
		case RequestPing:
			h.sendTo(c, Message{Type: TypePong, ClientID: c.id, Timestamp: time.Now().Unix()})

		case RequestTrigger:
			h.mu.RLock()
			trigger := h.trigger
			h.mu.RUnlock()
			if trigger == nil {
				h.sendTo(c, Message{Type: TypeError, Payload: "trigger unavailable", Timestamp: time.Now().Unix()})
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			if _, err := trigger(ctx); err != nil {
				h.sendTo(c, Message{Type: TypeError, Payload: err.Error(), Timestamp: time.Now().Unix()})
			}
			cancel()

		default:
			log.Printf("API: unknown message type from %s: %s", c.id, msg.Type)
		}
	}
}

func (h *Hub) sendTo(c *wsClient, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if current, ok := h.clients[c.id]; !ok || current != c {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		c.close()
		log.Printf("API: closed connection for client: %s", id)
	}
	h.clients = make(map[string]*wsClient)
}
