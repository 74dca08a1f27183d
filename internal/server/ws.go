package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/pinchdraw/internal/app"
	"github.com/ayusman/pinchdraw/internal/mode"
	"github.com/ayusman/pinchdraw/internal/stroke"
)

const (
	clientBuffer = 256
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is one websocket event. Stroke events carry Event, mode changes
// carry From and To, frame updates carry Frame and drawing toggles carry
// Enabled.
type Message struct {
	Type    string        `json:"type"`
	Event   *stroke.Event `json:"event,omitempty"`
	From    *mode.Mode    `json:"from,omitempty"`
	To      *mode.Mode    `json:"to,omitempty"`
	Frame   *app.Frame    `json:"frame,omitempty"`
	Enabled *bool         `json:"enabled,omitempty"`
}

// EventHub fans stroke, mode and frame events out to websocket clients.
// Publishing never blocks: each client has a buffered queue and a client whose
// queue is full misses the message. Frame messages go only to clients that
// asked for them with ?frames=true.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	dropped uint64
}

type hubClient struct {
	send   chan []byte
	frames bool
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*hubClient]struct{})}
}

// StrokeListener returns a stroke.Listener that publishes to the hub.
func (h *EventHub) StrokeListener() stroke.Listener {
	return func(e stroke.Event) {
		h.Publish(Message{Type: "stroke", Event: &e})
	}
}

// ModeListener returns a mode change callback that publishes to the hub.
func (h *EventHub) ModeListener() func(from, to mode.Mode) {
	return func(from, to mode.Mode) {
		h.Publish(Message{Type: "mode", From: &from, To: &to})
	}
}

// FrameListener returns a frame callback that publishes landmark and pinch
// updates to the hub.
func (h *EventHub) FrameListener() func(app.Frame) {
	return func(f app.Frame) {
		h.Publish(Message{Type: "frame", Frame: &f})
	}
}

// DrawingListener returns a drawing toggle callback that publishes to the hub.
func (h *EventHub) DrawingListener() func(enabled bool) {
	return func(enabled bool) {
		h.Publish(Message{Type: "drawing", Enabled: &enabled})
	}
}

// Publish encodes msg once and queues it for every connected client.
func (h *EventHub) Publish(msg Message) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	h.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error encoding %s event: %v", msg.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if msg.Type == "frame" && !c.frames {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.dropped++
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were discarded for slow clients.
func (h *EventHub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *EventHub) add(frames bool) *hubClient {
	c := &hubClient{send: make(chan []byte, clientBuffer), frames: frames}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *EventHub) remove(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeHTTP handles WebSocket upgrade requests. Add ?frames=true to also
// receive a frame message for every processed step.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	frames, _ := strconv.ParseBool(r.URL.Query().Get("frames"))
	c := h.add(frames)
	defer h.remove(c)

	// Keep connection alive by reading messages
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case data := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}
