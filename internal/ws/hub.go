package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"QuoteChat/entity"
	"QuoteChat/internal/lib/sl"
)

const (
	EventNewMessages = "new_messages"
	EventTyping      = "typing"
)

// Event represents a WebSocket event sent to thread subscribers.
type Event struct {
	Type     string      `json:"type"`
	ThreadID string      `json:"thread_id"`
	Data     interface{} `json:"data"`
}

// publication is rendered per subscriber since is_mine depends on the viewer.
type publication struct {
	threadID string
	render   func(client *Client) *Event
	skip     *Client
}

// Hub maintains thread subscriptions and fans events out to them.
type Hub struct {
	threads    map[string]map[*Client]bool
	broadcast  chan *publication
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		threads:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *publication, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.With(sl.Module("ws")),
	}
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			subs, ok := h.threads[client.threadID]
			if !ok {
				subs = make(map[*Client]bool)
				h.threads[client.threadID] = subs
			}
			subs[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case pub := <-h.broadcast:
			h.mu.Lock()
			for client := range h.threads[pub.threadID] {
				if client == pub.skip {
					continue
				}
				data, err := json.Marshal(pub.render(client))
				if err != nil {
					h.log.Warn("marshal event", sl.Err(err))
					continue
				}
				select {
				case client.send <- data:
				default:
					// slow consumer; it reconnects and catches up via fetch
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	subs, ok := h.threads[client.threadID]
	if !ok || !subs[client] {
		return
	}
	delete(subs, client)
	close(client.send)
	if len(subs) == 0 {
		delete(h.threads, client.threadID)
	}
}

// Subscribers returns the number of live connections on a thread.
func (h *Hub) Subscribers(threadID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.threads[threadID])
}

// Publish queues freshly committed messages for the thread's subscribers.
// It never blocks the caller; events are dropped when the queue is full.
func (h *Hub) Publish(threadID string, views func(viewerID int64) []entity.MessageView) {
	h.enqueue(&publication{
		threadID: threadID,
		render: func(client *Client) *Event {
			return &Event{Type: EventNewMessages, ThreadID: threadID, Data: views(client.viewerID)}
		},
	})
}

// BroadcastTyping tells the other participants that someone is typing.
func (h *Hub) BroadcastTyping(from *Client) {
	data := map[string]interface{}{
		"author":   from.viewerName,
		"is_staff": from.isStaff,
	}
	h.enqueue(&publication{
		threadID: from.threadID,
		skip:     from,
		render: func(*Client) *Event {
			return &Event{Type: EventTyping, ThreadID: from.threadID, Data: data}
		},
	})
}

func (h *Hub) enqueue(pub *publication) {
	select {
	case h.broadcast <- pub:
	default:
		h.log.With(
			slog.String("thread", pub.threadID),
		).Warn("event queue full, dropping event")
	}
}

// clientEvent represents an incoming WebSocket message from a participant.
type clientEvent struct {
	Type string `json:"type"`
}

// HandleClientMessage parses and dispatches an incoming message from a client.
func (h *Hub) HandleClientMessage(client *Client, raw []byte) {
	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.log.Debug("failed to parse client ws message", sl.Err(err))
		return
	}

	switch event.Type {
	case EventTyping:
		h.BroadcastTyping(client)
	}
}
