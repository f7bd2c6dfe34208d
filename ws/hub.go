package ws

import (
	"sync"

	"warrantywatch/logger"
)

// Hub fans sync progress frames out to connected dashboard sessions. It is
// independent of net/http and gorilla/websocket; each session registers a
// buffered channel and pumps it to its own transport.
//
// Delivery is best-effort. Progress frames are advisory and every frame
// supersedes the last, so a session that falls behind loses frames rather
// than stalling the pipeline or the other sessions.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan Message
	register    chan subscription
	unregister  chan string
	broadcast   chan Message
	shutdown    chan struct{}
	log         *logger.Logger
}

type subscription struct {
	id string
	ch chan Message
}

// NewHub creates and starts a hub. A nil logger silences drop reporting.
func NewHub(log *logger.Logger) *Hub {
	h := &Hub{
		subscribers: make(map[string]chan Message),
		register:    make(chan subscription),
		unregister:  make(chan string),
		broadcast:   make(chan Message, 100),
		shutdown:    make(chan struct{}),
		log:         log,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub.id] = sub.ch
			h.mu.Unlock()
		case id := <-h.unregister:
			h.mu.Lock()
			if ch, ok := h.subscribers[id]; ok {
				close(ch)
				delete(h.subscribers, id)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for id, ch := range h.subscribers {
				select {
				case ch <- msg:
				default:
					h.logDrop(id, msg.Type)
				}
			}
			h.mu.RUnlock()
		case <-h.shutdown:
			h.mu.Lock()
			for id, ch := range h.subscribers {
				close(ch)
				delete(h.subscribers, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) logDrop(id string, msgType string) {
	if h.log != nil {
		h.log.Debug("Subscriber buffer full, dropping frame", "client", id, "type", msgType)
	}
}

// Register adds a subscriber channel under the given id. The channel should
// be buffered; an unbuffered channel drops every frame the session is not
// already waiting on.
func (h *Hub) Register(id string, ch chan Message) {
	h.register <- subscription{id: id, ch: ch}
}

// Unregister removes the subscriber and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Unregister(id string) {
	h.unregister <- id
}

// Broadcast queues a message for every subscriber. It never blocks: if the
// hub's own queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logDrop("hub", msg.Type)
	}
}

// Stop shuts down the hub and closes all subscriber channels.
func (h *Hub) Stop() {
	close(h.shutdown)
}
