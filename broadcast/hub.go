package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

const broadcastBufferSize = 1024

// Hub maintains per-match rooms of connected observers and fans events out to
// them. It holds no history: an observer that joins late only sees events
// published after the join. Create one at service start with NewHub, run it
// with Run, and inject it where events are published — there is no package
// global.
type Hub struct {
	// rooms maps match id → set of clients currently subscribed to it
	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	broadcast  chan Event
	register   chan joinRequest
	unregister chan *Client

	totalConnections int64
	totalEvents      int64
	droppedEvents    int64
	metricsMu        sync.Mutex
}

type joinRequest struct {
	client  *Client
	matchID string
}

// relayedEvent carries an event received from another instance via the relay
// bridge; its payload is already encoded.
type relayedEvent struct {
	room    string
	name    string
	payload json.RawMessage
}

func (e relayedEvent) EventName() string { return e.name }
func (e relayedEvent) Room() string      { return e.room }

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan Event, broadcastBufferSize),
		register:   make(chan joinRequest),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop. A single loop drains the broadcast channel,
// so events for one match reach observers in the order they were published.
func (h *Hub) Run(ctx context.Context) {
	log.Println("✅ Broadcast hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case req := <-h.register:
			h.joinRoom(req.client, req.matchID)

		case c := <-h.unregister:
			h.leaveRoom(c)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Register attaches a client to the given match's room. A client observes one
// match at a time; registering again moves it.
func (h *Hub) Register(c *Client, matchID string) {
	h.register <- joinRequest{client: c, matchID: matchID}
}

// Unregister detaches a client from its room and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Publish enqueues an event for fanout. It never blocks and never fails the
// caller: if the buffer is full the event is dropped and logged.
func (h *Hub) Publish(e Event) {
	select {
	case h.broadcast <- e:
	default:
		h.metricsMu.Lock()
		h.droppedEvents++
		h.metricsMu.Unlock()
		log.Printf("⚠️  Broadcast buffer full, dropping %s for match %s", e.EventName(), e.Room())
	}
}

// Forward injects an event relayed from another instance. The payload is
// delivered verbatim.
func (h *Hub) Forward(matchID, eventName string, payload json.RawMessage) {
	h.Publish(relayedEvent{room: matchID, name: eventName, payload: payload})
}

func (h *Hub) joinRoom(c *Client, matchID string) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()

	// Leaving a previous room happens implicitly on re-join
	if c.matchID != "" && c.matchID != matchID {
		if room, ok := h.rooms[c.matchID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, c.matchID)
			}
		}
	}

	room, ok := h.rooms[matchID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[matchID] = room
	}
	room[c] = true
	c.matchID = matchID

	h.metricsMu.Lock()
	h.totalConnections++
	h.metricsMu.Unlock()

	log.Printf("observer %s joined match %s (room size: %d)", c.ID, matchID, len(room))
}

func (h *Hub) leaveRoom(c *Client) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()

	room, ok := h.rooms[c.matchID]
	if !ok {
		return
	}
	if _, ok := room[c]; ok {
		delete(room, c)
		close(c.Send)
		if len(room) == 0 {
			delete(h.rooms, c.matchID)
		}
		log.Printf("observer %s left match %s (room size: %d)", c.ID, c.matchID, len(room))
	}
}

func (h *Hub) broadcastEvent(e Event) {
	h.roomsMu.RLock()
	clients := make([]*Client, 0, len(h.rooms[e.Room()]))
	for c := range h.rooms[e.Room()] {
		clients = append(clients, c)
	}
	h.roomsMu.RUnlock()

	if len(clients) == 0 {
		return
	}

	var payload interface{} = e
	if r, ok := e.(relayedEvent); ok {
		payload = r.payload
	}

	message := ServerMessage{
		Event:     e.EventName(),
		Payload:   payload,
		Timestamp: time.Now(),
	}

	for _, c := range clients {
		// Non-blocking: a slow observer is disconnected, not waited on
		if !c.TrySend(message) {
			log.Printf("⚠️  observer %s buffer full, disconnecting", c.ID)
			go h.Unregister(c)
		}
	}

	h.metricsMu.Lock()
	h.totalEvents++
	h.metricsMu.Unlock()
}

// ActiveRooms returns the match ids that currently have at least one observer.
func (h *Hub) ActiveRooms() []string {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()

	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

// RoomSize returns the number of observers in a match's room.
func (h *Hub) RoomSize(matchID string) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[matchID])
}

// Stats returns hub counters for the ops endpoint.
func (h *Hub) Stats() map[string]interface{} {
	h.roomsMu.RLock()
	activeRooms := len(h.rooms)
	observers := 0
	for _, room := range h.rooms {
		observers += len(room)
	}
	h.roomsMu.RUnlock()

	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	return map[string]interface{}{
		"active_rooms":       activeRooms,
		"active_observers":   observers,
		"total_connections":  h.totalConnections,
		"total_events":       h.totalEvents,
		"dropped_events":     h.droppedEvents,
		"broadcast_capacity": cap(h.broadcast),
		"broadcast_usage":    len(h.broadcast),
	}
}

func (h *Hub) shutdown() {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()

	log.Printf("🛑 Shutting down broadcast hub (%d rooms)", len(h.rooms))
	for id, room := range h.rooms {
		for c := range room {
			close(c.Send)
			delete(room, c)
		}
		delete(h.rooms, id)
	}
}
