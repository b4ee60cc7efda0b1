package websocket

import (
	"rientro/models"
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub fans trip status updates out to the clients watching each trip, so
// the traveler's devices see escalation changes without polling.
type Hub struct {
	// Clients per trip id
	rooms map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast updates to rooms
	broadcast chan tripUpdate

	mutex sync.RWMutex
}

type tripUpdate struct {
	tripID string
	update models.WSTripUpdate
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan tripUpdate, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// BroadcastTripUpdate implements interfaces.TripBroadcaster.
func (h *Hub) BroadcastTripUpdate(tripID string, update models.WSTripUpdate) {
	select {
	case h.broadcast <- tripUpdate{tripID: tripID, update: update}:
	default:
		logrus.Warn("Trip update broadcast dropped: hub queue full")
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, ok := h.rooms[client.tripID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[client.tripID] = room
	}
	room[client] = true

	logrus.Debugf("Client %s joined trip feed %s", client.userID, client.tripID)
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, ok := h.rooms[client.tripID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}

	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.tripID)
	}

	logrus.Debugf("Client %s left trip feed %s", client.userID, client.tripID)
}

func (h *Hub) deliver(msg tripUpdate) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.rooms[msg.tripID] {
		select {
		case client.send <- msg.update:
		default:
			// Slow consumer, drop the update rather than block the hub.
		}
	}
}
