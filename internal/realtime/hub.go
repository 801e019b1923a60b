// Package realtime provides components for managing live WebSocket
// connections: the fan-out hub, the per-connection client, and the gateway
// HTTP server that hosts the in-band handshake.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// Hub is the room fan-out router. Rooms are derived: every connection bound
// to account X is implicitly a member of room "account:X". Rooms have no
// lifecycle beyond their member connections.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	logger  zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		logger:  logger.With().Str("component", "Hub").Logger(),
	}
}

// Register adds a freshly opened connection to the global set. The
// connection joins its account room later, once the handshake succeeds.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Bind places an authenticated connection into its account room.
func (h *Hub) Bind(c *Client, accountID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[accountID]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[accountID] = room
	}
	room[c] = struct{}{}
}

// Unregister removes a connection from the global set and its room, if any.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if accountID := c.Account(); accountID != "" {
		if room, ok := h.rooms[accountID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, accountID)
			}
		}
	}
}

// BroadcastToAccount delivers evt to every live connection bound to the
// account, in broadcast order per connection. Delivery is best-effort: a
// member that disconnected mid-broadcast is skipped.
func (h *Hub) BroadcastToAccount(accountID string, evt *realtime.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(evt.Type)).Msg("Failed to marshal event for broadcast.")
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[accountID]))
	for c := range h.rooms[accountID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.trySend(data)
	}
}

// BroadcastGlobal delivers evt to every live connection.
func (h *Hub) BroadcastGlobal(evt *realtime.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(evt.Type)).Msg("Failed to marshal event for broadcast.")
		return
	}

	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.trySend(data)
	}
}

// RoomSize returns the number of live connections in an account's room.
func (h *Hub) RoomSize(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[accountID])
}
