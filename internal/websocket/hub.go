package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrClientDisconnected = errors.New("client disconnected")

// PresenceTracker records which users currently hold at least one live
// connection. The redis-backed implementation lives in internal/services.
type PresenceTracker interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// Hub owns every live client and the per-channel rooms. Room membership is
// mutated from many connection goroutines; the hub serializes those
// mutations behind its own lock so handlers never have to.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients per user id; a user may hold several connections
	userClients map[string]map[*Client]bool

	// Room membership, keyed by room name (see RoomName)
	rooms map[string]map[*Client]bool

	// Register requests from new connections
	register chan *Client

	// Unregister requests from closing connections
	unregister chan *Client

	presence PresenceTracker

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex

	logger *slog.Logger
}

// NewHub builds a hub. presence may be nil when no tracker is wired.
func NewHub(presence PresenceTracker, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		presence:    presence,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			h.logger.Info("websocket hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	if h.userClients[client.identity.UserID] == nil {
		h.userClients[client.identity.UserID] = make(map[*Client]bool)
	}
	h.userClients[client.identity.UserID][client] = true
	h.mu.Unlock()

	h.logger.Info("client registered", "clientID", client.id, "userID", client.identity.UserID)

	if h.presence != nil {
		if err := h.presence.SetUserOnline(h.ctx, client.identity.UserID); err != nil {
			h.logger.Error("failed to set user online", "userID", client.identity.UserID, "error", err)
		}
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)

	if set := h.userClients[client.identity.UserID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.userClients, client.identity.UserID)
		}
	}
	lastConnection := h.userClients[client.identity.UserID] == nil

	// Room cleanup happens here, not in handlers: a dropped socket leaves
	// every room implicitly.
	for room := range client.rooms {
		h.removeFromRoomLocked(client, room)
	}
	h.mu.Unlock()

	// Cancellation stops both pumps. The send channel is left open so a
	// broadcaster holding a stale reference can never hit a closed channel.
	client.close()

	h.logger.Info("client unregistered", "clientID", client.id, "userID", client.identity.UserID)

	if h.presence != nil && lastConnection {
		if err := h.presence.SetUserOffline(h.ctx, client.identity.UserID); err != nil {
			h.logger.Error("failed to set user offline", "userID", client.identity.UserID, "error", err)
		}
	}
}

// refreshPresence re-arms the online TTL for a user. Called from each
// connection's ping ticker so idle connections never age out of presence.
func (h *Hub) refreshPresence(userID string) {
	if h.presence == nil {
		return
	}
	if err := h.presence.SetUserOnline(h.ctx, userID); err != nil {
		h.logger.Warn("failed to refresh presence", "userID", userID, "error", err)
	}
}

// JoinRoom adds the client to a room, creating the room on first join.
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.rooms[room] = true
}

// LeaveRoom removes the client from a room. Leaving a room the client is
// not in is not an error.
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(client, room)
}

func (h *Hub) removeFromRoomLocked(client *Client, room string) {
	if members := h.rooms[room]; members != nil {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(client.rooms, room)
}

// BroadcastToRoom delivers a payload to every member of a room, optionally
// excluding one client (typing updates skip the sender). Slow clients whose
// send buffers are full are dropped rather than allowed to stall the room.
func (h *Hub) BroadcastToRoom(room string, payload []byte, exclude *Client) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		if client != exclude {
			members = append(members, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range members {
		if err := client.enqueue(payload); err != nil {
			h.logger.Warn("dropping unresponsive client", "clientID", client.id, "room", room)
		}
	}
}

// RoomSize reports the current member count of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// InRoom reports whether the client is currently a member of the room.
func (h *Hub) InRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[room][client]
}
