package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"samplecrate/core/auth"
	"samplecrate/core/dedup"
	"samplecrate/logger"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// summaryConn is the subset of *websocket.Conn the write pump uses.
type summaryConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// wsClient is one websocket connection of a user. Summaries are queued on
// the send channel and written by a single write pump goroutine, so the
// connection never sees concurrent writes.
type wsClient struct {
	hub    *WSHub
	userID int64
	send   chan dedup.Summary
}

// writePump drains the send channel onto the connection. It is the only
// goroutine allowed to write. It exits when the hub closes the channel or
// a write fails.
func (c *wsClient) writePump(conn summaryConn) {
	defer conn.Close()
	for summary := range c.send {
		if err := conn.WriteJSON(summary); err != nil {
			logger.Warn("websocket write failed", logger.Int64("userId", c.userID), logger.ErrorField(err))
			c.hub.unregister(c)
			return
		}
	}
}

// WSHub tracks the websocket clients of each user and pushes summary
// updates to them after every resolution-state change.
type WSHub struct {
	mu      sync.Mutex
	clients map[int64]map[*wsClient]struct{}
}

// NewWSHub creates an empty hub.
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[int64]map[*wsClient]struct{})}
}

// register creates a client for a user connection. The caller starts the
// write pump and must unregister when the connection ends.
func (hub *WSHub) register(userID int64) *wsClient {
	client := &wsClient{hub: hub, userID: userID, send: make(chan dedup.Summary, 16)}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.clients[userID] == nil {
		hub.clients[userID] = make(map[*wsClient]struct{})
	}
	hub.clients[userID][client] = struct{}{}
	return client
}

// unregister removes a client and closes its send channel, stopping the
// write pump. Safe to call more than once. Closing under the hub lock
// means no Broadcast can be sending to the channel at that moment.
func (hub *WSHub) unregister(client *wsClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	set, ok := hub.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(hub.clients, client.userID)
	}
}

// sendTo queues a summary for one client if it is still registered.
func (hub *WSHub) sendTo(client *wsClient, summary dedup.Summary) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if set, ok := hub.clients[client.userID]; ok {
		if _, ok := set[client]; ok {
			select {
			case client.send <- summary:
			default:
			}
		}
	}
}

// Broadcast queues a summary for every client of a user. A client whose
// buffer is full misses this update; a newer summary supersedes it anyway.
func (hub *WSHub) Broadcast(userID int64, summary dedup.Summary) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for client := range hub.clients[userID] {
		select {
		case client.send <- summary:
		default:
		}
	}
}

// DuplicateSummaryWSHandler upgrades the connection and streams summary
// updates until the client disconnects. The token travels as a query
// parameter because browsers cannot set headers on websocket requests.
func (h *APIHandler) DuplicateSummaryWSHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseToken(r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	userID := claims.UserID
	client := h.hub.register(userID)
	defer h.hub.unregister(client)
	go client.writePump(conn)

	// Initial snapshot so the client does not wait for the first change.
	h.hub.sendTo(client, h.resolverFor(userID).Summary())

	// Reads are only consumed to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
