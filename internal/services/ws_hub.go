package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Live event types pushed to list viewers
const (
	EventRegistrationCreated   = "registration_created"
	EventRegistrationSignedOut = "registration_signed_out"
	EventRegistrationDeleted   = "registration_deleted"
	EventWalletCreated         = "wallet_created"
	EventWalletDeleted         = "wallet_deleted"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Broadcaster publishes live events to connected viewers
type Broadcaster interface {
	Broadcast(msg WSMessage)
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes; gorilla allows one concurrent writer
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections of list viewers
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*wsClient),
	}
}

// Register registers a new viewer connection
func (h *WSHub) Register(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existing, exists := h.connections[clientID]; exists {
		existing.conn.Close()
	}

	h.connections[clientID] = &wsClient{conn: conn}

	log.Info().Str("client_id", clientID).Msg("WebSocket connection registered")
}

// Unregister removes a viewer connection
func (h *WSHub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, exists := h.connections[clientID]; exists {
		c.conn.Close()
		delete(h.connections, clientID)
		log.Info().Str("client_id", clientID).Msg("WebSocket connection unregistered")
	}
}

// SendTo sends a message to a single viewer
func (h *WSHub) SendTo(clientID string, message WSMessage) error {
	h.mu.RLock()
	c, exists := h.connections[clientID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("client %s is not connected", clientID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.write(data); err != nil {
		h.Unregister(clientID)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Broadcast sends a message to every connected viewer. Viewers whose
// connection fails are dropped.
func (h *WSHub) Broadcast(message WSMessage) {
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("type", message.Type).Msg("Failed to marshal broadcast")
		return
	}

	h.mu.RLock()
	targets := make(map[string]*wsClient, len(h.connections))
	for id, c := range h.connections {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		if err := c.write(data); err != nil {
			log.Error().Err(err).Str("client_id", id).Msg("Failed to broadcast to viewer")
			h.Unregister(id)
		}
	}

	log.Debug().
		Str("type", message.Type).
		Int("viewers", len(targets)).
		Msg("Event broadcast")
}

// Count returns the number of connected viewers
func (h *WSHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// CloseAll disconnects every viewer
func (h *WSHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.connections {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.conn.Close()
		delete(h.connections, id)
	}
}
