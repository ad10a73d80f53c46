package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"marketplace-server/utils"
)

// Message types pushed to dashboards
const (
	TypeRequestUpdate = "request_update"
	TypePing          = "ping"
	TypePong          = "pong"
	TypeError         = "error"
)

// Client represents a connected WebSocket client
type Client struct {
	Hub    *Hub
	ID     uint
	Role   string
	Locale string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Message is the JSON frame exchanged with dashboards
type Message struct {
	Type      string      `json:"type"`
	RequestID uint        `json:"request_id,omitempty"`
	Status    string      `json:"status,omitempty"`
	Title     string      `json:"title,omitempty"`
	Body      string      `json:"body,omitempty"`
	SenderID  uint        `json:"sender_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// MessageHandler handles an inbound message type
type MessageHandler func(*Client, *Message) error

// Hub tracks one live connection per user. A newer connection for the same
// user replaces the older one.
type Hub struct {
	clients    map[uint]*Client
	register   chan *Client
	unregister chan *Client
	handlers   map[string]MessageHandler
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	hub := &Hub{
		clients:    make(map[uint]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		handlers:   make(map[string]MessageHandler),
		done:       make(chan struct{}),
		logger:     utils.GetLogger().Named("ws_hub"),
	}
	hub.handlers[TypePing] = hub.handlePing
	return hub
}

// Run starts the hub's main loop and closes every connection when ctx ends
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				close(old.Send)
			}
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.Uint("user_id", client.ID), zap.String("role", client.Role))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.ID]; ok && current == client {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.Uint("user_id", client.ID))

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// SendToUser queues a message for a user and reports whether it was queued
func (h *Hub) SendToUser(userID uint, message *Message) bool {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error marshaling message", zap.Error(err))
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	client, exists := h.clients[userID]
	if !exists {
		h.logger.Debug("User not connected", zap.Uint("user_id", userID), zap.String("type", message.Type))
		return false
	}

	select {
	case client.Send <- data:
		return true
	default:
		h.logger.Warn("Send buffer full", zap.Uint("user_id", userID))
		return false
	}
}

// LocaleOf returns the locale the user connected with, "" if not connected
func (h *Hub) LocaleOf(userID uint) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[userID]; ok {
		return client.Locale
	}
	return ""
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.clients[userID]
	return exists
}

// ConnectedCount returns the number of live connections
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handlePing(client *Client, _ *Message) error {
	if !h.SendToUser(client.ID, &Message{Type: TypePong}) {
		h.logger.Debug("Could not send pong", zap.Uint("user_id", client.ID))
	}
	return nil
}
