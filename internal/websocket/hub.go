package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ai-docagent-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Hub maintains document rooms: every client subscribes to exactly one
// document and receives that document's agent/edit events.
type Hub struct {
	// Registered clients map: DocumentID -> List of Clients (multi-tab)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.DocumentID] = append(h.clients[client.DocumentID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"document_id": client.DocumentID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.DocumentID]; ok {
				for i, c := range clients {
					if c == client {
						// Remove from slice
						h.clients[client.DocumentID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.DocumentID]) == 0 {
					delete(h.clients, client.DocumentID)
					h.logger.Info("Hub", "Document room emptied", map[string]interface{}{"document_id": client.DocumentID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish sends an event to every client watching the given document,
// and relays it through Redis for clients connected to other instances.
func (h *Hub) Publish(documentID, eventType string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": payload,
	})
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal event", map[string]interface{}{"error": err.Error(), "type": eventType})
		return
	}

	h.deliverLocal(documentID, data)

	if h.rdb != nil {
		envelope := map[string]interface{}{
			"target_document_id": documentID,
			"message":            json.RawMessage(data),
		}
		jsonPayload, _ := json.Marshal(envelope)
		h.rdb.Publish(context.Background(), "document_events", jsonPayload)
	}
}

func (h *Hub) deliverLocal(documentID string, data []byte) {
	var slow []*Client

	// Sends stay under the read lock so no delivery can race the Run
	// loop's close of a dropped client's Send channel.
	h.mu.RLock()
	for _, client := range h.clients[documentID] {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// Closing Send is the Run loop's job alone; it only closes channels it
	// still tracks, so unregistering the same client twice is harmless.
	for _, client := range slow {
		h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{"document_id": documentID})
		h.unregister <- client
	}
}

// subscribeToRedis relays events published by other instances: every
// instance subscribes to "document_events" and delivers only to documents
// it holds locally.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "document_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetDocumentID string          `json:"target_document_id"`
			Message          json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		h.deliverLocal(payload.TargetDocumentID, payload.Message)
	}
}
