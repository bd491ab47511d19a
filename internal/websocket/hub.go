// Package websocket pushes job snapshots to browser clients.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"logclassifier/internal/infrastructure"
	"logclassifier/pkg/contracts/events"
)

// Hub maintains the set of active clients and broadcasts messages to them.
// Only the Run loop touches the clients map and closes send channels.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	pingPeriod time.Duration
	pongWait   time.Duration

	logger *slog.Logger

	// counters, guarded by statsMu
	statsMu          sync.Mutex
	activeClients    int
	totalConnections int64
	messagesSent     int64
	messagesDropped  int64
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		pingPeriod: defaultPingPeriod,
		pongWait:   defaultPongWait,
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
	}
}

// SetKeepalive changes how often clients are pinged and how long a pong may
// take. It must be called before clients connect; a ping period not shorter
// than pongWait is ignored.
func (h *Hub) SetKeepalive(pingPeriod, pongWait time.Duration) {
	if pingPeriod <= 0 || pongWait <= 0 || pingPeriod >= pongWait {
		h.logger.Warn("ignoring invalid websocket keepalive",
			slog.Duration("ping_period", pingPeriod),
			slog.Duration("pong_wait", pongWait))
		return
	}
	h.pingPeriod = pingPeriod
	h.pongWait = pongWait
}

// Start runs the hub loop in a goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.Run()
}

// Stop closes every client and waits for the hub loop to exit
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.quit)
	h.mu.Unlock()

	<-h.done
}

// Run is the hub's main loop
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.setActive(0)
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.statsMu.Lock()
			h.totalConnections++
			h.statsMu.Unlock()
			h.setActive(len(h.clients))

			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", len(h.clients)),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if msg, err := encode(events.MessageTypeConnect, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			}, client.traceID); err == nil {
				select {
				case client.send <- msg:
				default:
				}
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.setActive(len(h.clients))

				h.logger.InfoContext(client.context(), "Client unregistered",
					slog.Int("total_clients", len(h.clients)),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case message := <-h.broadcast:
			sent, dropped := 0, 0
			for client := range h.clients {
				select {
				case client.send <- message:
					sent++
				default:
					// slow consumer
					dropped++
					close(client.send)
					delete(h.clients, client)
					h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
			h.setActive(len(h.clients))

			h.statsMu.Lock()
			h.messagesSent += int64(sent)
			h.messagesDropped += int64(dropped)
			h.statsMu.Unlock()
		}
	}
}

func (h *Hub) setActive(n int) {
	h.statsMu.Lock()
	h.activeClients = n
	h.statsMu.Unlock()
}

// BroadcastUpdate sends a typed message to all connected clients. It never
// blocks; when the broadcast buffer is full the message is dropped.
func (h *Hub) BroadcastUpdate(eventType, id, status string, data interface{}) {
	msg, err := encode(events.MessageType(eventType), data, "")
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", eventType),
			slog.String("id", id))
		return
	}

	select {
	case h.broadcast <- msg:
	case <-h.quit:
	default:
		h.statsMu.Lock()
		h.messagesDropped++
		h.statsMu.Unlock()
		h.logger.Warn("Broadcast buffer full, dropping message",
			slog.String("message_type", eventType),
			slog.String("id", id),
			slog.String("status", status))
	}
}

// Register adds a client to the hub. It returns false when the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	return h.activeClients
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()

	return map[string]interface{}{
		"active_clients":    h.activeClients,
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
	}
}

func encode(msgType events.MessageType, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.NewString(),
			Type:      msgType,
			Timestamp: time.Now(),
			TraceID:   traceID,
		},
		Data: data,
	})
}

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}
