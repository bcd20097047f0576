package wsgateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohamedkhairy/commodity-dashboard/internal/config"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/internal/pubsub"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/logger"
)

// EventSource is the pub/sub surface the hub consumes refresh
// notifications from. Satisfied by pubsub.Client.
type EventSource interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan pubsub.PubSubMessage, error)
}

// Hub manages WebSocket connections and broadcasts refresh notifications
// to every connected dashboard.
type Hub struct {
	config         config.WSGatewayConfig
	registry       *ConnectionRegistry
	events         EventSource
	refreshChannel string
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	mu             sync.RWMutex
	running        bool
	stats          HubStats
}

// HubStats holds statistics about the hub
type HubStats struct {
	ConnectionsTotal  int64
	ConnectionsActive int64
	EventsReceived    int64
	EventsBroadcast   int64
	MessagesSent      int64
	MessagesDropped   int64
	LastEventTime     time.Time
	mu                sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(config config.WSGatewayConfig, events EventSource) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:         config,
		registry:       NewConnectionRegistry(),
		events:         events,
		refreshChannel: config.RefreshChannel,
		ctx:            ctx,
		cancel:         cancel,
		stats:          HubStats{},
	}
}

// Start starts the hub (consumes refresh events and broadcasts)
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	logger.Info("Starting WebSocket hub",
		logger.String("refresh_channel", h.refreshChannel),
	)

	// Start consuming refresh events from the pub/sub channel
	h.wg.Add(1)
	go h.consumeRefreshEvents()

	// Start connection health monitor
	h.wg.Add(1)
	go h.monitorConnections()

	return nil
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	logger.Info("Stopping WebSocket hub")
	h.cancel()
	h.wg.Wait()
	logger.Info("WebSocket hub stopped")
}

// Register registers a new connection
func (h *Hub) Register(conn *Connection) {
	h.registry.Add(conn)
	h.incrementConnectionsTotal()

	logger.Info("Connection registered",
		logger.String("connection_id", conn.ID),
		logger.String("user_id", conn.UserID),
		logger.Int("total_connections", h.registry.Count()),
	)

	// Start connection handlers
	h.wg.Add(2)
	go h.writePump(conn)
	go h.readPump(conn)
}

// Unregister unregisters a connection
func (h *Hub) Unregister(conn *Connection) {
	h.registry.Remove(conn.ID)
	conn.Close()

	logger.Info("Connection unregistered",
		logger.String("connection_id", conn.ID),
		logger.String("user_id", conn.UserID),
		logger.Int("total_connections", h.registry.Count()),
	)
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	return h.registry.Count()
}

// consumeRefreshEvents consumes refresh events from the pub/sub channel
// and broadcasts them to all connections
func (h *Hub) consumeRefreshEvents() {
	defer h.wg.Done()

	messageChan, err := h.events.Subscribe(h.ctx, h.refreshChannel)
	if err != nil {
		logger.Error("Failed to subscribe to refresh channel",
			logger.ErrorField(err),
			logger.String("channel", h.refreshChannel),
		)
		return
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-messageChan:
			if !ok {
				logger.Warn("Refresh event channel closed")
				return
			}

			var event models.RefreshEvent
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				logger.Error("Failed to unmarshal refresh event",
					logger.ErrorField(err),
					logger.String("channel", msg.Channel),
				)
				continue
			}

			h.incrementEventsReceived()
			h.broadcastEvent(&event)
		}
	}
}

// broadcastEvent broadcasts a refresh event to all connections
func (h *Hub) broadcastEvent(event *models.RefreshEvent) {
	connections := h.registry.GetAll()
	sent := 0
	dropped := 0

	for _, conn := range connections {
		if err := conn.SendEvent(event); err != nil {
			dropped++
			logger.Debug("Failed to send refresh event to connection",
				logger.ErrorField(err),
				logger.String("connection_id", conn.ID),
			)
		} else {
			sent++
			h.incrementMessagesSent()
		}
	}

	h.incrementEventsBroadcast()
	if dropped > 0 {
		h.incrementMessagesDropped(int64(dropped))
	}

	logger.Debug("Broadcast refresh event",
		logger.String("event_id", event.ID),
		logger.String("trigger", event.Trigger),
		logger.Int("sent", sent),
		logger.Int("dropped", dropped),
		logger.Int("total_connections", len(connections)),
	)
}

// writePump pumps messages from the hub to the WebSocket connection
func (h *Hub) writePump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				// Channel closed
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := conn.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current message
			n := len(conn.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-conn.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (h *Hub) readPump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.UpdateLastPong()
		conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket error",
					logger.ErrorField(err),
					logger.String("connection_id", conn.ID),
				)
			}
			break
		}

		// Parse client message
		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			conn.SendError("invalid_message", "failed to parse message")
			continue
		}

		// Handle client message
		if err := conn.HandleClientMessage(&clientMsg); err != nil {
			logger.Debug("Failed to handle client message",
				logger.ErrorField(err),
				logger.String("connection_id", conn.ID),
			)
		}
	}
}

// monitorConnections monitors connection health and removes stale connections
func (h *Hub) monitorConnections() {
	defer h.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.C:
			connections := h.registry.GetAll()
			now := time.Now()
			staleThreshold := h.config.ReadTimeout * 2

			for _, conn := range connections {
				lastPong := conn.GetLastPong()
				if now.Sub(lastPong) > staleThreshold {
					logger.Info("Removing stale connection",
						logger.String("connection_id", conn.ID),
						logger.String("user_id", conn.UserID),
						logger.Duration("idle_time", now.Sub(lastPong)),
					)
					h.Unregister(conn)
				}
			}
		}
	}
}

// GetStats returns hub statistics
func (h *Hub) GetStats() HubStats {
	h.stats.mu.RLock()
	defer h.stats.mu.RUnlock()

	// Return a copy with the live connection count
	return HubStats{
		ConnectionsTotal:  h.stats.ConnectionsTotal,
		ConnectionsActive: int64(h.registry.Count()),
		EventsReceived:    h.stats.EventsReceived,
		EventsBroadcast:   h.stats.EventsBroadcast,
		MessagesSent:      h.stats.MessagesSent,
		MessagesDropped:   h.stats.MessagesDropped,
		LastEventTime:     h.stats.LastEventTime,
	}
}

// Stats increment methods
func (h *Hub) incrementConnectionsTotal() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.ConnectionsTotal++
}

func (h *Hub) incrementEventsReceived() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.EventsReceived++
	h.stats.LastEventTime = time.Now()
}

func (h *Hub) incrementEventsBroadcast() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.EventsBroadcast++
}

func (h *Hub) incrementMessagesSent() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.MessagesSent++
}

func (h *Hub) incrementMessagesDropped(count int64) {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.MessagesDropped += count
}
