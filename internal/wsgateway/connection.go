package wsgateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohamedkhairy/commodity-dashboard/internal/models"
	"github.com/mohamedkhairy/commodity-dashboard/pkg/logger"
)

// Connection represents a WebSocket connection with a dashboard client
type Connection struct {
	ID        string
	UserID    string
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	lastPong  time.Time
	createdAt time.Time
}

// NewConnection creates a new WebSocket connection
func NewConnection(id string, userID string, conn *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		ID:        id,
		UserID:    userID,
		Conn:      conn,
		Send:      make(chan []byte, 256), // Buffered channel
		ctx:       ctx,
		cancel:    cancel,
		createdAt: time.Now(),
		lastPong:  time.Now(),
	}
}

// UpdateLastPong updates the last pong time
func (c *Connection) UpdateLastPong() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = time.Now()
}

// GetLastPong returns the last pong time
func (c *Connection) GetLastPong() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPong
}

// CreatedAt returns when the connection was established
func (c *Connection) CreatedAt() time.Time {
	return c.createdAt
}

// Close closes the connection. Safe to call from both pump goroutines.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.Send)
		c.Conn.Close()
	})
}

// WriteMessage writes a message to the connection
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.Conn.WriteMessage(messageType, data)
}

// ReadMessage reads a message from the connection
func (c *Connection) ReadMessage() (messageType int, p []byte, err error) {
	return c.Conn.ReadMessage()
}

// SendEvent queues a snapshot_updated notification for the connection
func (c *Connection) SendEvent(event *models.RefreshEvent) error {
	message := ServerMessage{
		Type: MessageTypeSnapshotUpdated,
		Data: event,
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	case <-time.After(1 * time.Second):
		logger.Warn("Failed to send refresh event, channel full",
			logger.String("connection_id", c.ID),
			logger.String("user_id", c.UserID),
		)
		return nil // Drop message if channel is full
	}
}

// SendError queues an error message for the connection. Dropped when
// the channel is full.
func (c *Connection) SendError(code string, message string) error {
	return c.queueMessage(ServerMessage{
		Type:    MessageTypeError,
		Code:    code,
		Message: message,
	})
}
