package wsgateway

import (
	"encoding/json"
	"fmt"
)

// MessageType identifies a WebSocket message
type MessageType string

const (
	// Client -> server
	MessageTypePing MessageType = "ping"

	// Server -> client
	MessageTypeConnected       MessageType = "connected"
	MessageTypeSnapshotUpdated MessageType = "snapshot_updated"
	MessageTypePong            MessageType = "pong"
	MessageTypeError           MessageType = "error"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage represents a message to the client
type ServerMessage struct {
	Type    MessageType `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandleClientMessage handles a message from the client. Dashboards are
// push-only consumers: every connection receives every refresh
// notification, so the only client message is an application-level ping.
func (c *Connection) HandleClientMessage(msg *ClientMessage) error {
	switch MessageType(msg.Type) {
	case MessageTypePing:
		return c.SendPong()

	default:
		return c.SendError("unknown_message_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

// SendConnected queues the connection acknowledgment for the client
func (c *Connection) SendConnected() error {
	return c.queueMessage(ServerMessage{
		Type: MessageTypeConnected,
		Data: map[string]string{"connection_id": c.ID},
	})
}

// SendPong queues a pong message for the client
func (c *Connection) SendPong() error {
	return c.queueMessage(ServerMessage{
		Type: MessageTypePong,
	})
}

// queueMessage hands a message to the write pump. All writes go through
// the Send channel so only one goroutine touches the socket.
func (c *Connection) queueMessage(message ServerMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return nil
	}
}
