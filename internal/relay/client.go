package relay

import (
	"encoding/json"
	"sync"
)

// Conn abstracts a WebSocket connection for testability, exactly as the
// teacher's ws.Conn does.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// Client represents one connected replica.
type Client struct {
	ID   string
	conn Conn

	mu    sync.Mutex
	docID string
}

// NewClient wraps a connection with the bookkeeping the Hub needs.
func NewClient(id string, conn Conn) *Client {
	return &Client{ID: id, conn: conn}
}

// Send writes a message to the client.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.WriteJSON(msg)
}

// SendError sends an error message to the client.
func (c *Client) SendError(code, message string) error {
	return c.Send(Message{
		Type:    MessageTypeError,
		Payload: ErrorPayload{Code: code, Message: message},
	})
}

// Receive reads and decodes the next message from the client.
func (c *Client) Receive() (Message, error) {
	var raw struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := c.conn.ReadJSON(&raw); err != nil {
		return Message{}, err
	}

	msg := Message{Type: raw.Type}
	switch raw.Type {
	case MessageTypeChange:
		var payload ChangePayload
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return Message{}, err
		}
		msg.Payload = payload
	case MessageTypeSync:
		var payload SyncPayload
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return Message{}, err
		}
		msg.Payload = payload
	case MessageTypeBroadcast, MessageTypeSyncReply, MessageTypeError:
		msg.Payload = raw.Payload
	}
	return msg, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// DocID returns the document the client is currently subscribed to.
func (c *Client) DocID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.docID
}

// SetDocID sets the document the client is currently subscribed to.
func (c *Client) SetDocID(docID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.docID = docID
}
