package relay

import (
	"sync"

	"github.com/haldane/peritext/internal/changes"
)

// Hub tracks connected clients and fans out change records to every
// other client subscribed to the same document, the same way the
// teacher's ws.Hub fans out OT operations.
type Hub struct {
	mu sync.RWMutex

	clients   map[string]*Client
	documents map[string]map[string]struct{}
}

// NewHub creates a new, empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		documents: make(map[string]map[string]struct{}),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
}

// Unregister removes a client from the hub and any document subscription.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if docID := client.DocID(); docID != "" {
		h.removeFromDocumentLocked(docID, client.ID)
	}
	delete(h.clients, client.ID)
}

// Subscribe adds a client to a document's broadcast list.
func (h *Hub) Subscribe(client *Client, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old := client.DocID(); old != "" && old != docID {
		h.removeFromDocumentLocked(old, client.ID)
	}

	if h.documents[docID] == nil {
		h.documents[docID] = make(map[string]struct{})
	}
	h.documents[docID][client.ID] = struct{}{}
	client.SetDocID(docID)
}

// Unsubscribe removes a client from a document's broadcast list.
func (h *Hub) Unsubscribe(client *Client, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromDocumentLocked(docID, client.ID)
	if client.DocID() == docID {
		client.SetDocID("")
	}
}

func (h *Hub) removeFromDocumentLocked(docID, clientID string) {
	clients, ok := h.documents[docID]
	if !ok {
		return
	}
	delete(clients, clientID)
	if len(clients) == 0 {
		delete(h.documents, docID)
	}
}

// Broadcast sends msg to every client subscribed to docID except
// excludeClientID.
func (h *Hub) Broadcast(docID string, msg Message, excludeClientID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clientIDs, ok := h.documents[docID]
	if !ok {
		return
	}

	for clientID := range clientIDs {
		if clientID == excludeClientID {
			continue
		}
		client, ok := h.clients[clientID]
		if !ok {
			continue
		}
		go func(c *Client) {
			_ = c.Send(msg)
		}(client)
	}
}

// BroadcastChange is a convenience wrapper for broadcasting a single
// change record to a document's other subscribers.
func (h *Hub) BroadcastChange(docID string, c changes.Change, excludeClientID string) {
	h.Broadcast(docID, Message{
		Type:    MessageTypeBroadcast,
		Payload: ChangePayload{DocID: docID, Change: c},
	}, excludeClientID)
}

// ClientCount returns how many clients are subscribed to docID.
func (h *Hub) ClientCount(docID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.documents[docID])
}

// TotalClients returns the total number of registered clients.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
