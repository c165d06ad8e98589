// Package relay adapts the teacher's WebSocket hub/client broadcast
// pattern to fan out change records instead of raw OT operations
// (SPEC_FULL.md §0: this is ambient transport, not part of the core).
package relay

import "github.com/haldane/peritext/internal/changes"

// MessageType identifies the kind of message exchanged over a relay
// connection.
type MessageType string

const (
	// Peer to relay messages.
	MessageTypeChange MessageType = "change" // peer submits a locally-produced change
	MessageTypeSync    MessageType = "sync"   // peer asks for everything it's missing

	// Relay to peer messages.
	MessageTypeBroadcast MessageType = "broadcast" // relay forwards a change from another peer
	MessageTypeSyncReply MessageType = "syncReply"  // relay answers a sync request
	MessageTypeError     MessageType = "error"
)

// Message is the envelope for all relay communication.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// ChangePayload carries one change record a peer produced or another
// peer's change being relayed.
type ChangePayload struct {
	DocID  string          `json:"docId"`
	Change changes.Change  `json:"change"`
}

// SyncPayload asks the relay for every change beyond the sender's
// current clock for docID.
type SyncPayload struct {
	DocID string               `json:"docId"`
	Clock map[string]uint64    `json:"clock"`
}

// SyncReplyPayload answers a SyncPayload with the missing changes.
type SyncReplyPayload struct {
	DocID   string           `json:"docId"`
	Changes []changes.Change `json:"changes"`
}

// ErrorPayload reports a problem to the peer.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrorCodeInvalidMessage     = "invalid_message"
	ErrorCodeMissingDependency  = "missing_dependency"
	ErrorCodeInternalError      = "internal_error"
)
