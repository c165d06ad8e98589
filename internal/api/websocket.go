package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/collab"
	"github.com/haldane/peritext/internal/corerr"
	"github.com/haldane/peritext/internal/relay"
	"github.com/haldane/peritext/internal/storage"
)

// handleWebSocket handles GET /ws?docId={id}, adapted from the teacher's
// internal/handler/websocket.go onto relay.Client/relay.Hub and
// collab.Session.SubmitChange/Sync.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "docId query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	clientID := uuid.New().String()
	client := relay.NewClient(clientID, conn)
	s.hub.Register(client)
	s.hub.Subscribe(client, docID)

	defer func() {
		s.hub.Unregister(client)
		_ = client.Close()
	}()

	session, err := s.manager.GetOrCreateSession(docID)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			_ = client.SendError(relay.ErrorCodeInvalidMessage, "document not found")
		} else {
			_ = client.SendError(relay.ErrorCodeInternalError, "failed to load document")
		}
		return
	}

	if !s.sendSyncReply(client, session, docID, clock.NewVectorClock()) {
		return
	}

	s.handleMessages(client, session, docID)
}

// handleMessages processes incoming messages from a client until it
// disconnects.
func (s *Server) handleMessages(client *relay.Client, session *collab.Session, docID string) {
	for {
		msg, err := client.Receive()
		if err != nil {
			return
		}

		switch msg.Type {
		case relay.MessageTypeChange:
			s.handleChange(client, session, msg)
		case relay.MessageTypeSync:
			s.handleSync(client, session, docID, msg)
		default:
			_ = client.SendError(relay.ErrorCodeInvalidMessage, "unexpected message type")
		}
	}
}

// handleChange applies a change the client produced locally.
func (s *Server) handleChange(client *relay.Client, session *collab.Session, msg relay.Message) {
	payload, ok := msg.Payload.(relay.ChangePayload)
	if !ok {
		_ = client.SendError(relay.ErrorCodeInvalidMessage, "invalid change payload")
		return
	}

	if err := session.SubmitChange(client.ID, payload.Change); err != nil {
		if errors.Is(err, corerr.ErrMissingDependency) {
			_ = client.SendError(relay.ErrorCodeMissingDependency, "change depends on unseen operations")
		} else {
			_ = client.SendError(relay.ErrorCodeInternalError, err.Error())
		}
		return
	}
}

// handleSync answers a sync request with every change the client hasn't
// observed yet.
func (s *Server) handleSync(client *relay.Client, session *collab.Session, docID string, msg relay.Message) {
	payload, ok := msg.Payload.(relay.SyncPayload)
	if !ok {
		_ = client.SendError(relay.ErrorCodeInvalidMessage, "invalid sync payload")
		return
	}

	since := clock.NewVectorClock()
	for actor, n := range payload.Clock {
		since[clock.ActorId(actor)] = n
	}

	s.sendSyncReply(client, session, docID, since)
}

// sendSyncReply sends every change beyond since. Returns false (and has
// already reported the error) if the reply could not be sent.
func (s *Server) sendSyncReply(client *relay.Client, session *collab.Session, docID string, since clock.VectorClock) bool {
	changes, err := session.Sync(since)
	if err != nil {
		_ = client.SendError(relay.ErrorCodeInternalError, "failed to get document state")
		return false
	}

	if err := client.Send(relay.Message{
		Type:    relay.MessageTypeSyncReply,
		Payload: relay.SyncReplyPayload{DocID: docID, Changes: changes},
	}); err != nil {
		return false
	}
	return true
}
