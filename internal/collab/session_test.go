package collab_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haldane/peritext/internal/changes"
	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/collab"
	"github.com/haldane/peritext/internal/document"
	"github.com/haldane/peritext/internal/relay"
	"github.com/haldane/peritext/internal/storage"
)

func insertOp(values ...string) changes.PrimitiveOp {
	return changes.NewInsertOp(0, values)
}

// localChange builds a Change the way a client's own document.Document
// would, by feeding ops through a throwaway replica and taking the
// resulting identity-resolved Change.
func localChange(t *testing.T, actor clock.ActorId, ops []changes.PrimitiveOp) changes.Change {
	t.Helper()

	doc := document.NewDocument(actor)
	c, err := doc.Change(ops)
	require.NoError(t, err)
	return c
}

func joinRuns(runs []document.TextRun) string {
	var out string
	for _, r := range runs {
		out += r.Text
	}
	return out
}

func TestSession_SubmitChange(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	session := collab.NewSession(collab.SessionConfig{
		DocID: "doc1",
		Store: store,
	})

	require.NoError(t, session.Load())

	c := localChange(t, "alice", []changes.PrimitiveOp{insertOp("H", "i")})
	require.NoError(t, session.SubmitChange("client1", c))

	runs, clk, err := session.GetState()
	require.NoError(t, err)
	require.Equal(t, "Hi", joinRuns(runs))
	require.Equal(t, uint64(2), clk.Get("alice"))
}

func TestSession_SubmitChange_WithHubAndNoSubscribers(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	hub := relay.NewHub()
	session := collab.NewSession(collab.SessionConfig{
		DocID: "doc1",
		Store: store,
		Hub:   hub,
	})
	require.NoError(t, session.Load())

	c := localChange(t, "alice", []changes.PrimitiveOp{insertOp("x")})
	require.NoError(t, session.SubmitChange("client1", c))
	// No subscribers registered: Broadcast has nothing to deliver to, and
	// should not error or panic.
}

func TestSession_Load_ReplaysExistingHistory(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	c1 := localChange(t, "alice", []changes.PrimitiveOp{insertOp("h", "i")})
	require.NoError(t, store.AppendChange("doc1", c1))

	session := collab.NewSession(collab.SessionConfig{
		DocID: "doc1",
		Store: store,
	})
	require.NoError(t, session.Load())

	runs, clk, err := session.GetState()
	require.NoError(t, err)
	require.Equal(t, "hi", joinRuns(runs))
	require.Equal(t, uint64(2), clk.Get("alice"))
}

func TestSession_Close(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	session := collab.NewSession(collab.SessionConfig{
		DocID: "doc1",
		Store: store,
	})
	require.NoError(t, session.Load())

	c := localChange(t, "alice", []changes.PrimitiveOp{insertOp("x")})
	require.NoError(t, session.SubmitChange("client1", c))

	require.NoError(t, session.Close())

	c2 := localChange(t, "alice", []changes.PrimitiveOp{insertOp("y")})
	err := session.SubmitChange("client1", c2)
	if !errors.Is(err, collab.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}

	_, _, err = session.GetState()
	if !errors.Is(err, collab.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}

	snap, err := store.LoadSnapshot("doc1")
	require.NoError(t, err)
	require.Equal(t, "x", snap.Text)
}

func TestSession_DocID(t *testing.T) {
	t.Parallel()

	session := collab.NewSession(collab.SessionConfig{
		DocID: "my-doc",
		Store: storage.NewMemoryStore(),
	})

	if session.DocID() != "my-doc" {
		t.Errorf("expected 'my-doc', got %q", session.DocID())
	}
}
