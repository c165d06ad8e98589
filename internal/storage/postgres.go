package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haldane/peritext/internal/changes"
	"github.com/haldane/peritext/internal/clock"
)

// PostgresStore persists change history and snapshots in Postgres,
// grounded on CollabText's server/main.go pgxpool wiring. It holds a
// connection pool rather than a single connection, the way that wiring
// does, and issues its statements one at a time rather than batching
// (most methods first check that the document exists, then run their own
// statement) -- this system's write volume (one row per applied change)
// doesn't call for more.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already-connected pool. Callers are expected
// to have applied the schema in schema.sql before first use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateDocument(docID string) error {
	ctx := context.Background()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (doc_id) VALUES ($1)`, docID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDocumentExists
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) DocumentExists(docID string) (bool, error) {
	ctx := context.Background()
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE doc_id = $1)`, docID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) AppendChange(docID string, c changes.Change) error {
	exists, err := s.DocumentExists(docID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrDocumentNotFound
	}

	payload, err := changes.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	ctx := context.Background()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO changes (doc_id, actor, seq, end_counter, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		docID, string(c.Actor), c.Seq, c.EndCounter(), payload)
	if err != nil {
		return fmt.Errorf("append change: %w", err)
	}
	return nil
}

func (s *PostgresStore) ChangesSince(docID string, since clock.VectorClock) ([]changes.Change, error) {
	exists, err := s.DocumentExists(docID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrDocumentNotFound
	}

	ctx := context.Background()
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM changes WHERE doc_id = $1 ORDER BY id ASC`, docID)
	if err != nil {
		return nil, fmt.Errorf("load changes: %w", err)
	}
	defer rows.Close()

	var all []changes.Change
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c, err := changes.Unmarshal(payload)
		if err != nil {
			return nil, err
		}
		if c.EndCounter() > since.Get(c.Actor) {
			all = append(all, c)
		}
	}
	return all, rows.Err()
}

func (s *PostgresStore) Clock(docID string) (clock.VectorClock, error) {
	exists, err := s.DocumentExists(docID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrDocumentNotFound
	}

	ctx := context.Background()
	rows, err := s.pool.Query(ctx,
		`SELECT actor, MAX(end_counter) FROM changes WHERE doc_id = $1 GROUP BY actor`, docID)
	if err != nil {
		return nil, fmt.Errorf("load clock: %w", err)
	}
	defer rows.Close()

	clk := clock.NewVectorClock()
	for rows.Next() {
		var actor string
		var maxCounter uint64
		if err := rows.Scan(&actor, &maxCounter); err != nil {
			return nil, fmt.Errorf("scan clock row: %w", err)
		}
		clk.Advance(clock.ActorId(actor), maxCounter)
	}
	return clk, rows.Err()
}

func (s *PostgresStore) SaveSnapshot(docID string, snap Snapshot) error {
	exists, err := s.DocumentExists(docID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrDocumentNotFound
	}

	clockJSON, err := json.Marshal(snap.Clock)
	if err != nil {
		return fmt.Errorf("marshal snapshot clock: %w", err)
	}

	ctx := context.Background()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (doc_id, text, vector_clock, created_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (doc_id) DO UPDATE SET text = $2, vector_clock = $3, created_at = now()`,
		docID, snap.Text, clockJSON)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadSnapshot(docID string) (Snapshot, error) {
	exists, err := s.DocumentExists(docID)
	if err != nil {
		return Snapshot{}, err
	}
	if !exists {
		return Snapshot{}, ErrDocumentNotFound
	}

	ctx := context.Background()
	var text string
	var clockJSON []byte
	var createdAt time.Time
	row := s.pool.QueryRow(ctx,
		`SELECT text, vector_clock, created_at FROM snapshots WHERE doc_id = $1`, docID)
	if err := row.Scan(&text, &clockJSON, &createdAt); err != nil {
		return Snapshot{}, ErrSnapshotNotFound
	}

	var clk clock.VectorClock
	if err := json.Unmarshal(clockJSON, &clk); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot clock: %w", err)
	}

	return Snapshot{DocID: docID, Text: text, Clock: clk, CreatedAt: createdAt}, nil
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
