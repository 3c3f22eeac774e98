// Copyright 2025 CompyMac
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package trace

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the durable, append-only, queryable trace store described in
// spec §4.1. A single Store instance is shared process-wide; sessions are
// distinguished by session id.
//
// SQLite is opened with a single connection (mirroring the teacher's
// DBPool convention) because SQLite serializes writers anyway and a single
// connection avoids "database is locked" errors under concurrent append.
type Store struct {
	db    *sql.DB
	blobs *blobStore

	mu      sync.Mutex // serializes sequence allocation across sessions
	started int64      // monotonic clock origin, nanoseconds
	closed  map[string]bool
}

// Open opens (creating if necessary) a trace store backed by a SQLite file
// at dbPath and a content-addressed blob directory at blobRoot. Pass
// dbPath=":memory:" for ephemeral/test stores.
func Open(dbPath, blobRoot string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("trace: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	blobs, err := newBlobStore(blobRoot)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:      db,
		blobs:   blobs,
		started: time.Now().UnixNano(),
		closed:  make(map[string]bool),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	goal TEXT NOT NULL,
	workspace_root TEXT NOT NULL,
	phase TEXT NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	last_seq INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
	session_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	wall_clock INTEGER NOT NULL,
	monotonic INTEGER NOT NULL,
	parent_span TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL,
	payload TEXT NOT NULL,
	correlation_id TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(session_id, kind);
CREATE INDEX IF NOT EXISTS idx_events_correlation ON events(session_id, correlation_id);

CREATE TABLE IF NOT EXISTS spans (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	name TEXT NOT NULL,
	parent_id TEXT NOT NULL DEFAULT '',
	start_seq INTEGER NOT NULL,
	end_seq INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT '',
	attributes TEXT NOT NULL DEFAULT '{}',
	closed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_spans_session ON spans(session_id);
CREATE INDEX IF NOT EXISTS idx_spans_parent ON spans(parent_id);
`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("trace: migrate schema: %w", err)
	}
	return nil
}

// isTerminal reports whether the session has reached a terminal status.
// It is a fast in-memory check consulted before the row lookup; the set
// is populated by MarkTerminal (called from UpdateSessionState) and
// cleared by ClearTerminal (called from CreateSession).
func (s *Store) isTerminal(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed[sessionID]
}

// MarkTerminal records that a session has reached a terminal status so that
// subsequent AppendEvent calls fail fast with ErrSessionClosed.
func (s *Store) MarkTerminal(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed[sessionID] = true
}

// ClearTerminal is used by Fork/Resume to allow a new or resumed session to
// append again.
func (s *Store) ClearTerminal(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.closed, sessionID)
}

// AppendEvent appends an event to the session's trace and returns the
// assigned sequence number. Sequence numbers are contiguous starting at 1
// and strictly monotonic per session. The insert and the last_seq bump
// happen in one transaction so a crash mid-write never leaves a gap.
func (s *Store) AppendEvent(ctx context.Context, sessionID string, kind Kind, payload map[string]any, parentSpan, correlationID string) (int64, error) {
	if s.isTerminal(sessionID) {
		return 0, ErrSessionClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("trace: marshal payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("trace: begin tx: %w", err)
	}
	defer tx.Rollback()

	var lastSeq int64
	row := tx.QueryRowContext(ctx, `SELECT last_seq FROM sessions WHERE id = ?`, sessionID)
	if err := row.Scan(&lastSeq); err != nil {
		return 0, fmt.Errorf("trace: lookup session: %w", err)
	}

	seq := lastSeq + 1
	now := time.Now()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (session_id, seq, wall_clock, monotonic, parent_span, kind, payload, correlation_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, now.UnixNano(), time.Now().UnixNano()-s.started, parentSpan, string(kind), string(payloadJSON), correlationID)
	if err != nil {
		return 0, fmt.Errorf("trace: insert event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE sessions SET last_seq = ?, updated_at = ? WHERE id = ?`, seq, now.UnixNano(), sessionID)
	if err != nil {
		return 0, fmt.Errorf("trace: bump last_seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("trace: commit event: %w", err)
	}

	return seq, nil
}

// OpenSpan emits SPAN_START and returns the new span's id.
func (s *Store) OpenSpan(ctx context.Context, sessionID, name, parentID string, attributes map[string]any) (string, error) {
	id := newID("span")

	seq, err := s.AppendEvent(ctx, sessionID, KindSpanStart, map[string]any{
		"span_id": id, "name": name, "parent_id": parentID, "attributes": attributes,
	}, parentID, "")
	if err != nil {
		return "", err
	}

	attrsJSON, _ := json.Marshal(attributes)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO spans (id, session_id, name, parent_id, start_seq, attributes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, sessionID, name, parentID, seq, string(attrsJSON))
	if err != nil {
		return "", fmt.Errorf("trace: insert span: %w", err)
	}

	return id, nil
}

// CloseSpan emits SPAN_END. It is an invariant violation to close a span
// while any of its direct children are still open.
func (s *Store) CloseSpan(ctx context.Context, sessionID, spanID, status string, attributes map[string]any) error {
	var openChildren int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spans WHERE parent_id = ? AND closed = 0`, spanID)
	if err := row.Scan(&openChildren); err != nil {
		return fmt.Errorf("trace: check children: %w", err)
	}
	if openChildren > 0 {
		return ErrSpanNotClosed
	}

	var alreadyClosed bool
	row = s.db.QueryRowContext(ctx, `SELECT closed FROM spans WHERE id = ?`, spanID)
	if err := row.Scan(&alreadyClosed); err != nil {
		return fmt.Errorf("trace: lookup span: %w", err)
	}
	if alreadyClosed {
		return ErrSpanAlreadyClosed
	}

	seq, err := s.AppendEvent(ctx, sessionID, KindSpanEnd, map[string]any{
		"span_id": spanID, "status": status, "attributes": attributes,
	}, spanID, "")
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `UPDATE spans SET end_seq = ?, status = ?, closed = 1 WHERE id = ?`, seq, status, spanID)
	if err != nil {
		return fmt.Errorf("trace: close span: %w", err)
	}
	return nil
}

// PutArtifact stores bytes content-addressed and returns the identifier.
func (s *Store) PutArtifact(data []byte) (string, error) {
	return s.blobs.Put(data)
}

// GetArtifact retrieves previously stored bytes, or ErrNotFound.
func (s *Store) GetArtifact(id string) ([]byte, error) {
	return s.blobs.Get(id)
}

// Iterate returns the ordered events in [fromSeq, toSeq] (toSeq<=0 means
// "to the end"). The result is a plain slice rather than a generator: the
// trace is bounded per call and callers that need streaming should page
// using successive calls with updated fromSeq.
func (s *Store) Iterate(ctx context.Context, sessionID string, fromSeq, toSeq int64) ([]Event, error) {
	query := `SELECT seq, wall_clock, monotonic, parent_span, kind, payload, correlation_id
	          FROM events WHERE session_id = ? AND seq >= ?`
	args := []any{sessionID, fromSeq}
	if toSeq > 0 {
		query += ` AND seq <= ?`
		args = append(args, toSeq)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trace: iterate: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			wallClock  int64
			payloadStr string
		)
		e.SessionID = sessionID
		if err := rows.Scan(&e.Seq, &wallClock, &e.Monotonic, &e.ParentSpan, &e.Kind, &payloadStr, &e.CorrelationID); err != nil {
			return nil, fmt.Errorf("trace: scan event: %w", err)
		}
		e.WallClock = time.Unix(0, wallClock)
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, fmt.Errorf("trace: unmarshal payload: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// QueryByKind returns events of the given kinds matching an optional
// predicate over the decoded payload.
func (s *Store) QueryByKind(ctx context.Context, sessionID string, kinds []Kind, filter func(Event) bool) ([]Event, error) {
	all, err := s.Iterate(ctx, sessionID, 1, 0)
	if err != nil {
		return nil, err
	}

	wanted := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	var out []Event
	for _, e := range all {
		if !wanted[e.Kind] {
			continue
		}
		if filter != nil && !filter(e) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// WriteCheckpoint stores a snapshot artifact and records a CHECKPOINT event
// referencing it, returning the checkpoint id (= artifact id, since
// checkpoints are themselves content-addressed).
func (s *Store) WriteCheckpoint(ctx context.Context, sessionID string, snapshot []byte) (string, error) {
	artifactID, err := s.PutArtifact(snapshot)
	if err != nil {
		return "", err
	}
	_, err = s.AppendEvent(ctx, sessionID, KindCheckpoint, map[string]any{"artifact_id": artifactID}, "", "")
	if err != nil {
		return "", err
	}
	return artifactID, nil
}
