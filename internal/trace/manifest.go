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
	"fmt"
	"time"
)

// Manifest is the small per-session row described in spec §6's persisted
// state layout: identifier, status, and last-sequence, plus the fields the
// Session type needs to rehydrate without replaying the whole trace.
type Manifest struct {
	ID            string
	Goal          string
	WorkspaceRoot string
	Phase         string
	Mode          string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastSeq       int64
}

// CreateSession inserts a new session manifest row.
func (s *Store) CreateSession(ctx context.Context, id, goal, workspaceRoot, phase, mode string) (*Manifest, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, goal, workspace_root, phase, mode, status, created_at, updated_at, last_seq)
		VALUES (?, ?, ?, ?, ?, 'running', ?, ?, 0)`,
		id, goal, workspaceRoot, phase, mode, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("trace: create session: %w", err)
	}
	s.ClearTerminal(id)
	return &Manifest{ID: id, Goal: goal, WorkspaceRoot: workspaceRoot, Phase: phase, Mode: mode, Status: "running", CreatedAt: now, UpdatedAt: now}, nil
}

// GetSession loads a session's manifest row.
func (s *Store) GetSession(ctx context.Context, id string) (*Manifest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, goal, workspace_root, phase, mode, status, created_at, updated_at, last_seq
		FROM sessions WHERE id = ?`, id)
	return scanManifest(row)
}

func scanManifest(row *sql.Row) (*Manifest, error) {
	var (
		m                    Manifest
		createdAt, updatedAt int64
	)
	if err := row.Scan(&m.ID, &m.Goal, &m.WorkspaceRoot, &m.Phase, &m.Mode, &m.Status, &createdAt, &updatedAt, &m.LastSeq); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("trace: scan session: %w", err)
	}
	m.CreatedAt = time.Unix(0, createdAt)
	m.UpdatedAt = time.Unix(0, updatedAt)
	return &m, nil
}

// ListSessions returns manifests, optionally filtered by status (empty = all).
func (s *Store) ListSessions(ctx context.Context, status string) ([]*Manifest, error) {
	query := `SELECT id, goal, workspace_root, phase, mode, status, created_at, updated_at, last_seq FROM sessions`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trace: list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Manifest
	for rows.Next() {
		var (
			m                    Manifest
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&m.ID, &m.Goal, &m.WorkspaceRoot, &m.Phase, &m.Mode, &m.Status, &createdAt, &updatedAt, &m.LastSeq); err != nil {
			return nil, fmt.Errorf("trace: scan session row: %w", err)
		}
		m.CreatedAt = time.Unix(0, createdAt)
		m.UpdatedAt = time.Unix(0, updatedAt)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// UpdateSessionState updates the phase/mode/status columns for a session.
func (s *Store) UpdateSessionState(ctx context.Context, id, phase, mode, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET phase = ?, mode = ?, status = ?, updated_at = ? WHERE id = ?`,
		phase, mode, status, time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("trace: update session state: %w", err)
	}
	if status == "completed" || status == "failed" {
		s.MarkTerminal(id)
	}
	return nil
}
