package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentforge/core"
)

// GetSession returns the session record or (nil, nil) when absent.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*core.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, agent_name, state_data, COALESCE(memory_id, ''), created_at, updated_at
		 FROM sessions WHERE session_id = ?`, sessionID)

	var rec core.SessionRecord
	var stateRaw string
	err := row.Scan(&rec.SessionID, &rec.AgentName, &stateRaw, &rec.MemoryID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if rec.StateData, err = unmarshalMap(stateRaw); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveSession upserts the record and appends new messages in one transaction.
func (s *Store) SaveSession(ctx context.Context, rec *core.SessionRecord, newMessages []core.Message) error {
	stateRaw, err := marshalJSON(rec.StateData)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var memoryID any
	if rec.MemoryID != "" {
		memoryID = rec.MemoryID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, agent_name, state_data, memory_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			agent_name = excluded.agent_name,
			state_data = excluded.state_data,
			memory_id  = COALESCE(excluded.memory_id, sessions.memory_id),
			updated_at = excluded.updated_at`,
		rec.SessionID, rec.AgentName, stateRaw, memoryID, createdAt, now)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	for _, msg := range newMessages {
		var toolName any
		if msg.ToolName != "" {
			toolName = msg.ToolName
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, role, content, tool_name, timestamp) VALUES (?, ?, ?, ?, ?)`,
			rec.SessionID, msg.Role, msg.Content, toolName, msg.Timestamp.UTC()); err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session save: %w", err)
	}
	return nil
}

// GetMessages returns the ordered conversation history for a session.
func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, COALESCE(tool_name, ''), timestamp FROM messages WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []core.Message
	for rows.Next() {
		var msg core.Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.ToolName, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// DeleteSessionsBefore removes stale sessions for the agent; messages go via
// the cascading foreign key. Memory rows are never touched here.
func (s *Store) DeleteSessionsBefore(ctx context.Context, agentName string, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE agent_name = ? AND updated_at < ?`, agentName, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
