package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentforge/core"
)

// GetMemory returns the memory for (agentName, userID) or (nil, nil) when absent.
func (s *Store) GetMemory(ctx context.Context, agentName, userID string) (*core.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, agent_name, user_id, summary, key_learnings, memory_data, total_sessions, created_at, updated_at
		 FROM memories WHERE agent_name = ? AND user_id = ?`, agentName, userID)

	var rec core.MemoryRecord
	var learningsRaw, dataRaw string
	err := row.Scan(&rec.ID, &rec.AgentName, &rec.UserID, &rec.Summary, &learningsRaw, &dataRaw,
		&rec.TotalSessions, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory: %w", err)
	}

	if err := json.Unmarshal([]byte(learningsRaw), &rec.KeyLearnings); err != nil {
		return nil, fmt.Errorf("failed to decode learnings: %w", err)
	}
	if rec.MemoryData, err = unmarshalMap(dataRaw); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveMemory upserts the record as a single atomic write keyed on (agent, user).
func (s *Store) SaveMemory(ctx context.Context, rec *core.MemoryRecord) error {
	learningsRaw, err := json.Marshal(rec.KeyLearnings)
	if err != nil {
		return fmt.Errorf("failed to encode learnings: %w", err)
	}
	dataRaw, err := marshalJSON(rec.MemoryData)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, agent_name, user_id, summary, key_learnings, memory_data, total_sessions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(agent_name, user_id) DO UPDATE SET
			summary        = excluded.summary,
			key_learnings  = excluded.key_learnings,
			memory_data    = excluded.memory_data,
			total_sessions = excluded.total_sessions,
			updated_at     = excluded.updated_at`,
		rec.ID, rec.AgentName, rec.UserID, rec.Summary, string(learningsRaw), dataRaw,
		rec.TotalSessions, createdAt, now)
	if err != nil {
		return fmt.Errorf("failed to upsert memory: %w", err)
	}
	return nil
}
