package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentforge/core"
)

// CreateInterrupt inserts a new interrupt row.
func (s *Store) CreateInterrupt(ctx context.Context, rec *core.InterruptRecord) error {
	dataRaw, err := marshalJSON(rec.Data)
	if err != nil {
		return err
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interrupts (id, session_id, agent_name, type, reason, data, status, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.AgentName, string(rec.Type), rec.Reason, dataRaw,
		string(rec.Status), rec.ExpiresAt.UTC(), createdAt)
	if err != nil {
		return fmt.Errorf("failed to create interrupt: %w", err)
	}
	return nil
}

// GetInterrupt returns the interrupt or (nil, nil) when unknown.
func (s *Store) GetInterrupt(ctx context.Context, id string) (*core.InterruptRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, agent_name, type, reason, data, status, expires_at,
			resolved_at, COALESCE(resolved_by, ''), COALESCE(modifications, ''),
			COALESCE(rejection_reason, ''), COALESCE(user_response, ''), created_at
		 FROM interrupts WHERE id = ?`, id)

	var rec core.InterruptRecord
	var typ, status, dataRaw, modsRaw string
	var resolvedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.AgentName, &typ, &rec.Reason, &dataRaw, &status,
		&rec.ExpiresAt, &resolvedAt, &rec.ResolvedBy, &modsRaw, &rec.RejectionReason, &rec.UserResponse, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read interrupt: %w", err)
	}

	rec.Type = core.InterruptType(typ)
	rec.Status = core.InterruptStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		rec.ResolvedAt = &t
	}
	if rec.Data, err = unmarshalMap(dataRaw); err != nil {
		return nil, err
	}
	if modsRaw != "" {
		if rec.Modifications, err = unmarshalMap(modsRaw); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

// UpdateInterrupt persists a status transition.
func (s *Store) UpdateInterrupt(ctx context.Context, rec *core.InterruptRecord) error {
	var modsRaw any
	if rec.Modifications != nil {
		raw, err := marshalJSON(rec.Modifications)
		if err != nil {
			return err
		}
		modsRaw = raw
	}
	var resolvedAt any
	if rec.ResolvedAt != nil {
		resolvedAt = rec.ResolvedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE interrupts SET status = ?, resolved_at = ?, resolved_by = ?, modifications = ?,
			rejection_reason = ?, user_response = ? WHERE id = ?`,
		string(rec.Status), resolvedAt, rec.ResolvedBy, modsRaw, rec.RejectionReason, rec.UserResponse, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update interrupt: %w", err)
	}
	return nil
}

// ExpirePending batch-transitions overdue pending interrupts to expired.
func (s *Store) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE interrupts SET status = ?, resolved_at = ? WHERE status = ? AND expires_at < ?`,
		string(core.InterruptStatusExpired), now.UTC(), string(core.InterruptStatusPending), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire interrupts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// DeleteResolvedBefore hard-deletes old resolved interrupts, keeping pending rows.
func (s *Store) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM interrupts WHERE status != ? AND created_at < ?`,
		string(core.InterruptStatusPending), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete interrupts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
