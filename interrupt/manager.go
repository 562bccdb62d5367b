package interrupt

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/logging"
)

// DefaultTTL is how long a raised interrupt stays resolvable before it
// expires, unless the raiser sets its own deadline.
const DefaultTTL = 24 * time.Hour

// Signal is the control-flow error that unwinds agent execution when an
// interrupt is raised. Callers detect it with errors.As and surface the
// pending record to the operator.
type Signal struct {
	Record *core.InterruptRecord
}

// Error implements the error interface.
func (s *Signal) Error() string {
	return fmt.Sprintf("execution interrupted: %s pending (%s) for agent %q", s.Record.Type, s.Record.ID, s.Record.AgentName)
}

// NotFoundError reports an interrupt id that resolves to no record.
type NotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("interrupt %q not found", e.ID)
}

// ExpiredError reports a resolution attempt on an interrupt whose deadline
// has passed. The record has been moved to expired before this is returned.
type ExpiredError struct {
	ID string
}

// Error implements the error interface.
func (e *ExpiredError) Error() string {
	return fmt.Sprintf("interrupt %q has expired", e.ID)
}

// AlreadyResolvedError reports a second resolution attempt on a terminal
// record.
type AlreadyResolvedError struct {
	ID     string
	Status core.InterruptStatus
}

// Error implements the error interface.
func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("interrupt %q is already %s", e.ID, e.Status)
}

// ManagerOptions configure a Manager.
type ManagerOptions struct {
	Logger logging.Logger
	// DefaultTTL is used by Raise when the caller passes no TTL.
	DefaultTTL time.Duration
	// ApprovalTools lists tool names whose invocation must be approved by a
	// human. Tools are auto-approved unless listed here.
	ApprovalTools []string
}

// Manager enforces the interrupt lifecycle over an InterruptStore.
type Manager struct {
	store         core.InterruptStore
	logger        logging.Logger
	defaultTTL    time.Duration
	approvalTools map[string]struct{}
}

// NewManager constructs a Manager over the given store.
func NewManager(store core.InterruptStore, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{
		Logger:     logging.NoOpLogger{},
		DefaultTTL: DefaultTTL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	approvalTools := make(map[string]struct{}, len(opts.ApprovalTools))
	for _, name := range opts.ApprovalTools {
		approvalTools[name] = struct{}{}
	}
	return &Manager{
		store:         store,
		logger:        opts.Logger,
		defaultTTL:    opts.DefaultTTL,
		approvalTools: approvalTools,
	}
}

// ToolRequiresApproval reports whether invoking the named tool must pause
// for a human. Unlisted tools never pause.
func (m *Manager) ToolRequiresApproval(toolName string) bool {
	_, ok := m.approvalTools[toolName]
	return ok
}

// RequireApproval adds tool names to the approval list.
func (m *Manager) RequireApproval(toolNames ...string) {
	for _, name := range toolNames {
		m.approvalTools[name] = struct{}{}
	}
}

// RaiseOptions configure a single Raise call.
type RaiseOptions struct {
	// Data carries structured context for the operator, e.g. the pending
	// tool call's name and arguments.
	Data map[string]any
	// TTL overrides the manager default for this interrupt.
	TTL time.Duration
}

// Raise persists a pending interrupt and returns the *Signal to propagate as
// an error up the execution stack.
func (m *Manager) Raise(ctx context.Context, typ core.InterruptType, sessionID, agentName, reason string, optFns ...func(o *RaiseOptions)) (*Signal, error) {
	opts := RaiseOptions{TTL: m.defaultTTL}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TTL <= 0 {
		opts.TTL = m.defaultTTL
	}

	now := time.Now().UTC()
	rec := &core.InterruptRecord{
		ID:        core.NewID(),
		SessionID: sessionID,
		AgentName: agentName,
		Type:      typ,
		Reason:    reason,
		Data:      opts.Data,
		Status:    core.InterruptStatusPending,
		ExpiresAt: now.Add(opts.TTL),
		CreatedAt: now,
	}
	if err := m.store.CreateInterrupt(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to raise interrupt: %w", err)
	}
	m.logger.Info("interrupt raised", "interrupt_id", rec.ID, "type", typ, "agent", agentName, "session_id", sessionID, "reason", reason)
	return &Signal{Record: rec}, nil
}

// Get returns the interrupt or a *NotFoundError.
func (m *Manager) Get(ctx context.Context, id string) (*core.InterruptRecord, error) {
	rec, err := m.store.GetInterrupt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load interrupt: %w", err)
	}
	if rec == nil {
		return nil, &NotFoundError{ID: id}
	}
	return rec, nil
}

// Approve resolves a pending interrupt as approved. Modifications, when
// non-nil, replace the raised data for the resumed action (e.g. edited tool
// arguments). Approving a past-deadline interrupt persists the expired state
// first and then fails with *ExpiredError.
func (m *Manager) Approve(ctx context.Context, id, resolvedBy string, modifications map[string]any) (*core.InterruptRecord, error) {
	rec, err := m.resolvable(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rec.Status = core.InterruptStatusApproved
	rec.ResolvedAt = &now
	rec.ResolvedBy = resolvedBy
	rec.Modifications = modifications
	if err := m.store.UpdateInterrupt(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to approve interrupt: %w", err)
	}
	m.logger.Info("interrupt approved", "interrupt_id", id, "resolved_by", resolvedBy, "modified", modifications != nil)
	return rec, nil
}

// Reject resolves a pending interrupt as rejected with a reason.
func (m *Manager) Reject(ctx context.Context, id, resolvedBy, reason string) (*core.InterruptRecord, error) {
	rec, err := m.resolvable(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rec.Status = core.InterruptStatusRejected
	rec.ResolvedAt = &now
	rec.ResolvedBy = resolvedBy
	rec.RejectionReason = reason
	if err := m.store.UpdateInterrupt(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to reject interrupt: %w", err)
	}
	m.logger.Info("interrupt rejected", "interrupt_id", id, "resolved_by", resolvedBy, "reason", reason)
	return rec, nil
}

// Respond resolves an input-type interrupt as approved, carrying the user's
// free-form answer.
func (m *Manager) Respond(ctx context.Context, id, resolvedBy, response string) (*core.InterruptRecord, error) {
	rec, err := m.resolvable(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rec.Status = core.InterruptStatusApproved
	rec.ResolvedAt = &now
	rec.ResolvedBy = resolvedBy
	rec.UserResponse = response
	if err := m.store.UpdateInterrupt(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record interrupt response: %w", err)
	}
	m.logger.Info("interrupt answered", "interrupt_id", id, "resolved_by", resolvedBy)
	return rec, nil
}

// Cancel resolves a pending interrupt as cancelled, typically because the
// originating execution was abandoned.
func (m *Manager) Cancel(ctx context.Context, id, resolvedBy string) (*core.InterruptRecord, error) {
	rec, err := m.resolvable(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rec.Status = core.InterruptStatusCancelled
	rec.ResolvedAt = &now
	rec.ResolvedBy = resolvedBy
	if err := m.store.UpdateInterrupt(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to cancel interrupt: %w", err)
	}
	m.logger.Info("interrupt cancelled", "interrupt_id", id, "resolved_by", resolvedBy)
	return rec, nil
}

// ExpireOverdue batch-transitions pending interrupts past their deadline to
// expired. Intended for a periodic maintenance sweep.
func (m *Manager) ExpireOverdue(ctx context.Context) (int, error) {
	n, err := m.store.ExpirePending(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire interrupts: %w", err)
	}
	if n > 0 {
		m.logger.Info("interrupts expired", "count", n)
	}
	return n, nil
}

// Cleanup hard-deletes resolved interrupts older than the retention window.
// Pending interrupts are never deleted.
func (m *Manager) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	n, err := m.store.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up interrupts: %w", err)
	}
	if n > 0 {
		m.logger.Info("interrupts cleaned up", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// resolvable loads the record and verifies it can still be resolved: it must
// exist, be pending and not past its deadline. A past-deadline record is
// transitioned to expired before *ExpiredError is returned, so the stored
// state always reflects the decision.
func (m *Manager) resolvable(ctx context.Context, id string) (*core.InterruptRecord, error) {
	rec, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status.IsTerminal() {
		return nil, &AlreadyResolvedError{ID: id, Status: rec.Status}
	}
	now := time.Now().UTC()
	if now.After(rec.ExpiresAt) {
		rec.Status = core.InterruptStatusExpired
		rec.ResolvedAt = &now
		if err := m.store.UpdateInterrupt(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to expire interrupt: %w", err)
		}
		m.logger.Warn("interrupt resolution after deadline", "interrupt_id", id, "expired_at", rec.ExpiresAt)
		return nil, &ExpiredError{ID: id}
	}
	return rec, nil
}
