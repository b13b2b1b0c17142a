package usecase

import (
	"context"
	"errors"
	"log/slog"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
)

// ReminderStore is the keyed-store surface the dispatcher needs.
type ReminderStore interface {
	GetNudge(ctx context.Context, key domain.NudgeKey) (*domain.NudgeRecord, error)
	MarkNudgeReminded(ctx context.Context, key domain.NudgeKey, reminderLabel string) (bool, error)
}

// ReminderOutcome reports what a dispatcher invocation did.
type ReminderOutcome string

const (
	ReminderSent             ReminderOutcome = "sent"
	ReminderAlreadyCompleted ReminderOutcome = "already_completed"
	ReminderNotFound         ReminderOutcome = "not_found"
)

// ReminderService handles scheduler callbacks. It re-checks nudge status
// before acting: a fire after completion is a stale trigger and must no-op.
type ReminderService struct {
	store  ReminderStore
	sender Messenger
}

// NewReminderService creates the dispatcher service.
func NewReminderService(store ReminderStore, sender Messenger) (*ReminderService, error) {
	if store == nil {
		return nil, errors.New("usecase: reminder store must not be nil")
	}
	if sender == nil {
		return nil, errors.New("usecase: sender must not be nil")
	}
	return &ReminderService{store: store, sender: sender}, nil
}

// Dispatch processes one scheduled invocation.
func (s *ReminderService) Dispatch(ctx context.Context, inv domain.ReminderInvocation) (ReminderOutcome, error) {
	id, err := domain.ParseNudgeID(inv.NudgeID)
	if err != nil {
		return "", newError(ErrorInvalidInput, "malformed_nudge_id", err)
	}
	key := domain.NudgeKey{UserID: inv.PhoneNumber, ID: id}

	nudge, err := s.store.GetNudge(ctx, key)
	if err != nil {
		return "", newError(ErrorInternal, "nudge_load_error", err)
	}
	if nudge == nil {
		slog.Info("reminder for missing nudge", "nudge", inv.NudgeID)
		return ReminderNotFound, nil
	}
	if nudge.Status == domain.NudgeDone {
		slog.Info("reminder skipped, task already completed", "nudge", inv.NudgeID)
		return ReminderAlreadyCompleted, nil
	}

	d := dialect.Normalize(inv.Dialect)
	if err := s.sender.SendText(ctx, inv.PhoneNumber, dialect.ReminderText(d, inv.ReminderType)); err != nil {
		return "", newError(ErrorUpstream, "send_reminder_error", err)
	}

	// Conditional on status != DONE: if the detector closed the nudge
	// between our read and this write, the update is dropped rather than
	// resurrecting a completed nudge.
	updated, err := s.store.MarkNudgeReminded(ctx, key, inv.ReminderType)
	if err != nil {
		return "", newError(ErrorInternal, "nudge_update_error", err)
	}
	if !updated {
		return ReminderAlreadyCompleted, nil
	}
	return ReminderSent, nil
}
