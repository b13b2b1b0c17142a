package usecase

import (
	"context"
	"errors"
	"log/slog"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
	"agrinudge/internal/integrations/scheduler"
)

// DetectorStore is the keyed-store surface the detector needs.
type DetectorStore interface {
	GetProfile(ctx context.Context, phoneNumber string) (*domain.Profile, error)
	QueryOpenNudges(ctx context.Context, phoneNumber string) ([]domain.NudgeRecord, error)
	MarkNudgeDone(ctx context.Context, key domain.NudgeKey, completedAt string) (bool, error)
}

// ScheduleCanceller cancels reminder callbacks by deterministic name.
type ScheduleCanceller interface {
	DeleteReminder(ctx context.Context, name string) error
}

// Classification is the detector's reading of one message.
type Classification string

const (
	ClassDeferral   Classification = "deferral"
	ClassCompletion Classification = "completion"
	ClassNone       Classification = "none"
)

// DetectorService classifies newly stored messages as completion or deferral
// signals and closes nudges accordingly. It is driven by the change feed,
// never by polling.
type DetectorService struct {
	store  DetectorStore
	sender Messenger
	sched  ScheduleCanceller
}

// NewDetectorService creates the detector.
func NewDetectorService(store DetectorStore, sender Messenger, sched ScheduleCanceller) (*DetectorService, error) {
	if store == nil {
		return nil, errors.New("usecase: detector store must not be nil")
	}
	if sender == nil {
		return nil, errors.New("usecase: sender must not be nil")
	}
	if sched == nil {
		return nil, errors.New("usecase: schedule canceller must not be nil")
	}
	return &DetectorService{store: store, sender: sender, sched: sched}, nil
}

// HandleMessage classifies one stored message. messageTimestamp is the
// message record's sort-key timestamp, recorded as the completion time when
// a nudge is closed.
func (s *DetectorService) HandleMessage(ctx context.Context, phoneNumber, messageTimestamp, text string) (Classification, error) {
	if text == "" {
		return ClassNone, nil
	}

	// Deferral first: the sets share substrings, and deferral is the more
	// specific reading when both match.
	if dialect.MatchesNotYet(text) {
		d := s.userDialect(ctx, phoneNumber)
		if err := s.sender.SendText(ctx, phoneNumber, dialect.DeferralAckText(d)); err != nil {
			return ClassDeferral, newError(ErrorUpstream, "send_deferral_ack_error", err)
		}
		slog.Info("deferral signal, reminders continue", "user", phoneNumber)
		return ClassDeferral, nil
	}

	if !dialect.MatchesDone(text) {
		return ClassNone, nil
	}

	open, err := s.store.QueryOpenNudges(ctx, phoneNumber)
	if err != nil {
		return ClassCompletion, newError(ErrorInternal, "nudge_query_error", err)
	}
	if len(open) == 0 {
		slog.Info("completion signal with no open nudge", "user", phoneNumber)
		return ClassCompletion, nil
	}

	// Newest first from the store; close the most recent open nudge.
	latest := open[0]
	id, err := latest.ID()
	if err != nil {
		return ClassCompletion, newError(ErrorInternal, "malformed_nudge_key", err)
	}
	key := domain.NudgeKey{UserID: phoneNumber, ID: id}

	closed, err := s.store.MarkNudgeDone(ctx, key, messageTimestamp)
	if err != nil {
		return ClassCompletion, newError(ErrorInternal, "nudge_close_error", err)
	}
	if !closed {
		// Lost the race to another closer; nothing left to do.
		slog.Info("nudge already closed", "nudge", id.Encode())
		return ClassCompletion, nil
	}

	// Best-effort: an already-fired or absent schedule deletes as a no-op.
	for _, offset := range reminderOffsets {
		name := scheduler.ReminderName(key, offset.Label)
		if err := s.sched.DeleteReminder(ctx, name); err != nil {
			slog.Warn("reminder cancellation failed", "schedule", name, "err", err)
		}
	}

	d := s.userDialect(ctx, phoneNumber)
	if err := s.sender.SendText(ctx, phoneNumber, dialect.CongratsText(d)); err != nil {
		return ClassCompletion, newError(ErrorUpstream, "send_congrats_error", err)
	}
	slog.Info("nudge completed", "user", phoneNumber, "nudge", id.Encode())
	return ClassCompletion, nil
}

func (s *DetectorService) userDialect(ctx context.Context, phoneNumber string) dialect.Dialect {
	profile, err := s.store.GetProfile(ctx, phoneNumber)
	if err != nil || profile == nil {
		return dialect.Default
	}
	return dialect.Normalize(profile.Dialect)
}
