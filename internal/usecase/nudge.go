package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
	"agrinudge/internal/integrations/scheduler"
)

// reminderOffsets are the two fixed delays after a nudge at which the
// dispatcher re-checks it.
var reminderOffsets = []struct {
	Label string
	After time.Duration
}{
	{dialect.ReminderShort, 24 * time.Hour},
	{dialect.ReminderLong, 48 * time.Hour},
}

// NudgeStore is the keyed-store surface the lifecycle manager needs.
type NudgeStore interface {
	QueryUsersByLocation(ctx context.Context, location string) ([]domain.Profile, error)
	QueryOpenNudges(ctx context.Context, phoneNumber string) ([]domain.NudgeRecord, error)
	PutNudge(ctx context.Context, rec domain.NudgeRecord) error
}

// ReminderScheduler registers and cancels reminder callbacks.
type ReminderScheduler interface {
	CreateReminder(ctx context.Context, name string, at time.Time, payload domain.ReminderInvocation) error
	DeleteReminder(ctx context.Context, name string) error
}

// NudgeTrigger is a location-scoped favorable condition for one activity.
type NudgeTrigger struct {
	Location string                 `json:"location"`
	Activity string                 `json:"activity"`
	Weather  domain.WeatherSnapshot `json:"weather"`
}

// NudgeReport counts the fan-out outcome for observability.
type NudgeReport struct {
	Location string `json:"location"`
	Sent     int    `json:"nudges_sent"`
	Skipped  int    `json:"nudges_skipped"`
}

// NudgeService turns a favorable-condition trigger into per-user prompts,
// records, and reminder schedules.
type NudgeService struct {
	store  NudgeStore
	sender Messenger
	sched  ReminderScheduler
	now    func() time.Time
}

// NewNudgeService creates the lifecycle manager.
func NewNudgeService(store NudgeStore, sender Messenger, sched ReminderScheduler) (*NudgeService, error) {
	if store == nil {
		return nil, errors.New("usecase: nudge store must not be nil")
	}
	if sender == nil {
		return nil, errors.New("usecase: sender must not be nil")
	}
	if sched == nil {
		return nil, errors.New("usecase: scheduler must not be nil")
	}
	return &NudgeService{store: store, sender: sender, sched: sched, now: time.Now}, nil
}

// Send fans the trigger out to every eligible user in the location. Each
// user is an independent unit of work: a failure for one is logged and does
// not abort the rest.
func (s *NudgeService) Send(ctx context.Context, trigger NudgeTrigger) (NudgeReport, error) {
	if trigger.Location == "" {
		return NudgeReport{}, newError(ErrorInvalidInput, "missing_location", nil)
	}
	activity := trigger.Activity
	if activity == "" {
		activity = "spray"
	}

	farmers, err := s.store.QueryUsersByLocation(ctx, trigger.Location)
	if err != nil {
		return NudgeReport{}, newError(ErrorInternal, "location_query_error", err)
	}
	slog.Info("nudge fan-out", "location", trigger.Location, "activity", activity, "farmers", len(farmers))

	report := NudgeReport{Location: trigger.Location}
	for _, farmer := range farmers {
		sent, err := s.nudgeUser(ctx, farmer, activity, trigger.Weather)
		if err != nil {
			slog.Error("nudge failed", "user", farmer.PhoneNumber, "err", err)
			report.Skipped++
			continue
		}
		if sent {
			report.Sent++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}

func (s *NudgeService) nudgeUser(ctx context.Context, farmer domain.Profile, activity string, weather domain.WeatherSnapshot) (bool, error) {
	now := s.now()

	open, err := s.hasOpenNudgeToday(ctx, farmer.PhoneNumber, activity, now)
	if err != nil {
		return false, err
	}
	if open {
		// A second trigger the same day must not spam a second prompt.
		slog.Info("open nudge exists, skipping", "user", farmer.PhoneNumber, "activity", activity)
		return false, nil
	}

	d := dialect.Normalize(farmer.Dialect)
	message := dialect.NudgeText(d, activity, weather.WindSpeedKmh)

	rec := domain.NewNudgeRecord(farmer.PhoneNumber, activity, weather, message, now)
	if err := s.store.PutNudge(ctx, rec); err != nil {
		return false, err
	}
	if err := s.sender.SendText(ctx, farmer.PhoneNumber, message); err != nil {
		return false, err
	}

	id, err := rec.ID()
	if err != nil {
		return false, err
	}
	for _, offset := range reminderOffsets {
		payload := domain.ReminderInvocation{
			PhoneNumber:  farmer.PhoneNumber,
			NudgeID:      id.Encode(),
			ReminderType: offset.Label,
			Dialect:      string(d),
		}
		name := scheduler.ReminderName(domain.NudgeKey{UserID: farmer.PhoneNumber, ID: id}, offset.Label)
		if err := s.sched.CreateReminder(ctx, name, now.Add(offset.After), payload); err != nil {
			// The nudge itself went out; a lost schedule only costs a
			// reminder.
			slog.Error("reminder registration failed", "user", farmer.PhoneNumber, "schedule", name, "err", err)
		}
	}
	return true, nil
}

// hasOpenNudgeToday reports whether a SENT or REMINDED nudge already exists
// for this user, activity, and calendar day.
func (s *NudgeService) hasOpenNudgeToday(ctx context.Context, phoneNumber, activity string, now time.Time) (bool, error) {
	nudges, err := s.store.QueryOpenNudges(ctx, phoneNumber)
	if err != nil {
		return false, err
	}
	today := now.UTC().Format("2006-01-02")
	for _, n := range nudges {
		id, err := n.ID()
		if err != nil {
			slog.Warn("skipping nudge with malformed key", "sk", n.SK, "err", err)
			continue
		}
		if id.Activity == activity && id.Day() == today {
			return true, nil
		}
	}
	return false, nil
}
