package usecase

import (
	"context"
	"time"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
)

// mockStore implements every keyed-store surface the services consume.
type mockStore struct {
	dedupInserted bool
	dedupErr      error
	dedupMarkers  []domain.DedupMarker

	messages   []domain.MessageRecord
	messageErr error

	profiles   map[string]*domain.Profile
	profileErr error
	putErr     error
	saved      []domain.Profile

	farmers    []domain.Profile
	farmersErr error

	openNudges    []domain.NudgeRecord
	openNudgesErr error

	nudges   []domain.NudgeRecord
	nudgeErr error

	storedNudge *domain.NudgeRecord
	getNudgeErr error

	doneResult  bool
	doneErr     error
	doneKeys    []domain.NudgeKey
	doneStamps  []string
	remindedOK  bool
	remindedErr error
	remindedKey []domain.NudgeKey
}

func (m *mockStore) InsertDedupMarker(_ context.Context, marker domain.DedupMarker) (bool, error) {
	m.dedupMarkers = append(m.dedupMarkers, marker)
	if m.dedupErr != nil {
		return false, m.dedupErr
	}
	return m.dedupInserted, nil
}

func (m *mockStore) PutMessage(_ context.Context, rec domain.MessageRecord) error {
	if m.messageErr != nil {
		return m.messageErr
	}
	m.messages = append(m.messages, rec)
	return nil
}

func (m *mockStore) GetProfile(_ context.Context, phoneNumber string) (*domain.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profiles[phoneNumber], nil
}

func (m *mockStore) PutProfile(_ context.Context, p domain.Profile) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.saved = append(m.saved, p)
	return nil
}

func (m *mockStore) QueryUsersByLocation(_ context.Context, _ string) ([]domain.Profile, error) {
	return m.farmers, m.farmersErr
}

func (m *mockStore) QueryOpenNudges(_ context.Context, _ string) ([]domain.NudgeRecord, error) {
	return m.openNudges, m.openNudgesErr
}

func (m *mockStore) PutNudge(_ context.Context, rec domain.NudgeRecord) error {
	if m.nudgeErr != nil {
		return m.nudgeErr
	}
	m.nudges = append(m.nudges, rec)
	return nil
}

func (m *mockStore) GetNudge(_ context.Context, _ domain.NudgeKey) (*domain.NudgeRecord, error) {
	if m.getNudgeErr != nil {
		return nil, m.getNudgeErr
	}
	return m.storedNudge, nil
}

func (m *mockStore) MarkNudgeDone(_ context.Context, key domain.NudgeKey, completedAt string) (bool, error) {
	m.doneKeys = append(m.doneKeys, key)
	m.doneStamps = append(m.doneStamps, completedAt)
	if m.doneErr != nil {
		return false, m.doneErr
	}
	return m.doneResult, nil
}

func (m *mockStore) MarkNudgeReminded(_ context.Context, key domain.NudgeKey, _ string) (bool, error) {
	m.remindedKey = append(m.remindedKey, key)
	if m.remindedErr != nil {
		return false, m.remindedErr
	}
	return m.remindedOK, nil
}

type sentMessage struct {
	to      string
	body    string
	options []string
}

type mockMessenger struct {
	texts   []sentMessage
	buttons []sentMessage
	textErr error
}

func (m *mockMessenger) SendText(_ context.Context, to, body string) error {
	if m.textErr != nil {
		return m.textErr
	}
	m.texts = append(m.texts, sentMessage{to: to, body: body})
	return nil
}

func (m *mockMessenger) SendButtons(_ context.Context, to, body string, options []string) error {
	m.buttons = append(m.buttons, sentMessage{to: to, body: body, options: options})
	return nil
}

type mockForwarder struct {
	forwarded []domain.QueuedMessage
	err       error
}

func (m *mockForwarder) Forward(_ context.Context, msg domain.QueuedMessage) error {
	if m.err != nil {
		return m.err
	}
	m.forwarded = append(m.forwarded, msg)
	return nil
}

type scheduledReminder struct {
	name    string
	at      time.Time
	payload domain.ReminderInvocation
}

type mockScheduler struct {
	created   []scheduledReminder
	createErr error
	deleted   []string
	deleteErr error
}

func (m *mockScheduler) CreateReminder(_ context.Context, name string, at time.Time, payload domain.ReminderInvocation) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, scheduledReminder{name: name, at: at, payload: payload})
	return nil
}

func (m *mockScheduler) DeleteReminder(_ context.Context, name string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, name)
	return nil
}

type mockAnswerer struct {
	answer domain.Answer
	err    error
	asked  []string
}

func (m *mockAnswerer) Generate(_ context.Context, question string, _ dialect.Dialect) (domain.Answer, error) {
	m.asked = append(m.asked, question)
	return m.answer, m.err
}

type mockVision struct {
	diagnosis string
	err       error
	crops     []string
}

func (m *mockVision) Diagnose(_ context.Context, _ []byte, _ dialect.Dialect, crop string) (string, error) {
	m.crops = append(m.crops, crop)
	return m.diagnosis, m.err
}

type mockMedia struct {
	data []byte
	err  error
}

func (m *mockMedia) FetchMedia(_ context.Context, _ string) ([]byte, error) {
	return m.data, m.err
}
