package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
)

// DLQService is the dead-letter path: exhausted retries end here, and the
// user receives a dialect-matched apology rather than the original content
// or a raw error.
type DLQService struct {
	store  ProfileStore
	sender Messenger
}

// NewDLQService creates the dead-letter handler.
func NewDLQService(store ProfileStore, sender Messenger) (*DLQService, error) {
	if store == nil {
		return nil, errors.New("usecase: profile store must not be nil")
	}
	if sender == nil {
		return nil, errors.New("usecase: sender must not be nil")
	}
	return &DLQService{store: store, sender: sender}, nil
}

// HandleRecord processes one dead-lettered envelope body.
func (s *DLQService) HandleRecord(ctx context.Context, body []byte) error {
	incident := uuid.NewString()

	var envelope domain.QueuedMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		slog.Error("unparseable dead letter", "incident", incident, "err", err)
		return nil
	}
	if envelope.From == "" {
		slog.Error("dead letter without sender", "incident", incident)
		return nil
	}

	d := dialect.Default
	if profile, err := s.store.GetProfile(ctx, envelope.From); err == nil && profile != nil {
		d = dialect.Normalize(profile.Dialect)
	}

	slog.Error("delivery failed, sending apology", "incident", incident, "wamid", envelope.WAMID, "user", envelope.From)
	if err := s.sender.SendText(ctx, envelope.From, dialect.ErrorText(d)); err != nil {
		return newError(ErrorUpstream, "send_apology_error", err)
	}
	return nil
}
