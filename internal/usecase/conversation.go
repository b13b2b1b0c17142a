package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
)

// Transcripts below this confidence are treated as failed and the user is
// asked to retype.
const minTranscriptConfidence = 0.5

// ConversationStore is the keyed-store surface the processor needs.
type ConversationStore interface {
	GetProfile(ctx context.Context, phoneNumber string) (*domain.Profile, error)
	PutMessage(ctx context.Context, rec domain.MessageRecord) error
}

// AnswerGenerator is the external answer-generation collaborator.
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, d dialect.Dialect) (domain.Answer, error)
}

// VisionAnalyzer is the external image-diagnosis collaborator.
type VisionAnalyzer interface {
	Diagnose(ctx context.Context, image []byte, d dialect.Dialect, crop string) (string, error)
}

// MediaFetcher downloads inbound media by channel media id.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID string) ([]byte, error)
}

// ConversationService handles queued messages for users past onboarding,
// dispatching to the external collaborators and recording each exchange.
// Incomplete users are handed to the onboarding machine.
type ConversationService struct {
	store      ConversationStore
	onboarding *OnboardingService
	answerer   AnswerGenerator
	vision     VisionAnalyzer
	media      MediaFetcher
	sender     Messenger
	now        func() time.Time
}

// NewConversationService creates the processor service.
func NewConversationService(store ConversationStore, onboarding *OnboardingService, answerer AnswerGenerator, vision VisionAnalyzer, media MediaFetcher, sender Messenger) (*ConversationService, error) {
	if store == nil {
		return nil, errors.New("usecase: conversation store must not be nil")
	}
	if onboarding == nil {
		return nil, errors.New("usecase: onboarding service must not be nil")
	}
	if answerer == nil || vision == nil || media == nil {
		return nil, errors.New("usecase: collaborators must not be nil")
	}
	if sender == nil {
		return nil, errors.New("usecase: sender must not be nil")
	}
	return &ConversationService{
		store:      store,
		onboarding: onboarding,
		answerer:   answerer,
		vision:     vision,
		media:      media,
		sender:     sender,
		now:        time.Now,
	}, nil
}

// Process handles one queued envelope.
func (s *ConversationService) Process(ctx context.Context, q domain.QueuedMessage) error {
	m, err := domain.ParseInboundMessage(q.Message)
	if err != nil {
		return newError(ErrorInvalidInput, "malformed_envelope", err)
	}

	profile, err := s.store.GetProfile(ctx, q.From)
	if err != nil {
		return newError(ErrorInternal, "profile_load_error", err)
	}
	if profile == nil || !profile.OnboardingComplete {
		return s.onboarding.Advance(ctx, m, profile)
	}

	d := dialect.Normalize(profile.Dialect)
	switch m.Type {
	case domain.MessageText, domain.MessageInteractive:
		return s.processText(ctx, m, d)
	case domain.MessageImage:
		return s.processImage(ctx, m, d, profile.Crop)
	default:
		// Raw audio never reaches this queue; the gateway routes it to
		// the voice pipeline.
		slog.Info("ignoring unprocessable message type", "wamid", m.ID, "type", m.Type)
		return nil
	}
}

func (s *ConversationService) processText(ctx context.Context, m domain.InboundMessage, d dialect.Dialect) error {
	if m.Voice && m.Confidence < minTranscriptConfidence {
		if err := s.sender.SendText(ctx, m.From, dialect.LowConfidenceText(d, m.Text)); err != nil {
			return newError(ErrorUpstream, "send_retry_prompt_error", err)
		}
		return nil
	}
	if strings.TrimSpace(m.Text) == "" {
		return nil
	}

	answer, err := s.answerer.Generate(ctx, m.Text, d)
	if err != nil {
		return newError(ErrorUpstream, "answer_generation_error", err)
	}

	rec := domain.NewExchangeRecord(m, answer.Text, strings.Join(answer.Citations, ","), s.now())
	if err := s.store.PutMessage(ctx, rec); err != nil {
		return newError(ErrorInternal, "exchange_write_error", err)
	}
	if err := s.sender.SendText(ctx, m.From, answer.Text); err != nil {
		return newError(ErrorUpstream, "send_answer_error", err)
	}
	return nil
}

func (s *ConversationService) processImage(ctx context.Context, m domain.InboundMessage, d dialect.Dialect, crop string) error {
	if m.MediaID == "" {
		return newError(ErrorInvalidInput, "image_missing_media_id", nil)
	}

	image, err := s.media.FetchMedia(ctx, m.MediaID)
	if err != nil {
		return newError(ErrorUpstream, "media_fetch_error", err)
	}
	diagnosis, err := s.vision.Diagnose(ctx, image, d, crop)
	if err != nil {
		return newError(ErrorUpstream, "vision_error", err)
	}

	rec := domain.NewExchangeRecord(m, diagnosis, "", s.now())
	if err := s.store.PutMessage(ctx, rec); err != nil {
		return newError(ErrorInternal, "exchange_write_error", err)
	}
	if err := s.sender.SendText(ctx, m.From, diagnosis); err != nil {
		return newError(ErrorUpstream, "send_diagnosis_error", err)
	}
	return nil
}
