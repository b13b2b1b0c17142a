package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
)

// IngestStore is the keyed-store surface the gateway needs.
type IngestStore interface {
	InsertDedupMarker(ctx context.Context, marker domain.DedupMarker) (bool, error)
	PutMessage(ctx context.Context, rec domain.MessageRecord) error
}

// Forwarder hands an accepted message to a downstream queue, preserving
// per-user order and downstream delivery deduplication.
type Forwarder interface {
	Forward(ctx context.Context, msg domain.QueuedMessage) error
}

// IngestService validates, deduplicates, persists, and routes inbound
// messages. It never calls the expensive collaborators itself, so the
// channel can be acknowledged within its latency budget.
type IngestService struct {
	store      IngestStore
	processorQ Forwarder
	voiceQ     Forwarder
	now        func() time.Time
}

// NewIngestService creates the gateway service.
func NewIngestService(store IngestStore, processorQ, voiceQ Forwarder) (*IngestService, error) {
	if store == nil {
		return nil, errors.New("usecase: ingest store must not be nil")
	}
	if processorQ == nil || voiceQ == nil {
		return nil, errors.New("usecase: forwarders must not be nil")
	}
	return &IngestService{store: store, processorQ: processorQ, voiceQ: voiceQ, now: time.Now}, nil
}

// IngestReport counts per-event outcomes for observability.
type IngestReport struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Bypassed   int `json:"bypassed"`
	Voice      int `json:"voice"`
	Failed     int `json:"failed"`
}

// HandleEvent processes every message in one channel event. Each message is
// an independent unit of work: a failure is logged and counted, never
// allowed to block siblings.
func (s *IngestService) HandleEvent(ctx context.Context, messages []domain.InboundMessage, metadata json.RawMessage) IngestReport {
	var report IngestReport
	for _, m := range messages {
		switch outcome := s.handleMessage(ctx, m, metadata); outcome {
		case outcomeAccepted:
			report.Accepted++
		case outcomeDuplicate:
			report.Duplicates++
		case outcomeBypassed:
			report.Bypassed++
		case outcomeVoice:
			report.Voice++
		case outcomeFailed:
			report.Failed++
		}
	}
	return report
}

type ingestOutcome int

const (
	outcomeAccepted ingestOutcome = iota
	outcomeDuplicate
	outcomeBypassed
	outcomeVoice
	outcomeFailed
)

func (s *IngestService) handleMessage(ctx context.Context, m domain.InboundMessage, metadata json.RawMessage) ingestOutcome {
	now := s.now()

	// The conditional insert is the at-most-once gate. Policy on store
	// failure: proceed optimistically rather than drop a legitimate
	// message; a rare duplicate answer costs less than a lost question.
	inserted, err := s.store.InsertDedupMarker(ctx, domain.NewDedupMarker(m.ID, m.From, now))
	if err != nil {
		slog.Warn("dedup check failed, proceeding optimistically", "wamid", m.ID, "err", err)
	} else if !inserted {
		slog.Info("duplicate message dropped", "wamid", m.ID)
		return outcomeDuplicate
	}

	// Persist for the change-feed consumer regardless of message type.
	if err := s.store.PutMessage(ctx, domain.NewDetectorCopy(m, now)); err != nil {
		slog.Error("persist inbound message failed", "wamid", m.ID, "err", err)
		// Routing still proceeds: the detector copy is supplemental to
		// the synchronous path.
	}

	envelope := domain.QueuedMessage{
		WAMID:    m.ID,
		From:     m.From,
		Type:     m.Type,
		Message:  m.Raw,
		Metadata: metadata,
	}

	if m.Type == domain.MessageAudio {
		if err := s.voiceQ.Forward(ctx, envelope); err != nil {
			slog.Error("voice forward failed", "wamid", m.ID, "err", err)
			return outcomeFailed
		}
		return outcomeVoice
	}

	// Control messages stay off the answer-generation path; the change
	// feed delivers them to the detector.
	if m.Text != "" && dialect.IsControlMessage(m.Text) {
		slog.Info("control message bypassed", "wamid", m.ID)
		return outcomeBypassed
	}

	if err := s.processorQ.Forward(ctx, envelope); err != nil {
		slog.Error("processor forward failed", "wamid", m.ID, "err", err)
		return outcomeFailed
	}
	return outcomeAccepted
}
