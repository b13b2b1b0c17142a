package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
)

func newConversation(t *testing.T, store *mockStore, answerer *mockAnswerer, vision *mockVision, media *mockMedia) (*ConversationService, *mockMessenger) {
	t.Helper()
	sender := &mockMessenger{}
	onboarding, err := NewOnboardingService(store, sender, nil)
	require.NoError(t, err)
	s, err := NewConversationService(store, onboarding, answerer, vision, media, sender)
	require.NoError(t, err)
	return s, sender
}

func queued(t *testing.T, m domain.InboundMessage) domain.QueuedMessage {
	t.Helper()
	return domain.QueuedMessage{WAMID: m.ID, From: m.From, Type: m.Type, Message: m.Raw}
}

func completeProfile(phone string) *domain.Profile {
	p := domain.NewProfile(phone)
	p.Dialect = "hi"
	p.Location = "Nagpur"
	p.Crop = "cotton"
	p.Finalize(true)
	return &p
}

func TestProcess_TextQuestionAnsweredAndRecorded(t *testing.T) {
	store := &mockStore{profiles: map[string]*domain.Profile{"919876543210": completeProfile("919876543210")}}
	answerer := &mockAnswerer{answer: domain.Answer{
		Text:      "नीम का तेल छिड़कें।",
		Citations: []string{"s3://kb/cotton-pests.pdf", "s3://kb/ipm.pdf"},
	}}
	s, sender := newConversation(t, store, answerer, &mockVision{}, &mockMedia{})

	m := textMessage(t, "wamid.q", "919876543210", "कपास में कीट लग गया")
	require.NoError(t, s.Process(context.Background(), queued(t, m)))

	require.Equal(t, []string{"कपास में कीट लग गया"}, answerer.asked)
	require.Len(t, store.messages, 1)
	require.Equal(t, "नीम का तेल छिड़कें।", store.messages[0].Response)
	require.Equal(t, "s3://kb/cotton-pests.pdf,s3://kb/ipm.pdf", store.messages[0].SourceCitation)
	require.Len(t, sender.texts, 1)
	require.Equal(t, answerer.answer.Text, sender.texts[0].body)
}

func TestProcess_IncompleteProfileRoutesToOnboarding(t *testing.T) {
	store := &mockStore{profiles: map[string]*domain.Profile{}}
	answerer := &mockAnswerer{}
	s, sender := newConversation(t, store, answerer, &mockVision{}, &mockMedia{})

	m := textMessage(t, "wamid.1", "919876543210", "नमस्ते")
	require.NoError(t, s.Process(context.Background(), queued(t, m)))

	// First contact: profile created, language prompt sent, no answer call.
	require.Len(t, store.saved, 1)
	require.Len(t, sender.buttons, 1)
	require.Empty(t, answerer.asked)
}

func TestProcess_LowConfidenceTranscriptAsksForRetry(t *testing.T) {
	store := &mockStore{profiles: map[string]*domain.Profile{"1": completeProfile("1")}}
	answerer := &mockAnswerer{}
	s, sender := newConversation(t, store, answerer, &mockVision{}, &mockMedia{})

	m := inbound(t, `{"id":"wamid.v","from":"1","type":"text","text":{"body":"छिड़काव"},"_source":"voice","_confidence":0.3}`)
	require.NoError(t, s.Process(context.Background(), queued(t, m)))

	require.Empty(t, answerer.asked)
	require.Empty(t, store.messages)
	require.Len(t, sender.texts, 1)
	require.Equal(t, dialect.LowConfidenceText(dialect.Hindi, "छिड़काव"), sender.texts[0].body)
}

func TestProcess_ConfidentTranscriptIsAnswered(t *testing.T) {
	store := &mockStore{profiles: map[string]*domain.Profile{"1": completeProfile("1")}}
	answerer := &mockAnswerer{answer: domain.Answer{Text: "जवाब"}}
	s, _ := newConversation(t, store, answerer, &mockVision{}, &mockMedia{})

	m := inbound(t, `{"id":"wamid.v","from":"1","type":"text","text":{"body":"छिड़काव कब करें"},"_source":"voice","_confidence":0.9}`)
	require.NoError(t, s.Process(context.Background(), queued(t, m)))

	require.Len(t, answerer.asked, 1)
	require.Len(t, store.messages, 1)
	require.Equal(t, "voice", store.messages[0].Source)
	require.InDelta(t, 0.9, store.messages[0].Confidence, 1e-9)
}

func TestProcess_ImageDiagnosedWithProfileCrop(t *testing.T) {
	store := &mockStore{profiles: map[string]*domain.Profile{"1": completeProfile("1")}}
	vision := &mockVision{diagnosis: "पत्ती धब्बा रोग दिख रहा है।"}
	media := &mockMedia{data: []byte{0xff, 0xd8}}
	s, sender := newConversation(t, store, &mockAnswerer{}, vision, media)

	m := inbound(t, `{"id":"wamid.i","from":"1","type":"image","image":{"id":"media-77"}}`)
	require.NoError(t, s.Process(context.Background(), queued(t, m)))

	require.Equal(t, []string{"cotton"}, vision.crops)
	require.Len(t, store.messages, 1)
	require.Equal(t, vision.diagnosis, store.messages[0].Response)
	require.Len(t, sender.texts, 1)
}

func TestProcess_AnswerFailurePropagatesForRetry(t *testing.T) {
	store := &mockStore{profiles: map[string]*domain.Profile{"1": completeProfile("1")}}
	answerer := &mockAnswerer{err: errors.New("model unavailable")}
	s, _ := newConversation(t, store, answerer, &mockVision{}, &mockMedia{})

	m := textMessage(t, "wamid.q", "1", "सवाल")
	err := s.Process(context.Background(), queued(t, m))
	require.Error(t, err)

	var uerr *Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrorUpstream, uerr.Code)
}

func TestProcess_MalformedEnvelopeRejected(t *testing.T) {
	store := &mockStore{}
	s, _ := newConversation(t, store, &mockAnswerer{}, &mockVision{}, &mockMedia{})

	err := s.Process(context.Background(), domain.QueuedMessage{Message: json.RawMessage(`{"type":"text"}`)})
	require.Error(t, err)
}
