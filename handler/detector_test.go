package handler

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"agrinudge/internal/domain"
	"agrinudge/internal/usecase"
)

type stubDetectorStore struct {
	openNudges []domain.NudgeRecord
	doneKeys   []domain.NudgeKey
	doneStamps []string
}

func (s *stubDetectorStore) GetProfile(_ context.Context, _ string) (*domain.Profile, error) {
	return nil, nil
}

func (s *stubDetectorStore) QueryOpenNudges(_ context.Context, _ string) ([]domain.NudgeRecord, error) {
	return s.openNudges, nil
}

func (s *stubDetectorStore) MarkNudgeDone(_ context.Context, key domain.NudgeKey, completedAt string) (bool, error) {
	s.doneKeys = append(s.doneKeys, key)
	s.doneStamps = append(s.doneStamps, completedAt)
	return true, nil
}

type stubCanceller struct{ deleted []string }

func (c *stubCanceller) DeleteReminder(_ context.Context, name string) error {
	c.deleted = append(c.deleted, name)
	return nil
}

func newDetectorHandler(t *testing.T, store *stubDetectorStore) (*DetectorHandler, *stubMessenger) {
	t.Helper()
	sender := &stubMessenger{}
	detector, err := usecase.NewDetectorService(store, sender, &stubCanceller{})
	require.NoError(t, err)
	h, err := NewDetectorHandler(detector)
	require.NoError(t, err)
	return h, sender
}

func streamRecord(eventName, pk, sk, message string) events.DynamoDBEventRecord {
	return events.DynamoDBEventRecord{
		EventName: eventName,
		Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"PK":      events.NewStringAttribute(pk),
				"SK":      events.NewStringAttribute(sk),
				"message": events.NewStringAttribute(message),
			},
		},
	}
}

func TestDetectorHandle_CompletionMessageClosesNudge(t *testing.T) {
	nudge := domain.NewNudgeRecord("919876543210", "spray", domain.WeatherSnapshot{}, "msg", time.Date(2025, 6, 14, 6, 0, 0, 0, time.UTC))
	store := &stubDetectorStore{openNudges: []domain.NudgeRecord{nudge}}
	h, sender := newDetectorHandler(t, store)

	sk := domain.MessageKey{UserID: "919876543210", SentAt: time.Date(2025, 6, 14, 10, 30, 0, 0, time.UTC)}.SK()
	record := streamRecord("INSERT", "USER#919876543210", sk,
		`{"id":"wamid.1","from":"919876543210","type":"text","text":{"body":"हो गया"}}`)

	require.NoError(t, h.Handle(context.Background(), events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{record}}))

	require.Len(t, store.doneKeys, 1)
	require.Equal(t, "919876543210", store.doneKeys[0].UserID)
	require.Equal(t, []string{"2025-06-14T10:30:00Z"}, store.doneStamps)
	require.Equal(t, 1, sender.sent)
}

func TestDetectorHandle_IgnoresNonInsertAndNonMessageRecords(t *testing.T) {
	store := &stubDetectorStore{}
	h, sender := newDetectorHandler(t, store)

	records := []events.DynamoDBEventRecord{
		streamRecord("MODIFY", "USER#1", "MSG#2025-06-14T10:30:00Z",
			`{"id":"wamid.1","from":"1","type":"text","text":{"body":"हो गया"}}`),
		streamRecord("INSERT", "USER#1", "PROFILE", `{}`),
		streamRecord("INSERT", "USER#1", "NUDGE#2025-06-14T06:00:00Z#spray", `{}`),
	}
	require.NoError(t, h.Handle(context.Background(), events.DynamoDBEvent{Records: records}))

	require.Empty(t, store.doneKeys)
	require.Zero(t, sender.sent)
}

func TestDetectorHandle_SkipsNonTextMessages(t *testing.T) {
	store := &stubDetectorStore{}
	h, _ := newDetectorHandler(t, store)

	record := streamRecord("INSERT", "USER#1", "MSG#2025-06-14T10:30:00Z",
		`{"id":"wamid.1","from":"1","type":"image","image":{"id":"media-1"}}`)
	require.NoError(t, h.Handle(context.Background(), events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{record}}))
	require.Empty(t, store.doneKeys)
}

func TestDetectorHandle_UndecodableRecordDoesNotBlockShard(t *testing.T) {
	store := &stubDetectorStore{}
	h, _ := newDetectorHandler(t, store)

	record := streamRecord("INSERT", "USER#1", "MSG#2025-06-14T10:30:00Z", "not json")
	require.NoError(t, h.Handle(context.Background(), events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{record}}))
}

func TestDetectorHandle_MalformedImagesDoNotPanic(t *testing.T) {
	store := &stubDetectorStore{}
	h, sender := newDetectorHandler(t, store)

	// Attribute extraction panics on absent keys and non-string types if
	// called blind; these records must be skipped, not crash the batch.
	records := []events.DynamoDBEventRecord{
		{EventName: "INSERT", Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{},
		}},
		{EventName: "INSERT", Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"SK": events.NewStringAttribute("MSG#2025-06-14T10:30:00Z"),
			},
		}},
		{EventName: "INSERT", Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"PK": events.NewStringAttribute("USER#1"),
				"SK": events.NewStringAttribute("MSG#2025-06-14T10:30:00Z"),
			},
		}},
		{EventName: "INSERT", Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"PK":      events.NewStringAttribute("USER#1"),
				"SK":      events.NewNumberAttribute("42"),
				"message": events.NewStringAttribute(`{}`),
			},
		}},
	}
	require.NoError(t, h.Handle(context.Background(), events.DynamoDBEvent{Records: records}))
	require.Empty(t, store.doneKeys)
	require.Zero(t, sender.sent)
}
