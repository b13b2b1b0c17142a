package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"agrinudge/internal/domain"
	"agrinudge/internal/usecase"
)

// DetectorHandler consumes the table's change feed and classifies newly
// inserted messages against open nudges. Stream processing is best effort:
// a record that cannot be classified is logged and skipped rather than
// blocking the shard.
type DetectorHandler struct {
	detector *usecase.DetectorService
}

// NewDetectorHandler creates the change-feed consumer handler.
func NewDetectorHandler(detector *usecase.DetectorService) (*DetectorHandler, error) {
	if detector == nil {
		return nil, errors.New("handler: detector service must not be nil")
	}
	return &DetectorHandler{detector: detector}, nil
}

func (h *DetectorHandler) Handle(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if record.EventName != "INSERT" {
			continue
		}
		image := record.Change.NewImage
		sk, ok := stringAttribute(image, "SK")
		if !ok || !domain.IsMessageSK(sk) {
			continue
		}

		pk, ok := stringAttribute(image, "PK")
		if !ok {
			slog.Warn("skipping stream record without string PK", "sk", sk)
			continue
		}
		phoneNumber := domain.UserIDFromPK(pk)
		raw, ok := stringAttribute(image, "message")
		if !ok {
			slog.Warn("skipping stream record without message body", "sk", sk)
			continue
		}
		m, err := domain.ParseInboundMessage([]byte(raw))
		if err != nil {
			slog.Warn("skipping undecodable stream record", "sk", sk, "err", err)
			continue
		}
		if m.Type != domain.MessageText && m.Type != domain.MessageInteractive {
			continue
		}

		sentAt := domain.MessageSKTimestamp(sk)
		classification, err := h.detector.HandleMessage(ctx, phoneNumber, sentAt, m.Text)
		if err != nil {
			slog.Error("response detection failed", "phone", phoneNumber, "err", err)
			continue
		}
		if classification != usecase.ClassNone {
			slog.Info("message classified", "phone", phoneNumber, "classification", classification)
		}
	}
	return nil
}

// stringAttribute reads a string attribute from a stream image. Absent keys
// and non-string types are rejected up front: DynamoDBAttributeValue.String
// panics on both.
func stringAttribute(image map[string]events.DynamoDBAttributeValue, key string) (string, bool) {
	av, ok := image[key]
	if !ok || av.DataType() != events.DataTypeString {
		return "", false
	}
	return av.String(), true
}
