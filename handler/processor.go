package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"agrinudge/internal/domain"
	"agrinudge/internal/usecase"
)

// ProcessorHandler consumes the FIFO processing queue. Failed records are
// reported as partial batch failures so the queue retries only those.
type ProcessorHandler struct {
	conversation *usecase.ConversationService
}

// NewProcessorHandler creates the queue consumer handler.
func NewProcessorHandler(conversation *usecase.ConversationService) (*ProcessorHandler, error) {
	if conversation == nil {
		return nil, errors.New("handler: conversation service must not be nil")
	}
	return &ProcessorHandler{conversation: conversation}, nil
}

func (h *ProcessorHandler) Handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var failures []events.SQSBatchItemFailure
	for _, record := range event.Records {
		var queued domain.QueuedMessage
		if err := json.Unmarshal([]byte(record.Body), &queued); err != nil {
			// A malformed body will never parse on retry. Drop it and let
			// the redrive policy alone handle genuine poison messages.
			slog.Error("dropping malformed queue record", "message_id", record.MessageId, "err", err)
			continue
		}
		if err := h.conversation.Process(ctx, queued); err != nil {
			slog.Error("message processing failed", "wamid", queued.WAMID, "err", err)
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}
