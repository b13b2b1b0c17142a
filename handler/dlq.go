package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"agrinudge/internal/usecase"
)

// DLQHandler drains the dead-letter queue. Every record is consumed exactly
// once; apology delivery is best effort and never requeues.
type DLQHandler struct {
	dlq *usecase.DLQService
}

// NewDLQHandler creates the dead-letter consumer handler.
func NewDLQHandler(dlq *usecase.DLQService) (*DLQHandler, error) {
	if dlq == nil {
		return nil, errors.New("handler: dlq service must not be nil")
	}
	return &DLQHandler{dlq: dlq}, nil
}

func (h *DLQHandler) Handle(ctx context.Context, event events.SQSEvent) error {
	for _, record := range event.Records {
		if err := h.dlq.HandleRecord(ctx, []byte(record.Body)); err != nil {
			slog.Error("dead-letter record handling failed", "message_id", record.MessageId, "err", err)
		}
	}
	return nil
}
