package handler

import (
	"context"
	"encoding/json"
	"errors"

	"agrinudge/internal/domain"
	"agrinudge/internal/usecase"
)

// ReminderResponse is returned to the scheduler invocation for observability;
// the scheduler itself ignores it.
type ReminderResponse struct {
	StatusCode int    `json:"statusCode"`
	Outcome    string `json:"outcome"`
	NudgeID    string `json:"nudge_id,omitempty"`
}

// ReminderHandler dispatches one scheduled reminder callback.
type ReminderHandler struct {
	reminder *usecase.ReminderService
}

// NewReminderHandler creates the scheduler callback handler.
func NewReminderHandler(reminder *usecase.ReminderService) (*ReminderHandler, error) {
	if reminder == nil {
		return nil, errors.New("handler: reminder service must not be nil")
	}
	return &ReminderHandler{reminder: reminder}, nil
}

func (h *ReminderHandler) Handle(ctx context.Context, raw json.RawMessage) (ReminderResponse, error) {
	var inv domain.ReminderInvocation
	if err := json.Unmarshal(raw, &inv); err != nil {
		return ReminderResponse{StatusCode: 400, Outcome: "invalid_payload"}, nil
	}

	outcome, err := h.reminder.Dispatch(ctx, inv)
	if err != nil {
		return ReminderResponse{}, err
	}

	status := 200
	if outcome == usecase.ReminderNotFound {
		status = 404
	}
	return ReminderResponse{StatusCode: status, Outcome: string(outcome), NudgeID: inv.NudgeID}, nil
}
