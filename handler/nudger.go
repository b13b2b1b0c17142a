package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"agrinudge/internal/usecase"
)

// NudgeResponse is the workflow task output.
type NudgeResponse struct {
	StatusCode int `json:"statusCode"`
	usecase.NudgeReport
}

// NudgerHandler runs the nudge fan-out for one workflow trigger.
type NudgerHandler struct {
	nudge *usecase.NudgeService
}

// NewNudgerHandler creates the workflow task handler.
func NewNudgerHandler(nudge *usecase.NudgeService) (*NudgerHandler, error) {
	if nudge == nil {
		return nil, errors.New("handler: nudge service must not be nil")
	}
	return &NudgerHandler{nudge: nudge}, nil
}

func (h *NudgerHandler) Handle(ctx context.Context, raw json.RawMessage) (NudgeResponse, error) {
	var trigger usecase.NudgeTrigger
	if err := json.Unmarshal(raw, &trigger); err != nil {
		return NudgeResponse{}, err
	}
	if strings.TrimSpace(trigger.Location) == "" {
		return NudgeResponse{}, errors.New("handler: trigger location must not be empty")
	}

	report, err := h.nudge.Send(ctx, trigger)
	if err != nil {
		return NudgeResponse{}, err
	}
	return NudgeResponse{StatusCode: 200, NudgeReport: report}, nil
}
