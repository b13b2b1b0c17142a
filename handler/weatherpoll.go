package handler

import (
	"context"
	"errors"

	"agrinudge/internal/usecase"
)

// PollResponse is the scheduled poll's invocation output.
type PollResponse struct {
	StatusCode int `json:"statusCode"`
	usecase.PollReport
}

// WeatherPollHandler runs one scheduled weather sweep over all onboarded
// locations.
type WeatherPollHandler struct {
	poll *usecase.WeatherPollService
}

// NewWeatherPollHandler creates the scheduled poll handler.
func NewWeatherPollHandler(poll *usecase.WeatherPollService) (*WeatherPollHandler, error) {
	if poll == nil {
		return nil, errors.New("handler: weather poll service must not be nil")
	}
	return &WeatherPollHandler{poll: poll}, nil
}

func (h *WeatherPollHandler) Handle(ctx context.Context) (PollResponse, error) {
	report, err := h.poll.Poll(ctx)
	if err != nil {
		return PollResponse{}, err
	}
	return PollResponse{StatusCode: 200, PollReport: report}, nil
}
