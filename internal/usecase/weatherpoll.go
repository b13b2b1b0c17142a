package usecase

import (
	"context"
	"errors"
	"log/slog"

	"agrinudge/internal/domain"
	"agrinudge/internal/integrations/weather"
)

// LocationLister yields the distinct locations with completed profiles.
type LocationLister interface {
	ListProfileLocations(ctx context.Context) ([]string, error)
}

// WeatherFeed checks current conditions for one location.
type WeatherFeed interface {
	Check(ctx context.Context, location string) (weather.Observation, error)
}

// WorkflowStarter launches the nudge fan-out for one trigger.
type WorkflowStarter interface {
	Start(ctx context.Context, input any) error
}

// PollReport summarizes one polling run.
type PollReport struct {
	LocationsChecked   int `json:"locations_checked"`
	FavorableLocations int `json:"favorable_locations"`
}

// WeatherPollService polls the feed per user location and triggers the
// nudge workflow where conditions are favorable.
type WeatherPollService struct {
	store    LocationLister
	feed     WeatherFeed
	workflow WorkflowStarter
	activity string
}

// NewWeatherPollService creates the poller for one activity.
func NewWeatherPollService(store LocationLister, feed WeatherFeed, workflow WorkflowStarter, activity string) (*WeatherPollService, error) {
	if store == nil {
		return nil, errors.New("usecase: location lister must not be nil")
	}
	if feed == nil {
		return nil, errors.New("usecase: weather feed must not be nil")
	}
	if workflow == nil {
		return nil, errors.New("usecase: workflow starter must not be nil")
	}
	if activity == "" {
		activity = "spray"
	}
	return &WeatherPollService{store: store, feed: feed, workflow: workflow, activity: activity}, nil
}

// Poll checks every location once. Feed or workflow failures for one
// location are logged and do not block the others.
func (s *WeatherPollService) Poll(ctx context.Context) (PollReport, error) {
	locations, err := s.store.ListProfileLocations(ctx)
	if err != nil {
		return PollReport{}, newError(ErrorInternal, "location_list_error", err)
	}

	report := PollReport{LocationsChecked: len(locations)}
	for _, location := range locations {
		obs, err := s.feed.Check(ctx, location)
		if err != nil {
			slog.Error("weather check failed", "location", location, "err", err)
			continue
		}
		if !obs.Favorable {
			continue
		}

		trigger := NudgeTrigger{
			Location: location,
			Activity: s.activity,
			Weather: domain.WeatherSnapshot{
				Location:     obs.Location,
				WindSpeedKmh: obs.WindSpeedKmh,
				RainMm:       obs.RainMm,
				Favorable:    true,
			},
		}
		if err := s.workflow.Start(ctx, trigger); err != nil {
			slog.Error("nudge workflow start failed", "location", location, "err", err)
			continue
		}
		report.FavorableLocations++
		slog.Info("nudge workflow triggered", "location", location)
	}
	return report, nil
}
