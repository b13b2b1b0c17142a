package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
)

// ProfileStore is the profile surface of the keyed store.
type ProfileStore interface {
	GetProfile(ctx context.Context, phoneNumber string) (*domain.Profile, error)
	PutProfile(ctx context.Context, p domain.Profile) error
}

// Messenger sends outbound messages over the transport.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, options []string) error
}

// DefaultDistricts is the district allow-list used when none is configured.
var DefaultDistricts = []string{"Nagpur", "Wardha", "Amravati", "Yavatmal", "Akola", "Nanded", "Jalgaon"}

// OnboardingService advances a user through
// LANGUAGE → LOCATION → CROP → CONSENT → COMPLETE. The machine never rejects
// input outright; unrecognized input re-prompts and leaves the state
// unchanged, so state only ever moves forward and a completed profile is
// always fully typed.
type OnboardingService struct {
	store     ProfileStore
	sender    Messenger
	districts []string
}

// NewOnboardingService creates the onboarding machine.
func NewOnboardingService(store ProfileStore, sender Messenger, districts []string) (*OnboardingService, error) {
	if store == nil {
		return nil, errors.New("usecase: profile store must not be nil")
	}
	if sender == nil {
		return nil, errors.New("usecase: sender must not be nil")
	}
	if len(districts) == 0 {
		districts = DefaultDistricts
	}
	return &OnboardingService{store: store, sender: sender, districts: districts}, nil
}

// Advance consumes one inbound message for a user who has not completed
// onboarding. A nil profile means first contact.
func (s *OnboardingService) Advance(ctx context.Context, m domain.InboundMessage, profile *domain.Profile) error {
	if profile == nil {
		p := domain.NewProfile(m.From)
		if err := s.store.PutProfile(ctx, p); err != nil {
			return newError(ErrorInternal, "profile_create_error", err)
		}
		return s.sendLanguagePrompt(ctx, m.From)
	}

	switch profile.OnboardingState {
	case domain.StateLanguage:
		return s.advanceLanguage(ctx, m, profile)
	case domain.StateLocation:
		return s.advanceLocation(ctx, m, profile)
	case domain.StateCrop:
		return s.advanceCrop(ctx, m, profile)
	case domain.StateConsent:
		return s.advanceConsent(ctx, m, profile)
	default:
		// COMPLETE or unknown: nothing for this machine to do.
		return nil
	}
}

func (s *OnboardingService) sendLanguagePrompt(ctx context.Context, to string) error {
	if err := s.sender.SendButtons(ctx, to, dialect.LanguagePromptText(), dialect.LanguageOptions()); err != nil {
		return newError(ErrorUpstream, "send_language_prompt_error", err)
	}
	return nil
}

func (s *OnboardingService) advanceLanguage(ctx context.Context, m domain.InboundMessage, profile *domain.Profile) error {
	d, ok := dialect.MatchLanguage(m.Text)
	if !ok {
		// Stay in state: re-send the same prompt unchanged.
		return s.sendLanguagePrompt(ctx, m.From)
	}

	profile.Dialect = string(d)
	profile.OnboardingState = domain.StateLocation
	if err := s.store.PutProfile(ctx, *profile); err != nil {
		return newError(ErrorInternal, "profile_update_error", err)
	}
	if err := s.sender.SendText(ctx, m.From, dialect.LocationPromptText(d)); err != nil {
		return newError(ErrorUpstream, "send_location_prompt_error", err)
	}
	return nil
}

func (s *OnboardingService) advanceLocation(ctx context.Context, m domain.InboundMessage, profile *domain.Profile) error {
	d := dialect.Normalize(profile.Dialect)

	location, ok := s.matchDistrict(m.Text)
	if !ok {
		trimmed := strings.TrimSpace(m.Text)
		// Accept unlisted districts rather than blocking the user.
		if len([]rune(trimmed)) <= 2 {
			if err := s.sender.SendText(ctx, m.From, dialect.LocationPromptText(d)); err != nil {
				return newError(ErrorUpstream, "send_location_prompt_error", err)
			}
			return nil
		}
		location = titleCase(trimmed)
	}

	profile.Location = location
	profile.OnboardingState = domain.StateCrop
	if err := s.store.PutProfile(ctx, *profile); err != nil {
		return newError(ErrorInternal, "profile_update_error", err)
	}
	if err := s.sender.SendButtons(ctx, m.From, dialect.CropPromptText(d), dialect.CropNames(d)); err != nil {
		return newError(ErrorUpstream, "send_crop_prompt_error", err)
	}
	return nil
}

func (s *OnboardingService) advanceCrop(ctx context.Context, m domain.InboundMessage, profile *domain.Profile) error {
	d := dialect.Normalize(profile.Dialect)

	crop, ok := dialect.MatchCrop(m.Text)
	if !ok {
		// Re-prompt with the option list appended.
		if err := s.sender.SendButtons(ctx, m.From, dialect.CropPromptText(d), dialect.CropNames(d)); err != nil {
			return newError(ErrorUpstream, "send_crop_prompt_error", err)
		}
		return nil
	}

	profile.Crop = crop
	profile.OnboardingState = domain.StateConsent
	if err := s.store.PutProfile(ctx, *profile); err != nil {
		return newError(ErrorInternal, "profile_update_error", err)
	}
	if err := s.sender.SendText(ctx, m.From, dialect.ConsentPromptText(d)); err != nil {
		return newError(ErrorUpstream, "send_consent_prompt_error", err)
	}
	return nil
}

func (s *OnboardingService) advanceConsent(ctx context.Context, m domain.InboundMessage, profile *domain.Profile) error {
	d := dialect.Normalize(profile.Dialect)

	// Any non-affirmative input is a negative consent, not an error; the
	// profile is finalized either way.
	profile.Finalize(dialect.MatchConsent(m.Text))
	if err := s.store.PutProfile(ctx, *profile); err != nil {
		return newError(ErrorInternal, "profile_finalize_error", err)
	}
	if err := s.sender.SendText(ctx, m.From, dialect.OnboardingCompleteText(d)); err != nil {
		return newError(ErrorUpstream, "send_complete_error", err)
	}
	return nil
}

func (s *OnboardingService) matchDistrict(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, district := range s.districts {
		if strings.Contains(lower, strings.ToLower(district)) {
			return district, true
		}
	}
	return "", false
}

// titleCase upper-cases the first rune of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
