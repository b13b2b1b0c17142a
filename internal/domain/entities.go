package domain

import (
	"time"
)

const (
	dedupTTL       = 24 * time.Hour
	controlCopyTTL = 24 * time.Hour
	exchangeTTL    = 90 * 24 * time.Hour
	nudgeTTL       = 180 * 24 * time.Hour
)

// OnboardingState is the user's position in the onboarding machine.
type OnboardingState string

const (
	StateLanguage OnboardingState = "LANGUAGE"
	StateLocation OnboardingState = "LOCATION"
	StateCrop     OnboardingState = "CROP"
	StateConsent  OnboardingState = "CONSENT"
	StateComplete OnboardingState = "COMPLETE"
)

// NudgeStatus is the lifecycle state of a nudge. Done is terminal.
type NudgeStatus string

const (
	NudgeSent     NudgeStatus = "SENT"
	NudgeReminded NudgeStatus = "REMINDED"
	NudgeDone     NudgeStatus = "DONE"
)

// Open reports whether the nudge still awaits completion.
func (s NudgeStatus) Open() bool {
	return s == NudgeSent || s == NudgeReminded
}

// DedupMarker makes acceptance of an external message id observable exactly
// once. Its existence is the sole authority on "already accepted".
type DedupMarker struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	From        string `dynamodbav:"from"`
	ProcessedAt string `dynamodbav:"processed_at"`
	TTL         int64  `dynamodbav:"ttl"`
}

// NewDedupMarker builds the marker for one external message id.
func NewDedupMarker(messageID, from string, now time.Time) DedupMarker {
	k := DedupKey{MessageID: messageID}
	return DedupMarker{
		PK:          k.PK(),
		SK:          k.SK(),
		From:        from,
		ProcessedAt: now.UTC().Format(time.RFC3339),
		TTL:         now.Add(dedupTTL).Unix(),
	}
}

// Profile is a user's onboarding and preference record. GSI1 attributes are
// projected only once onboarding completes, which keeps incomplete users out
// of location fan-outs by construction.
type Profile struct {
	PK                 string          `dynamodbav:"PK"`
	SK                 string          `dynamodbav:"SK"`
	PhoneNumber        string          `dynamodbav:"phone_number"`
	Dialect            string          `dynamodbav:"dialect,omitempty"`
	Location           string          `dynamodbav:"location,omitempty"`
	Crop               string          `dynamodbav:"crop,omitempty"`
	Consent            bool            `dynamodbav:"consent"`
	OnboardingState    OnboardingState `dynamodbav:"onboarding_state"`
	OnboardingComplete bool            `dynamodbav:"onboarding_complete"`
	GSI1PK             string          `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK             string          `dynamodbav:"GSI1SK,omitempty"`
}

// NewProfile creates a fresh profile pinned at the language step.
func NewProfile(phoneNumber string) Profile {
	k := ProfileKey{UserID: phoneNumber}
	return Profile{
		PK:              k.PK(),
		SK:              k.SK(),
		PhoneNumber:     phoneNumber,
		OnboardingState: StateLanguage,
	}
}

// Finalize marks onboarding complete and projects the profile into the
// location index.
func (p *Profile) Finalize(consent bool) {
	p.Consent = consent
	p.OnboardingState = StateComplete
	p.OnboardingComplete = true
	p.GSI1PK = LocationGSI1PK(p.Location)
	p.GSI1SK = UserPK(p.PhoneNumber)
}

// MessageRecord is one append-only persisted inbound message. Response and
// SourceCitation are set only on records written by the conversation
// processor; gateway-written detector copies carry a shorter TTL.
type MessageRecord struct {
	PK             string  `dynamodbav:"PK"`
	SK             string  `dynamodbav:"SK"`
	WAMID          string  `dynamodbav:"wamid"`
	Message        string  `dynamodbav:"message"`
	Response       string  `dynamodbav:"response,omitempty"`
	SourceCitation string  `dynamodbav:"source_citation,omitempty"`
	Source         string  `dynamodbav:"source,omitempty"`
	Confidence     float64 `dynamodbav:"confidence,omitempty"`
	TTL            int64   `dynamodbav:"ttl"`
}

// NewDetectorCopy persists an inbound message for change-feed consumption
// only, before any downstream processing.
func NewDetectorCopy(m InboundMessage, now time.Time) MessageRecord {
	k := MessageKey{UserID: m.From, SentAt: now}
	return MessageRecord{
		PK:      k.PK(),
		SK:      k.SK(),
		WAMID:   m.ID,
		Message: string(m.Raw),
		TTL:     now.Add(controlCopyTTL).Unix(),
	}
}

// NewExchangeRecord persists a completed question/answer turn.
func NewExchangeRecord(m InboundMessage, response, citation string, now time.Time) MessageRecord {
	k := MessageKey{UserID: m.From, SentAt: now}
	rec := MessageRecord{
		PK:             k.PK(),
		SK:             k.SK(),
		WAMID:          m.ID,
		Message:        string(m.Raw),
		Response:       response,
		SourceCitation: citation,
		TTL:            now.Add(exchangeTTL).Unix(),
	}
	if m.Voice {
		rec.Source = "voice"
		rec.Confidence = m.Confidence
	}
	return rec
}

// WeatherSnapshot is the triggering condition captured on a nudge.
type WeatherSnapshot struct {
	Location     string  `dynamodbav:"location" json:"location"`
	WindSpeedKmh float64 `dynamodbav:"wind_speed" json:"wind_speed"`
	RainMm       float64 `dynamodbav:"rain" json:"rain"`
	Favorable    bool    `dynamodbav:"favorable" json:"favorable"`
}

// NudgeRecord is one behavioral prompt and its lifecycle state. Records are
// never deleted by the application; they age out via TTL.
type NudgeRecord struct {
	PK           string          `dynamodbav:"PK"`
	SK           string          `dynamodbav:"SK"`
	GSI2PK       string          `dynamodbav:"GSI2PK"`
	GSI2SK       string          `dynamodbav:"GSI2SK"`
	Status       NudgeStatus     `dynamodbav:"status"`
	Activity     string          `dynamodbav:"activity"`
	Weather      WeatherSnapshot `dynamodbav:"weather"`
	Message      string          `dynamodbav:"message"`
	LastReminder string          `dynamodbav:"lastReminder,omitempty"`
	CompletedAt  string          `dynamodbav:"completedAt,omitempty"`
	TTL          int64           `dynamodbav:"ttl"`
}

// NewNudgeRecord creates a nudge in status SENT.
func NewNudgeRecord(phoneNumber, activity string, weather WeatherSnapshot, message string, now time.Time) NudgeRecord {
	id := NudgeID{CreatedAt: now, Activity: activity}
	k := NudgeKey{UserID: phoneNumber, ID: id}
	return NudgeRecord{
		PK:       k.PK(),
		SK:       k.SK(),
		GSI2PK:   gsi2NudgePK,
		GSI2SK:   now.UTC().Format(time.RFC3339),
		Status:   NudgeSent,
		Activity: activity,
		Weather:  weather,
		Message:  message,
		TTL:      now.Add(nudgeTTL).Unix(),
	}
}

// ID returns the nudge's identifier decoded from its sort key.
func (n NudgeRecord) ID() (NudgeID, error) {
	return NudgeIDFromSK(n.SK)
}

// Answer is generated text plus source citations from the answer-generation
// collaborator. The core treats citations as opaque beyond "non-empty".
type Answer struct {
	Text      string
	Citations []string
}

// ReminderInvocation is the payload a reminder schedule is registered with
// and later invoked with.
type ReminderInvocation struct {
	PhoneNumber  string `json:"phone_number"`
	NudgeID      string `json:"nudge_id"`
	ReminderType string `json:"reminder_type"`
	Dialect      string `json:"dialect"`
}
