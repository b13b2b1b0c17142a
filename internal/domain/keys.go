package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	pkUserPrefix  = "USER#"
	pkDedupPrefix = "MSG#"

	skProfile     = "PROFILE"
	skDedup       = "DEDUP"
	skMsgPrefix   = "MSG#"
	skNudgePrefix = "NUDGE#"

	gsi2NudgePK = "NUDGE"
)

// UserPK returns the partition key grouping all records owned by one user.
func UserPK(userID string) string {
	return pkUserPrefix + userID
}

// UserIDFromPK is the inverse of UserPK. It returns "" for foreign keys.
func UserIDFromPK(pk string) string {
	if !strings.HasPrefix(pk, pkUserPrefix) {
		return ""
	}
	return strings.TrimPrefix(pk, pkUserPrefix)
}

// DedupKey addresses the at-most-once marker for one external message id.
type DedupKey struct {
	MessageID string
}

func (k DedupKey) PK() string { return pkDedupPrefix + k.MessageID }
func (k DedupKey) SK() string { return skDedup }

// ProfileKey addresses a user's single profile record.
type ProfileKey struct {
	UserID string
}

func (k ProfileKey) PK() string { return UserPK(k.UserID) }
func (k ProfileKey) SK() string { return skProfile }

// MessageKey addresses one persisted inbound message or exchange.
type MessageKey struct {
	UserID string
	SentAt time.Time
}

func (k MessageKey) PK() string { return UserPK(k.UserID) }
func (k MessageKey) SK() string {
	return skMsgPrefix + k.SentAt.UTC().Format(time.RFC3339Nano)
}

// MessageSKTimestamp extracts the timestamp portion of a message sort key.
func MessageSKTimestamp(sk string) string {
	return strings.TrimPrefix(sk, skMsgPrefix)
}

// IsMessageSK reports whether sk names a message record.
func IsMessageSK(sk string) bool {
	return strings.HasPrefix(sk, skMsgPrefix)
}

// NudgeID identifies a nudge within its owner's partition. Its encoded form
// "<RFC3339 timestamp>#<activity>" is the only representation that crosses
// component boundaries (scheduler payloads, schedule names).
type NudgeID struct {
	CreatedAt time.Time
	Activity  string
}

func (id NudgeID) Encode() string {
	return id.CreatedAt.UTC().Format(time.RFC3339) + "#" + id.Activity
}

// ParseNudgeID decodes the wire form produced by Encode.
func ParseNudgeID(s string) (NudgeID, error) {
	sep := strings.LastIndex(s, "#")
	if sep <= 0 || sep == len(s)-1 {
		return NudgeID{}, fmt.Errorf("domain: malformed nudge id %q", s)
	}
	ts, err := time.Parse(time.RFC3339, s[:sep])
	if err != nil {
		return NudgeID{}, fmt.Errorf("domain: malformed nudge id timestamp %q: %w", s, err)
	}
	return NudgeID{CreatedAt: ts, Activity: s[sep+1:]}, nil
}

// Day returns the UTC calendar day the nudge was created on, used for the
// one-open-nudge-per-day rule.
func (id NudgeID) Day() string {
	return id.CreatedAt.UTC().Format("2006-01-02")
}

// NudgeKey addresses one nudge record.
type NudgeKey struct {
	UserID string
	ID     NudgeID
}

func (k NudgeKey) PK() string { return UserPK(k.UserID) }
func (k NudgeKey) SK() string { return skNudgePrefix + k.ID.Encode() }

// NudgeIDFromSK is the inverse of NudgeKey.SK.
func NudgeIDFromSK(sk string) (NudgeID, error) {
	return ParseNudgeID(strings.TrimPrefix(sk, skNudgePrefix))
}

// IsNudgeSK reports whether sk names a nudge record.
func IsNudgeSK(sk string) bool {
	return strings.HasPrefix(sk, skNudgePrefix)
}

// NudgeSKPrefix is the begins_with prefix for querying a user's nudges.
func NudgeSKPrefix() string { return skNudgePrefix }

// LocationGSI1PK returns the secondary-index partition key grouping completed
// profiles by location.
func LocationGSI1PK(location string) string {
	return "LOCATION#" + location
}
