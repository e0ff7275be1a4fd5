package ai

import (
	"context"
	"errors"
	"time"
)

// TaskExtraction is the structured reply expected from the extraction
// oracle: the task description plus an absolute local timestamp in
// models.TaskTimeLayout. Both fields are required; a reply missing either
// is malformed.
type TaskExtraction struct {
	Task string `json:"task" validate:"required"`
	Time string `json:"time" validate:"required"`
}

// Oracle is the natural-language inference service consulted for
// city-to-timezone resolution and task/time extraction.
//
// Implementations convert every transport or parse failure into
// ErrUnknownTimezone or ErrMalformedReply; callers re-prompt the user
// instead of failing the interaction.
type Oracle interface {
	// ResolveTimezone maps a free-text place name to an IANA timezone
	// identifier. ref disambiguates typo'd or ambiguous city names.
	ResolveTimezone(ctx context.Context, city string, ref time.Time) (string, error)

	// ExtractTask extracts a task description and absolute local timestamp
	// from a free-text message. userNow anchors relative expressions such
	// as "in 5 minutes".
	ExtractTask(ctx context.Context, message string, userNow time.Time) (*TaskExtraction, error)
}

var (
	// ErrUnknownTimezone is returned when the oracle cannot produce a
	// canonical IANA identifier for the given place name, or when its
	// reply is not one.
	ErrUnknownTimezone = errors.New("unknown timezone")
	// ErrMalformedReply is returned when the oracle's reply cannot be
	// parsed into the expected structure or is missing required fields.
	ErrMalformedReply = errors.New("malformed oracle reply")
)
