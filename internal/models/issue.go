package models

import "time"

// Issue severities.
const (
	IssueWarning = "warning"
	IssueError   = "error"
)

// Issue is a single append-only log entry describing an anomaly seen during
// a crawl. Issues are write-once: created, appended to the issue log, never
// mutated or deleted.
type Issue struct {
	Timestamp time.Time `json:"timestamp"`
	SeasonURL string    `json:"seasonUrl"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
}

// NewWarning builds a warning issue stamped with the current time.
func NewWarning(seasonURL, message, details string) Issue {
	return Issue{
		Timestamp: time.Now().UTC(),
		SeasonURL: seasonURL,
		Type:      IssueWarning,
		Message:   message,
		Details:   details,
	}
}

// NewError builds an error issue stamped with the current time.
func NewError(seasonURL, message, details string) Issue {
	return Issue{
		Timestamp: time.Now().UTC(),
		SeasonURL: seasonURL,
		Type:      IssueError,
		Message:   message,
		Details:   details,
	}
}
