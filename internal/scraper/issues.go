package scraper

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/matchday/internal/models"
	"github.com/ternarybob/matchday/internal/storage"
)

// IssueLog appends anomaly records to a tournament's issue log. Records are
// write-once; a failure to persist one is logged but never interrupts the
// crawl.
type IssueLog struct {
	store  *storage.Store
	path   string
	logger arbor.ILogger
}

// NewIssueLog creates an issue log writing to path below the store root.
func NewIssueLog(store *storage.Store, path string, logger arbor.ILogger) *IssueLog {
	return &IssueLog{store: store, path: path, logger: logger}
}

// Warn records a non-fatal anomaly.
func (l *IssueLog) Warn(seasonURL, message, details string) {
	l.Record(models.NewWarning(seasonURL, message, details))
}

// Error records a fatal-for-its-unit anomaly.
func (l *IssueLog) Error(seasonURL, message, details string) {
	l.Record(models.NewError(seasonURL, message, details))
}

// Record appends a prepared issue.
func (l *IssueLog) Record(issue models.Issue) {
	event := l.logger.Warn()
	if issue.Type == models.IssueError {
		event = l.logger.Error()
	}
	event.
		Str("season", issue.SeasonURL).
		Str("details", truncate(issue.Details, 200)).
		Msg(issue.Message)

	if err := l.store.AppendJSONLine(l.path, issue); err != nil {
		l.logger.Error().Err(err).Str("path", l.path).Msg("Failed to persist issue record")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
