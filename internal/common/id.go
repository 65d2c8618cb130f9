package common

import (
	"fmt"

	"github.com/google/uuid"
)

// NewRunID generates a unique crawl run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewRescrapeID generates an identifier for an isolated rescrape attempt
// Format: rescrape_<attempt>_<short uuid>
func NewRescrapeID(attempt int) string {
	return fmt.Sprintf("rescrape_%d_%s", attempt, uuid.New().String()[:8])
}
