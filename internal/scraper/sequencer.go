package scraper

import (
	"sort"

	"github.com/ternarybob/matchday/internal/models"
)

// Resequence converts navigation order into chronological order: gameweeks
// without any dated match are dropped, whole-gameweek duplicates (same
// signature set captured under two navigation indices) are removed keeping
// the first occurrence, the remainder is sorted by earliest match date, and
// numbers are reassigned densely from 1. Matches inside each gameweek are
// ordered by date and kickoff time as well. Pure function; idempotent.
func Resequence(gameweeks []models.Gameweek) []models.Gameweek {
	seen := map[string]struct{}{}
	kept := make([]models.Gameweek, 0, len(gameweeks))

	for _, gw := range gameweeks {
		if gw.EarliestDate() == "" {
			continue
		}

		key := gameweekKey(gw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		matches := make([]models.Match, len(gw.Matches))
		copy(matches, gw.Matches)
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Date != matches[j].Date {
				return dateSortKey(matches[i].Date) < dateSortKey(matches[j].Date)
			}
			return matches[i].Time < matches[j].Time
		})

		kept = append(kept, models.Gameweek{Number: gw.Number, Matches: matches})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return dateSortKey(kept[i].EarliestDate()) < dateSortKey(kept[j].EarliestDate())
	})

	for i := range kept {
		kept[i].Number = i + 1
	}
	return kept
}

// dateSortKey makes missing dates sort maximally late. ISO dates otherwise
// compare correctly as strings.
func dateSortKey(date string) string {
	if date == "" {
		return "\xff"
	}
	return date
}
