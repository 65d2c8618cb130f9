package scraper

import (
	"fmt"

	"github.com/ternarybob/matchday/internal/models"
)

// VerifySeason runs the cross-gameweek anomaly pass over a season's accepted
// gameweeks. Accept-time dedup should already have prevented duplicate
// signatures, so finding one here means that mechanism failed: that is a
// fatal data-integrity error, not a warning. Sparsity, malformed dates and
// empty gameweeks are warnings; the data itself is returned to the caller
// unchanged.
func VerifySeason(seasonURL string, gameweeks []models.Gameweek, expected int) ([]models.Issue, error) {
	var issues []models.Issue

	seen := map[string]int{}
	for _, gw := range gameweeks {
		for _, m := range gw.Matches {
			sig := m.Signature()
			if firstGw, dup := seen[sig]; dup {
				issue := models.NewError(seasonURL,
					"duplicate match signature survived accept-time dedup",
					fmt.Sprintf("signature %q in gameweeks %d and %d", sig, firstGw, gw.Number))
				issues = append(issues, issue)
				return issues, fmt.Errorf("%w: %q in gameweeks %d and %d", ErrDuplicateMatches, sig, firstGw, gw.Number)
			}
			seen[sig] = gw.Number
		}
	}

	for _, gw := range gameweeks {
		if len(gw.Matches) == 0 {
			issues = append(issues, models.NewWarning(seasonURL,
				"empty gameweek",
				fmt.Sprintf("gameweek %d has no matches", gw.Number)))
			continue
		}

		if expected > 0 && float64(len(gw.Matches)) < float64(expected)*0.5 {
			issues = append(issues, models.NewWarning(seasonURL,
				"sparse gameweek",
				fmt.Sprintf("gameweek %d has %d matches, expected around %d", gw.Number, len(gw.Matches), expected)))
		}

		for _, m := range gw.Matches {
			if !m.HasValidDate() {
				issues = append(issues, models.NewWarning(seasonURL,
					"match with missing or malformed date",
					fmt.Sprintf("gameweek %d: %s has date %q", gw.Number, m.String(), m.Date)))
			}
		}
	}

	return issues, nil
}
