package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/matchday/internal/models"
)

// jsHasPlayedScore reports whether any score marker on the page holds a real
// result rather than the unplayed placeholder. Used as a proxy for "this
// season has been played at all".
var jsHasPlayedScore = fmt.Sprintf(`Array.from(document.querySelectorAll(%q))
	.some(e => { const t = e.textContent.trim(); return t !== "" && t !== ":" && t !== "-"; })`,
	selScoreMarkers)

// jsStandingsState snapshots the table's render progress for the
// stabilization wait: row count plus whether every row has a team name.
var jsStandingsState = fmt.Sprintf(`(() => {
	const rows = document.querySelectorAll(%q);
	let allNamed = rows.length > 0;
	rows.forEach(r => {
		const name = r.querySelector(%q);
		if (!name || name.textContent.trim() === "") allNamed = false;
	});
	return {count: rows.length, allNamed: allNamed};
})()`, selStandingsRows, selStandingsTeam)

// ExtractStandings reads the league table from an already-navigated season
// page. Returns an empty slice without error when the season has no played
// results or only placeholder (all-zero) rows. A page that claims results
// but yields no parseable rows is a structural error, logged with a content
// snapshot for diagnosis.
func ExtractStandings(ctx context.Context, session PageSession, issues *IssueLog, seasonURL string, waitTimeout time.Duration, logger arbor.ILogger) ([]models.StandingRow, error) {
	var played bool
	if err := session.Evaluate(ctx, jsHasPlayedScore, &played); err != nil {
		return nil, fmt.Errorf("probe played marker: %w", err)
	}
	if !played {
		logger.Debug().Str("season", seasonURL).Msg("No played results on page, skipping standings")
		return nil, nil
	}

	// Row count must hold steady across consecutive polls and every row must
	// expose a team name before we trust the table. The previous count is
	// threaded through the closure, not kept in shared state.
	prevCount := -1
	stablePolls := 0
	err := session.WaitFor(ctx, "standings table", waitTimeout, func(ctx context.Context) (bool, error) {
		var state struct {
			Count    int  `json:"count"`
			AllNamed bool `json:"allNamed"`
		}
		if err := session.Evaluate(ctx, jsStandingsState, &state); err != nil {
			return false, err
		}

		if state.Count > 0 && state.AllNamed && state.Count == prevCount {
			stablePolls++
		} else {
			stablePolls = 0
		}
		prevCount = state.Count
		return stablePolls >= 1, nil
	})
	if err != nil {
		snapshot, _ := session.Snapshot(ctx)
		issues.Error(seasonURL, "standings table never stabilized", truncate(snapshot, 4000))
		return nil, fmt.Errorf("standings table never stabilized: %w", err)
	}

	doc, err := session.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot standings: %w", err)
	}

	rows := parseStandings(doc)
	if len(rows) == 0 {
		snapshot, _ := session.Snapshot(ctx)
		issues.Error(seasonURL, "page claimed results but standings parsed empty", truncate(snapshot, 4000))
		return nil, newStructuralError("standings parsed empty on a page with results", snapshot)
	}

	// A table where nobody has played anything is placeholder data.
	if isDegenerateStandings(rows) {
		logger.Debug().Str("season", seasonURL).Int("rows", len(rows)).Msg("Standings degenerate (all matches-played zero), discarding")
		return nil, nil
	}

	return rows, nil
}

// parseStandings extracts standing rows from a rendered season page.
func parseStandings(doc *goquery.Document) []models.StandingRow {
	var rows []models.StandingRow

	doc.Find(selStandingsRows).Each(func(_ int, sel *goquery.Selection) {
		team := strings.TrimSpace(sel.Find(selStandingsTeam).Text())
		if team == "" {
			return
		}

		scored, allowed := parseGoals(strings.TrimSpace(sel.Find(selStandingsGoals).Text()))
		rows = append(rows, models.StandingRow{
			Rank:           cellInt(sel, selStandingsRank),
			Team:           team,
			MatchPlayed:    cellInt(sel, selStandingsMP),
			Won:            cellInt(sel, selStandingsWon),
			Draw:           cellInt(sel, selStandingsDraw),
			Lost:           cellInt(sel, selStandingsLost),
			GoalsScored:    scored,
			GoalsAllowed:   allowed,
			GoalDifference: cellInt(sel, selStandingsGD),
			Points:         cellInt(sel, selStandingsPts),
		})
	})

	return rows
}

// isDegenerateStandings reports whether every row shows zero matches played.
func isDegenerateStandings(rows []models.StandingRow) bool {
	if len(rows) == 0 {
		return false
	}
	for _, r := range rows {
		if r.MatchPlayed != 0 {
			return false
		}
	}
	return true
}

// parseGoals splits a "34:12" goals cell into scored and allowed.
func parseGoals(s string) (int, int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	scored, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	allowed, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	return scored, allowed
}

// cellInt reads an integer cell, tolerating rank dots ("1.") and explicit
// plus signs on goal difference ("+12").
func cellInt(sel *goquery.Selection, selector string) int {
	text := strings.TrimSpace(sel.Find(selector).Text())
	text = strings.TrimSuffix(text, ".")
	text = strings.TrimPrefix(text, "+")
	n, _ := strconv.Atoi(text)
	return n
}
