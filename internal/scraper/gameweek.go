package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/matchday/internal/models"
)

// jsFixturesState snapshots fixture rendering progress: match row count and
// whether every row has both team names populated.
var jsFixturesState = fmt.Sprintf(`(() => {
	const rows = document.querySelectorAll(%q);
	let allNamed = rows.length > 0;
	rows.forEach(r => {
		const home = r.querySelector(%q);
		const away = r.querySelector(%q);
		if (!home || !away || home.textContent.trim() === "" || away.textContent.trim() === "") allNamed = false;
	});
	return {count: rows.length, allNamed: allNamed};
})()`, selMatchRows, selHomeTeam, selAwayTeam)

var displayDatePattern = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)

// ExtractGameweek extracts the currently displayed gameweek's matches. Rows
// must stabilize first (count unchanged across polls, team names populated).
// A row missing a team name or stats link is a structural error aborting the
// attempt; anomaly policy (duplicates, sparsity) is the caller's concern.
func ExtractGameweek(ctx context.Context, session PageSession, index int, waitTimeout time.Duration, logger arbor.ILogger) (models.Gameweek, error) {
	gw := models.Gameweek{Number: index}

	prevCount := -1
	stablePolls := 0
	err := session.WaitFor(ctx, "match rows", waitTimeout, func(ctx context.Context) (bool, error) {
		var state struct {
			Count    int  `json:"count"`
			AllNamed bool `json:"allNamed"`
		}
		if err := session.Evaluate(ctx, jsFixturesState, &state); err != nil {
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
		return gw, fmt.Errorf("gameweek %d rows never stabilized: %w", index, err)
	}

	doc, err := session.Document(ctx)
	if err != nil {
		return gw, fmt.Errorf("snapshot gameweek %d: %w", index, err)
	}

	matches, err := parseFixtures(doc)
	if err != nil {
		snapshot, _ := session.Snapshot(ctx)
		return gw, newStructuralError(fmt.Sprintf("gameweek %d: %v", index, err), snapshot)
	}

	gw.Matches = matches
	logger.Debug().Int("gameweek", index).Int("matches", len(matches)).Msg("Gameweek extracted")
	return gw, nil
}

// parseFixtures walks the fixture list in document order. Date headings and
// match rows are siblings; each row takes its date from the most recent
// heading above it.
func parseFixtures(doc *goquery.Document) ([]models.Match, error) {
	container := doc.Find(selFixtureList).First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("fixture list not present")
	}

	var matches []models.Match
	var parseErr error
	currentDate := ""

	container.Children().EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		switch {
		case sel.HasClass(clsDateHeading):
			if date, ok := parseDisplayDate(strings.TrimSpace(sel.Text())); ok {
				currentDate = date
			}
			return true

		case sel.HasClass(clsMatchRow):
			match, err := parseMatchRow(sel, currentDate)
			if err != nil {
				parseErr = err
				return false
			}
			matches = append(matches, match)
			return true

		default:
			return true
		}
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return matches, nil
}

// parseMatchRow builds a Match from one fixture row. Team names and the
// stats link are required fields.
func parseMatchRow(sel *goquery.Selection, date string) (models.Match, error) {
	home := strings.TrimSpace(sel.Find(selHomeTeam).Text())
	away := strings.TrimSpace(sel.Find(selAwayTeam).Text())
	if home == "" || away == "" {
		return models.Match{}, fmt.Errorf("match row missing team name (home=%q away=%q)", home, away)
	}

	statsURL, ok := sel.Find(selStatsLink).Attr("href")
	if !ok || strings.TrimSpace(statsURL) == "" {
		return models.Match{}, fmt.Errorf("match row %s vs %s missing stats link", home, away)
	}

	kickoff := strings.TrimSpace(sel.Find(selMatchTime).Text())
	if kickoff == "" {
		kickoff = models.TBD
	}

	return models.Match{
		Date:     date,
		Time:     kickoff,
		HomeTeam: home,
		AwayTeam: away,
		Score:    parseScore(sel),
		StatsURL: statsURL,
		Awarded:  sel.Find(selAwardedFlag).Length() > 0,
	}, nil
}

// parseScore joins the home/away score cells, rendering the unplayed
// placeholder when both are empty.
func parseScore(sel *goquery.Selection) string {
	home := strings.TrimSpace(sel.Find(selScoreHome).Text())
	away := strings.TrimSpace(sel.Find(selScoreAway).Text())
	if home == "" && away == "" {
		return models.UnplayedScore
	}
	return home + ":" + away
}

// parseDisplayDate converts a date heading such as "13.08.2022" (with or
// without a weekday prefix) to ISO YYYY-MM-DD.
func parseDisplayDate(text string) (string, bool) {
	match := displayDatePattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}

	parsed, err := time.Parse("2.1.2006", fmt.Sprintf("%s.%s.%s", match[1], match[2], match[3]))
	if err != nil {
		return "", false
	}
	return parsed.Format("2006-01-02"), true
}

// expectedMatchesPerGameweek returns the sparsity baseline: the explicit
// override when configured, otherwise the double round-robin assumption
// floor((totalGameweeks+2)/2/2). Zero disables the sparsity check.
func expectedMatchesPerGameweek(totalGameweeks, override int) int {
	if override > 0 {
		return override
	}
	if totalGameweeks <= 0 {
		return 0
	}
	return (totalGameweeks + 2) / 2 / 2
}

// absolutizeMatchURLs resolves relative stats links against the season URL.
func absolutizeMatchURLs(matches []models.Match, seasonURL string) {
	base, err := url.Parse(seasonURL)
	if err != nil {
		return
	}
	for i := range matches {
		matches[i].StatsURL = resolveURL(base, matches[i].StatsURL)
	}
}
