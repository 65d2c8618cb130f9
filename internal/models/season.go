package models

// StandingRow is one team's aggregated line in a season's league table.
type StandingRow struct {
	Rank           int    `json:"rank"`
	Team           string `json:"team"`
	MatchPlayed    int    `json:"matchPlayed"`
	Won            int    `json:"won"`
	Draw           int    `json:"draw"`
	Lost           int    `json:"lost"`
	GoalsScored    int    `json:"goalsScored"`
	GoalsAllowed   int    `json:"goalsAllowed"`
	GoalDifference int    `json:"goalDifference"`
	Points         int    `json:"points"`
}

// SeasonLink identifies one accepted edition of a tournament. Produced by
// season discovery and immutable afterwards.
type SeasonLink struct {
	Season         string        `json:"season"`
	URL            string        `json:"url"`
	LeagueStanding []StandingRow `json:"leagueStanding,omitempty"`
}

// SeasonRef is the label+URL pair persisted to seasons_list.json for
// auditability; standings are deliberately not included there.
type SeasonRef struct {
	Season string `json:"season"`
	URL    string `json:"url"`
}

// Ref strips a SeasonLink down to its persistable reference.
func (s SeasonLink) Ref() SeasonRef {
	return SeasonRef{Season: s.Season, URL: s.URL}
}

// ScrapeOutcome is the unit of result produced by one season crawl attempt.
// HasErrorOccurred covers skipped gameweeks, verifier integrity failures and
// navigation errors; the composer uses it to drive rescrape attempts.
type ScrapeOutcome struct {
	HasErrorOccurred bool       `json:"hasErrorOccurred"`
	Result           []Gameweek `json:"result"`
}

// SeasonResult is one season's finalized dataset inside a tournament bucket.
type SeasonResult struct {
	Season         string        `json:"season"`
	Gameweeks      []Gameweek    `json:"gameweeks"`
	LeagueStanding []StandingRow `json:"leagueStanding,omitempty"`
}

// TournamentResult is the artifact written for each outcome bucket
// (composed.json, repaired.json, erroneous.json).
type TournamentResult struct {
	Tournament string         `json:"tournament"`
	Data       []SeasonResult `json:"data"`
}
