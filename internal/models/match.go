package models

import (
	"fmt"
	"regexp"
	"strings"
)

// UnplayedScore is the placeholder score the source renders for fixtures
// that have not been played yet.
const UnplayedScore = ":"

// TBD marks a match whose kickoff time is not yet published.
const TBD = "TBD"

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Match is a single fixture as extracted from one gameweek page.
type Match struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
	Score    string `json:"score"`
	StatsURL string `json:"statsUrl"`
	Awarded  bool   `json:"awarded,omitempty"`
}

// Signature returns the deduplication identity of a match. The source does
// not guarantee this tuple is unique, so collisions are treated as scraping
// artifacts by the extractor and verifier.
func (m Match) Signature() string {
	return strings.Join([]string{m.HomeTeam, m.AwayTeam, m.Date, m.Score}, "|")
}

// HasValidDate reports whether the match carries a parseable YYYY-MM-DD date.
func (m Match) HasValidDate() bool {
	return isoDatePattern.MatchString(m.Date)
}

// Played reports whether the match has a recorded result.
func (m Match) Played() bool {
	return m.Score != "" && m.Score != UnplayedScore
}

func (m Match) String() string {
	return fmt.Sprintf("%s vs %s (%s, %s)", m.HomeTeam, m.AwayTeam, m.Date, m.Score)
}

// Gameweek is one round of fixtures. Number is a navigation index until the
// sequencer renumbers the season chronologically.
type Gameweek struct {
	Number  int     `json:"number"`
	Matches []Match `json:"matches"`
}

// EarliestDate returns the lexicographically smallest valid match date in
// the gameweek, or empty when no match carries one. ISO dates compare
// correctly as strings.
func (g Gameweek) EarliestDate() string {
	earliest := ""
	for _, m := range g.Matches {
		if !m.HasValidDate() {
			continue
		}
		if earliest == "" || m.Date < earliest {
			earliest = m.Date
		}
	}
	return earliest
}
