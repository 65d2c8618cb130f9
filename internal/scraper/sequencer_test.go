package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/matchday/internal/models"
)

func mkMatch(home, away, date, score string) models.Match {
	return models.Match{
		Date:     date,
		Time:     "15:00",
		HomeTeam: home,
		AwayTeam: away,
		Score:    score,
		StatsURL: "https://example.com/match/" + home + "-" + away,
	}
}

func TestResequenceDropsEmptyAndReordersChronologically(t *testing.T) {
	matchA := mkMatch("Arsenal", "Chelsea", "2022-09-10", "2:0")
	matchB := mkMatch("Everton", "Fulham", "2022-08-01", "1:1")
	matchC := mkMatch("Leeds", "Brentford", "2022-07-25", "0:3")

	input := []models.Gameweek{
		{Number: 1, Matches: []models.Match{matchA}},
		{Number: 2, Matches: nil},
		{Number: 3, Matches: []models.Match{matchB, matchC}},
	}

	got := Resequence(input)

	require.Len(t, got, 2)
	// The empty gameweek is dropped; the remainder is ordered by earliest
	// match date and renumbered densely from 1.
	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, []models.Match{matchC, matchB}, got[0].Matches)
	assert.Equal(t, 2, got[1].Number)
	assert.Equal(t, []models.Match{matchA}, got[1].Matches)
}

func TestResequenceIsIdempotent(t *testing.T) {
	input := []models.Gameweek{
		{Number: 4, Matches: []models.Match{mkMatch("A", "B", "2022-10-01", "1:0"), mkMatch("C", "D", "2022-09-28", "2:2")}},
		{Number: 1, Matches: []models.Match{mkMatch("E", "F", "2022-08-13", "0:0")}},
	}

	once := Resequence(input)
	twice := Resequence(once)
	assert.Equal(t, once, twice)
}

func TestResequenceRemovesDuplicateGameweeks(t *testing.T) {
	m1 := mkMatch("A", "B", "2022-08-01", "1:0")
	m2 := mkMatch("C", "D", "2022-08-02", "0:2")

	input := []models.Gameweek{
		{Number: 1, Matches: []models.Match{m1, m2}},
		{Number: 2, Matches: []models.Match{mkMatch("E", "F", "2022-08-20", "3:3")}},
		// Same fixtures captured again under a different navigation index,
		// in a different row order.
		{Number: 7, Matches: []models.Match{m2, m1}},
	}

	got := Resequence(input)

	require.Len(t, got, 2)
	assert.Equal(t, []models.Match{m1, m2}, got[0].Matches)
	assert.Equal(t, "2022-08-20", got[1].EarliestDate())
}

func TestResequenceDropsGameweeksWithoutValidDates(t *testing.T) {
	input := []models.Gameweek{
		{Number: 1, Matches: []models.Match{mkMatch("A", "B", "", ":")}},
		{Number: 2, Matches: []models.Match{mkMatch("C", "D", "2022-08-01", "1:0")}},
	}

	got := Resequence(input)

	require.Len(t, got, 1)
	assert.Equal(t, "C", got[0].Matches[0].HomeTeam)
	assert.Equal(t, 1, got[0].Number)
}
