package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/matchday/internal/models"
)

const testSeasonURL = "https://example.com/football/england/premier-league-2022-2023/"

func TestVerifySeasonCleanData(t *testing.T) {
	gameweeks := []models.Gameweek{
		{Number: 1, Matches: []models.Match{mkMatch("A", "B", "2022-08-01", "1:0"), mkMatch("C", "D", "2022-08-02", "2:2")}},
		{Number: 2, Matches: []models.Match{mkMatch("B", "A", "2022-08-08", "0:0"), mkMatch("D", "C", "2022-08-09", "1:3")}},
	}

	issues, err := VerifySeason(testSeasonURL, gameweeks, 2)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestVerifySeasonDuplicateIsFatal(t *testing.T) {
	shared := mkMatch("A", "B", "2022-08-01", "1:0")
	gameweeks := []models.Gameweek{
		{Number: 1, Matches: []models.Match{shared}},
		{Number: 5, Matches: []models.Match{shared}},
	}

	issues, err := VerifySeason(testSeasonURL, gameweeks, 0)
	assert.ErrorIs(t, err, ErrDuplicateMatches)
	require.NotEmpty(t, issues)
	assert.Equal(t, models.IssueError, issues[len(issues)-1].Type)
}

func TestVerifySeasonWarnsOnSparseAndEmptyGameweeks(t *testing.T) {
	gameweeks := []models.Gameweek{
		{Number: 1, Matches: []models.Match{mkMatch("A", "B", "2022-08-01", "1:0")}}, // sparse vs expected 10
		{Number: 2, Matches: nil}, // empty
	}

	issues, err := VerifySeason(testSeasonURL, gameweeks, 10)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	for _, issue := range issues {
		assert.Equal(t, models.IssueWarning, issue.Type)
	}
}

func TestVerifySeasonWarnsOnMalformedDates(t *testing.T) {
	gameweeks := []models.Gameweek{
		{Number: 1, Matches: []models.Match{
			mkMatch("A", "B", "2022-08-01", "1:0"),
			mkMatch("C", "D", "01.08.2022", "2:1"), // not ISO
			mkMatch("E", "F", "", ":"),             // missing
		}},
	}

	issues, err := VerifySeason(testSeasonURL, gameweeks, 0)
	require.NoError(t, err)
	assert.Len(t, issues, 2)
}
