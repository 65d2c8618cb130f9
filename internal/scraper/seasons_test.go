package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/matchday/internal/common"
	"github.com/ternarybob/matchday/internal/models"
	"github.com/ternarybob/matchday/internal/storage"
)

func TestParseSeasonYear(t *testing.T) {
	tests := []struct {
		label string
		want  int
		ok    bool
	}{
		{"2022/2023", 2022, true},
		{"2023", 2023, true},
		{"Season 2019/2020", 2019, true},
		{"current", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseSeasonYear(tt.label)
		assert.Equal(t, tt.ok, ok, tt.label)
		assert.Equal(t, tt.want, got, tt.label)
	}
}

func TestFilterSeasonRefsInclusiveRange(t *testing.T) {
	options := []models.SeasonRef{
		{Season: "2024/2025", URL: "u1"},
		{Season: "2020/2021", URL: "u2"},
		{Season: "2018/2019", URL: "u3"},
		{Season: "2015/2016", URL: "u4"},
		{Season: "archive", URL: "u5"},
	}

	got := filterSeasonRefs(options, 2018, 2020)

	require.Len(t, got, 2)
	assert.Equal(t, "2020/2021", got[0].Season)
	assert.Equal(t, "2018/2019", got[1].Season)
}

// discoveryPageHTML doubles as the landing page and every season page: a
// season picker with two editions plus a standings table where nobody has
// played yet.
const discoveryPageHTML = `
<select class="season-picker">
  <option value="/football/england/premier-league-2022-2023/">2022/2023</option>
  <option value="/football/england/premier-league-2021-2022/">2021/2022</option>
</select>
<div class="standings">
  <div class="standings__row">
    <span class="standings__participant">Arsenal</span>
    <span class="standings__matches">0</span>
  </div>
  <div class="standings__row">
    <span class="standings__participant">Chelsea</span>
    <span class="standings__matches">0</span>
  </div>
</div>`

func newDiscoverySession() *fakeSession {
	return &fakeSession{
		existsFn: func(selector string) (bool, error) {
			return selector == selGameweekButtons, nil
		},
		countFn: func(selector string) (int, error) {
			return 2, nil
		},
		evaluateFn: func(expression string, out any) error {
			if played, ok := out.(*bool); ok {
				*played = true // page claims results; the table says otherwise
				return nil
			}
			return evalJSON(out, map[string]any{"count": 2, "allNamed": true})
		},
		htmlFn: func() string { return discoveryPageHTML },
	}
}

func TestDiscoverSeasonsExcludesSeasonsWithDegenerateStandings(t *testing.T) {
	session := newDiscoverySession()
	store, err := storage.NewStore(t.TempDir(), common.GetLogger())
	require.NoError(t, err)
	issues := NewIssueLog(store, "england/premier-league/scrape_issues.log", common.GetLogger())

	policy, _ := newTestPolicy(t)
	d := NewDiscovery(session, policy, common.ScrapeConfig{
		FromYear:   2000,
		ToYear:     2030,
		LeagueOnly: true,
	}, time.Second, common.GetLogger())

	accepted, err := d.DiscoverSeasons(context.Background(),
		"https://example.com/football/england/premier-league/",
		store, "england/premier-league", issues)

	require.NoError(t, err)
	// Both editions were visited and excluded: all-zero standings mean the
	// table is placeholder data.
	assert.Empty(t, accepted)
	require.Len(t, session.navigated, 3)
	assert.Equal(t, "https://example.com/football/england/premier-league-2022-2023/", session.navigated[1])
	assert.Equal(t, "https://example.com/football/england/premier-league-2021-2022/", session.navigated[2])

	// The accepted list is persisted even when empty, and the exclusions are
	// on the issue log.
	var refs []models.SeasonRef
	found, err := store.ReadJSON("england/premier-league/seasons_list.json", &refs)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, refs)
	assert.True(t, store.Exists("england/premier-league/scrape_issues.log"))
}

func TestDiscoverSeasonsSkipsTournamentWithoutGameweekNavigation(t *testing.T) {
	session := newDiscoverySession()
	session.existsFn = func(selector string) (bool, error) { return false, nil }

	store, err := storage.NewStore(t.TempDir(), common.GetLogger())
	require.NoError(t, err)
	issues := NewIssueLog(store, "scrape_issues.log", common.GetLogger())

	policy, _ := newTestPolicy(t)
	d := NewDiscovery(session, policy, common.ScrapeConfig{
		FromYear:   2000,
		ToYear:     2030,
		LeagueOnly: true,
	}, time.Second, common.GetLogger())

	_, err = d.DiscoverSeasons(context.Background(),
		"https://example.com/football/england/fa-cup/", store, "england/fa-cup", issues)

	assert.ErrorIs(t, err, ErrNotLeague)
}

func TestIsDegenerateStandings(t *testing.T) {
	// Placeholder tables where nobody has played are discarded so they do
	// not pollute the accepted season list.
	degenerate := []models.StandingRow{
		{Team: "A", MatchPlayed: 0},
		{Team: "B", MatchPlayed: 0},
	}
	assert.True(t, isDegenerateStandings(degenerate))

	played := []models.StandingRow{
		{Team: "A", MatchPlayed: 0},
		{Team: "B", MatchPlayed: 3},
	}
	assert.False(t, isDegenerateStandings(played))

	assert.False(t, isDegenerateStandings(nil))
}
