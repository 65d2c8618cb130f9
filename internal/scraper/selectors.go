package scraper

// CSS selectors for the source site. The pages are rendered client-side and
// restructured between competitions, so everything observable is gathered
// here rather than spread through the extractors.
const (
	// Season selector on a tournament landing page.
	selSeasonSelect = "select.season-picker"
	selSeasonOption = selSeasonSelect + " option"

	// Gameweek navigation affordances, in detection priority order.
	// selGameweekButtonFmt is the fmt pattern for one index button.
	selGameweekButtons   = "div.round-nav button[data-round]"
	selGameweekButtonFmt = `div.round-nav button[data-round="%d"]`
	selGameweekSelect    = "select.round-picker"
	selGameweekNext      = "div.round-header button.round-nav--next"
	selGameweekPrev      = "div.round-header button.round-nav--prev"
	selGameweekLabel     = "div.round-header .round-title"

	// Fixture list for the displayed gameweek. Date headings and match rows
	// are siblings inside the list container, in document order.
	selFixtureList = "div.fixtures"
	clsDateHeading = "fixtures__date"
	clsMatchRow    = "fixtures__match"
	selMatchRows   = "div.fixtures div.fixtures__match"
	selHomeTeam    = ".fixtures__participant--home"
	selAwayTeam    = ".fixtures__participant--away"
	selScoreHome   = ".fixtures__score--home"
	selScoreAway   = ".fixtures__score--away"
	selMatchTime   = ".fixtures__time"
	selStatsLink   = "a.fixtures__link"
	selAwardedFlag = ".fixtures__awarded"

	// League table on a season page.
	selStandingsRows  = "div.standings .standings__row"
	selStandingsTeam  = ".standings__participant"
	selScoreMarkers   = "div.fixtures .fixtures__score--home, div.standings .standings__score"
	selStandingsRank  = ".standings__rank"
	selStandingsMP    = ".standings__matches"
	selStandingsWon   = ".standings__wins"
	selStandingsDraw  = ".standings__draws"
	selStandingsLost  = ".standings__losses"
	selStandingsGoals = ".standings__goals"
	selStandingsGD    = ".standings__goal-diff"
	selStandingsPts   = ".standings__points"
)
