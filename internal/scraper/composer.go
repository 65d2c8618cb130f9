package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/matchday/internal/catalog"
	"github.com/ternarybob/matchday/internal/common"
	"github.com/ternarybob/matchday/internal/models"
	"github.com/ternarybob/matchday/internal/storage"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9-]+`)

// Composer drives one tournament end to end: discovery, per-season crawl,
// verification and resequencing, season-level rescrapes, and bucketing into
// composed/repaired/erroneous artifacts.
type Composer struct {
	session     PageSession
	store       *storage.Store
	meta        *storage.MetadataStore // optional
	retry       *RetryPolicy
	config      common.ScrapeConfig
	waitTimeout time.Duration
	logger      arbor.ILogger

	limiter *rate.Limiter // season pacing

	// Injection points for tests.
	discover func(ctx context.Context, landingURL, dir string, issues *IssueLog) ([]models.SeasonLink, error)
	crawl    func(ctx context.Context, link models.SeasonLink, issues *IssueLog) models.ScrapeOutcome
	sleep    func(time.Duration)
}

// NewComposer wires the composer against a live automation session.
func NewComposer(session PageSession, store *storage.Store, meta *storage.MetadataStore, retry *RetryPolicy, config common.ScrapeConfig, waitTimeout time.Duration, logger arbor.ILogger) *Composer {
	c := &Composer{
		session:     session,
		store:       store,
		meta:        meta,
		retry:       retry,
		config:      config,
		waitTimeout: waitTimeout,
		logger:      logger,
		sleep:       time.Sleep,
	}

	if config.SeasonDelay > 0 {
		c.limiter = rate.NewLimiter(rate.Every(config.SeasonDelay), 1)
	}

	discovery := NewDiscovery(session, retry, config, waitTimeout, logger)
	c.discover = func(ctx context.Context, landingURL, dir string, issues *IssueLog) ([]models.SeasonLink, error) {
		return discovery.DiscoverSeasons(ctx, landingURL, store, dir, issues)
	}
	c.crawl = c.crawlSeason
	return c
}

// ComposeTournament crawls every accepted season of one tournament and
// persists the three outcome buckets. Only genuinely empty discovery results
// and non-league skips return without artifacts.
func (c *Composer) ComposeTournament(ctx context.Context, country string, tournament catalog.Tournament) error {
	dir := path.Join(slugify(country), slugify(tournament.Name))
	if err := c.store.MkdirAll(dir); err != nil {
		return err
	}
	issues := NewIssueLog(c.store, path.Join(dir, "scrape_issues.log"), c.logger)

	seasons, err := c.discover(ctx, tournament.URL, dir, issues)
	if errors.Is(err, ErrNotLeague) {
		c.logger.Info().Str("tournament", tournament.Name).Msg("Skipped: not a league")
		return nil
	}
	if err != nil {
		return fmt.Errorf("discover seasons for %s: %w", tournament.Name, err)
	}
	if len(seasons) == 0 {
		c.logger.Info().Str("tournament", tournament.Name).Msg("No seasons to scrape")
		return nil
	}

	var composed, repaired, erroneous []models.SeasonResult
	for i, season := range seasons {
		if c.config.SkipCompleted && c.meta != nil {
			done, err := c.meta.IsSeasonComplete(tournament.Name, season.Season)
			if err != nil {
				c.logger.Warn().Err(err).Msg("Metadata lookup failed, crawling anyway")
			} else if done {
				c.logger.Info().
					Str("tournament", tournament.Name).
					Str("season", season.Season).
					Msg("Season already composed in a previous run, skipping")
				continue
			}
		}

		if i > 0 {
			c.politenessWait(ctx)
		}

		result, bucket := c.composeSeason(ctx, dir, season, issues)
		switch bucket {
		case bucketComposed:
			composed = append(composed, result)
			c.markComplete(tournament.Name, season.Season, bucketComposed)
		case bucketRepaired:
			repaired = append(repaired, result)
			c.markComplete(tournament.Name, season.Season, bucketRepaired)
		default:
			erroneous = append(erroneous, result)
		}
	}

	c.writeBucket(dir, bucketComposed, tournament.Name, composed)
	c.writeBucket(dir, bucketRepaired, tournament.Name, repaired)
	c.writeBucket(dir, bucketErroneous, tournament.Name, erroneous)

	c.logger.Info().
		Str("tournament", tournament.Name).
		Int("composed", len(composed)).
		Int("repaired", len(repaired)).
		Int("erroneous", len(erroneous)).
		Msg("Tournament composed")
	return nil
}

const (
	bucketComposed  = "composed"
	bucketRepaired  = "repaired"
	bucketErroneous = "erroneous"
)

// composeSeason crawls one season, applying the rescrape policy when the
// first attempt errors, and reports which bucket the outcome belongs in.
func (c *Composer) composeSeason(ctx context.Context, dir string, season models.SeasonLink, issues *IssueLog) (models.SeasonResult, string) {
	seasonID := slugify(season.Season)
	outcome := c.crawl(ctx, season, issues)

	if err := c.store.WriteJSON(path.Join(dir, "matches_"+seasonID+".json"), outcome.Result); err != nil {
		c.logger.Error().Err(err).Str("season", season.Season).Msg("Failed to persist season matches")
	}

	result := models.SeasonResult{
		Season:         season.Season,
		Gameweeks:      outcome.Result,
		LeagueStanding: season.LeagueStanding,
	}
	if !outcome.HasErrorOccurred {
		return result, bucketComposed
	}

	// Rescrape into isolated locations so a partial retry never pollutes
	// the original attempt's artifacts.
	for attempt := 1; attempt <= c.config.MaxRescrapeCount; attempt++ {
		rescrapeDir := path.Join(dir, common.NewRescrapeID(attempt))
		rescrapeIssues := NewIssueLog(c.store, path.Join(rescrapeDir, "scrape_issues.log"), c.logger)

		c.logger.Warn().
			Str("season", season.Season).
			Int("attempt", attempt).
			Int("max", c.config.MaxRescrapeCount).
			Msg("Season crawl errored, rescraping")

		outcome = c.crawl(ctx, season, rescrapeIssues)
		if err := c.store.WriteJSON(path.Join(rescrapeDir, "matches_"+seasonID+".json"), outcome.Result); err != nil {
			c.logger.Error().Err(err).Str("season", season.Season).Msg("Failed to persist rescrape matches")
		}

		if !outcome.HasErrorOccurred {
			result.Gameweeks = outcome.Result
			return result, bucketRepaired
		}
	}

	result.Gameweeks = outcome.Result
	return result, bucketErroneous
}

// crawlSeason is the live per-season pipeline: navigate, bind a gameweek
// strategy, extract every gameweek with anomaly retries, verify, resequence.
func (c *Composer) crawlSeason(ctx context.Context, link models.SeasonLink, issues *IssueLog) models.ScrapeOutcome {
	var outcome models.ScrapeOutcome

	if err := c.retry.Do(ctx, "navigate season", func() error {
		return c.session.Navigate(ctx, link.URL)
	}); err != nil {
		issues.Error(link.URL, "season navigation failed", err.Error())
		outcome.HasErrorOccurred = true
		return outcome
	}

	nav, err := DetectNavigator(ctx, c.session, c.retry, c.waitTimeout, c.logger)
	if err != nil {
		issues.Error(link.URL, "gameweek navigation detection failed", err.Error())
		outcome.HasErrorOccurred = true
		return outcome
	}

	total := nav.TotalGameweeks()
	expected := expectedMatchesPerGameweek(total, c.config.ExpectedMatchesPerGameweek)

	// Stepper-only pages may not expose a total; walk forward until
	// navigation stops converging, bounded in case the label is broken.
	lastIndex := total
	if lastIndex == 0 {
		lastIndex = maxGameweeksWithoutTotal
	}

	// Accept-time signature set: owned by this crawl attempt only.
	seen := newSignatureSet()
	for index := 1; index <= lastIndex; index++ {
		if index > 1 {
			c.pause(c.config.GameweekDelay)
		}

		gw, err := c.scrapeGameweek(ctx, nav, link, index, seen, expected, issues)
		if err != nil {
			if errors.Is(err, ErrReconnectTimeout) {
				// Connectivity is gone past the wait budget; abandon the
				// season rather than burn through the remaining gameweeks.
				outcome.HasErrorOccurred = true
				issues.Error(link.URL, "season aborted: reconnection wait exhausted", err.Error())
				return outcome
			}
			if total == 0 && index > 1 && errors.Is(err, ErrNavigationFailed) {
				// With no known total, a gameweek the page refuses to reach
				// is the end of the season, not a failure.
				break
			}
			outcome.HasErrorOccurred = true
			issues.Error(link.URL, fmt.Sprintf("gameweek %d skipped after retries", index), err.Error())
			continue
		}

		seen.acceptGameweek(gw)
		outcome.Result = append(outcome.Result, gw)
	}

	verifierIssues, err := VerifySeason(link.URL, outcome.Result, expected)
	for _, issue := range verifierIssues {
		issues.Record(issue)
	}
	if err != nil {
		outcome.HasErrorOccurred = true
		return outcome
	}

	outcome.Result = Resequence(outcome.Result)
	return outcome
}

// scrapeGameweek navigates to and extracts one gameweek, retrying the whole
// navigation+extraction on structural errors and on duplicate or sparsity
// anomalies, up to the configured bound.
func (c *Composer) scrapeGameweek(ctx context.Context, nav *Navigator, link models.SeasonLink, index int, seen signatureSet, expected int, issues *IssueLog) (models.Gameweek, error) {
	attempts := c.config.GameweekRetries
	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := nav.GoTo(ctx, index); err != nil {
			if errors.Is(err, ErrReconnectTimeout) {
				return models.Gameweek{}, err
			}
			lastErr = err
			continue
		}

		gw, err := ExtractGameweek(ctx, c.session, index, c.waitTimeout, c.logger)
		if err != nil {
			lastErr = err
			continue
		}
		absolutizeMatchURLs(gw.Matches, link.URL)

		// A signature already accepted earlier in the season marks this
		// capture as suspect. A legitimately replayed fixture with the same
		// date and score would be indistinguishable from the artifact; the
		// warning below is the trace of that ambiguity.
		if sig := firstDuplicate(gw, seen); sig != "" {
			lastErr = fmt.Errorf("%w: %s", errDuplicateAnomaly, sig)
			issues.Warn(link.URL, fmt.Sprintf("gameweek %d duplicate anomaly (attempt %d)", index, attempt), sig)
			continue
		}

		if expected > 0 && float64(len(gw.Matches)) < float64(expected)*0.5 {
			lastErr = fmt.Errorf("%w: got %d, expected around %d", errSparsityAnomaly, len(gw.Matches), expected)
			issues.Warn(link.URL, fmt.Sprintf("gameweek %d sparsity anomaly (attempt %d)", index, attempt), lastErr.Error())
			continue
		}

		return gw, nil
	}

	return models.Gameweek{}, lastErr
}

// politenessWait paces season starts through the rate limiter plus jitter.
func (c *Composer) politenessWait(ctx context.Context) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
	}
	c.pause(0)
}

// pause sleeps for the fixed delay plus random jitter.
func (c *Composer) pause(fixed time.Duration) {
	total := fixed
	if c.config.RandomDelay > 0 {
		total += time.Duration(rand.Int63n(int64(c.config.RandomDelay)))
	}
	if total > 0 {
		c.sleep(total)
	}
}

func (c *Composer) markComplete(tournament, season, bucket string) {
	if c.meta == nil {
		return
	}
	if err := c.meta.MarkSeasonComplete(tournament, season, bucket); err != nil {
		c.logger.Warn().Err(err).Str("season", season).Msg("Failed to record season completion")
	}
}

// writeBucket persists one outcome bucket, skipping empty ones so no
// artifact exists for a bucket with nothing in it.
func (c *Composer) writeBucket(dir, bucket, tournament string, data []models.SeasonResult) {
	if len(data) == 0 {
		return
	}
	artifact := models.TournamentResult{Tournament: tournament, Data: data}
	if err := c.store.WriteJSON(path.Join(dir, bucket+".json"), artifact); err != nil {
		c.logger.Error().Err(err).Str("bucket", bucket).Msg("Failed to persist outcome bucket")
	}
}

// slugify renders a human label as a filesystem-safe directory name.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("/", "-", " ", "-", "_", "-").Replace(s)
	s = slugStrip.ReplaceAllString(s, "")
	s = strings.Trim(s, "-")
	if s == "" {
		return "unnamed"
	}
	return s
}
