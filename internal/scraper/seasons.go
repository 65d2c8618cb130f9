package scraper

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/matchday/internal/common"
	"github.com/ternarybob/matchday/internal/models"
	"github.com/ternarybob/matchday/internal/storage"
)

var seasonYearPattern = regexp.MustCompile(`(\d{4})(?:/(\d{4}))?`)

// Discovery enumerates a tournament's seasons, validates each one has real
// results, and records the accepted list.
type Discovery struct {
	session     PageSession
	retry       *RetryPolicy
	config      common.ScrapeConfig
	waitTimeout time.Duration
	logger      arbor.ILogger
}

// NewDiscovery builds a season discovery bound to one automation session.
func NewDiscovery(session PageSession, retry *RetryPolicy, config common.ScrapeConfig, waitTimeout time.Duration, logger arbor.ILogger) *Discovery {
	return &Discovery{
		session:     session,
		retry:       retry,
		config:      config,
		waitTimeout: waitTimeout,
		logger:      logger,
	}
}

// DiscoverSeasons navigates the tournament landing page and returns the
// accepted seasons, newest first as the source lists them. Failures yield an
// empty list (logged), never a fatal error — except ErrNotLeague, which
// tells the composer to skip the tournament entirely in league-only mode.
func (d *Discovery) DiscoverSeasons(ctx context.Context, landingURL string, store *storage.Store, dir string, issues *IssueLog) ([]models.SeasonLink, error) {
	if err := d.retry.Do(ctx, "navigate tournament", func() error {
		return d.session.Navigate(ctx, landingURL)
	}); err != nil {
		issues.Error(landingURL, "failed to load tournament landing page", err.Error())
		return nil, nil
	}

	// The option list fills in as the page renders; require the count to
	// hold steady across consecutive polls before reading it.
	prevCount := -1
	stablePolls := 0
	err := d.session.WaitFor(ctx, "season selector", d.waitTimeout, func(ctx context.Context) (bool, error) {
		count, err := d.session.Count(ctx, selSeasonOption)
		if err != nil {
			return false, err
		}
		if count > 0 && count == prevCount {
			stablePolls++
		} else {
			stablePolls = 0
		}
		prevCount = count
		return stablePolls >= 1, nil
	})
	if err != nil {
		issues.Error(landingURL, "no season selector found", err.Error())
		return nil, nil
	}

	if d.config.LeagueOnly {
		isLeague, err := hasGameweekNavigation(ctx, d.session)
		if err != nil {
			issues.Error(landingURL, "failed to probe gameweek navigation", err.Error())
			return nil, nil
		}
		if !isLeague {
			d.logger.Info().Str("tournament", landingURL).Msg("No gameweek navigation, skipping non-league tournament")
			return nil, ErrNotLeague
		}
	}

	options, err := DoWithResult(ctx, d.retry, "read season options", func() ([]models.SeasonRef, error) {
		return d.readSeasonOptions(ctx, landingURL)
	})
	if err != nil {
		issues.Error(landingURL, "failed to read season options", err.Error())
		return nil, nil
	}
	if len(options) == 0 {
		issues.Error(landingURL, "season selector contained no options", "")
		return nil, nil
	}

	candidates := filterSeasonRefs(options, d.config.FromYear, d.config.ToYear)
	d.logger.Info().
		Str("tournament", landingURL).
		Int("options", len(options)).
		Int("in_range", len(candidates)).
		Msg("Season options discovered")

	var accepted []models.SeasonLink
	for _, candidate := range candidates {
		if err := d.retry.Do(ctx, "navigate season", func() error {
			return d.session.Navigate(ctx, candidate.URL)
		}); err != nil {
			issues.Warn(candidate.URL, "season excluded: navigation failed", err.Error())
			continue
		}

		standing, err := ExtractStandings(ctx, d.session, issues, candidate.URL, d.waitTimeout, d.logger)
		if err != nil {
			issues.Warn(candidate.URL, "season excluded: standings extraction failed", err.Error())
			continue
		}
		if len(standing) == 0 {
			issues.Warn(candidate.URL, "season excluded: no valid standing rows", "")
			continue
		}

		accepted = append(accepted, models.SeasonLink{
			Season:         candidate.Season,
			URL:            candidate.URL,
			LeagueStanding: standing,
		})
	}

	// Persist label+URL pairs for auditability; standings stay out of this
	// artifact deliberately.
	refs := make([]models.SeasonRef, 0, len(accepted))
	for _, link := range accepted {
		refs = append(refs, link.Ref())
	}
	if err := store.WriteJSON(path.Join(dir, "seasons_list.json"), refs); err != nil {
		d.logger.Error().Err(err).Msg("Failed to persist season list")
	}

	return accepted, nil
}

// readSeasonOptions reads the season selector's options from the rendered
// page, resolving relative URLs against the landing page.
func (d *Discovery) readSeasonOptions(ctx context.Context, landingURL string) ([]models.SeasonRef, error) {
	doc, err := d.session.Document(ctx)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(landingURL)
	if err != nil {
		return nil, fmt.Errorf("parse landing url: %w", err)
	}

	var options []models.SeasonRef
	doc.Find(selSeasonOption).Each(func(_ int, sel *goquery.Selection) {
		label := strings.TrimSpace(sel.Text())
		href, _ := sel.Attr("value")
		if label == "" || href == "" {
			return
		}
		options = append(options, models.SeasonRef{
			Season: label,
			URL:    resolveURL(base, href),
		})
	})
	return options, nil
}

// filterSeasonRefs keeps seasons whose first 4-digit year falls inside the
// inclusive [from, to] range. Labels without a year are excluded.
func filterSeasonRefs(options []models.SeasonRef, from, to int) []models.SeasonRef {
	var filtered []models.SeasonRef
	for _, opt := range options {
		year, ok := parseSeasonYear(opt.Season)
		if !ok {
			continue
		}
		if year >= from && year <= to {
			filtered = append(filtered, opt)
		}
	}
	return filtered
}

// parseSeasonYear extracts the starting year from a season label such as
// "2022/2023" or "2023".
func parseSeasonYear(label string) (int, bool) {
	match := seasonYearPattern.FindStringSubmatch(label)
	if match == nil {
		return 0, false
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
