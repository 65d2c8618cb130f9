// Package scraper implements the season-and-gameweek crawl-and-reconcile
// pipeline: season discovery, gameweek navigation and extraction, anomaly
// verification, chronological resequencing and tournament composition.
package scraper

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/matchday/internal/models"
)

// PageSession is the automation capability the pipeline crawls through. The
// browser package provides the chromedp implementation; tests provide fakes.
// The pipeline never touches rendering or transport itself.
type PageSession interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, name string, timeout time.Duration, pred func(ctx context.Context) (bool, error)) error
	Document(ctx context.Context) (*goquery.Document, error)
	Snapshot(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, expression string, out any) error
	Click(ctx context.Context, selector string) error
	SelectOption(ctx context.Context, selector, value string) error
	Text(ctx context.Context, selector string) (string, error)
	Exists(ctx context.Context, selector string) (bool, error)
	Count(ctx context.Context, selector string) (int, error)
}

// Sentinel errors for the pipeline's failure taxonomy.
var (
	// ErrReconnectTimeout means connectivity did not come back within the
	// reconnection wait budget. This is the one condition allowed to abort
	// a season outright.
	ErrReconnectTimeout = errors.New("reconnection wait timed out")

	// ErrNotLeague signals that a tournament page has no gameweek
	// navigation and should be skipped entirely in league-only mode.
	ErrNotLeague = errors.New("tournament has no gameweek navigation")

	// ErrDuplicateMatches is the fatal data-integrity error raised when
	// duplicate match signatures survive to the verifier.
	ErrDuplicateMatches = errors.New("duplicate matches in verified season")

	// ErrNavigationFailed means a gameweek transition never converged on
	// its target index.
	ErrNavigationFailed = errors.New("gameweek navigation did not converge")

	// Anomalies that trigger the bounded gameweek retry.
	errDuplicateAnomaly = errors.New("duplicate match signature in gameweek")
	errSparsityAnomaly  = errors.New("gameweek match count below expected baseline")
)

// structuralError marks a page that rendered but did not contain what it
// claimed to; the snapshot is attached to the logged issue for diagnosis.
type structuralError struct {
	msg      string
	snapshot string
}

func (e *structuralError) Error() string {
	return e.msg
}

func newStructuralError(msg, snapshot string) *structuralError {
	return &structuralError{msg: msg, snapshot: snapshot}
}

// signatureSet is the running per-season match-signature set used for
// accept-time deduplication. Owned exclusively by the season crawl; a
// concurrent redesign needs one per worker.
type signatureSet map[string]struct{}

func newSignatureSet() signatureSet {
	return make(signatureSet)
}

func (s signatureSet) has(sig string) bool {
	_, ok := s[sig]
	return ok
}

func (s signatureSet) add(sig string) {
	s[sig] = struct{}{}
}

// acceptGameweek merges all of a gameweek's signatures into the set.
func (s signatureSet) acceptGameweek(gw models.Gameweek) {
	for _, m := range gw.Matches {
		s.add(m.Signature())
	}
}

// firstDuplicate returns the first match signature already present in the
// set, or empty when the gameweek is clean against the season so far.
func firstDuplicate(gw models.Gameweek, seen signatureSet) string {
	local := newSignatureSet()
	for _, m := range gw.Matches {
		sig := m.Signature()
		if seen.has(sig) || local.has(sig) {
			return sig
		}
		local.add(sig)
	}
	return ""
}

// gameweekKey is the whole-gameweek identity used by the sequencer: the
// sorted signature set. Two captures of the same round under different
// navigation indices produce the same key.
func gameweekKey(gw models.Gameweek) string {
	sigs := make([]string, 0, len(gw.Matches))
	for _, m := range gw.Matches {
		sigs = append(sigs, m.Signature())
	}
	sort.Strings(sigs)
	return strings.Join(sigs, "\n")
}
