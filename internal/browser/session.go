package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/matchday/internal/common"
)

// Session drives a single headless Chrome instance for the life of a crawl.
// The pipeline uses one session serially; there is no pooling because crawls
// run one tournament at a time.
type Session struct {
	config common.BrowserConfig
	logger arbor.ILogger

	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc

	started bool
}

// NewSession creates a session from browser configuration. Start must be
// called before any page operation.
func NewSession(config common.BrowserConfig, logger arbor.ILogger) *Session {
	return &Session{
		config: config,
		logger: logger,
	}
}

// Start launches the browser, verifies it responds, and installs the spoofed
// request headers.
func (s *Session) Start(ctx context.Context) error {
	if s.started {
		return fmt.Errorf("browser session already started")
	}

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.config.Headless),
		chromedp.Flag("disable-gpu", s.config.DisableGPU),
		chromedp.Flag("no-sandbox", s.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(s.config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	// Startup test: a browser that cannot reach about:blank is unusable.
	startupCtx, cancel := context.WithTimeout(browserCtx, s.pageTimeout())
	defer cancel()

	if err := chromedp.Run(startupCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	if len(s.config.ExtraHeaders) > 0 {
		headers := network.Headers{}
		for k, v := range s.config.ExtraHeaders {
			headers[k] = v
		}
		if err := chromedp.Run(startupCtx, network.Enable(), network.SetExtraHTTPHeaders(headers)); err != nil {
			browserCancel()
			allocatorCancel()
			return fmt.Errorf("failed to install extra headers: %w", err)
		}
	}

	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.allocatorCancel = allocatorCancel
	s.started = true

	s.logger.Info().
		Bool("headless", s.config.Headless).
		Str("user_agent", s.config.UserAgent).
		Int("extra_headers", len(s.config.ExtraHeaders)).
		Msg("Browser session started")

	return nil
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() {
	if !s.started {
		return
	}
	s.browserCancel()
	s.allocatorCancel()
	s.started = false
	s.logger.Debug().Msg("Browser session closed")
}

// Navigate loads a URL and waits for the document body to be ready, bounded
// by the configured page timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	start := time.Now()
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	s.logger.Debug().
		Str("url", url).
		Dur("elapsed", time.Since(start)).
		Msg("Navigated")
	return nil
}

// WaitFor polls a predicate against the live page until it reports done or
// the timeout elapses. State needed across polls (previous row counts and
// the like) belongs in the predicate's closure, not in session state.
func (s *Session) WaitFor(ctx context.Context, name string, timeout time.Duration, pred func(ctx context.Context) (bool, error)) error {
	if timeout <= 0 {
		timeout = s.pageTimeout()
	}
	waitCtx, cancel := context.WithTimeout(s.browserContext(ctx), timeout)
	defer cancel()

	interval := s.config.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := pred(waitCtx)
		if err != nil {
			return fmt.Errorf("wait for %s: %w", name, err)
		}
		if done {
			return nil
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("wait for %s: %w", name, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

// Evaluate runs a JavaScript expression in the page and unmarshals the
// result into out. Pass nil to discard the result.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// Document snapshots the rendered DOM and returns it parsed. Extraction
// routines run against this snapshot rather than the live page, so a slow
// extractor cannot race page mutations.
func (s *Session) Document(ctx context.Context) (*goquery.Document, error) {
	html, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// Snapshot returns the page's current outer HTML, used for the document
// snapshot and for diagnostic captures on structural errors.
func (s *Session) Snapshot(ctx context.Context) (string, error) {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("snapshot page: %w", err)
	}
	return html, nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// SelectOption sets a <select> element's value and fires its change event,
// which is what dynamically rendered pages listen for.
func (s *Session) SelectOption(ctx context.Context, selector, value string) error {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.SetValue(selector, value, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(
			`document.querySelector(%q).dispatchEvent(new Event('change', {bubbles: true}))`, selector), nil),
	)
	if err != nil {
		return fmt.Errorf("select %s = %s: %w", selector, value, err)
	}
	return nil
}

// Text returns the trimmed text content of the first element matching the
// selector, or empty when absent.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var text string
	expr := fmt.Sprintf(`document.querySelector(%q)?.textContent?.trim() || ""`, selector)
	if err := s.Evaluate(ctx, expr, &text); err != nil {
		return "", err
	}
	return text, nil
}

// Exists reports whether any element matches the selector.
func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	expr := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	if err := s.Evaluate(ctx, expr, &found); err != nil {
		return false, err
	}
	return found, nil
}

// Count returns the number of elements matching the selector.
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	var count int
	expr := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
	if err := s.Evaluate(ctx, expr, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Session) pageTimeout() time.Duration {
	if s.config.PageTimeout > 0 {
		return s.config.PageTimeout
	}
	return 30 * time.Second
}

// browserContext returns the browser's own context, falling back to the
// caller's before Start. Caller cancellation takes effect between page
// operations, not inside one; each operation is bounded by the page timeout.
func (s *Session) browserContext(ctx context.Context) context.Context {
	if s.browserCtx == nil {
		return ctx
	}
	return s.browserCtx
}

func (s *Session) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.browserContext(ctx), s.pageTimeout())
}
