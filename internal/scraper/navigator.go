package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
)

// NavState tracks the navigator's position in its state machine.
type NavState int

const (
	NavUnknown NavState = iota
	NavNavigating
	NavConfirmed
	NavFailed
)

// strategyKind identifies which page affordance the navigator is bound to.
type strategyKind int

const (
	strategyNone strategyKind = iota
	strategyIndexButtons
	strategyDropdown
	strategyStepper
)

func (k strategyKind) String() string {
	switch k {
	case strategyIndexButtons:
		return "index-buttons"
	case strategyDropdown:
		return "dropdown"
	case strategyStepper:
		return "stepper"
	default:
		return "none"
	}
}

var roundLabelPattern = regexp.MustCompile(`(\d+)(?:\s*/\s*(\d+))?`)

// maxGameweeksWithoutTotal bounds walks over stepper-only pages whose round
// label carries no total. No league season comes close to this.
const maxGameweeksWithoutTotal = 120

// Navigator reaches arbitrary gameweek indices on a season page. The page's
// navigation affordance is detected once per season and the bound strategy
// is reused for every gameweek.
type Navigator struct {
	session     PageSession
	retry       *RetryPolicy
	strategy    strategyKind
	state       NavState
	current     int // last confirmed index, 0 when unknown
	total       int // total gameweeks, 0 when the page does not expose it
	waitTimeout time.Duration
	logger      arbor.ILogger
}

// hasGameweekNavigation reports whether the page exposes any of the three
// gameweek affordances. Used by discovery's league-only check.
func hasGameweekNavigation(ctx context.Context, session PageSession) (bool, error) {
	for _, sel := range []string{selGameweekButtons, selGameweekSelect, selGameweekNext} {
		found, err := session.Exists(ctx, sel)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// pickStrategy chooses the navigation strategy by affordance priority:
// discrete index controls, then the dropdown, then sequential stepping.
func pickStrategy(hasButtons, hasDropdown, hasStepper bool) (strategyKind, error) {
	switch {
	case hasButtons:
		return strategyIndexButtons, nil
	case hasDropdown:
		return strategyDropdown, nil
	case hasStepper:
		return strategyStepper, nil
	default:
		return strategyNone, ErrNotLeague
	}
}

// DetectNavigator probes the season page's affordances and binds a strategy.
// The initial state is Unknown; callers always navigate to gameweek 1 first.
func DetectNavigator(ctx context.Context, session PageSession, retry *RetryPolicy, waitTimeout time.Duration, logger arbor.ILogger) (*Navigator, error) {
	hasButtons, err := session.Exists(ctx, selGameweekButtons)
	if err != nil {
		return nil, err
	}
	hasDropdown, err := session.Exists(ctx, selGameweekSelect)
	if err != nil {
		return nil, err
	}
	hasStepper, err := session.Exists(ctx, selGameweekNext)
	if err != nil {
		return nil, err
	}

	strategy, err := pickStrategy(hasButtons, hasDropdown, hasStepper)
	if err != nil {
		return nil, err
	}

	nav := &Navigator{
		session:     session,
		retry:       retry,
		strategy:    strategy,
		state:       NavUnknown,
		waitTimeout: waitTimeout,
		logger:      logger,
	}

	if err := nav.detectTotal(ctx); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("strategy", strategy.String()).
		Int("total_gameweeks", nav.total).
		Msg("Gameweek navigation detected")
	return nav, nil
}

// TotalGameweeks returns the number of gameweeks the page exposes, or 0 when
// only sequential stepping is available and the label carries no total.
func (n *Navigator) TotalGameweeks() int {
	return n.total
}

// State returns the navigator's current state.
func (n *Navigator) State() NavState {
	return n.state
}

// GoTo drives the page to the given gameweek index and confirms the
// displayed label reflects it. Transitions route through the retry policy so
// transient connectivity loss does not fail the gameweek.
func (n *Navigator) GoTo(ctx context.Context, target int) error {
	if target < 1 {
		return fmt.Errorf("gameweek index must be positive, got %d", target)
	}

	n.state = NavNavigating
	err := n.retry.Do(ctx, fmt.Sprintf("goto gameweek %d", target), func() error {
		if err := n.transition(ctx, target); err != nil {
			return err
		}
		return n.confirm(ctx, target)
	})
	if err != nil {
		n.state = NavFailed
		// Both sentinels must stay visible to errors.Is: the composer treats
		// a reconnect timeout underneath a failed navigation as fatal for the
		// whole season.
		return fmt.Errorf("%w: gameweek %d: %w", ErrNavigationFailed, target, err)
	}

	n.state = NavConfirmed
	n.current = target
	return nil
}

// transition performs one strategy-specific move toward the target.
func (n *Navigator) transition(ctx context.Context, target int) error {
	switch n.strategy {
	case strategyIndexButtons:
		return n.session.Click(ctx, fmt.Sprintf(selGameweekButtonFmt, target))

	case strategyDropdown:
		return n.session.SelectOption(ctx, selGameweekSelect, strconv.Itoa(target))

	case strategyStepper:
		return n.step(ctx, target)

	default:
		return ErrNotLeague
	}
}

// step walks the next/previous controls one click at a time until the
// displayed index reaches the target.
func (n *Navigator) step(ctx context.Context, target int) error {
	// Bound the walk: a season page never needs more steps than twice its
	// gameweek count plus slack, and stepper pages may not expose a total.
	maxSteps := 2*n.total + 10
	if n.total == 0 {
		maxSteps = maxGameweeksWithoutTotal
	}

	for i := 0; i < maxSteps; i++ {
		current, _, err := n.displayedIndex(ctx)
		if err != nil {
			return err
		}
		if current == target {
			return nil
		}

		control := selGameweekNext
		if current > target {
			control = selGameweekPrev
		}
		if err := n.session.Click(ctx, control); err != nil {
			return err
		}

		// Each click must register before the next; wait for the label to
		// move off the index we just left.
		before := current
		err = n.session.WaitFor(ctx, "gameweek step", n.waitTimeout, func(ctx context.Context) (bool, error) {
			idx, _, err := n.displayedIndex(ctx)
			if err != nil {
				return false, err
			}
			return idx != before, nil
		})
		if err != nil {
			return err
		}
	}

	return fmt.Errorf("stepper did not reach gameweek %d in %d steps", target, maxSteps)
}

// confirm waits until the displayed gameweek label reflects the target.
func (n *Navigator) confirm(ctx context.Context, target int) error {
	return n.session.WaitFor(ctx, fmt.Sprintf("gameweek %d label", target), n.waitTimeout, func(ctx context.Context) (bool, error) {
		idx, _, err := n.displayedIndex(ctx)
		if err != nil {
			return false, err
		}
		return idx == target, nil
	})
}

// displayedIndex reads the current gameweek (and total, when the label
// carries one) from the round header, e.g. "Round 7" or "Matchday 7/38".
func (n *Navigator) displayedIndex(ctx context.Context) (int, int, error) {
	text, err := n.session.Text(ctx, selGameweekLabel)
	if err != nil {
		return 0, 0, err
	}
	return parseRoundLabel(text)
}

// detectTotal derives the gameweek count from the richest available source:
// index button count, dropdown option count, or the round label's "/total".
func (n *Navigator) detectTotal(ctx context.Context) error {
	switch n.strategy {
	case strategyIndexButtons:
		count, err := n.session.Count(ctx, selGameweekButtons)
		if err != nil {
			return err
		}
		n.total = count

	case strategyDropdown:
		count, err := n.session.Count(ctx, selGameweekSelect+" option")
		if err != nil {
			return err
		}
		n.total = count

	case strategyStepper:
		_, total, err := n.displayedIndex(ctx)
		if err != nil {
			// The label may not have rendered yet; an unknown total only
			// weakens the sparsity baseline, it does not block navigation.
			n.total = 0
			return nil
		}
		n.total = total
	}
	return nil
}

// parseRoundLabel extracts the index (and optional total) from a gameweek
// label such as "Round 7", "Matchday 7/38" or "7 / 38".
func parseRoundLabel(text string) (int, int, error) {
	match := roundLabelPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, 0, fmt.Errorf("no gameweek index in label %q", text)
	}

	index, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad gameweek index in label %q", text)
	}

	total := 0
	if match[2] != "" {
		total, _ = strconv.Atoi(match[2])
	}
	return index, total, nil
}
