package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// fakeSession is a scripted PageSession. Behavior comes from the function
// fields; nil fields fall back to benign defaults. WaitFor polls without
// sleeping and gives up after a fixed number of rounds, so stabilization
// waits converge (or fail) instantly in tests.
type fakeSession struct {
	navigated []string

	navigateFn func(url string) error
	evaluateFn func(expression string, out any) error
	clickFn    func(selector string) error
	selectFn   func(selector, value string) error
	textFn     func(selector string) (string, error)
	existsFn   func(selector string) (bool, error)
	countFn    func(selector string) (int, error)
	htmlFn     func() string
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	if f.navigateFn != nil {
		return f.navigateFn(url)
	}
	return nil
}

func (f *fakeSession) WaitFor(ctx context.Context, name string, _ time.Duration, pred func(ctx context.Context) (bool, error)) error {
	for i := 0; i < 25; i++ {
		done, err := pred(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return errors.New("wait for " + name + ": condition never satisfied")
}

func (f *fakeSession) Document(_ context.Context) (*goquery.Document, error) {
	html := ""
	if f.htmlFn != nil {
		html = f.htmlFn()
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakeSession) Snapshot(_ context.Context) (string, error) {
	if f.htmlFn != nil {
		return f.htmlFn(), nil
	}
	return "", nil
}

func (f *fakeSession) Evaluate(_ context.Context, expression string, out any) error {
	if f.evaluateFn != nil {
		return f.evaluateFn(expression, out)
	}
	return nil
}

func (f *fakeSession) Click(_ context.Context, selector string) error {
	if f.clickFn != nil {
		return f.clickFn(selector)
	}
	return nil
}

func (f *fakeSession) SelectOption(_ context.Context, selector, value string) error {
	if f.selectFn != nil {
		return f.selectFn(selector, value)
	}
	return nil
}

func (f *fakeSession) Text(_ context.Context, selector string) (string, error) {
	if f.textFn != nil {
		return f.textFn(selector)
	}
	return "", nil
}

func (f *fakeSession) Exists(_ context.Context, selector string) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(selector)
	}
	return false, nil
}

func (f *fakeSession) Count(_ context.Context, selector string) (int, error) {
	if f.countFn != nil {
		return f.countFn(selector)
	}
	return 0, nil
}

// evalJSON marshals value into an Evaluate out parameter the way chromedp
// would, so fakes can fill anonymous result structs.
func evalJSON(out, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
