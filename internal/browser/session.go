// File: internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/muhilia/unity-backup/internal/config"
	"github.com/muhilia/unity-backup/internal/locate"
)

const (
	connectTimeout = 30 * time.Second
	textScanPoll   = 250 * time.Millisecond
)

// ErrNotConnected indicates an operation on a session before Connect.
var ErrNotConnected = errors.New("browser session not connected")

// Session owns one browser process and one tab for the duration of a run.
// It is the single shared mutable resource of the workflow and is never used
// concurrently.
type Session struct {
	cfg      config.BrowserConfig
	debugDir string
	logger   *zap.Logger

	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

// NewSession prepares a session; the browser process starts on Connect.
func NewSession(cfg config.BrowserConfig, debugDir string, logger *zap.Logger) *Session {
	return &Session{
		cfg:      cfg,
		debugDir: debugDir,
		logger:   logger.Named("browser"),
	}
}

// Connect launches the browser process, opens a tab, verifies it responds,
// and routes downloads into the configured download directory.
func (s *Session) Connect(ctx context.Context) error {
	opts, err := AllocatorOptions(s.cfg)
	if err != nil {
		return fmt.Errorf("preparing browser options: %w", err)
	}

	// The allocator is rooted in the background so browser lifetime is
	// governed by Close, not by the caller's operational deadline.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s.ctx = tabCtx
	s.tabCancel = tabCancel
	s.allocCancel = allocCancel

	combined, combinedCancel := CombineContext(tabCtx, ctx)
	defer combinedCancel()
	healthCtx, cancel := context.WithTimeout(combined, connectTimeout)
	defer cancel()

	if err := chromedp.Run(healthCtx, chromedp.Navigate("about:blank")); err != nil {
		s.teardown()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	downloadDir, err := filepath.Abs(s.cfg.DownloadDir)
	if err != nil {
		s.teardown()
		return fmt.Errorf("resolving download directory: %w", err)
	}
	err = chromedp.Run(healthCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(downloadDir),
	)
	if err != nil {
		s.teardown()
		return fmt.Errorf("configuring download directory: %w", err)
	}

	s.logger.Info("Browser session established.",
		zap.String("kind", s.cfg.Kind),
		zap.Bool("headless", s.cfg.Headless),
		zap.String("download_dir", downloadDir))
	return nil
}

// Close tears down the tab and the browser process. Safe to call multiple
// times and on a session that never connected.
func (s *Session) Close(ctx context.Context) error {
	if s.ctx == nil {
		return nil
	}
	s.logger.Debug("Closing browser session.")

	// Attempt a graceful browser shutdown before cutting the contexts.
	if err := chromedp.Cancel(s.ctx); err != nil && ctx.Err() == nil {
		s.logger.Debug("Graceful browser cancel failed.", zap.Error(err))
	}
	s.teardown()
	return nil
}

func (s *Session) teardown() {
	if s.tabCancel != nil {
		s.tabCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.ctx = nil
}

// run executes actions bound to both the session lifetime and the caller's
// deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.ctx == nil {
		return ErrNotConnected
	}
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL and waits for the document body to become ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// BodyText returns the full visible text of the page body.
func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page text: %w", err)
	}
	return text, nil
}

// Click scrolls the element into view and clicks it.
func (s *Session) Click(ctx context.Context, loc locate.Locator) error {
	sel, opt, err := s.materialize(ctx, loc)
	if err != nil {
		return err
	}
	err = s.run(ctx,
		chromedp.ScrollIntoView(sel, opt),
		chromedp.WaitVisible(sel, opt),
		chromedp.Click(sel, opt),
	)
	if err != nil {
		return fmt.Errorf("clicking %s: %w", loc, err)
	}
	return nil
}

// Fill clears the field and types the value into it.
func (s *Session) Fill(ctx context.Context, loc locate.Locator, value string) error {
	sel, opt, err := s.materialize(ctx, loc)
	if err != nil {
		return err
	}
	err = s.run(ctx,
		chromedp.ScrollIntoView(sel, opt),
		chromedp.WaitVisible(sel, opt),
		chromedp.Clear(sel, opt),
		chromedp.SendKeys(sel, value, opt),
	)
	if err != nil {
		return fmt.Errorf("filling %s: %w", loc, err)
	}
	return nil
}

// Present reports whether the element currently exists and has a visible box.
// It never blocks waiting for the element.
func (s *Session) Present(ctx context.Context, loc locate.Locator) (bool, error) {
	var script string
	switch loc.Strategy {
	case locate.ByCSS:
		script = fmt.Sprintf(jsPresentCSS, jsString(loc.Query))
	case locate.ByXPath:
		script = fmt.Sprintf(jsPresentXPath, jsString(loc.Query))
	case locate.ByText:
		script = fmt.Sprintf(jsFindByText, jsString(loc.Query), "false")
		var sel string
		if err := s.run(ctx, chromedp.Evaluate(script, &sel)); err != nil {
			return false, fmt.Errorf("probing %s: %w", loc, err)
		}
		return sel != "", nil
	default:
		return false, fmt.Errorf("unsupported locator strategy %s", loc.Strategy)
	}

	var present bool
	if err := s.run(ctx, chromedp.Evaluate(script, &present)); err != nil {
		return false, fmt.Errorf("probing %s: %w", loc, err)
	}
	return present, nil
}

// WaitInteractable blocks until the element is visible or ctx is done,
// satisfying locate.Prober.
func (s *Session) WaitInteractable(ctx context.Context, loc locate.Locator) error {
	switch loc.Strategy {
	case locate.ByCSS:
		return s.run(ctx, chromedp.WaitVisible(loc.Query, chromedp.ByQuery))
	case locate.ByXPath:
		return s.run(ctx, chromedp.WaitVisible(loc.Query, chromedp.BySearch))
	case locate.ByText:
		// No CDP wait primitive exists for text containment; poll the scan.
		for {
			present, err := s.Present(ctx, loc)
			if err != nil {
				return err
			}
			if present {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(textScanPoll):
			}
		}
	default:
		return fmt.Errorf("unsupported locator strategy %s", loc.Strategy)
	}
}

// ScanVisibleText finds the first displayed element whose visible text
// contains text, tags it with a transient attribute, and returns a CSS
// locator for the tag. Satisfies locate.Prober.
func (s *Session) ScanVisibleText(ctx context.Context, text string) (locate.Locator, error) {
	script := fmt.Sprintf(jsFindByText, jsString(text), "true")
	var sel string
	if err := s.run(ctx, chromedp.Evaluate(script, &sel)); err != nil {
		return locate.Locator{}, fmt.Errorf("scanning for text %q: %w", text, err)
	}
	if sel == "" {
		return locate.Locator{}, fmt.Errorf("no displayed element contains %q", text)
	}
	return locate.CSS(sel), nil
}

// materialize converts a locator into a selector chromedp can act on. Text
// locators are realized by tagging the matched element.
func (s *Session) materialize(ctx context.Context, loc locate.Locator) (string, chromedp.QueryOption, error) {
	switch loc.Strategy {
	case locate.ByCSS:
		return loc.Query, chromedp.ByQuery, nil
	case locate.ByXPath:
		return loc.Query, chromedp.BySearch, nil
	case locate.ByText:
		tagged, err := s.ScanVisibleText(ctx, loc.Query)
		if err != nil {
			return "", nil, err
		}
		return tagged.Query, chromedp.ByQuery, nil
	default:
		return "", nil, fmt.Errorf("unsupported locator strategy %s", loc.Strategy)
	}
}
