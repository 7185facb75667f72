// File: internal/workflow/controller.go
package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muhilia/unity-backup/internal/archive"
	"github.com/muhilia/unity-backup/internal/config"
	"github.com/muhilia/unity-backup/internal/download"
	"github.com/muhilia/unity-backup/internal/locate"
)

// Controller drives a full backup run: connect, authenticate, execute each
// action, archive each artifact, and tear the browser down no matter how the
// run ends.
type Controller struct {
	driver    Driver
	resolver  Resolver
	capturer  Capturer
	watcher   *download.Watcher
	archiver  *archive.Archiver
	cfg       config.WorkflowConfig
	hostToken string
	logger    *zap.Logger

	state State
}

// NewController wires the run dependencies. capturer may be nil when
// diagnostics are disabled.
func NewController(driver Driver, resolver Resolver, capturer Capturer, watcher *download.Watcher, archiver *archive.Archiver, cfg config.WorkflowConfig, hostToken string, logger *zap.Logger) *Controller {
	return &Controller{
		driver:    driver,
		resolver:  resolver,
		capturer:  capturer,
		watcher:   watcher,
		archiver:  archiver,
		cfg:       cfg,
		hostToken: hostToken,
		logger:    logger.Named("workflow"),
		state:     Disconnected,
	}
}

// State returns the controller's current state.
func (c *Controller) State() State { return c.state }

func (c *Controller) transition(next State) {
	c.logger.Debug("State transition.",
		zap.Stringer("from", c.state), zap.Stringer("to", next))
	c.state = next
}

// Run executes the whole workflow and always returns a report. The browser
// is closed before Run returns, including on panic, and the report's exit
// code reflects whatever was salvaged.
func (c *Controller) Run(ctx context.Context, login LoginSpec, creds Credentials, actions []Action) (report *Report) {
	report = newReport()
	log := c.logger.With(zap.String("run_id", report.RunID))
	log.Info("Backup run starting.", zap.Int("actions", len(actions)))

	defer func() {
		if r := recover(); r != nil {
			report.FatalErr = fmt.Errorf("workflow panicked: %v", r)
			c.transition(Failed)
			log.Error("Run panicked.", zap.Any("panic", r))
		}
		// Teardown runs on its own deadline so a canceled run context
		// cannot leave a browser process behind.
		closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := c.driver.Close(closeCtx); err != nil {
			log.Warn("Browser teardown reported an error.", zap.Error(err))
		}
		if c.state != Failed {
			c.transition(Done)
		}
		log.Info("Backup run finished.",
			zap.Stringer("state", c.state), zap.Int("exit_code", report.ExitCode()))
	}()

	if err := c.driver.Connect(ctx); err != nil {
		report.FatalErr = fmt.Errorf("connecting browser: %w", err)
		c.transition(Failed)
		return report
	}
	c.transition(Connected)

	if err := c.login(ctx, login, creds, log); err != nil {
		report.FatalErr = fmt.Errorf("logging in to %s: %w", login.URL, err)
		c.transition(Failed)
		c.capture(ctx, "login_failed")
		return report
	}
	c.transition(Authenticated)

	for _, action := range actions {
		c.transition(ActionInProgress)
		archived, err := c.runAction(ctx, action, log)
		report.record(action.Name, archived, err)
		if err != nil {
			log.Error("Action failed.", zap.String("action", action.Name), zap.Error(err))
			c.capture(ctx, "action_failed_"+action.Name)
			if ctx.Err() != nil {
				report.FatalErr = ctx.Err()
				c.transition(Failed)
				return report
			}
			continue
		}
		log.Info("Action completed.",
			zap.String("action", action.Name), zap.String("archived", archived))
	}
	c.transition(Authenticated)
	return report
}

// login navigates to the console, clears the acceptance interstitial when it
// is shown, submits the credentials, and waits for the login form to leave
// the page.
func (c *Controller) login(ctx context.Context, login LoginSpec, creds Credentials, log *zap.Logger) error {
	if err := c.driver.Navigate(ctx, login.URL); err != nil {
		return err
	}

	if login.ConsentPhrase != "" {
		body, err := c.driver.BodyText(ctx)
		if err != nil {
			return fmt.Errorf("reading login page: %w", err)
		}
		if strings.Contains(body, login.ConsentPhrase) {
			log.Info("Acceptance interstitial detected, accepting.")
			if err := c.resolveAndClick(ctx, login.ConsentAccept); err != nil {
				return fmt.Errorf("accepting interstitial: %w", err)
			}
		}
	}

	userLoc, err := c.resolver.Resolve(ctx, login.Username, c.cfg.StepTimeout)
	if err != nil {
		return fmt.Errorf("finding username field: %w", err)
	}
	if err := c.driver.Fill(ctx, userLoc, creds.Username); err != nil {
		return err
	}

	passLoc, err := c.resolver.Resolve(ctx, login.Password, c.cfg.StepTimeout)
	if err != nil {
		return fmt.Errorf("finding password field: %w", err)
	}
	if err := c.driver.Fill(ctx, passLoc, creds.Password); err != nil {
		return err
	}

	if err := c.resolveAndClick(ctx, login.Submit); err != nil {
		return fmt.Errorf("submitting login form: %w", err)
	}

	c.awaitFormGone(ctx, userLoc, log)
	return nil
}

// awaitFormGone polls until the login form disappears, bounded by the settle
// wait. A form that lingers is logged and tolerated: some console versions
// keep the form in the DOM while the dashboard loads behind it.
func (c *Controller) awaitFormGone(ctx context.Context, formLoc locate.Locator, log *zap.Logger) {
	deadline := time.Now().Add(c.cfg.SettleWait)
	for time.Now().Before(deadline) {
		present, err := c.driver.Present(ctx, formLoc)
		if err != nil || !present {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.PollInterval):
		}
	}
	log.Warn("Login form still present after settle wait, continuing anyway.",
		zap.Duration("settle_wait", c.cfg.SettleWait))
}

// runAction walks one click-path, claims the file it downloads, and archives
// it under the action's kind.
func (c *Controller) runAction(ctx context.Context, action Action, log *zap.Logger) (string, error) {
	alog := log.With(zap.String("action", action.Name))
	alog.Info("Starting action.", zap.Int("steps", len(action.Steps)))

	if action.ViewURL != "" {
		if err := c.driver.Navigate(ctx, action.ViewURL); err != nil {
			return "", err
		}
	}
	if len(action.Steps) == 0 {
		return "", fmt.Errorf("action %s has no steps", action.Name)
	}

	for _, step := range action.Steps[:len(action.Steps)-1] {
		if err := c.resolveAndClick(ctx, step); err != nil {
			return "", fmt.Errorf("step %s: %w", step.Target, err)
		}
	}

	// Baseline the download directory just before the triggering click so
	// only files born from this action can be claimed.
	baseline, err := c.watcher.Snapshot()
	if err != nil {
		return "", fmt.Errorf("snapshotting download directory: %w", err)
	}

	final := action.Steps[len(action.Steps)-1]
	if err := c.resolveAndClick(ctx, final); err != nil {
		return "", fmt.Errorf("step %s: %w", final.Target, err)
	}

	timeout := action.DownloadTimeout
	if timeout <= 0 {
		timeout = c.cfg.DownloadTimeout
	}
	name, err := c.watcher.Await(ctx, baseline, action.Download, timeout)
	if err != nil {
		return "", fmt.Errorf("waiting for %s download: %w", action.Name, err)
	}
	alog.Info("Download observed.", zap.String("file", name))

	archived, err := c.archiver.Archive(
		filepath.Join(c.watcher.Dir(), name), c.hostToken, action.Kind, action.ArchiveDir)
	if err != nil {
		return "", fmt.Errorf("archiving %s: %w", name, err)
	}
	return archived, nil
}

func (c *Controller) resolveAndClick(ctx context.Context, chain locate.Chain) error {
	loc, err := c.resolver.Resolve(ctx, chain, c.cfg.StepTimeout)
	if err != nil {
		return err
	}
	return c.driver.Click(ctx, loc)
}

func (c *Controller) capture(ctx context.Context, name string) {
	if c.capturer == nil {
		return
	}
	c.capturer.DumpDiagnostics(ctx, name)
}
