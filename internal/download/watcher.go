// File: internal/download/watcher.go
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrTimedOut indicates that no qualifying file appeared before the deadline.
var ErrTimedOut = errors.New("timed out waiting for download")

// Predicate decides whether a new filename is the awaited download.
type Predicate func(name string) bool

// Suffix matches filenames ending in ext, case-insensitively.
func Suffix(ext string) Predicate {
	ext = strings.ToLower(ext)
	return func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), ext)
	}
}

// Substring matches filenames containing s, case-insensitively.
func Substring(s string) Predicate {
	s = strings.ToLower(s)
	return func(name string) bool {
		return strings.Contains(strings.ToLower(name), s)
	}
}

// Any combines predicates with OR semantics.
func Any(preds ...Predicate) Predicate {
	return func(name string) bool {
		for _, p := range preds {
			if p(name) {
				return true
			}
		}
		return false
	}
}

// partialSuffixes are in-progress browser download names that must never
// satisfy a predicate.
var partialSuffixes = []string{".crdownload", ".part", ".tmp", ".download"}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range partialSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// Watcher polls a directory for a new file satisfying a predicate.
//
// Detection is a snapshot diff: files present in the baseline are ignored, so
// only downloads triggered after Snapshot are candidates. The watcher assumes
// downloads materialize atomically under their final name once the browser
// renames its in-progress file; partial-download suffixes are skipped.
type Watcher struct {
	dir      string
	interval time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a watcher over dir polling at the given interval.
func NewWatcher(dir string, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		dir:      dir,
		interval: interval,
		logger:   logger.Named("download_watcher"),
	}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Snapshot captures the current file-name set of the watched directory.
// Call it before the click that triggers the download.
func (w *Watcher) Snapshot() (map[string]struct{}, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		// A missing download directory is equivalent to an empty baseline;
		// the browser creates it on first download.
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("snapshot of %s: %w", w.dir, err)
	}

	baseline := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		baseline[e.Name()] = struct{}{}
	}
	return baseline, nil
}

// Await polls until a file absent from baseline and matching pred appears,
// returning its name. It returns an error wrapping ErrTimedOut once timeout
// elapses; it never blocks longer than timeout plus one poll interval.
func (w *Watcher) Await(ctx context.Context, baseline map[string]struct{}, pred Predicate, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Debug("Awaiting download.",
		zap.String("dir", w.dir),
		zap.Duration("timeout", timeout),
		zap.Duration("interval", w.interval))

	for {
		name, err := w.poll(baseline, pred)
		if err != nil {
			return "", err
		}
		if name != "" {
			w.logger.Info("Download detected.", zap.String("file", name))
			return name, nil
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("no matching file in %s after %v: %w", w.dir, timeout, ErrTimedOut)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll returns the first new matching filename, or "" when none qualifies yet.
func (w *Watcher) poll(baseline map[string]struct{}, pred Predicate) (string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", w.dir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if _, existed := baseline[name]; existed {
			continue
		}
		if isPartial(name) {
			continue
		}
		if pred(name) {
			return name, nil
		}
	}
	return "", nil
}
