// File: internal/archive/archiver.go
package archive

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// timestampLayout matches the archive naming scheme down to the second.
// Collisions are only possible on sub-second reruns, which is accepted.
const timestampLayout = "2006-01-02_150405"

// Archiver relocates downloaded backup files into their final archive
// directory under a deterministic, per-run name.
type Archiver struct {
	logger *zap.Logger
	now    func() time.Time
}

// New creates an archiver using the system clock.
func New(logger *zap.Logger) *Archiver {
	return &Archiver{
		logger: logger.Named("archiver"),
		now:    time.Now,
	}
}

// NewWithClock creates an archiver with an injectable clock for tests.
func NewWithClock(logger *zap.Logger, now func() time.Time) *Archiver {
	a := New(logger)
	a.now = now
	return a
}

// HostToken extracts a filename-safe host identifier from the target URL,
// with dots replaced by underscores. Unparseable input yields "unknown_ip".
func HostToken(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown_ip"
	}
	return strings.ReplaceAll(u.Hostname(), ".", "_")
}

// Filename builds the archive name for a source file:
// {kind}_{YYYY-MM-DD_HHMMSS}-IP-{host}{ext}.
func (a *Archiver) Filename(src, hostToken, kind string) string {
	ext := filepath.Ext(src)
	return fmt.Sprintf("%s_%s-IP-%s%s", kind, a.now().Format(timestampLayout), hostToken, ext)
}

// Archive moves src into destDir under the generated name and returns the
// final path. The destination directory is created if absent. The move
// preserves the original bytes across volumes and removes the source on
// success.
func (a *Archiver) Archive(src, hostToken, kind, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive directory %s: %w", destDir, err)
	}

	target := filepath.Join(destDir, a.Filename(src, hostToken, kind))
	if err := move(src, target); err != nil {
		return "", fmt.Errorf("archiving %s: %w", src, err)
	}

	a.logger.Info("Artifact archived.",
		zap.String("source", src),
		zap.String("target", target))
	return target, nil
}

// move renames src to dst, falling back to copy-and-remove when the rename
// crosses filesystem boundaries.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyAndRemove(src, dst)
}

func copyAndRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating target: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copying contents: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("flushing target: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("closing target: %w", err)
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing source after copy: %w", err)
	}
	return nil
}
