// File: internal/browser/capture.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// DumpDiagnostics writes the current page source and a full-page screenshot
// into the debug directory. Diagnostics are best effort: failures are logged
// and never abort the run that triggered them.
func (s *Session) DumpDiagnostics(ctx context.Context, name string) {
	if s.debugDir == "" || s.ctx == nil {
		return
	}
	if err := os.MkdirAll(s.debugDir, 0o755); err != nil {
		s.logger.Warn("Could not create debug directory.", zap.Error(err))
		return
	}
	stamp := time.Now().Format("2006-01-02_150405")
	base := filepath.Join(s.debugDir, fmt.Sprintf("%s_%s", name, stamp))

	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		s.logger.Warn("Could not capture page source.", zap.Error(err))
	} else if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
		s.logger.Warn("Could not write page source.", zap.Error(err))
	}

	var shot []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&shot, 90)); err != nil {
		s.logger.Warn("Could not capture screenshot.", zap.Error(err))
	} else if err := os.WriteFile(base+".png", shot, 0o644); err != nil {
		s.logger.Warn("Could not write screenshot.", zap.Error(err))
	}

	s.logger.Info("Diagnostics captured.", zap.String("prefix", base))
}
