// File: internal/browser/options.go
package browser

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/muhilia/unity-backup/internal/config"
)

// edgeCandidates lists the usual Edge install locations per platform,
// checked when no explicit binary path is configured.
var edgeCandidates = map[string][]string{
	"windows": {
		`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
		`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
	},
	"linux": {
		"/usr/bin/microsoft-edge",
		"/usr/bin/microsoft-edge-stable",
		"/opt/microsoft/msedge/msedge",
	},
	"darwin": {
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	},
}

// AllocatorOptions assembles the chromedp exec allocator flags for the
// configured browser. The TLS-related flags are on by default: array
// management consoles almost universally present self-signed certificates.
func AllocatorOptions(cfg config.BrowserConfig) ([]chromedp.ExecAllocatorOption, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	if cfg.IgnoreTLSErrors {
		opts = append(opts,
			chromedp.Flag("ignore-certificate-errors", true),
			chromedp.Flag("allow-insecure-localhost", true),
		)
	}

	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(name, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	binary, err := resolveBinary(cfg)
	if err != nil {
		return nil, err
	}
	if binary != "" {
		opts = append(opts, chromedp.ExecPath(binary))
	}

	return opts, nil
}

// resolveBinary picks the browser executable. Chrome without an explicit
// path is left to chromedp's own discovery; Edge has no such discovery, so a
// missing binary is an immediate connection error.
func resolveBinary(cfg config.BrowserConfig) (string, error) {
	if cfg.BinaryPath != "" {
		if _, err := os.Stat(cfg.BinaryPath); err != nil {
			return "", fmt.Errorf("configured browser binary %s: %w", cfg.BinaryPath, err)
		}
		return cfg.BinaryPath, nil
	}

	if cfg.Kind != "edge" {
		return "", nil
	}

	for _, candidate := range edgeCandidates[runtime.GOOS] {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	for _, name := range []string{"microsoft-edge", "msedge"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("edge browser binary not found (set browser.binary_path)")
}
