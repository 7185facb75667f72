// File: internal/workflow/action.go
package workflow

import (
	"context"
	"time"

	"github.com/muhilia/unity-backup/internal/download"
	"github.com/muhilia/unity-backup/internal/locate"
)

// Driver is the browser surface the controller drives. The production
// implementation is browser.Session.
type Driver interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	BodyText(ctx context.Context) (string, error)
	Click(ctx context.Context, loc locate.Locator) error
	Fill(ctx context.Context, loc locate.Locator, value string) error
	Present(ctx context.Context, loc locate.Locator) (bool, error)
}

// Resolver turns a locator chain into the first locator that works on the
// live page.
type Resolver interface {
	Resolve(ctx context.Context, chain locate.Chain, perAttempt time.Duration) (locate.Locator, error)
}

// Capturer records page diagnostics when a step fails. May be nil.
type Capturer interface {
	DumpDiagnostics(ctx context.Context, name string)
}

// Action is one click-path through the console that ends in a file download.
type Action struct {
	// Name identifies the action in logs and the run report.
	Name string
	// ViewURL, when set, is navigated to before the steps run.
	ViewURL string
	// Steps are clicked in order. The final step is the one expected to
	// trigger the download, so the directory baseline is taken just before
	// it.
	Steps []locate.Chain
	// Download accepts the filenames this action is allowed to claim.
	Download download.Predicate
	// DownloadTimeout overrides the configured default when positive.
	DownloadTimeout time.Duration
	// Kind is the archive filename prefix for the captured artifact.
	Kind string
	// ArchiveDir is where the artifact ends up.
	ArchiveDir string
}

// LoginSpec describes how to get from the login URL to an authenticated
// console.
type LoginSpec struct {
	URL string
	// ConsentPhrase, when found in the page text, means an acceptance
	// interstitial is shown and ConsentAccept must be clicked first.
	ConsentPhrase string
	ConsentAccept locate.Chain
	Username      locate.Chain
	Password      locate.Chain
	Submit        locate.Chain
}

// Credentials carries the login secret. It is never logged.
type Credentials struct {
	Username string
	Password string
}
