// File: internal/workflow/controller_test.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/muhilia/unity-backup/internal/archive"
	"github.com/muhilia/unity-backup/internal/config"
	"github.com/muhilia/unity-backup/internal/download"
	"github.com/muhilia/unity-backup/internal/locate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeDriver scripts the browser surface and records every call.
type fakeDriver struct {
	mu sync.Mutex

	connectErr error
	navErr     map[string]error
	clickErr   map[string]error
	body       string
	formGone   bool
	panicOn    string
	onClick    func(query string)

	navigations []string
	fills       map[string]string
	clicks      []string
	closed      bool
	captures    []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		navErr:   map[string]error{},
		clickErr: map[string]error{},
		fills:    map[string]string{},
		formGone: true,
	}
}

func (d *fakeDriver) Connect(ctx context.Context) error { return d.connectErr }

func (d *fakeDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigations = append(d.navigations, url)
	return d.navErr[url]
}

func (d *fakeDriver) BodyText(ctx context.Context) (string, error) { return d.body, nil }

func (d *fakeDriver) Click(ctx context.Context, loc locate.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panicOn != "" && loc.Query == d.panicOn {
		panic("scripted click panic")
	}
	d.clicks = append(d.clicks, loc.Query)
	if d.onClick != nil {
		d.onClick(loc.Query)
	}
	return d.clickErr[loc.Query]
}

// dropFileOnClick schedules a file to appear in dir shortly after the named
// element is clicked, mimicking the browser finishing a download.
func dropFileOnClick(driver *fakeDriver, trigger, dir, name string) *sync.WaitGroup {
	var wg sync.WaitGroup
	driver.onClick = func(query string) {
		if query != trigger {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(60 * time.Millisecond)
			_ = os.WriteFile(filepath.Join(dir, name), []byte("artifact"), 0o644)
		}()
	}
	return &wg
}

func (d *fakeDriver) Fill(ctx context.Context, loc locate.Locator, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fills[loc.Query] = value
	return nil
}

func (d *fakeDriver) Present(ctx context.Context, loc locate.Locator) (bool, error) {
	return !d.formGone, nil
}

func (d *fakeDriver) DumpDiagnostics(ctx context.Context, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.captures = append(d.captures, name)
}

// fakeResolver resolves each chain to the locator at the scripted index, or
// fails the chains listed in failing.
type fakeResolver struct {
	pick    map[string]int
	failing map[string]bool

	mu       sync.Mutex
	resolved []string
}

func (r *fakeResolver) Resolve(ctx context.Context, chain locate.Chain, perAttempt time.Duration) (locate.Locator, error) {
	r.mu.Lock()
	r.resolved = append(r.resolved, chain.Target)
	r.mu.Unlock()
	if r.failing[chain.Target] {
		return locate.Locator{}, fmt.Errorf("%s: %w", chain.Target, locate.ErrNotFound)
	}
	idx := r.pick[chain.Target]
	if idx >= len(chain.Locators) {
		idx = 0
	}
	return chain.Locators[idx], nil
}

func testLogin() LoginSpec {
	return LoginSpec{
		URL:           "https://10.0.0.5",
		ConsentPhrase: "solely for the use of authorized users",
		ConsentAccept: locate.NewChain("accept button", locate.CSS("#accept")),
		Username:      locate.NewChain("username field", locate.CSS("#user"), locate.CSS("input[name=username]")),
		Password:      locate.NewChain("password field", locate.CSS("input[type=password]")),
		Submit:        locate.NewChain("submit button", locate.CSS("#submit")),
	}
}

func testCfg() config.WorkflowConfig {
	return config.WorkflowConfig{
		StepTimeout:     100 * time.Millisecond,
		SettleWait:      50 * time.Millisecond,
		PollInterval:    10 * time.Millisecond,
		DownloadTimeout: 2 * time.Second,
	}
}

func newTestController(t *testing.T, driver *fakeDriver, resolver Resolver) (*Controller, string, string) {
	t.Helper()
	downloadDir := t.TempDir()
	archiveDir := t.TempDir()
	watcher := download.NewWatcher(downloadDir, 25*time.Millisecond, zap.NewNop())
	archiver := archive.New(zap.NewNop())
	ctrl := NewController(driver, resolver, driver, watcher, archiver,
		testCfg(), "10_0_0_5", zap.NewNop())
	return ctrl, downloadDir, archiveDir
}

func TestRunHappyPath(t *testing.T) {
	driver := newFakeDriver()
	driver.body = "Welcome. This system is solely for the use of authorized users for official purposes."
	resolver := &fakeResolver{
		pick: map[string]int{"execute button": 2},
	}
	ctrl, downloadDir, archiveDir := newTestController(t, driver, resolver)

	action := Action{
		Name:    "configuration",
		ViewURL: "https://10.0.0.5/#lcn=SERVICE_TASK",
		Steps: []locate.Chain{
			locate.NewChain("save configuration", locate.Text("Save Configuration")),
			locate.NewChain("execute button",
				locate.CSS("#exec-a"), locate.CSS("#exec-b"), locate.Text("Execute")),
		},
		Download:   download.Suffix(".cfg"),
		Kind:       "unity_backup",
		ArchiveDir: archiveDir,
	}

	// The artifact lands a couple of poll ticks after the triggering click.
	wg := dropFileOnClick(driver, "Execute", downloadDir, "system.cfg")

	report := ctrl.Run(context.Background(), testLogin(), Credentials{Username: "admin", Password: "s3cret"}, []Action{action})
	wg.Wait()

	require.NotNil(t, report)
	require.NoError(t, report.FatalErr)
	require.Len(t, report.Results, 1)
	require.NoError(t, report.Results[0].Err)
	assert.Equal(t, ExitOK, report.ExitCode())
	assert.NotEmpty(t, report.RunID)

	// Interstitial accepted, credentials filled, artifact moved out of the
	// download directory.
	assert.Contains(t, driver.clicks, "#accept")
	assert.Equal(t, "admin", driver.fills["#user"])
	assert.Equal(t, "s3cret", driver.fills["input[type=password]"])
	assert.Contains(t, driver.clicks, "Execute")
	assert.FileExists(t, report.Results[0].ArchivedPath)
	assert.NoFileExists(t, filepath.Join(downloadDir, "system.cfg"))
	assert.True(t, driver.closed)
	assert.Equal(t, Done, ctrl.State())
}

func TestRunSkipsInterstitialWhenAbsent(t *testing.T) {
	driver := newFakeDriver()
	driver.body = "Please log in."
	resolver := &fakeResolver{pick: map[string]int{}}
	ctrl, downloadDir, archiveDir := newTestController(t, driver, resolver)

	wg := dropFileOnClick(driver, "Backup Keystore File", downloadDir, "keystore.lbb")

	report := ctrl.Run(context.Background(), testLogin(), Credentials{Username: "admin"}, []Action{{
		Name:       "keystore",
		Steps:      []locate.Chain{locate.NewChain("backup keystore", locate.Text("Backup Keystore File"))},
		Download:   download.Suffix(".lbb"),
		Kind:       "Unity-Encryption-Backup",
		ArchiveDir: archiveDir,
	}})
	wg.Wait()

	assert.Equal(t, ExitOK, report.ExitCode())
	assert.NotContains(t, driver.clicks, "#accept")
}

func TestRunConnectFailureIsFatal(t *testing.T) {
	driver := newFakeDriver()
	driver.connectErr = errors.New("browser refused to start")
	ctrl, _, _ := newTestController(t, driver, &fakeResolver{})

	report := ctrl.Run(context.Background(), testLogin(), Credentials{}, nil)

	require.Error(t, report.FatalErr)
	assert.Equal(t, ExitFatal, report.ExitCode())
	assert.True(t, driver.closed)
	assert.Equal(t, Failed, ctrl.State())
}

func TestRunLoginFailureIsFatalAndCaptured(t *testing.T) {
	driver := newFakeDriver()
	resolver := &fakeResolver{failing: map[string]bool{"username field": true}}
	ctrl, _, _ := newTestController(t, driver, resolver)

	report := ctrl.Run(context.Background(), testLogin(), Credentials{}, nil)

	require.Error(t, report.FatalErr)
	assert.ErrorIs(t, report.FatalErr, locate.ErrNotFound)
	assert.Equal(t, ExitFatal, report.ExitCode())
	assert.Contains(t, driver.captures, "login_failed")
	assert.True(t, driver.closed)
}

func TestRunFailedActionDoesNotAbortSiblings(t *testing.T) {
	driver := newFakeDriver()
	resolver := &fakeResolver{failing: map[string]bool{"broken step": true}}
	ctrl, downloadDir, archiveDir := newTestController(t, driver, resolver)

	wg := dropFileOnClick(driver, "#ok", downloadDir, "after.cfg")

	actions := []Action{
		{
			Name:       "first",
			Steps:      []locate.Chain{locate.NewChain("broken step", locate.CSS("#gone"))},
			Download:   download.Suffix(".cfg"),
			Kind:       "unity_backup",
			ArchiveDir: archiveDir,
		},
		{
			Name:       "second",
			Steps:      []locate.Chain{locate.NewChain("working step", locate.CSS("#ok"))},
			Download:   download.Suffix(".cfg"),
			Kind:       "unity_backup",
			ArchiveDir: archiveDir,
		},
	}

	report := ctrl.Run(context.Background(), testLogin(), Credentials{}, actions)
	wg.Wait()

	require.Len(t, report.Results, 2)
	assert.Error(t, report.Results[0].Err)
	assert.NoError(t, report.Results[1].Err)
	assert.NoError(t, report.FatalErr)
	assert.Equal(t, ExitPartial, report.ExitCode())
	assert.Contains(t, driver.captures, "action_failed_first")
}

func TestRunDownloadTimeoutFailsAction(t *testing.T) {
	driver := newFakeDriver()
	ctrl, _, archiveDir := newTestController(t, driver, &fakeResolver{})

	report := ctrl.Run(context.Background(), testLogin(), Credentials{}, []Action{{
		Name:            "configuration",
		Steps:           []locate.Chain{locate.NewChain("trigger", locate.CSS("#go"))},
		Download:        download.Suffix(".cfg"),
		DownloadTimeout: 80 * time.Millisecond,
		Kind:            "unity_backup",
		ArchiveDir:      archiveDir,
	}})

	require.Len(t, report.Results, 1)
	assert.ErrorIs(t, report.Results[0].Err, download.ErrTimedOut)
	assert.Equal(t, ExitPartial, report.ExitCode())
}

func TestRunRecoversPanicAndClosesBrowser(t *testing.T) {
	driver := newFakeDriver()
	driver.panicOn = "#boom"
	ctrl, _, archiveDir := newTestController(t, driver, &fakeResolver{})

	report := ctrl.Run(context.Background(), testLogin(), Credentials{}, []Action{{
		Name:       "configuration",
		Steps:      []locate.Chain{locate.NewChain("trigger", locate.CSS("#boom"))},
		Download:   download.Suffix(".cfg"),
		Kind:       "unity_backup",
		ArchiveDir: archiveDir,
	}})

	require.Error(t, report.FatalErr)
	assert.Contains(t, report.FatalErr.Error(), "panicked")
	assert.True(t, driver.closed)
	assert.Equal(t, Failed, ctrl.State())
}

func TestRunActionWithoutStepsFails(t *testing.T) {
	driver := newFakeDriver()
	ctrl, _, _ := newTestController(t, driver, &fakeResolver{})

	report := ctrl.Run(context.Background(), testLogin(), Credentials{}, []Action{{Name: "empty"}})

	require.Len(t, report.Results, 1)
	assert.Error(t, report.Results[0].Err)
}
