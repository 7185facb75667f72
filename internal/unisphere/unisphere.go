// File: internal/unisphere/unisphere.go

// Package unisphere encodes what is known about the Dell Unity Unisphere
// web console: its URLs, the banner text of its acceptance interstitial, and
// the locator chains for every element the backup workflow touches. The ExtJS
// frontend renders generated element IDs that drift between firmware
// versions, so each target carries a chain of alternatives ending in a
// visible-text scan.
package unisphere

import (
	"strings"

	"github.com/muhilia/unity-backup/internal/locate"
	"github.com/muhilia/unity-backup/internal/workflow"
)

// ConsentPhrase is the sentence shown on the security acceptance
// interstitial. Its presence in the page text is the only reliable marker:
// the page carries no stable element IDs besides the accept button.
const ConsentPhrase = "This system is solely for the use of authorized users for official purposes."

// NormalizeURL makes a bare host or IP usable as a console URL. The console
// only speaks HTTPS.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return strings.TrimRight(raw, "/")
}

// BaseURL strips the CAS login path so deep links can be built from whatever
// URL the operator supplied.
func BaseURL(normalized string) string {
	base, _, _ := strings.Cut(normalized, "/cas/login")
	return strings.TrimRight(base, "/")
}

// ServiceTaskURL deep-links to the service tasks view that hosts the
// configuration backup task.
func ServiceTaskURL(baseURL string) string {
	return baseURL + "/index.html#lcn=SERVICE_TASK"
}

// DashboardURL deep-links to the dashboard, the stable starting point for
// the settings dialog.
func DashboardURL(baseURL string) string {
	return baseURL + "/index.html#lcn=DASHBOARD"
}

// Login describes the path from the login URL to an authenticated console.
// The username field has no stable identity across console versions, hence
// the long chain.
func Login(targetURL string) workflow.LoginSpec {
	return workflow.LoginSpec{
		URL:           targetURL,
		ConsentPhrase: ConsentPhrase,
		ConsentAccept: locate.NewChain("accept button",
			locate.CSS("#accept"),
		),
		Username: locate.NewChain("username field",
			locate.CSS("input[name=username]"),
			locate.CSS("input#username"),
			locate.CSS("input[name=user]"),
			locate.CSS("input#user"),
			locate.XPath(`//input[contains(@placeholder, 'username')]`),
			locate.XPath(`//input[contains(@placeholder, 'Username')]`),
			locate.XPath(`//input[contains(@class, 'username')]`),
		),
		Password: locate.NewChain("password field",
			locate.CSS("input[type=password]"),
		),
		Submit: locate.NewChain("login button",
			locate.CSS("#submit"),
			locate.XPath(`//button[contains(text(), 'Log')]`),
			locate.XPath(`//button[contains(text(), 'Sign')]`),
			locate.CSS("input[type=submit]"),
			locate.CSS("button[type=submit]"),
		),
	}
}
