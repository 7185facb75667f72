// File: internal/unisphere/actions.go
package unisphere

import (
	"github.com/muhilia/unity-backup/internal/config"
	"github.com/muhilia/unity-backup/internal/download"
	"github.com/muhilia/unity-backup/internal/locate"
	"github.com/muhilia/unity-backup/internal/workflow"
)

// Action names used in logs and run reports.
const (
	ActionConfiguration = "configuration"
	ActionKeystore      = "keystore"
)

// Archive filename prefixes per backup kind.
const (
	KindConfiguration = "unity_backup"
	KindKeystore      = "Unity-Encryption-Backup"
)

// Absolute XPaths captured from a live console. They are brittle last
// resorts that only fire when every ID and text clause above them misses.
const (
	saveConfigurationXPath = `/html/body/div[1]/div[3]/div[2]/div/div[2]/div/div/div[2]/div/div/div/div/div[1]/div/div/div/div[1]/div/div/div/div/div[2]/div/div/div/div/div/div/div/div/div/div[1]/div/div[2]/div/div[2]/table[2]/tbody/tr/td/div`
	executeButtonXPath     = `/html/body/div[1]/div[3]/div[2]/div/div[2]/div/div/div[2]/div/div/div/div/div[1]/div/div/div/div[1]/div/div/div/div/div[2]/div/div/div/div/div/div/div/div/div/div[3]/div/div/div/div/div[2]/div/div/a/span/span/span[2]`
	settingsButtonXPath    = `/html/body/div[1]/div[1]/div/div/a[2]/span/span/span[1]`
	managementNodeXPath    = `/html/body/div[9]/div[2]/div[2]/div/div[2]/div/div[1]/table[3]/tbody/tr/td/div/span[2]`
	encryptionNodeXPath    = `/html/body/div[9]/div[2]/div[2]/div/div[2]/div/div[1]/table[13]/tbody/tr/td/div/span`
	keystoreButtonXPath    = `/html/body/div[9]/div[2]/div[3]/div/div[1]/div[2]/div/div/a/span/span/span[2]`
)

// ConfigurationBackup builds the action that drives Service Tasks > Save
// Configuration > Execute > Create New and claims the resulting download.
// The console names the file inconsistently across versions, anything from
// a .cfg to an HTML-wrapped export, so the predicate is deliberately broad.
func ConfigurationBackup(baseURL string, cfg config.ArchiveConfig) workflow.Action {
	return workflow.Action{
		Name:    ActionConfiguration,
		ViewURL: ServiceTaskURL(baseURL),
		Steps: []locate.Chain{
			locate.NewChain("save configuration task",
				locate.Text("Save Configuration"),
				locate.XPath(saveConfigurationXPath),
			),
			locate.NewChain("execute button",
				locate.CSS("#button-1512-btnEl"),
				locate.CSS("#button-1512-btnWrap"),
				locate.XPath(executeButtonXPath),
			).WithScanText("Execute"),
			locate.NewChain("create new button",
				locate.CSS("#button-1339"),
				locate.XPath(`//a[span/span/span[contains(text(), "Create New")]]`),
				locate.XPath(`//span[contains(text(), "Create New")]`),
				locate.XPath(`//a[@id and .//span[contains(text(), "Create New")]]`),
				locate.XPath(`//a[contains(@class, "x-btn") and .//span[contains(text(), "Create New")]]`),
			).WithScanText("Create New"),
		},
		Download: download.Any(
			download.Suffix(".cfg"),
			download.Substring("backup"),
			download.Suffix(".html"),
		),
		Kind:       KindConfiguration,
		ArchiveDir: cfg.ConfigBackupDir,
	}
}

// KeystoreBackup builds the action that drives Settings > Management >
// Encryption > Backup Keystore File. The keystore always downloads as an
// .lbb file.
func KeystoreBackup(baseURL string, cfg config.ArchiveConfig) workflow.Action {
	return workflow.Action{
		Name:    ActionKeystore,
		ViewURL: DashboardURL(baseURL),
		Steps: []locate.Chain{
			locate.NewChain("settings button",
				locate.XPath(settingsButtonXPath),
			).WithScanText("Settings"),
			locate.NewChain("management tree node",
				locate.XPath(`//span[@class="x-tree-node-text " and text()="Management"]`),
				locate.XPath(`//div[contains(@id, "ext-element-")]/span[@class="x-tree-node-text " and text()="Management"]`),
				locate.XPath(`//*[contains(text(), "Management") and contains(@class, "x-tree-node-text")]`),
				locate.XPath(managementNodeXPath),
				locate.XPath(`//span[text()="Management"]`),
			).WithScanText("Management"),
			locate.NewChain("encryption tree node",
				locate.XPath(`//span[@class="x-tree-node-text " and text()="Encryption"]`),
				locate.XPath(`//table[@id and contains(@id, "treeview")]//span[@class="x-tree-node-text " and text()="Encryption"]`),
				locate.XPath(`//*[contains(text(), "Encryption") and contains(@class, "x-tree-node-text")]`),
				locate.XPath(encryptionNodeXPath),
				locate.XPath(`//span[text()="Encryption"]`),
			).WithScanText("Encryption"),
			locate.NewChain("backup keystore button",
				locate.XPath(`//span[@class="x-btn-inner x-btn-inner-secondary-small" and text()="Backup Keystore File"]`),
				locate.XPath(`//a[@role="button"]//span[text()="Backup Keystore File"]`),
				locate.XPath(`//*[contains(@class, "x-btn") and .//span[text()="Backup Keystore File"]]`),
				locate.XPath(`//*[contains(text(), "Backup Keystore File")]`),
				locate.XPath(keystoreButtonXPath),
				locate.XPath(`//a[contains(., "Backup Keystore File")]`),
			).WithScanText("Backup Keystore File"),
		},
		Download:   download.Suffix(".lbb"),
		Kind:       KindKeystore,
		ArchiveDir: cfg.KeystoreBackupDir,
	}
}

// BackupActions returns the full run in its fixed order: configuration
// first, keystore second.
func BackupActions(baseURL string, cfg config.ArchiveConfig) []workflow.Action {
	return []workflow.Action{
		ConfigurationBackup(baseURL, cfg),
		KeystoreBackup(baseURL, cfg),
	}
}
