// File: cmd/backup.go
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/muhilia/unity-backup/internal/archive"
	"github.com/muhilia/unity-backup/internal/browser"
	"github.com/muhilia/unity-backup/internal/config"
	"github.com/muhilia/unity-backup/internal/download"
	"github.com/muhilia/unity-backup/internal/locate"
	"github.com/muhilia/unity-backup/internal/observability"
	"github.com/muhilia/unity-backup/internal/unisphere"
	"github.com/muhilia/unity-backup/internal/workflow"
)

// newBackupCmd creates and configures the `backup` command.
func newBackupCmd() *cobra.Command {
	var passwordFile string

	backupCmd := &cobra.Command{
		Use:   "backup <target_url> <username> [password]",
		Short: "Runs the configuration and keystore backup workflow against one array",
		Long: `Logs in to the array's Unisphere console, drives the Save Configuration
task and the keystore backup dialog, and archives both downloaded artifacts
under timestamped names. The password can be given as the third argument or
read from a file with --password-file.`,
		Args: cobra.RangeArgs(2, 3),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so command-line values override
			// the config file and environment.
			bindings := map[string]string{
				"browser.kind":                "browser",
				"browser.headless":            "headless",
				"browser.binary_path":         "browser-binary",
				"browser.download_dir":        "download-dir",
				"workflow.download_timeout":   "download-timeout",
				"workflow.debug_dir":          "debug-dir",
				"archive.config_backup_dir":   "config-backup-dir",
				"archive.keystore_backup_dir": "keystore-backup-dir",
			}
			for key, flag := range bindings {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-unmarshal now that the flags are bound.
			cfg, err := config.NewFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			password, err := resolvePassword(args, passwordFile)
			if err != nil {
				return err
			}

			cfg.Backup.TargetURL = unisphere.NormalizeURL(args[0])
			cfg.Backup.Username = args[1]
			cfg.Backup.Password = password

			// Failures past this point are operational, not usage errors.
			cmd.SilenceUsage = true

			if err := os.MkdirAll(cfg.Browser.DownloadDir, 0o755); err != nil {
				return fmt.Errorf("creating download directory: %w", err)
			}

			session := browser.NewSession(cfg.Browser, cfg.Workflow.DebugDir, logger)
			resolver := locate.NewResolver(session, logger)
			watcher := download.NewWatcher(cfg.Browser.DownloadDir, cfg.Workflow.PollInterval, logger)
			archiver := archive.New(logger)

			hostToken := archive.HostToken(cfg.Backup.TargetURL)
			controller := workflow.NewController(session, resolver, session, watcher, archiver,
				cfg.Workflow, hostToken, logger)

			baseURL := unisphere.BaseURL(cfg.Backup.TargetURL)
			report := controller.Run(ctx,
				unisphere.Login(cfg.Backup.TargetURL),
				workflow.Credentials{Username: cfg.Backup.Username, Password: cfg.Backup.Password},
				unisphere.BackupActions(baseURL, cfg.Archive))

			for _, res := range report.Results {
				if res.Err != nil {
					logger.Error("Backup action failed.",
						zap.String("action", res.Name), zap.Error(res.Err))
					continue
				}
				logger.Info("Backup archived.",
					zap.String("action", res.Name), zap.String("path", res.ArchivedPath))
			}

			switch code := report.ExitCode(); code {
			case workflow.ExitOK:
				return nil
			case workflow.ExitFatal:
				return &exitError{code: code, err: fmt.Errorf("backup run failed: %w", report.FatalErr)}
			default:
				return &exitError{code: code, err: fmt.Errorf("backup run completed with failed actions")}
			}
		},
	}

	backupCmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from the first line of this file")
	backupCmd.Flags().String("browser", "", "browser to drive: chrome or edge")
	backupCmd.Flags().Bool("headless", false, "run the browser headless")
	backupCmd.Flags().String("browser-binary", "", "explicit path to the browser executable")
	backupCmd.Flags().String("download-dir", "", "directory the browser downloads into")
	backupCmd.Flags().Duration("download-timeout", 0, "how long to wait for each download")
	backupCmd.Flags().String("debug-dir", "", "directory for failure diagnostics (page source and screenshots)")
	backupCmd.Flags().String("config-backup-dir", "", "archive directory for configuration backups")
	backupCmd.Flags().String("keystore-backup-dir", "", "archive directory for keystore backups")

	return backupCmd
}

// resolvePassword picks the password from the positional argument or the
// password file. Exactly one source must be supplied.
func resolvePassword(args []string, passwordFile string) (string, error) {
	hasArg := len(args) > 2
	switch {
	case hasArg && passwordFile != "":
		return "", fmt.Errorf("password argument and --password-file are mutually exclusive")
	case hasArg:
		return args[2], nil
	case passwordFile != "":
		return readPasswordFile(passwordFile)
	default:
		return "", fmt.Errorf("no password given: pass it as the third argument or via --password-file")
	}
}

// readPasswordFile returns the first line of the file, trimmed. Trailing
// newlines from editors and echo are the usual contamination.
func readPasswordFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening password file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading password file: %w", err)
		}
		return "", fmt.Errorf("password file %s is empty", path)
	}
	password := strings.TrimSpace(scanner.Text())
	if password == "" {
		return "", fmt.Errorf("password file %s is empty", path)
	}
	return password, nil
}

func init() {
	rootCmd.AddCommand(newBackupCmd())
}
