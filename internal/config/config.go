// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Workflow WorkflowConfig `mapstructure:"workflow" yaml:"workflow"`
	Archive  ArchiveConfig  `mapstructure:"archive" yaml:"archive"`

	// Backup carries per-invocation settings from CLI arguments, never from
	// the config file.
	Backup BackupConfig `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the console color per log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds the settings for the automated browser instance.
type BrowserConfig struct {
	// Kind selects the automation backend: "chrome" or "edge".
	Kind string `mapstructure:"kind" yaml:"kind"`
	// BinaryPath overrides browser binary discovery.
	BinaryPath string `mapstructure:"binary_path" yaml:"binary_path"`
	Headless   bool   `mapstructure:"headless" yaml:"headless"`
	// IgnoreTLSErrors is required for consoles behind self-signed
	// certificates, which is the common case for storage arrays.
	IgnoreTLSErrors bool `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	// DownloadDir is the exclusive download directory for this run. Keeping
	// it private to the tool prevents unrelated downloads from racing the
	// watcher.
	DownloadDir string         `mapstructure:"download_dir" yaml:"download_dir"`
	Args        []string       `mapstructure:"args" yaml:"args"`
	Viewport    map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// WorkflowConfig tunes the timing of the backup workflow. A single step
// timeout is reused for every locator attempt.
type WorkflowConfig struct {
	StepTimeout     time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	SettleWait      time.Duration `mapstructure:"settle_wait" yaml:"settle_wait"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout" yaml:"download_timeout"`
	// DebugDir receives page markup and screenshots on resolution failures.
	DebugDir string `mapstructure:"debug_dir" yaml:"debug_dir"`
}

// ArchiveConfig names the final archive locations per backup kind.
type ArchiveConfig struct {
	ConfigBackupDir   string `mapstructure:"config_backup_dir" yaml:"config_backup_dir"`
	KeystoreBackupDir string `mapstructure:"keystore_backup_dir" yaml:"keystore_backup_dir"`
}

// BackupConfig is the per-run invocation: target console and credentials.
type BackupConfig struct {
	TargetURL string
	Username  string
	Password  string
}

// SetDefaults registers every default value on the given viper instance.
// Timing defaults mirror the console's observed behavior: a slow ExtJS UI
// that can take tens of seconds to render the dashboard after login.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "unity-backup")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("browser.kind", "edge")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", true)
	v.SetDefault("browser.download_dir", "unity_backups/downloads")

	v.SetDefault("workflow.step_timeout", 10*time.Second)
	v.SetDefault("workflow.settle_wait", 20*time.Second)
	v.SetDefault("workflow.poll_interval", 2*time.Second)
	v.SetDefault("workflow.download_timeout", 120*time.Second)
	v.SetDefault("workflow.debug_dir", "unity_backups/debug")

	v.SetDefault("archive.config_backup_dir", "unity_backups/configuration")
	v.SetDefault("archive.keystore_backup_dir", "unity_backups/keystore")
}

// NewFromViper unmarshals and validates the configuration.
func NewFromViper(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the workflow cannot run with.
func (c *Config) Validate() error {
	switch c.Browser.Kind {
	case "chrome", "edge":
	default:
		return fmt.Errorf("unsupported browser kind %q (use chrome or edge)", c.Browser.Kind)
	}
	if c.Workflow.StepTimeout <= 0 {
		return fmt.Errorf("workflow.step_timeout must be positive, got %v", c.Workflow.StepTimeout)
	}
	if c.Workflow.PollInterval <= 0 {
		return fmt.Errorf("workflow.poll_interval must be positive, got %v", c.Workflow.PollInterval)
	}
	if c.Workflow.DownloadTimeout <= 0 {
		return fmt.Errorf("workflow.download_timeout must be positive, got %v", c.Workflow.DownloadTimeout)
	}
	if c.Browser.DownloadDir == "" {
		return fmt.Errorf("browser.download_dir must not be empty")
	}
	if c.Archive.ConfigBackupDir == "" || c.Archive.KeystoreBackupDir == "" {
		return fmt.Errorf("archive directories must not be empty")
	}
	return nil
}
