package archive

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedClock() time.Time {
	return time.Date(2026, 8, 28, 14, 30, 5, 0, time.UTC)
}

func TestHostToken(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"https url", "https://10.0.0.5", "10_0_0_5"},
		{"bare host", "10.0.0.5", "10_0_0_5"},
		{"with path", "https://10.1.2.3/cas/login", "10_1_2_3"},
		{"with port", "https://10.1.2.3:8443", "10_1_2_3"},
		{"hostname", "https://unity.example.com", "unity_example_com"},
		{"garbage", "://", "unknown_ip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HostToken(tt.url))
		})
	}
}

func TestArchiveBuildsDeterministicName(t *testing.T) {
	srcDir := t.TempDir()
	destDir := filepath.Join(t.TempDir(), "archive")

	src := filepath.Join(srcDir, "report.cfg")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	a := NewWithClock(zap.NewNop(), fixedClock)
	target, err := a.Archive(src, HostToken("https://10.0.0.5"), "unity_backup", destDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(destDir, "unity_backup_2026-08-28_143005-IP-10_0_0_5.cfg"), target)

	// Source must be gone, target must hold the original bytes.
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestArchiveFilenamePattern(t *testing.T) {
	a := New(zap.NewNop())
	name := a.Filename("report.cfg", "10_0_0_5", "unity_backup")
	assert.Regexp(t, regexp.MustCompile(`^unity_backup_\d{4}-\d{2}-\d{2}_\d{6}-IP-10_0_0_5\.cfg$`), name)
}

func TestArchiveCreatesDestinationDir(t *testing.T) {
	srcDir := t.TempDir()
	destDir := filepath.Join(t.TempDir(), "deep", "nested", "dir")

	src := filepath.Join(srcDir, "keys.lbb")
	require.NoError(t, os.WriteFile(src, []byte("keys"), 0o644))

	a := NewWithClock(zap.NewNop(), fixedClock)
	target, err := a.Archive(src, "10_0_0_5", "Unity-Encryption-Backup", destDir)
	require.NoError(t, err)
	assert.FileExists(t, target)
}

func TestArchiveMissingSourceFails(t *testing.T) {
	a := New(zap.NewNop())
	_, err := a.Archive(filepath.Join(t.TempDir(), "absent.cfg"), "h", "k", t.TempDir())
	assert.Error(t, err)
}

func TestCopyAndRemovePreservesBytes(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "src.bin")
	dst := filepath.Join(t.TempDir(), "dst.bin")
	require.NoError(t, os.WriteFile(src, []byte("exact bytes"), 0o644))

	require.NoError(t, copyAndRemove(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "exact bytes", string(data))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}
