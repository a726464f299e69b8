package logfinder

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("test"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func newServerDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "logs", "latest.log"), time.Now())
	return dir
}

func TestFindLatestLogFile(t *testing.T) {
	dir := newServerDir(t)

	got, err := FindLatestLogFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs", "latest.log"), got)
}

func TestFindLatestLogFile_Missing(t *testing.T) {
	_, err := FindLatestLogFile(t.TempDir())
	assert.ErrorIs(t, err, ErrNoLogFiles)
}

func TestFindLatestLogFile_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs", "latest.log"), 0o755))

	_, err := FindLatestLogFile(dir)
	assert.ErrorIs(t, err, ErrNoLogFiles)
}

func TestFindLatestCrashReport(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"crash-2024-01-01_00.00.00-server.txt",
		"crash-2024-01-02_00.00.00-server.txt",
		"crash-2024-01-03_00.00.00-server.txt",
	}
	base := time.Now().Add(-time.Hour)
	for i, name := range files {
		writeFile(t, filepath.Join(dir, "crash-reports", name), base.Add(time.Duration(i)*time.Minute))
	}
	// Not a crash report.
	writeFile(t, filepath.Join(dir, "crash-reports", "notes.txt"), time.Now())

	got, err := FindLatestCrashReport(dir)
	require.NoError(t, err)
	assert.Equal(t, files[len(files)-1], filepath.Base(got))
}

func TestFindLatestCrashReport_None(t *testing.T) {
	_, err := FindLatestCrashReport(t.TempDir())
	assert.ErrorIs(t, err, ErrNoLogFiles)
}

func TestFindLatestCrashReport_SkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test requires Unix")
	}
	dir := t.TempDir()
	old := filepath.Join(dir, "crash-reports", "crash-old.txt")
	writeFile(t, old, time.Now().Add(-time.Hour))

	target := filepath.Join(t.TempDir(), "elsewhere.txt")
	writeFile(t, target, time.Now())
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "crash-reports", "crash-new.txt")))

	got, err := FindLatestCrashReport(dir)
	require.NoError(t, err)
	assert.Equal(t, old, got)
}

func TestFindServerDir_Explicit(t *testing.T) {
	dir := newServerDir(t)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	got, err := FindServerDir(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFindServerDir_ExplicitInvalid(t *testing.T) {
	_, err := FindServerDir(t.TempDir())
	assert.ErrorIs(t, err, ErrServerDirNotFound)

	_, err = FindServerDir("/nonexistent/server")
	assert.ErrorIs(t, err, ErrServerDirNotFound)
}

func TestFindServerDir_EnvVar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "crash-reports", "crash-a.txt"), time.Now())
	t.Setenv(EnvServerDir, dir)

	got, err := FindServerDir("")
	require.NoError(t, err)
	want, _ := filepath.EvalSymlinks(dir)
	assert.Equal(t, want, got)
}

func TestFindServerDir_EnvVarInvalid(t *testing.T) {
	t.Setenv(EnvServerDir, t.TempDir())

	_, err := FindServerDir("")
	require.ErrorIs(t, err, ErrServerDirNotFound)
	assert.Contains(t, err.Error(), EnvServerDir)
}

func TestFindServerDir_WorkingDirectory(t *testing.T) {
	dir := newServerDir(t)
	t.Setenv(EnvServerDir, "")
	t.Chdir(dir)

	got, err := FindServerDir("")
	require.NoError(t, err)
	want, _ := filepath.EvalSymlinks(dir)
	assert.Equal(t, want, got)
}
