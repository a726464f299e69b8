// Package logfinder locates Minecraft server logs and crash reports.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// EnvServerDir is the environment variable name for specifying the server directory.
const EnvServerDir = "MCLOG_SERVER_DIR"

// Layout of a server directory.
const (
	LatestLogPath      = "logs/latest.log"
	CrashReportDir     = "crash-reports"
	crashReportPattern = "crash-*.txt"
)

// Sentinel errors.
var (
	ErrServerDirNotFound = errors.New("server directory not found")
	ErrNoLogFiles        = errors.New("no log files found")
)

// FindServerDir returns the server directory.
//
// Priority:
//  1. explicit (if non-empty)
//  2. MCLOG_SERVER_DIR environment variable
//  3. The current working directory
//
// A directory qualifies when it holds logs/latest.log or at least one crash
// report. The returned path has symlinks resolved.
func FindServerDir(explicit string) (string, error) {
	if explicit != "" {
		if resolved := resolveServerDir(explicit); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: specified directory is invalid or contains no logs", ErrServerDirNotFound)
	}

	if envDir := os.Getenv(EnvServerDir); envDir != "" {
		if resolved := resolveServerDir(envDir); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s environment variable points to invalid directory", ErrServerDirNotFound, EnvServerDir)
	}

	if wd, err := os.Getwd(); err == nil {
		if resolved := resolveServerDir(wd); resolved != "" {
			return resolved, nil
		}
	}

	return "", ErrServerDirNotFound
}

// FindLatestLogFile returns dir/logs/latest.log.
// Returns ErrNoLogFiles if it is missing or not a regular file.
func FindLatestLogFile(dir string) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(LatestLogPath))
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNoLogFiles
	}
	return path, nil
}

// logCandidate holds a file path and its cached modification time, so files
// deleted between stat and sort cannot break the ordering.
type logCandidate struct {
	path    string
	modTime int64
}

// FindLatestCrashReport returns the most recently modified
// crash-reports/crash-*.txt file in dir.
// Returns ErrNoLogFiles if there is none.
func FindLatestCrashReport(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, CrashReportDir, crashReportPattern))
	if err != nil {
		return "", fmt.Errorf("globbing crash reports: %w", err)
	}

	candidates := make([]logCandidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, logCandidate{
			path:    m,
			modTime: info.ModTime().UnixNano(),
		})
	}

	if len(candidates) == 0 {
		return "", ErrNoLogFiles
	}

	// Newest first; ties broken by name so the result is stable.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime != candidates[j].modTime {
			return candidates[i].modTime > candidates[j].modTime
		}
		return candidates[i].path > candidates[j].path
	})

	return candidates[0].path, nil
}

// resolveServerDir resolves symlinks and validates the directory.
// Returns the resolved path if valid, empty string otherwise.
func resolveServerDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return ""
	}

	if _, err := FindLatestLogFile(resolved); err == nil {
		return resolved
	}
	if _, err := FindLatestCrashReport(resolved); err == nil {
		return resolved
	}
	return ""
}
