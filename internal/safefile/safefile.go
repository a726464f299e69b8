// Package safefile provides security-hardened file operations.
package safefile

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrNotRegularFile is returned when attempting to open a file that is not a regular file.
	// This includes symlinks, FIFOs, devices, sockets, and directories.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrTooLarge is returned by ReadRegular when the file exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
)

// OpenRegular opens a file and verifies it is a regular file.
//
// The function:
//  1. Uses os.Lstat() to check the path without following symlinks
//  2. Opens the file
//  3. Stats the file descriptor to verify it is still a regular file
//
// Note: There is still a small window between Lstat and Open. Go's standard
// library doesn't expose O_NOFOLLOW in a cross-platform way.
//
// The caller must close the returned file when done.
func OpenRegular(path string) (*os.File, os.FileInfo, error) {
	linkInfo, err := os.Lstat(path)
	if err != nil {
		return nil, nil, err
	}
	if !linkInfo.Mode().IsRegular() {
		return nil, nil, ErrNotRegularFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotRegularFile
	}

	return f, info, nil
}

// ReadRegular reads a whole regular file of at most max bytes.
// The size is checked both before and during the read, so a file that grows
// after the stat is still rejected.
func ReadRegular(path string, max int64) ([]byte, error) {
	f, info, err := OpenRegular(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if info.Size() > max {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), max)
	}

	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	return data, nil
}
