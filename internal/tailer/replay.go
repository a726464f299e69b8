package tailer

import (
	"errors"
	"io"

	"github.com/mclog/mclog-go/internal/safefile"
)

// Replay limits used by New.
const (
	DefaultMaxReplayBytes     = 10 * 1024 * 1024
	DefaultMaxReplayLineBytes = 512 * 1024
	replayChunkSize           = 4096
)

// ErrReplayLimitExceeded is returned when the replayed tail of a file is
// larger than the byte limits allow.
var ErrReplayLimitExceeded = errors.New("replay limit exceeded")

// ReadLastLines returns the last n non-empty lines of the regular file at
// path, oldest first, together with the file size they were read up to.
// Zero limits disable the corresponding check.
func ReadLastLines(path string, n, maxBytes, maxLineBytes int) ([]string, int64, error) {
	f, info, err := safefile.OpenRegular(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	size := info.Size()
	lines, err := lastLines(f, size, n, maxBytes, maxLineBytes)
	if err != nil {
		return nil, 0, err
	}
	return lines, size, nil
}

// lastLines scans r backwards from size in fixed chunks.
func lastLines(r io.ReaderAt, size int64, n, maxBytes, maxLineBytes int) ([]string, error) {
	if size == 0 || n <= 0 {
		return nil, nil
	}

	lines := make([]string, 0, n)
	offset := size
	var carry []byte // partial line that starts before the current chunk
	read := 0

	for len(lines) < n && offset > 0 {
		chunkLen := int64(replayChunkSize)
		if offset < chunkLen {
			chunkLen = offset
		}
		offset -= chunkLen

		if maxBytes > 0 && read+int(chunkLen)+len(carry) > maxBytes {
			return nil, ErrReplayLimitExceeded
		}

		chunk := make([]byte, chunkLen, int(chunkLen)+len(carry))
		if _, err := r.ReadAt(chunk, offset); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		read += int(chunkLen)
		chunk = append(chunk, carry...)

		found, rest, ok := splitLinesBackward(chunk, n-len(lines), maxLineBytes)
		if !ok {
			return nil, ErrReplayLimitExceeded
		}
		if maxLineBytes > 0 && len(rest) > maxLineBytes {
			return nil, ErrReplayLimitExceeded
		}
		lines = append(found, lines...)
		carry = rest
	}

	if offset == 0 && len(carry) > 0 && len(lines) < n {
		if line := trimCR(string(carry)); line != "" {
			lines = append([]string{line}, lines...)
		}
	}
	return lines, nil
}

// splitLinesBackward returns the last max complete non-empty lines in buf
// and the bytes before the first newline. ok is false when a complete line
// is longer than maxLineBytes.
func splitLinesBackward(buf []byte, max, maxLineBytes int) (lines []string, rest []byte, ok bool) {
	end := len(buf)
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] != '\n' {
			continue
		}
		if maxLineBytes > 0 && end-(i+1) > maxLineBytes {
			return nil, nil, false
		}
		if line := trimCR(string(buf[i+1 : end])); line != "" {
			lines = append(lines, line)
		}
		end = i
	}

	// Collected newest first.
	for l, r := 0, len(lines)-1; l < r; l, r = l+1, r-1 {
		lines[l], lines[r] = lines[r], lines[l]
	}
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	return lines, buf[:end], true
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}
