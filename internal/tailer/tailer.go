// Package tailer follows a growing log file, like tail -F.
package tailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/nxadm/tail"
	"gopkg.in/tomb.v1"
)

// errBuffer is the buffer size of the error channel.
const errBuffer = 16

// Config configures a Tailer.
type Config struct {
	// FromStart reads the file from the beginning instead of only new lines.
	FromStart bool

	// ReOpen reopens the file when it is truncated or replaced, as happens
	// to logs/latest.log when a server restarts.
	ReOpen bool

	// Poll uses polling instead of filesystem notifications.
	Poll bool

	// MustExist fails New when the file does not exist yet.
	MustExist bool

	// ReplayLines emits the last ReplayLines non-empty lines of the file
	// before following it. Ignored when FromStart is set.
	ReplayLines int
}

// DefaultConfig returns the configuration used for server logs: follow new
// lines and survive rotation.
func DefaultConfig() Config {
	return Config{ReOpen: true}
}

// Tailer emits the lines appended to a file.
type Tailer struct {
	t      *tail.Tail
	replay []string
	lines  chan string
	errs   chan error
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

// New starts following path. Lines are delivered on Lines until ctx is
// cancelled or Stop is called, after which both channels are closed.
func New(ctx context.Context, path string, cfg Config) (*Tailer, error) {
	tcfg := tail.Config{
		Follow:    true,
		ReOpen:    cfg.ReOpen,
		Poll:      cfg.Poll,
		MustExist: cfg.MustExist,
		Logger:    tail.DiscardingLogger,
	}
	var replay []string
	switch {
	case cfg.FromStart:
		// tail starts at offset zero by default
	case cfg.ReplayLines > 0:
		lines, size, err := ReadLastLines(path, cfg.ReplayLines, DefaultMaxReplayBytes, DefaultMaxReplayLineBytes)
		switch {
		case err == nil:
			replay = lines
			tcfg.Location = &tail.SeekInfo{Offset: size, Whence: io.SeekStart}
		case errors.Is(err, fs.ErrNotExist) && !cfg.MustExist:
			// nothing to replay until the file appears
		default:
			return nil, fmt.Errorf("replay %s: %w", path, err)
		}
	default:
		tcfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, tcfg)
	if err != nil {
		return nil, fmt.Errorf("tail %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	tl := &Tailer{
		t:      t,
		replay: replay,
		lines:  make(chan string),
		errs:   make(chan error, errBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go tl.run(ctx)
	return tl, nil
}

// Lines returns the channel of lines, without trailing line terminators.
func (tl *Tailer) Lines() <-chan string { return tl.lines }

// Errors returns the channel of read errors. Errors are dropped when the
// buffer is full.
func (tl *Tailer) Errors() <-chan error { return tl.errs }

// Stop stops following the file and waits for the internal goroutine.
// Safe to call multiple times.
func (tl *Tailer) Stop() error {
	var err error
	tl.once.Do(func() {
		tl.cancel()
		<-tl.done
		err = tl.t.Stop()
		tl.t.Cleanup()
	})
	return err
}

func (tl *Tailer) run(ctx context.Context) {
	defer close(tl.done)
	defer close(tl.lines)
	defer close(tl.errs)

	for _, line := range tl.replay {
		select {
		case tl.lines <- line:
		case <-ctx.Done():
			return
		}
	}
	tl.replay = nil

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-tl.t.Lines:
			if !ok {
				if err := tl.t.Err(); err != nil && !errors.Is(err, tomb.ErrStillAlive) {
					tl.sendError(err)
				}
				return
			}
			if line.Err != nil {
				tl.sendError(line.Err)
				continue
			}
			select {
			case tl.lines <- strings.TrimRight(line.Text, "\r"):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (tl *Tailer) sendError(err error) {
	select {
	case tl.errs <- err:
	default:
	}
}
