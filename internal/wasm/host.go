package wasm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"golang.org/x/time/rate"
)

const (
	// MaxLogSize is the maximum size of a single plugin log message (256 bytes).
	MaxLogSize = 256

	// LogRateLimit is the maximum number of log calls per second.
	LogRateLimit = 10
)

// bufferTooSmall is returned by regex_find_submatch when the output buffer
// cannot hold the encoded groups.
const bufferTooSmall = 0xFFFFFFFF

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// hostFunctions provides the "env" module imported by plugins.
type hostFunctions struct {
	cache       *regexCache
	logger      *slog.Logger
	rateLimiter *rate.Limiter
}

func newHostFunctions(logger *slog.Logger) *hostFunctions {
	if logger == nil {
		logger = discardLogger
	}
	return &hostFunctions{
		cache:       newRegexCache(DefaultRegexCacheSize),
		logger:      logger,
		rateLimiter: rate.NewLimiter(LogRateLimit, LogRateLimit),
	}
}

// register exports the host functions as the runtime's "env" module.
func (h *hostFunctions) register(ctx context.Context, rt wazero.Runtime) error {
	b := rt.NewHostModuleBuilder("env")

	// regex_match: (str_ptr, str_len, re_ptr, re_len) -> i32
	b = b.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, strPtr, strLen, rePtr, reLen uint32) uint32 {
			return h.regexMatch(ctx, m, strPtr, strLen, rePtr, reLen)
		}).
		Export("regex_match")

	// regex_find_submatch: (str_ptr, str_len, re_ptr, re_len, out_ptr, out_len) -> i32
	b = b.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, strPtr, strLen, rePtr, reLen, outPtr, outLen uint32) uint32 {
			return h.regexFindSubmatch(ctx, m, strPtr, strLen, rePtr, reLen, outPtr, outLen)
		}).
		Export("regex_find_submatch")

	// log: (level, ptr, len)
	b = b.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, level, ptr, msgLen uint32) {
			h.log(ctx, m, level, ptr, msgLen)
		}).
		Export("log")

	_, err := b.Instantiate(ctx)
	return err
}

// compile reads the subject and pattern from plugin memory.
func (h *hostFunctions) compile(m api.Module, strPtr, strLen, rePtr, reLen uint32) (string, *regexp.Regexp, bool) {
	strBytes, ok := m.Memory().Read(strPtr, strLen)
	if !ok {
		return "", nil, false
	}
	reBytes, ok := m.Memory().Read(rePtr, reLen)
	if !ok {
		return "", nil, false
	}
	pattern := string(reBytes)

	re, err := h.cache.Get(pattern)
	if err != nil {
		h.logger.Warn("regex compilation failed", "pattern", pattern, "error", err)
		return "", nil, false
	}
	return string(strBytes), re, true
}

// callState collects host-side failures of one process call. Host
// functions can only hand a plugin a result value, so a regex that could not
// finish is recorded here and turned into the call's error.
type callState struct {
	mu  sync.Mutex
	err error
}

type callStateKey struct{}

func withCallState(ctx context.Context) (context.Context, *callState) {
	st := &callState{}
	return context.WithValue(ctx, callStateKey{}, st), st
}

// fail records the first host failure of the call.
func (s *callState) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *callState) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// runRegex runs fn until it finishes or ctx is done. The process call's
// context carries the plugin timeout, so regex work over a large log gets
// the same budget as the plugin itself.
// Go's regexp cannot be cancelled, so when ctx ends first the goroutine
// finishes in the background. RE2 matching is linear in the input, which
// bounds that work.
func runRegex[T any](ctx context.Context, fn func() T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, regexContextError(err)
	}

	ch := make(chan T, 1)
	go func() { ch <- fn() }()

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return zero, regexContextError(ctx.Err())
	}
}

func regexContextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// abort logs a regex that did not finish and records it on the call, so
// the plugin's "no match" is not mistaken for a real one.
func (h *hostFunctions) abort(ctx context.Context, op string, re *regexp.Regexp, n int, err error) {
	h.logger.Warn("host regex did not finish", "op", op, "pattern", re.String(), "str_len", n, "error", err)
	if st, ok := ctx.Value(callStateKey{}).(*callState); ok {
		st.fail(fmt.Errorf("%s over %d bytes: %w", op, n, err))
	}
}

func (h *hostFunctions) match(ctx context.Context, str string, re *regexp.Regexp) bool {
	matched, err := runRegex(ctx, func() bool { return re.MatchString(str) })
	if err != nil {
		h.abort(ctx, "regex_match", re, len(str), err)
		return false
	}
	return matched
}

func (h *hostFunctions) findSubmatch(ctx context.Context, str string, re *regexp.Regexp) []string {
	matches, err := runRegex(ctx, func() []string { return re.FindStringSubmatch(str) })
	if err != nil {
		h.abort(ctx, "regex_find_submatch", re, len(str), err)
		return nil
	}
	return matches
}

// regexMatch returns 1 on match, 0 on no match or error.
func (h *hostFunctions) regexMatch(ctx context.Context, m api.Module, strPtr, strLen, rePtr, reLen uint32) uint32 {
	str, re, ok := h.compile(m, strPtr, strLen, rePtr, reLen)
	if !ok {
		return 0
	}
	if h.match(ctx, str, re) {
		return 1
	}
	return 0
}

// regexFindSubmatch writes the JSON-encoded submatches to the output buffer.
// Returns the number of bytes written, 0 if no match or error, and
// 0xFFFFFFFF if the buffer is too small.
func (h *hostFunctions) regexFindSubmatch(ctx context.Context, m api.Module, strPtr, strLen, rePtr, reLen, outPtr, outLen uint32) uint32 {
	str, re, ok := h.compile(m, strPtr, strLen, rePtr, reLen)
	if !ok {
		return 0
	}

	matches := h.findSubmatch(ctx, str, re)
	if matches == nil {
		return 0
	}

	jsonBytes, err := json.Marshal(matches)
	if err != nil {
		h.logger.Error("failed to marshal submatch results", "error", err)
		return 0
	}
	if uint32(len(jsonBytes)) > outLen {
		return bufferTooSmall
	}
	if !m.Memory().Write(outPtr, jsonBytes) {
		return 0
	}
	return uint32(len(jsonBytes))
}

// log forwards a plugin message to the host logger.
// Levels: 0=debug, 1=info, 2=warn, 3=error. Messages over the rate limit
// are dropped.
func (h *hostFunctions) log(ctx context.Context, m api.Module, level, ptr, msgLen uint32) {
	if !h.rateLimiter.Allow() {
		return
	}

	truncated := false
	if msgLen > MaxLogSize {
		truncated = true
		msgLen = MaxLogSize
	}

	msgBytes, ok := m.Memory().Read(ptr, msgLen)
	if !ok {
		return
	}
	msg := sanitizeLogMessage(msgBytes, truncated)

	h.logger.Log(ctx, pluginLogLevel(level), "[plugin] "+msg, "module", m.Name())
}

func sanitizeLogMessage(b []byte, truncated bool) string {
	msg := strings.ToValidUTF8(string(b), "\ufffd")
	if truncated {
		msg += " [truncated]"
	}
	return msg
}

func pluginLogLevel(level uint32) slog.Level {
	switch level {
	case 0:
		return slog.LevelDebug
	case 2:
		return slog.LevelWarn
	case 3:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
