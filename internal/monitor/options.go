package monitor

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Option configures a Monitor using the functional options pattern.
type Option func(*config)

type config struct {
	quietPeriod time.Duration
	maxLines    int
	dedupTTL    time.Duration
	logger      *slog.Logger
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func defaultConfig() *config {
	return &config{
		quietPeriod: 2 * time.Second,
		maxLines:    2000,
		dedupTTL:    10 * time.Minute,
		logger:      discardLogger,
	}
}

func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

func (c *config) validate() error {
	if c.quietPeriod <= 0 {
		return fmt.Errorf("quiet period must be positive, got %v", c.quietPeriod)
	}
	if c.maxLines <= 0 {
		return fmt.Errorf("max lines must be positive, got %d", c.maxLines)
	}
	if c.dedupTTL < 0 {
		return fmt.Errorf("dedup TTL must be non-negative, got %v", c.dedupTTL)
	}
	return nil
}

// WithQuietPeriod sets how long the input must be idle before the buffered
// lines are analyzed. Default: 2 seconds.
func WithQuietPeriod(d time.Duration) Option {
	return func(c *config) {
		c.quietPeriod = d
	}
}

// WithMaxLines sets the excerpt size that forces an analysis even while
// lines keep arriving. Default: 2000.
func WithMaxLines(n int) Option {
	return func(c *config) {
		c.maxLines = n
	}
}

// WithDedupTTL sets how long a reported diagnostic is suppressed from later
// excerpts. Zero disables suppression. Default: 10 minutes.
func WithDedupTTL(d time.Duration) Option {
	return func(c *config) {
		c.dedupTTL = d
	}
}

// WithLogger sets the logger. If logger is nil, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger == nil {
			logger = discardLogger
		}
		c.logger = logger
	}
}
