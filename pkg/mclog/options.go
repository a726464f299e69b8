package mclog

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// Option configures a Pipeline using the functional options pattern.
type Option func(*pipelineConfig)

// pipelineConfig holds construction-time configuration.
type pipelineConfig struct {
	logger     *slog.Logger
	newID      func() string
	failFast   bool
	parsers    []Processor
	processors []Processor
}

// discardLogger returns a logger that discards all output.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func defaultPipelineConfig() *pipelineConfig {
	return &pipelineConfig{
		logger: discardLogger,
		newID:  uuid.NewString,
	}
}

func applyOptions(opts []Option) *pipelineConfig {
	cfg := defaultPipelineConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithLogger sets the logger used to report unit failures.
// If logger is nil, logging is disabled (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *pipelineConfig) {
		if logger == nil {
			logger = discardLogger
		}
		c.logger = logger
	}
}

// WithIDFunc sets the generator for Log.ID. Default: random UUIDs.
// If fn is nil, this option has no effect.
func WithIDFunc(fn func() string) Option {
	return func(c *pipelineConfig) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithFailFast stops a run at the first unit error instead of isolating it.
// Default: false, every unit runs regardless of earlier failures.
func WithFailFast(failFast bool) Option {
	return func(c *pipelineConfig) {
		c.failFast = failFast
	}
}

// WithParsers registers parsers at construction time.
func WithParsers(ps ...Processor) Option {
	return func(c *pipelineConfig) {
		c.parsers = append(c.parsers, ps...)
	}
}

// WithProcessors registers diagnostic processors at construction time.
func WithProcessors(ps ...Processor) Option {
	return func(c *pipelineConfig) {
		c.processors = append(c.processors, ps...)
	}
}
