// Package monitor analyzes a live stream of log lines.
//
// Lines are grouped into excerpts: an excerpt ends when no line arrives for
// the quiet period or when it reaches the maximum size. Each excerpt runs
// through the pipeline once, and diagnostics already reported within the
// dedup TTL are left out of later reports.
package monitor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mclog/mclog-go/pkg/mclog"
)

// Report is the outcome of analyzing one excerpt.
type Report struct {
	// Result holds the diagnostics that were not reported before.
	Result mclog.Result

	// Lines is the number of lines in the excerpt.
	Lines int

	// Suppressed counts diagnostics dropped as duplicates.
	Suppressed int

	// Err holds unit failures from the pipeline run, if any.
	Err error
}

// Monitor turns a line stream into reports.
type Monitor struct {
	pipeline *mclog.Pipeline
	cfg      *config
	seen     *cache.Cache
}

// ErrNilPipeline is returned by New when no pipeline is given.
var ErrNilPipeline = errors.New("monitor: pipeline is nil")

// New creates a Monitor.
func New(p *mclog.Pipeline, opts ...Option) (*Monitor, error) {
	if p == nil {
		return nil, ErrNilPipeline
	}
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Monitor{pipeline: p, cfg: cfg}
	if cfg.dedupTTL > 0 {
		m.seen = cache.New(cfg.dedupTTL, 2*cfg.dedupTTL)
	}
	return m, nil
}

// Run consumes lines until the channel closes or ctx is cancelled and
// returns a channel of reports. Excerpts without any new diagnostic and
// without errors produce no report. The report channel is closed when Run's
// goroutine exits; a partial excerpt is analyzed when lines closes but not
// when ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, lines <-chan string) <-chan Report {
	out := make(chan Report)
	go m.run(ctx, lines, out)
	return out
}

func (m *Monitor) run(ctx context.Context, lines <-chan string, out chan<- Report) {
	defer close(out)

	var buf []string
	timer := time.NewTimer(m.cfg.quietPeriod)
	timer.Stop()
	defer timer.Stop()

	flush := func() bool {
		if len(buf) == 0 {
			return true
		}
		excerpt := buf
		buf = nil
		r, ok := m.analyze(ctx, excerpt)
		if !ok {
			return true
		}
		select {
		case out <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				flush()
				return
			}
			buf = append(buf, line)
			if len(buf) >= m.cfg.maxLines {
				timer.Stop()
				if !flush() {
					return
				}
				continue
			}
			timer.Reset(m.cfg.quietPeriod)
		case <-timer.C:
			if !flush() {
				return
			}
		}
	}
}

// analyze runs the pipeline on an excerpt and filters out repeated
// diagnostics. The second return value is false when there is nothing to
// report.
func (m *Monitor) analyze(ctx context.Context, excerpt []string) (Report, bool) {
	lg, err := m.pipeline.Run(ctx, strings.Join(excerpt, "\n"))
	if err != nil && ctx.Err() != nil {
		return Report{}, false
	}

	res := lg.Result()
	fresh := make([]string, 0, len(res.Messages))
	suppressed := 0
	for _, msg := range res.Messages {
		if m.seen != nil && m.seen.Add(msg, struct{}{}, cache.DefaultExpiration) != nil {
			suppressed++
			continue
		}
		fresh = append(fresh, msg)
	}
	res.Messages = fresh

	if suppressed > 0 {
		m.cfg.logger.Debug("suppressed repeated diagnostics",
			"log_id", res.ID, "count", suppressed)
	}

	if len(fresh) == 0 && err == nil {
		return Report{}, false
	}
	return Report{
		Result:     res,
		Lines:      len(excerpt),
		Suppressed: suppressed,
		Err:        err,
	}, true
}
