package mclog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
)

// Pipeline runs registered units against log submissions.
//
// Units are grouped by Stage and, within a stage, ordered by Order and then
// by registration sequence. The order is deterministic for a given
// registration set.
//
// Pipeline is safe for concurrent use. Each Run works on its own Log, so
// independent submissions can be analyzed in parallel.
type Pipeline struct {
	log      *slog.Logger
	newID    func() string
	failFast bool

	mu     sync.RWMutex
	stages [numStages][]registered
	ids    map[string]Stage
	seq    uint64
}

type registered struct {
	unit Processor
	seq  uint64
}

// New creates a Pipeline. Units passed via WithParsers and WithProcessors
// are registered in the order given; the first registration error is
// returned.
func New(opts ...Option) (*Pipeline, error) {
	cfg := applyOptions(opts)
	p := &Pipeline{
		log:      cfg.logger,
		newID:    cfg.newID,
		failFast: cfg.failFast,
		ids:      make(map[string]Stage),
	}
	for _, u := range cfg.parsers {
		if err := p.Register(StageParse, u); err != nil {
			return nil, err
		}
	}
	for _, u := range cfg.processors {
		if err := p.Register(StageProcess, u); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Register adds u to stage. Identifiers must be unique across all stages.
func (p *Pipeline) Register(stage Stage, u Processor) error {
	if stage < 0 || stage >= numStages {
		return fmt.Errorf("%w: %d", ErrInvalidStage, stage)
	}
	if u == nil {
		return ErrNilProcessor
	}
	id := u.Identifier()
	if id == "" {
		return ErrEmptyIdentifier
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, exists := p.ids[id]; exists {
		return fmt.Errorf("%w: %q (already registered in %s stage)", ErrDuplicateIdentifier, id, prev)
	}
	p.ids[id] = stage
	p.seq++

	// Copy on write so that runs holding an older snapshot are unaffected.
	units := make([]registered, len(p.stages[stage]), len(p.stages[stage])+1)
	copy(units, p.stages[stage])
	units = append(units, registered{unit: u, seq: p.seq})
	sort.SliceStable(units, func(i, j int) bool {
		oi, oj := units[i].unit.Order(), units[j].unit.Order()
		if oi != oj {
			return oi < oj
		}
		return units[i].seq < units[j].seq
	})
	p.stages[stage] = units

	p.log.Debug("registered unit", "stage", stage.String(), "id", id, "order", int(u.Order()))
	return nil
}

// AddParser registers a parser.
func (p *Pipeline) AddParser(u Processor) error {
	return p.Register(StageParse, u)
}

// AddProcessor registers a diagnostic processor.
func (p *Pipeline) AddProcessor(u Processor) error {
	return p.Register(StageProcess, u)
}

// Units returns the units of stage in execution order.
func (p *Pipeline) Units(stage Stage) []Processor {
	if stage < 0 || stage >= numStages {
		return nil
	}
	p.mu.RLock()
	units := p.stages[stage]
	p.mu.RUnlock()

	out := make([]Processor, len(units))
	for i, r := range units {
		out[i] = r.unit
	}
	return out
}

// Run analyzes content with every registered unit, parsers first, and
// returns the annotated Log.
//
// The returned Log is never nil. A failing or panicking unit does not stop
// the run: its error is wrapped in a *UnitError, logged, and the remaining
// units still execute. All unit errors are returned joined. With
// WithFailFast the run stops at the first unit error instead.
//
// Context cancellation is checked between units. On cancellation Run
// returns the partially annotated Log together with the context error.
func (p *Pipeline) Run(ctx context.Context, content string) (*Log, error) {
	p.mu.RLock()
	stages := p.stages
	p.mu.RUnlock()

	lg := NewLog(content)
	lg.id = p.newID()

	var errs []error
	for stage, units := range stages {
		for _, r := range units {
			if err := ctx.Err(); err != nil {
				return lg, errors.Join(append(errs, err)...)
			}

			err := p.runUnit(ctx, r.unit, lg)
			if err == nil {
				continue
			}

			uerr := &UnitError{Stage: Stage(stage), Identifier: r.unit.Identifier(), Err: err}
			p.log.Warn("unit failed",
				"log_id", lg.id,
				"stage", Stage(stage).String(),
				"id", uerr.Identifier,
				"error", err)
			errs = append(errs, uerr)
			if p.failFast {
				return lg, errors.Join(errs...)
			}
		}
	}

	return lg, errors.Join(errs...)
}

// runUnit calls u.Process, converting a panic into a *PanicError.
func (p *Pipeline) runUnit(ctx context.Context, u Processor, lg *Log) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return u.Process(ctx, lg)
}
