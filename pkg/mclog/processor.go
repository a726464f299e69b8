package mclog

import "context"

// Order positions a unit within its stage. Lower values run first; units
// with equal order run in registration order.
type Order int

// Conventional order tiers. Any int value is allowed.
const (
	OrderEarliest Order = -200
	OrderEarlier  Order = -100
	OrderDefault  Order = 0
	OrderLater    Order = 100
	OrderLatest   Order = 200
)

// Stage is the coarse priority tier a unit is registered into.
// Every parser runs before any diagnostic processor.
type Stage int

const (
	// StageParse holds parsers that extract structured facts.
	StageParse Stage = iota

	// StageProcess holds diagnostic processors that detect problems and
	// add guidance.
	StageProcess

	numStages
)

func (s Stage) String() string {
	switch s {
	case StageParse:
		return "parse"
	case StageProcess:
		return "process"
	default:
		return "unknown"
	}
}

// Processor is a unit of the annotation pipeline.
//
// The same interface serves both parsers and diagnostic processors; the
// stage a unit is registered into decides which one it is.
type Processor interface {
	// Identifier returns a name unique within a pipeline.
	Identifier() string

	// Order returns the unit's position within its stage.
	Order() Order

	// Process inspects log and mutates it. Finding nothing is not an error;
	// return an error only for unexpected failures.
	Process(ctx context.Context, log *Log) error
}

// Func adapts an ordinary function into a Processor.
func Func(id string, order Order, fn func(ctx context.Context, log *Log) error) Processor {
	return &funcProcessor{id: id, order: order, fn: fn}
}

type funcProcessor struct {
	id    string
	order Order
	fn    func(ctx context.Context, log *Log) error
}

func (f *funcProcessor) Identifier() string { return f.id }
func (f *funcProcessor) Order() Order       { return f.order }

func (f *funcProcessor) Process(ctx context.Context, log *Log) error {
	return f.fn(ctx, log)
}
