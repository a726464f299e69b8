package mclog_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mclog/mclog-go/pkg/mclog"
)

// recorder returns a unit that appends its id to the log's messages.
func recorder(id string, order mclog.Order) mclog.Processor {
	return mclog.Func(id, order, func(ctx context.Context, lg *mclog.Log) error {
		lg.AddMessage(id)
		return nil
	})
}

func TestNew_Empty(t *testing.T) {
	p, err := mclog.New()
	require.NoError(t, err)

	lg, err := p.Run(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, lg.Messages())
	assert.False(t, lg.HasProblems())
	assert.NotEmpty(t, lg.ID())
}

func TestRegister_Validation(t *testing.T) {
	p, err := mclog.New()
	require.NoError(t, err)

	err = p.AddParser(nil)
	assert.ErrorIs(t, err, mclog.ErrNilProcessor)

	err = p.AddProcessor(recorder("", mclog.OrderDefault))
	assert.ErrorIs(t, err, mclog.ErrEmptyIdentifier)

	err = p.Register(mclog.Stage(42), recorder("x", mclog.OrderDefault))
	assert.ErrorIs(t, err, mclog.ErrInvalidStage)

	require.NoError(t, p.AddParser(recorder("loader", mclog.OrderDefault)))
	err = p.AddProcessor(recorder("loader", mclog.OrderDefault))
	assert.ErrorIs(t, err, mclog.ErrDuplicateIdentifier)
	assert.Contains(t, err.Error(), "parse")
}

func TestNew_RegistrationError(t *testing.T) {
	_, err := mclog.New(
		mclog.WithParsers(recorder("a", mclog.OrderDefault)),
		mclog.WithProcessors(recorder("a", mclog.OrderDefault)),
	)
	assert.ErrorIs(t, err, mclog.ErrDuplicateIdentifier)
}

func TestRun_StageAndOrder(t *testing.T) {
	p, err := mclog.New(
		// Processors are registered first on purpose: stage wins over
		// registration order.
		mclog.WithProcessors(
			recorder("proc-late", mclog.OrderLater),
			recorder("proc-default-1", mclog.OrderDefault),
			recorder("proc-earliest", mclog.OrderEarliest),
			recorder("proc-default-2", mclog.OrderDefault),
		),
		mclog.WithParsers(
			recorder("parse-default", mclog.OrderDefault),
			recorder("parse-earlier", mclog.OrderEarlier),
		),
	)
	require.NoError(t, err)

	lg, err := p.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"parse-earlier",
		"parse-default",
		"proc-earliest",
		"proc-default-1",
		"proc-default-2",
		"proc-late",
	}, lg.Messages())
}

func TestUnits(t *testing.T) {
	p, err := mclog.New()
	require.NoError(t, err)
	require.NoError(t, p.AddProcessor(recorder("b", mclog.OrderLatest)))
	require.NoError(t, p.AddProcessor(recorder("a", mclog.OrderEarliest)))

	units := p.Units(mclog.StageProcess)
	require.Len(t, units, 2)
	assert.Equal(t, "a", units[0].Identifier())
	assert.Equal(t, "b", units[1].Identifier())

	assert.Empty(t, p.Units(mclog.StageParse))
	assert.Nil(t, p.Units(mclog.Stage(-1)))
}

func TestRun_ProcessorsSeeParserFields(t *testing.T) {
	parser := mclog.Func("loader", mclog.OrderDefault, func(ctx context.Context, lg *mclog.Log) error {
		lg.SetLoader(mclog.LoaderFabric, "0.14.21")
		return nil
	})
	var seen mclog.LoaderVersion
	var found bool
	processor := mclog.Func("reader", mclog.OrderEarliest, func(ctx context.Context, lg *mclog.Log) error {
		seen, found = lg.Loader()
		return nil
	})

	p, err := mclog.New(mclog.WithProcessors(processor), mclog.WithParsers(parser))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, mclog.LoaderFabric, seen.Loader)
}

func TestRun_UnitErrorIsIsolated(t *testing.T) {
	boom := errors.New("boom")
	p, err := mclog.New(mclog.WithProcessors(
		recorder("before", mclog.OrderEarlier),
		mclog.Func("failing", mclog.OrderDefault, func(ctx context.Context, lg *mclog.Log) error {
			return boom
		}),
		recorder("after", mclog.OrderLater),
	))
	require.NoError(t, err)

	lg, err := p.Run(context.Background(), "")
	require.Error(t, err)
	require.NotNil(t, lg)
	assert.Equal(t, []string{"before", "after"}, lg.Messages())

	assert.ErrorIs(t, err, boom)
	var uerr *mclog.UnitError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "failing", uerr.Identifier)
	assert.Equal(t, mclog.StageProcess, uerr.Stage)
}

func TestRun_PanicIsIsolated(t *testing.T) {
	p, err := mclog.New(
		mclog.WithParsers(mclog.Func("panicky", mclog.OrderDefault, func(ctx context.Context, lg *mclog.Log) error {
			var m map[string]int
			m["x"] = 1 // nil map write
			return nil
		})),
		mclog.WithProcessors(recorder("survivor", mclog.OrderDefault)),
	)
	require.NoError(t, err)

	lg, err := p.Run(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, []string{"survivor"}, lg.Messages())

	var perr *mclog.PanicError
	require.True(t, errors.As(err, &perr))
	assert.NotEmpty(t, perr.Stack)

	var uerr *mclog.UnitError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "panicky", uerr.Identifier)
	assert.Equal(t, mclog.StageParse, uerr.Stage)
}

func TestRun_PanicWithErrorUnwraps(t *testing.T) {
	errBroken := errors.New("table not loaded")
	p, err := mclog.New(
		mclog.WithProcessors(
			mclog.Func("error_panic", mclog.OrderDefault, func(ctx context.Context, lg *mclog.Log) error {
				panic(fmt.Errorf("lookup: %w", errBroken))
			}),
			mclog.Func("string_panic", mclog.OrderLater, func(ctx context.Context, lg *mclog.Log) error {
				panic("boom")
			}),
		),
	)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)

	perr := &mclog.PanicError{Value: "boom"}
	assert.NoError(t, perr.Unwrap())
	assert.Equal(t, "panic: boom", perr.Error())
}

func TestRun_MultipleErrorsJoined(t *testing.T) {
	fail := func(id string) mclog.Processor {
		return mclog.Func(id, mclog.OrderDefault, func(ctx context.Context, lg *mclog.Log) error {
			return fmt.Errorf("%s failed", id)
		})
	}
	p, err := mclog.New(mclog.WithProcessors(fail("one"), fail("two")))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one failed")
	assert.Contains(t, err.Error(), "two failed")
}

func TestRun_FailFast(t *testing.T) {
	p, err := mclog.New(
		mclog.WithFailFast(true),
		mclog.WithProcessors(
			mclog.Func("failing", mclog.OrderDefault, func(ctx context.Context, lg *mclog.Log) error {
				return errors.New("boom")
			}),
			recorder("never", mclog.OrderLater),
		),
	)
	require.NoError(t, err)

	lg, err := p.Run(context.Background(), "")
	require.Error(t, err)
	assert.Empty(t, lg.Messages())
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, err := mclog.New(mclog.WithProcessors(
		mclog.Func("cancel", mclog.OrderDefault, func(ctx context.Context, lg *mclog.Log) error {
			lg.AddMessage("cancel")
			cancel()
			return nil
		}),
		recorder("never", mclog.OrderLater),
	))
	require.NoError(t, err)

	lg, err := p.Run(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"cancel"}, lg.Messages())
}

func TestRun_IDFunc(t *testing.T) {
	n := 0
	p, err := mclog.New(mclog.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}))
	require.NoError(t, err)

	lg1, _ := p.Run(context.Background(), "")
	lg2, _ := p.Run(context.Background(), "")
	assert.Equal(t, "run-1", lg1.ID())
	assert.Equal(t, "run-2", lg2.ID())
}

func TestRun_Idempotent(t *testing.T) {
	p := newKeywordPipeline(t)
	content := "ERROR one\nWARN two\nERROR three"

	lg1, err := p.Run(context.Background(), content)
	require.NoError(t, err)
	lg2, err := p.Run(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, lg1.Messages(), lg2.Messages())
	assert.Equal(t, lg1.HasProblems(), lg2.HasProblems())
	assert.Equal(t, lg1.Fields(), lg2.Fields())
}

func TestRun_ConcurrentIsolation(t *testing.T) {
	p := newKeywordPipeline(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := fmt.Sprintf("ERROR from-%d", i)
			lg, err := p.Run(context.Background(), content)
			assert.NoError(t, err)
			assert.Equal(t, []string{fmt.Sprintf("error: from-%d", i)}, lg.Messages())
			assert.True(t, lg.HasProblems())
		}(i)
	}
	wg.Wait()
}

// newKeywordPipeline builds a pipeline whose processor reports every
// "ERROR <word>" line.
func newKeywordPipeline(t *testing.T) *mclog.Pipeline {
	t.Helper()
	p, err := mclog.New(mclog.WithProcessors(
		mclog.Func("errors", mclog.OrderDefault, func(ctx context.Context, lg *mclog.Log) error {
			for _, line := range strings.Split(lg.Content(), "\n") {
				if word, ok := strings.CutPrefix(line, "ERROR "); ok {
					lg.AddMessage("error: " + word)
					lg.SetProblem()
				}
			}
			return nil
		}),
	))
	require.NoError(t, err)
	return p
}
