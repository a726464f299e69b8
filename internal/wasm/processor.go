package wasm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/mclog/mclog-go/pkg/mclog"
)

const (
	// DefaultTimeout is the default timeout for one process call.
	DefaultTimeout = 250 * time.Millisecond

	// MaxInputSize is the maximum size of the JSON document passed to a plugin (16MB).
	MaxInputSize = 16 * 1024 * 1024

	// MaxOutputSize is the maximum size of a plugin's JSON response (1MB).
	MaxOutputSize = 1 * 1024 * 1024
)

// Input is the JSON document passed to a plugin's process export.
type Input struct {
	Content          string   `json:"content"`
	Loader           string   `json:"loader,omitempty"`
	LoaderVersion    string   `json:"loader_version,omitempty"`
	MinecraftVersion string   `json:"minecraft_version,omitempty"`
	Detections       []string `json:"detections,omitempty"`
}

// Output is the JSON document a plugin returns.
type Output struct {
	Ok         bool     `json:"ok"`
	Messages   []string `json:"messages,omitempty"`
	Problem    bool     `json:"problem,omitempty"`
	Detections []string `json:"detections,omitempty"`
	Error      *string  `json:"error,omitempty"`
	Code       *string  `json:"code,omitempty"`
}

// Processor implements mclog.Processor with a WebAssembly plugin.
// It is safe for concurrent use: each Process call runs in a fresh module
// instance.
type Processor struct {
	id            string
	order         mclog.Order
	timeout       atomic.Int64 // nanoseconds
	logger        *slog.Logger
	abiVersion    uint32
	moduleCounter atomic.Uint64

	mu       sync.RWMutex
	compiled *CompiledWasm
}

// Load loads a plugin and checks its ABI version. The processor identifier
// is "wasm:" followed by the file's base name without extension.
func Load(ctx context.Context, path string, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = discardLogger
	}

	compiled, err := LoadWasm(ctx, path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load wasm: %w", err)
	}

	version, err := readABIVersion(ctx, compiled)
	if err != nil {
		_ = compiled.Close(context.Background())
		return nil, err
	}
	if version != ExpectedABIVersion {
		_ = compiled.Close(context.Background())
		return nil, fmt.Errorf("%w: plugin has %d, want %d", ErrABIVersionMismatch, version, ExpectedABIVersion)
	}

	base := filepath.Base(path)
	p := &Processor{
		id:         "wasm:" + strings.TrimSuffix(base, filepath.Ext(base)),
		order:      mclog.OrderDefault,
		logger:     logger,
		abiVersion: version,
		compiled:   compiled,
	}
	p.timeout.Store(int64(DefaultTimeout))
	return p, nil
}

func readABIVersion(ctx context.Context, compiled *CompiledWasm) (uint32, error) {
	mod, err := compiled.runtime.InstantiateModule(ctx, compiled.compiled,
		wazero.NewModuleConfig().WithName("plugin-init"))
	if err != nil {
		return 0, &WasmRuntimeError{Operation: "initial module instantiation", Err: err}
	}
	defer mod.Close(context.Background())

	fn := mod.ExportedFunction("abi_version")
	if fn == nil {
		return 0, &ABIError{Function: "abi_version", Reason: "not exported"}
	}
	results, err := fn.Call(ctx)
	if err != nil {
		return 0, &WasmRuntimeError{Operation: "abi_version call", Err: err}
	}
	if len(results) == 0 {
		return 0, &ABIError{Function: "abi_version", Reason: "no return value"}
	}
	return uint32(results[0]), nil
}

// Identifier implements mclog.Processor.
func (p *Processor) Identifier() string { return p.id }

// Order implements mclog.Processor.
func (p *Processor) Order() mclog.Order { return p.order }

// SetOrder changes the processor's order. Call it before registration.
func (p *Processor) SetOrder(o mclog.Order) { p.order = o }

// SetTimeout sets the per-call execution timeout. Non-positive values reset
// it to DefaultTimeout. Safe for concurrent use.
func (p *Processor) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p.timeout.Store(int64(timeout))
}

// Timeout returns the per-call execution timeout.
func (p *Processor) Timeout() time.Duration {
	return time.Duration(p.timeout.Load())
}

// Process implements mclog.Processor. The plugin sees the log content and
// the facts recorded so far; its messages, problem flag and detection tags
// are applied to lg only when it reports success. A host regex that does
// not finish within the timeout fails the call with ErrTimeout.
func (p *Processor) Process(ctx context.Context, lg *mclog.Log) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.compiled == nil {
		return ErrClosed
	}

	input, err := json.Marshal(newInput(lg))
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}
	if len(input) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(input), MaxInputSize)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout())
	defer cancel()

	out, err := p.call(ctx, input)
	if err != nil {
		return err
	}

	if !out.Ok {
		perr := &PluginError{Plugin: p.id, Message: "unknown error"}
		if out.Error != nil {
			perr.Message = *out.Error
		}
		if out.Code != nil {
			perr.Code = *out.Code
		}
		return perr
	}

	for _, msg := range out.Messages {
		lg.AddMessage(msg)
	}
	if out.Problem {
		lg.SetProblem()
	}
	for _, tag := range out.Detections {
		lg.MarkDetected(tag)
	}
	return nil
}

func newInput(lg *mclog.Log) Input {
	in := Input{
		Content:    lg.Content(),
		Detections: lg.Detections(),
	}
	if lv, ok := lg.Loader(); ok {
		in.Loader = string(lv.Loader)
		in.LoaderVersion = string(lv.Version)
	}
	if v, ok := lg.MinecraftVersion(); ok {
		in.MinecraftVersion = string(v)
	}
	return in
}

// call runs one process invocation in a fresh module instance.
func (p *Processor) call(ctx context.Context, input []byte) (*Output, error) {
	name := fmt.Sprintf("plugin-%d", p.moduleCounter.Add(1))
	mod, err := p.compiled.runtime.InstantiateModule(ctx, p.compiled.compiled,
		wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, p.callError(ctx, "module instantiation", err)
	}
	defer mod.Close(context.Background())

	inPtr, err := writeInput(ctx, mod, input)
	if err != nil {
		return nil, p.callError(ctx, "alloc call", err)
	}

	callCtx, st := withCallState(ctx)
	results, err := mod.ExportedFunction("process").Call(callCtx, uint64(inPtr), uint64(len(input)))
	if err != nil {
		return nil, p.callError(ctx, "process call", err)
	}
	if err := st.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &ABIError{Function: "process", Reason: "no return value"}
	}

	// Decode return value: (out_len << 32) | out_ptr
	packed := results[0]
	outPtr := uint32(packed)
	outLen := uint32(packed >> 32)

	if outLen > MaxOutputSize {
		return nil, fmt.Errorf("plugin output too large: %d bytes (max %d)", outLen, MaxOutputSize)
	}

	outBytes, ok := mod.Memory().Read(outPtr, outLen)
	if !ok {
		return nil, &ABIError{Function: "process", Reason: "output out of memory bounds"}
	}
	// Read returns a view of plugin memory; copy it before free.
	data := make([]byte, len(outBytes))
	copy(data, outBytes)

	free := mod.ExportedFunction("free")
	_, _ = free.Call(ctx, uint64(outPtr), uint64(outLen))
	_, _ = free.Call(ctx, uint64(inPtr), uint64(len(input)))

	var out Output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal output: %w", err)
	}
	return &out, nil
}

// writeInput copies input into a buffer obtained from the plugin's alloc.
func writeInput(ctx context.Context, mod api.Module, input []byte) (uint32, error) {
	results, err := mod.ExportedFunction("alloc").Call(ctx, uint64(len(input)))
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, &ABIError{Function: "alloc", Reason: "no return value"}
	}
	ptr := uint32(results[0])
	if !mod.Memory().Write(ptr, input) {
		return 0, &ABIError{Function: "alloc", Reason: "returned buffer out of memory bounds"}
	}
	return ptr, nil
}

// callError maps context expiry to ErrTimeout or the context error and
// wraps everything else.
func (p *Processor) callError(ctx context.Context, op string, err error) error {
	var abiErr *ABIError
	if errors.As(err, &abiErr) {
		return err
	}
	switch ctx.Err() {
	case context.DeadlineExceeded:
		p.logger.Warn("wasm plugin timed out", "plugin", p.id, "timeout", p.Timeout())
		return ErrTimeout
	case context.Canceled:
		return ctx.Err()
	}
	return &WasmRuntimeError{Operation: op, Err: err}
}

// Close releases the plugin. It waits for running Process calls and is
// safe to call multiple times.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.compiled == nil {
		return nil
	}
	err := p.compiled.Close(context.Background())
	p.compiled = nil
	return err
}

var _ mclog.Processor = (*Processor)(nil)
