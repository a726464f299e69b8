package wasm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/mclog/mclog-go/internal/safefile"
)

const (
	// MaxWasmFileSize is the maximum size of a Wasm file (10MB).
	MaxWasmFileSize = 10 * 1024 * 1024

	// ExpectedABIVersion is the ABI version this implementation supports.
	ExpectedABIVersion = 1
)

// requiredExports are the functions every plugin must export.
var requiredExports = []string{"abi_version", "alloc", "free", "process"}

// CompiledWasm represents a compiled Wasm module ready for instantiation.
type CompiledWasm struct {
	runtime       wazero.Runtime
	compiled      wazero.CompiledModule
	cache         wazero.CompilationCache
	hostFunctions *hostFunctions
}

// Close releases resources held by the compiled Wasm in reverse order of
// creation. Safe to call multiple times.
func (c *CompiledWasm) Close(ctx context.Context) error {
	var errs []error
	if c.compiled != nil {
		errs = append(errs, c.compiled.Close(ctx))
		c.compiled = nil
	}
	if c.runtime != nil {
		errs = append(errs, c.runtime.Close(ctx))
		c.runtime = nil
	}
	if c.cache != nil {
		errs = append(errs, c.cache.Close(ctx))
		c.cache = nil
	}
	return errors.Join(errs...)
}

// LoadWasm reads, compiles and validates a Wasm file.
func LoadWasm(ctx context.Context, path string, logger *slog.Logger) (*CompiledWasm, error) {
	if logger == nil {
		logger = discardLogger
	}

	wasmBytes, err := safefile.ReadRegular(path, MaxWasmFileSize)
	if err != nil {
		switch {
		case errors.Is(err, safefile.ErrNotRegularFile):
			return nil, fmt.Errorf("wasm path is not a regular file: %w", err)
		case errors.Is(err, safefile.ErrTooLarge):
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("failed to read wasm file: %w", err)
	}

	// Close the module when the call context is done so timeouts interrupt
	// a running plugin.
	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)

	var cache wazero.CompilationCache
	if dir, err := cacheDir(); err == nil {
		cache, err = wazero.NewCompilationCacheWithDir(dir)
		if err == nil {
			rtConfig = rtConfig.WithCompilationCache(cache)
			logger.Debug("using wasm compilation cache", "dir", dir)
		} else {
			logger.Warn("failed to create compilation cache, continuing without cache", "error", err)
		}
	}

	cw := &CompiledWasm{
		runtime:       wazero.NewRuntimeWithConfig(ctx, rtConfig),
		cache:         cache,
		hostFunctions: newHostFunctions(logger),
	}
	fail := func(err error) (*CompiledWasm, error) {
		// The caller's context may already be cancelled.
		_ = cw.Close(context.Background())
		return nil, err
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, cw.runtime); err != nil {
		return fail(&WasmRuntimeError{Operation: "wasi instantiation", Err: err})
	}

	if err := cw.hostFunctions.register(ctx, cw.runtime); err != nil {
		return fail(&WasmRuntimeError{Operation: "host functions registration", Err: err})
	}

	cw.compiled, err = cw.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fail(&WasmRuntimeError{Operation: "wasm compilation", Err: fmt.Errorf("%w: %v", ErrInvalidWasm, err)})
	}

	if err := validateExports(cw.compiled); err != nil {
		return fail(err)
	}

	return cw, nil
}

// validateExports checks that the module exports every required function.
// The ABI version itself is checked by Load, which has to instantiate the
// module to call abi_version.
func validateExports(compiled wazero.CompiledModule) error {
	exported := compiled.ExportedFunctions()
	for _, name := range requiredExports {
		if _, ok := exported[name]; !ok {
			return &ABIError{Function: name, Reason: "missing required export"}
		}
	}
	return nil
}

// cacheDir returns the wazero compilation cache directory,
// $XDG_CACHE_HOME/mclog/wasm.
func cacheDir() (string, error) {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheHome, "mclog", "wasm")

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
