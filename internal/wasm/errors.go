// Package wasm runs third-party diagnostic processors compiled to
// WebAssembly.
//
// A plugin receives the log content and the facts recorded by earlier units
// as JSON, and answers with messages, a problem flag and detection tags.
package wasm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWasm is returned by Load when the file does not compile as a
	// WebAssembly module.
	ErrInvalidWasm = errors.New("invalid wasm file")

	// ErrABIVersionMismatch is returned by Load when abi_version differs
	// from ExpectedABIVersion.
	ErrABIVersionMismatch = errors.New("abi version mismatch")

	// ErrTimeout is returned by Process when the plugin, or a host regex it
	// requested, did not finish within the processor timeout.
	ErrTimeout = errors.New("plugin timeout")

	// ErrFileTooLarge is returned by Load for files over MaxWasmFileSize.
	ErrFileTooLarge = errors.New("wasm file too large")

	// ErrInputTooLarge is returned by Process when the encoded log exceeds
	// MaxInputSize. The plugin is not called.
	ErrInputTooLarge = errors.New("plugin input too large")

	// ErrClosed is returned by Process after Close.
	ErrClosed = errors.New("plugin is closed")
)

// ABIError reports a plugin that breaks the calling convention: a missing
// export, a missing return value or a buffer outside its memory.
type ABIError struct {
	// Function is the export or host function involved.
	Function string
	Reason   string
}

func (e *ABIError) Error() string {
	return fmt.Sprintf("plugin abi: %s: %s", e.Function, e.Reason)
}

// PluginError is a failure the plugin reported itself, by answering with
// "ok": false. None of the Output's messages are applied to the log.
type PluginError struct {
	// Plugin is the processor identifier, such as "wasm:modcheck".
	Plugin string

	// Code is the Output's optional machine-readable "code", for example
	// "E_INPUT". Empty when the plugin did not set one.
	Code string

	// Message is the Output's "error" text.
	Message string
}

func (e *PluginError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s reported %s: %s", e.Plugin, e.Code, e.Message)
	}
	return fmt.Sprintf("%s reported: %s", e.Plugin, e.Message)
}

// WasmRuntimeError wraps a wazero failure while loading or calling a plugin.
type WasmRuntimeError struct {
	// Operation names the step that failed, such as "process call".
	Operation string
	Err       error
}

func (e *WasmRuntimeError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the wazero error.
func (e *WasmRuntimeError) Unwrap() error {
	return e.Err
}
