package rules

import (
	_ "embed"
	"fmt"
)

//go:embed builtin.yaml
var builtinYAML []byte

// BuiltinYAML returns the source of the default rule file.
func BuiltinYAML() []byte {
	out := make([]byte, len(builtinYAML))
	copy(out, builtinYAML)
	return out
}

// Builtin returns the default rule file covering common server start-up
// failures. Each call returns a fresh copy.
func Builtin() (*RuleFile, error) {
	rf, err := LoadBytes(builtinYAML)
	if err != nil {
		return nil, fmt.Errorf("builtin rules: %w", err)
	}
	return rf, nil
}

// BuiltinProcessor compiles the default rule file.
func BuiltinProcessor() (*Processor, error) {
	rf, err := Builtin()
	if err != nil {
		return nil, err
	}
	return NewProcessor(rf)
}
