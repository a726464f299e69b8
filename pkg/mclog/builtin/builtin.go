// Package builtin wires the units shipped with mclog into a pipeline.
package builtin

import (
	"github.com/mclog/mclog-go/pkg/mclog"
	"github.com/mclog/mclog-go/pkg/mclog/parsers"
	"github.com/mclog/mclog-go/pkg/mclog/plugins/powergems"
	"github.com/mclog/mclog-go/pkg/mclog/rules"
)

// Parsers returns the built-in parse stage units.
func Parsers() []mclog.Processor {
	return []mclog.Processor{
		parsers.LoaderParser{},
		parsers.MinecraftVersionParser{},
	}
}

// Processors returns the built-in diagnostic processors: the PowerGems
// command processor and the embedded rule file.
func Processors() ([]mclog.Processor, error) {
	rp, err := rules.BuiltinProcessor()
	if err != nil {
		return nil, err
	}
	return []mclog.Processor{
		powergems.CommandProcessor{},
		rp,
	}, nil
}

// NewPipeline creates a pipeline with every built-in unit registered
// first. Units added through opts are registered after them.
func NewPipeline(opts ...mclog.Option) (*mclog.Pipeline, error) {
	procs, err := Processors()
	if err != nil {
		return nil, err
	}
	all := make([]mclog.Option, 0, len(opts)+2)
	all = append(all, mclog.WithParsers(Parsers()...), mclog.WithProcessors(procs...))
	all = append(all, opts...)
	return mclog.New(all...)
}
