// Package parsers provides the built-in fact-extracting units.
// Register them in the parse stage so diagnostic processors can read the
// facts they record.
package parsers

import (
	"context"

	"github.com/mclog/mclog-go/pkg/mclog"
)

// ForgeAdvisory is appended when the Forge loader is detected.
const ForgeAdvisory = "**It looks like you're using the Forge Loader.** " +
	"Please note that we do not fully support Forge yet but are currently in the works to do so, " +
	"while we can provide semi-accurate logs not everything will work as intended. " +
	"Thank you for understanding."

// LoaderParser detects the mod loader and its version.
//
// Patterns are tried in declaration order and the first match wins across
// the whole list, so at most one loader is recorded per log. A log that
// matches nothing is left untouched.
type LoaderParser struct{}

// Identifier implements mclog.Processor.
func (LoaderParser) Identifier() string { return "loader" }

// Order implements mclog.Processor.
func (LoaderParser) Order() mclog.Order { return mclog.OrderEarlier }

// Process implements mclog.Processor.
func (LoaderParser) Process(ctx context.Context, lg *mclog.Log) error {
	m, ok := loaderPatterns.FindFirst(lg.Content())
	if !ok {
		return nil
	}

	lg.SetLoader(m.Tag, mclog.Version(m.Group(1)))

	if m.Tag == mclog.LoaderForge {
		lg.AddMessage(ForgeAdvisory)
	}
	return nil
}

// Ensure LoaderParser implements Processor.
var _ mclog.Processor = LoaderParser{}
