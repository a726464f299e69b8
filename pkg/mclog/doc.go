// Package mclog annotates Minecraft server logs with human-readable
// diagnostics.
//
// This package allows you to:
//   - Detect the mod loader, game version and other facts in a log
//   - Recognise known crash and error signatures
//   - Attach explanations and "how to fix" guidance to a log
//   - Add your own detection rules in Go, YAML or WebAssembly
//
// # Basic Usage
//
// Build a pipeline with the built-in units and run it on raw log text:
//
//	p, err := builtin.NewPipeline()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	lg, err := p.Run(ctx, content)
//	if err != nil {
//	    // One or more units failed; lg still holds everything the
//	    // remaining units found.
//	    log.Printf("warning: %v", err)
//	}
//	for _, msg := range lg.Messages() {
//	    fmt.Println(msg)
//	}
//
// # Stages and Order
//
// A [Pipeline] has two stages. Parsers ([StageParse]) extract structured
// facts such as the loader version; diagnostic processors ([StageProcess])
// run afterwards and may read those facts. Within a stage, units run by
// [Order] and then by registration order, so a run is reproducible.
//
// # Custom Processors
//
// Implement the [Processor] interface:
//
//	type Processor interface {
//	    Identifier() string
//	    Order() Order
//	    Process(ctx context.Context, log *Log) error
//	}
//
// or adapt a function with [Func]:
//
//	p.AddProcessor(mclog.Func("eula", mclog.OrderDefault, func(ctx context.Context, lg *mclog.Log) error {
//	    if strings.Contains(lg.Content(), "agree to the EULA") {
//	        lg.AddProblem(mclog.Diagnostic{Title: "EULA not accepted"})
//	    }
//	    return nil
//	}))
//
// Patterns should be compiled once, for example with [MustTable] at package
// level, so that a malformed pattern fails at start-up instead of during a
// run.
//
// # YAML Rules
//
// For detection rules without code, use the rules subpackage.
package mclog
