package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mclog/mclog-go/internal/config"
	"github.com/mclog/mclog-go/internal/wasm"
	"github.com/mclog/mclog-go/pkg/mclog"
	"github.com/mclog/mclog-go/pkg/mclog/builtin"
	"github.com/mclog/mclog-go/pkg/mclog/rules"
)

// pipelineOptions selects the units of the analysis pipeline.
type pipelineOptions struct {
	ruleFiles     []string
	pluginFiles   []string
	pluginTimeout time.Duration
	noBuiltin     bool
}

// buildPipeline builds a Pipeline from the built-in units, rule files and
// plugin files.
// Returns a cleanup function that must be called to release plugin
// resources (use defer). The cleanup function is always non-nil, even on error.
// If pluginTimeout is > 0, it is applied to all loaded plugins.
func buildPipeline(ctx context.Context, opts pipelineOptions, logger *slog.Logger) (*mclog.Pipeline, func(), error) {
	noop := func() {}

	var procs []mclog.Processor
	var cleanups []func()
	cleanup := func() {
		for _, c := range cleanups {
			c()
		}
	}

	for i, path := range opts.ruleFiles {
		rp, err := rules.NewProcessorFromFile(path)
		if err != nil {
			// Error from rules package is already sanitized (no path)
			return nil, noop, fmt.Errorf("rule file %d: %w", i+1, err)
		}
		logger.Debug("loaded rule file", "processor", rp.Identifier(), "rules", rp.Len())
		procs = append(procs, rp)
	}

	for i, path := range opts.pluginFiles {
		wp, err := wasm.Load(ctx, path, logger)
		if err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("plugin file %d: %w", i+1, err)
		}
		if opts.pluginTimeout > 0 {
			wp.SetTimeout(opts.pluginTimeout)
		}
		logger.Debug("loaded plugin", "processor", wp.Identifier(), "timeout", wp.Timeout())
		procs = append(procs, wp)
		cleanups = append(cleanups, func() { wp.Close() })
	}

	pipelineOpts := []mclog.Option{
		mclog.WithLogger(logger),
		mclog.WithProcessors(procs...),
	}

	var (
		p   *mclog.Pipeline
		err error
	)
	if opts.noBuiltin {
		p, err = mclog.New(pipelineOpts...)
	} else {
		p, err = builtin.NewPipeline(pipelineOpts...)
	}
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return p, cleanup, nil
}

// pipelineOptionsFromConfig merges config values with command line values.
// Flag values are appended to (rule and plugin files) or override (timeout,
// builtin) the config.
func pipelineOptionsFromConfig(c *config.Config, ruleFiles, pluginFiles []string, pluginTimeout time.Duration, noBuiltin bool) pipelineOptions {
	opts := pipelineOptions{
		ruleFiles:     append(append([]string(nil), c.Analyze.Rules...), ruleFiles...),
		pluginFiles:   append(append([]string(nil), c.Analyze.Plugins...), pluginFiles...),
		pluginTimeout: c.Analyze.GetPluginTimeout(),
		noBuiltin:     c.Analyze.NoBuiltin || noBuiltin,
	}
	if pluginTimeout > 0 {
		opts.pluginTimeout = pluginTimeout
	}
	return opts
}
