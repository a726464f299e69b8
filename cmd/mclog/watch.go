package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mclog/mclog-go/internal/logfinder"
	"github.com/mclog/mclog-go/internal/monitor"
	"github.com/mclog/mclog-go/internal/tailer"
	"github.com/mclog/mclog-go/pkg/mclog"
)

var (
	// watch flags
	watchFormat string
	serverDir   string
	fromStart   bool
	replayLast  int
	waitForLog  bool
	poll        bool
	quietPeriod time.Duration
	maxLines    int
	dedupTTL    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Follow a server log and print diagnostics as errors appear",
	Long: `Follow a Minecraft server log in real-time and print diagnostics.

Lines are collected until the log stays quiet for a moment (or the
excerpt grows too large) and then analyzed. A diagnostic that was already
printed is not repeated until the dedup TTL expires.

When no file is given, logs/latest.log of the server directory is
followed. The server directory is --server-dir, MCLOG_SERVER_DIR, the
config file's watch.server_dir, or the current directory.

Examples:
  # Follow the server in the current directory
  mclog watch

  # Follow a specific server, waiting for it to start
  mclog watch --server-dir /srv/minecraft --wait

  # Check the last 500 lines, then keep following
  mclog watch --replay-last 500

  # Re-read the whole file first, emit JSON Lines
  mclog watch --from-start --format json logs/latest.log`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "",
		"Output format: pretty, markdown, json (default from config or pretty)")
	watchCmd.Flags().StringVarP(&serverDir, "server-dir", "d", "",
		"Server directory (auto-detected if not specified)")
	watchCmd.Flags().BoolVar(&fromStart, "from-start", false,
		"Analyze the existing content before following")
	watchCmd.Flags().IntVarP(&replayLast, "replay-last", "n", 0,
		"Analyze the last N lines before following (0 = none)")
	watchCmd.Flags().BoolVarP(&waitForLog, "wait", "w", false,
		"Wait for logs/latest.log to be created (server not started yet)")
	watchCmd.Flags().BoolVar(&poll, "poll", false,
		"Poll for changes instead of using file notifications")
	watchCmd.Flags().DurationVar(&quietPeriod, "quiet-period", 0,
		"Idle time that ends an excerpt (default from config or 2s)")
	watchCmd.Flags().IntVar(&maxLines, "max-lines", 0,
		"Maximum lines per excerpt (default from config or 2000)")
	watchCmd.Flags().DurationVar(&dedupTTL, "dedup-ttl", 0,
		"Suppress repeated diagnostics for this long, 0 disables (default from config or 10m)")
	addPipelineFlags(watchCmd)

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	outFormat := watchFormat
	if outFormat == "" {
		outFormat = cfg.Output.GetFormat()
	}
	if !validFormats[outFormat] {
		return fmt.Errorf("invalid --format %q (want pretty, markdown or json)", outFormat)
	}

	path, err := watchTarget(ctx, args)
	if err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(ctx,
		pipelineOptionsFromConfig(cfg, ruleFiles, pluginFiles, pluginTimeout, noBuiltin), logger)
	defer cleanup()
	if err != nil {
		return err
	}

	tl, err := tailer.New(ctx, path, tailer.Config{
		FromStart:   fromStart,
		ReOpen:      true,
		Poll:        poll,
		MustExist:   true,
		ReplayLines: replayLast,
	})
	if err != nil {
		return err
	}
	defer tl.Stop()

	logger.Info("watching log", "path", path)
	return watch(ctx, p, tl, path, monitorOptions(cmd), outFormat, cmd.OutOrStdout())
}

// watchTarget returns the file to follow.
func watchTarget(ctx context.Context, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	explicit := serverDir
	if explicit == "" {
		explicit = cfg.Watch.ServerDir
	}
	if waitForLog {
		dir := explicit
		if dir == "" {
			dir = "."
		}
		logger.Info("waiting for server log", "dir", dir)
		return logfinder.WaitForLatestLog(ctx, dir)
	}
	dir, err := logfinder.FindServerDir(explicit)
	if err != nil {
		return "", err
	}
	return logfinder.FindLatestLogFile(dir)
}

// monitorOptions merges flag values over config values.
func monitorOptions(cmd *cobra.Command) []monitor.Option {
	qp := cfg.Watch.GetQuietPeriod()
	if quietPeriod > 0 {
		qp = quietPeriod
	}
	ml := cfg.Watch.GetMaxLines()
	if maxLines > 0 {
		ml = maxLines
	}
	ttl := cfg.Watch.GetDedupTTL()
	if cmd.Flags().Changed("dedup-ttl") {
		ttl = dedupTTL
	}
	return []monitor.Option{
		monitor.WithQuietPeriod(qp),
		monitor.WithMaxLines(ml),
		monitor.WithDedupTTL(ttl),
		monitor.WithLogger(logger),
	}
}

// lineSource is the part of tailer.Tailer used by watch.
type lineSource interface {
	Lines() <-chan string
	Errors() <-chan error
}

// watch prints a report for every excerpt of src with new diagnostics until
// src closes or ctx is cancelled.
func watch(ctx context.Context, p *mclog.Pipeline, src lineSource, path string, opts []monitor.Option, outFormat string, out io.Writer) error {
	m, err := monitor.New(p, opts...)
	if err != nil {
		return err
	}
	reports := m.Run(ctx, src.Lines())
	errs := src.Errors()

	for {
		select {
		case r, ok := <-reports:
			if !ok {
				return nil
			}
			logger.Debug("excerpt analyzed", "lines", r.Lines, "suppressed", r.Suppressed)
			if err := outputReport(outFormat, report{Source: path, Result: r.Result, Err: r.Err}, out); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("read error", "error", err)
		}
	}
}
