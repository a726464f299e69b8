package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mclog/mclog-go/internal/logfinder"
	"github.com/mclog/mclog-go/internal/safefile"
	"github.com/mclog/mclog-go/pkg/mclog"
)

// maxInputSize is the largest log accepted from a file or stdin.
const maxInputSize = 64 * 1024 * 1024

// stdinSource is the source name used for standard input.
const stdinSource = "-"

var (
	// analyze flags
	format         string
	ruleFiles      []string
	pluginFiles    []string
	pluginTimeout  time.Duration
	noBuiltin      bool
	failOnProblems bool
	jobs           int
	fromServer     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Analyze log files and print diagnostics",
	Long: `Analyze Minecraft server logs or crash reports and print diagnostics.

Standard input is read when no file is given or the file is "-".
Files are analyzed concurrently; results are printed in argument order.

Examples:
  # Analyze the current server log
  mclog analyze logs/latest.log

  # Analyze the discovered server's latest.log and newest crash report
  mclog analyze --server

  # Paste a log from the clipboard
  xclip -o | mclog analyze

  # Add custom rules and a plugin, emit JSON Lines
  mclog analyze --rules my-rules.yaml --plugins gems.wasm --format json crash.txt

  # Use in scripts: exit status 2 when a problem is found
  mclog analyze --fail-on-problems logs/latest.log`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&format, "format", "f", "",
		"Output format: pretty, markdown, json (default from config or pretty)")
	addPipelineFlags(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&failOnProblems, "fail-on-problems", false,
		"Exit with status 2 if any input has problems")
	analyzeCmd.Flags().IntVarP(&jobs, "jobs", "j", 0,
		"Number of inputs analyzed concurrently (default from config or 4)")
	analyzeCmd.Flags().BoolVar(&fromServer, "server", false,
		"Analyze the server directory's latest.log and newest crash report")

	rootCmd.AddCommand(analyzeCmd)
}

// addPipelineFlags registers the flags shared by analyze and watch.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&ruleFiles, "rules", "r", nil,
		"YAML rule files to load (can be specified multiple times)")
	cmd.Flags().StringSliceVar(&pluginFiles, "plugins", nil,
		"Wasm plugin files to load (can be specified multiple times)")
	cmd.Flags().DurationVar(&pluginTimeout, "plugin-timeout", 0,
		"Per-call plugin timeout (default from config or 250ms)")
	cmd.Flags().BoolVar(&noBuiltin, "no-builtin", false,
		"Disable the built-in parsers and processors")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	outFormat := format
	if outFormat == "" {
		outFormat = cfg.Output.GetFormat()
	}
	if !validFormats[outFormat] {
		return fmt.Errorf("invalid --format %q (want pretty, markdown or json)", outFormat)
	}

	sources := args
	if fromServer {
		found, err := serverSources(cfg.Watch.ServerDir)
		if err != nil {
			return err
		}
		sources = append(sources, found...)
	}
	if len(sources) == 0 {
		sources = []string{stdinSource}
	}

	n := jobs
	if n <= 0 {
		n = cfg.Analyze.GetJobs()
	}

	p, cleanup, err := buildPipeline(ctx,
		pipelineOptionsFromConfig(cfg, ruleFiles, pluginFiles, pluginTimeout, noBuiltin), logger)
	defer cleanup()
	if err != nil {
		return err
	}

	reports := analyzeAll(ctx, p, sources, cmd.InOrStdin(), n)

	out := cmd.OutOrStdout()
	var problems, failed bool
	for i, r := range reports {
		if i > 0 && outFormat == "pretty" {
			fmt.Fprintln(out)
		}
		if err := outputReport(outFormat, r, out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		if r.Result.HasProblems {
			problems = true
		}
		if readFailed(r.Err) {
			failed = true
		}
	}

	switch {
	case failed:
		return &exitError{code: 1}
	case failOnProblems && problems:
		return &exitError{code: 2}
	}
	return nil
}

// analyzeAll runs the pipeline over every source with at most n runs in
// flight. Reports are returned in source order.
func analyzeAll(ctx context.Context, p *mclog.Pipeline, sources []string, stdin io.Reader, n int) []report {
	reports := make([]report, len(sources))
	sem := make(chan struct{}, n)
	var wg sync.WaitGroup
	var stdinOnce sync.Once
	var stdinData string
	var stdinErr error

	for i, src := range sources {
		wg.Go(func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			var content string
			var err error
			if src == stdinSource {
				stdinOnce.Do(func() { stdinData, stdinErr = readInput(stdin) })
				content, err = stdinData, stdinErr
			} else {
				content, err = readFile(src)
			}
			if err != nil {
				reports[i] = report{Source: src, Err: &readError{err: err}}
				return
			}

			lg, runErr := p.Run(ctx, content)
			logger.Debug("analyzed input", "source", src, "bytes", len(content),
				"messages", len(lg.Messages()), "problems", lg.HasProblems())
			reports[i] = report{Source: src, Result: lg.Result(), Err: runErr}
		})
	}
	wg.Wait()
	return reports
}

// readError marks a failure to read an input, as opposed to unit failures
// during the run.
type readError struct {
	err error
}

func (e *readError) Error() string { return "read failed: " + e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

func readFailed(err error) bool {
	var re *readError
	return errors.As(err, &re)
}

func readFile(path string) (string, error) {
	data, err := safefile.ReadRegular(path, maxInputSize)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readInput(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxInputSize {
		return "", fmt.Errorf("%w: more than %d bytes", safefile.ErrTooLarge, maxInputSize)
	}
	return string(data), nil
}

// serverSources returns the latest log and newest crash report of the
// server directory. Either may be missing, but not both.
func serverSources(explicit string) ([]string, error) {
	dir, err := logfinder.FindServerDir(explicit)
	if err != nil {
		return nil, err
	}
	var sources []string
	if p, err := logfinder.FindLatestLogFile(dir); err == nil {
		sources = append(sources, p)
	}
	if p, err := logfinder.FindLatestCrashReport(dir); err == nil {
		sources = append(sources, p)
	}
	if len(sources) == 0 {
		return nil, logfinder.ErrNoLogFiles
	}
	return sources, nil
}
