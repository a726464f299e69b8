// Command mclog analyzes Minecraft server logs and prints diagnostics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mclog/mclog-go/internal/config"
	"github.com/mclog/mclog-go/internal/logging"
)

var (
	// global flags
	configPath string
	verbose    bool
	logLevel   string

	// cfg is loaded in PersistentPreRunE and is never nil afterwards.
	cfg = &config.Config{}

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "mclog",
	Short: "Diagnose Minecraft server logs",
	Long: `mclog reads Minecraft server logs and crash reports, detects the mod
loader and game version, and explains known errors with concrete fixes.

Settings are read from $XDG_CONFIG_HOME/mclog/config.toml (or --config)
and can be overridden with MCLOG_FORMAT, MCLOG_LOG_LEVEL and
MCLOG_SERVER_DIR.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default $XDG_CONFIG_HOME/mclog/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log debug information to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
}

// setup loads configuration and installs the stderr logger.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	loaded.ApplyEnv(nil)
	cfg = loaded

	level := cfg.Output.GetLogLevel()
	if logLevel != "" {
		level = logLevel
	}
	if verbose {
		level = "debug"
	}
	logger = logging.InitWriter(cmd.ErrOrStderr(), false, logging.ParseLevel(level))
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadDefault()
	}
	return config.Load(path)
}

// exitError carries a process exit code without printing a message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
