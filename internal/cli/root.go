// Package cli wires the vitals command line: flag parsing, config merge,
// and the streaming run loop.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/vitals/internal/config"
	"github.com/rileyhilliard/vitals/internal/dashboard"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/source"
	"github.com/rileyhilliard/vitals/internal/ui"
	"github.com/rileyhilliard/vitals/internal/util"
)

// Root flags
var (
	configFlag      string
	scrollFlag      bool
	debugFlag       bool
	timeoutFlag     string
	replaySpeedFlag string
)

// rootCmd streams a health report for the given target.
var rootCmd = &cobra.Command{
	Use:   "vitals [flags] <target>",
	Short: "Live health report for instrumented processes",
	Long: `Stream a continuously updating health report for a running process,
a recording, or a remote endpoint.

The target can be:
  <pid>          A running instrumented process id
  <name>         A process display-name suffix, first match wins
  self           This vitals process itself (loopback source)
  host:port      A network endpoint streaming events
  file.vrec      A recorded event file, replayed once
  directory      A recording repository, newest chunk directory first

Examples:
  vitals 4711
  vitals petclinic
  vitals self
  vitals localhost:9404
  vitals /tmp/run.vrec --replay-speed 10`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&scrollFlag, "scroll", false, "append each report instead of redrawing in place")
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "emit diagnostics to stderr")
	rootCmd.Flags().StringVar(&timeoutFlag, "timeout", "", "seconds without a flush before reconnecting")
	rootCmd.Flags().StringVar(&replaySpeedFlag, "replay-speed", "", "speedup multiplier for recordings, 0 for unlimited")
}

func runRoot(cmd *cobra.Command, args []string) error {
	log := newLogger()

	if len(args) == 0 {
		printProcesses(cmd)
		return cmd.Usage()
	}

	settings, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	mergeFlags(cmd, settings, log)
	if settings.Debug {
		log = logger.NewDebugLogger("vitals")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup := dashboard.NewSupervisor(settings, cmd.OutOrStdout(), log)
	if err := sup.Run(ctx, args[0]); err != nil {
		// Interrupt is a normal way to leave a live dashboard.
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}

// mergeFlags overlays explicitly set flags on the loaded settings. Numeric
// flags are parsed best-effort; a bad value warns and keeps the configured
// one.
func mergeFlags(cmd *cobra.Command, settings *config.Settings, log logger.Logger) {
	if cmd.Flags().Changed("scroll") {
		settings.Scroll = scrollFlag
	}
	if cmd.Flags().Changed("debug") {
		settings.Debug = debugFlag
	}
	settings.Timeout = config.ParseIntOption(log, "timeout", timeoutFlag, settings.Timeout)
	settings.ReplaySpeed = config.ParseIntOption(log, "replay-speed", replaySpeedFlag, settings.ReplaySpeed)
}

// newLogger builds the run logger, honoring --debug before settings are
// loaded so config problems are debuggable too.
func newLogger() logger.Logger {
	if debugFlag {
		return logger.NewDebugLogger("vitals")
	}
	return logger.NewEnvLogger("vitals")
}

// printProcesses lists running instrumented processes so a bare invocation
// doubles as discovery.
func printProcesses(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	procs := source.ListProcesses()
	if len(procs) == 0 {
		fmt.Fprintln(out, "Found no running instrumented processes")
		fmt.Fprintln(out)
		return
	}
	fmt.Fprintf(out, "Found %d running %s:\n", len(procs), util.Pluralize(len(procs), "process", "processes"))
	for _, p := range procs {
		fmt.Fprintf(out, "  %s\n", p)
	}
	fmt.Fprintln(out)
}

// Execute runs the root command. Errors already carry their own formatting
// and suggestion text.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, ui.StyleError.Render(err.Error()))
		os.Exit(1)
	}
}
