package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cmarkley/hoard/internal/config"
	"github.com/cmarkley/hoard/internal/engine"
	"github.com/cmarkley/hoard/internal/event"
	"github.com/cmarkley/hoard/internal/job"
	"github.com/cmarkley/hoard/internal/stats"
	"github.com/cmarkley/hoard/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

//nolint:gocyclo // main CLI entry point orchestrates flag parsing and wiring
func run() int {
	var (
		workers     int
		retries     int
		yes         bool
		dryRun      bool
		noTimes     bool
		verbose     bool
		quiet       bool
		bwLimitStr  string
		logFile     string
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "hoard [flags] <jobfile>",
		Short: "Incremental mtime-based backups with concurrent copying",
		Long: `hoard reads a job file naming a destination root and a list of source
roots, copies only the files whose modification time is newer than their
mirror under the destination, and rescans attempted files until everything
is current.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "hoard %s\n", version)
				return nil
			}

			// Load optional config file defaults before logging setup.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			applyConfigDefaults(cmd, cfg.Defaults, &workers, &retries, &yes, &noTimes)
			if !cmd.Flags().Changed("bwlimit") && cfg.Defaults.BWLimit != nil {
				bwLimitStr = *cfg.Defaults.BWLimit
			}

			var bwLimit int64
			if bwLimitStr != "" {
				bwLimit, err = ui.ParseSize(bwLimitStr)
				if err != nil {
					return fmt.Errorf("invalid --bwlimit: %w", err)
				}
			}

			// Configure logging.
			logLevel := slog.LevelWarn
			if verbose {
				logLevel = slog.LevelDebug
			} else if !quiet {
				logLevel = slog.LevelInfo
			}
			textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			var logHandler slog.Handler = textHandler
			var jsonHandler slog.Handler
			if logFile != "" {
				lf, lfErr := os.Create(logFile)
				if lfErr != nil {
					return fmt.Errorf("open log file: %w", lfErr)
				}
				defer lf.Close()
				jsonHandler = slog.NewJSONHandler(lf, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})
				logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
			}
			slog.SetDefault(slog.New(logHandler))

			bj, err := job.Load(args[0])
			if err != nil {
				if errors.Is(err, job.ErrNoJob) {
					slog.Error("nothing to back up", "error", err)
					return &exitError{code: 2}
				}
				return err
			}

			if dryRun {
				slog.Info("dry run mode")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)

			// When --log is set, tee events through a logging goroutine that
			// writes structured records to the JSON file before forwarding to
			// the presenter. Per-file records never reach the terminal handler.
			presenterEvents := (<-chan event.Event)(events)
			if jsonHandler != nil {
				eventLogger := slog.New(jsonHandler)
				teed := make(chan event.Event, 256)
				go func() {
					for ev := range events {
						attrs := []any{
							"type", ev.Type.String(),
							"path", ev.Path,
							"size", ev.Size,
							"worker", ev.WorkerID,
						}
						if ev.Error != nil {
							attrs = append(attrs, "error", ev.Error.Error())
						}
						eventLogger.Info("event", attrs...)
						teed <- ev
					}
					close(teed)
				}()
				presenterEvents = teed
			}

			isTTY := ui.IsTTY(os.Stdin.Fd())
			presenter := ui.NewPresenter(ui.Config{
				Writer:    os.Stdout,
				ErrWriter: os.Stderr,
				Stats:     collector,
				Quiet:     quiet,
				Verbose:   verbose,
				IsTTY:     isTTY,
			})

			var confirm func(totalBytes int64, files int) bool
			switch {
			case yes:
				confirm = nil // proceed without asking
			case !isTTY:
				confirm = func(int64, int) bool {
					slog.Warn("stdin is not a terminal; refusing to back up without --yes")
					return false
				}
			default:
				confirm = func(totalBytes int64, files int) bool {
					prompt := fmt.Sprintf("About to back up %s in %s files. Continue?",
						ui.FormatBytes(totalBytes), ui.FormatCount(int64(files)))
					return ui.Confirm(os.Stdin, os.Stderr, prompt)
				}
			}

			engineCfg := engine.Config{
				DstRoot:   bj.Destination,
				Sources:   bj.Sources,
				Workers:   workers,
				MaxPasses: retries,
				DryRun:    dryRun,
				NoTimes:   noTimes,
				BWLimit:   bwLimit,
				Confirm:   confirm,
				Stats:     collector,
				Events:    events,
			}

			slog.Debug("starting backup",
				"destination", bj.Destination,
				"sources", bj.Sources,
				"workers", workers,
				"retries", retries,
			)

			var presenterErr error
			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenterErr = presenter.Run(presenterEvents)
			}()

			result := engine.Run(ctx, engineCfg)
			stop()
			close(events)
			presenterWg.Wait()
			if presenterErr != nil {
				fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
			}

			switch {
			case result.UpToDate:
				if !quiet {
					fmt.Fprintln(os.Stderr, "Everything's up to date!")
				}
				return nil
			case result.Declined:
				if !quiet {
					fmt.Fprintln(os.Stderr, "backup not started")
				}
				return nil
			case dryRun:
				if !quiet {
					snap := result.Stats
					fmt.Fprintf(os.Stderr, "would back up %s in %s files\n",
						ui.FormatBytes(snap.BytesTotal), ui.FormatCount(snap.FilesTotal))
				}
				return nil
			}

			if !quiet {
				if summary := presenter.Summary(); summary != "" {
					fmt.Fprintln(os.Stderr, summary)
				}
			}

			if result.Err != nil {
				slog.Error("backup incomplete", "error", result.Err)
				if result.Stats.FilesCopied > 0 {
					return &exitError{code: 1} // partial failure
				}
				return &exitError{code: 2} // total failure
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().
		IntVarP(&workers, "workers", "n", engine.DefaultWorkers, "number of concurrent copy workers")
	rootCmd.Flags().
		IntVar(&retries, "retries", engine.DefaultMaxPasses, "maximum copy passes before abandoning stale files")
	rootCmd.Flags().BoolVarP(&yes, "yes", "y", false, "back up without asking for confirmation")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "scan and report without copying")
	rootCmd.Flags().
		BoolVar(&noTimes, "no-times", false, "don't preserve mtime (disables skip detection on re-runs)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.Flags().
		StringVar(&bwLimitStr, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	rootCmd.Flags().
		StringVar(&logFile, "log", "", "write structured JSON log to FILE")

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// applyConfigDefaults applies config file defaults for flags not explicitly
// set on the CLI.
func applyConfigDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	workers *int,
	retries *int,
	yes *bool,
	noTimes *bool,
) {
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		*workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("retries") && defaults.Retries != nil {
		*retries = *defaults.Retries
	}
	if !cmd.Flags().Changed("yes") && defaults.Yes != nil {
		*yes = *defaults.Yes
	}
	if !cmd.Flags().Changed("no-times") && defaults.NoTimes != nil {
		*noTimes = *defaults.NoTimes
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
