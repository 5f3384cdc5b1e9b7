package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"fretforge/internal/importer"
	"fretforge/internal/library"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "import <archive.psarc>",
		Short: "Import every song in a game-asset archive into the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Import.Workers = workers
			}

			lock := flock.New(filepath.Join(cfg.Paths.LibraryDir, ".fretforge.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire library lock: %w", err)
			}
			if !locked {
				return errors.New("another fretforge import holds the library lock")
			}
			defer func() { _ = lock.Unlock() }()

			store, err := library.Open(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			imp := importer.New(cfg, store, logger)
			var bar *progressbar.ProgressBar
			if stdoutIsTerminal() {
				bar = progressbar.NewOptions(-1,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("Importing songs..."),
					progressbar.OptionShowCount(),
					progressbar.OptionSetTheme(progressbar.ThemeASCII),
				)
				imp.Progress = func(string, error) { _ = bar.Add(1) }
			}

			result, err := imp.Run(runCtx, args[0])
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(os.Stderr)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d imported, %d failed\n", len(result.Imported), len(result.Errors))
			for _, song := range result.Imported {
				fmt.Fprintf(out, "  imported: %s\n", song)
			}
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "  failed:   %s: %v\n", failure.Song, failure.Err)
			}
			if len(result.Imported) == 0 && len(result.Errors) > 0 {
				return errors.New("no songs could be imported")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Override the concurrent song worker count")
	return cmd
}
