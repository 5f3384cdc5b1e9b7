package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fretforge/internal/library"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Browse and manage imported songs",
	}

	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	libraryCmd.AddCommand(newLibraryShowCommand(ctx))
	libraryCmd.AddCommand(newLibraryRemoveCommand(ctx))

	return libraryCmd
}

func (c *commandContext) withStore(fn func(store *library.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := library.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported songs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *library.Store) error {
				songs, err := store.ListSongs(cmd.Context())
				if err != nil {
					return err
				}
				if len(songs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Library is empty")
					return nil
				}

				rows := make([][]string, 0, len(songs))
				for _, song := range songs {
					arrangements, err := store.SongArrangements(cmd.Context(), song.ID)
					if err != nil {
						return err
					}
					rows = append(rows, []string{
						song.Artist,
						song.Title,
						strconv.Itoa(len(arrangements)),
						song.CreatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Artist", "Title", "Arrangements", "Imported"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newLibraryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <artist> <title>",
		Short: "Show a song's arrangements and artifacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *library.Store) error {
				song, err := store.FindSongByTitle(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if song == nil {
					return fmt.Errorf("no song %q by %q in the library", args[1], args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s - %s\n", song.Artist, song.Title)
				fmt.Fprintf(out, "  id:       %s\n", song.ID)
				fmt.Fprintf(out, "  audio:    %s\n", song.AudioFile)
				fmt.Fprintf(out, "  imported: %s\n", song.CreatedAt.Local().Format(time.DateTime))

				arrangements, err := store.SongArrangements(cmd.Context(), song.ID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(arrangements))
				for _, arr := range arrangements {
					rows = append(rows, []string{arr.Name, arr.NotationFile, arr.TimingFile})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Arrangement", "Notation", "Timing"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newLibraryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <artist> <title>",
		Short: "Remove a song and its artifacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *library.Store) error {
				song, err := store.FindSongByTitle(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if song == nil {
					return fmt.Errorf("no song %q by %q in the library", args[1], args[0])
				}
				if _, err := store.DeleteSong(cmd.Context(), song.ID); err != nil {
					return err
				}
				if err := os.RemoveAll(library.SongDir(cfg.Paths.LibraryDir, song.Artist, song.Title)); err != nil {
					return fmt.Errorf("remove artifacts: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s - %s\n", song.Artist, song.Title)
				return nil
			})
		},
	}
}
