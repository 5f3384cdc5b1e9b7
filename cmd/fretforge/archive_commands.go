package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"fretforge/internal/logging"
	"fretforge/internal/psarc"
)

func newArchiveCommand() *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:         "archive",
		Short:       "Inspect game-asset archives",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	archiveCmd.AddCommand(newArchiveEntriesCommand())
	archiveCmd.AddCommand(newArchiveManifestsCommand())

	return archiveCmd
}

func openArchive(path string) (*psarc.Archive, error) {
	buffer, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return psarc.Open(buffer)
}

func newArchiveEntriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "entries <archive.psarc>",
		Short: "List the archive's table of contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, 0, archive.EntryCount())
			for index := 0; index < archive.EntryCount(); index++ {
				entry, err := archive.Entry(index)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					strconv.Itoa(entry.Index),
					entry.Path,
					strconv.FormatInt(entry.UncompressedSize, 10),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Index", "Path", "Size"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newArchiveManifestsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "manifests <archive.psarc>",
		Short: "Summarize the archive's song manifests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(args[0])
			if err != nil {
				return err
			}

			manifests := archive.Manifests(logging.NewNop())
			keys := make([]string, 0, len(manifests))
			for key := range manifests {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				manifest := manifests[key]
				rows = append(rows, []string{
					key,
					manifest.ArtistName,
					manifest.SongName,
					manifest.ArrangementName,
					fmt.Sprintf("%.1fs", manifest.SongLengthSeconds),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Key", "Artist", "Song", "Arrangement", "Length"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
