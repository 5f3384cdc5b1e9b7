package config

import (
	"fmt"
	"strings"
)

const maxImportWorkers = 16

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.LibraryDir == "" {
		problems = append(problems, "paths.library_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		problems = append(problems, "paths.staging_dir must be set")
	}
	if c.Paths.LibraryDir != "" && c.Paths.LibraryDir == c.Paths.StagingDir {
		problems = append(problems, "paths.staging_dir must differ from paths.library_dir")
	}

	if c.Import.Workers > maxImportWorkers {
		problems = append(problems, fmt.Sprintf("import.workers must be at most %d", maxImportWorkers))
	}
	if !strings.HasPrefix(c.Import.ArchiveExtension, ".") {
		problems = append(problems, "import.archive_extension must start with a dot")
	}

	if c.Audio.FFmpegBinary == "" {
		problems = append(problems, "audio.ffmpeg_binary must be set")
	}
	switch c.Audio.OutputFormat {
	case "ogg", "mp3", "flac", "ipod":
	default:
		problems = append(problems, fmt.Sprintf("audio.output_format %q is not supported", c.Audio.OutputFormat))
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not supported", c.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
