package config

import "strings"

// normalize expands paths and fills blanks from defaults so validation can
// assume clean values.
func (c *Config) normalize() error {
	defaults := Default()

	for _, field := range []struct {
		value    *string
		fallback string
	}{
		{&c.Paths.LibraryDir, defaults.Paths.LibraryDir},
		{&c.Paths.StagingDir, defaults.Paths.StagingDir},
		{&c.Paths.LogDir, defaults.Paths.LogDir},
	} {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			trimmed = field.fallback
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field.value = expanded
	}

	c.Import.ArchiveExtension = normalizeExtension(c.Import.ArchiveExtension, defaults.Import.ArchiveExtension)
	if c.Import.Workers <= 0 {
		c.Import.Workers = defaults.Import.Workers
	}

	c.Audio.FFmpegBinary = fallback(c.Audio.FFmpegBinary, defaults.Audio.FFmpegBinary)
	c.Audio.OutputFormat = strings.ToLower(fallback(c.Audio.OutputFormat, defaults.Audio.OutputFormat))
	c.Audio.OutputExtension = normalizeExtension(c.Audio.OutputExtension, defaults.Audio.OutputExtension)
	c.Audio.Bitrate = fallback(c.Audio.Bitrate, defaults.Audio.Bitrate)

	c.Logging.Format = strings.ToLower(fallback(c.Logging.Format, defaults.Logging.Format))
	c.Logging.Level = strings.ToLower(fallback(c.Logging.Level, defaults.Logging.Level))

	return nil
}

func fallback(value, def string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def
	}
	return trimmed
}

func normalizeExtension(value, def string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return def
	}
	if !strings.HasPrefix(trimmed, ".") {
		trimmed = "." + trimmed
	}
	return trimmed
}
