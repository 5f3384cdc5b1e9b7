package config

// Default returns a configuration populated with built-in defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: "~/jamtracks",
			StagingDir: "~/.local/share/fretforge/staging",
			LogDir:     "~/.local/share/fretforge/logs",
		},
		Import: Import{
			Workers:          2,
			ArchiveExtension: ".psarc",
		},
		Audio: Audio{
			FFmpegBinary:    "ffmpeg",
			OutputFormat:    "ogg",
			OutputExtension: ".ogg",
			Bitrate:         "192k",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
