package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"fretforge/internal/config"
	"fretforge/internal/logging"
	"fretforge/internal/services"
)

// Transcoder converts raw archive audio into the configured playback format
// by piping it through ffmpeg. Streams never touch disk; ffmpeg reads stdin
// and writes stdout.
type Transcoder struct {
	binary  string
	format  string
	bitrate string
	logger  *slog.Logger
}

// NewTranscoder builds a Transcoder from the audio config.
func NewTranscoder(cfg *config.Config, logger *slog.Logger) *Transcoder {
	return &Transcoder{
		binary:  cfg.Audio.FFmpegBinary,
		format:  cfg.Audio.OutputFormat,
		bitrate: cfg.Audio.Bitrate,
		logger:  logging.NewComponentLogger(logger, "audio"),
	}
}

// Transcode converts src into the target format and returns the encoded bytes.
func (t *Transcoder) Transcode(ctx context.Context, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, transcodeErr("transcode", "source stream is empty", nil)
	}
	binary, err := exec.LookPath(t.binary)
	if err != nil {
		return nil, transcodeErr("resolve binary", fmt.Sprintf("%s not found on PATH", t.binary), err)
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-f", t.format,
		"-b:a", t.bitrate,
		"pipe:1",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = bytes.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger.Debug("transcoding stream",
		logging.Int("source_bytes", len(src)),
		logging.String("format", t.format),
		logging.String("bitrate", t.bitrate))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transcodeErr("run ffmpeg", stderrDetail(&stderr), err)
	}
	if stdout.Len() == 0 {
		return nil, transcodeErr("run ffmpeg", "ffmpeg produced no output", nil)
	}
	return stdout.Bytes(), nil
}

func stderrDetail(stderr *bytes.Buffer) string {
	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		return "ffmpeg exited with an error"
	}
	const limit = 500
	if len(detail) > limit {
		detail = detail[:limit] + "..."
	}
	return detail
}

func transcodeErr(operation, message string, err error) error {
	return services.Wrap(services.ErrTranscode, "audio", operation, message, err)
}
