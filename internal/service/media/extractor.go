// Package media extracts a speech-ready audio track from a video container.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"voice-relay-bot/internal/models"
)

var (
	// ErrNoAudioTrack means the container has no audio stream to extract.
	ErrNoAudioTrack = errors.New("no audio track in media")
	// ErrOutputTooSmall means the transcoder succeeded but produced no usable audio.
	ErrOutputTooSmall = errors.New("extraction produced no usable audio")
	// ErrTranscoder wraps any other transcoder failure.
	ErrTranscoder = errors.New("transcoder failed")
)

// OutputMIMEType is the MIME label of extracted audio.
const OutputMIMEType = "audio/ogg"

// noAudioMarkers are ffmpeg diagnostics printed when the audio map is empty.
var noAudioMarkers = []string{
	"matches no streams",
	"does not contain any stream",
	"Output file is empty",
}

// Config configures the Extractor.
type Config struct {
	FFmpegPath     string // default "ffmpeg"
	MinOutputBytes int    // default 1024
	TempDir        string // default os.TempDir()
}

// Extractor converts video bytes to mono 16 kHz Ogg/Opus using ffmpeg.
type Extractor struct {
	ffmpegPath     string
	minOutputBytes int
	tempDir        string
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.MinOutputBytes <= 0 {
		cfg.MinOutputBytes = 1024
	}
	return &Extractor{
		ffmpegPath:     cfg.FFmpegPath,
		minOutputBytes: cfg.MinOutputBytes,
		tempDir:        cfg.TempDir,
	}
}

// ExtractAudio writes video to a temporary file (demuxers want seekable input),
// runs ffmpeg and returns its stdout as the audio payload.
// The temporary file is removed on every path; removal errors are only logged.
func (e *Extractor) ExtractAudio(ctx context.Context, video []byte) (models.AudioPayload, error) {
	logger := zerolog.Ctx(ctx)

	f, err := os.CreateTemp(e.tempDir, "video-*.mp4")
	if err != nil {
		return models.AudioPayload{}, fmt.Errorf("%w: create temp file: %v", ErrTranscoder, err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to remove temp file")
		}
	}()

	if _, err := f.Write(video); err != nil {
		f.Close()
		return models.AudioPayload{}, fmt.Errorf("%w: write temp file: %v", ErrTranscoder, err)
	}
	if err := f.Close(); err != nil {
		return models.AudioPayload{}, fmt.Errorf("%w: close temp file: %v", ErrTranscoder, err)
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, Args(path)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if hasNoAudio(diag) {
			return models.AudioPayload{}, ErrNoAudioTrack
		}
		return models.AudioPayload{}, fmt.Errorf("%w: %v: %s", ErrTranscoder, err, lastLine(diag))
	}

	if stdout.Len() < e.minOutputBytes {
		return models.AudioPayload{}, fmt.Errorf("%w: %d bytes", ErrOutputTooSmall, stdout.Len())
	}

	logger.Debug().
		Int("inputBytes", len(video)).
		Int("outputBytes", stdout.Len()).
		Msg("Extracted audio track")

	return models.AudioPayload{Data: stdout.Bytes(), MIMEType: OutputMIMEType}, nil
}

// Args returns the ffmpeg arguments used for input path:
// drop video, take the first audio stream, mono 16 kHz low-bitrate Opus,
// regenerate timestamps and shift negative ones, write Ogg to stdout.
func Args(input string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-fflags", "+genpts",
		"-i", input,
		"-vn",
		"-map", "0:a:0",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "libopus",
		"-b:a", "24k",
		"-avoid_negative_ts", "make_zero",
		"-f", "ogg",
		"pipe:1",
	}
}

// Reason maps an extraction error to a short metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNoAudioTrack):
		return "no_audio"
	case errors.Is(err, ErrOutputTooSmall):
		return "too_small"
	default:
		return "transcoder"
	}
}

func hasNoAudio(diag string) bool {
	for _, m := range noAudioMarkers {
		if strings.Contains(diag, m) {
			return true
		}
	}
	return false
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
