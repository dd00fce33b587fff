// audioclient runs a local audio or video file through the transcription
// pipeline and prints the reply the bot would send.
package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	cli "github.com/spf13/pflag"

	"voice-relay-bot/internal/app"
	"voice-relay-bot/internal/bot"
	"voice-relay-bot/internal/config"
	"voice-relay-bot/internal/models"
	"voice-relay-bot/internal/observability/logging"
	"voice-relay-bot/internal/service/audio"
	"voice-relay-bot/internal/service/media"
	"voice-relay-bot/internal/transport/proxy"
)

func main() {
	file := cli.StringP("file", "f", "", "Path to an audio file, or a video file with --video")
	mimeType := cli.StringP("mime", "m", "", "MIME type of the audio (default: from the file extension, else audio/ogg)")
	video := cli.BoolP("video", "v", false, "Extract the audio track with ffmpeg before transcribing")
	provider := cli.StringP("provider", "p", "", "Transcription provider: gemini or mock (default: STT_PROVIDER)")
	timeout := cli.DurationP("timeout", "t", 5*time.Minute, "Overall deadline including retries")
	cli.Parse()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: "console",
	})

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: audioclient --file <path> [--mime type] [--video] [--provider gemini|mock]")
		cli.PrintDefaults()
		os.Exit(2)
	}
	if *provider != "" {
		cfg.AI.Provider = strings.ToLower(*provider)
	}
	if cfg.AI.APIKey == "" && cfg.AI.Provider != "mock" {
		log.Error().Msg("GEMINI_API_KEY not set (use --provider mock for an offline run)")
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = log.Logger.WithContext(ctx)

	httpClient, err := proxy.NewHTTPClient(cfg.Network.ProxyAddr, proxy.DefaultTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build HTTP client")
	}
	transcriber, err := app.NewTranscriber(ctx, cfg, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create transcriber")
	}

	extractor := media.New(media.Config{
		FFmpegPath:     cfg.Media.FFmpegPath,
		MinOutputBytes: cfg.Media.MinOutputBytes,
	})
	pipeline := audio.NewPipeline(nil, extractor, transcriber, app.PipelineConfig(cfg))

	payload := models.AudioPayload{Data: data, MIMEType: *mimeType}
	if *video {
		log.Info().Str("file", *file).Int("bytes", len(data)).Msg("Extracting audio track")
		payload, err = pipeline.Extract(ctx, data)
		if err != nil {
			log.Fatal().Err(err).Str("reason", media.Reason(err)).Msg("Extraction failed")
		}
	} else if payload.MIMEType == "" {
		payload.MIMEType = mimeFromExt(*file)
	}

	log.Info().
		Str("provider", cfg.AI.Provider).
		Str("mimeType", payload.MIMEType).
		Int("bytes", len(payload.Data)).
		Msg("Transcribing")

	start := time.Now()
	res, err := pipeline.Transcribe(ctx, payload)
	if err != nil {
		log.Fatal().Err(err).Msg("Transcription failed")
	}
	log.Info().Dur("duration", time.Since(start)).Msg("Transcription complete")

	for i, reply := range bot.FormatReply(res) {
		if i > 0 {
			fmt.Println("---")
		}
		fmt.Println(reply.Text)
	}
}

// mimeFromExt guesses an audio MIME type from the file extension.
// An empty result lets the pipeline fall back to audio/ogg.
func mimeFromExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".ogg", ".oga", ".opus":
		return "audio/ogg"
	case ".m4a":
		return "audio/x-m4a"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	}
	t, _, _ := strings.Cut(mime.TypeByExtension(ext), ";")
	if strings.HasPrefix(t, "audio/") {
		return t
	}
	return ""
}
