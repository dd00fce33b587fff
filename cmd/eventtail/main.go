// eventtail follows the transcript result topics and prints each event.
package main

import (
	"context"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	cli "github.com/spf13/pflag"

	"voice-relay-bot/internal/config"
	"voice-relay-bot/internal/observability/logging"
)

func main() {
	cfg := config.Load()

	brokers := cli.StringP("brokers", "b", strings.Join(cfg.Kafka.Brokers, ","), "Kafka brokers (comma-separated)")
	topicCompleted := cli.String("topic-completed", cfg.Kafka.TopicCompleted, "Completed transcript topic")
	topicFailed := cli.String("topic-failed", cfg.Kafka.TopicFailed, "Failed job topic")
	group := cli.StringP("group", "g", "", "Consumer group; empty reads partition 0 without committing offsets")
	since := cli.DurationP("since", "s", time.Hour, "Start this far back (partition mode only)")
	cli.Parse()

	logging.Init(logging.Config{Level: cfg.Observability.LogLevel, Format: "console"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("brokers", *brokers).
		Str("topicCompleted", *topicCompleted).
		Str("topicFailed", *topicFailed).
		Str("group", *group).
		Msg("Following transcript events")

	var wg sync.WaitGroup
	for _, topic := range []string{*topicCompleted, *topicFailed} {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			consume(ctx, strings.Split(*brokers, ","), topic, *group, *since)
		}(topic)
	}
	wg.Wait()
}

func consume(ctx context.Context, brokers []string, topic, group string, since time.Duration) {
	rc := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	reader := kafka.NewReader(rc)
	defer reader.Close()

	if group == "" {
		if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("Failed to seek, reading from the start")
		}
	}

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("topic", topic).Msg("Kafka read error")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		line, err := Describe(msg.Value)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Int64("offset", msg.Offset).Msg("Skipping undecodable event")
			continue
		}
		log.Info().Str("topic", topic).Str("key", string(msg.Key)).Msg(line)
	}
}
