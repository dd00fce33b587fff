package main

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"voice-relay-bot/internal/events"
	"voice-relay-bot/internal/models"
)

const previewRunes = 60

// Describe renders one result event as a single line.
func Describe(value []byte) (string, error) {
	var head struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return "", fmt.Errorf("decode event: %w", err)
	}

	switch head.EventType {
	case events.EventTypeCompleted:
		var ev models.TranscriptCompleted
		if err := json.Unmarshal(value, &ev); err != nil {
			return "", fmt.Errorf("decode completed event: %w", err)
		}
		tldr := ""
		if ev.TLDR != nil {
			tldr = " tldr=" + truncate(*ev.TLDR, previewRunes)
		}
		return fmt.Sprintf("completed job=%s chat=%d kind=%s %dms text=%q%s",
			ev.JobID, ev.ChatID, ev.Kind, ev.DurationMs, truncate(ev.Text, previewRunes), tldr), nil

	case events.EventTypeFailed:
		var ev models.TranscriptFailed
		if err := json.Unmarshal(value, &ev); err != nil {
			return "", fmt.Errorf("decode failed event: %w", err)
		}
		return fmt.Sprintf("failed job=%s chat=%d kind=%s stage=%s %dms error=%q",
			ev.JobID, ev.ChatID, ev.Kind, ev.Stage, ev.DurationMs, ev.Error), nil

	default:
		return "", fmt.Errorf("unknown event type %q", head.EventType)
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
