package bot

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"voice-relay-bot/internal/models"
)

// Fixed user-facing texts.
const (
	FailureText = "Sorry, I couldn't process your message. Please try again later."

	UnsupportedFormatText = "Sorry, this audio format is not supported. " +
		"Please send MP3, M4A, AAC, OGG or WAV audio."

	GreetingText = "Hi! I turn voice messages into text.\n\n" +
		"Send or forward me a voice message, a round video or an audio file and " +
		"I'll reply with the transcript. Long messages also get a one-line TLDR."
)

// MaxMessageLength is the platform's limit on a single text message.
const MaxMessageLength = 4096

// Reply is one outgoing message.
type Reply struct {
	Text string
	HTML bool
}

// FormatReply renders a transcription result.
//
// Without a usable TLDR the transcript is sent verbatim as plain text. With
// one, a single HTML message holds "TLDR: …" followed by "Original text: …".
// Results that do not fit one message are split: the TLDR part first, then
// the original text in plain chunks.
func FormatReply(res models.TranscriptionResult) []Reply {
	tldr, ok := res.Summary()
	if !ok {
		return plainChunks(res.TranscribedText)
	}

	full := "<b>TLDR:</b> " + html.EscapeString(tldr) +
		"\n\n<b>Original text:</b> " + html.EscapeString(res.TranscribedText)
	if utf8.RuneCountInString(full) <= MaxMessageLength {
		return []Reply{{Text: full, HTML: true}}
	}

	replies := []Reply{{Text: "<b>TLDR:</b> " + html.EscapeString(tldr), HTML: true}}
	return append(replies, plainChunks("Original text:\n"+res.TranscribedText)...)
}

func plainChunks(text string) []Reply {
	var replies []Reply
	for _, c := range SplitText(text, MaxMessageLength) {
		replies = append(replies, Reply{Text: c})
	}
	return replies
}

// SplitText cuts text into pieces of at most max runes, preferring to break
// at a newline, then at a space, in the second half of each piece.
// Text that already fits is returned unchanged.
func SplitText(text string, max int) []string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > max {
		cut := breakPoint(runes[:max])
		chunk := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func breakPoint(window []rune) int {
	half := len(window) / 2
	for _, sep := range []rune{'\n', ' '} {
		for i := len(window) - 1; i >= half; i-- {
			if window[i] == sep {
				return i + 1
			}
		}
	}
	return len(window)
}
