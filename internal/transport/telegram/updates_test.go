package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-relay-bot/internal/models"
)

func message(mutate func(*tgbotapi.Message)) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 7,
		Chat:      &tgbotapi.Chat{ID: 42},
		From:      &tgbotapi.User{ID: 1, UserName: "alice", FirstName: "Alice"},
	}
	mutate(msg)
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func TestToEvent_Voice(t *testing.T) {
	ev, ok := ToEvent(message(func(m *tgbotapi.Message) {
		m.Voice = &tgbotapi.Voice{FileID: "voice-1", MimeType: "audio/ogg", FileSize: 1234}
	}))

	require.True(t, ok)
	assert.Equal(t, models.EventVoice, ev.Kind)
	assert.Equal(t, int64(42), ev.ChatID)
	assert.Equal(t, 7, ev.MessageID)
	assert.Equal(t, "alice", ev.Username)
	assert.Equal(t, "voice-1", ev.FileID)
	assert.Equal(t, int64(1234), ev.FileSize)
}

func TestToEvent_VoiceWithoutFileID(t *testing.T) {
	ev, ok := ToEvent(message(func(m *tgbotapi.Message) {
		m.Voice = &tgbotapi.Voice{}
	}))

	require.True(t, ok)
	assert.Equal(t, models.EventVoice, ev.Kind)
	assert.Empty(t, ev.FileID)
}

func TestToEvent_Document(t *testing.T) {
	ev, ok := ToEvent(message(func(m *tgbotapi.Message) {
		m.Document = &tgbotapi.Document{FileID: "doc-1", MimeType: "audio/mpeg"}
	}))

	require.True(t, ok)
	assert.Equal(t, models.EventDocument, ev.Kind)
	assert.Equal(t, "audio/mpeg", ev.MIMEType)
}

func TestToEvent_AudioIsDocument(t *testing.T) {
	ev, ok := ToEvent(message(func(m *tgbotapi.Message) {
		m.Audio = &tgbotapi.Audio{FileID: "aud-1", MimeType: "audio/x-m4a"}
	}))

	require.True(t, ok)
	assert.Equal(t, models.EventDocument, ev.Kind)
	assert.Equal(t, "aud-1", ev.FileID)
	assert.Equal(t, "audio/x-m4a", ev.MIMEType)
}

func TestToEvent_VideoNote(t *testing.T) {
	ev, ok := ToEvent(message(func(m *tgbotapi.Message) {
		m.VideoNote = &tgbotapi.VideoNote{FileID: "vn-1", FileSize: 99}
	}))

	require.True(t, ok)
	assert.Equal(t, models.EventVideoNote, ev.Kind)
	assert.Equal(t, "vn-1", ev.FileID)
}

func TestToEvent_Membership(t *testing.T) {
	ev, ok := ToEvent(message(func(m *tgbotapi.Message) {
		m.NewChatMembers = []tgbotapi.User{{ID: 100}, {ID: 200}}
	}))

	require.True(t, ok)
	assert.Equal(t, models.EventMembershipChange, ev.Kind)
	assert.Equal(t, []int64{100, 200}, ev.NewMemberIDs)
}

func TestToEvent_Ignored(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
	}{
		{"no message", tgbotapi.Update{UpdateID: 1}},
		{"edited message", tgbotapi.Update{EditedMessage: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}}},
		{"plain text", message(func(m *tgbotapi.Message) { m.Text = "hello" })},
		{"no chat", tgbotapi.Update{Message: &tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ToEvent(tt.update)
			assert.False(t, ok)
		})
	}
}

func TestUsername(t *testing.T) {
	assert.Equal(t, "", username(nil))
	assert.Equal(t, "bob", username(&tgbotapi.User{UserName: "bob", FirstName: "Bob"}))
	assert.Equal(t, "Bob", username(&tgbotapi.User{FirstName: "Bob"}))
}
