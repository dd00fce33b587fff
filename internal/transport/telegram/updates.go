package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"voice-relay-bot/internal/models"
)

// ToEvent normalizes an update. Updates without a new message, and messages
// carrying nothing the bot handles, return false.
func ToEvent(u tgbotapi.Update) (models.InboundEvent, bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return models.InboundEvent{}, false
	}

	ev := models.InboundEvent{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Username:  username(msg.From),
	}

	switch {
	case msg.Voice != nil:
		ev.Kind = models.EventVoice
		ev.FileID = msg.Voice.FileID
		ev.MIMEType = msg.Voice.MimeType
		ev.FileSize = int64(msg.Voice.FileSize)
	case msg.VideoNote != nil:
		ev.Kind = models.EventVideoNote
		ev.FileID = msg.VideoNote.FileID
		ev.FileSize = int64(msg.VideoNote.FileSize)
	case msg.Document != nil:
		ev.Kind = models.EventDocument
		ev.FileID = msg.Document.FileID
		ev.MIMEType = msg.Document.MimeType
		ev.FileSize = int64(msg.Document.FileSize)
	case msg.Audio != nil:
		// Music-player attachments are documents with an audio MIME type.
		ev.Kind = models.EventDocument
		ev.FileID = msg.Audio.FileID
		ev.MIMEType = msg.Audio.MimeType
		ev.FileSize = int64(msg.Audio.FileSize)
	case len(msg.NewChatMembers) > 0:
		ev.Kind = models.EventMembershipChange
		for _, m := range msg.NewChatMembers {
			ev.NewMemberIDs = append(ev.NewMemberIDs, m.ID)
		}
	default:
		return models.InboundEvent{}, false
	}
	return ev, true
}

func username(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return u.FirstName
}
