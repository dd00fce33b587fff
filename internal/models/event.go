package models

// EventKind discriminates InboundEvent.
type EventKind int

const (
	EventUnknown EventKind = iota
	// EventVoice is a voice message.
	EventVoice
	// EventDocument is a file or audio attachment; MIMEType decides whether it is processed.
	EventDocument
	// EventVideoNote is a round video message.
	EventVideoNote
	// EventMembershipChange lists users that joined a chat.
	EventMembershipChange
	// EventTransportError is a polling or webhook failure.
	EventTransportError
)

func (k EventKind) String() string {
	switch k {
	case EventVoice:
		return "voice"
	case EventDocument:
		return "document"
	case EventVideoNote:
		return "video_note"
	case EventMembershipChange:
		return "membership"
	case EventTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// InboundEvent is a platform event normalized for the router.
type InboundEvent struct {
	Kind      EventKind
	ChatID    int64
	MessageID int
	Username  string

	// Media events. FileID may be empty when the platform omitted it.
	FileID   string
	MIMEType string
	FileSize int64

	// Membership events.
	NewMemberIDs []int64

	// Transport errors.
	Err error
}

// BotIdentity is the bot's own account, resolved once at startup.
type BotIdentity struct {
	ID       int64
	Username string
}

// SendOptions controls how an outgoing message is delivered.
type SendOptions struct {
	ReplyToMessageID int  // 0 sends unthreaded
	HTML             bool // parse text as HTML
}
