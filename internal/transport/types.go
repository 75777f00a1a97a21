package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
	UpdateChatJoin UpdateKind = "chat_join"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
	ChatJoin *ChatJoin
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string

	// VideoFileID / PhotoFileID carry the platform media reference when the
	// message is a video or photo; empty for plain text.
	VideoFileID string
	PhotoFileID string
}

// IsVideo reports whether the message carries a video attachment.
func (m *Message) IsVideo() bool { return m != nil && m.VideoFileID != "" }

type Callback struct {
	ID        string
	FromID    int64
	ChatID    int64
	MessageID int
	Data      string
}

// ChatJoin is emitted when the bot itself is added to a chat.
type ChatJoin struct {
	ChatID int64
	Title  string
	Type   string
}

// MemberStatus is the membership state of a user in a channel/chat.
type MemberStatus string

const (
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
	StatusUnknown       MemberStatus = "unknown"
)

// InlineButton is one inline-keyboard button. Exactly one of URL/Data is set.
type InlineButton struct {
	Text string
	URL  string
	Data string
}

// Markup is a platform-neutral keyboard description. At most one of
// Inline/Reply is populated; the adapter translates it to the wire format.
type Markup struct {
	Inline [][]InlineButton

	Reply  [][]string
	Resize bool
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Markup         *Markup
}

// Transport is the outbound messaging surface the bot logic depends on.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, opt *SendOptions) error
	SendVideo(ctx context.Context, chatID int64, fileID, caption string, opt *SendOptions) error
	EditText(ctx context.Context, chatID int64, messageID int, text string, opt *SendOptions) error
	AnswerCallback(ctx context.Context, callbackID, text string) error

	// CopyMessage re-sends an existing message to another chat preserving its
	// content type (text, photo, video, ...).
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error

	// MemberStatus resolves the user's membership in a channel ("@name" or
	// numeric id). Lookups the bot is not allowed to perform return an error.
	MemberStatus(ctx context.Context, channel string, userID int64) (MemberStatus, error)
}
