package domain

// MessageKind enumerates the content kinds a group message can carry.
// Every inbound message is classified into exactly one kind; kinds the
// relay does not handle fall into KindOther and are ignored.
type MessageKind int

const (
	KindText MessageKind = iota
	KindSticker
	KindPhoto
	KindDocument
	KindAudio
	KindVideo
	KindVoice
	KindOther
)

// ChannelMessage is a text message received on an IRC channel.
type ChannelMessage struct {
	Channel string
	Nick    string
	Body    string
}

// GroupUser identifies the author of a Telegram message.
type GroupUser struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName returns "first" or "first last" when a last name is present.
func (u GroupUser) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// PathHandle returns the handle used to namespace downloaded media.
// Users without a username share the "anonymous" namespace.
func (u GroupUser) PathHandle() string {
	if u.Username == "" {
		return "anonymous"
	}
	return u.Username
}

// FileRef points at a remote attachment. It is consumed once by the
// media pipeline and not retained.
type FileRef struct {
	ID   string
	Size int64
}

// ReplyContext carries the author and text of a quoted message.
type ReplyContext struct {
	From GroupUser
	Text string
}

// GroupMessage is a normalized Telegram group message. Text holds the
// literal text for KindText and the caption for media kinds.
type GroupMessage struct {
	ChatID int64
	Title  string
	From   GroupUser
	Kind   MessageKind
	Text   string
	Emoji  string // sticker emoji, when present
	File   *FileRef
	Reply  *ReplyContext
}

// OutboundMessage is the unit handed to an outbound send. Target is an
// IRC channel name or a Telegram chat id in decimal form, depending on
// the network.
type OutboundMessage struct {
	Network string // "irc" | "telegram"
	Target  string
	Text    string
}
