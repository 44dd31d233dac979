// Package transport adapts the two chat networks to the relay's domain
// types: normalized inbound messages in, plain text sends out.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"ircgram/internal/domain"
	"ircgram/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMsgLen  = 4000
	telegramPollWindow = 30 // seconds; the long-poll timeout
)

// Telegram wraps the Bot API client. One instance is shared read-only
// by both workers after startup; only Poll mutates the update offset,
// and only the Telegram ingest loop calls it.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	offset int
	logger *slog.Logger
}

// NewTelegram authenticates with the Bot API. A failure here is a
// startup failure; the relay aborts before entering the concurrent
// phase.
func NewTelegram(token string, logger *slog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)
	return &Telegram{bot: bot, logger: logger}, nil
}

// Self returns the bot's own identity, used to recognize self-authored
// messages for reply attribution.
func (t *Telegram) Self() domain.GroupUser {
	return domain.GroupUser{
		ID:        t.bot.Self.ID,
		Username:  t.bot.Self.UserName,
		FirstName: t.bot.Self.FirstName,
		LastName:  t.bot.Self.LastName,
	}
}

// Poll performs one blocking long-poll cycle and returns the group
// messages it yielded, in receipt order. Updates from non-group chats
// are skipped. The offset advances past every update received,
// including skipped ones, so a failing message is never redelivered.
func (t *Telegram) Poll(ctx context.Context) ([]domain.GroupMessage, error) {
	u := tgbotapi.NewUpdate(t.offset)
	u.Timeout = telegramPollWindow

	updates, err := t.bot.GetUpdates(u)
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}

	var msgs []domain.GroupMessage
	for _, upd := range updates {
		if upd.UpdateID >= t.offset {
			t.offset = upd.UpdateID + 1
		}
		m := upd.Message
		if m == nil || m.From == nil || m.Chat == nil {
			continue
		}
		if !m.Chat.IsGroup() && !m.Chat.IsSuperGroup() {
			continue
		}
		msgs = append(msgs, normalizeMessage(m))
	}
	return msgs, nil
}

// normalizeMessage classifies one Bot API message into the relay's
// tagged content model.
func normalizeMessage(m *tgbotapi.Message) domain.GroupMessage {
	g := domain.GroupMessage{
		ChatID: m.Chat.ID,
		Title:  m.Chat.Title,
		From:   normalizeUser(m.From),
	}

	switch {
	case m.Sticker != nil:
		g.Kind = domain.KindSticker
		g.Emoji = m.Sticker.Emoji
	case len(m.Photo) > 0:
		g.Kind = domain.KindPhoto
		largest := m.Photo[len(m.Photo)-1]
		g.File = &domain.FileRef{ID: largest.FileID, Size: int64(largest.FileSize)}
		g.Text = m.Caption
	case m.Document != nil:
		g.Kind = domain.KindDocument
		g.File = &domain.FileRef{ID: m.Document.FileID, Size: int64(m.Document.FileSize)}
		g.Text = m.Caption
	case m.Audio != nil:
		g.Kind = domain.KindAudio
		g.File = &domain.FileRef{ID: m.Audio.FileID, Size: int64(m.Audio.FileSize)}
		g.Text = m.Caption
	case m.Video != nil:
		g.Kind = domain.KindVideo
		g.File = &domain.FileRef{ID: m.Video.FileID, Size: int64(m.Video.FileSize)}
		g.Text = m.Caption
	case m.Voice != nil:
		g.Kind = domain.KindVoice
		g.File = &domain.FileRef{ID: m.Voice.FileID, Size: int64(m.Voice.FileSize)}
		g.Text = m.Caption
	case m.Text != "":
		g.Kind = domain.KindText
		g.Text = m.Text
	default:
		g.Kind = domain.KindOther
	}

	if m.ReplyToMessage != nil && m.ReplyToMessage.From != nil {
		g.Reply = &domain.ReplyContext{
			From: normalizeUser(m.ReplyToMessage.From),
			Text: m.ReplyToMessage.Text,
		}
	}
	return g
}

func normalizeUser(u *tgbotapi.User) domain.GroupUser {
	return domain.GroupUser{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// FileURL resolves an attachment id to a direct download URL.
func (t *Telegram) FileURL(fileID string) (string, error) {
	return t.bot.GetFileDirectURL(fileID)
}

// HandleOutbound is the send handler registered on the outbound queue.
// Failures are logged and the message dropped; there is no retry.
func (t *Telegram) HandleOutbound(msg domain.OutboundMessage) {
	chatID, err := strconv.ParseInt(msg.Target, 10, 64)
	if err != nil {
		t.logger.Error("invalid telegram chat id", "target", msg.Target, "err", err)
		return
	}
	t.send(chatID, msg.Text)
}

// send delivers text, splitting it when it exceeds the per-message
// limit.
func (t *Telegram) send(chatID int64, text string) {
	for _, chunk := range splitMessage(text) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			t.logger.Error("telegram send failed", "chat_id", chatID, "err", err)
			metrics.SendErrors.Inc()
			return
		}
	}
}

// splitMessage cuts text into chunks under the per-message limit,
// preferring a newline when one falls in the second half and never
// splitting inside a multi-byte rune.
func splitMessage(text string) []string {
	var chunks []string
	for len(text) > telegramMaxMsgLen {
		cutAt := strings.LastIndex(text[:telegramMaxMsgLen], "\n")
		if cutAt < telegramMaxMsgLen/2 {
			cutAt = telegramMaxMsgLen
			for cutAt > 0 && !utf8.RuneStart(text[cutAt]) {
				cutAt--
			}
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
