package relay

import (
	"context"
	"fmt"
	"log/slog"

	"ircgram/internal/domain"
	"ircgram/internal/metrics"
)

// GroupPoller yields one long-poll batch of normalized group messages.
// The call blocks for the transport's long-poll window.
type GroupPoller interface {
	Poll(ctx context.Context) ([]domain.GroupMessage, error)
}

// TelegramIngest long-polls the group-chat transport and relays each
// group message to its mapped IRC channel. Messages within a batch are
// handled strictly in receipt order, one at a time.
//
// An IRC send failure is log-and-continue, not fatal: sends go through
// the outbound queue and a dead IRC connection surfaces on the IRC
// transport's own error path instead.
type TelegramIngest struct {
	State  *State
	Out    domain.OutboundBus
	Poller GroupPoller
	Media  *MediaPipeline // nil disables media relay
	SelfID int64          // the bot's own user id, for reply attribution
	Logger *slog.Logger
	Debug  bool
}

// Run blocks until ctx is cancelled. A failed poll cycle is logged and
// retried after a fixed backoff, forever.
func (l *TelegramIngest) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		batch, err := l.Poller.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.Logger.Error("telegram poll failed", "err", err)
			sleepCtx(ctx, retryInterval)
			continue
		}
		for _, msg := range batch {
			l.handle(ctx, msg)
		}
	}
}

func (l *TelegramIngest) handle(ctx context.Context, msg domain.GroupMessage) {
	if l.Debug {
		l.Logger.Debug("telegram message", "title", msg.Title, "from", msg.From.DisplayName(), "kind", msg.Kind)
	}

	// Discovery first: learn the id even for unmapped groups so a
	// mapping added later works without waiting for another message.
	if l.State.RecordChatID(ctx, msg.Title, msg.ChatID) {
		l.Logger.Info("discovered telegram group", "title", msg.Title, "chat_id", msg.ChatID)
		metrics.Discoveries.Inc()
	}

	channel, ok := l.State.ChannelFor(msg.Title)
	if !ok {
		l.Logger.Debug("group not mapped, dropping", "title", msg.Title)
		metrics.Dropped.Inc()
		return
	}

	body := l.composeBody(ctx, msg)
	if prefix := AttributionPrefix(msg.Reply, l.SelfID); prefix != "" {
		body = prefix + body
	}

	text := fmt.Sprintf("<%s> %s", msg.From.DisplayName(), body)
	l.Logger.Info("relaying", "from", msg.Title, "to", channel, "text", text)
	l.Out.Publish(domain.OutboundMessage{
		Network: "irc",
		Target:  channel,
		Text:    text,
	})
	metrics.RelayedToIRC.Inc()
}

// composeBody builds the relayed body for one message: literal text,
// a sticker marker, or a caption, plus the mirrored media URL when the
// pipeline produced one. A failed download skips the attachment only;
// the rest of the message still relays.
func (l *TelegramIngest) composeBody(ctx context.Context, msg domain.GroupMessage) string {
	var body string
	switch msg.Kind {
	case domain.KindText:
		body = msg.Text
	case domain.KindSticker:
		// Stickers are excluded from media relay; a text marker
		// stands in for them.
		if msg.Emoji != "" {
			body = msg.Emoji + " (sticker)"
		} else {
			body = "(sticker)"
		}
	default:
		body = msg.Text // media caption, possibly empty
	}

	if l.Media != nil && msg.File != nil && msg.Kind != domain.KindSticker {
		url, err := l.Media.Relay(ctx, msg.File.ID, msg.From.PathHandle())
		if err != nil {
			l.Logger.Warn("media relay failed, skipping attachment",
				"file_id", msg.File.ID, "err", err)
			metrics.MediaErrors.Inc()
		} else {
			metrics.MediaRelayed.Inc()
			if body == "" {
				body = url
			} else {
				body += " " + url
			}
		}
	}
	return body
}
