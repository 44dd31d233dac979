package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"ircgram/internal/domain"
	"ircgram/internal/metrics"
)

// retryInterval is the fixed backoff after a transport read or poll
// failure. No escalation, unbounded retries.
const retryInterval = 10 * time.Second

// IRCIngest consumes channel messages from the IRC transport and relays
// them to the mapped Telegram group. It runs for the process lifetime.
type IRCIngest struct {
	State    *State
	Out      domain.OutboundBus
	Messages <-chan domain.ChannelMessage
	Errors   <-chan error
	Logger   *slog.Logger
	Debug    bool
}

// Run blocks until ctx is cancelled or the inbound stream closes.
func (l *IRCIngest) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-l.Messages:
			if !ok {
				l.Logger.Info("irc inbound stream closed")
				return
			}
			l.handle(msg)
		case err, ok := <-l.Errors:
			if !ok {
				return
			}
			l.Logger.Error("irc read error", "err", err)
			sleepCtx(ctx, retryInterval)
		}
	}
}

// handle relays one channel message. Unmapped channels and unknown chat
// ids are drops, not errors.
func (l *IRCIngest) handle(msg domain.ChannelMessage) {
	if l.Debug {
		l.Logger.Debug("irc message", "channel", msg.Channel, "nick", msg.Nick, "body", msg.Body)
	}

	group, ok := l.State.GroupFor(msg.Channel)
	if !ok {
		l.Logger.Debug("channel not mapped, dropping", "channel", msg.Channel)
		metrics.Dropped.Inc()
		return
	}
	id, ok := l.State.ChatID(group)
	if !ok {
		l.Logger.Warn("telegram group id not yet known, dropping", "group", group)
		metrics.Dropped.Inc()
		return
	}

	text := fmt.Sprintf("<%s> %s", msg.Nick, msg.Body)
	l.Logger.Info("relaying", "from", msg.Channel, "to", group, "text", text)
	l.Out.Publish(domain.OutboundMessage{
		Network: "telegram",
		Target:  strconv.FormatInt(id, 10),
		Text:    text,
	})
	metrics.RelayedToTelegram.Inc()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
