package transport

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"strings"

	"ircgram/internal/domain"

	irc "github.com/thoj/go-ircevent"
)

const ircInboundBuffer = 64

// IRC wraps the IRC client. Channel text messages are forwarded on the
// Messages channel; connection-level errors on Errors. Joins, notices
// and private messages are ignored at this layer.
type IRC struct {
	conn     *irc.Connection
	server   string
	channels []string
	messages chan domain.ChannelMessage
	errs     chan error
	logger   *slog.Logger
}

type IRCConfig struct {
	Server   string // host:port
	Nick     string
	TLS      bool
	Password string // enables SASL PLAIN when set
	Channels []string
	Logger   *slog.Logger
	Debug    bool // log every raw inbound event
}

func NewIRC(cfg IRCConfig) *IRC {
	conn := irc.IRC(cfg.Nick, cfg.Nick)
	conn.UseTLS = cfg.TLS
	if cfg.TLS {
		host := cfg.Server
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		conn.TLSConfig = &tls.Config{ServerName: host}
	}
	if cfg.Password != "" {
		conn.UseSASL = true
		conn.SASLLogin = cfg.Nick
		conn.SASLPassword = cfg.Password
	}

	t := &IRC{
		conn:     conn,
		server:   cfg.Server,
		channels: cfg.Channels,
		messages: make(chan domain.ChannelMessage, ircInboundBuffer),
		errs:     make(chan error, 1),
		logger:   cfg.Logger,
	}

	conn.AddCallback("001", func(e *irc.Event) {
		for _, channel := range t.channels {
			t.logger.Info("joining channel", "channel", channel)
			conn.Join(channel)
		}
	})

	conn.AddCallback("PRIVMSG", func(e *irc.Event) {
		if e.Nick == "" || len(e.Arguments) < 2 {
			return
		}
		target := e.Arguments[0]
		if !strings.HasPrefix(target, "#") {
			return // direct message, not a channel
		}
		msg := domain.ChannelMessage{Channel: target, Nick: e.Nick, Body: e.Message()}
		select {
		case t.messages <- msg:
		default:
			t.logger.Warn("irc inbound buffer full, dropping message", "channel", target)
		}
	})

	conn.AddCallback("ERROR", func(e *irc.Event) {
		select {
		case t.errs <- errors.New(e.Message()):
		default:
		}
	})

	if cfg.Debug {
		conn.AddCallback("*", t.debugEvent)
	}

	return t
}

// debugEvent logs every raw inbound line, joins and notices included,
// not just the PRIVMSGs the relay acts on.
func (t *IRC) debugEvent(e *irc.Event) {
	t.logger.Debug("irc event", "code", e.Code, "nick", e.Nick, "raw", e.Raw)
}

// Connect performs the registration handshake. A failure here is a
// startup failure.
func (t *IRC) Connect() error {
	return t.conn.Connect(t.server)
}

// Run drives the client's read loop, reconnecting internally on
// connection loss. It blocks for the process lifetime.
func (t *IRC) Run() {
	t.conn.Loop()
}

func (t *IRC) Messages() <-chan domain.ChannelMessage { return t.messages }

func (t *IRC) Errors() <-chan error { return t.errs }

// Nick returns the nick currently in use, which may differ from the
// configured one after a collision.
func (t *IRC) Nick() string { return t.conn.GetNick() }

// HandleOutbound is the send handler registered on the outbound queue.
// PRIVMSG is fire-and-forget at the protocol level; a dead connection
// surfaces on the Errors channel, not here.
func (t *IRC) HandleOutbound(msg domain.OutboundMessage) {
	t.conn.Privmsg(msg.Target, msg.Text)
}

func (t *IRC) Close() {
	t.conn.Quit()
}
