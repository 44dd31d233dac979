package relay

import (
	"context"
	"testing"

	"ircgram/internal/domain"
)

// captureBus records published messages. Loop tests drive handle()
// directly, so no synchronization is needed.
type captureBus struct {
	msgs []domain.OutboundMessage
}

func (b *captureBus) Publish(m domain.OutboundMessage) { b.msgs = append(b.msgs, m) }

func (b *captureBus) OnOutbound(network string, h func(domain.OutboundMessage)) {}

func (b *captureBus) Close() {}

func newIRCIngest(state *State, out *captureBus) *IRCIngest {
	return &IRCIngest{State: state, Out: out, Logger: discardLogger()}
}

func TestIRCIngest_RelaysMappedMessage(t *testing.T) {
	state := NewState(testMappings(), nil, nil, discardLogger())
	state.RecordChatID(context.Background(), "FooGroup", 555)
	out := &captureBus{}

	newIRCIngest(state, out).handle(domain.ChannelMessage{
		Channel: "#foo", Nick: "alice", Body: "hello",
	})

	if len(out.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(out.msgs))
	}
	got := out.msgs[0]
	if got.Network != "telegram" || got.Target != "555" || got.Text != "<alice> hello" {
		t.Errorf("got %+v, want send(555, \"<alice> hello\")", got)
	}
}

func TestIRCIngest_UnmappedChannelDrops(t *testing.T) {
	state := NewState(testMappings(), nil, nil, discardLogger())
	out := &captureBus{}

	newIRCIngest(state, out).handle(domain.ChannelMessage{
		Channel: "#nowhere", Nick: "alice", Body: "hello",
	})

	if len(out.msgs) != 0 {
		t.Errorf("unmapped channel should produce zero sends, got %d", len(out.msgs))
	}
}

func TestIRCIngest_UnknownChatIDDrops(t *testing.T) {
	state := NewState(testMappings(), nil, nil, discardLogger())
	out := &captureBus{}

	// #foo is mapped but FooGroup's id has not been discovered.
	newIRCIngest(state, out).handle(domain.ChannelMessage{
		Channel: "#foo", Nick: "alice", Body: "hello",
	})

	if len(out.msgs) != 0 {
		t.Errorf("unknown chat id should produce zero sends, got %d", len(out.msgs))
	}
}

func TestIRCIngest_RunStopsWhenStreamCloses(t *testing.T) {
	state := NewState(testMappings(), nil, nil, discardLogger())
	state.RecordChatID(context.Background(), "FooGroup", 555)
	out := &captureBus{}

	messages := make(chan domain.ChannelMessage, 1)
	messages <- domain.ChannelMessage{Channel: "#foo", Nick: "alice", Body: "bye"}
	close(messages)

	ingest := newIRCIngest(state, out)
	ingest.Messages = messages
	ingest.Run(context.Background()) // returns once the stream is drained and closed

	if len(out.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(out.msgs))
	}
}

func TestIRCIngest_RunHonorsContext(t *testing.T) {
	ingest := newIRCIngest(NewState(testMappings(), nil, nil, discardLogger()), &captureBus{})
	ingest.Messages = make(chan domain.ChannelMessage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ingest.Run(ctx) // must return promptly on a cancelled context
}
