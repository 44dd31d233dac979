// Package relay implements the bidirectional bridge core: the shared
// routing/discovery state, the two ingest loops, the media pipeline and
// the reply-attribution heuristic.
package relay

import (
	"context"
	"log/slog"
	"sync"
)

// Persister durably records one discovered chat id.
type Persister interface {
	Save(ctx context.Context, group string, id int64) error
}

// State aggregates the fixed channel↔group mapping and the lazily
// discovered group→chat-id table. One mutex guards all of it; both
// ingest loops share a single State for the process lifetime.
//
// The lock covers state reads and mutation only. Outbound sends happen
// after release so a slow network call never stalls the other loop.
type State struct {
	mu sync.Mutex

	// groupFor and channelFor are the two directions of the fixed
	// mapping, built once at startup and never mutated afterwards.
	groupFor   map[string]string // IRC channel -> Telegram group
	channelFor map[string]string // Telegram group -> IRC channel

	// chatIDs is append-only: entries are created on first sighting
	// and never removed or changed.
	chatIDs map[string]int64

	persist Persister
	logger  *slog.Logger
}

// NewState builds the relay state. mappings pairs Telegram group titles
// with IRC channel names (the config orientation); chatIDs seeds the
// identity table from durable storage.
func NewState(mappings map[string]string, chatIDs map[string]int64, persist Persister, logger *slog.Logger) *State {
	groupFor := make(map[string]string, len(mappings))
	channelFor := make(map[string]string, len(mappings))
	for group, channel := range mappings {
		groupFor[channel] = group
		channelFor[group] = channel
	}
	if chatIDs == nil {
		chatIDs = make(map[string]int64)
	}
	return &State{
		groupFor:   groupFor,
		channelFor: channelFor,
		chatIDs:    chatIDs,
		persist:    persist,
		logger:     logger,
	}
}

// GroupFor resolves the Telegram group mapped to an IRC channel.
// A miss means the channel is unmapped; the caller drops the message.
func (s *State) GroupFor(channel string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groupFor[channel]
	return group, ok
}

// ChannelFor resolves the IRC channel mapped to a Telegram group.
func (s *State) ChannelFor(group string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel, ok := s.channelFor[group]
	return channel, ok
}

// ChatID returns the numeric chat id for a group. A miss means the id
// has not been discovered yet; the caller drops with a warning, there
// is no queuing or retry.
func (s *State) ChatID(group string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.chatIDs[group]
	return id, ok
}

// Channels returns the IRC channels of every configured mapping, for
// joining at connect time.
func (s *State) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	channels := make([]string, 0, len(s.groupFor))
	for channel := range s.groupFor {
		channels = append(channels, channel)
	}
	return channels
}

// RecordChatID stores a newly observed group id and reports whether the
// entry was new. The first insertion is persisted before returning; a
// persistence failure is logged and non-fatal, the in-memory entry is
// already visible to subsequent lookups either way.
func (s *State) RecordChatID(ctx context.Context, group string, id int64) bool {
	s.mu.Lock()
	if _, ok := s.chatIDs[group]; ok {
		s.mu.Unlock()
		return false
	}
	s.chatIDs[group] = id
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Save(ctx, group, id); err != nil {
			s.logger.Warn("cannot persist chat id", "group", group, "chat_id", id, "err", err)
		}
	}
	return true
}
