package relay

import (
	"testing"

	"ircgram/internal/domain"
)

const botID = int64(1000)

func TestAttributionPrefix_NoReply(t *testing.T) {
	if got := AttributionPrefix(nil, botID); got != "" {
		t.Errorf("no reply should yield no prefix, got %q", got)
	}
}

func TestAttributionPrefix_SelfAuthoredRelayMessage(t *testing.T) {
	reply := &domain.ReplyContext{
		From: domain.GroupUser{ID: botID, FirstName: "relay"},
		Text: "<alice> hello",
	}
	if got := AttributionPrefix(reply, botID); got != "alice: " {
		t.Errorf("got %q, want %q", got, "alice: ")
	}
}

func TestAttributionPrefix_SelfAuthoredWithoutConvention(t *testing.T) {
	reply := &domain.ReplyContext{
		From: domain.GroupUser{ID: botID, FirstName: "relay"},
		Text: "no nick marker here",
	}
	if got := AttributionPrefix(reply, botID); got != "" {
		t.Errorf("unparseable self message should yield no prefix, got %q", got)
	}
}

func TestAttributionPrefix_OtherUser(t *testing.T) {
	tests := []struct {
		name string
		from domain.GroupUser
		want string
	}{
		{"first and last", domain.GroupUser{ID: 2, FirstName: "Carol", LastName: "Smith"}, "Carol Smith: "},
		{"first only", domain.GroupUser{ID: 3, FirstName: "Dave"}, "Dave: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := &domain.ReplyContext{From: tt.from, Text: "whatever"}
			if got := AttributionPrefix(reply, botID); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttributionPrefix_PatternAnchoredAtStart(t *testing.T) {
	reply := &domain.ReplyContext{
		From: domain.GroupUser{ID: botID},
		Text: "said <alice> hello",
	}
	if got := AttributionPrefix(reply, botID); got != "" {
		t.Errorf("mid-text marker must not match, got %q", got)
	}
}
