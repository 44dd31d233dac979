package relay

import (
	"regexp"

	"ircgram/internal/domain"
)

// relayNickPattern matches the "<nick> body" convention this relay uses
// for everything it posts. Anchored at the start of the quoted text.
var relayNickPattern = regexp.MustCompile(`^<([^>]+)>`)

// AttributionPrefix derives the "name: " prefix for a reply, or "" when
// the message is not a reply or no name can be derived.
//
// When the quoted message was authored by the relay bot itself it is
// assumed to follow the relay's own "<nick> body" convention and the
// original nick is extracted from it. This is a best-effort heuristic,
// not a protocol guarantee: any bot message that happens to start with
// an angle-bracketed token will match.
func AttributionPrefix(reply *domain.ReplyContext, selfID int64) string {
	if reply == nil {
		return ""
	}
	if reply.From.ID == selfID {
		if m := relayNickPattern.FindStringSubmatch(reply.Text); m != nil {
			return m[1] + ": "
		}
		return ""
	}
	return reply.From.DisplayName() + ": "
}
