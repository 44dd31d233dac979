package transport

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	irc "github.com/thoj/go-ircevent"
)

func TestDebugEventLogsRawLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tr := &IRC{logger: logger}
	tr.debugEvent(&irc.Event{
		Code: "JOIN",
		Nick: "alice",
		Raw:  ":alice!u@host JOIN #foo",
	})

	out := buf.String()
	for _, want := range []string{"JOIN", "alice", "JOIN #foo"} {
		if !strings.Contains(out, want) {
			t.Errorf("debug log missing %q: %s", want, out)
		}
	}
}
