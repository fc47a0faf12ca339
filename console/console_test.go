package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aide-ai/aide/config"
	"github.com/aide-ai/aide/connection"
	"github.com/aide-ai/aide/protocol"
	"github.com/aide-ai/aide/session"
)

type nullTransport struct{ sent []any }

func (n *nullTransport) Connect(h connection.Handler) error { h.OnOpen(); return nil }
func (n *nullTransport) Send(v any) error                   { n.sent = append(n.sent, v); return nil }
func (n *nullTransport) Disconnect()                        {}
func (n *nullTransport) State() connection.State            { return connection.Open }
func (n *nullTransport) Attempts() int                      { return 0 }

func newTestConsole(t *testing.T) (*Console, *session.Store, *bytes.Buffer) {
	t.Helper()
	conn := &nullTransport{}
	store := session.NewStore(config.Default(), conn, zerolog.Nop())
	if err := store.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(store.Stop)
	out := &bytes.Buffer{}
	return &Console{store: store, out: out}, store, out
}

func TestHandleLineQuit(t *testing.T) {
	c, _, _ := newTestConsole(t)
	for _, line := range []string{"/quit", "/exit"} {
		if !c.handleLine(line) {
			t.Errorf("%s did not quit", line)
		}
	}
	if c.handleLine("/help") {
		t.Error("/help quit the loop")
	}
}

func TestHandleLineChat(t *testing.T) {
	c, store, _ := newTestConsole(t)
	c.handleLine("  build a calculator  ")
	msgs := store.Messages()
	if len(msgs) == 0 || msgs[0].Role != session.RoleUser || msgs[0].Content != "build a calculator" {
		t.Errorf("transcript = %+v", msgs)
	}
}

func TestHandleLineUnknownCommand(t *testing.T) {
	c, _, out := newTestConsole(t)
	c.handleLine("/frobnicate")
	if !strings.Contains(out.String(), "Unknown command /frobnicate") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHandleLineEmpty(t *testing.T) {
	c, store, out := newTestConsole(t)
	c.handleLine("   ")
	if len(store.Messages()) != 0 || out.Len() != 0 {
		t.Error("blank input had an effect")
	}
}

func TestRenderPrintsNewEntriesOnce(t *testing.T) {
	c, store, out := newTestConsole(t)
	store.SendMessage("hello")
	c.render()
	first := out.String()
	if !strings.Contains(first, "You: hello") {
		t.Fatalf("output = %q", first)
	}
	c.render()
	if out.String() != first {
		t.Errorf("second render reprinted entries: %q", out.String())
	}
}

func TestRenderRestartsAfterReset(t *testing.T) {
	c, store, out := newTestConsole(t)
	store.SendMessage("first project chatter")
	c.render()
	out.Reset()

	store.NewProject("Fresh")
	store.SendMessage("hello again")
	c.render()
	if !strings.Contains(out.String(), "You: hello again") {
		t.Errorf("post-reset entries not rendered: %q", out.String())
	}
}

func TestPrintMessageRoles(t *testing.T) {
	tests := []struct {
		name string
		msg  session.Message
		want string
	}{
		{"user", session.Message{Role: session.RoleUser, Content: "hi"}, "You: hi"},
		{"agent", session.Message{Role: session.RoleAgent, Agent: protocol.AgentUXArchitect, Content: "ok"}, "Ux Architect: ok"},
		{"system", session.Message{Role: session.RoleSystem, Content: "done"}, "* done"},
		{"error", session.Message{Role: session.RoleSystem, Content: "bad", IsError: true}, "[error] bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, out := newTestConsole(t)
			c.printMessage(tt.msg)
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q missing %q", out.String(), tt.want)
			}
		})
	}
}

func TestPrintFiles(t *testing.T) {
	c, store, out := newTestConsole(t)
	c.printFiles("")
	if !strings.Contains(out.String(), "No generated files.") {
		t.Fatalf("output = %q", out.String())
	}

	env, err := protocol.DecodeEnvelope([]byte(
		`{"type":"code_generated","files":[{"path":"index.html","content":"<html>"},{"path":"app.js","content":"x"}]}`))
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	store.OnRecord(env)
	out.Reset()
	c.printFiles("*.js")
	listing := out.String()
	if !strings.Contains(listing, "app.js") || strings.Contains(listing, "index.html") {
		t.Errorf("filtered listing = %q", listing)
	}
}
