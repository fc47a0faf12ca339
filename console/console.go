// Package console implements the line-oriented interactive front end over a
// session store: it reads user input, invokes store actions, and renders
// transcript updates as they arrive.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aide-ai/aide/generation"
	"github.com/aide-ai/aide/protocol"
	"github.com/aide-ai/aide/session"
)

// Console is a thin consumer of the session store. It keeps no state of its
// own beyond a render cursor into the transcript.
type Console struct {
	store *session.Store
	in    io.Reader
	out   io.Writer

	printed   int    // transcript entries already rendered
	firstID   string // id of the first transcript entry, to spot resets
	lastPhase generation.Phase
}

// New creates a Console over the store, reading stdin and writing stdout.
func New(store *session.Store) *Console {
	return &Console{store: store, in: os.Stdin, out: os.Stdout}
}

// Run starts the interactive loop and blocks until the user quits, input
// ends, or ctx is cancelled.
func (c *Console) Run(ctx context.Context, initialPrompt string) error {
	if initialPrompt != "" {
		c.store.SendMessage(initialPrompt)
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	c.render()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.store.Changed():
			c.render()
		case line, ok := <-lines:
			if !ok {
				// EOF or read error ends the session
				return <-readErr
			}
			if quit := c.handleLine(line); quit {
				return nil
			}
		}
	}
}

// handleLine processes one input line and reports whether the loop should
// quit. Lines starting with "/" are commands; everything else is chat.
func (c *Console) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.store.SendMessage(line)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		c.printHelp()
	case "/new":
		c.store.NewProject(strings.Join(fields[1:], " "))
	case "/generate":
		c.store.GenerateCode()
	case "/status":
		c.store.CheckStatus()
	case "/preview":
		c.store.RequestPreview()
	case "/files":
		pattern := ""
		if len(fields) > 1 {
			pattern = fields[1]
		}
		c.printFiles(pattern)
	case "/debug":
		if len(fields) < 3 {
			fmt.Fprintln(c.out, "Usage: /debug <file> <error log>")
			break
		}
		c.store.SendDebugReport(strings.Join(fields[2:], " "), fields[1])
	case "/connect":
		if err := c.store.Start(); err != nil {
			fmt.Fprintf(c.out, "Connect failed: %v\n", err)
		}
	default:
		fmt.Fprintf(c.out, "Unknown command %s. Try /help.\n", fields[0])
	}
	return false
}

// render prints transcript entries added since the last call and announces
// generation phase changes worth seeing.
func (c *Console) render() {
	snap := c.store.Snapshot()
	if len(snap.Messages) == 0 {
		c.printed = 0
		c.firstID = ""
	} else if snap.Messages[0].ID != c.firstID {
		// A different first entry means the session was reset; start the
		// cursor over.
		c.printed = 0
		c.firstID = snap.Messages[0].ID
	}
	for ; c.printed < len(snap.Messages); c.printed++ {
		c.printMessage(snap.Messages[c.printed])
	}
	if snap.Generation.Phase != c.lastPhase {
		c.lastPhase = snap.Generation.Phase
		if c.lastPhase == generation.Generating {
			fmt.Fprintln(c.out, "... generating ...")
		}
	}
}

func (c *Console) printMessage(m session.Message) {
	switch m.Role {
	case session.RoleUser:
		fmt.Fprintf(c.out, "You: %s\n", m.Content)
	case session.RoleAgent:
		fmt.Fprintf(c.out, "%s: %s\n", protocol.AgentDisplayName(m.Agent), m.Content)
	default:
		if m.IsError {
			fmt.Fprintf(c.out, "[error] %s\n", m.Content)
		} else {
			fmt.Fprintf(c.out, "* %s\n", m.Content)
		}
	}
}

func (c *Console) printFiles(pattern string) {
	files, err := c.store.FilesMatching(pattern)
	if err != nil {
		fmt.Fprintf(c.out, "Bad pattern: %v\n", err)
		return
	}
	if len(files) == 0 {
		fmt.Fprintln(c.out, "No generated files.")
		return
	}
	for _, f := range files {
		fmt.Fprintf(c.out, "%s %s (%s, %d bytes)\n", f.Icon, f.Path, f.Type, f.Size)
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `Commands:
  /new [name]            start a new project (discards the current one)
  /generate              generate code for the current project
  /status                re-check whether generation can start
  /preview               request the hosted preview address
  /files [pattern]       list generated files, optionally filtered by glob
  /debug <file> <log>    send an error log for debugging
  /connect               reconnect after the automatic retries give up
  /quit                  exit`)
}
