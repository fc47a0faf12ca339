// Command dev_server is a local stand-in for the AIDE generation service. It
// speaks the same WebSocket protocol with canned specialist responses, so the
// client can be exercised without the real service: pings are acknowledged,
// two user messages make generation possible, and generate_code returns a
// small static site.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aide-ai/aide/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":8765", "listen address")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	http.HandleFunc("/ws", handleWS(logger))
	fmt.Printf("AIDE dev server running on ws://localhost%s/ws\n", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// project is the per-connection state the real service keeps per client: the
// current project and how much requirement detail it has gathered.
type project struct {
	id       string
	name     string
	messages int // user messages received; two make generation possible
	agentIdx int // next specialist in the chain to respond
}

// clientState is one connection's view of the simulated service.
type clientState struct {
	proj *project
}

func handleWS(logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error().Err(err).Msg("upgrade failed")
			return
		}
		defer conn.Close()
		log := logger.With().Str("remote", r.RemoteAddr).Logger()
		log.Info().Msg("client connected")

		state := &clientState{}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Info().Msg("client gone")
				return
			}
			env, err := protocol.DecodeEnvelope(data)
			if err != nil {
				if !writeRecord(conn, log, errorRecord("Invalid message format")) {
					return
				}
				continue
			}
			for _, reply := range respond(state, env) {
				if !writeRecord(conn, log, reply) {
					return
				}
			}
		}
	}
}

// respond implements the service side of the dispatch table with canned
// content, mirroring the real service closely enough for client testing.
// Unknown types come back as error records, like the real service does.
func respond(c *clientState, env protocol.Envelope) []map[string]any {
	switch env.Type {
	case protocol.TypePing:
		return []map[string]any{{"type": protocol.TypePong}}

	case protocol.TypeNewProject:
		var cmd protocol.NewProjectCommand
		if err := env.Decode(&cmd); err != nil {
			return []map[string]any{errorRecord("Invalid new_project payload")}
		}
		name := cmd.ProjectName
		if name == "" {
			name = "Untitled Project"
		}
		c.proj = &project{id: uuid.New().String()[:8], name: name}
		return []map[string]any{
			{
				"type":         protocol.TypeProjectCreated,
				"project_id":   c.proj.id,
				"project_name": c.proj.name,
				"message":      fmt.Sprintf("Project %q created successfully!", c.proj.name),
			},
			agentReply(c.proj, "Tell me about the project you want to build."),
		}

	case protocol.TypeUserMessage:
		if c.proj == nil {
			return []map[string]any{errorRecord("No project ID provided")}
		}
		var cmd protocol.UserMessageCommand
		if err := env.Decode(&cmd); err != nil {
			return []map[string]any{errorRecord("Invalid user_message payload")}
		}
		c.proj.messages++
		return []map[string]any{
			agentReply(c.proj, "Noted: "+cmd.Message),
			statusRecord(c.proj),
		}

	case protocol.TypeCheckGenerationStatus:
		if c.proj == nil {
			return []map[string]any{errorRecord("No project ID provided")}
		}
		return []map[string]any{statusRecord(c.proj)}

	case protocol.TypeGenerateCode:
		if c.proj == nil {
			return []map[string]any{errorRecord("No project ID provided")}
		}
		if !canGenerate(c.proj) {
			return []map[string]any{{
				"type":       protocol.TypeGenerationFailed,
				"project_id": c.proj.id,
				"error":      "Please describe your project requirements first.",
				"status":     "failed",
			}}
		}
		files := sampleFiles(c.proj.name)
		return []map[string]any{
			{
				"type":       protocol.TypeGenerationStarted,
				"project_id": c.proj.id,
				"message":    "Code generation started",
			},
			{
				"type":        protocol.TypeCodeGenerated,
				"project_id":  c.proj.id,
				"files":       files,
				"preview_url": previewURL(c.proj),
				"file_count":  len(files),
				"total_size":  protocol.TotalSize(files),
				"status":      "completed",
			},
		}

	case protocol.TypeGetPreview:
		if c.proj == nil {
			return []map[string]any{errorRecord("No project ID provided")}
		}
		return []map[string]any{{
			"type":        protocol.TypePreviewURL,
			"project_id":  c.proj.id,
			"preview_url": previewURL(c.proj),
		}}

	default:
		return []map[string]any{errorRecord("Unknown message type: " + env.Type)}
	}
}

func agentReply(p *project, text string) map[string]any {
	agent := protocol.AgentChain[p.agentIdx%len(protocol.AgentChain)]
	p.agentIdx++
	return map[string]any{
		"type":    protocol.TypeAgentResponse,
		"agent":   agent,
		"message": text,
	}
}

func canGenerate(p *project) bool {
	return p.messages >= 2
}

func statusRecord(p *project) map[string]any {
	contributors := protocol.AgentChain[:min(p.agentIdx, len(protocol.AgentChain))]
	msg := "Please describe your project requirements first."
	if canGenerate(p) {
		msg = fmt.Sprintf("Ready to generate! Collected requirements from %d agents.", len(contributors))
	}
	return map[string]any{
		"type":                     protocol.TypeGenerationStatus,
		"project_id":               p.id,
		"can_generate":             canGenerate(p),
		"substantial_agents":       len(contributors),
		"agent_contributions":      contributors,
		"has_minimal_requirements": canGenerate(p),
		"message":                  msg,
	}
}

func previewURL(p *project) string {
	return "http://localhost:3000/preview/" + p.id
}

func sampleFiles(projectName string) []protocol.GeneratedFile {
	index := fmt.Sprintf("<!doctype html>\n<html>\n<head>\n<title>%s</title>\n<link rel=\"stylesheet\" href=\"styles.css\">\n</head>\n<body>\n<h1>%s</h1>\n<script src=\"app.js\"></script>\n</body>\n</html>\n", projectName, projectName)
	css := "body { font-family: sans-serif; margin: 2rem; }\n"
	js := "document.addEventListener('DOMContentLoaded', () => console.log('ready'));\n"
	return protocol.NormalizeFiles([]protocol.GeneratedFile{
		{Path: "index.html", Content: index},
		{Path: "styles.css", Content: css},
		{Path: "app.js", Content: js},
	})
}

func errorRecord(message string) map[string]any {
	return map[string]any{
		"type":      protocol.TypeError,
		"message":   message,
		"timestamp": float64(time.Now().UnixMilli()) / 1000.0,
	}
}

func writeRecord(conn *websocket.Conn, log zerolog.Logger, record map[string]any) bool {
	data, err := json.Marshal(record)
	if err != nil {
		log.Error().Err(err).Msg("marshal reply")
		return true
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn().Err(err).Msg("write failed")
		return false
	}
	return true
}
