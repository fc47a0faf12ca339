package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/aide-ai/aide/config"
	"github.com/aide-ai/aide/connection"
	"github.com/aide-ai/aide/errors"
	"github.com/aide-ai/aide/generation"
	"github.com/aide-ai/aide/protocol"
)

// Transport is the connection surface the store drives. *connection.Manager
// implements it; tests substitute fakes.
type Transport interface {
	Connect(h connection.Handler) error
	Send(v any) error
	Disconnect()
	State() connection.State
	Attempts() int
}

// Snapshot is a copy of the canonical session state for consumers.
type Snapshot struct {
	ProjectID   string
	ProjectName string
	ActiveAgent string
	Connected   bool
	PreviewURL  string
	Messages    []Message
	Files       []protocol.GeneratedFile
	Generation  generation.Status
}

// Store owns the canonical state for one project session and routes every
// record between the consumer and the service. Exactly one session is live
// per Store; NewProject replaces it atomically.
type Store struct {
	cfg    *config.Config
	conn   Transport
	logger zerolog.Logger

	mu          sync.Mutex
	projectID   string
	projectName string
	activeAgent string
	messages    []Message
	files       []protocol.GeneratedFile
	previewURL  string
	connected   bool
	gen         *generation.Tracker
	pending     []string // user texts queued until project_created arrives
	creating    bool     // a new_project command is in flight
	recheck     *time.Timer
	changed     chan struct{}
}

// NewStore creates a Store over the given transport. The transport is owned
// by the store from here on; call Start to connect it.
func NewStore(cfg *config.Config, conn Transport, logger zerolog.Logger) *Store {
	return &Store{
		cfg:     cfg,
		conn:    conn,
		logger:  logger.With().Str("component", "session").Logger(),
		gen:     generation.New(cfg.GenerationTimeout.Std()),
		changed: make(chan struct{}, 1),
	}
}

// Start connects the transport with the store as its event handler. A dial
// failure is not fatal; the transport retries on its own schedule.
func (s *Store) Start() error {
	return s.conn.Connect(s)
}

// Stop cancels timers and closes the transport.
func (s *Store) Stop() {
	s.mu.Lock()
	if s.recheck != nil {
		s.recheck.Stop()
		s.recheck = nil
	}
	s.gen.CancelGuard()
	s.mu.Unlock()
	s.conn.Disconnect()
}

// Changed signals state changes. The channel coalesces, so one receive may
// cover several updates; consumers re-read a full Snapshot on every receive.
func (s *Store) Changed() <-chan struct{} {
	return s.changed
}

func (s *Store) notifyLocked() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ProjectID:   s.projectID,
		ProjectName: s.projectName,
		ActiveAgent: s.activeAgent,
		Connected:   s.connected,
		PreviewURL:  s.previewURL,
		Messages:    append([]Message(nil), s.messages...),
		Files:       append([]protocol.GeneratedFile(nil), s.files...),
		Generation:  s.gen.Status(),
	}
}

// Messages returns a copy of the transcript.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Generation returns a copy of the generation status.
func (s *Store) Generation() generation.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen.Status()
}

// Busy reports whether a generation run is in flight.
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen.Busy()
}

// Connected reports the transport flag as of the last OnOpen or OnClose.
func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// FilesMatching returns the generated files whose paths match the doublestar
// pattern. An empty pattern returns everything.
func (s *Store) FilesMatching(pattern string) ([]protocol.GeneratedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pattern == "" {
		return append([]protocol.GeneratedFile(nil), s.files...), nil
	}
	var out []protocol.GeneratedFile
	for _, f := range s.files {
		ok, err := doublestar.PathMatch(pattern, f.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", pattern)
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// ---- connection.Handler ----

// OnOpen implements connection.Handler.
func (s *Store) OnOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.notifyLocked()
}

// OnClose implements connection.Handler. Running out of automatic reconnect
// attempts is the one connection condition surfaced to the transcript.
func (s *Store) OnClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn.Attempts() >= s.cfg.MaxReconnectAttempts {
		s.appendLocked(errorMessage("Lost the connection to the generation service and gave up retrying. Reconnect when ready."))
	}
	s.notifyLocked()
}

// OnError implements connection.Handler. Transport errors feed the reconnect
// policy through OnClose; here they are only logged.
func (s *Store) OnError(err error) {
	s.logger.Warn().Err(err).Msg("transport error")
}

// OnRecord implements connection.Handler: the dispatch table keyed by record
// type. Unknown types are logged and ignored; malformed payloads of known
// types are logged and dropped. Nothing may escape the dispatcher.
func (s *Store) OnRecord(env protocol.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notifyLocked()

	switch env.Type {
	case protocol.TypeProjectCreated:
		s.handleProjectCreated(env)
	case protocol.TypeAgentResponse:
		s.handleAgentResponse(env)
	case protocol.TypeCodeGenerated:
		s.handleCodeGenerated(env)
	case protocol.TypeCodeGenerationError:
		s.handleCodeGenerationError(env)
	case protocol.TypePreviewURL:
		s.handlePreviewURL(env)
	case protocol.TypeGenerationStatus:
		s.handleGenerationStatus(env)
	case protocol.TypeGenerationStarted:
		// Acknowledgment only; the optimistic Generating transition already
		// happened in GenerateCode.
		s.logger.Debug().Msg("generation started")
	case protocol.TypeGenerationFailed:
		s.handleGenerationFailed(env)
	case protocol.TypeError:
		s.handleServerError(env)
	default:
		s.logger.Debug().Str("type", env.Type).Msg("ignoring unknown record type")
	}
}

// ---- dispatch handlers, called with s.mu held ----

func (s *Store) handleProjectCreated(env protocol.Envelope) {
	var rec protocol.ProjectCreated
	if err := env.Decode(&rec); err != nil {
		s.dropMalformed(err)
		return
	}
	s.projectID = rec.ProjectID
	if rec.ProjectName != "" {
		s.projectName = rec.ProjectName
	}
	s.creating = false
	content := rec.Message
	if content == "" {
		content = fmt.Sprintf("Project %q created.", s.projectName)
	}
	s.appendLocked(systemMessage(content))
	// Flush user messages that were waiting for the project id.
	for _, text := range s.pending {
		s.sendOrReportLocked(protocol.UserMessage(s.projectID, text), "message")
	}
	s.pending = nil
	s.logger.Info().Str("project_id", rec.ProjectID).Str("name", s.projectName).Msg("project created")
}

func (s *Store) handleAgentResponse(env protocol.Envelope) {
	var rec protocol.AgentResponse
	if err := env.Decode(&rec); err != nil {
		s.dropMalformed(err)
		return
	}
	s.activeAgent = rec.Agent
	msg := newMessage(RoleAgent, rec.Message)
	msg.Agent = rec.Agent
	s.appendLocked(msg)
	s.scheduleRecheckLocked()
}

func (s *Store) handleCodeGenerated(env protocol.Envelope) {
	var rec protocol.CodeGenerated
	if err := env.Decode(&rec); err != nil {
		s.dropMalformed(err)
		return
	}
	s.gen.Finish(generation.Completed)
	s.files = protocol.NormalizeFiles(rec.Files)
	if rec.PreviewURL != "" {
		s.previewURL = rec.PreviewURL
	}
	s.appendLocked(systemMessage(fmt.Sprintf(
		"Code generated: %d files, %d bytes total.",
		len(s.files), protocol.TotalSize(s.files))))
	s.logger.Info().Int("files", len(s.files)).Msg("generation completed")
}

func (s *Store) handleCodeGenerationError(env protocol.Envelope) {
	var rec protocol.CodeGenerationError
	if err := env.Decode(&rec); err != nil {
		s.dropMalformed(err)
		return
	}
	s.gen.FinishIfBusy(generation.Failed)
	s.appendLocked(errorMessage("Code generation failed: " + rec.Error))
}

func (s *Store) handlePreviewURL(env protocol.Envelope) {
	var rec protocol.PreviewURL
	if err := env.Decode(&rec); err != nil {
		s.dropMalformed(err)
		return
	}
	if rec.PreviewURL != "" {
		s.previewURL = rec.PreviewURL
	}
}

func (s *Store) handleGenerationStatus(env protocol.Envelope) {
	var rec protocol.GenerationStatus
	if err := env.Decode(&rec); err != nil {
		s.dropMalformed(err)
		return
	}
	s.gen.ApplyStatus(rec.CanGenerate, rec.Message, rec.AgentContributions, rec.Status)
}

func (s *Store) handleGenerationFailed(env protocol.Envelope) {
	var rec protocol.GenerationFailed
	if err := env.Decode(&rec); err != nil {
		s.dropMalformed(err)
		return
	}
	s.gen.FinishIfBusy(generation.Failed)
	reason := rec.Error
	if reason == "" {
		reason = "the service refused to start generating"
	}
	s.appendLocked(errorMessage("Generation not started: " + reason))
}

func (s *Store) handleServerError(env protocol.Envelope) {
	var rec protocol.ServerError
	if err := env.Decode(&rec); err != nil {
		s.dropMalformed(err)
		return
	}
	s.gen.FinishIfBusy(generation.Failed)
	// The service's wording is surfaced verbatim.
	s.appendLocked(errorMessage(rec.Message))
}

func (s *Store) dropMalformed(err error) {
	s.logger.Warn().Err(err).Msg("dropping malformed record")
}

// ---- actions ----

// SendMessage appends text to the transcript immediately and transmits it to
// the service. With no live project it first issues new_project with the
// configured default name and queues the text until project_created arrives.
// Failures surface in the transcript, never as a return value.
func (s *Store) SendMessage(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notifyLocked()

	s.appendLocked(newMessage(RoleUser, text))
	if s.projectID == "" {
		s.pending = append(s.pending, text)
		if !s.creating {
			if s.projectName == "" {
				s.projectName = s.cfg.DefaultProjectName
			}
			s.creating = s.sendOrReportLocked(protocol.NewProject(s.projectName), "project request")
		}
		return
	}
	s.sendOrReportLocked(protocol.UserMessage(s.projectID, text), "message")
}

// NewProject atomically discards the current session and asks the service
// for a fresh one. An empty name falls back to the configured default.
func (s *Store) NewProject(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.cfg.DefaultProjectName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notifyLocked()

	s.resetLocked(name)
	s.creating = s.sendOrReportLocked(protocol.NewProject(name), "project request")
}

// GenerateCode asks the service to build the project. The busy state is set
// optimistically and covered by the generation guard timer, so the consumer
// is never left loading forever.
func (s *Store) GenerateCode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notifyLocked()

	if s.projectID == "" {
		s.appendLocked(errorMessage("No active project. Describe your project first."))
		return
	}
	if s.gen.Busy() {
		s.appendLocked(systemMessage("Generation is already running."))
		return
	}
	if !s.gen.CanGenerate() {
		s.appendLocked(systemMessage("Not ready to generate yet. Keep describing your project."))
		return
	}
	if !s.sendOrReportLocked(protocol.GenerateCode(s.projectID), "generation request") {
		return
	}
	s.gen.Begin(s.guardTimedOut)
	s.logger.Info().Str("project_id", s.projectID).Msg("generation requested")
}

// CheckStatus asks the service whether generation can start. The reply
// arrives as a generation_status record.
func (s *Store) CheckStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projectID == "" {
		return
	}
	s.trySendLocked(protocol.CheckGenerationStatus(s.projectID), "status check")
}

// RequestPreview asks for the hosted preview address of the current project.
func (s *Store) RequestPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notifyLocked()
	if s.projectID == "" {
		s.appendLocked(errorMessage("No active project to preview."))
		return
	}
	s.sendOrReportLocked(protocol.GetPreview(s.projectID), "preview request")
}

// SendDebugReport forwards an error log, and optionally the file suspected
// of causing it, to the service's debugging pipeline.
func (s *Store) SendDebugReport(errorLog, problematicFile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notifyLocked()
	if s.projectID == "" {
		s.appendLocked(errorMessage("No active project to debug."))
		return
	}
	s.sendOrReportLocked(protocol.DebugRequest(s.projectID, errorLog, problematicFile), "debug report")
}

// ---- internals, called with s.mu held ----

// appendLocked adds a transcript entry. The transcript is append-only for
// the life of a project; only resetLocked replaces it.
func (s *Store) appendLocked(m Message) {
	s.messages = append(s.messages, m)
}

// resetLocked clears project identity, transcript, files, preview, and
// generation status in one step. Partial resets are not a valid state.
func (s *Store) resetLocked(name string) {
	s.projectID = ""
	s.projectName = name
	s.activeAgent = ""
	s.messages = nil
	s.files = nil
	s.previewURL = ""
	s.pending = nil
	s.creating = false
	if s.recheck != nil {
		s.recheck.Stop()
		s.recheck = nil
	}
	s.gen.Reset()
}

// guardTimedOut is the generation guard callback. It re-enters the store on
// the timer goroutine; ExpireIfCurrent rejects firings from a run that
// already finished.
func (s *Store) guardTimedOut(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.ExpireIfCurrent(seq) {
		return
	}
	s.appendLocked(errorMessage("Code generation timed out. Try again, or check whether the service is still reachable."))
	s.logger.Warn().Msg("generation timed out")
	s.notifyLocked()
}

// scheduleRecheckLocked arranges a generation-status query shortly after a
// specialist response. Bursts collapse into the latest timer, and the query
// is skipped if the project changed before it fired.
func (s *Store) scheduleRecheckLocked() {
	if s.projectID == "" {
		return
	}
	projectID := s.projectID
	if s.recheck != nil {
		s.recheck.Stop()
	}
	s.recheck = time.AfterFunc(s.cfg.StatusRecheckDelay.Std(), func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.projectID != projectID {
			return
		}
		s.trySendLocked(protocol.CheckGenerationStatus(projectID), "status check")
	})
}

// sendOrReportLocked transmits cmd and, on failure, converts the error into
// an error-flagged transcript entry. what names the command for humans.
func (s *Store) sendOrReportLocked(cmd any, what string) bool {
	if err := s.conn.Send(cmd); err != nil {
		s.logger.Warn().Err(err).Str("command", what).Msg("send failed")
		s.appendLocked(errorMessage(fmt.Sprintf("Failed to send %s. Check the connection and try again.", what)))
		return false
	}
	return true
}

// trySendLocked transmits cmd and only logs failures. Used for opportunistic
// commands no user is waiting on.
func (s *Store) trySendLocked(cmd any, what string) bool {
	if err := s.conn.Send(cmd); err != nil {
		s.logger.Debug().Err(err).Str("command", what).Msg("send skipped")
		return false
	}
	return true
}
