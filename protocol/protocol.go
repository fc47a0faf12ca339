// Package protocol defines the JSON records exchanged with the AIDE
// generation service over its WebSocket channel: one record per text frame,
// discriminated by a "type" field.
package protocol

import (
	"encoding/json"

	"github.com/aide-ai/aide/errors"
)

// Outbound record types (client to service).
const (
	TypePing                  = "ping"
	TypeNewProject            = "new_project"
	TypeUserMessage           = "user_message"
	TypeGenerateCode          = "generate_code"
	TypeCheckGenerationStatus = "check_generation_status"
	TypeGetPreview            = "get_preview"
	TypeDebugRequest          = "debug_request"
)

// Inbound record types (service to client).
const (
	TypePong                = "pong"
	TypeProjectCreated      = "project_created"
	TypeAgentResponse       = "agent_response"
	TypeCodeGenerated       = "code_generated"
	TypeCodeGenerationError = "code_generation_error"
	TypePreviewURL          = "preview_url"
	TypeGenerationStatus    = "generation_status"
	TypeGenerationStarted   = "generation_started"
	TypeGenerationFailed    = "generation_failed"
	TypeError               = "error"
)

// Envelope is one decoded frame: the type discriminant plus the raw record,
// kept for a second, type-specific decode.
type Envelope struct {
	Type string
	Raw  json.RawMessage
}

// DecodeEnvelope parses a frame just far enough to learn its type.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, errors.Wrapf(err, "malformed frame")
	}
	if head.Type == "" {
		return Envelope{}, errors.New("frame has no type field")
	}
	return Envelope{Type: head.Type, Raw: data}, nil
}

// Decode unmarshals the full record into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Raw, v); err != nil {
		return errors.Wrapf(err, "decode %s record", e.Type)
	}
	return nil
}
