package session

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the originator of a transcript message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Message is one transcript entry. Messages are immutable once appended and
// keep their insertion order; the transcript is never reordered or
// deduplicated.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Agent     string    `json:"agent,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"is_error,omitempty"`
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func systemMessage(content string) Message {
	return newMessage(RoleSystem, content)
}

func errorMessage(content string) Message {
	m := newMessage(RoleSystem, content)
	m.IsError = true
	return m
}
