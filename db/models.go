package db

import "time"

// Role identifies who authored a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role that can be stored
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// MessageStatus tracks the delivery state of a chat message.
// A message starts as loading and ends as either sent or failed.
type MessageStatus string

const (
	StatusLoading MessageStatus = "loading"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

// Valid reports whether s is a known status
func (s MessageStatus) Valid() bool {
	return s == StatusLoading || s == StatusSent || s == StatusFailed
}

// Chat represents a conversation thread
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"` // empty until a title is generated
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage represents a single message in a chat
type ChatMessage struct {
	ID        string        `json:"id"`
	ChatID    string        `json:"chat_id"`
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Status    MessageStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// IsFailed reports whether the message failed to send or receive
func (m *ChatMessage) IsFailed() bool {
	return m.Status == StatusFailed
}

// IsLoading reports whether the message is still waiting for content
func (m *ChatMessage) IsLoading() bool {
	return m.Status == StatusLoading
}

// Setting represents a configuration setting
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
