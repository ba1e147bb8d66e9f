package llm

import (
	"context"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle is used when no usable title could be generated
const DefaultTitle = "新对话"

// Message represents a chat message sent to the completion API
type Message struct {
	Role    string `json:"role"` // "user", "assistant" or "system"
	Content string `json:"content"`
}

// StreamResponse represents a chunk of streaming response
type StreamResponse struct {
	Content string
	Done    bool
	Error   error
}

// Provider is the chat-completion collaborator
type Provider interface {
	// StreamChat sends messages and returns a channel for streaming responses.
	// The channel is closed after a Done or Error chunk.
	StreamChat(ctx context.Context, messages []Message) (<-chan StreamResponse, error)

	// Chat sends messages and returns the complete response (non-streaming)
	Chat(ctx context.Context, messages []Message) (string, error)

	// GenerateTitle generates a short title based on the conversation messages
	GenerateTitle(ctx context.Context, messages []Message) (string, error)

	// Name returns the provider name
	Name() string

	// ValidateConfig validates the provider configuration
	ValidateConfig() error
}

// Config represents provider configuration
type Config struct {
	ProviderName string
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      int // seconds
	MaxTokens    int
	Temperature  float64
}

// cleanTitle cleans up a generated title by removing quotes and extra whitespace
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, "\"'“”「」")
	title = strings.TrimSpace(title)

	// Only the first line is kept
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}

	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:50]) + "..."
	}

	if title == "" {
		title = DefaultTitle
	}

	return title
}
