package chat

import "bugeai-chat/db"

// SettingsStore persists key/value preferences
type SettingsStore interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
}

// Store is the persistence the chat screen needs. *db.DB implements it.
type Store interface {
	SettingsStore

	CreateChat(title string) (*db.Chat, error)
	GetChat(id string) (*db.Chat, error)
	ListChats() ([]*db.Chat, error)
	UpdateChatTitle(id, title string) error
	DeleteChat(id string) error

	CreateMessage(chatID string, role db.Role, content string, status db.MessageStatus) (*db.ChatMessage, error)
	ListMessages(chatID string) ([]*db.ChatMessage, error)
	LastMessage(chatID string) (*db.ChatMessage, error)
	UpdateLoadingContent(id, content string) error
	CompleteMessage(id, content string) error
	FailMessage(id string) error
	DeleteMessage(id string) error
	ClearMessages(chatID string) (int64, error)

	SearchMessages(query string, limit int) ([]*db.SearchResult, error)
}

var _ Store = (*db.DB)(nil)
