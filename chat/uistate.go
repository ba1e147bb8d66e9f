package chat

import "bugeai-chat/db"

// ChatMessagesUiState is the state of the currently selected chat:
// ChatMessagesLoading, ChatMessagesEmpty or ChatMessagesSuccess.
type ChatMessagesUiState interface {
	isChatMessagesUiState()
}

// ChatMessagesLoading is shown before the first load completes
type ChatMessagesLoading struct{}

// ChatMessagesEmpty means no chat is selected
type ChatMessagesEmpty struct{}

// ChatMessagesSuccess holds the selected chat and its messages in creation order
type ChatMessagesSuccess struct {
	Chat     *db.Chat
	Messages []*db.ChatMessage
}

func (ChatMessagesLoading) isChatMessagesUiState() {}
func (ChatMessagesEmpty) isChatMessagesUiState()   {}
func (ChatMessagesSuccess) isChatMessagesUiState() {}

// SelectedChat returns the chat of a success state, or nil
func SelectedChat(state ChatMessagesUiState) *db.Chat {
	if s, ok := state.(ChatMessagesSuccess); ok {
		return s.Chat
	}
	return nil
}

// ChatsUiState is the state of the chat list: ChatsLoading or ChatsSuccess.
type ChatsUiState interface {
	isChatsUiState()
}

// ChatsLoading is shown before the chat list is loaded
type ChatsLoading struct{}

// ChatsSuccess holds every chat, most recently updated first
type ChatsSuccess struct {
	Chats []*db.Chat
}

func (ChatsLoading) isChatsUiState() {}
func (ChatsSuccess) isChatsUiState() {}

// ChatScreenUiState is the input and account state of the chat screen
type ChatScreenUiState struct {
	Text                  string
	IsSending             bool
	Coins                 int
	IsSubToUnlimited      bool
	ActionShowInAppReview bool
	Error                 string
}

// CanSend reports whether the send button should be enabled
func (s ChatScreenUiState) CanSend() bool {
	return !s.IsSending && hasText(s.Text)
}

// HasCoins reports whether a message may be sent without topping up
func (s ChatScreenUiState) HasCoins() bool {
	return s.IsSubToUnlimited || s.Coins > 0
}

// AppScreenUiState drives top-level navigation: AppLoading or AppSuccess.
type AppScreenUiState interface {
	isAppScreenUiState()
}

// AppLoading is shown while preferences are read
type AppLoading struct{}

// AppSuccess tells whether the welcome screen was already completed
type AppSuccess struct {
	IsWelcomeShown bool
}

func (AppLoading) isAppScreenUiState() {}
func (AppSuccess) isAppScreenUiState() {}
