package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"

	"bugeai-chat/db"
	"bugeai-chat/llm"
	"bugeai-chat/utils"
)

var (
	// ErrNoCoins is returned when a message is sent with an empty balance
	ErrNoCoins = errors.New("no coins left")
	// ErrIncompleteResponse is returned when the stream closes without finishing
	ErrIncompleteResponse = errors.New("response stream ended before completion")
)

const defaultMaxRetries = 2

// Options configures a ScreenModel
type Options struct {
	Assistant     User
	CurrentUser   User
	SystemPrompt  string
	ContextTokens int
	TokenCounter  llm.TokenCounter
	MaxRetries    int
	Rewards       utils.RewardsConfig
}

// OptionsFromConfig builds Options from the loaded configuration
func OptionsFromConfig(cfg *utils.Config) Options {
	return Options{
		Assistant:     User{Name: cfg.Assistant.Name, Icon: cfg.Assistant.Icon},
		CurrentUser:   User{Name: cfg.Assistant.UserName},
		SystemPrompt:  cfg.Assistant.SystemPrompt,
		ContextTokens: cfg.Data.ContextTokens,
		TokenCounter:  llm.NewTokenCounter(cfg.OpenAI.Model),
		MaxRetries:    cfg.OpenAI.MaxRetries,
		Rewards:       cfg.Rewards,
	}
}

// ScreenModel owns the state of the chat screen. Intents (On*) return
// immediately and do their work in the background; the results show up on
// the state streams.
type ScreenModel struct {
	store    Store
	provider llm.Provider
	prefs    *Preferences
	logger   *utils.Logger
	opts     Options

	currentChat *utils.StateFlow[ChatMessagesUiState]
	chats       *utils.StateFlow[ChatsUiState]
	screen      *utils.StateFlow[ChatScreenUiState]

	mu     sync.Mutex
	chatID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

// NewScreenModel creates a screen model. Call Start before using it.
func NewScreenModel(store Store, provider llm.Provider, logger *utils.Logger, opts Options) *ScreenModel {
	if opts.TokenCounter == nil {
		opts.TokenCounter = llm.EstimateTokens
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ScreenModel{
		store:       store,
		provider:    provider,
		prefs:       NewPreferences(store),
		logger:      logger,
		opts:        opts,
		currentChat: utils.NewStateFlow[ChatMessagesUiState](ChatMessagesLoading{}),
		chats:       utils.NewStateFlow[ChatsUiState](ChatsLoading{}),
		screen:      utils.NewStateFlow(ChatScreenUiState{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// CurrentChat is the stream of the selected chat and its messages
func (m *ScreenModel) CurrentChat() *utils.StateFlow[ChatMessagesUiState] { return m.currentChat }

// Chats is the stream of all chats for the drawer
func (m *ScreenModel) Chats() *utils.StateFlow[ChatsUiState] { return m.chats }

// Screen is the stream of input and account state
func (m *ScreenModel) Screen() *utils.StateFlow[ChatScreenUiState] { return m.screen }

// Assistant returns the character the user is chatting with
func (m *ScreenModel) Assistant() User { return m.opts.Assistant }

// CurrentUser returns the local user
func (m *ScreenModel) CurrentUser() User { return m.opts.CurrentUser }

// Start loads preferences and chats, then selects chatID, or the most recent
// chat when chatID is empty.
func (m *ScreenModel) Start(chatID string) error {
	coins, err := m.prefs.Coins(m.opts.Rewards.InitialCoins)
	if err != nil {
		return fmt.Errorf("failed to load coins: %w", err)
	}
	m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
		s.Coins = coins
		s.IsSubToUnlimited = m.opts.Rewards.Unlimited
		return s
	})

	chats, err := m.refreshChats()
	if err != nil {
		return err
	}
	if chatID == "" && len(chats) > 0 {
		chatID = chats[0].ID
	}
	return m.selectChat(chatID)
}

// Close cancels in-flight work and waits for it to finish
func (m *ScreenModel) Close() {
	m.cancel()
	m.wg.Wait()
}

// Wait blocks until every intent started so far has finished
func (m *ScreenModel) Wait() {
	m.wg.Wait()
}

// launch runs an intent in the background and reports its error on the screen state
func (m *ScreenModel) launch(name string, fn func(ctx context.Context) error) {
	m.wg.Go(func() {
		utils.RunSafe(m.logger, name, func() {
			if err := fn(m.ctx); err != nil {
				m.logger.Error("%s failed: %v", name, err)
				m.setError(err)
			}
		})
	})
}

// OnTextChange updates the input text
func (m *ScreenModel) OnTextChange(text string) {
	m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
		s.Text = text
		return s
	})
}

func (m *ScreenModel) OnSendMessage() {
	m.launch("send message", m.SendMessage)
}

func (m *ScreenModel) OnRetrySendMessage() {
	m.launch("retry message", m.RetrySendMessage)
}

// OnNewChat deselects the current chat. The chat row is created on the first send.
func (m *ScreenModel) OnNewChat() {
	m.setChatID("")
	m.currentChat.Set(ChatMessagesEmpty{})
}

func (m *ScreenModel) OnClearChat() {
	m.launch("clear chat", func(context.Context) error { return m.ClearChat() })
}

func (m *ScreenModel) OnChatSelected(id string) {
	m.launch("select chat", func(context.Context) error { return m.selectChat(id) })
}

func (m *ScreenModel) OnChatDeleted(id string) {
	m.launch("delete chat", func(context.Context) error { return m.DeleteChat(id) })
}

// OnMessageCopied is called after a message was put on the clipboard
func (m *ScreenModel) OnMessageCopied() {
	m.logger.Debug("Message copied to clipboard")
}

// OnMessageShared returns the text handed to the platform share sheet
func (m *ScreenModel) OnMessageShared(text string) string {
	m.logger.Debug("Message shared (%d chars)", len([]rune(text)))
	return utils.FormatShareText(text)
}

// OnInAppReviewShown consumes the review action so it is not raised again
func (m *ScreenModel) OnInAppReviewShown() {
	m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
		s.ActionShowInAppReview = false
		return s
	})
	if err := m.prefs.SetBool(keyReviewShown, true); err != nil {
		m.logger.Warn("Failed to save review state: %v", err)
	}
}

func (m *ScreenModel) OnInAppReviewComplete() {
	if err := m.prefs.SetBool(keyReviewDone, true); err != nil {
		m.logger.Warn("Failed to save review state: %v", err)
	}
}

func (m *ScreenModel) OnInAppReviewError(err error) {
	m.logger.Warn("In-app review failed: %v", err)
}

// OnErrorShown clears the error banner
func (m *ScreenModel) OnErrorShown() {
	m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
		s.Error = ""
		return s
	})
}

// SendMessage sends the current input text and streams the reply
func (m *ScreenModel) SendMessage(ctx context.Context) error {
	var (
		text     string
		acquired bool
		noCoins  bool
	)
	m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
		if s.IsSending || !hasText(s.Text) {
			return s
		}
		if !s.HasCoins() {
			noCoins = true
			return s
		}
		text = strings.TrimSpace(s.Text)
		acquired = true
		s.IsSending = true
		s.Text = ""
		s.Error = ""
		return s
	})
	if noCoins {
		return ErrNoCoins
	}
	if !acquired {
		return nil
	}
	defer m.setSending(false)

	chatID, err := m.ensureChat()
	if err != nil {
		m.restoreText(text)
		return err
	}

	if _, err := m.store.CreateMessage(chatID, db.RoleUser, text, db.StatusSent); err != nil {
		m.restoreText(text)
		return fmt.Errorf("failed to save message: %w", err)
	}
	m.reload(chatID)
	// the chat may be new, and its activity order just changed
	if _, err := m.refreshChats(); err != nil {
		m.logger.Warn("Failed to refresh chats: %v", err)
	}

	return m.complete(ctx, chatID)
}

// RetrySendMessage drops the trailing failed reply and asks for a new one
func (m *ScreenModel) RetrySendMessage(ctx context.Context) error {
	chatID := m.selectedChatID()
	if chatID == "" {
		return nil
	}

	var acquired, noCoins bool
	m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
		if s.IsSending {
			return s
		}
		if !s.HasCoins() {
			noCoins = true
			return s
		}
		acquired = true
		s.IsSending = true
		s.Error = ""
		return s
	})
	if noCoins {
		return ErrNoCoins
	}
	if !acquired {
		return nil
	}
	defer m.setSending(false)

	last, err := m.store.LastMessage(chatID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return err
	}
	if !last.IsFailed() {
		return nil
	}
	if err := m.store.DeleteMessage(last.ID); err != nil {
		return fmt.Errorf("failed to remove failed message: %w", err)
	}
	m.reload(chatID)

	return m.complete(ctx, chatID)
}

// ClearChat deletes every message of the selected chat
func (m *ScreenModel) ClearChat() error {
	chatID := m.selectedChatID()
	if chatID == "" {
		return nil
	}
	if m.screen.Value().IsSending {
		return nil
	}
	n, err := m.store.ClearMessages(chatID)
	if err != nil {
		return fmt.Errorf("failed to clear chat: %w", err)
	}
	m.logger.Info("Cleared %d messages from chat %s", n, chatID)
	m.reload(chatID)
	_, err = m.refreshChats()
	return err
}

// DeleteChat removes a chat and its messages. When it was selected the most
// recent remaining chat is selected instead.
func (m *ScreenModel) DeleteChat(id string) error {
	if m.screen.Value().IsSending && m.selectedChatID() == id {
		return nil
	}
	if err := m.store.DeleteChat(id); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	m.logger.Info("Deleted chat %s", id)

	chats, err := m.refreshChats()
	if err != nil {
		return err
	}
	if m.selectedChatID() != id {
		return nil
	}
	next := ""
	if len(chats) > 0 {
		next = chats[0].ID
	}
	return m.selectChat(next)
}

// ExportChat writes the chat as Markdown into dir and returns the file path
func (m *ScreenModel) ExportChat(id, dir string) (string, error) {
	c, err := m.store.GetChat(id)
	if err != nil {
		return "", fmt.Errorf("failed to load chat: %w", err)
	}
	messages, err := m.store.ListMessages(id)
	if err != nil {
		return "", fmt.Errorf("failed to load messages: %w", err)
	}
	path, err := utils.WriteChatExport(dir, c, messages, utils.ExportNames{
		User:      m.opts.CurrentUser.Name,
		Assistant: m.opts.Assistant.Name,
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("Exported chat %s to %s", id, path)
	return path, nil
}

// Search finds messages containing query across all chats
func (m *ScreenModel) Search(query string, limit int) ([]*db.SearchResult, error) {
	if !hasText(query) {
		return nil, nil
	}
	return m.store.SearchMessages(strings.TrimSpace(query), limit)
}

// complete asks the provider for a reply to the stored history of chatID
func (m *ScreenModel) complete(ctx context.Context, chatID string) error {
	history, err := m.store.ListMessages(chatID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	placeholder, err := m.store.CreateMessage(chatID, db.RoleAssistant, "", db.StatusLoading)
	if err != nil {
		return fmt.Errorf("failed to save reply: %w", err)
	}
	m.reload(chatID)

	prompt := m.buildPrompt(history)
	stream, err := llm.StreamChatWithRetry(ctx, m.provider, prompt, m.opts.MaxRetries, m.logger)
	if err != nil {
		m.fail(chatID, placeholder.ID, "")
		return err
	}

	var sb strings.Builder
	done := false
	for chunk := range stream {
		if chunk.Error != nil {
			m.fail(chatID, placeholder.ID, sb.String())
			return chunk.Error
		}
		if chunk.Content != "" {
			sb.WriteString(chunk.Content)
			m.publishPartial(chatID, placeholder.ID, sb.String())
		}
		if chunk.Done {
			done = true
			break
		}
	}
	if !done {
		m.fail(chatID, placeholder.ID, sb.String())
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrIncompleteResponse
	}

	if err := m.store.CompleteMessage(placeholder.ID, sb.String()); err != nil {
		return fmt.Errorf("failed to save reply: %w", err)
	}
	m.reload(chatID)
	m.onDelivered()
	m.maybeGenerateTitle(ctx, chatID)
	if _, err := m.refreshChats(); err != nil {
		m.logger.Warn("Failed to refresh chats: %v", err)
	}
	return nil
}

// buildPrompt turns sent messages into a prompt that fits the token budget
func (m *ScreenModel) buildPrompt(history []*db.ChatMessage) []llm.Message {
	prompt := make([]llm.Message, 0, len(history)+1)
	if m.opts.SystemPrompt != "" {
		prompt = append(prompt, llm.Message{Role: llm.RoleSystem, Content: m.opts.SystemPrompt})
	}
	for _, msg := range history {
		if msg.Status != db.StatusSent {
			continue
		}
		prompt = append(prompt, llm.Message{Role: string(msg.Role), Content: msg.Content})
	}

	if m.opts.ContextTokens <= 0 {
		return prompt
	}
	trimmed, dropped := llm.TrimHistory(prompt, m.opts.ContextTokens, m.opts.TokenCounter)
	if dropped {
		m.logger.Debug("Trimmed history from %d to %d messages", len(prompt), len(trimmed))
	}
	return trimmed
}

// fail keeps whatever was streamed and marks the reply as failed
func (m *ScreenModel) fail(chatID, messageID, partial string) {
	if partial != "" {
		if err := m.store.UpdateLoadingContent(messageID, partial); err != nil {
			m.logger.Warn("Failed to save partial reply: %v", err)
		}
	}
	if err := m.store.FailMessage(messageID); err != nil {
		m.logger.Error("Failed to mark message %s as failed: %v", messageID, err)
	}
	m.reload(chatID)
}

// publishPartial shows streamed content without touching the database
func (m *ScreenModel) publishPartial(chatID, messageID, content string) {
	m.currentChat.Update(func(state ChatMessagesUiState) ChatMessagesUiState {
		s, ok := state.(ChatMessagesSuccess)
		if !ok || s.Chat.ID != chatID {
			return state
		}
		messages := make([]*db.ChatMessage, len(s.Messages))
		for i, msg := range s.Messages {
			if msg.ID == messageID {
				cp := *msg
				cp.Content = content
				msg = &cp
			}
			messages[i] = msg
		}
		return ChatMessagesSuccess{Chat: s.Chat, Messages: messages}
	})
}

// onDelivered spends a coin and raises the review action once enough replies arrived
func (m *ScreenModel) onDelivered() {
	if !m.opts.Rewards.Unlimited {
		coins := m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
			if s.Coins > 0 {
				s.Coins--
			}
			return s
		}).Coins
		if err := m.prefs.SetInt(keyCoins, coins); err != nil {
			m.logger.Warn("Failed to save coins: %v", err)
		}
	}

	sent, err := m.prefs.Int(keySentCount, 0)
	if err != nil {
		m.logger.Warn("Failed to read sent count: %v", err)
	}
	sent++
	if err := m.prefs.SetInt(keySentCount, sent); err != nil {
		m.logger.Warn("Failed to save sent count: %v", err)
	}

	threshold := m.opts.Rewards.ReviewAfterMessages
	if threshold <= 0 || sent < threshold {
		return
	}
	shown, _ := m.prefs.Bool(keyReviewShown)
	done, _ := m.prefs.Bool(keyReviewDone)
	if shown || done {
		return
	}
	m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
		s.ActionShowInAppReview = true
		return s
	})
}

// maybeGenerateTitle names a chat after its first exchange
func (m *ScreenModel) maybeGenerateTitle(ctx context.Context, chatID string) {
	c, err := m.store.GetChat(chatID)
	if err != nil || c.Title != "" {
		return
	}
	history, err := m.store.ListMessages(chatID)
	if err != nil {
		return
	}

	var messages []llm.Message
	for _, msg := range history {
		if msg.Status == db.StatusSent {
			messages = append(messages, llm.Message{Role: string(msg.Role), Content: msg.Content})
		}
	}
	if len(messages) < 2 {
		return
	}

	title, err := m.provider.GenerateTitle(ctx, messages)
	if err != nil {
		m.logger.Warn("Failed to generate title: %v", err)
		return
	}
	if err := m.store.UpdateChatTitle(chatID, title); err != nil {
		m.logger.Warn("Failed to save title: %v", err)
		return
	}
	m.reload(chatID)
}

// ensureChat returns the selected chat, creating one when nothing is selected
func (m *ScreenModel) ensureChat() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chatID != "" {
		return m.chatID, nil
	}
	c, err := m.store.CreateChat("")
	if err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}
	m.chatID = c.ID
	m.logger.Info("Created chat %s", c.ID)
	return c.ID, nil
}

func (m *ScreenModel) selectChat(id string) error {
	m.setChatID(id)
	if id == "" {
		m.currentChat.Set(ChatMessagesEmpty{})
		return nil
	}
	if _, err := m.store.GetChat(id); err != nil {
		m.setChatID("")
		m.currentChat.Set(ChatMessagesEmpty{})
		return fmt.Errorf("failed to open chat %s: %w", id, err)
	}
	m.reload(id)
	return nil
}

// reload publishes the stored state of chatID if it is still selected
func (m *ScreenModel) reload(chatID string) {
	c, err := m.store.GetChat(chatID)
	if err != nil {
		m.logger.Error("Failed to load chat %s: %v", chatID, err)
		return
	}
	messages, err := m.store.ListMessages(chatID)
	if err != nil {
		m.logger.Error("Failed to load messages of %s: %v", chatID, err)
		return
	}
	if m.selectedChatID() != chatID {
		return
	}
	m.currentChat.Set(ChatMessagesSuccess{Chat: c, Messages: messages})
}

func (m *ScreenModel) refreshChats() ([]*db.Chat, error) {
	chats, err := m.store.ListChats()
	if err != nil {
		return nil, fmt.Errorf("failed to load chats: %w", err)
	}
	m.chats.Set(ChatsSuccess{Chats: chats})
	return chats, nil
}

func (m *ScreenModel) selectedChatID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chatID
}

func (m *ScreenModel) setChatID(id string) {
	m.mu.Lock()
	m.chatID = id
	m.mu.Unlock()
}

func (m *ScreenModel) setSending(sending bool) {
	m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
		s.IsSending = sending
		return s
	})
}

func (m *ScreenModel) setError(err error) {
	m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
		s.Error = err.Error()
		return s
	})
}

// restoreText puts text back into an empty input after a failed send
func (m *ScreenModel) restoreText(text string) {
	m.screen.Update(func(s ChatScreenUiState) ChatScreenUiState {
		if s.Text == "" {
			s.Text = text
		}
		return s
	})
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
