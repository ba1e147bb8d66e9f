package chat

import (
	"time"

	"bugeai-chat/db"
)

// MessageListItem is one row of the message list:
// MessageItemState, DateSeparatorItem or TypingItem.
type MessageListItem interface {
	isMessageListItem()
}

// MessageItemState is a rendered chat message
type MessageItemState struct {
	Message           *db.ChatMessage
	IsMine            bool
	CurrentUser       User // author shown in the footer
	ShowMessageFooter bool
	IsMessageRead     bool
}

// DateSeparatorItem starts a new calendar day
type DateSeparatorItem struct {
	Date time.Time
}

// TypingItem shows that the assistant is composing a reply
type TypingItem struct {
	Users []User
}

func (MessageItemState) isMessageListItem()  {}
func (DateSeparatorItem) isMessageListItem() {}
func (TypingItem) isMessageListItem()        {}

// BuildMessageList maps stored messages to list rows. Dates are bucketed in loc
// (time.Local when nil). The last message, while loading with no content yet,
// is rendered as a typing row. Streamed content shows as a regular message.
func BuildMessageList(messages []*db.ChatMessage, currentUser, assistant User, loc *time.Location) []MessageListItem {
	if loc == nil {
		loc = time.Local
	}

	// the last assistant reply marks every earlier user message as read
	lastReplyIdx := -1
	for i, msg := range messages {
		if msg.Role == db.RoleAssistant && msg.Status == db.StatusSent {
			lastReplyIdx = i
		}
	}

	items := make([]MessageListItem, 0, len(messages)+2)
	for i, msg := range messages {
		if i == 0 || !sameDay(messages[i-1].CreatedAt, msg.CreatedAt, loc) {
			y, m, d := msg.CreatedAt.In(loc).Date()
			items = append(items, DateSeparatorItem{Date: time.Date(y, m, d, 0, 0, 0, 0, loc)})
		}

		last := i == len(messages)-1
		if last && msg.IsLoading() && msg.Content == "" {
			items = append(items, TypingItem{Users: []User{assistant}})
			continue
		}

		isMine := msg.Role == db.RoleUser
		author := assistant
		if isMine {
			author = currentUser
		}

		footer := last ||
			messages[i+1].Role != msg.Role ||
			!sameDay(msg.CreatedAt, messages[i+1].CreatedAt, loc)

		items = append(items, MessageItemState{
			Message:           msg,
			IsMine:            isMine,
			CurrentUser:       author,
			ShowMessageFooter: footer,
			IsMessageRead:     isMine && i < lastReplyIdx,
		})
	}
	return items
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
