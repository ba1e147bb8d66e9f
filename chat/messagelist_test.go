package chat

import (
	"testing"
	"time"

	"bugeai-chat/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(id string, role db.Role, status db.MessageStatus, content string, at time.Time) *db.ChatMessage {
	return &db.ChatMessage{ID: id, ChatID: "c", Role: role, Status: status, Content: content, CreatedAt: at}
}

func TestBuildMessageList(t *testing.T) {
	me := User{Name: "我"}
	bot := User{Name: "Bugeai"}
	day1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	messages := []*db.ChatMessage{
		message("1", db.RoleUser, db.StatusSent, "hi", day1),
		message("2", db.RoleUser, db.StatusSent, "anyone?", day1.Add(time.Minute)),
		message("3", db.RoleAssistant, db.StatusSent, "hello", day1.Add(2*time.Minute)),
		message("4", db.RoleUser, db.StatusSent, "next day", day2),
		message("5", db.RoleAssistant, db.StatusLoading, "", day2.Add(time.Second)),
	}

	items := BuildMessageList(messages, me, bot, time.UTC)
	require.Len(t, items, 7)

	sep, ok := items[0].(DateSeparatorItem)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), sep.Date)

	first := items[1].(MessageItemState)
	assert.True(t, first.IsMine)
	assert.Equal(t, me, first.CurrentUser)
	assert.False(t, first.ShowMessageFooter, "footer only on the last message of a run")
	assert.True(t, first.IsMessageRead)

	second := items[2].(MessageItemState)
	assert.True(t, second.ShowMessageFooter)
	assert.True(t, second.IsMessageRead)

	reply := items[3].(MessageItemState)
	assert.False(t, reply.IsMine)
	assert.Equal(t, bot, reply.CurrentUser)
	assert.True(t, reply.ShowMessageFooter)
	assert.False(t, reply.IsMessageRead)

	assert.IsType(t, DateSeparatorItem{}, items[4])

	unanswered := items[5].(MessageItemState)
	assert.False(t, unanswered.IsMessageRead)
	assert.True(t, unanswered.ShowMessageFooter)

	typing, ok := items[6].(TypingItem)
	require.True(t, ok)
	assert.Equal(t, []User{bot}, typing.Users)
}

func TestBuildMessageListStreamingAndFailed(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	messages := []*db.ChatMessage{
		message("1", db.RoleUser, db.StatusSent, "hi", at),
		message("2", db.RoleAssistant, db.StatusLoading, "partial", at.Add(time.Second)),
	}

	items := BuildMessageList(messages, User{}, User{}, time.UTC)
	require.Len(t, items, 3)
	streaming := items[2].(MessageItemState)
	assert.Equal(t, "partial", streaming.Message.Content)

	messages[1].Status = db.StatusFailed
	items = BuildMessageList(messages, User{}, User{}, time.UTC)
	failed := items[2].(MessageItemState)
	assert.True(t, failed.Message.IsFailed())
	assert.False(t, items[1].(MessageItemState).IsMessageRead)
}

func TestTypingRowOnlyForLastMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	bot := User{Name: "Bugeai"}
	messages := []*db.ChatMessage{
		message("1", db.RoleUser, db.StatusSent, "hi", at),
		message("2", db.RoleAssistant, db.StatusLoading, "", at.Add(time.Second)),
		message("3", db.RoleUser, db.StatusSent, "still there?", at.Add(2*time.Second)),
		message("4", db.RoleAssistant, db.StatusLoading, "", at.Add(3*time.Second)),
	}

	items := BuildMessageList(messages, User{}, bot, time.UTC)
	require.Len(t, items, 5)

	stale, ok := items[2].(MessageItemState)
	require.True(t, ok, "a loading message in the middle is a regular row, got %T", items[2])
	assert.Equal(t, "2", stale.Message.ID)

	typing, ok := items[4].(TypingItem)
	require.True(t, ok)
	assert.Equal(t, []User{bot}, typing.Users)
}

func TestBuildMessageListEmpty(t *testing.T) {
	assert.Empty(t, BuildMessageList(nil, User{}, User{}, nil))
}

func TestUserInitial(t *testing.T) {
	assert.Equal(t, "B", User{Name: "Bugeai"}.Initial())
	assert.Equal(t, "我", User{Name: "我们"}.Initial())
	assert.Equal(t, "?", User{}.Initial())
}
