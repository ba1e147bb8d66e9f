package ui

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugeai-chat/chat"
	"bugeai-chat/db"
	"bugeai-chat/llm"
	"bugeai-chat/utils"
)

func TestSquareCorner(t *testing.T) {
	size := fyne.NewSize(100, 40)

	pos, corner := squareCorner(size, 16, true)
	assert.Equal(t, fyne.NewPos(84, 24), pos)
	assert.Equal(t, fyne.NewSize(16, 16), corner)

	pos, _ = squareCorner(size, 16, false)
	assert.Equal(t, fyne.NewPos(0, 24), pos)

	// radius never exceeds half the shorter side
	pos, corner = squareCorner(fyne.NewSize(20, 10), 16, true)
	assert.Equal(t, fyne.NewSize(5, 5), corner)
	assert.Equal(t, fyne.NewPos(15, 5), pos)
}

func TestBubbleWidth(t *testing.T) {
	assert.Equal(t, float32(50), bubbleWidth(50, 400))
	assert.Equal(t, float32(320), bubbleWidth(1000, 400))
}

func TestFormatDay(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local)

	assert.Equal(t, "今天", formatDay(now.Add(-2*time.Hour), now))
	assert.Equal(t, "昨天", formatDay(time.Date(2024, 3, 9, 23, 0, 0, 0, time.Local), now))
	assert.Equal(t, "3月1日", formatDay(time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local), now))
	assert.Equal(t, "2023年12月31日", formatDay(time.Date(2023, 12, 31, 8, 0, 0, 0, time.Local), now))
}

func TestSplitContent(t *testing.T) {
	parts := splitContent("hello\n<think>plan</think>\n```go\nfmt.Println()\n```\nbye")
	require.Len(t, parts, 4)

	assert.Equal(t, contentPart{kind: partText, content: "hello"}, parts[0])
	assert.Equal(t, contentPart{kind: partThinking, content: "plan"}, parts[1])
	assert.Equal(t, contentPart{kind: partCode, content: "fmt.Println()", language: "go"}, parts[2])
	assert.Equal(t, contentPart{kind: partText, content: "bye"}, parts[3])
}

func TestSplitContentUnterminated(t *testing.T) {
	parts := splitContent("<think>still thinking")
	require.Len(t, parts, 1)
	assert.Equal(t, partThinking, parts[0].kind)
	assert.Equal(t, "still thinking", parts[0].content)

	parts = splitContent("look:\n```\nx := 1")
	require.Len(t, parts, 2)
	assert.Equal(t, partCode, parts[1].kind)
	assert.Equal(t, "x := 1", parts[1].content)

	assert.Empty(t, splitContent("   \n"))
}

func TestPlatformValues(t *testing.T) {
	assert.Equal(t, "market://details?id="+utils.AppID, reviewURL("android"))
	assert.Contains(t, reviewURL("ios"), "itms-apps://")
	assert.Empty(t, reviewURL("linux"))

	assert.Equal(t, float32(20), bottomInset("android"))
	assert.Equal(t, float32(34), bottomInset("ios"))
	assert.Equal(t, float32(0), bottomInset("windows"))
}

func TestDatabasePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data/app", "bugeai.db"),
		databasePath("android", "/data/app", "/ignored.db", "/cfg"))
	assert.Equal(t, "/tmp/custom.db", databasePath("linux", "", "/tmp/custom.db", "/cfg"))
	assert.Equal(t, filepath.Join("/cfg", utils.AppID, "bugeai.db"), databasePath("darwin", "", "", "/cfg"))
	assert.Equal(t, "/tmp/custom.db", databasePath("ios", "", "/tmp/custom.db", "/cfg"))
}

func TestChatTitleAndFilter(t *testing.T) {
	chats := []*db.Chat{
		{ID: "1", Title: "Go Generics"},
		{ID: "2", Title: "  "},
		{ID: "3", Title: "Travel plans"},
	}

	assert.Equal(t, llm.DefaultTitle, chatTitle(chats[1]))
	assert.Equal(t, "Go Generics", chatTitle(chats[0]))

	assert.Len(t, filterChats(chats, ""), 3)
	filtered := filterChats(chats, "GENERIC")
	require.Len(t, filtered, 1)
	assert.Equal(t, "1", filtered[0].ID)
	assert.Empty(t, filterChats(chats, "nothing"))
}

func TestApplySettings(t *testing.T) {
	cfg := utils.DefaultConfig()
	form := formFromConfig(cfg)
	form.APIKey = "  sk-test  "
	form.Model = "gpt-4o-mini"
	form.FontSize = "18"

	require.NoError(t, applySettings(cfg, form))
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 18, cfg.UI.FontSize)
	assert.Equal(t, "AI 助手", cfg.Assistant.Name)
}

func TestApplySettingsRejectsInvalid(t *testing.T) {
	cases := map[string]func(f *settingsForm){
		"bad url":    func(f *settingsForm) { f.BaseURL = "not a url" },
		"no model":   func(f *settingsForm) { f.Model = " " },
		"font small": func(f *settingsForm) { f.FontSize = "6" },
		"font nan":   func(f *settingsForm) { f.FontSize = "big" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := utils.DefaultConfig()
			form := formFromConfig(cfg)
			mutate(&form)

			assert.Error(t, applySettings(cfg, form))
			assert.Equal(t, utils.DefaultConfig(), cfg)
		})
	}
}

func TestStorageSummary(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "1.0 MB", formatBytes(1<<20))

	var mem runtime.MemStats
	summary := storageSummary(&db.DBStats{ChatCount: 2, MessageCount: 7, DBSizeBytes: 2048}, &mem)
	assert.Contains(t, summary, "对话数: 2")
	assert.Contains(t, summary, "消息数: 7")
	assert.Contains(t, summary, "2.0 KB")
}

func TestRenderMessageItems(t *testing.T) {
	test.NewTempApp(t)

	now := time.Now()
	messages := []*db.ChatMessage{
		{ID: "a", Role: db.RoleUser, Content: "hi", Status: db.StatusSent, CreatedAt: now},
		{ID: "b", Role: db.RoleAssistant, Content: "hello", Status: db.StatusSent, CreatedAt: now},
		{ID: "c", Role: db.RoleUser, Content: "again", Status: db.StatusFailed, CreatedAt: now},
		{ID: "d", Role: db.RoleAssistant, Status: db.StatusLoading, CreatedAt: now},
	}
	items := chat.BuildMessageList(messages, chat.User{Name: "我"}, chat.User{Name: "AI"}, time.Local)

	objects := renderMessageItems(items, messageActions{
		copy:  func(string) {},
		share: func(string) {},
		retry: func() {},
	}, now)
	require.Len(t, objects, len(items))

	for _, obj := range objects {
		assert.Greater(t, obj.MinSize().Height, float32(0))
	}
}

func TestMessageRowsRebuildOnlyChangedRows(t *testing.T) {
	now := time.Now()
	me, bot := chat.User{Name: "我"}, chat.User{Name: "AI"}
	messages := []*db.ChatMessage{
		{ID: "a", Role: db.RoleUser, Content: "hi", Status: db.StatusSent, CreatedAt: now},
		{ID: "b", Role: db.RoleAssistant, Content: "He", Status: db.StatusLoading, CreatedAt: now},
	}

	rendered := 0
	render := func(chat.MessageListItem) fyne.CanvasObject {
		rendered++
		return fixedSpace(1)
	}

	var rows messageRows
	first := rows.update(chat.BuildMessageList(messages, me, bot, time.Local), now, render)
	require.Len(t, first, 3)
	assert.Equal(t, 3, rendered)

	// a streamed chunk only touches the reply
	messages[1] = &db.ChatMessage{ID: "b", Role: db.RoleAssistant, Content: "Hello", Status: db.StatusLoading, CreatedAt: now}
	second := rows.update(chat.BuildMessageList(messages, me, bot, time.Local), now, render)
	require.Len(t, second, 3)
	assert.Equal(t, 4, rendered)
	assert.Same(t, first[0], second[0])
	assert.Same(t, first[1], second[1])
	assert.NotSame(t, first[2], second[2])

	rows.reset()
	rows.update(chat.BuildMessageList(messages, me, bot, time.Local), now, render)
	assert.Equal(t, 7, rendered)
}

type stubPlatform struct{}

func (stubPlatform) ShowAlert(string, string, func())  {}
func (stubPlatform) NaviBack()                         {}
func (stubPlatform) CurrentWindow() fyne.Window        { return nil }
func (stubPlatform) RequestReview(func(), func(error)) {}
func (stubPlatform) Share(string)                      {}
func (stubPlatform) BottomInset() float32              { return 0 }

type replyProvider struct{}

func (replyProvider) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamResponse, error) {
	ch := make(chan llm.StreamResponse, 2)
	ch <- llm.StreamResponse{Content: "ok"}
	ch <- llm.StreamResponse{Done: true}
	close(ch)
	return ch, nil
}

func (replyProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return "ok", nil
}

func (replyProvider) GenerateTitle(ctx context.Context, messages []llm.Message) (string, error) {
	return "Title", nil
}

func (replyProvider) Name() string          { return "reply" }
func (replyProvider) ValidateConfig() error { return nil }

func TestEntryKeepsKeystrokesAheadOfRender(t *testing.T) {
	test.NewTempApp(t)

	store, err := db.New(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	model := chat.NewScreenModel(store, replyProvider{}, utils.NewNopLogger(), chat.Options{
		Assistant:   chat.User{Name: "AI"},
		CurrentUser: chat.User{Name: "我"},
		Rewards:     utils.RewardsConfig{InitialCoins: 3},
	})
	t.Cleanup(model.Close)
	require.NoError(t, model.Start(""))

	cs := NewChatScreen(&App{logger: utils.NewNopLogger()}, model, stubPlatform{})

	test.Type(cs.entry, "a")
	lagging := model.Screen().Value()
	test.Type(cs.entry, "b")
	require.Equal(t, "ab", model.Screen().Value().Text)

	// a render queued for the first keystroke arrives late
	cs.renderScreen(lagging)
	assert.Equal(t, "ab", cs.entry.Text)
	assert.Equal(t, "ab", model.Screen().Value().Text)

	// the model clearing the text after a send still reaches the entry
	require.NoError(t, model.SendMessage(context.Background()))
	cs.renderScreen(model.Screen().Value())
	assert.Empty(t, cs.entry.Text)
}

func TestBubbleMinSizeWrapsContent(t *testing.T) {
	test.NewTempApp(t)

	label := newSelectableText("hello")
	bubble := NewBubble(label, true, false)
	size := bubble.MinSize()

	assert.GreaterOrEqual(t, size.Width, label.MinSize().Width)
	assert.GreaterOrEqual(t, size.Height, label.MinSize().Height)
}
