package ui

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"bugeai-chat/chat"
	"bugeai-chat/db"
	"bugeai-chat/utils"
)

const drawerWidth = 260

// inputEntry sends on Ctrl+Enter
type inputEntry struct {
	widget.Entry
	onCtrlEnter func()
}

func newInputEntry(onCtrlEnter func()) *inputEntry {
	e := &inputEntry{onCtrlEnter: onCtrlEnter}
	e.MultiLine = true
	e.Wrapping = fyne.TextWrapWord
	e.SetMinRowsVisible(2)
	e.ExtendBaseWidget(e)
	return e
}

// TypedShortcut handles keyboard shortcuts
func (e *inputEntry) TypedShortcut(shortcut fyne.Shortcut) {
	if ks, ok := shortcut.(*desktop.CustomShortcut); ok {
		if (ks.KeyName == fyne.KeyReturn || ks.KeyName == fyne.KeyEnter) &&
			ks.Modifier == desktop.ControlModifier {
			if e.onCtrlEnter != nil {
				e.onCtrlEnter()
			}
			return
		}
	}
	e.Entry.TypedShortcut(shortcut)
}

// ChatScreen renders the chat screen model
type ChatScreen struct {
	app      *App
	model    *chat.ScreenModel
	platform Platform

	messages   *fyne.Container
	scroll     *container.Scroll
	entry      *inputEntry
	sendButton *widget.Button
	progress   *widget.ProgressBarInfinite
	coinsLabel *widget.Label
	drawer     *ChatDrawer
	drawerPane *fyne.Container
	content    fyne.CanvasObject

	rows       messageRows
	selectedID string
	cancels    []func()
}

// NewChatScreen builds the chat screen
func NewChatScreen(app *App, model *chat.ScreenModel, platform Platform) *ChatScreen {
	cs := &ChatScreen{app: app, model: model, platform: platform}
	cs.content = cs.build()
	return cs
}

// Content is the root object of the screen
func (cs *ChatScreen) Content() fyne.CanvasObject {
	return cs.content
}

func (cs *ChatScreen) build() fyne.CanvasObject {
	cs.messages = container.NewVBox()
	cs.scroll = container.NewVScroll(cs.messages)

	cs.drawer = NewChatDrawer(drawerActions{
		selectChat: func(id string) {
			cs.model.OnChatSelected(id)
			cs.closeDrawer()
		},
		newChat: func() {
			cs.model.OnNewChat()
			cs.closeDrawer()
		},
		deleteChat: cs.confirmDeleteChat,
		exportChat: cs.exportChat,
		search: func(query string) []*db.SearchResult {
			results, err := cs.model.Search(query, searchLimit)
			if err != nil {
				cs.app.logger.Warn("Search failed: %v", err)
			}
			return results
		},
	})
	drawerBg := canvas.NewRectangle(colorBubbleTheirs)
	width := canvas.NewRectangle(color.Transparent)
	width.SetMinSize(fyne.NewSize(drawerWidth, 0))
	cs.drawerPane = container.NewStack(drawerBg, width, cs.drawer)
	cs.drawerPane.Hide()

	return container.NewBorder(
		cs.buildHeader(),
		cs.buildBottomBar(),
		cs.drawerPane,
		nil,
		cs.scroll,
	)
}

func (cs *ChatScreen) buildHeader() fyne.CanvasObject {
	assistant := cs.model.Assistant()

	back := widget.NewButtonWithIcon("", theme.NavigateBackIcon(), cs.platform.NaviBack)
	back.Importance = widget.LowImportance
	menu := widget.NewButtonWithIcon("", theme.MenuIcon(), cs.toggleDrawer)
	menu.Importance = widget.LowImportance
	var more *widget.Button
	more = widget.NewButtonWithIcon("", theme.MoreVerticalIcon(), func() {
		pop := widget.NewPopUpMenu(fyne.NewMenu("",
			fyne.NewMenuItem("导出当前对话", cs.ExportCurrent),
			fyne.NewMenuItem("存储信息", cs.app.showStorageInfo),
			fyne.NewMenuItem("设置", cs.app.showSettings),
		), cs.app.window.Canvas())
		pos := fyne.CurrentApp().Driver().AbsolutePositionForObject(more)
		pop.ShowAtPosition(pos.Add(fyne.NewPos(0, more.Size().Height)))
	})
	more.Importance = widget.LowImportance

	name := widget.NewLabel(assistant.Name)
	name.TextStyle = fyne.TextStyle{Bold: true}
	name.Alignment = fyne.TextAlignCenter
	status := captionText("Connected", colorFooterText)
	status.Alignment = fyne.TextAlignCenter

	avatar := widget.NewButton("", func() {
		cs.platform.ShowAlert("清除", "你确定要清除聊天内容吗?", cs.model.OnClearChat)
	})
	avatar.Importance = widget.LowImportance
	avatarButton := container.NewStack(avatar, newAvatar(assistant, avatarSize))

	return container.NewVBox(
		container.NewBorder(nil, nil,
			container.NewHBox(back, menu),
			container.NewHBox(more, avatarButton),
			container.NewVBox(name, status),
		),
		widget.NewSeparator(),
	)
}

func (cs *ChatScreen) buildBottomBar() fyne.CanvasObject {
	cs.progress = widget.NewProgressBarInfinite()
	cs.progress.Hide()

	cs.entry = newInputEntry(cs.send)
	cs.entry.SetPlaceHolder("输入消息... (Ctrl+Enter 发送)")
	cs.entry.OnChanged = cs.model.OnTextChange

	cs.sendButton = widget.NewButtonWithIcon("", theme.MailSendIcon(), cs.send)
	cs.sendButton.Importance = widget.HighImportance
	cs.sendButton.Disable()

	cs.coinsLabel = widget.NewLabel("")
	cs.coinsLabel.TextStyle = fyne.TextStyle{Italic: true}

	return container.NewVBox(
		cs.progress,
		container.NewBorder(nil, nil, nil, cs.sendButton, cs.entry),
		cs.coinsLabel,
		fixedSpace(cs.platform.BottomInset()),
	)
}

// Bind subscribes the screen to the model's state streams
func (cs *ChatScreen) Bind() {
	logger := cs.app.logger

	chatCh, cancelChat := cs.model.CurrentChat().Subscribe()
	chatsCh, cancelChats := cs.model.Chats().Subscribe()
	screenCh, cancelScreen := cs.model.Screen().Subscribe()
	cs.cancels = append(cs.cancels, cancelChat, cancelChats, cancelScreen)

	utils.SafeGo(logger, "chat state", func() {
		for state := range chatCh {
			fyne.Do(func() { cs.renderChat(state) })
		}
	})
	utils.SafeGo(logger, "chats state", func() {
		for state := range chatsCh {
			fyne.Do(func() { cs.renderChats(state) })
		}
	})
	utils.SafeGo(logger, "screen state", func() {
		for state := range screenCh {
			fyne.Do(func() { cs.renderScreen(state) })
		}
	})
}

// Unbind stops listening to the model
func (cs *ChatScreen) Unbind() {
	for _, cancel := range cs.cancels {
		cancel()
	}
	cs.cancels = nil
}

func (cs *ChatScreen) renderChat(state chat.ChatMessagesUiState) {
	var objects []fyne.CanvasObject
	switch s := state.(type) {
	case chat.ChatMessagesLoading:
		objects = []fyne.CanvasObject{widget.NewProgressBarInfinite()}
		cs.selectedID = ""
		cs.rows.reset()
	case chat.ChatMessagesEmpty:
		objects = []fyne.CanvasObject{cs.emptyPlaceholder()}
		cs.selectedID = ""
		cs.rows.reset()
	case chat.ChatMessagesSuccess:
		items := chat.BuildMessageList(s.Messages, cs.model.CurrentUser(), cs.model.Assistant(), time.Local)
		now := time.Now()
		actions := messageActions{
			copy:  cs.copyMessage,
			share: cs.shareMessage,
			retry: cs.model.OnRetrySendMessage,
		}
		objects = cs.rows.update(items, now, func(item chat.MessageListItem) fyne.CanvasObject {
			return renderMessageItem(item, actions, now)
		})
		cs.selectedID = s.Chat.ID
	}

	cs.messages.Objects = objects
	cs.messages.Refresh()
	cs.drawer.SetSelected(cs.selectedID)
	cs.scroll.ScrollToBottom()
}

func (cs *ChatScreen) emptyPlaceholder() fyne.CanvasObject {
	hint := widget.NewLabel(fmt.Sprintf("和 %s 说点什么吧", cs.model.Assistant().Name))
	hint.Alignment = fyne.TextAlignCenter
	return container.NewVBox(
		container.NewCenter(newAvatar(cs.model.Assistant(), avatarSize*2)),
		hint,
	)
}

func (cs *ChatScreen) renderChats(state chat.ChatsUiState) {
	if s, ok := state.(chat.ChatsSuccess); ok {
		cs.drawer.SetChats(s.Chats)
		cs.drawer.SetSelected(cs.selectedID)
	}
}

func (cs *ChatScreen) renderScreen(state chat.ChatScreenUiState) {
	cs.syncEntry()

	if state.CanSend() {
		cs.sendButton.Enable()
	} else {
		cs.sendButton.Disable()
	}

	if state.IsSending {
		cs.progress.Show()
		cs.progress.Start()
	} else {
		cs.progress.Stop()
		cs.progress.Hide()
	}

	if state.IsSubToUnlimited {
		cs.coinsLabel.SetText("无限畅聊")
	} else {
		cs.coinsLabel.SetText(fmt.Sprintf("剩余金币: %d", state.Coins))
	}

	if state.Error != "" {
		cs.model.OnErrorShown()
		cs.app.showError(state.Error)
	}

	if state.ActionShowInAppReview {
		cs.model.OnInAppReviewShown()
		cs.platform.RequestReview(cs.model.OnInAppReviewComplete, cs.model.OnInAppReviewError)
	}
}

// syncEntry copies the model's text into the entry when the model changed it,
// like clearing after a send. The current value is used rather than the
// rendered snapshot, which lags behind keystrokes.
func (cs *ChatScreen) syncEntry() {
	if text := cs.model.Screen().Value().Text; cs.entry.Text != text {
		cs.entry.SetText(text)
	}
}

// send guards the coin balance before handing the text to the model
func (cs *ChatScreen) send() {
	state := cs.model.Screen().Value()
	if !state.CanSend() {
		return
	}
	if !state.HasCoins() {
		cs.showBank()
		return
	}
	cs.model.OnSendMessage()
}

func (cs *ChatScreen) showBank() {
	cs.app.showInfo("金币已用完。\n每条回复消耗 1 枚金币，订阅后可无限畅聊。")
}

func (cs *ChatScreen) copyMessage(text string) {
	if w := cs.platform.CurrentWindow(); w != nil {
		w.Clipboard().SetContent(text)
	}
	cs.model.OnMessageCopied()
}

func (cs *ChatScreen) shareMessage(text string) {
	cs.platform.Share(cs.model.OnMessageShared(text))
}

func (cs *ChatScreen) confirmDeleteChat(id string) {
	cs.platform.ShowAlert("删除对话", "确定要删除这个对话吗？此操作不可撤销！", func() {
		cs.model.OnChatDeleted(id)
	})
}

func (cs *ChatScreen) exportChat(id string) {
	dir := ExportDir(cs.app.fyneApp)
	utils.SafeGoWithError(cs.app.logger, "export chat", func() error {
		path, err := cs.model.ExportChat(id, dir)
		if err != nil {
			return err
		}
		fyne.Do(func() { cs.app.showInfo("导出成功!\n文件保存在: " + path) })
		return nil
	}, func(err error) {
		fyne.Do(func() { cs.app.showError("导出失败: " + err.Error()) })
	})
}

// ExportCurrent exports the selected chat, if any
func (cs *ChatScreen) ExportCurrent() {
	if cs.selectedID == "" {
		cs.app.showError("请先选择一个对话")
		return
	}
	cs.exportChat(cs.selectedID)
}

func (cs *ChatScreen) toggleDrawer() {
	if cs.drawerPane.Visible() {
		cs.closeDrawer()
		return
	}
	cs.drawerPane.Show()
}

// closeDrawer hides the drawer and reports whether it was open
func (cs *ChatScreen) closeDrawer() bool {
	if !cs.drawerPane.Visible() {
		return false
	}
	cs.drawerPane.Hide()
	return true
}
