package ui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"bugeai-chat/db"
	"bugeai-chat/llm"
)

const searchLimit = 20

// chatTitle is the label of a chat in the drawer
func chatTitle(c *db.Chat) string {
	if strings.TrimSpace(c.Title) == "" {
		return llm.DefaultTitle
	}
	return c.Title
}

// filterChats keeps the chats whose title contains text, ignoring case
func filterChats(chats []*db.Chat, text string) []*db.Chat {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return chats
	}
	var out []*db.Chat
	for _, c := range chats {
		if strings.Contains(strings.ToLower(chatTitle(c)), text) {
			out = append(out, c)
		}
	}
	return out
}

// drawerActions are the callbacks of the chat drawer
type drawerActions struct {
	selectChat func(id string)
	newChat    func()
	deleteChat func(id string)
	exportChat func(id string)
	search     func(query string) []*db.SearchResult
}

// ChatItem is a clickable chat row with a context menu
type ChatItem struct {
	widget.BaseWidget
	drawer      *ChatDrawer
	chat        *db.Chat
	label       *widget.Label
	highlighted bool
}

// NewChatItem creates a chat row
func NewChatItem(drawer *ChatDrawer, c *db.Chat, highlighted bool) *ChatItem {
	item := &ChatItem{drawer: drawer, chat: c}
	item.label = widget.NewLabel(chatTitle(c))
	item.label.Truncation = fyne.TextTruncateEllipsis
	item.ExtendBaseWidget(item)
	item.SetHighlighted(highlighted)
	return item
}

// CreateRenderer creates the renderer for the chat item
func (ci *ChatItem) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(ci.label))
}

// Tapped handles left-click
func (ci *ChatItem) Tapped(_ *fyne.PointEvent) {
	ci.drawer.actions.selectChat(ci.chat.ID)
}

// TappedSecondary handles right-click and long press
func (ci *ChatItem) TappedSecondary(pe *fyne.PointEvent) {
	exportItem := fyne.NewMenuItem("导出为 Markdown", func() {
		ci.drawer.actions.exportChat(ci.chat.ID)
	})
	deleteItem := fyne.NewMenuItem("删除", func() {
		ci.drawer.actions.deleteChat(ci.chat.ID)
	})

	menu := fyne.NewMenu("", exportItem, deleteItem)
	widget.ShowPopUpMenuAtPosition(menu, fyne.CurrentApp().Driver().CanvasForObject(ci), pe.AbsolutePosition)
}

// SetHighlighted marks the selected chat in bold
func (ci *ChatItem) SetHighlighted(highlighted bool) {
	if ci.highlighted == highlighted && ci.label.TextStyle.Bold == highlighted {
		return
	}
	ci.highlighted = highlighted
	ci.label.TextStyle = fyne.TextStyle{Bold: highlighted}
	ci.label.Refresh()
}

// ChatDrawer lists chats with a filter box and a new chat button
type ChatDrawer struct {
	widget.BaseWidget
	actions     drawerActions
	list        *fyne.Container
	scroll      *container.Scroll
	searchEntry *widget.Entry
	newButton   *widget.Button

	chats      []*db.Chat
	selectedID string
	filterText string
	items      []*ChatItem
}

// NewChatDrawer creates an empty drawer
func NewChatDrawer(actions drawerActions) *ChatDrawer {
	d := &ChatDrawer{
		actions: actions,
		list:    container.NewVBox(),
	}

	d.searchEntry = widget.NewEntry()
	d.searchEntry.SetPlaceHolder("搜索对话...")
	d.searchEntry.OnChanged = func(text string) {
		d.filterText = text
		d.updateList()
	}

	d.newButton = widget.NewButtonWithIcon("新建对话", theme.ContentAddIcon(), func() {
		d.actions.newChat()
	})
	d.newButton.Importance = widget.HighImportance

	d.ExtendBaseWidget(d)
	return d
}

// CreateRenderer creates the renderer for the drawer
func (d *ChatDrawer) CreateRenderer() fyne.WidgetRenderer {
	d.scroll = container.NewVScroll(d.list)
	content := container.NewBorder(
		container.NewVBox(d.newButton, d.searchEntry),
		nil, nil, nil,
		d.scroll,
	)
	return widget.NewSimpleRenderer(content)
}

// SetChats replaces the chat list. Must be called on the UI goroutine.
func (d *ChatDrawer) SetChats(chats []*db.Chat) {
	d.chats = chats
	d.updateList()
}

// SetSelected highlights the chat with id
func (d *ChatDrawer) SetSelected(id string) {
	d.selectedID = id
	for _, item := range d.items {
		item.SetHighlighted(item.chat.ID == id)
	}
}

func (d *ChatDrawer) updateList() {
	d.items = nil
	d.list.Objects = nil

	for _, c := range filterChats(d.chats, d.filterText) {
		item := NewChatItem(d, c, c.ID == d.selectedID)
		d.items = append(d.items, item)
		d.list.Add(item)
		d.list.Add(widget.NewSeparator())
	}

	if strings.TrimSpace(d.filterText) != "" && d.actions.search != nil {
		results := d.actions.search(d.filterText)
		if len(results) > 0 {
			header := widget.NewLabel("消息")
			header.TextStyle = fyne.TextStyle{Bold: true}
			d.list.Add(header)
		}
		for _, r := range results {
			chatID := r.ChatID
			hit := widget.NewButton(r.Snippet, func() { d.actions.selectChat(chatID) })
			hit.Alignment = widget.ButtonAlignLeading
			hit.Importance = widget.LowImportance
			d.list.Add(hit)
		}
	}
	d.list.Refresh()
}
