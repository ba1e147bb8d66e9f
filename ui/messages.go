package ui

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"bugeai-chat/chat"
	"bugeai-chat/db"
)

const avatarSize = 32

// messageActions are the callbacks a rendered message can trigger
type messageActions struct {
	copy  func(text string)
	share func(text string)
	retry func()
}

// formatDay labels a date separator relative to now
func formatDay(day, now time.Time) string {
	day, now = day.Local(), now.Local()
	y, m, d := day.Date()
	ny, nm, nd := now.Date()
	if y == ny && m == nm && d == nd {
		return "今天"
	}
	yy, ym, yd := now.AddDate(0, 0, -1).Date()
	if y == yy && m == ym && d == yd {
		return "昨天"
	}
	if y == ny {
		return fmt.Sprintf("%d月%d日", m, d)
	}
	return fmt.Sprintf("%d年%d月%d日", y, m, d)
}

// naturalTextWidth is the width a bubble needs to show text without wrapping
func naturalTextWidth(text string) float32 {
	size := theme.TextSize()
	var w float32
	for _, line := range strings.Split(text, "\n") {
		w = max(w, fyne.MeasureText(line, size, fyne.TextStyle{}).Width)
	}
	return w + 2*theme.InnerPadding() + 2*theme.Padding()
}

func captionText(text string, c color.Color) *canvas.Text {
	t := canvas.NewText(text, c)
	t.TextSize = theme.CaptionTextSize()
	return t
}

func fixedSpace(size float32) fyne.CanvasObject {
	r := canvas.NewRectangle(color.Transparent)
	r.SetMinSize(fyne.NewSquareSize(size))
	return r
}

// newAvatar shows the user's icon, or their initial on a circle when there is none
func newAvatar(u chat.User, size float32) fyne.CanvasObject {
	if u.Icon != "" {
		if uri, err := storage.ParseURI(u.Icon); err == nil {
			img := canvas.NewImageFromURI(uri)
			img.FillMode = canvas.ImageFillContain
			img.SetMinSize(fyne.NewSquareSize(size))
			return img
		}
	}

	circle := canvas.NewCircle(colorBubbleMine)
	initial := canvas.NewText(u.Initial(), colorFooterText)
	initial.TextStyle = fyne.TextStyle{Bold: true}
	initial.Alignment = fyne.TextAlignCenter
	return container.NewGridWrap(fyne.NewSquareSize(size),
		container.NewStack(circle, container.NewCenter(initial)))
}

// renderMessageItems turns list rows into canvas objects
func renderMessageItems(items []chat.MessageListItem, actions messageActions, now time.Time) []fyne.CanvasObject {
	objects := make([]fyne.CanvasObject, 0, len(items))
	for _, item := range items {
		objects = append(objects, renderMessageItem(item, actions, now))
	}
	return objects
}

func renderMessageItem(item chat.MessageListItem, actions messageActions, now time.Time) fyne.CanvasObject {
	switch it := item.(type) {
	case chat.DateSeparatorItem:
		return newDateSeparator(it, now)
	case chat.TypingItem:
		return newTypingRow(it)
	case chat.MessageItemState:
		return newMessageRow(it, actions)
	}
	return fixedSpace(0)
}

// rowKey identifies what a row shows; equal keys render identical rows
func rowKey(item chat.MessageListItem, now time.Time) string {
	switch it := item.(type) {
	case chat.DateSeparatorItem:
		return "day:" + formatDay(it.Date, now)
	case chat.TypingItem:
		return "typing"
	case chat.MessageItemState:
		m := it.Message
		return fmt.Sprintf("msg:%s:%s:%t:%t:%s", m.ID, m.Status, it.ShowMessageFooter, it.IsMessageRead, m.Content)
	}
	return ""
}

// messageRows keeps the rendered rows of the visible chat so a streamed
// chunk only rebuilds the rows that changed
type messageRows struct {
	keys    []string
	objects []fyne.CanvasObject
}

func (r *messageRows) update(items []chat.MessageListItem, now time.Time, render func(chat.MessageListItem) fyne.CanvasObject) []fyne.CanvasObject {
	keys := make([]string, len(items))
	objects := make([]fyne.CanvasObject, len(items))
	for i, item := range items {
		keys[i] = rowKey(item, now)
		if i < len(r.keys) && r.keys[i] == keys[i] {
			objects[i] = r.objects[i]
			continue
		}
		objects[i] = render(item)
	}
	r.keys, r.objects = keys, objects
	return objects
}

func (r *messageRows) reset() {
	r.keys, r.objects = nil, nil
}

func newDateSeparator(item chat.DateSeparatorItem, now time.Time) fyne.CanvasObject {
	label := captionText(formatDay(item.Date, now), colorFooterText)
	label.Alignment = fyne.TextAlignCenter
	return container.NewPadded(label)
}

func newTypingRow(item chat.TypingItem) fyne.CanvasObject {
	var who chat.User
	if len(item.Users) > 0 {
		who = item.Users[0]
	}
	label := widget.NewLabel("正在输入…")
	label.TextStyle = fyne.TextStyle{Italic: true}

	cluster := container.NewBorder(nil, nil,
		container.NewVBox(layout.NewSpacer(), newAvatar(who, avatarSize)), nil,
		NewBubble(label, false, false))
	return container.New(&rowLayout{natural: naturalTextWidth(label.Text) + avatarSize}, cluster)
}

func newMessageRow(item chat.MessageItemState, actions messageActions) fyne.CanvasObject {
	msg := item.Message
	content := renderContent(msg.Content, actions.copy)
	column := container.NewVBox(NewBubble(content, item.IsMine, msg.IsFailed()))

	if msg.IsFailed() {
		retry := widget.NewButtonWithIcon("重试", theme.ViewRefreshIcon(), actions.retry)
		retry.Importance = widget.LowImportance
		column.Add(alignRow(item.IsMine, captionText("⚠ 发送失败", colorError), retry))
	}

	if item.ShowMessageFooter {
		column.Add(newMessageFooter(item))
	}

	if !item.IsMine && msg.Status == db.StatusSent {
		text := msg.Content
		copyButton := widget.NewButtonWithIcon("", theme.ContentCopyIcon(), func() { actions.copy(text) })
		copyButton.Importance = widget.LowImportance
		shareButton := widget.NewButtonWithIcon("", theme.MailSendIcon(), func() { actions.share(text) })
		shareButton.Importance = widget.LowImportance
		column.Add(alignRow(false, copyButton, shareButton))
	}

	natural := naturalTextWidth(msg.Content)
	cluster := fyne.CanvasObject(column)
	if !item.IsMine {
		var avatar fyne.CanvasObject = fixedSpace(avatarSize)
		if item.ShowMessageFooter {
			avatar = newAvatar(item.CurrentUser, avatarSize)
		}
		cluster = container.NewBorder(nil, nil, container.NewVBox(avatar, layout.NewSpacer()), nil, column)
		natural += avatarSize + theme.Padding()
	}
	return container.New(&rowLayout{mine: item.IsMine, natural: natural}, cluster)
}

// newMessageFooter shows the author, the time and, for the user's own messages, the read mark
func newMessageFooter(item chat.MessageItemState) fyne.CanvasObject {
	parts := []fyne.CanvasObject{
		captionText(item.CurrentUser.Name, colorFooterText),
		captionText(item.Message.CreatedAt.Local().Format("15:04"), colorFooterText),
	}
	if item.IsMine {
		tint := color.Color(colorFooterText)
		if item.IsMessageRead {
			tint = colorReadTint
		}
		parts = append(parts, captionText("✓✓", tint))
	}
	return alignRow(item.IsMine, parts...)
}

func alignRow(end bool, objects ...fyne.CanvasObject) fyne.CanvasObject {
	if end {
		return container.NewHBox(append([]fyne.CanvasObject{layout.NewSpacer()}, objects...)...)
	}
	return container.NewHBox(objects...)
}
