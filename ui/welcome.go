package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"bugeai-chat/chat"
	"bugeai-chat/utils"
)

func newWelcomeScreen(assistant chat.User, onStart func()) fyne.CanvasObject {
	title := widget.NewLabel("欢迎使用 " + utils.AppName)
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.Alignment = fyne.TextAlignCenter

	intro := widget.NewLabel(fmt.Sprintf("%s 可以回答问题、帮你写作和翻译。\n每条回复消耗 1 枚金币。", assistant.Name))
	intro.Alignment = fyne.TextAlignCenter
	intro.Wrapping = fyne.TextWrapWord

	start := widget.NewButton("开始聊天", onStart)
	start.Importance = widget.HighImportance

	return container.NewPadded(container.NewVBox(
		layout.NewSpacer(),
		container.NewCenter(newAvatar(assistant, avatarSize*3)),
		title,
		intro,
		layout.NewSpacer(),
		start,
	))
}
