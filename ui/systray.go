package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// setupSystemTray adds a tray menu on desktop platforms. It reports whether a tray is available.
func (a *App) setupSystemTray() bool {
	desk, ok := a.fyneApp.(desktop.App)
	if !ok {
		return false
	}

	menu := fyne.NewMenu(a.window.Title(),
		fyne.NewMenuItem("显示窗口", func() {
			a.window.Show()
			a.window.RequestFocus()
			a.logger.Info("Window shown from system tray")
		}),
		fyne.NewMenuItem("新建对话", func() {
			a.window.Show()
			a.screenModel.OnNewChat()
			a.logger.Info("New chat from system tray")
		}),
		fyne.NewMenuItem("存储信息", func() {
			a.window.Show()
			a.showStorageInfo()
		}),
	)
	desk.SetSystemTrayMenu(menu)
	a.logger.Info("System tray initialized")
	return true
}
