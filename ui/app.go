package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/widget"

	"bugeai-chat/chat"
	"bugeai-chat/db"
	"bugeai-chat/llm"
	"bugeai-chat/utils"
)

// App represents the main application
type App struct {
	fyneApp    fyne.App
	window     fyne.Window
	config     *utils.Config
	configPath string
	db         *db.DB
	logger     *utils.Logger
	platform   *FynePlatform

	appModel    *chat.AppModel
	screenModel *chat.ScreenModel
	chatScreen  *ChatScreen
	welcome     fyne.CanvasObject
	onChat      bool
	cancelNav   func()
}

// NewApp creates a new application instance
func NewApp(fyneApp fyne.App, config *utils.Config, configPath string, database *db.DB, provider llm.Provider, logger *utils.Logger) *App {
	window := fyneApp.NewWindow(utils.AppName)
	window.Resize(fyne.NewSize(
		float32(config.UI.WindowWidth),
		float32(config.UI.WindowHeight),
	))

	application := &App{
		fyneApp:    fyneApp,
		window:     window,
		config:     config,
		configPath: configPath,
		db:         database,
		logger:     logger,
		platform:   NewFynePlatform(fyneApp, logger),
	}
	application.platform.SetWindow(window)

	// save window size when closing
	window.SetOnClosed(func() {
		if fyne.CurrentDevice().IsMobile() {
			return
		}
		size := window.Canvas().Size()
		application.config.UI.WindowWidth = int(size.Width)
		application.config.UI.WindowHeight = int(size.Height)
		if err := utils.SaveConfig(application.configPath, application.config); err != nil {
			application.logger.Error("Failed to save window size: %v", err)
		} else {
			application.logger.Info("Window size saved: %dx%d", application.config.UI.WindowWidth, application.config.UI.WindowHeight)
		}
	})

	fyneApp.Settings().SetTheme(newChatTheme(config.UI.FontSize))
	logger.Info("Applied chat theme with font size %d", config.UI.FontSize)

	application.appModel = chat.NewAppModel(database, logger.Named("app"))
	application.screenModel = chat.NewScreenModel(database, provider, logger.Named("chat"), chat.OptionsFromConfig(config))
	application.chatScreen = NewChatScreen(application, application.screenModel, application.platform)
	application.welcome = newWelcomeScreen(application.screenModel.Assistant(), application.appModel.OnWelcomeDone)

	application.platform.OnBack(func() bool {
		if !application.onChat {
			return false
		}
		application.appModel.ShowWelcome()
		return true
	})
	application.platform.OnBack(application.chatScreen.closeDrawer)

	window.SetContent(container.NewCenter(widget.NewProgressBarInfinite()))
	application.setupKeyboardShortcuts()
	application.setupSystemTray()

	return application
}

// setupKeyboardShortcuts sets up global keyboard shortcuts and the mobile back key
func (a *App) setupKeyboardShortcuts() {
	// Ctrl+N: New chat
	a.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyN,
		Modifier: desktop.ControlModifier,
	}, func(shortcut fyne.Shortcut) {
		a.logger.Info("Keyboard shortcut: Ctrl+N - New chat")
		a.screenModel.OnNewChat()
	})

	// Ctrl+E: Export chat
	a.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyE,
		Modifier: desktop.ControlModifier,
	}, func(shortcut fyne.Shortcut) {
		a.logger.Info("Keyboard shortcut: Ctrl+E - Export chat")
		a.chatScreen.ExportCurrent()
	})

	// Ctrl+I: Storage info
	a.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyI,
		Modifier: desktop.ControlModifier,
	}, func(shortcut fyne.Shortcut) {
		a.showStorageInfo()
	})

	// Ctrl+,: Settings
	a.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyComma,
		Modifier: desktop.ControlModifier,
	}, func(shortcut fyne.Shortcut) {
		a.showSettings()
	})

	a.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == mobile.KeyBack {
			a.platform.NaviBack()
		}
	})
}

// Run loads state, binds the screens and blocks until the window closes
func (a *App) Run() {
	if err := a.screenModel.Start(""); err != nil {
		a.logger.Error("Failed to start chat screen: %v", err)
	}
	a.chatScreen.Bind()

	if err := a.appModel.Load(); err != nil {
		a.logger.Error("Failed to load app state: %v", err)
	}
	states, cancel := a.appModel.State().Subscribe()
	a.cancelNav = cancel
	utils.SafeGo(a.logger, "navigation", func() {
		for state := range states {
			fyne.Do(func() { a.navigate(state) })
		}
	})

	a.window.ShowAndRun()
}

// navigate swaps the window content for the current app state
func (a *App) navigate(state chat.AppScreenUiState) {
	s, ok := state.(chat.AppSuccess)
	if !ok {
		return
	}
	a.onChat = s.IsWelcomeShown
	if s.IsWelcomeShown {
		a.window.SetContent(a.chatScreen.Content())
		a.window.Canvas().Focus(a.chatScreen.entry)
	} else {
		a.window.SetContent(a.welcome)
	}
}

// Cleanup stops background work
func (a *App) Cleanup() {
	if a.cancelNav != nil {
		a.cancelNav()
	}
	a.chatScreen.Unbind()
	a.screenModel.Close()
}

// showError shows an error dialog
func (a *App) showError(message string) {
	a.showMessage("❌ 错误", message)
}

// showInfo shows an info dialog
func (a *App) showInfo(message string) {
	a.showMessage("ℹ️ 信息", message)
}

func (a *App) showMessage(title, message string) {
	text := widget.NewLabel(message)
	text.Wrapping = fyne.TextWrapWord

	var popup *widget.PopUp
	popup = widget.NewModalPopUp(
		container.NewVBox(
			widget.NewLabel(title),
			text,
			widget.NewButton("确定", func() {
				popup.Hide()
			}),
		),
		a.window.Canvas(),
	)
	popup.Resize(fyne.NewSize(a.window.Canvas().Size().Width*0.8, popup.MinSize().Height))
	popup.Show()
}
