package ui

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"bugeai-chat/utils"
)

var errReviewUnsupported = errors.New("in-app review is not available on this platform")

// Platform is what the screens need from the operating system
type Platform interface {
	// ShowAlert asks for confirmation and calls onConfirm when accepted
	ShowAlert(title, message string, onConfirm func())
	// NaviBack performs the system back action
	NaviBack()
	// CurrentWindow is the window hosting the UI, like the foreground activity on Android
	CurrentWindow() fyne.Window
	// RequestReview opens the store review flow
	RequestReview(onComplete func(), onError func(error))
	// Share hands text to the user for sharing elsewhere
	Share(text string)
	// BottomInset is the padding kept clear under the input bar
	BottomInset() float32
}

// FynePlatform implements Platform on top of a fyne app
type FynePlatform struct {
	app    fyne.App
	goos   string
	logger *utils.Logger

	mu     sync.Mutex
	window fyne.Window
	back   []func() bool
}

// NewFynePlatform creates the platform adapter for app
func NewFynePlatform(app fyne.App, logger *utils.Logger) *FynePlatform {
	return &FynePlatform{app: app, goos: runtime.GOOS, logger: logger}
}

// SetWindow records the window that now hosts the UI
func (p *FynePlatform) SetWindow(w fyne.Window) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.window = w
}

func (p *FynePlatform) CurrentWindow() fyne.Window {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window
}

// OnBack registers a back handler. Handlers run newest first until one returns true.
func (p *FynePlatform) OnBack(handler func() bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.back = append(p.back, handler)
}

func (p *FynePlatform) NaviBack() {
	p.mu.Lock()
	handlers := append([]func() bool(nil), p.back...)
	p.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		if handlers[i]() {
			return
		}
	}
	p.logger.Info("Back navigation left the app")
	p.app.Quit()
}

func (p *FynePlatform) ShowAlert(title, message string, onConfirm func()) {
	w := p.CurrentWindow()
	if w == nil {
		return
	}
	confirm := dialog.NewConfirm(title, message, func(ok bool) {
		if ok && onConfirm != nil {
			onConfirm()
		}
	}, w)
	confirm.SetConfirmText("确定")
	confirm.SetDismissText("取消")
	confirm.Show()
}

func (p *FynePlatform) RequestReview(onComplete func(), onError func(error)) {
	link := reviewURL(p.goos)
	if link == "" {
		onError(errReviewUnsupported)
		return
	}
	u, err := url.Parse(link)
	if err == nil {
		err = p.app.OpenURL(u)
	}
	if err != nil {
		onError(err)
		return
	}
	onComplete()
}

// Share copies the text and tells the user it is ready to paste
func (p *FynePlatform) Share(text string) {
	if w := p.CurrentWindow(); w != nil {
		w.Clipboard().SetContent(text)
	}
	p.app.SendNotification(fyne.NewNotification(utils.AppName, "内容已复制，可粘贴分享"))
}

func (p *FynePlatform) BottomInset() float32 {
	return bottomInset(p.goos)
}

// reviewURL is the store page for the running platform, empty when there is none
func reviewURL(goos string) string {
	switch goos {
	case "android":
		return "market://details?id=" + utils.AppID
	case "ios":
		return "itms-apps://apps.apple.com/search?term=" + url.QueryEscape(utils.AppName)
	default:
		return ""
	}
}

// bottomInset keeps the input bar clear of the gesture area
func bottomInset(goos string) float32 {
	switch goos {
	case "android":
		return 20
	case "ios":
		return 34
	default:
		return 0
	}
}

func isMobile(goos string) bool {
	return goos == "android" || goos == "ios"
}

// DatabasePath picks where the SQLite file lives: the app sandbox on mobile,
// the configured path or the user config dir on desktop.
func DatabasePath(app fyne.App, configured string) string {
	root := ""
	if app != nil && isMobile(runtime.GOOS) {
		root = app.Storage().RootURI().Path()
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	return databasePath(runtime.GOOS, root, configured, configDir)
}

func databasePath(goos, storageRoot, configured, configDir string) string {
	if isMobile(goos) && storageRoot != "" {
		return filepath.Join(storageRoot, "bugeai.db")
	}
	if configured != "" {
		return configured
	}
	return filepath.Join(configDir, utils.AppID, "bugeai.db")
}

// ExportDir is where chat exports are written
func ExportDir(app fyne.App) string {
	if app != nil && isMobile(runtime.GOOS) {
		return filepath.Join(app.Storage().RootURI().Path(), "exports")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "exports")
	}
	return filepath.Join(home, "Documents", utils.AppName)
}
