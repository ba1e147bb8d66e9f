package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Chat palette
var (
	colorBackground   = color.NRGBA{R: 0xF7, G: 0xF7, B: 0xF8, A: 0xFF}
	colorBubbleMine   = color.NRGBA{R: 0xDB, G: 0xDD, B: 0xE1, A: 0xFF}
	colorBubbleTheirs = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	colorBorder       = color.NRGBA{R: 0xDB, G: 0xDD, B: 0xE1, A: 0xFF}
	colorFooterText   = color.NRGBA{R: 0x72, G: 0x76, B: 0x7E, A: 0xFF}
	colorError        = color.NRGBA{R: 0xFF, G: 0x37, B: 0x42, A: 0xFF}
	colorReadTint     = color.NRGBA{R: 0x00, G: 0x5F, B: 0xFF, A: 0xFF}
)

// chatTheme pins the light variant, swaps in the chat background and scales fonts
type chatTheme struct {
	baseFontSize float32
	baseTheme    fyne.Theme
}

// newChatTheme creates the app theme with the given base font size
func newChatTheme(baseFontSize int) fyne.Theme {
	if baseFontSize < 10 {
		baseFontSize = 14
	}
	return &chatTheme{
		baseFontSize: float32(baseFontSize),
		baseTheme:    theme.DefaultTheme(),
	}
}

func (t *chatTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return colorBackground
	case theme.ColorNameError:
		return colorError
	case theme.ColorNameInputBackground:
		return colorBubbleTheirs
	case theme.ColorNameInputBorder, theme.ColorNameSeparator:
		return colorBorder
	}
	return t.baseTheme.Color(name, theme.VariantLight)
}

func (t *chatTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.baseTheme.Font(style)
}

func (t *chatTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.baseTheme.Icon(name)
}

func (t *chatTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return t.baseFontSize
	case theme.SizeNameHeadingText:
		return t.baseFontSize * 1.5
	case theme.SizeNameSubHeadingText:
		return t.baseFontSize * 1.2
	case theme.SizeNameCaptionText:
		return t.baseFontSize * 0.85
	default:
		return t.baseTheme.Size(name)
	}
}
