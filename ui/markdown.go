package ui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

type partKind int

const (
	partText partKind = iota
	partCode
	partThinking
)

// contentPart is a run of assistant output rendered one way
type contentPart struct {
	kind     partKind
	content  string
	language string
}

// splitContent cuts a reply into <think> sections, fenced code blocks and plain text.
// An unterminated section runs to the end, which is what a stream looks like mid-flight.
func splitContent(content string) []contentPart {
	var parts []contentPart
	for content != "" {
		start := strings.Index(content, "<think>")
		if start == -1 {
			parts = append(parts, splitCodeBlocks(content)...)
			break
		}
		parts = append(parts, splitCodeBlocks(content[:start])...)

		content = content[start+len("<think>"):]
		end := strings.Index(content, "</think>")
		if end == -1 {
			parts = appendPart(parts, contentPart{kind: partThinking, content: strings.TrimSpace(content)})
			break
		}
		parts = appendPart(parts, contentPart{kind: partThinking, content: strings.TrimSpace(content[:end])})
		content = content[end+len("</think>"):]
	}
	return parts
}

func splitCodeBlocks(text string) []contentPart {
	var (
		parts []contentPart
		buf   []string
		code  bool
		lang  string
	)
	flush := func(kind partKind) {
		parts = appendPart(parts, contentPart{kind: kind, content: strings.Join(buf, "\n"), language: lang})
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "```") {
			buf = append(buf, line)
			continue
		}
		if code {
			flush(partCode)
			code, lang = false, ""
			continue
		}
		flush(partText)
		code = true
		lang = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
	}
	if code {
		flush(partCode)
	} else {
		flush(partText)
	}
	return parts
}

// appendPart drops blank text runs
func appendPart(parts []contentPart, p contentPart) []contentPart {
	if p.kind == partText {
		p.content = strings.Trim(p.content, "\n")
		if strings.TrimSpace(p.content) == "" {
			return parts
		}
	}
	return append(parts, p)
}

// newSelectableText creates a read-only, selectable text widget
func newSelectableText(text string) *widget.Label {
	label := widget.NewLabel(text)
	label.Wrapping = fyne.TextWrapWord
	label.Selectable = true
	return label
}

// renderContent builds the widgets for a message body. Plain messages stay a single label.
func renderContent(content string, copyText func(string)) fyne.CanvasObject {
	if !strings.Contains(content, "```") && !strings.Contains(content, "<think>") {
		return newSelectableText(content)
	}

	box := container.NewVBox()
	for _, part := range splitContent(content) {
		switch part.kind {
		case partThinking:
			box.Add(newThinkingSection(part.content))
		case partCode:
			box.Add(newCodeBlock(part, copyText))
		default:
			box.Add(newSelectableText(part.content))
		}
	}
	return box
}

func newCodeBlock(part contentPart, copyText func(string)) fyne.CanvasObject {
	code := newSelectableText(part.content)
	code.TextStyle = fyne.TextStyle{Monospace: true}

	copyButton := widget.NewButton("复制代码", func() {
		copyText(part.content)
	})
	copyButton.Importance = widget.LowImportance

	var lang fyne.CanvasObject = layout.NewSpacer()
	if part.language != "" {
		l := widget.NewLabel(part.language)
		l.TextStyle = fyne.TextStyle{Italic: true}
		lang = l
	}
	return container.NewBorder(container.NewBorder(nil, nil, lang, copyButton), nil, nil, nil, code)
}

func newThinkingSection(content string) fyne.CanvasObject {
	body := newSelectableText(content)
	body.TextStyle = fyne.TextStyle{Italic: true}
	body.Hide()

	toggle := widget.NewButton("显示思考过程", nil)
	toggle.Importance = widget.LowImportance
	toggle.OnTapped = func() {
		if body.Visible() {
			body.Hide()
			toggle.SetText("显示思考过程")
		} else {
			body.Show()
			toggle.SetText("隐藏思考过程")
		}
	}
	return container.NewVBox(toggle, body)
}
