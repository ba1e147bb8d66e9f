package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const (
	bubbleRadius   = 16
	bubbleStroke   = 1
	maxBubbleRatio = 0.8
)

// squareCorner returns the area that squares off the bottom corner on the
// speaker's side: bottom-right for the user, bottom-left for the assistant.
func squareCorner(size fyne.Size, radius float32, mine bool) (fyne.Position, fyne.Size) {
	r := min(radius, size.Width/2, size.Height/2)
	pos := fyne.NewPos(0, size.Height-r)
	if mine {
		pos.X = size.Width - r
	}
	return pos, fyne.NewSize(r, r)
}

// bubbleWidth caps the natural width of a bubble to a share of the row
func bubbleWidth(natural, available float32) float32 {
	return min(natural, available*maxBubbleRatio)
}

// Bubble draws message content on a rounded background with one square corner
type Bubble struct {
	widget.BaseWidget
	content fyne.CanvasObject
	mine    bool
	failed  bool
}

// NewBubble wraps content in a chat bubble
func NewBubble(content fyne.CanvasObject, mine, failed bool) *Bubble {
	b := &Bubble{content: content, mine: mine, failed: failed}
	b.ExtendBaseWidget(b)
	return b
}

func (b *Bubble) fillColor() color.Color {
	if b.mine {
		return colorBubbleMine
	}
	return colorBubbleTheirs
}

func (b *Bubble) strokeColor() color.Color {
	switch {
	case b.failed:
		return colorError
	case b.mine:
		return color.Transparent
	default:
		return colorBorder
	}
}

// CreateRenderer creates the renderer for the bubble
func (b *Bubble) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(b.fillColor())
	bg.CornerRadius = bubbleRadius
	bg.StrokeColor = b.strokeColor()
	bg.StrokeWidth = bubbleStroke

	corner := canvas.NewRectangle(b.fillColor())
	side := canvas.NewLine(b.strokeColor())
	side.StrokeWidth = bubbleStroke
	bottom := canvas.NewLine(b.strokeColor())
	bottom.StrokeWidth = bubbleStroke

	return &bubbleRenderer{
		bubble:  b,
		bg:      bg,
		corner:  corner,
		side:    side,
		bottom:  bottom,
		objects: []fyne.CanvasObject{bg, corner, side, bottom, b.content},
	}
}

type bubbleRenderer struct {
	bubble  *Bubble
	bg      *canvas.Rectangle
	corner  *canvas.Rectangle
	side    *canvas.Line
	bottom  *canvas.Line
	objects []fyne.CanvasObject
}

func (r *bubbleRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	pos, cs := squareCorner(size, bubbleRadius, r.bubble.mine)
	r.corner.Move(pos)
	r.corner.Resize(cs)

	// redraw the outline the corner patch covers
	x := pos.X + bubbleStroke/2
	if r.bubble.mine {
		x = size.Width - bubbleStroke/2
	}
	y := size.Height - bubbleStroke/2
	r.side.Position1 = fyne.NewPos(x, pos.Y)
	r.side.Position2 = fyne.NewPos(x, y)
	r.bottom.Position1 = fyne.NewPos(pos.X, y)
	r.bottom.Position2 = fyne.NewPos(pos.X+cs.Width, y)

	pad := theme.Padding()
	r.bubble.content.Move(fyne.NewPos(pad, pad))
	r.bubble.content.Resize(fyne.NewSize(size.Width-2*pad, size.Height-2*pad))
}

func (r *bubbleRenderer) MinSize() fyne.Size {
	pad := theme.Padding()
	return r.bubble.content.MinSize().Add(fyne.NewSize(2*pad, 2*pad))
}

func (r *bubbleRenderer) Refresh() {
	r.bg.FillColor = r.bubble.fillColor()
	r.bg.StrokeColor = r.bubble.strokeColor()
	r.corner.FillColor = r.bubble.fillColor()
	r.side.StrokeColor = r.bubble.strokeColor()
	r.bottom.StrokeColor = r.bubble.strokeColor()
	for _, o := range r.objects {
		o.Refresh()
	}
}

func (r *bubbleRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *bubbleRenderer) Destroy() {}

// rowLayout places a single message cluster on the speaker's side of the row
type rowLayout struct {
	mine    bool
	natural float32
}

func (l *rowLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	for _, o := range objects {
		w := max(bubbleWidth(l.natural, size.Width), o.MinSize().Width)
		w = min(w, size.Width)
		x := float32(0)
		if l.mine {
			x = size.Width - w
		}
		o.Move(fyne.NewPos(x, 0))
		// wrapped text only knows its height once it has a width
		o.Resize(fyne.NewSize(w, o.Size().Height))
		o.Resize(fyne.NewSize(w, o.MinSize().Height))
	}
}

func (l *rowLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var s fyne.Size
	for _, o := range objects {
		s = s.Max(o.MinSize())
	}
	return s
}
