package main

import (
	"bytes"
	"image"
	"image/color"
	"path"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"
)

// loadFontSource parses the embedded goregular face once
var loadFontSource = sync.OnceValues(func() (*text.GoTextFaceSource, error) {
	return text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
})

var (
	colorFailedPage   = color.RGBA{120, 30, 30, 255}
	colorFailedBorder = color.RGBA{255, 255, 255, 255}
)

const (
	failedPageWidth  = 400
	failedPageHeight = 300
	failedPageFont   = 20.0
	failedPageBorder = 3
)

// DrawText draws text with its top left corner at x, y
func DrawText(screen *ebiten.Image, textString string, font *text.GoTextFace, x, y float64, textColor color.RGBA) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(textColor)
	text.Draw(screen, textString, font, op)
}

// DrawTextCentered draws text centered inside r
func DrawTextCentered(screen *ebiten.Image, textString string, font *text.GoTextFace, r image.Rectangle, textColor color.RGBA) {
	w, h := text.Measure(textString, font, 0)
	x := float64(r.Min.X) + (float64(r.Dx())-w)/2
	y := float64(r.Min.Y) + (float64(r.Dy())-h)/2
	DrawText(screen, textString, font, x, y, textColor)
}

// DrawFilledRect draws filled rectangles with float64 coordinates
func DrawFilledRect(screen *ebiten.Image, x, y, w, h float64, bgColor color.RGBA) {
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), bgColor, false)
}

// FillRect fills an integer rectangle, the bounds the chrome layout produces
func FillRect(screen *ebiten.Image, r image.Rectangle, bgColor color.RGBA) {
	DrawFilledRect(screen, float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), bgColor)
}

func strokeRect(dst *ebiten.Image, r image.Rectangle, width int, c color.RGBA) {
	FillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	FillRect(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	FillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), c)
	FillRect(dst, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// fitText shortens s with an ellipsis until it is at most maxW wide
func fitText(s string, font *text.GoTextFace, maxW float64) string {
	if w, _ := text.Measure(s, font, 0); w <= maxW {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if w, _ := text.Measure(candidate, font, 0); w <= maxW {
			return candidate
		}
	}
	return ""
}

// CreateFailedPageImage draws the placeholder shown instead of a page that
// could not be loaded. Zero sizes fall back to a fixed card. Archive entry
// sources show the entry name.
func CreateFailedPageImage(width, height int, src string, lines ...string) *ebiten.Image {
	if width <= 0 || height <= 0 {
		width, height = failedPageWidth, failedPageHeight
	}

	img := ebiten.NewImage(width, height)
	img.Fill(colorFailedPage)
	strokeRect(img, img.Bounds(), failedPageBorder, colorFailedBorder)

	source, err := loadFontSource()
	if err != nil {
		return img
	}
	font := &text.GoTextFace{Source: source, Size: failedPageFont}

	ip := parseImagePath(src)
	name := ip.Path
	if ip.EntryPath != "" {
		name = ip.EntryPath
	}
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	maxW := float64(width - 20)
	y := 30.0
	for _, l := range append(lines, name) {
		DrawText(img, fitText(l, font, maxW), font, 10, y, colorFailedBorder)
		y += 30
	}
	return img
}
