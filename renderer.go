package main

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Common colors used in rendering
var (
	colorWhite     = color.RGBA{255, 255, 255, 255}
	colorGray      = color.RGBA{180, 180, 180, 255}
	colorYellow    = color.RGBA{255, 255, 100, 255}
	colorCyan      = color.RGBA{100, 255, 255, 255}
	colorLightBlue = color.RGBA{200, 200, 255, 255}
	colorGreen     = color.RGBA{100, 255, 100, 255}
	colorOrange    = color.RGBA{255, 200, 100, 255}
	colorLightRed  = color.RGBA{255, 150, 150, 255}

	colorBackground = color.RGBA{24, 24, 24, 255}
	colorButton     = color.RGBA{60, 60, 60, 220}
	colorSelected   = color.RGBA{70, 110, 170, 240}
	colorTrack      = color.RGBA{80, 80, 80, 200}
	colorLoaded     = color.RGBA{130, 130, 130, 220}
	colorHandle     = color.RGBA{230, 230, 230, 255}

	// Background colors for semi-transparent overlays
	bgColorLight  = color.RGBA{0, 0, 0, 128}
	bgColorMedium = color.RGBA{0, 0, 0, 160}
	bgColorDark   = color.RGBA{0, 0, 0, 200}
)

const (
	chromeFontSize   = 16.0
	previewMaxHeight = 150
	errorImageMax    = 800
)

// iconGlyphs renders the button icon names with glyphs goregular has
var iconGlyphs = map[string]string{
	"nav-left":        "<",
	"nav-right":       ">",
	"1-page-spread":   "1",
	"2-page-spread":   "2",
	"fullpage-view":   "[ ]",
	"pagewidth-view":  "<->",
	"panel-view":      "#",
	"do-fullscreen":   "[+]",
	"undo-fullscreen": "[-]",
}

// Renderer handles all drawing operations
type Renderer struct {
	renderState RenderState
	fontSource  *text.GoTextFaceSource
	textures    *lru.Cache[*ImageHandle, *ebiten.Image]
}

// NewRenderer creates a renderer keeping up to cacheSize page textures
func NewRenderer(renderState RenderState, cacheSize int) (*Renderer, error) {
	source, err := loadFontSource()
	if err != nil {
		return nil, err
	}
	textures, err := lru.NewWithEvict(cacheSize, func(_ *ImageHandle, tex *ebiten.Image) {
		tex.Deallocate()
	})
	if err != nil {
		return nil, err
	}
	return &Renderer{
		renderState: renderState,
		fontSource:  source,
		textures:    textures,
	}, nil
}

func (r *Renderer) face(size float64) *text.GoTextFace {
	return &text.GoTextFace{Source: r.fontSource, Size: size}
}

// Draw renders the entire screen
func (r *Renderer) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)

	if pane := r.renderState.Viewport().Current(); pane != nil {
		r.drawPane(screen, pane)
	}

	if r.renderState.IsChromeVisible() {
		r.drawChrome(screen)
	}

	if r.renderState.IsShowingHelp() {
		r.drawHelpOverlay(screen)
	}

	if r.renderState.GetOverlayMessage() != "" && time.Since(r.renderState.GetOverlayMessageTime()) < overlayMessageDuration {
		r.drawOverlayMessage(screen)
	}
}

// texture returns the GPU image for a settled handle. Failed loads get an
// error placeholder; unsettled handles return nil.
func (r *Renderer) texture(h *ImageHandle) *ebiten.Image {
	if tex, ok := r.textures.Get(h); ok {
		return tex
	}
	if !h.Settled() {
		return nil
	}

	var tex *ebiten.Image
	if err := h.Err(); err != nil {
		w, ht, ok := h.NaturalSize()
		if !ok {
			w, ht = 0, 0
		}
		tex = CreateFailedPageImage(min(w, errorImageMax), min(ht, errorImageMax), h.Src(), r.renderState.T("status.error"), err.Error())
	} else if img := h.Image(); img != nil {
		tex = ebiten.NewImageFromImage(img)
	} else {
		return nil
	}
	r.textures.Add(h, tex)
	return tex
}

func (r *Renderer) drawPane(screen *ebiten.Image, pane *Pane) {
	tr := pane.Transform()
	if tr.Hidden {
		if pane.ReadyErr() != nil {
			if pw, _ := pane.Size(); pw == 0 {
				r.drawFailedPane(screen, pane)
				return
			}
		}
		r.drawStatus(screen, r.renderState.T("status.loading"))
		return
	}

	offsets := pane.Offsets()
	for i, h := range pane.Handles() {
		w, ht, ok := h.NaturalSize()
		if !ok {
			continue
		}
		tex := r.texture(h)
		if tex == nil {
			continue
		}
		b := tex.Bounds()
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(float64(w)/float64(b.Dx())*tr.Scale, float64(ht)/float64(b.Dy())*tr.Scale)
		op.GeoM.Translate(tr.X+float64(offsets[i])*tr.Scale, tr.Y)
		if tr.Accelerated {
			op.Filter = ebiten.FilterLinear
		}
		screen.DrawImage(tex, op)
	}
}

// drawFailedPane shows the placeholders of a pane none of whose images
// produced a size
func (r *Renderer) drawFailedPane(screen *ebiten.Image, pane *Pane) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	for _, h := range pane.Handles() {
		tex := r.texture(h)
		if tex == nil {
			continue
		}
		b := tex.Bounds()
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(sw-b.Dx())/2, float64(sh-b.Dy())/2)
		screen.DrawImage(tex, op)
		return
	}
	r.drawStatus(screen, r.renderState.T("status.error"))
}

func (r *Renderer) drawStatus(screen *ebiten.Image, msg string) {
	font := r.face(chromeFontSize)
	w, h := text.Measure(msg, font, 0)
	x := (float64(screen.Bounds().Dx()) - w) / 2
	y := (float64(screen.Bounds().Dy()) - h) / 2
	DrawFilledRect(screen, x-10, y-6, w+20, h+12, bgColorMedium)
	DrawText(screen, msg, font, x, y, colorGray)
}

func (r *Renderer) drawChrome(screen *ebiten.Image) {
	ui := r.renderState.UI()
	font := r.face(chromeFontSize)

	if ui.Title.Displayed() && ui.Title.Text != "" {
		FillRect(screen, ui.Title.Bounds, bgColorMedium)
		DrawTextCentered(screen, fitText(ui.Title.Text, font, float64(ui.Title.Bounds.Dx()-8)), font, ui.Title.Bounds, colorWhite)
	}

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	FillRect(screen, ui.ChromeBounds(sw, sh), bgColorLight)

	for _, b := range ui.Buttons() {
		if b.Displayed() {
			r.drawButton(screen, b, font)
		}
	}

	if ui.Slider.Displayed() {
		r.drawSlider(screen, ui.Slider, font)
	}

	if b, ok := r.renderState.GetTooltip(); ok && b.Label != "" {
		r.drawTooltip(screen, b, font)
	}
}

func (r *Renderer) drawButton(screen *ebiten.Image, b *Button, font *text.GoTextFace) {
	bg := colorButton
	if b.Selected {
		bg = colorSelected
	}
	FillRect(screen, b.Bounds, bg)

	glyph, ok := iconGlyphs[b.Icon]
	if !ok {
		glyph = b.Icon
	}
	DrawTextCentered(screen, glyph, font, b.Bounds, colorWhite)
}

func (r *Renderer) drawSlider(screen *ebiten.Image, s *PaneSlider, font *text.GoTextFace) {
	b := s.Bounds
	x, y, w, h := float64(b.Min.X), float64(b.Min.Y), float64(b.Dx()), float64(b.Dy())
	DrawFilledRect(screen, x, y, w, h, colorTrack)

	loaded := w * s.Loaded()
	if s.RTL() {
		DrawFilledRect(screen, x+w-loaded, y, loaded, h, colorLoaded)
	} else {
		DrawFilledRect(screen, x, y, loaded, h, colorLoaded)
	}

	if s.Size() == 0 {
		return
	}
	hw := math.Max(s.HandleWidth(b.Dx()), 8)
	hx := s.HandleX()
	DrawFilledRect(screen, hx-hw/2, y-2, hw, h+4, colorHandle)

	if p := s.Preview(); p.Visible {
		r.drawPreview(screen, p, hx, y, font)
	}
}

// drawPreview draws the thumbnails of the spread under the handle
func (r *Renderer) drawPreview(screen *ebiten.Image, p Preview, cx, sliderY float64, font *text.GoTextFace) {
	type thumb struct {
		tex  *ebiten.Image
		w, h float64
	}
	var thumbs []thumb
	totalW, maxH := 0.0, 0.0
	for _, h := range p.Thumbs {
		tex := r.texture(h)
		if tex == nil {
			continue
		}
		b := tex.Bounds()
		scale := math.Min(1, previewMaxHeight/float64(b.Dy()))
		t := thumb{tex: tex, w: float64(b.Dx()) * scale, h: float64(b.Dy()) * scale}
		thumbs = append(thumbs, t)
		totalW += t.w
		maxH = math.Max(maxH, t.h)
	}

	lw, lh := text.Measure(p.Label, font, 0)
	boxW := math.Max(totalW, lw) + 12
	boxH := maxH + lh + 16
	boxX := math.Max(0, math.Min(cx-boxW/2, float64(screen.Bounds().Dx())-boxW))
	boxY := sliderY - boxH - 8
	DrawFilledRect(screen, boxX, boxY, boxW, boxH, bgColorDark)

	x := boxX + (boxW-totalW)/2
	for _, t := range thumbs {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(t.w/float64(t.tex.Bounds().Dx()), t.h/float64(t.tex.Bounds().Dy()))
		op.GeoM.Translate(x, boxY+6+(maxH-t.h))
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(t.tex, op)
		x += t.w
	}
	DrawText(screen, p.Label, font, boxX+(boxW-lw)/2, boxY+maxH+10, colorWhite)
}

func (r *Renderer) drawTooltip(screen *ebiten.Image, b *Button, font *text.GoTextFace) {
	tw, th := text.Measure(b.Label, font, 0)
	x := float64(b.Bounds.Min.X) + (float64(b.Bounds.Dx())-tw)/2
	x = math.Max(4, math.Min(x, float64(screen.Bounds().Dx())-tw-4))
	y := float64(b.Bounds.Min.Y) - th - 12
	DrawFilledRect(screen, x-6, y-4, tw+12, th+8, bgColorDark)
	DrawText(screen, b.Label, font, x, y, colorWhite)
}

// helpLine is one row of the help overlay
type helpLine struct {
	action, keys, mouse, desc string
}

func (r *Renderer) helpLines() []helpLine {
	keybindings := r.renderState.GetKeybindings()
	mousebindings := r.renderState.GetMousebindings()

	// unbound actions are left out
	var lines []helpLine
	for _, def := range actionDefinitions {
		keys, mouse := keybindings[def.Name], mousebindings[def.Name]
		if len(keys) == 0 && len(mouse) == 0 {
			continue
		}
		lines = append(lines, helpLine{
			action: def.Name,
			keys:   strings.Join(keys, ", "),
			mouse:  strings.Join(mouse, ", "),
			desc:   def.Description,
		})
	}
	return lines
}

func (r *Renderer) configWarnings() []string {
	var out []string
	for i, warning := range r.renderState.GetConfigStatus().Warnings {
		if i >= 2 {
			break
		}
		if len(warning) > 50 {
			warning = warning[:47] + "..."
		}
		out = append(out, "• "+warning)
	}
	return out
}

// helpColumns measures the help table at fontSize: action, keys and mouse
// column widths, plus the total width and height.
func (r *Renderer) helpColumns(lines []helpLine, fontSize float64) (actionW, inputW, totalW, totalH float64) {
	font := r.face(fontSize)
	descW := 0.0
	for _, l := range lines {
		w, _ := text.Measure(l.action, font, 0)
		actionW = math.Max(actionW, w)
		w, _ = text.Measure(l.keys+" | "+l.mouse, font, 0)
		inputW = math.Max(inputW, w)
		w, _ = text.Measure(l.desc, font, 0)
		descW = math.Max(descW, w)
	}
	lineHeight := fontSize * 1.5
	totalW = 40 + actionW + 50 + inputW + 20 + descW
	totalH = fontSize*2 + lineHeight*1.5 + float64(len(lines))*lineHeight +
		lineHeight*3 + float64(len(r.configWarnings()))*lineHeight
	return
}

// helpFontSize finds the largest font size up to the configured one at
// which the help fits
func (r *Renderer) helpFontSize(lines []helpLine, availW, availH float64) (float64, bool) {
	fits := func(size float64) bool {
		_, _, w, h := r.helpColumns(lines, size)
		return w <= availW && h <= availH
	}
	low, high := 12.0, r.renderState.GetFontSize()
	if !fits(low) {
		return low, false
	}
	if fits(high) {
		return high, true
	}
	for high-low > 0.5 {
		mid := (low + high) / 2
		if fits(mid) {
			low = mid
		} else {
			high = mid
		}
	}
	return low, true
}

func (r *Renderer) drawHelpOverlay(screen *ebiten.Image) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
	padding := 40.0
	lines := r.helpLines()

	fontSize, ok := r.helpFontSize(lines, w-padding*2, h-padding*2)
	if !ok {
		r.drawMarginTooSmallMessage(screen)
		return
	}

	DrawFilledRect(screen, 0, 0, w, h, bgColorLight)
	DrawFilledRect(screen, padding, padding, w-padding*2, h-padding*2, bgColorMedium)

	font := r.face(fontSize)
	lineHeight := fontSize * 1.5
	y := padding + 30
	DrawText(screen, "HELP:", font, padding+20, y, colorWhite)
	y += fontSize * 2
	DrawText(screen, "Controls (Keyboard | Mouse):", font, padding+20, y, colorWhite)
	y += lineHeight * 1.5

	actionW, inputW, _, _ := r.helpColumns(lines, fontSize)
	actionX := padding + 40
	arrowX := actionX + actionW + 20
	inputX := arrowX + 30
	descX := inputX + inputW + 20

	for _, l := range lines {
		DrawText(screen, l.action, font, actionX, y, colorLightBlue)
		DrawText(screen, "→", font, arrowX, y, colorWhite)

		x := inputX
		if l.keys != "" {
			DrawText(screen, l.keys, font, x, y, colorYellow)
			kw, _ := text.Measure(l.keys, font, 0)
			x += kw
		}
		if l.keys != "" && l.mouse != "" {
			DrawText(screen, " | ", font, x, y, colorWhite)
			sw, _ := text.Measure(" | ", font, 0)
			x += sw
		}
		if l.mouse != "" {
			DrawText(screen, l.mouse, font, x, y, colorCyan)
		}
		DrawText(screen, l.desc, font, descX, y, colorGray)
		y += lineHeight
	}

	y += lineHeight
	DrawText(screen, "System:", font, padding+20, y, colorWhite)
	y += lineHeight

	status := r.renderState.GetConfigStatus().Status
	statusColor := colorGreen
	if status == "Warning" || status == "Error" {
		statusColor = colorOrange
	}
	DrawText(screen, fmt.Sprintf("Config Status: %s", status), font, padding+40, y, statusColor)
	y += lineHeight

	for _, warning := range r.configWarnings() {
		DrawText(screen, warning, font, padding+40, y, colorLightRed)
		y += lineHeight
	}
}

// drawMarginTooSmallMessage displays Fermat's margin joke when help cannot fit
func (r *Renderer) drawMarginTooSmallMessage(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	DrawFilledRect(screen, 0, 0, float64(w), float64(h), bgColorLight)

	font := r.face(16)
	message := "Hanc marginis exiguitas non caperet."
	subtitle := "(This margin is too small to contain it.)"

	mw, mh := text.Measure(message, font, 0)
	sw, _ := text.Measure(subtitle, font, 0)
	my := float64(h)/2 - mh/2
	DrawText(screen, message, font, float64(w)/2-mw/2, my, colorWhite)
	DrawText(screen, subtitle, font, float64(w)/2-sw/2, my+mh+10, colorGray)
}

func (r *Renderer) drawOverlayMessage(screen *ebiten.Image) {
	font := r.face(r.renderState.GetFontSize())
	msg := r.renderState.GetOverlayMessage()
	tw, th := text.Measure(msg, font, 0)

	padding := 20.0
	boxW, boxH := tw+padding*2, th+padding*2
	boxX := (float64(screen.Bounds().Dx()) - boxW) / 2
	boxY := (float64(screen.Bounds().Dy()) - boxH) / 2
	DrawFilledRect(screen, boxX, boxY, boxW, boxH, bgColorDark)
	DrawText(screen, msg, font, boxX+padding, boxY+padding, colorWhite)
}
