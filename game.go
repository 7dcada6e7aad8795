package main

import (
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

// Game runs the reader inside the ebiten loop. Work posted to the loop by
// background loads is applied at the start of every Update.
type Game struct {
	*Performer

	config   ConfigLoadResult
	loop     *Loop
	i18n     *I18n
	window   *WindowFullscreen
	autoHide *AutoHide
	tooltip  *Tooltip
	renderer *Renderer
	input    *InputHandler
	keys     *KeybindingManager
	mouse    *MousebindingManager
	logger   *zap.Logger

	showHelp           bool
	overlayMessage     string
	overlayMessageTime time.Time
	quit               bool

	width  int
	height int
}

// GameOptions carries the pieces built by the command line
type GameOptions struct {
	Performer *Performer
	Config    ConfigLoadResult
	Loop      *Loop
	I18n      *I18n
	Window    *WindowFullscreen
	Logger    *zap.Logger
}

func NewGame(o GameOptions) (*Game, error) {
	cfg := o.Config.Config
	g := &Game{
		Performer: o.Performer,
		config:    o.Config,
		loop:      o.Loop,
		i18n:      o.I18n,
		window:    o.Window,
		autoHide:  NewAutoHide(millis(cfg.AutoHideMS), nil),
		tooltip:   NewTooltip(millis(cfg.TooltipDelayMS), millis(cfg.TooltipRetainMS), nil),
		keys:      NewKeybindingManager(cfg.Keybindings),
		mouse:     NewMousebindingManager(cfg.Mousebindings, cfg.Mouse),
		logger:    o.Logger.Named("game"),
	}

	renderer, err := NewRenderer(g, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	g.renderer = renderer
	g.input = NewInputHandler(g, g, g.keys, g.mouse, millis(cfg.SliderHoldMS))
	return g, nil
}

func (g *Game) Update() error {
	if g.quit {
		return ebiten.Termination
	}

	g.loop.Drain()
	g.window.Poll()
	g.tooltip.Tick()

	x, y := ebiten.CursorPosition()
	overChrome := g.UI().Slider.Dragging() ||
		(g.width > 0 && image.Pt(x, y).In(g.UI().ChromeBounds(g.width, g.height)))
	if overChrome {
		g.autoHide.Lock()
	} else {
		g.autoHide.Unlock()
	}
	g.autoHide.Tick()
	if !g.autoHide.Visible() {
		g.tooltip.Close()
	}

	g.input.HandleInput()
	g.loop.Drain()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		g.Viewport().SetSize(outsideWidth, outsideHeight)
		g.UI().Layout(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}

// RenderState

func (g *Game) IsChromeVisible() bool                 { return g.autoHide.Visible() }
func (g *Game) GetTooltip() (*Button, bool)           { return g.tooltip.Current() }
func (g *Game) T(key string) string                   { return g.i18n.T(key) }
func (g *Game) IsShowingHelp() bool                   { return g.showHelp }
func (g *Game) GetOverlayMessage() string             { return g.overlayMessage }
func (g *Game) GetOverlayMessageTime() time.Time      { return g.overlayMessageTime }
func (g *Game) GetFontSize() float64                  { return g.config.Config.HelpFontSize }
func (g *Game) GetConfigStatus() ConfigLoadResult     { return g.config }
func (g *Game) GetKeybindings() map[string][]string   { return g.keys.GetKeybindings() }
func (g *Game) GetMousebindings() map[string][]string { return g.mouse.GetMousebindings() }

// InputActions

// Exit saves the window and reading settings and stops the game loop
func (g *Game) Exit() {
	cfg := g.config.Config
	if !g.window.Check() {
		cfg.WindowWidth, cfg.WindowHeight = ebiten.WindowSize()
	}
	cfg.Fullscreen = g.window.Check()
	cfg.PageSpread = g.PageSpread()
	cfg.ViewMode = string(g.ViewMode())
	saveConfig(cfg, g.logger)
	g.quit = true
}

// ToggleHelp shows or hides the help overlay. The chrome stays out of the
// way while help is shown.
func (g *Game) ToggleHelp() {
	g.showHelp = !g.showHelp
	if g.showHelp {
		g.autoHide.ForceHide()
	} else {
		g.autoHide.ForceShow()
	}
}

func (g *Game) ShowOverlayMessage(message string) {
	g.overlayMessage = message
	g.overlayMessageTime = time.Now()
}

// PointerTarget

func (g *Game) Ping()           { g.autoHide.Ping() }
func (g *Game) Hover(b *Button) { g.tooltip.Hover(b) }

func (g *Game) PressButton(b *Button) {
	g.tooltip.Reset()
	b.Activate()
}
