package main

import (
	"math"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// MouseSettings contains mouse-specific configuration
type MouseSettings struct {
	WheelSensitivity float64 `koanf:"wheel_sensitivity" yaml:"wheel_sensitivity"`
	DoubleClickTime  int     `koanf:"double_click_time" yaml:"double_click_time"` // milliseconds
	DragThreshold    int     `koanf:"drag_threshold" yaml:"drag_threshold"`       // pixels before a slider press becomes a drag
	EnableMouse      bool    `koanf:"enable_mouse" yaml:"enable_mouse"`
	WheelInverted    bool    `koanf:"wheel_inverted" yaml:"wheel_inverted"`
}

// MouseCombination represents a mouse action with optional modifiers
type MouseCombination struct {
	Button        ebiten.MouseButton
	IsWheel       bool
	WheelDeltaX   float64
	WheelDeltaY   float64
	IsDoubleClick bool
	Modifiers
}

// mouseButtons maps binding names to ebiten buttons
var mouseButtons = map[string]ebiten.MouseButton{
	"LeftClick":   ebiten.MouseButtonLeft,
	"RightClick":  ebiten.MouseButtonRight,
	"MiddleClick": ebiten.MouseButtonMiddle,
	"Back":        ebiten.MouseButton3,
	"Forward":     ebiten.MouseButton4,
}

// mouseFrame is what the mouse did during one frame
type mouseFrame struct {
	stepX, stepY int
	clicked      map[ebiten.MouseButton]bool
	doubled      map[ebiten.MouseButton]bool
	mods         Modifiers
}

// MousebindingManager maps wheel steps and clicks to reader actions. The
// wheel is accumulated so that fine grained devices step one spread per
// notch instead of one per frame.
type MousebindingManager struct {
	mousebindings map[string][]string
	compiled      map[string][]*MouseCombination
	settings      MouseSettings

	wheelX, wheelY float64
	lastClick      map[ebiten.MouseButton]time.Time
	frame          mouseFrame
}

// NewMousebindingManager creates a new MousebindingManager
func NewMousebindingManager(mousebindings map[string][]string, settings MouseSettings) *MousebindingManager {
	mm := &MousebindingManager{
		settings:  settings,
		lastClick: map[ebiten.MouseButton]time.Time{},
	}
	mm.UpdateMousebindings(mousebindings)
	return mm
}

// parseMouseString parses a mouse string like "Shift+LeftClick" or "WheelUp" into a MouseCombination
func (mm *MousebindingManager) parseMouseString(mouseStr string) (*MouseCombination, bool) {
	parts := strings.Split(mouseStr, "+")
	name := parts[len(parts)-1]
	combination := &MouseCombination{Modifiers: parseModifiers(parts[:len(parts)-1])}

	switch {
	case strings.HasPrefix(name, "Wheel"):
		combination.IsWheel = true
		switch name {
		case "WheelUp":
			combination.WheelDeltaY = 1
		case "WheelDown":
			combination.WheelDeltaY = -1
		case "WheelLeft":
			combination.WheelDeltaX = -1
		case "WheelRight":
			combination.WheelDeltaX = 1
		default:
			return nil, false
		}
	case strings.HasPrefix(name, "Double"):
		button, ok := mouseButtons[strings.TrimPrefix(name, "Double")]
		if !ok {
			return nil, false
		}
		combination.IsDoubleClick = true
		combination.Button = button
	default:
		button, ok := mouseButtons[name]
		if !ok {
			return nil, false
		}
		combination.Button = button
	}
	return combination, true
}

// Update samples the wheel, the buttons and the modifiers once per frame
func (mm *MousebindingManager) Update(now time.Time) {
	wx, wy := ebiten.Wheel()
	var pressed []ebiten.MouseButton
	for _, b := range mouseButtons {
		if inpututil.IsMouseButtonJustPressed(b) {
			pressed = append(pressed, b)
		}
	}
	mm.observe(now, wx, wy, pressed, heldModifiers())
}

// observe records one frame of input
func (mm *MousebindingManager) observe(now time.Time, wheelX, wheelY float64, pressed []ebiten.MouseButton, mods Modifiers) {
	if mm.settings.WheelInverted {
		wheelY = -wheelY
	}
	mm.wheelX += wheelX * mm.settings.WheelSensitivity
	mm.wheelY += wheelY * mm.settings.WheelSensitivity

	frame := mouseFrame{
		clicked: map[ebiten.MouseButton]bool{},
		doubled: map[ebiten.MouseButton]bool{},
		mods:    mods,
	}
	frame.stepX, mm.wheelX = wheelSteps(mm.wheelX)
	frame.stepY, mm.wheelY = wheelSteps(mm.wheelY)

	window := time.Duration(mm.settings.DoubleClickTime) * time.Millisecond
	for _, b := range pressed {
		frame.clicked[b] = true
		if last, ok := mm.lastClick[b]; ok && now.Sub(last) <= window {
			frame.doubled[b] = true
			delete(mm.lastClick, b)
			continue
		}
		mm.lastClick[b] = now
	}
	mm.frame = frame
}

// wheelSteps splits an accumulated wheel distance into whole steps and the remainder
func wheelSteps(acc float64) (int, float64) {
	steps := math.Trunc(acc)
	return int(steps), acc - steps
}

// triggered reports whether combination fired in the last observed frame
func (mm *MousebindingManager) triggered(c *MouseCombination) bool {
	if !mm.settings.EnableMouse || c.Modifiers != mm.frame.mods {
		return false
	}
	switch {
	case c.IsWheel && c.WheelDeltaX != 0:
		return c.WheelDeltaX*float64(mm.frame.stepX) > 0
	case c.IsWheel:
		return c.WheelDeltaY*float64(mm.frame.stepY) > 0
	case c.IsDoubleClick:
		return mm.frame.doubled[c.Button]
	default:
		return mm.frame.clicked[c.Button]
	}
}

// CheckAction checks if any mouse binding for the given action fired
func (mm *MousebindingManager) CheckAction(action string) bool {
	for _, combination := range mm.compiled[action] {
		if mm.triggered(combination) {
			return true
		}
	}
	return false
}

// ExecuteAction runs action if one of its mouse bindings fired this frame
func (mm *MousebindingManager) ExecuteAction(action string, inputActions InputActions) bool {
	if !mm.CheckAction(action) {
		return false
	}
	return globalActionExecutor.ExecuteAction(action, inputActions)
}

// GetMousebindings returns the current mouse bindings map (for display purposes)
func (mm *MousebindingManager) GetMousebindings() map[string][]string {
	return mm.mousebindings
}

// UpdateMousebindings replaces the bindings; unparsable entries are dropped
func (mm *MousebindingManager) UpdateMousebindings(mousebindings map[string][]string) {
	mm.mousebindings = mousebindings
	mm.compiled = make(map[string][]*MouseCombination, len(mousebindings))
	for action, entries := range mousebindings {
		for _, s := range entries {
			if combination, ok := mm.parseMouseString(s); ok {
				mm.compiled[action] = append(mm.compiled[action], combination)
			}
		}
	}
}

func (mm *MousebindingManager) UpdateSettings(settings MouseSettings) { mm.settings = settings }
func (mm *MousebindingManager) GetSettings() MouseSettings            { return mm.settings }

// GetDefaultMouseSettings returns the default mouse settings
func GetDefaultMouseSettings() MouseSettings {
	return MouseSettings{
		WheelSensitivity: 1.0,
		DoubleClickTime:  300,
		DragThreshold:    5,
		EnableMouse:      true,
		WheelInverted:    false,
	}
}
