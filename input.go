package main

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// InputHandler handles keyboard, mouse bindings and pointer interaction
// with the reader chrome
type InputHandler struct {
	inputActions        InputActions
	pointer             PointerTarget
	keybindingManager   *KeybindingManager
	mousebindingManager *MousebindingManager

	drag    *SliderDrag
	pressed bool
	lastX   int
	lastY   int
	now     func() time.Time
}

// NewInputHandler creates a new InputHandler
func NewInputHandler(inputActions InputActions, pointer PointerTarget, km *KeybindingManager, mm *MousebindingManager, hold time.Duration) *InputHandler {
	return &InputHandler{
		inputActions:        inputActions,
		pointer:             pointer,
		keybindingManager:   km,
		mousebindingManager: mm,
		drag:                NewSliderDrag(hold, mm.GetSettings().DragThreshold),
		now:                 time.Now,
	}
}

// HandleInput processes all input for the current frame
// Returns true if any input was processed, false otherwise
func (h *InputHandler) HandleInput() bool {
	inputProcessed := false
	pointerConsumed := false
	if h.mousebindingManager.GetSettings().EnableMouse {
		h.mousebindingManager.Update(h.now())
		pointerConsumed = h.handlePointer()
		inputProcessed = pointerConsumed
	}

	for _, action := range actionDefinitions {
		if h.keybindingManager.ExecuteAction(action.Name, h.inputActions) {
			h.pointer.Ping()
			inputProcessed = true
		}
	}
	if pointerConsumed {
		return inputProcessed
	}
	for _, action := range actionDefinitions {
		if h.mousebindingManager.ExecuteAction(action.Name, h.inputActions) {
			inputProcessed = true
		}
	}
	return inputProcessed
}

// handlePointer drives hover, button presses and the slider. It reports
// whether the pointer was used by the chrome this frame.
func (h *InputHandler) handlePointer() bool {
	x, y := ebiten.CursorPosition()
	if x != h.lastX || y != h.lastY {
		h.lastX, h.lastY = x, y
		h.pointer.Ping()
	}

	ui := h.pointer.UI()
	slider := ui.Slider
	button := ui.ButtonAt(x, y)
	h.pointer.Hover(button)

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		h.pointer.Ping()
		if button != nil {
			h.pointer.PressButton(button)
			return true
		}
		if slider.Displayed() && slider.Size() > 0 && ui.OverSlider(x, y) {
			h.drag.Press(h.now(), x)
			h.pressed = true
			return true
		}
		return false
	}

	if !h.pressed {
		return false
	}

	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if !slider.Dragging() && h.drag.Move(h.now(), x) {
			slider.BeginDrag(slider.HandleWidth(slider.Bounds.Dx()))
		}
		slider.DragBy(float64(x - h.drag.StartX()))
		return true
	}

	h.pressed = false
	if h.drag.Release() && slider.Dragging() {
		slider.EndDrag()
	} else {
		slider.SetIndex(slider.IndexAt(x))
		slider.Commit()
	}
	return true
}
