package main

import (
	"runtime"

	"github.com/hajimehoshi/ebiten/v2"
)

// Fullscreen abstracts the platform fullscreen capability
type Fullscreen interface {
	Supported() bool
	Check() bool
	Request()
	Cancel()
	Changes() *Emitter[bool]
}

// WindowFullscreen drives the ebiten window. Changes made outside the
// reader (window manager, OS shortcut) are noticed by Poll.
type WindowFullscreen struct {
	last    bool
	changes Emitter[bool]
}

func NewWindowFullscreen() *WindowFullscreen {
	return &WindowFullscreen{last: ebiten.IsFullscreen()}
}

func (w *WindowFullscreen) Supported() bool {
	switch runtime.GOOS {
	case "android", "ios":
		return false
	default:
		return true
	}
}

func (w *WindowFullscreen) Check() bool { return ebiten.IsFullscreen() }

func (w *WindowFullscreen) Request() {
	if w.Supported() {
		ebiten.SetFullscreen(true)
	}
}

func (w *WindowFullscreen) Cancel() {
	ebiten.SetFullscreen(false)
}

func (w *WindowFullscreen) Changes() *Emitter[bool] { return &w.changes }

// Poll emits a change when the fullscreen state differs from the last frame
func (w *WindowFullscreen) Poll() {
	now := ebiten.IsFullscreen()
	if now == w.last {
		return
	}
	w.last = now
	w.changes.Emit(now)
}
