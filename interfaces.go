package main

import (
	"time"
)

const (
	// Overlay message display duration
	overlayMessageDuration = 2 * time.Second
)

// RenderState provides read-only access to reader state for the renderer
type RenderState interface {
	// Page and chrome
	Viewport() Viewport
	UI() *ReaderInterface
	Manga() *Manga
	IsChromeVisible() bool
	GetTooltip() (*Button, bool)
	T(key string) string

	// Overlays
	IsShowingHelp() bool
	GetOverlayMessage() string
	GetOverlayMessageTime() time.Time

	// Help data
	GetFontSize() float64
	GetConfigStatus() ConfigLoadResult
	GetKeybindings() map[string][]string
	GetMousebindings() map[string][]string
}

// InputActions provides action methods for the input handler
type InputActions interface {
	// Application control
	Exit()
	ToggleHelp()
	ToggleFullscreen()

	// Navigation
	Left()
	Right()
	NextPane()
	PrevPane()
	FirstPane()
	LastPane()

	// Reading settings
	SetPageSpread(n int) (int, error)
	SetViewMode(mode ViewMode) (ViewMode, error)

	// Messages
	ShowOverlayMessage(message string)
}

// PointerTarget is what the pointer handler needs from the reader chrome
type PointerTarget interface {
	UI() *ReaderInterface
	Ping()
	Hover(b *Button)
	PressButton(b *Button)
}
