package main

import (
	"math"
	"time"
)

// Slider event types
const (
	SliderHandleChanged = "handlechanged"
	SliderIndexChanged  = "indexchanged"
	SliderCommit        = "commit"
	SliderUserStart     = "userstart"
	SliderUserEnd       = "userend"
)

const defaultSliderHold = 50 * time.Millisecond

// SliderEvent is emitted by a Slider
type SliderEvent struct {
	Type  string
	Index int
}

// Slider tracks a committed index and a tentative handle index. Dragging
// only moves the handle; Commit makes the handle position the index.
type Slider struct {
	*Component

	size        int
	index       int
	handleIndex int
	rtl         bool
	loaded      float64

	dragging    bool
	dragStart   int
	handleWidth float64

	Events Emitter[SliderEvent]
}

func NewSlider(name string) *Slider {
	s := &Slider{}
	s.Component = newComponent(name, KindSlider, Behavior{})
	s.impl = s
	return s
}

func (s *Slider) Size() int        { return s.size }
func (s *Slider) Index() int       { return s.index }
func (s *Slider) HandleIndex() int { return s.handleIndex }
func (s *Slider) RTL() bool        { return s.rtl }
func (s *Slider) Loaded() float64  { return s.loaded }
func (s *Slider) Dragging() bool   { return s.dragging }

// SetSize sets the number of positions and clamps the handle into range
func (s *Slider) SetSize(n int) {
	s.size = max(n, 0)
	if s.handleIndex > s.size-1 {
		s.SetIndex(s.size - 1)
	}
}

func (s *Slider) SetRTL(rtl bool) { s.rtl = rtl }

// SetLoaded sets the fraction of the bar drawn as loaded
func (s *Slider) SetLoaded(f float64) {
	s.loaded = math.Max(0, math.Min(1, f))
}

// SetIndex moves the handle, emitting handlechanged when it changed
func (s *Slider) SetIndex(i int) {
	i = min(i, s.size-1)
	i = max(i, 0)
	if i == s.handleIndex {
		return
	}
	s.handleIndex = i
	s.Events.Emit(SliderEvent{Type: SliderHandleChanged, Index: i})
}

// Flush makes the handle position the committed index without events
func (s *Slider) Flush() {
	s.index = s.handleIndex
}

// Commit flushes and reports the new index if it changed
func (s *Slider) Commit() {
	old := s.index
	s.Flush()
	s.Events.Emit(SliderEvent{Type: SliderCommit, Index: s.index})
	if s.index != old {
		s.Events.Emit(SliderEvent{Type: SliderIndexChanged, Index: s.index})
	}
}

// BeginDrag starts a user drag. handleWidth is the width in pixels of one position.
func (s *Slider) BeginDrag(handleWidth float64) {
	if s.dragging {
		return
	}
	s.dragging = true
	s.dragStart = s.handleIndex
	s.handleWidth = math.Max(handleWidth, 1)
	s.Events.Emit(SliderEvent{Type: SliderUserStart, Index: s.handleIndex})
}

// DragBy moves the handle by a horizontal pixel distance from the drag start
func (s *Slider) DragBy(deltaX float64) {
	if !s.dragging {
		return
	}
	offset := int(math.Round(deltaX / s.handleWidth))
	if s.rtl {
		offset = -offset
	}
	s.SetIndex(s.dragStart + offset)
}

// EndDrag commits the drag
func (s *Slider) EndDrag() {
	if !s.dragging {
		return
	}
	s.dragging = false
	s.Commit()
	s.Events.Emit(SliderEvent{Type: SliderUserEnd, Index: s.index})
}

// HandleWidth is the pixel width of one position for a bar of width w
func (s *Slider) HandleWidth(w int) float64 {
	if s.size == 0 {
		return float64(w)
	}
	return float64(w) / float64(s.size)
}

// IndexAt maps an x coordinate inside the bar to a position
func (s *Slider) IndexAt(x int) int {
	w := s.Bounds.Dx()
	if w <= 0 || s.size == 0 {
		return 0
	}
	rel := float64(x-s.Bounds.Min.X) / float64(w)
	if s.rtl {
		rel = 1 - rel
	}
	return clampIndex(int(rel*float64(s.size)), s.size)
}

// HandleX is the bar x coordinate of the handle center
func (s *Slider) HandleX() float64 {
	w := float64(s.Bounds.Dx())
	if s.size == 0 {
		return float64(s.Bounds.Min.X)
	}
	rel := (float64(s.handleIndex) + 0.5) / float64(s.size)
	if s.rtl {
		rel = 1 - rel
	}
	return float64(s.Bounds.Min.X) + rel*w
}

// Preview is the thumbnail strip shown above the handle while dragging
type Preview struct {
	Visible bool
	Index   int
	Label   string
	Thumbs  []*ImageHandle
}

// PaneSlider is the page slider with a thumbnail preview
type PaneSlider struct {
	*Slider
	preview Preview
}

func NewPaneSlider(name string) *PaneSlider {
	ps := &PaneSlider{Slider: NewSlider(name)}
	ps.impl = ps
	return ps
}

func (ps *PaneSlider) Preview() Preview { return ps.preview }

// ShowPreview shows the thumbnails of the spread under the handle
func (ps *PaneSlider) ShowPreview(index int, label string, thumbs []*ImageHandle) {
	ps.preview = Preview{Visible: true, Index: index, Label: label, Thumbs: thumbs}
}

func (ps *PaneSlider) HidePreview() {
	ps.preview = Preview{}
}

// SliderDrag turns a mouse press on the slider into a drag once the
// pointer has been held for hold, or moved past threshold pixels.
type SliderDrag struct {
	hold      time.Duration
	threshold int

	pressed bool
	started bool
	pressAt time.Time
	pressX  int
}

func NewSliderDrag(hold time.Duration, threshold int) *SliderDrag {
	return &SliderDrag{hold: hold, threshold: threshold}
}

// Press records a button press at x
func (d *SliderDrag) Press(now time.Time, x int) {
	d.pressed, d.started = true, false
	d.pressAt, d.pressX = now, x
}

// Move reports whether the press should now be treated as a drag
func (d *SliderDrag) Move(now time.Time, x int) bool {
	if !d.pressed || d.started {
		return d.started
	}
	dx := x - d.pressX
	if dx < 0 {
		dx = -dx
	}
	if now.Sub(d.pressAt) >= d.hold || dx > d.threshold {
		d.started = true
	}
	return d.started
}

// Release ends the press, returning whether it was a drag
func (d *SliderDrag) Release() bool {
	started := d.started
	d.pressed, d.started = false, false
	return started
}

// StartX is where the press began
func (d *SliderDrag) StartX() int { return d.pressX }
