package main

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ViewMode selects how a pane is fitted into the viewport
type ViewMode string

const (
	ViewPageFit   ViewMode = "pagefit"
	ViewPageWidth ViewMode = "pagewidth"
	ViewPanel     ViewMode = "panel"
)

// ViewModes lists the valid modes in button order
var ViewModes = []ViewMode{ViewPageFit, ViewPageWidth, ViewPanel}

// ParseViewMode validates a view mode name
func ParseViewMode(s string) (ViewMode, error) {
	for _, m := range ViewModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, s)
}

// Position constrains a pane on each axis. Zero leaves the axis free;
// otherwise the value multiplies the scale that fits that axis exactly.
type Position struct {
	Horizontal float64
	Vertical   float64
}

// Transform is the placement of a pane in viewport coordinates
type Transform struct {
	Hidden      bool
	Scale       float64
	X           float64
	Y           float64
	Accelerated bool
}

// FitScale returns the largest scale that keeps a pw x ph pane inside the
// viewport on every constrained axis.
func FitScale(vw, vh, pw, ph float64, pos Position) float64 {
	scale := math.Inf(1)
	if pos.Horizontal > 0 && pw > 0 {
		scale = math.Min(scale, vw/pw*pos.Horizontal)
	}
	if pos.Vertical > 0 && ph > 0 {
		scale = math.Min(scale, vh/ph*pos.Vertical)
	}
	if math.IsInf(scale, 1) {
		return 1
	}
	return scale
}

// Pane holds the one or two images shown together, in display order
type Pane struct {
	handles []*ImageHandle

	mu        sync.Mutex
	width     int
	height    int
	ready     bool
	readyErr  error
	position  *Position
	transform Transform
	destroyed bool
	cancel    context.CancelFunc
}

// NewPane creates a pane over the given images, left to right
func NewPane(handles ...*ImageHandle) *Pane {
	return &Pane{handles: handles, transform: Transform{Hidden: true}}
}

func (p *Pane) Handles() []*ImageHandle { return p.handles }

// Size is the combined natural size: widths add up, height is the tallest
func (p *Pane) Size() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// Offsets returns the natural x offset of each image inside the pane
func (p *Pane) Offsets() []int {
	offsets := make([]int, len(p.handles))
	x := 0
	for i, h := range p.handles {
		offsets[i] = x
		if w, _, ok := h.NaturalSize(); ok {
			x += w
		}
	}
	return offsets
}

func (p *Pane) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// ReadyErr holds the combined failures of the images, if any
func (p *Pane) ReadyErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readyErr
}

func (p *Pane) Position() *Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *Pane) Transform() Transform {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transform
}

func (p *Pane) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// Ready waits until every image knows its size. A failed image does not
// stop the wait; its error is combined into the result.
func (p *Pane) Ready(ctx context.Context, timeout time.Duration) error {
	errs := make([]error, len(p.handles))
	var wg sync.WaitGroup
	for i, h := range p.handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = h.WaitReady(ctx, timeout)
		}()
	}
	wg.Wait()
	return multierr.Combine(errs...)
}

// measure recomputes the combined size from the images. Unknown sizes count as 0.
func (p *Pane) measure() {
	w, h := 0, 0
	for _, handle := range p.handles {
		iw, ih, ok := handle.NaturalSize()
		if !ok {
			continue
		}
		w += iw
		h = max(h, ih)
	}
	p.mu.Lock()
	p.width, p.height = w, h
	p.mu.Unlock()
}

// Destroy stops waiting for the pane's images
func (p *Pane) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
	p.transform = Transform{Hidden: true}
	if p.cancel != nil {
		p.cancel()
	}
}

// Viewport positions the current pane inside the window
type Viewport interface {
	SetSize(w, h int)
	Size() (int, int)
	AddPane(handles []*ImageHandle, pos *Position) *Pane
	Current() *Pane
	SetPosition(pos *Position)
	RefreshPosition()
	Name() string
}

// Supports describes what the drawing backend can do
type Supports struct {
	Transform   bool
	Accelerated bool
}

// DetectSupports decides the viewport flavour once at startup
func DetectSupports(cfg Config) Supports {
	return Supports{
		Transform:   !cfg.SimplePositioning,
		Accelerated: !cfg.SimplePositioning && cfg.SmoothScaling,
	}
}

// ViewportOptions configures a viewport
type ViewportOptions struct {
	Loop         *Loop
	ReadyTimeout time.Duration
	Logger       *zap.Logger
}

// NewViewport picks the transform based viewport when supported and the
// plain positioning one otherwise.
func NewViewport(s Supports, opts ViewportOptions) Viewport {
	if s.Transform {
		return NewTransformViewport(opts, s.Accelerated)
	}
	return NewPositionViewport(opts)
}

type placer func(p *Pane, vw, vh float64) Transform

// viewport is the shared pane bookkeeping of both viewport flavours
type viewport struct {
	name    string
	loop    *Loop
	timeout time.Duration
	logger  *zap.Logger
	place   placer

	width   int
	height  int
	current *Pane

	OnPositioned Emitter[*Pane]
}

func (v *viewport) init(name string, opts ViewportOptions, place placer) {
	if opts.Loop == nil {
		opts.Loop = NewLoop()
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	v.name = name
	v.loop = opts.Loop
	v.timeout = opts.ReadyTimeout
	v.logger = opts.Logger.Named("viewport")
	v.place = place
}

func (v *viewport) Name() string { return v.name }

func (v *viewport) Size() (int, int) { return v.width, v.height }

// SetSize updates the viewport size and re-fits the current pane
func (v *viewport) SetSize(w, h int) {
	if w == v.width && h == v.height {
		return
	}
	v.width, v.height = w, h
	v.RefreshPosition()
}

func (v *viewport) Current() *Pane { return v.current }

// AddPane replaces the current pane. The new pane is positioned once all
// of its images know their size.
func (v *viewport) AddPane(handles []*ImageHandle, pos *Position) *Pane {
	if v.current != nil {
		v.current.Destroy()
	}

	pane := NewPane(handles...)
	pane.position = pos
	ctx, cancel := context.WithCancel(context.Background())
	pane.cancel = cancel
	v.current = pane

	go func() {
		err := pane.Ready(ctx, v.timeout)
		v.loop.Post(func() {
			if pane.Destroyed() {
				return
			}
			if err != nil {
				v.logger.Warn("Pane positioned with missing images", zap.Error(err))
			}
			pane.measure()
			pane.mu.Lock()
			pane.ready = true
			pane.readyErr = err
			pane.mu.Unlock()
			v.RefreshPosition()
		})
	}()
	return pane
}

// SetPosition changes the constraint of the current pane
func (v *viewport) SetPosition(pos *Position) {
	if v.current == nil {
		return
	}
	v.current.mu.Lock()
	v.current.position = pos
	v.current.mu.Unlock()
	v.RefreshPosition()
}

// RefreshPosition re-fits the current pane
func (v *viewport) RefreshPosition() {
	pane := v.current
	if pane == nil || !pane.IsReady() {
		return
	}

	tr := v.place(pane, float64(v.width), float64(v.height))
	pane.mu.Lock()
	pane.transform = tr
	pane.mu.Unlock()
	v.OnPositioned.Emit(pane)
}

// fit is the geometry shared by both flavours
func fit(p *Pane, vw, vh float64) (Transform, float64, float64) {
	pos := p.Position()
	pw, ph := p.Size()
	if pos == nil || pw == 0 || ph == 0 {
		return Transform{Hidden: true}, 0, 0
	}
	scale := FitScale(vw, vh, float64(pw), float64(ph), *pos)
	return Transform{
		Scale: scale,
		X:     vw/2 - float64(pw)*scale/2,
		Y:     0,
	}, float64(pw), float64(ph)
}

// TransformViewport places panes with a fractional translate and scale
type TransformViewport struct {
	viewport
	accelerated bool
}

func NewTransformViewport(opts ViewportOptions, accelerated bool) *TransformViewport {
	tv := &TransformViewport{accelerated: accelerated}
	tv.init("transform", opts, func(p *Pane, vw, vh float64) Transform {
		tr, _, _ := fit(p, vw, vh)
		if !tr.Hidden {
			tr.Accelerated = tv.accelerated
		}
		return tr
	})
	return tv
}

// PositionViewport places panes on whole pixels with no fractional transform
type PositionViewport struct {
	viewport
}

func NewPositionViewport(opts ViewportOptions) *PositionViewport {
	pv := &PositionViewport{}
	pv.init("position", opts, func(p *Pane, vw, vh float64) Transform {
		tr, pw, _ := fit(p, vw, vh)
		if tr.Hidden {
			return tr
		}
		width := math.Round(pw * tr.Scale)
		return Transform{
			Scale: width / pw,
			X:     math.Round(vw/2 - width/2),
			Y:     0,
		}
	})
	return pv
}
