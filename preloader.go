package main

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ErrReadyTimeout is returned when an image never reports its size
var ErrReadyTimeout = errors.New("timed out waiting for image size")

const (
	defaultPreloadConcurrency = 2
	defaultReadyTimeout       = 10 * time.Second
	defaultRetainedImages     = 16
)

// ImageHandle is the loading state of one image. Sized closes once the
// natural size is known or the load failed, Done once the load settled.
type ImageHandle struct {
	src   string
	sized chan struct{}
	done  chan struct{}

	sizedOnce sync.Once
	mu        sync.Mutex
	width     int
	height    int
	hasSize   bool
	img       image.Image
	err       error
	released  bool
	display   int
}

func newImageHandle(src string) *ImageHandle {
	return &ImageHandle{
		src:   src,
		sized: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// NewLoadedHandle returns a settled handle for an already decoded image
func NewLoadedHandle(src string, img image.Image) *ImageHandle {
	h := newImageHandle(src)
	b := img.Bounds()
	h.setSize(b.Dx(), b.Dy())
	h.settle(img, nil)
	return h
}

func (h *ImageHandle) setSize(w, ht int) {
	h.mu.Lock()
	h.width, h.height, h.hasSize = w, ht, true
	h.mu.Unlock()
	h.sizedOnce.Do(func() { close(h.sized) })
}

func (h *ImageHandle) settle(img image.Image, err error) {
	h.mu.Lock()
	h.img, h.err = img, err
	if img != nil && !h.hasSize {
		b := img.Bounds()
		h.width, h.height, h.hasSize = b.Dx(), b.Dy(), true
	}
	h.mu.Unlock()
	h.sizedOnce.Do(func() { close(h.sized) })
	close(h.done)
}

// release drops the decoded pixels. The size and error stay.
func (h *ImageHandle) release() {
	h.mu.Lock()
	if h.img != nil {
		h.img = nil
		h.released = true
	}
	h.mu.Unlock()
}

// Released reports whether the pixels were dropped after a successful load
func (h *ImageHandle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *ImageHandle) Src() string { return h.src }

// Sized closes when the natural size is known or the load failed
func (h *ImageHandle) Sized() <-chan struct{} { return h.sized }

// Done closes when the load settled
func (h *ImageHandle) Done() <-chan struct{} { return h.done }

// Settled reports whether the load finished, successfully or not
func (h *ImageHandle) Settled() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// NaturalSize returns the intrinsic size if known
func (h *ImageHandle) NaturalSize() (int, int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width, h.height, h.hasSize
}

func (h *ImageHandle) Image() image.Image {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.img
}

func (h *ImageHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// DisplayHeight is the height a thumbnail was requested at
func (h *ImageHandle) DisplayHeight() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.display
}

// WaitReady blocks until the natural size is known. It returns the load
// error when the image failed before reporting a size.
func (h *ImageHandle) WaitReady(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.sized:
		if _, _, ok := h.NaturalSize(); !ok {
			return h.Err()
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrReadyTimeout
	}
}

// Progress is reported by the full image track
type Progress struct {
	Finished int
	Total    int
}

// Fraction is finished/total, 1 for an empty manga
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Finished) / float64(p.Total)
}

// TrackStats is a snapshot of one preloader track
type TrackStats struct {
	Next     int
	InFlight int
	Finished int
	Peak     int
	Running  bool
}

type track struct {
	name     string
	loader   ImageLoader
	source   func(*Page) string
	next     int
	inFlight int
	finished int
	peak     int
	running  bool
	handles  []*ImageHandle
	awaiting map[int]bool // skipped by the scan, counted when they settle
}

func (t *track) stats() TrackStats {
	return TrackStats{Next: t.next, InFlight: t.inFlight, Finished: t.finished, Peak: t.peak, Running: t.running}
}

// PreloaderOptions configures a Preloader
type PreloaderOptions struct {
	Images      ImageLoader
	Thumbs      ImageLoader
	Concurrency int
	Retain      int // decoded full-size images kept besides the visible spread
	Logger      *zap.Logger
}

// Preloader fetches every page image and thumbnail of a manga in list
// order with a bounded number of loads in flight per track.
type Preloader struct {
	manga  *Manga
	limit  int
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	images *track
	thumbs *track

	retained *lru.Cache[*ImageHandle, struct{}]
	kept     map[*ImageHandle]bool

	OnProgress Emitter[Progress]
}

// NewPreloader creates a preloader over the manga's page list
func NewPreloader(m *Manga, opts PreloaderOptions) *Preloader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultPreloadConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Thumbs == nil {
		opts.Thumbs = opts.Images
	}
	if opts.Retain <= 0 {
		opts.Retain = defaultRetainedImages
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Preloader{
		manga:  m,
		limit:  opts.Concurrency,
		logger: opts.Logger.Named("preloader"),
		ctx:    ctx,
		cancel: cancel,
		images: &track{
			name:     "images",
			loader:   opts.Images,
			source:   func(p *Page) string { return p.Src },
			awaiting: map[int]bool{},
		},
		thumbs: &track{
			name:   "thumbs",
			loader: opts.Thumbs,
			source: func(p *Page) string {
				if p.Thumb != "" {
					return p.Thumb
				}
				return p.Src
			},
			awaiting: map[int]bool{},
		},
		kept: map[*ImageHandle]bool{},
	}
	// NewWithEvict only fails for a non-positive size
	p.retained, _ = lru.NewWithEvict(opts.Retain, p.evicted)
	return p
}

// Preload starts both tracks. Calling it again while running does nothing.
func (p *Preloader) Preload() {
	for _, t := range []*track{p.images, p.thumbs} {
		p.mu.Lock()
		if t.running {
			p.mu.Unlock()
			continue
		}
		t.running = true
		p.mu.Unlock()
		p.logger.Debug("Track started", zap.String("track", t.name), zap.Int("pages", p.manga.Pages.Len()))
		p.dispatch(t)
	}
}

// Image returns the full image handle for page, starting a load outside
// the scan order when none exists yet.
func (p *Preloader) Image(page *Page) *ImageHandle {
	return p.force(p.images, page, 0)
}

// Thumb returns the thumbnail handle for page, recording the height it
// will be displayed at.
func (p *Preloader) Thumb(page *Page, height int) *ImageHandle {
	return p.force(p.thumbs, page, height)
}

func (p *Preloader) force(t *track, page *Page, height int) *ImageHandle {
	p.mu.Lock()
	h, fresh := p.handle(t, page, height)
	p.mu.Unlock()

	if fresh {
		p.start(t, page.Index(), h, false)
	}
	return h
}

// handle returns the handle of page on t. A missing or released handle is
// replaced by a fresh one the caller must start. Caller holds p.mu.
func (p *Preloader) handle(t *track, page *Page, height int) (*ImageHandle, bool) {
	idx := page.Index()
	p.ensure(t)
	inRange := idx >= 0 && idx < len(t.handles)

	if inRange && t.handles[idx] != nil && !t.handles[idx].Released() {
		h := t.handles[idx]
		if height > 0 {
			h.mu.Lock()
			h.display = height
			h.mu.Unlock()
		}
		return h, false
	}

	h := newImageHandle(t.source(page))
	h.display = height
	if inRange {
		t.handles[idx] = h
	}
	return h, true
}

// Show returns the full image handles of the visible spread. Their pixels
// are kept until the next Show; the previous spread joins the retained
// images. Released pages load again.
func (p *Preloader) Show(pages ...*Page) []*ImageHandle {
	handles := make([]*ImageHandle, len(pages))
	var (
		fresh  []int
		demote []*ImageHandle
	)

	p.mu.Lock()
	prev := p.kept
	p.kept = make(map[*ImageHandle]bool, len(pages))
	for i, page := range pages {
		h, isNew := p.handle(p.images, page, 0)
		handles[i] = h
		p.kept[h] = true
		if isNew {
			fresh = append(fresh, i)
		}
	}
	for h := range prev {
		if !p.kept[h] {
			demote = append(demote, h)
		}
	}
	p.mu.Unlock()

	for _, i := range fresh {
		p.start(p.images, pages[i].Index(), handles[i], false)
	}
	for _, h := range demote {
		if h.Image() != nil {
			p.retain(h)
		}
	}
	return handles
}

// ImageErr returns the load error of page without starting a load
func (p *Preloader) ImageErr(page *Page) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := page.Index()
	if idx < 0 || idx >= len(p.images.handles) || p.images.handles[idx] == nil {
		return nil
	}
	return p.images.handles[idx].Err()
}

// Retained counts the decoded full-size images still held
func (p *Preloader) Retained() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, h := range p.images.handles {
		if h != nil && h.Image() != nil {
			n++
		}
	}
	return n
}

// retain records a decoded full-size image. It must not be called with
// p.mu held because eviction takes it.
func (p *Preloader) retain(h *ImageHandle) {
	p.retained.Add(h, struct{}{})
}

func (p *Preloader) evicted(h *ImageHandle, _ struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.kept[h] {
		h.release()
	}
}

// Stop cancels outstanding loads. Loads that settle afterwards are ignored.
func (p *Preloader) Stop() {
	p.cancel()
}

// ImageStats and ThumbStats snapshot the tracks
func (p *Preloader) ImageStats() TrackStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.images.stats()
}

func (p *Preloader) ThumbStats() TrackStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.thumbs.stats()
}

// ensure sizes the handle table to the page list. Caller holds p.mu.
func (p *Preloader) ensure(t *track) {
	if n := p.manga.Pages.Len(); len(t.handles) < n {
		t.handles = append(t.handles, make([]*ImageHandle, n-len(t.handles))...)
	}
}

// dispatch fills the track up to the concurrency limit
func (p *Preloader) dispatch(t *track) {
	var (
		events []Progress
		starts []func()
	)

	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	p.ensure(t)
	total := p.manga.Pages.Len()
	for t.inFlight < p.limit && t.next < total {
		idx := t.next
		t.next++

		if h := t.handles[idx]; h != nil {
			if h.Settled() {
				t.finished++
				events = append(events, Progress{Finished: t.finished, Total: total})
			} else {
				t.awaiting[idx] = true
			}
			continue
		}

		h := newImageHandle(t.source(p.manga.Pages.At(idx)))
		t.handles[idx] = h
		t.inFlight++
		if t.inFlight > t.peak {
			t.peak = t.inFlight
		}
		starts = append(starts, func() { p.start(t, idx, h, true) })
	}
	p.mu.Unlock()

	for _, start := range starts {
		start()
	}
	p.report(t, events)
}

func (p *Preloader) start(t *track, idx int, h *ImageHandle, scanned bool) {
	go func() {
		if h.src == "" {
			h.settle(nil, ErrNoSource)
		} else {
			img, err := t.loader.Load(p.ctx, h.src, h.setSize)
			h.settle(img, err)
			if t == p.images && img != nil {
				p.retain(h)
			}
			if err != nil && p.ctx.Err() == nil {
				p.logger.Warn("Image failed to load", zap.String("track", t.name), zap.String("src", h.src), zap.Error(err))
			}
		}
		p.complete(t, idx, scanned)
	}()
}

func (p *Preloader) complete(t *track, idx int, scanned bool) {
	if p.ctx.Err() != nil {
		return
	}

	var events []Progress
	p.mu.Lock()
	total := p.manga.Pages.Len()
	switch {
	case scanned:
		t.inFlight--
		t.finished++
		events = append(events, Progress{Finished: t.finished, Total: total})
	case t.awaiting[idx]:
		delete(t.awaiting, idx)
		t.finished++
		events = append(events, Progress{Finished: t.finished, Total: total})
	}
	p.mu.Unlock()

	p.report(t, events)
	if scanned {
		p.dispatch(t)
	}
}

func (p *Preloader) report(t *track, events []Progress) {
	if t != p.images {
		return
	}
	for _, ev := range events {
		p.OnProgress.Emit(ev)
	}
}
