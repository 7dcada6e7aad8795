package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrMissingCollaborator = errors.New("missing collaborator")
	ErrEmptyManga          = errors.New("manga has no pages")
)

// PerformerOptions wires a Performer to its collaborators
type PerformerOptions struct {
	Viewport   Viewport
	UI         *ReaderInterface
	Loop       *Loop
	Fullscreen Fullscreen
	I18n       *I18n

	Images      ImageLoader
	Thumbs      ImageLoader
	Concurrency int
	Retain      int

	PageSpread int
	ViewMode   ViewMode
	Language   string

	Logger *zap.Logger
}

// Performer plays a manga: it owns the current spread, the view mode and
// the page spread, and keeps the viewport and the reader chrome in sync.
type Performer struct {
	viewport   Viewport
	ui         *ReaderInterface
	loop       *Loop
	fullscreen Fullscreen
	i18n       *I18n
	opts       PerformerOptions
	logger     *zap.Logger

	manga      *Manga
	pane       Spread
	position   *Position
	viewMode   ViewMode
	pageSpread int
	language   string

	setupDone  bool
	enabled    bool
	previewOn  bool
	progressID int

	OnMangaChanged      Emitter[*Manga]
	OnViewModeChanged   Emitter[ViewMode]
	OnPageSpreadChanged Emitter[int]
}

// NewPerformer checks the collaborators and creates an idle performer
func NewPerformer(o PerformerOptions) (*Performer, error) {
	switch {
	case o.Viewport == nil:
		return nil, fmt.Errorf("%w: viewport", ErrMissingCollaborator)
	case o.UI == nil:
		return nil, fmt.Errorf("%w: interface", ErrMissingCollaborator)
	case o.Loop == nil:
		return nil, fmt.Errorf("%w: loop", ErrMissingCollaborator)
	case o.Fullscreen == nil:
		return nil, fmt.Errorf("%w: fullscreen", ErrMissingCollaborator)
	case o.I18n == nil:
		return nil, fmt.Errorf("%w: i18n", ErrMissingCollaborator)
	case o.Images == nil:
		return nil, fmt.Errorf("%w: image loader", ErrMissingCollaborator)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	p := &Performer{
		viewport:   o.Viewport,
		ui:         o.UI,
		loop:       o.Loop,
		fullscreen: o.Fullscreen,
		i18n:       o.I18n,
		opts:       o,
		logger:     o.Logger.Named("performer"),
		position:   &Position{Horizontal: 1, Vertical: 1},
		viewMode:   ViewPageFit,
		pageSpread: 1,
		language:   o.Language,
	}
	if o.ViewMode != "" {
		if _, err := ParseViewMode(string(o.ViewMode)); err != nil {
			return nil, err
		}
		p.viewMode = o.ViewMode
	}
	if o.PageSpread != 0 {
		if o.PageSpread != 1 && o.PageSpread != 2 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidPageSpread, o.PageSpread)
		}
		p.pageSpread = o.PageSpread
	}
	return p, nil
}

func (p *Performer) Manga() *Manga          { return p.manga }
func (p *Performer) Pane() Spread           { return p.pane }
func (p *Performer) ViewMode() ViewMode     { return p.viewMode }
func (p *Performer) PageSpread() int        { return p.pageSpread }
func (p *Performer) Enabled() bool          { return p.enabled }
func (p *Performer) Viewport() Viewport     { return p.viewport }
func (p *Performer) UI() *ReaderInterface   { return p.ui }
func (p *Performer) Fullscreen() Fullscreen { return p.fullscreen }

// setup wires the chrome to the performer. It runs once.
func (p *Performer) setup() {
	if p.setupDone {
		return
	}
	p.setupDone = true

	ui := p.ui
	ui.On.State[CompPageSpread] = func(v any) error {
		n, ok := v.(int)
		if !ok {
			return fmt.Errorf("%w: %v", ErrInvalidPageSpread, v)
		}
		_, err := p.SetPageSpread(n)
		return err
	}
	ui.On.State[CompViewMode] = func(v any) error {
		mode, ok := v.(ViewMode)
		if !ok {
			return fmt.Errorf("%w: %v", ErrInvalidViewMode, v)
		}
		_, err := p.SetViewMode(mode)
		return err
	}
	ui.On.Nav[CompNav] = func(dir NavDirection) error {
		if dir == NavPrev {
			p.PrevPane()
		} else {
			p.NextPane()
		}
		return nil
	}
	ui.On.Activate[CompFullscreen] = func() error {
		p.ToggleFullscreen()
		return nil
	}

	p.fullscreen.Changes().On(func(on bool) {
		ui.State.Set(StateFullscreen, on)
		ui.RefreshFor(RefreshFullscreenChange)
	})
	p.i18n.OnLanguageChanged.On(func(string) {
		ui.RefreshAll()
	})

	ui.Slider.Events.On(p.onSlider)

	ui.State.Set(StateViewMode, p.viewMode)
	ui.State.Set(StatePageSpread, p.pageSpread)
	ui.State.Set(StateFullscreen, p.fullscreen.Check())

	if p.language != "" {
		p.i18n.SetLanguage(p.language)
	}
}

func (p *Performer) onSlider(ev SliderEvent) {
	slider := p.ui.Slider
	switch ev.Type {
	case SliderUserStart:
		p.previewOn = true
		p.preview(ev.Index)
	case SliderHandleChanged:
		if p.previewOn {
			p.preview(ev.Index)
		}
	case SliderUserEnd:
		p.previewOn = false
		slider.HidePreview()
	case SliderIndexChanged:
		if target := p.spreadAt(ev.Index); target != nil {
			if err := p.SetPane(target); err != nil {
				p.logger.Error("Slider navigation failed", zap.Int("index", ev.Index), zap.Error(err))
			}
		}
	}
}

func (p *Performer) preview(idx int) {
	target := p.spreadAt(idx)
	if target == nil {
		return
	}
	pre := p.preloader()
	pages := target.Pages()
	thumbs := make([]*ImageHandle, len(pages))
	labels := make([]string, len(pages))
	for i, page := range pages {
		thumbs[i] = pre.Thumb(page, p.manga.ThumbHeight)
		labels[i] = page.Label()
	}
	if p.manga.RTL() {
		slices.Reverse(thumbs)
		slices.Reverse(labels)
	}
	p.ui.Slider.ShowPreview(target.Index(), strings.Join(labels, "-"), thumbs)
}

// spreadAt returns the spread at idx in the current pane's list, clamped
func (p *Performer) spreadAt(idx int) Spread {
	switch s := p.pane.(type) {
	case *Page:
		if page := s.List().Constrained(idx); page != nil {
			return page
		}
	case *PagePair:
		if pair := s.List().Constrained(idx); pair != nil {
			return pair
		}
	}
	return nil
}

func (p *Performer) preloader() *Preloader {
	thumbs := p.opts.Thumbs
	if thumbs == nil {
		thumbs = NewThumbnailLoader(p.opts.Images, p.manga.ThumbHeight)
	}
	return p.manga.Preloader(PreloaderOptions{
		Images:      p.opts.Images,
		Thumbs:      thumbs,
		Concurrency: p.opts.Concurrency,
		Retain:      p.opts.Retain,
		Logger:      p.opts.Logger,
	})
}

// Play freezes the manga, starts preloading and shows the first spread
func (p *Performer) Play(m *Manga) error {
	if m == nil {
		return ErrNoManga
	}
	if m.Pages.Len() == 0 {
		return ErrEmptyManga
	}
	m.Freeze()
	p.setup()
	p.enabled = true

	if p.manga != nil {
		old := p.manga.Preloader(PreloaderOptions{})
		if p.progressID != 0 {
			old.OnProgress.Off(p.progressID)
			p.progressID = 0
		}
		if p.manga != m {
			old.Stop()
		}
	}

	p.manga = m
	p.ui.Slider.SetLoaded(0)
	pre := p.preloader()
	p.progressID = pre.OnProgress.On(func(pr Progress) {
		p.loop.Post(func() {
			p.ui.Slider.SetLoaded(pr.Fraction())
		})
	})
	pre.Preload()

	p.SetManga(m)

	var first Spread = m.Pages.At(0)
	if p.pageSpread == 2 && m.Pairs.Len() > 0 {
		first = m.Pairs.At(0)
	}
	return p.SetPane(first)
}

// SetManga publishes the manga to the chrome
func (p *Performer) SetManga(m *Manga) {
	p.manga = m
	p.ui.State.Set(StateManga, m)
	p.ui.State.Set(StateTitle, m.Title)
	p.OnMangaChanged.Emit(m)
}

func isNilSpread(s Spread) bool {
	switch v := s.(type) {
	case *Page:
		return v == nil
	case *PagePair:
		return v == nil
	default:
		return true
	}
}

// SetPane shows a page or a page pair
func (p *Performer) SetPane(s Spread) error {
	if p.manga == nil {
		return ErrNoManga
	}
	if isNilSpread(s) {
		return ErrInvalidPane
	}

	handles := p.preloader().Show(s.Pages()...)
	if p.manga.RTL() {
		slices.Reverse(handles)
	}

	p.pane = s
	p.viewport.AddPane(handles, p.position)
	if _, err := p.SetViewMode(p.viewMode); err != nil {
		return err
	}
	p.ui.State.Set(StatePane, s)

	slider := p.ui.Slider
	slider.SetRTL(p.manga.RTL())
	slider.SetSize(s.ListLen())
	slider.SetIndex(s.Index())
	slider.Flush()

	p.logger.Debug("Pane set", zap.Int("index", s.Index()), zap.Int("pages", len(s.Pages())))
	return nil
}

// PrevPane and NextPane move one spread; they do nothing at the ends
func (p *Performer) PrevPane() {
	if p.pane == nil {
		return
	}
	if prev := p.pane.PrevSpread(); prev != nil {
		_ = p.SetPane(prev)
	}
}

func (p *Performer) NextPane() {
	if p.pane == nil {
		return
	}
	if next := p.pane.NextSpread(); next != nil {
		_ = p.SetPane(next)
	}
}

// Left and Right navigate by screen direction
func (p *Performer) Left() {
	if p.manga == nil {
		return
	}
	if p.manga.RTL() {
		p.NextPane()
	} else {
		p.PrevPane()
	}
}

func (p *Performer) Right() {
	if p.manga == nil {
		return
	}
	if p.manga.RTL() {
		p.PrevPane()
	} else {
		p.NextPane()
	}
}

// FirstPane and LastPane jump to the ends of the current list
func (p *Performer) FirstPane() {
	if target := p.spreadAt(0); target != nil {
		_ = p.SetPane(target)
	}
}

func (p *Performer) LastPane() {
	if p.pane == nil {
		return
	}
	if target := p.spreadAt(p.pane.ListLen() - 1); target != nil {
		_ = p.SetPane(target)
	}
}

// SetViewMode applies a view mode and returns the previous one. Setting the
// current mode again re-fits the pane.
func (p *Performer) SetViewMode(mode ViewMode) (ViewMode, error) {
	old := p.viewMode
	switch mode {
	case ViewPageFit:
		p.position = &Position{Horizontal: 1, Vertical: 1}
		p.viewport.SetPosition(p.position)
	case ViewPageWidth:
		p.position = &Position{Horizontal: 1}
		p.viewport.SetPosition(p.position)
	case ViewPanel:
		// TODO: frame individual panels once pages carry panel geometry
	default:
		return old, fmt.Errorf("%w: %q", ErrInvalidViewMode, mode)
	}

	p.viewMode = mode
	if mode != old {
		p.ui.State.Set(StateViewMode, mode)
		p.OnViewModeChanged.Emit(mode)
	}
	return old, nil
}

// SetPageSpread switches between single pages (1) and pairs (2), moving
// to the spread that holds the current page. A page outside every pair
// keeps the spread unchanged and returns ErrInvalidPane.
func (p *Performer) SetPageSpread(n int) (int, error) {
	old := p.pageSpread
	if n != 1 && n != 2 {
		return old, fmt.Errorf("%w: %d", ErrInvalidPageSpread, n)
	}

	var target Spread
	switch s := p.pane.(type) {
	case *PagePair:
		if n == 1 && s.First() != nil {
			target = s.First()
		}
	case *Page:
		if n == 2 {
			if s.Pair() == nil {
				return old, fmt.Errorf("%w: page %d has no pair", ErrInvalidPane, s.Index())
			}
			target = s.Pair()
		}
	}

	p.pageSpread = n
	var err error
	if target != nil {
		err = p.SetPane(target)
	}

	if n != old {
		p.ui.State.Set(StatePageSpread, n)
		p.OnPageSpreadChanged.Emit(n)
	}
	return old, err
}

// ToggleFullscreen enters or leaves fullscreen when supported
func (p *Performer) ToggleFullscreen() {
	if !p.fullscreen.Supported() {
		return
	}
	if p.fullscreen.Check() {
		p.fullscreen.Cancel()
	} else {
		p.fullscreen.Request()
	}
}

// Stop cancels background loading of the current manga
func (p *Performer) Stop() {
	if p.manga == nil {
		return
	}
	p.manga.Preloader(PreloaderOptions{}).Stop()
	p.enabled = false
}
