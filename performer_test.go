package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type performerFixture struct {
	p      *Performer
	loop   *Loop
	ui     *ReaderInterface
	vp     Viewport
	fs     *fakeFullscreen
	tr     *I18n
	images *fakeLoader
}

func newPerformerFixture(t *testing.T, configure func(o *PerformerOptions)) *performerFixture {
	t.Helper()
	f := &performerFixture{
		loop:   NewLoop(),
		fs:     &fakeFullscreen{supported: true},
		tr:     newTestI18n(t),
		images: newFakeLoader(),
	}
	ui, err := NewReaderInterface(f.loop, f.tr, f.fs, zap.NewNop())
	require.NoError(t, err)
	f.ui = ui
	f.vp = NewViewport(Supports{Transform: true}, ViewportOptions{Loop: f.loop})
	f.vp.SetSize(1000, 800)

	opts := PerformerOptions{
		Viewport:   f.vp,
		UI:         ui,
		Loop:       f.loop,
		Fullscreen: f.fs,
		I18n:       f.tr,
		Images:     f.images,
		Thumbs:     newFakeLoader(),
	}
	if configure != nil {
		configure(&opts)
	}
	f.p, err = NewPerformer(opts)
	require.NoError(t, err)
	t.Cleanup(f.p.Stop)
	return f
}

// play starts m and drains the loop once
func (f *performerFixture) play(t *testing.T, m *Manga) {
	t.Helper()
	require.NoError(t, f.p.Play(m))
	f.loop.Drain()
}

func paneIndex(t *testing.T, p *Performer) int {
	t.Helper()
	require.NotNil(t, p.Pane())
	return p.Pane().Index()
}

func handleSources(pane *Pane) []string {
	var srcs []string
	for _, h := range pane.Handles() {
		srcs = append(srcs, h.Src())
	}
	return srcs
}

func TestNewPerformerValidation(t *testing.T) {
	f := newPerformerFixture(t, nil)
	valid := PerformerOptions{
		Viewport: f.vp, UI: f.ui, Loop: f.loop, Fullscreen: f.fs, I18n: f.tr, Images: f.images,
	}

	missing := map[string]func(o *PerformerOptions){
		"viewport":   func(o *PerformerOptions) { o.Viewport = nil },
		"ui":         func(o *PerformerOptions) { o.UI = nil },
		"loop":       func(o *PerformerOptions) { o.Loop = nil },
		"fullscreen": func(o *PerformerOptions) { o.Fullscreen = nil },
		"i18n":       func(o *PerformerOptions) { o.I18n = nil },
		"images":     func(o *PerformerOptions) { o.Images = nil },
	}
	for name, drop := range missing {
		t.Run(name, func(t *testing.T) {
			o := valid
			drop(&o)
			_, err := NewPerformer(o)
			assert.ErrorIs(t, err, ErrMissingCollaborator)
		})
	}

	o := valid
	o.ViewMode = "zoom"
	_, err := NewPerformer(o)
	assert.ErrorIs(t, err, ErrInvalidViewMode)

	o = valid
	o.PageSpread = 3
	_, err = NewPerformer(o)
	assert.ErrorIs(t, err, ErrInvalidPageSpread)

	p, err := NewPerformer(valid)
	require.NoError(t, err)
	assert.Equal(t, ViewPageFit, p.ViewMode())
	assert.Equal(t, 1, p.PageSpread())
	assert.False(t, p.Enabled())
}

func TestPlayRejectsNothingToShow(t *testing.T) {
	f := newPerformerFixture(t, nil)
	assert.ErrorIs(t, f.p.Play(nil), ErrNoManga)
	assert.ErrorIs(t, f.p.Play(NewManga()), ErrEmptyManga)
	assert.ErrorIs(t, f.p.SetPane(nil), ErrNoManga)
	assert.False(t, f.p.Enabled())
}

func TestPlay(t *testing.T) {
	f := newPerformerFixture(t, nil)
	m := NewManga()
	m.Title = "Volume 1"
	for _, src := range []string{"a", "b", "c"} {
		require.NoError(t, m.Pages.Add(NewPage(src, "")))
	}

	var changed *Manga
	f.p.OnMangaChanged.On(func(m *Manga) { changed = m })
	f.play(t, m)

	assert.True(t, m.Frozen())
	assert.True(t, f.p.Enabled())
	assert.Same(t, m, f.p.Manga())
	assert.Same(t, m, changed)
	assert.Same(t, m.Pages.At(0), f.p.Pane())
	assert.Same(t, m, f.ui.State.Get(StateManga))
	assert.Equal(t, "Volume 1", f.ui.Title.Text)
	assert.Equal(t, ViewPageFit, f.ui.State.Get(StateViewMode))

	slider := f.ui.Slider
	assert.Equal(t, 3, slider.Size())
	assert.Equal(t, 0, slider.Index())

	pane := f.vp.Current()
	require.NotNil(t, pane)
	assert.Equal(t, []string{"a"}, handleSources(pane))
	assert.Equal(t, &Position{Horizontal: 1, Vertical: 1}, pane.Position())
	waitPositioned(t, f.loop, pane)
	assert.False(t, pane.Transform().Hidden)

	require.Eventually(t, func() bool {
		f.loop.Drain()
		return slider.Loaded() == 1
	}, waitFor, time.Millisecond)
}

func TestPlayWithPairs(t *testing.T) {
	f := newPerformerFixture(t, func(o *PerformerOptions) { o.PageSpread = 2 })
	m := newTestManga(t, 5, 1)
	f.play(t, m)

	assert.Same(t, m.Pairs.At(0), f.p.Pane())
	assert.Equal(t, 3, f.ui.Slider.Size())
	assert.Equal(t, 2, f.ui.State.Get(StatePageSpread))
	assert.Same(t, f.ui.PageSpread.Buttons[1], f.ui.PageSpread.Selected())
}

func TestPlayReplacesManga(t *testing.T) {
	f := newPerformerFixture(t, nil)
	first := newTestManga(t, 2, 0)
	f.play(t, first)
	old := first.Preloader(PreloaderOptions{})
	assert.Equal(t, 1, old.OnProgress.Len())

	second := newTestManga(t, 4, 0)
	f.play(t, second)
	assert.Zero(t, old.OnProgress.Len())
	assert.Same(t, second, f.p.Manga())
	assert.Equal(t, 4, f.ui.Slider.Size())
}

func TestPlaySameMangaTwice(t *testing.T) {
	f := newPerformerFixture(t, nil)
	m := newTestManga(t, 3, 0)
	f.play(t, m)
	f.play(t, m)

	pre := m.Preloader(PreloaderOptions{})
	assert.Equal(t, 1, pre.OnProgress.Len(), "one progress subscription per performer")
	assert.Same(t, m.Pages.At(0), f.p.Pane())
}

func TestSetPaneRejectsNonSpreads(t *testing.T) {
	f := newPerformerFixture(t, nil)
	m := newTestManga(t, 4, 0)
	f.play(t, m)
	f.p.NextPane()
	require.Same(t, m.Pages.At(1), f.p.Pane())

	tests := []struct {
		name string
		pane Spread
	}{
		{"nil", nil},
		{"nil page", (*Page)(nil)},
		{"nil pair", (*PagePair)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.p.SetPane(tt.pane), ErrInvalidPane)
			assert.Same(t, m.Pages.At(1), f.p.Pane())
			assert.Equal(t, 1, f.ui.Slider.Index())
			assert.Equal(t, []string{"p1"}, handleSources(f.vp.Current()))
		})
	}
}

func TestNavigation(t *testing.T) {
	f := newPerformerFixture(t, nil)
	m := newTestManga(t, 4, 0)
	f.play(t, m)

	f.p.PrevPane()
	assert.Equal(t, 0, paneIndex(t, f.p), "nothing before the first page")

	f.p.NextPane()
	f.p.NextPane()
	assert.Equal(t, 2, paneIndex(t, f.p))
	assert.Equal(t, 2, f.ui.Slider.Index())

	f.p.LastPane()
	assert.Equal(t, 3, paneIndex(t, f.p))
	f.p.NextPane()
	assert.Equal(t, 3, paneIndex(t, f.p), "nothing after the last page")

	f.p.FirstPane()
	assert.Equal(t, 0, paneIndex(t, f.p))

	f.p.Right()
	assert.Equal(t, 1, paneIndex(t, f.p))
	f.p.Left()
	assert.Equal(t, 0, paneIndex(t, f.p))
	assert.Same(t, f.p.Pane(), f.ui.State.Get(StatePane))
}

func TestNavigationRightToLeft(t *testing.T) {
	f := newPerformerFixture(t, func(o *PerformerOptions) { o.PageSpread = 2 })
	m := newTestManga(t, 5, 1)
	m.Direction = RightToLeft
	f.play(t, m)

	f.p.Left()
	assert.Equal(t, 1, paneIndex(t, f.p), "left moves forward in a right-to-left manga")
	assert.Equal(t, []string{"p2", "p1"}, handleSources(f.vp.Current()), "pages are shown right to left")
	assert.True(t, f.ui.Slider.RTL())

	f.p.Right()
	assert.Equal(t, 0, paneIndex(t, f.p))
}

func TestSetPageSpread(t *testing.T) {
	f := newPerformerFixture(t, nil)
	m := newTestManga(t, 5, 1)
	f.play(t, m)
	f.p.NextPane()
	f.p.NextPane()
	require.Same(t, m.Pages.At(2), f.p.Pane())

	var emitted []int
	f.p.OnPageSpreadChanged.On(func(n int) { emitted = append(emitted, n) })

	old, err := f.p.SetPageSpread(2)
	require.NoError(t, err)
	assert.Equal(t, 1, old)
	assert.Same(t, m.Pairs.At(1), f.p.Pane(), "the pair holding the current page")
	assert.Equal(t, 3, f.ui.Slider.Size())
	assert.Equal(t, 1, f.ui.Slider.Index())
	assert.Equal(t, []string{"p1", "p2"}, handleSources(f.vp.Current()))

	_, err = f.p.SetPageSpread(2)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, emitted, "no event without a change")

	old, err = f.p.SetPageSpread(1)
	require.NoError(t, err)
	assert.Equal(t, 2, old)
	assert.Same(t, m.Pages.At(1), f.p.Pane(), "the first page of the pair")
	assert.Equal(t, 5, f.ui.Slider.Size())

	_, err = f.p.SetPageSpread(3)
	assert.ErrorIs(t, err, ErrInvalidPageSpread)
	assert.Equal(t, 1, f.p.PageSpread())
	assert.Equal(t, []int{2, 1}, emitted)
}

func TestSetPageSpreadWithoutPair(t *testing.T) {
	f := newPerformerFixture(t, nil)
	m := NewManga()
	pages := make([]*Page, 3)
	for i := range pages {
		pages[i] = NewPage("p"+string(rune('0'+i)), "")
		require.NoError(t, m.Pages.Add(pages[i]))
	}
	for _, pp := range PairPages(pages[:2], 0) {
		require.NoError(t, m.Pairs.Add(pp))
	}
	f.play(t, m)
	f.p.LastPane()
	require.Same(t, pages[2], f.p.Pane())

	var emitted []int
	f.p.OnPageSpreadChanged.On(func(n int) { emitted = append(emitted, n) })

	old, err := f.p.SetPageSpread(2)
	assert.ErrorIs(t, err, ErrInvalidPane)
	assert.Equal(t, 1, old)
	assert.Equal(t, 1, f.p.PageSpread())
	assert.Equal(t, 1, f.ui.State.Get(StatePageSpread))
	assert.Same(t, pages[2], f.p.Pane())
	assert.Empty(t, emitted)

	f.p.FirstPane()
	_, err = f.p.SetPageSpread(2)
	require.NoError(t, err)
	assert.Same(t, m.Pairs.At(0), f.p.Pane())
	assert.Equal(t, []int{2}, emitted)
}

func TestSetViewMode(t *testing.T) {
	f := newPerformerFixture(t, nil)
	f.play(t, newTestManga(t, 2, 0))

	var emitted []ViewMode
	f.p.OnViewModeChanged.On(func(m ViewMode) { emitted = append(emitted, m) })

	old, err := f.p.SetViewMode(ViewPageWidth)
	require.NoError(t, err)
	assert.Equal(t, ViewPageFit, old)
	assert.Equal(t, &Position{Horizontal: 1}, f.vp.Current().Position())
	assert.Equal(t, ViewPageWidth, f.ui.State.Get(StateViewMode))

	_, err = f.p.SetViewMode(ViewPageWidth)
	require.NoError(t, err)
	assert.Len(t, emitted, 1)

	_, err = f.p.SetViewMode(ViewPanel)
	require.NoError(t, err)
	assert.Equal(t, ViewPanel, f.p.ViewMode())
	assert.Equal(t, &Position{Horizontal: 1}, f.vp.Current().Position(), "panel mode keeps the last fit")

	f.p.NextPane()
	assert.Equal(t, &Position{Horizontal: 1}, f.vp.Current().Position(), "new panes inherit it")

	old, err = f.p.SetViewMode("zoom")
	assert.ErrorIs(t, err, ErrInvalidViewMode)
	assert.Equal(t, ViewPanel, old)
	assert.Equal(t, []ViewMode{ViewPageWidth, ViewPanel}, emitted)
}

func TestPanelModeAtStartShowsThePage(t *testing.T) {
	f := newPerformerFixture(t, func(o *PerformerOptions) { o.ViewMode = ViewPanel })
	f.play(t, newTestManga(t, 2, 0))

	pane := f.vp.Current()
	require.NotNil(t, pane.Position())
	waitPositioned(t, f.loop, pane)
	assert.False(t, pane.Transform().Hidden)
}

func TestChromeDrivesPerformer(t *testing.T) {
	f := newPerformerFixture(t, nil)
	m := newTestManga(t, 5, 1)
	f.play(t, m)

	f.ui.Nav.Next.Activate()
	assert.Equal(t, 1, paneIndex(t, f.p))
	f.ui.Nav.Prev.Activate()
	assert.Equal(t, 0, paneIndex(t, f.p))

	f.ui.PageSpread.Buttons[1].Activate()
	assert.Equal(t, 2, f.p.PageSpread())
	assert.Same(t, m.Pairs.At(0), f.p.Pane())

	f.ui.ViewMode.Buttons[1].Activate()
	assert.Equal(t, ViewPageWidth, f.p.ViewMode())
	assert.Same(t, f.ui.ViewMode.Buttons[1], f.ui.ViewMode.Selected())

	f.ui.Fullscreen.Activate()
	assert.True(t, f.fs.on)
	assert.Equal(t, true, f.ui.State.Get(StateFullscreen))
	assert.Equal(t, "undo-fullscreen", f.ui.Fullscreen.Icon)

	f.p.ToggleFullscreen()
	assert.False(t, f.fs.on)
	assert.Equal(t, "do-fullscreen", f.ui.Fullscreen.Icon)
}

func TestToggleFullscreenUnsupported(t *testing.T) {
	f := newPerformerFixture(t, nil)
	f.fs.supported = false
	f.p.ToggleFullscreen()
	assert.False(t, f.fs.on)
}

func TestSliderDrivesPerformer(t *testing.T) {
	f := newPerformerFixture(t, nil)
	m := newTestManga(t, 5, 0)
	f.play(t, m)
	slider := f.ui.Slider

	slider.SetIndex(3)
	assert.Equal(t, 0, paneIndex(t, f.p), "moving the handle alone does not navigate")
	slider.Commit()
	assert.Equal(t, 3, paneIndex(t, f.p))

	slider.BeginDrag(10)
	preview := slider.Preview()
	assert.True(t, preview.Visible)
	assert.Equal(t, 3, preview.Index)
	assert.Equal(t, "4", preview.Label)
	require.Len(t, preview.Thumbs, 1)
	assert.Equal(t, m.ThumbHeight, preview.Thumbs[0].DisplayHeight())

	slider.DragBy(-20)
	assert.Equal(t, 1, slider.Preview().Index)
	assert.Equal(t, 3, paneIndex(t, f.p))

	slider.EndDrag()
	assert.False(t, slider.Preview().Visible)
	assert.Equal(t, 1, paneIndex(t, f.p))
}

func TestSliderPreviewRightToLeftPairs(t *testing.T) {
	f := newPerformerFixture(t, func(o *PerformerOptions) { o.PageSpread = 2 })
	m := newTestManga(t, 5, 1)
	m.Direction = RightToLeft
	f.play(t, m)
	slider := f.ui.Slider

	slider.BeginDrag(10)
	slider.DragBy(-10)
	preview := slider.Preview()
	assert.Equal(t, 1, preview.Index, "dragging left moves forward")
	assert.Equal(t, "3-2", preview.Label)
	require.Len(t, preview.Thumbs, 2)
	assert.Equal(t, "p2", preview.Thumbs[0].Src())
	slider.EndDrag()
	assert.Same(t, m.Pairs.At(1), f.p.Pane())
}

func TestPerformerLanguage(t *testing.T) {
	f := newPerformerFixture(t, func(o *PerformerOptions) { o.Language = "ja-JP" })
	f.play(t, newTestManga(t, 2, 0))

	assert.Equal(t, "ja", f.tr.Language())
	assert.Equal(t, "単ページ表示", f.ui.PageSpread.Buttons[0].Label)

	f.tr.SetLanguage("en")
	assert.Equal(t, "One page spread", f.ui.PageSpread.Buttons[0].Label)
}

func TestPerformerStop(t *testing.T) {
	f := newPerformerFixture(t, nil)
	f.p.Stop()
	f.play(t, newTestManga(t, 2, 0))
	require.True(t, f.p.Enabled())
	f.p.Stop()
	assert.False(t, f.p.Enabled())
}
