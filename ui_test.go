package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFullscreen struct {
	supported bool
	on        bool
	changes   Emitter[bool]
}

func (f *fakeFullscreen) Supported() bool         { return f.supported }
func (f *fakeFullscreen) Check() bool             { return f.on }
func (f *fakeFullscreen) Changes() *Emitter[bool] { return &f.changes }

func (f *fakeFullscreen) Request() {
	if f.supported && !f.on {
		f.on = true
		f.changes.Emit(true)
	}
}

func (f *fakeFullscreen) Cancel() {
	if f.on {
		f.on = false
		f.changes.Emit(false)
	}
}

func newTestI18n(t *testing.T) *I18n {
	t.Helper()
	tr, err := NewI18n(zap.NewNop())
	require.NoError(t, err)
	return tr
}

func newTestReaderInterface(t *testing.T, fs Fullscreen) (*ReaderInterface, *Loop, *I18n) {
	t.Helper()
	loop := NewLoop()
	tr := newTestI18n(t)
	ui, err := NewReaderInterface(loop, tr, fs, zap.NewNop())
	require.NoError(t, err)
	loop.Drain()
	return ui, loop, tr
}

func TestInterfaceRegistry(t *testing.T) {
	ui := NewInterface(nil, nil)
	b := NewButton(ButtonOptions{Name: "one"})
	require.NoError(t, ui.Register(b.Component))
	assert.ErrorIs(t, ui.Register(NewButton(ButtonOptions{Name: "one"}).Component), ErrDuplicateComponent)

	got, err := ui.Get("one")
	require.NoError(t, err)
	assert.Same(t, b.Component, got)
	assert.Same(t, b, got.Impl())

	_, err = ui.Get("two")
	assert.ErrorIs(t, err, ErrNoComponent)
	assert.Len(t, ui.Components(), 1)
}

func TestStateRefreshesUsers(t *testing.T) {
	ui := NewInterface(nil, nil)
	refreshed := 0
	b := NewButton(ButtonOptions{
		Name: "counter",
		Uses: []string{"count"},
		Label: func(s StateView) string {
			refreshed++
			n, _ := s["count"].(int)
			return string(rune('0' + n))
		},
		RefreshOn: []string{"tick"},
	})
	require.NoError(t, ui.Register(b.Component))

	ui.State.Set("other", 1)
	assert.Zero(t, refreshed)

	ui.State.Set("count", 3)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, "3", b.Label)
	assert.Equal(t, StateView{"count": 3}, ui.State.Pick("count", "missing"))

	ui.RefreshFor("tick")
	assert.Equal(t, 2, refreshed)
	ui.RefreshFor("tock")
	assert.Equal(t, 2, refreshed)
}

func TestStateSetBecomesChangeState(t *testing.T) {
	ui, _, _ := newTestReaderInterface(t, &fakeFullscreen{supported: true})

	var got []any
	ui.On.State[CompPageSpread] = func(v any) error {
		got = append(got, v)
		return nil
	}
	activated := false
	ui.On.Activate["pagespread-2"] = func() error {
		activated = true
		return nil
	}

	ui.PageSpread.Buttons[1].Activate()
	assert.Equal(t, []any{2}, got)
	assert.False(t, activated, "the set swallows the button activation")

	ui.State.Set(StatePageSpread, 2)
	assert.Same(t, ui.PageSpread.Buttons[1], ui.PageSpread.Selected())
	assert.False(t, ui.PageSpread.Buttons[0].Selected)

	ui.State.Set(StateViewMode, ViewPanel)
	assert.Equal(t, ViewPanel, ui.ViewMode.Selected().Value)
}

func TestNavButtonsBecomeNavigate(t *testing.T) {
	ui, _, _ := newTestReaderInterface(t, &fakeFullscreen{supported: true})

	var dirs []NavDirection
	ui.On.Nav[CompNav] = func(d NavDirection) error {
		dirs = append(dirs, d)
		return errors.New("logged, not propagated")
	}
	var seen []Event
	ui.Events.On(func(ev Event) { seen = append(seen, ev) })

	ui.Nav.Next.Activate()
	ui.Nav.Prev.Activate()
	assert.Equal(t, []NavDirection{NavNext, NavPrev}, dirs)
	require.Len(t, seen, 2)
	assert.Equal(t, EventNavigate, seen[0].Type)
	assert.Equal(t, CompNav, seen[0].Name)
	assert.Same(t, ui.Nav.Component, seen[0].Source)
	assert.Equal(t, "next", NavNext.String())
}

func TestNavButtonsFollowDirectionAndMode(t *testing.T) {
	ui, _, _ := newTestReaderInterface(t, &fakeFullscreen{supported: true})
	assert.Equal(t, "nav-right", ui.Nav.Next.Icon)
	assert.Equal(t, "Next page", ui.Nav.Next.Label)

	m := NewManga()
	m.Direction = RightToLeft
	ui.State.Set(StateManga, m)
	assert.Equal(t, "nav-left", ui.Nav.Next.Icon)
	assert.Equal(t, "nav-right", ui.Nav.Prev.Icon)

	ui.State.Set(StateViewMode, ViewPanel)
	assert.Equal(t, "Next panel", ui.Nav.Next.Label)
	assert.Equal(t, "Previous panel", ui.Nav.Prev.Label)
}

func TestFullscreenButton(t *testing.T) {
	fs := &fakeFullscreen{supported: true}
	ui, _, _ := newTestReaderInterface(t, fs)
	assert.Equal(t, "do-fullscreen", ui.Fullscreen.Icon)
	assert.Equal(t, "Full screen", ui.Fullscreen.Label)
	assert.True(t, ui.Right.Displayed())

	fs.on = true
	ui.RefreshFor(RefreshFullscreenChange)
	assert.Equal(t, "undo-fullscreen", ui.Fullscreen.Icon)
	assert.Equal(t, "Exit full screen", ui.Fullscreen.Label)
}

func TestUnsupportedFullscreenHidesGroup(t *testing.T) {
	fs := &fakeFullscreen{supported: false}
	ui, loop, _ := newTestReaderInterface(t, fs)
	loop.Drain()

	require.Equal(t, []*Component{ui.Fullscreen.Component}, ui.Right.Children())
	assert.Same(t, ui.Right.Component, ui.Fullscreen.Parent())
	assert.False(t, ui.Fullscreen.Supported)
	assert.False(t, ui.Fullscreen.Displayed())
	assert.False(t, ui.Right.Displayed(), "a group with no visible member hides")

	activated := false
	ui.On.Activate[CompFullscreen] = func() error {
		activated = true
		return nil
	}
	ui.Fullscreen.Activate()
	assert.False(t, activated)

	fs.supported = true
	ui.RefreshFor(RefreshFullscreenChange)
	assert.False(t, ui.Fullscreen.Displayed(), "visibility applies on the next drain")
	loop.Drain()
	assert.True(t, ui.Fullscreen.Displayed())
	assert.True(t, ui.Right.Displayed())
}

func TestTitleVisibility(t *testing.T) {
	ui, loop, _ := newTestReaderInterface(t, &fakeFullscreen{supported: true})
	assert.False(t, ui.Title.Displayed())

	ui.State.Set(StateTitle, "Volume 1")
	loop.Drain()
	assert.Equal(t, "Volume 1", ui.Title.Text)
	assert.True(t, ui.Title.Displayed())

	ui.State.Set(StateTitle, "")
	loop.Drain()
	assert.False(t, ui.Title.Displayed())
}

func TestLanguageRefresh(t *testing.T) {
	ui, _, tr := newTestReaderInterface(t, &fakeFullscreen{supported: true})
	tr.OnLanguageChanged.On(func(string) { ui.RefreshFor(RefreshLanguageChange) })

	tr.SetLanguage("ja")
	assert.Equal(t, "見開き表示", ui.PageSpread.Buttons[1].Label)
	assert.Equal(t, "全画面表示", ui.Fullscreen.Label)
	assert.Equal(t, "次のページ", ui.Nav.Next.Label)
}

func TestReaderInterfaceLayout(t *testing.T) {
	ui, _, _ := newTestReaderInterface(t, &fakeFullscreen{supported: true})
	ui.Layout(800, 600)

	for _, b := range ui.Buttons() {
		assert.False(t, b.Bounds.Empty(), b.Name)
		assert.Same(t, b, ui.ButtonAt(b.Bounds.Min.X+1, b.Bounds.Min.Y+1), b.Name)
		assert.True(t, b.Bounds.In(ui.ChromeBounds(800, 600)), b.Name)
	}
	assert.Nil(t, ui.ButtonAt(400, 100))

	s := ui.Slider.Bounds
	assert.True(t, ui.OverSlider(s.Min.X+1, s.Min.Y+1))
	assert.False(t, ui.OverSlider(400, 100))
	assert.True(t, s.In(ui.ChromeBounds(800, 600)))
	assert.Less(t, s.Max.Y, ui.Nav.Bounds.Min.Y)
}
