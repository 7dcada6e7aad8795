package main

import (
	"image"

	"go.uber.org/zap"
)

// Component names of the reader chrome
const (
	CompPageSpread = "pagespread"
	CompViewMode   = "view-mode"
	CompNav        = "nav"
	CompFullscreen = "fullscreen"
	CompSlider     = "slider"
	CompTitle      = "title"
	CompLeft       = "region-left"
	CompRight      = "region-right"
)

// Layout metrics in pixels
const (
	navButtonSize    = 40
	buttonSize       = 34
	buttonGap        = 4
	groupGap         = 12
	chromeMargin     = 8
	sliderHeight     = 12
	sliderTrackInset = 16
	titleHeight      = 32
)

// ReaderInterface is the reader chrome: spread and view mode switches,
// prev/next, fullscreen, the page slider and the title.
type ReaderInterface struct {
	*Interface

	PageSpread *StateSet
	ViewMode   *StateSet
	Nav        *NavButtons
	Fullscreen *Button
	Slider     *PaneSlider
	Title      *Title

	Left  *ButtonGroup
	Right *ButtonGroup
}

// NewReaderInterface builds and registers the reader components
func NewReaderInterface(loop *Loop, tr *I18n, fs Fullscreen, logger *zap.Logger) (*ReaderInterface, error) {
	r := &ReaderInterface{Interface: NewInterface(loop, logger)}
	t := func(key string) func(StateView) string {
		return func(StateView) string { return tr.T(key) }
	}
	langOnly := []string{RefreshLanguageChange}

	r.PageSpread = NewStateSet(CompPageSpread, StatePageSpread,
		NewButton(ButtonOptions{Name: "pagespread-1", Value: 1, Icon: Static("1-page-spread"), Label: t("button.spread.1"), RefreshOn: langOnly}),
		NewButton(ButtonOptions{Name: "pagespread-2", Value: 2, Icon: Static("2-page-spread"), Label: t("button.spread.2"), RefreshOn: langOnly}),
	)

	r.ViewMode = NewStateSet(CompViewMode, StateViewMode,
		NewButton(ButtonOptions{Name: "view-pagefit", Value: ViewPageFit, Icon: Static("fullpage-view"), Label: t("button.view.page"), RefreshOn: langOnly}),
		NewButton(ButtonOptions{Name: "view-pagewidth", Value: ViewPageWidth, Icon: Static("pagewidth-view"), Label: t("button.view.width"), RefreshOn: langOnly}),
		NewButton(ButtonOptions{Name: "view-panel", Value: ViewPanel, Icon: Static("panel-view"), Label: t("button.view.panel"), RefreshOn: langOnly}),
	)

	navUses := []string{StateManga, StateViewMode}
	r.Nav = NewNavButtons(CompNav,
		NewButton(ButtonOptions{
			Name:      "prev",
			Uses:      navUses,
			RefreshOn: langOnly,
			Icon:      func(s StateView) string { return pick(isRTL(s), "nav-right", "nav-left") },
			Label: func(s StateView) string {
				return tr.T(pick(s[StateViewMode] == ViewPanel, "button.panel.prev", "button.page.prev"))
			},
		}),
		NewButton(ButtonOptions{
			Name:      "next",
			Uses:      navUses,
			RefreshOn: langOnly,
			Icon:      func(s StateView) string { return pick(isRTL(s), "nav-left", "nav-right") },
			Label: func(s StateView) string {
				return tr.T(pick(s[StateViewMode] == ViewPanel, "button.panel.next", "button.page.next"))
			},
		}),
	)

	r.Fullscreen = NewButton(ButtonOptions{
		Name:      CompFullscreen,
		RefreshOn: []string{RefreshFullscreenChange, RefreshLanguageChange},
		Icon:      func(StateView) string { return pick(fs.Check(), "undo-fullscreen", "do-fullscreen") },
		Label: func(StateView) string {
			return tr.T(pick(fs.Check(), "button.fullscreen.exit", "button.fullscreen.enter"))
		},
		Support: func(StateView) bool { return fs.Supported() },
	})

	r.Slider = NewPaneSlider(CompSlider)
	r.Title = NewTitle(CompTitle)

	r.Left = NewButtonGroup(CompLeft, r.PageSpread.Component, r.ViewMode.Component)
	r.Right = NewButtonGroup(CompRight, r.Fullscreen.Component)

	for _, root := range []*Component{r.Left.Component, r.Nav.Component, r.Right.Component, r.Slider.Component, r.Title.Component} {
		if err := r.registerTree(root); err != nil {
			return nil, err
		}
	}
	r.RefreshAll()
	return r, nil
}

func isRTL(s StateView) bool {
	m, ok := s[StateManga].(*Manga)
	return ok && m != nil && m.RTL()
}

func pick[T any](cond bool, yes, no T) T {
	if cond {
		return yes
	}
	return no
}

// Buttons returns every button in drawing order
func (r *ReaderInterface) Buttons() []*Button {
	buttons := append([]*Button(nil), r.PageSpread.Buttons...)
	buttons = append(buttons, r.ViewMode.Buttons...)
	buttons = append(buttons, r.Nav.Prev, r.Nav.Next, r.Fullscreen)
	return buttons
}

// Layout assigns bounds to every component for a w x h window. Buttons sit
// in a bar along the bottom edge with the slider above them.
func (r *ReaderInterface) Layout(w, h int) {
	barY := h - chromeMargin - navButtonSize

	x := chromeMargin
	for i, set := range []*StateSet{r.PageSpread, r.ViewMode} {
		if i > 0 {
			x += groupGap - buttonGap
		}
		start := x
		for _, b := range set.Buttons {
			if !b.Displayed() {
				continue
			}
			b.Bounds = image.Rect(x, barY+navButtonSize-buttonSize, x+buttonSize, barY+navButtonSize)
			x += buttonSize + buttonGap
		}
		set.Bounds = image.Rect(start, barY, x-buttonGap, barY+navButtonSize)
	}
	r.Left.Bounds = image.Rect(chromeMargin, barY, max(x-buttonGap, chromeMargin), barY+navButtonSize)

	navW := 2*navButtonSize + buttonGap
	navX := w/2 - navW/2
	r.Nav.Prev.Bounds = image.Rect(navX, barY, navX+navButtonSize, barY+navButtonSize)
	r.Nav.Next.Bounds = image.Rect(navX+navButtonSize+buttonGap, barY, navX+navW, barY+navButtonSize)
	r.Nav.Bounds = image.Rect(navX, barY, navX+navW, barY+navButtonSize)

	rx := w - chromeMargin - buttonSize
	r.Fullscreen.Bounds = image.Rect(rx, barY+navButtonSize-buttonSize, rx+buttonSize, barY+navButtonSize)
	r.Right.Bounds = r.Fullscreen.Bounds

	sliderY := barY - groupGap - sliderHeight
	r.Slider.Bounds = image.Rect(sliderTrackInset, sliderY, w-sliderTrackInset, sliderY+sliderHeight)

	r.Title.Bounds = image.Rect(0, 0, w, titleHeight)
}

// ButtonAt returns the visible button under (x, y)
func (r *ReaderInterface) ButtonAt(x, y int) *Button {
	pt := image.Pt(x, y)
	for _, b := range r.Buttons() {
		if b.Displayed() && pt.In(b.Bounds) {
			return b
		}
	}
	return nil
}

// OverSlider reports whether (x, y) hits the slider, with some slack
func (r *ReaderInterface) OverSlider(x, y int) bool {
	return image.Pt(x, y).In(r.Slider.Bounds.Inset(-chromeMargin))
}

// ChromeBounds covers the whole bottom bar including the slider
func (r *ReaderInterface) ChromeBounds(w, h int) image.Rectangle {
	return image.Rect(0, r.Slider.Bounds.Min.Y-chromeMargin, w, h)
}
