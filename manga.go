package main

import (
	"errors"
	"fmt"
	"sync"
)

// Contract errors returned by the data model and the performer
var (
	ErrFrozen            = errors.New("manga is frozen")
	ErrPairFull          = errors.New("page pair already holds two pages")
	ErrInvalidPane       = errors.New("pane must be a page or a page pair")
	ErrInvalidViewMode   = errors.New("invalid view mode")
	ErrInvalidPageSpread = errors.New("invalid page spread")
	ErrNoManga           = errors.New("no manga is playing")
)

// Direction is the reading direction of a manga
type Direction int

const (
	LeftToRight Direction = iota // Western style
	RightToLeft                  // Japanese manga style
)

func (d Direction) String() string {
	if d == RightToLeft {
		return "rtl"
	}
	return "ltr"
}

// ParseDirection accepts "ltr" or "rtl"
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "ltr":
		return LeftToRight, nil
	case "rtl":
		return RightToLeft, nil
	default:
		return LeftToRight, fmt.Errorf("unknown reading direction %q", s)
	}
}

const defaultThumbHeight = 200

// Spread is one navigable unit of a manga: a single Page or a PagePair.
// The set of implementations is closed.
type Spread interface {
	Pages() []*Page
	Index() int
	ListLen() int
	PrevSpread() Spread
	NextSpread() Spread
	spread()
}

// Page is one page of a manga. Links are filled in by Manga.Freeze.
type Page struct {
	Src   string
	Thumb string
	Num   *int

	idx  int
	list *PageList
	pair *PagePair
	prev *Page
	next *Page
}

// NewPage creates a page with a source image and an optional thumbnail
func NewPage(src, thumb string) *Page {
	return &Page{Src: src, Thumb: thumb, idx: -1}
}

func (p *Page) Index() int      { return p.idx }
func (p *Page) List() *PageList { return p.list }
func (p *Page) Pair() *PagePair { return p.pair }
func (p *Page) Prev() *Page     { return p.prev }
func (p *Page) Next() *Page     { return p.next }
func (p *Page) Pages() []*Page  { return []*Page{p} }
func (p *Page) spread()         {}

func (p *Page) ListLen() int {
	if p.list == nil {
		return 0
	}
	return p.list.Len()
}

func (p *Page) PrevSpread() Spread {
	if p.prev == nil {
		return nil
	}
	return p.prev
}

func (p *Page) NextSpread() Spread {
	if p.next == nil {
		return nil
	}
	return p.next
}

// Label is the display number of the page
func (p *Page) Label() string {
	if p.Num != nil {
		return fmt.Sprint(*p.Num)
	}
	return fmt.Sprint(p.idx + 1)
}

// PageList is the ordered page list of a manga
type PageList struct {
	manga *Manga
	pages []*Page
}

// Add appends a page. Pages can only be added before freeze.
func (l *PageList) Add(p *Page) error {
	if l.manga != nil && l.manga.Frozen() {
		return ErrFrozen
	}
	l.pages = append(l.pages, p)
	return nil
}

func (l *PageList) Len() int { return len(l.pages) }

// At returns the page at i or nil when out of range
func (l *PageList) At(i int) *Page {
	if i < 0 || i >= len(l.pages) {
		return nil
	}
	return l.pages[i]
}

// Constrained returns the page at i clamped into the list
func (l *PageList) Constrained(i int) *Page {
	if len(l.pages) == 0 {
		return nil
	}
	return l.pages[clampIndex(i, len(l.pages))]
}

// All returns a copy of the page slice
func (l *PageList) All() []*Page {
	return append([]*Page(nil), l.pages...)
}

// PagePair is a spread of one or two pages
type PagePair struct {
	pages []*Page

	idx    int
	list   *PagePairList
	prev   *PagePair
	next   *PagePair
	frozen bool
}

// NewPagePair creates a pair holding the given pages
func NewPagePair(pages ...*Page) (*PagePair, error) {
	pp := &PagePair{idx: -1}
	for _, p := range pages {
		if err := pp.Add(p); err != nil {
			return nil, err
		}
	}
	return pp, nil
}

// Add appends a page to the pair; a third page is rejected
func (pp *PagePair) Add(p *Page) error {
	if pp.frozen {
		return ErrFrozen
	}
	if len(pp.pages) >= 2 {
		return ErrPairFull
	}
	pp.pages = append(pp.pages, p)
	return nil
}

func (pp *PagePair) Len() int            { return len(pp.pages) }
func (pp *PagePair) Index() int          { return pp.idx }
func (pp *PagePair) List() *PagePairList { return pp.list }
func (pp *PagePair) Prev() *PagePair     { return pp.prev }
func (pp *PagePair) Next() *PagePair     { return pp.next }
func (pp *PagePair) spread()             {}

func (pp *PagePair) Pages() []*Page {
	return append([]*Page(nil), pp.pages...)
}

// First returns the first page of the pair in list order
func (pp *PagePair) First() *Page {
	if len(pp.pages) == 0 {
		return nil
	}
	return pp.pages[0]
}

func (pp *PagePair) ListLen() int {
	if pp.list == nil {
		return 0
	}
	return pp.list.Len()
}

func (pp *PagePair) PrevSpread() Spread {
	if pp.prev == nil {
		return nil
	}
	return pp.prev
}

func (pp *PagePair) NextSpread() Spread {
	if pp.next == nil {
		return nil
	}
	return pp.next
}

// PagePairList is the ordered pair list of a manga
type PagePairList struct {
	manga *Manga
	pairs []*PagePair
}

func (l *PagePairList) Add(pp *PagePair) error {
	if l.manga != nil && l.manga.Frozen() {
		return ErrFrozen
	}
	l.pairs = append(l.pairs, pp)
	return nil
}

func (l *PagePairList) Len() int { return len(l.pairs) }

func (l *PagePairList) At(i int) *PagePair {
	if i < 0 || i >= len(l.pairs) {
		return nil
	}
	return l.pairs[i]
}

func (l *PagePairList) Constrained(i int) *PagePair {
	if len(l.pairs) == 0 {
		return nil
	}
	return l.pairs[clampIndex(i, len(l.pairs))]
}

// Manga is the aggregate root describing one document
type Manga struct {
	Direction   Direction
	Title       string
	ThumbHeight int
	Pages       *PageList
	Pairs       *PagePairList

	mu        sync.Mutex
	frozen    bool
	preloader *Preloader
}

// NewManga creates an empty, unfrozen manga
func NewManga() *Manga {
	m := &Manga{ThumbHeight: defaultThumbHeight}
	m.Pages = &PageList{manga: m}
	m.Pairs = &PagePairList{manga: m}
	return m
}

func (m *Manga) Frozen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frozen
}

func (m *Manga) RTL() bool { return m.Direction == RightToLeft }

// Freeze links every page and pair and makes the manga read-only.
// Calling it again is a no-op.
func (m *Manga) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return
	}

	var prevPage *Page
	for i, p := range m.Pages.pages {
		p.idx = i
		p.list = m.Pages
		p.prev = prevPage
		p.next = nil
		if prevPage != nil {
			prevPage.next = p
		}
		prevPage = p
	}

	var prevPair *PagePair
	for i, pp := range m.Pairs.pairs {
		pp.idx = i
		pp.list = m.Pairs
		pp.prev = prevPair
		pp.next = nil
		pp.frozen = true
		if prevPair != nil {
			prevPair.next = pp
		}
		prevPair = pp
		for _, p := range pp.pages {
			p.pair = pp
		}
	}

	if m.ThumbHeight <= 0 {
		m.ThumbHeight = defaultThumbHeight
	}
	m.frozen = true
}

// Preloader returns the manga's preloader, creating it on first use
func (m *Manga) Preloader(opts PreloaderOptions) *Preloader {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.preloader == nil {
		m.preloader = NewPreloader(m, opts)
	}
	return m.preloader
}

// PairPages groups pages into spreads. The first leadingSingles pages
// stand alone (covers), the rest are paired in order and a trailing odd
// page becomes a single pair.
func PairPages(pages []*Page, leadingSingles int) []*PagePair {
	if leadingSingles < 0 {
		leadingSingles = 0
	}
	var pairs []*PagePair
	for i := 0; i < len(pages); {
		n := 2
		if i < leadingSingles || i == len(pages)-1 {
			n = 1
		}
		pp := &PagePair{idx: -1, pages: append([]*Page(nil), pages[i:i+n]...)}
		pairs = append(pairs, pp)
		i += n
	}
	return pairs
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
