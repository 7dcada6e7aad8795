package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestManga builds a frozen manga with n pages named p0..pn-1, paired
// with the given number of leading singles.
func newTestManga(t *testing.T, n, leadingSingles int) *Manga {
	t.Helper()
	m := NewManga()
	m.Title = "Test"
	pages := make([]*Page, 0, n)
	for i := 0; i < n; i++ {
		p := NewPage("p"+string(rune('0'+i)), "")
		require.NoError(t, m.Pages.Add(p))
		pages = append(pages, p)
	}
	for _, pp := range PairPages(pages, leadingSingles) {
		require.NoError(t, m.Pairs.Add(pp))
	}
	m.Freeze()
	return m
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("rtl")
	require.NoError(t, err)
	assert.Equal(t, RightToLeft, d)
	assert.Equal(t, "rtl", d.String())

	d, err = ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, LeftToRight, d)

	_, err = ParseDirection("ttb")
	assert.Error(t, err)
}

func TestMangaFreezeLinksPages(t *testing.T) {
	m := newTestManga(t, 4, 1)

	pages := m.Pages.All()
	require.Len(t, pages, 4)
	for i, p := range pages {
		assert.Equal(t, i, p.Index())
		assert.Equal(t, m.Pages, p.List())
		assert.Equal(t, 4, p.ListLen())
		assert.NotNil(t, p.Pair(), "page %d has a pair", i)
	}
	assert.Nil(t, pages[0].Prev())
	assert.Nil(t, pages[0].PrevSpread())
	assert.Equal(t, pages[1], pages[0].Next())
	assert.Equal(t, pages[2], pages[3].Prev())
	assert.Nil(t, pages[3].NextSpread())

	// 1 single cover, then [1,2], then [3]
	require.Equal(t, 3, m.Pairs.Len())
	assert.Equal(t, []*Page{pages[0]}, m.Pairs.At(0).Pages())
	assert.Equal(t, []*Page{pages[1], pages[2]}, m.Pairs.At(1).Pages())
	assert.Equal(t, []*Page{pages[3]}, m.Pairs.At(2).Pages())
	assert.Equal(t, m.Pairs.At(1), pages[2].Pair())
	assert.Equal(t, m.Pairs.At(1), m.Pairs.At(0).NextSpread())
	assert.Equal(t, 3, m.Pairs.At(2).ListLen())
	assert.Equal(t, pages[1], m.Pairs.At(1).First())
}

func TestMangaFreezeIsFinal(t *testing.T) {
	m := newTestManga(t, 2, 0)
	assert.True(t, m.Frozen())

	assert.ErrorIs(t, m.Pages.Add(NewPage("late", "")), ErrFrozen)
	pp, err := NewPagePair()
	require.NoError(t, err)
	assert.ErrorIs(t, m.Pairs.Add(pp), ErrFrozen)
	assert.ErrorIs(t, m.Pairs.At(0).Add(NewPage("late", "")), ErrFrozen)

	// freezing twice keeps the links
	m.Freeze()
	assert.Equal(t, 1, m.Pages.At(1).Index())
}

func TestMangaFreezeDefaultsThumbHeight(t *testing.T) {
	m := NewManga()
	m.ThumbHeight = 0
	m.Freeze()
	assert.Equal(t, defaultThumbHeight, m.ThumbHeight)
}

func TestPagePairHoldsTwoPages(t *testing.T) {
	pp, err := NewPagePair(NewPage("a", ""), NewPage("b", ""))
	require.NoError(t, err)
	assert.Equal(t, 2, pp.Len())
	assert.ErrorIs(t, pp.Add(NewPage("c", "")), ErrPairFull)

	_, err = NewPagePair(NewPage("a", ""), NewPage("b", ""), NewPage("c", ""))
	assert.ErrorIs(t, err, ErrPairFull)

	empty, err := NewPagePair()
	require.NoError(t, err)
	assert.Nil(t, empty.First())
}

func TestPageListLookup(t *testing.T) {
	m := newTestManga(t, 3, 0)

	assert.Nil(t, m.Pages.At(-1))
	assert.Nil(t, m.Pages.At(3))
	assert.Equal(t, m.Pages.At(0), m.Pages.Constrained(-5))
	assert.Equal(t, m.Pages.At(2), m.Pages.Constrained(99))
	assert.Equal(t, m.Pairs.At(1), m.Pairs.Constrained(7))

	assert.Nil(t, NewManga().Pages.Constrained(0))
	assert.Nil(t, NewManga().Pairs.Constrained(0))
}

func TestPageLabel(t *testing.T) {
	m := newTestManga(t, 2, 0)
	assert.Equal(t, "1", m.Pages.At(0).Label())

	n := 42
	p := NewPage("x", "")
	p.Num = &n
	assert.Equal(t, "42", p.Label())
}

func TestPairPages(t *testing.T) {
	mk := func(n int) []*Page {
		pages := make([]*Page, n)
		for i := range pages {
			pages[i] = NewPage("", "")
		}
		return pages
	}
	sizes := func(pairs []*PagePair) []int {
		out := make([]int, len(pairs))
		for i, pp := range pairs {
			out[i] = pp.Len()
		}
		return out
	}

	tests := []struct {
		name    string
		pages   int
		singles int
		want    []int
	}{
		{"empty", 0, 1, []int{}},
		{"single page", 1, 0, []int{1}},
		{"even no cover", 4, 0, []int{2, 2}},
		{"odd no cover", 5, 0, []int{2, 2, 1}},
		{"cover", 5, 1, []int{1, 2, 2}},
		{"two leading singles", 4, 2, []int{1, 1, 2}},
		{"negative singles", 2, -3, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sizes(PairPages(mk(tt.pages), tt.singles)))
		})
	}
}

func TestMangaPreloaderIsShared(t *testing.T) {
	m := newTestManga(t, 2, 0)
	loader := newFakeLoader()
	first := m.Preloader(PreloaderOptions{Images: loader})
	second := m.Preloader(PreloaderOptions{Images: loader})
	assert.Same(t, first, second)
	first.Stop()
}
