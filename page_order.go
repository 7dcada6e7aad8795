package main

import (
	"slices"

	"github.com/maruel/natural"
)

// PageOrder decides the order of the pages collected from a directory or
// an archive. A nil less keeps the order the entries were found in.
type PageOrder struct {
	ID   int
	Name string
	less func(a, b string) bool
}

var pageOrders = []PageOrder{
	{ID: SortNatural, Name: "Natural", less: natural.Less},
	{ID: SortSimple, Name: "Simple", less: func(a, b string) bool { return a < b }},
	{ID: SortEntryOrder, Name: "Entry Order"},
}

// PageOrders lists the available orders by ID
func PageOrders() []PageOrder {
	return slices.Clone(pageOrders)
}

// PageOrderFor returns the order configured by sortMethod, natural when unknown
func PageOrderFor(sortMethod int) PageOrder {
	for _, o := range pageOrders {
		if o.ID == sortMethod {
			return o
		}
	}
	return pageOrders[0]
}

// pageKey is what a page sorts by: the entry name inside an archive,
// the path otherwise
func pageKey(ip ImagePath) string {
	if ip.EntryPath != "" {
		return ip.EntryPath
	}
	return ip.Path
}

// Sort returns a sorted copy of images. Equal keys keep their order.
func (o PageOrder) Sort(images []ImagePath) []ImagePath {
	result := slices.Clone(images)
	if o.less == nil {
		return result
	}
	slices.SortStableFunc(result, func(a, b ImagePath) int {
		ka, kb := pageKey(a), pageKey(b)
		switch {
		case o.less(ka, kb):
			return -1
		case o.less(kb, ka):
			return 1
		default:
			return 0
		}
	})
	return result
}
