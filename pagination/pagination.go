// Package pagination computes page windows and page metadata. It does no I/O.
//
// Page indexes are zero-based everywhere except in Links, which produces the
// 1-based numbers shown to people.
package pagination

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/aquilax/inquiryboard/inquiry"
)

var ErrInvalidPageSize = fmt.Errorf("%w: page size must be positive", inquiry.ErrInvalidArgument)

// Window is the (offset, limit) slice of a newest-first listing.
type Window struct {
	Offset int
	Limit  int
}

// clampIndex keeps pageIndex*pageSize+pageSize representable. An index past
// the cap still lands far beyond any listing, so its page stays empty.
func clampIndex(pageIndex, pageSize int) int {
	if pageIndex < 0 {
		return 0
	}
	if last := (math.MaxInt - pageSize) / pageSize; pageIndex > last {
		return last
	}
	return pageIndex
}

// NewWindow clamps a negative pageIndex to 0.
func NewWindow(pageIndex, pageSize int) (Window, error) {
	if pageSize <= 0 {
		return Window{}, ErrInvalidPageSize
	}
	pageIndex = clampIndex(pageIndex, pageSize)
	return Window{Offset: pageIndex * pageSize, Limit: pageSize}, nil
}

// Bounds clips the window to a slice of length n.
func (w Window) Bounds(n int) (start, end int) {
	start = w.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end = n
	if w.Limit < n-start {
		end = start + w.Limit
	}
	if end < start {
		end = start
	}
	return start, end
}

type Pager struct {
	PageIndex  int
	PageSize   int
	TotalItems int
	TotalPages int
	InRange    bool
	HasPrev    bool
	HasNext    bool
	PrevIndex  int
	NextIndex  int
}

// NewPager describes page pageIndex of a listing with total items. An index
// past the last page yields an empty, out of range page rather than an error.
func NewPager(pageIndex, pageSize, total int) (Pager, error) {
	if pageSize <= 0 {
		return Pager{}, ErrInvalidPageSize
	}
	pageIndex = clampIndex(pageIndex, pageSize)
	if total < 0 {
		total = 0
	}
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	p := Pager{
		PageIndex:  pageIndex,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
		InRange:    pageIndex < totalPages,
		HasPrev:    pageIndex > 0 && totalPages > 0,
		HasNext:    pageIndex+1 < totalPages,
	}
	p.PrevIndex = pageIndex - 1
	if p.PrevIndex >= totalPages {
		p.PrevIndex = totalPages - 1
	}
	if p.PrevIndex < 0 {
		p.PrevIndex = 0
	}
	p.NextIndex = pageIndex + 1
	if !p.HasNext {
		p.NextIndex = pageIndex
	}
	return p, nil
}

func (p Pager) Window() Window {
	return Window{Offset: p.PageIndex * p.PageSize, Limit: p.PageSize}
}

type Page struct {
	Num int
	URL string
}

type Pages []Page

// Links lists every page of p with a link built from baseURL and the query
// parameter param. The current page has no URL. Nothing is returned when the
// listing fits on a single page.
func Links(p Pager, baseURL, param string) Pages {
	if p.TotalPages <= 1 {
		return make(Pages, 0)
	}
	pages := make(Pages, p.TotalPages)
	pURL, err := url.Parse(baseURL)
	if err != nil {
		pURL = &url.URL{}
	}
	val := pURL.Query()
	for i := 1; i <= p.TotalPages; i++ {
		tURL := ""
		if i != p.PageIndex+1 {
			val.Set(param, strconv.Itoa(i))
			pURL.RawQuery = val.Encode()
			tURL = pURL.String()
		}
		pages[i-1] = Page{i, tURL}
	}
	return pages
}
