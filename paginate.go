package envelope

import (
	"net/http"
	"net/url"
	"strconv"
)

// Pagination is the canonical meta.pagination object.
type Pagination struct {
	CurrentPage int        `json:"current_page" yaml:"current_page"`
	PerPage     int        `json:"per_page" yaml:"per_page"`
	LastPage    int        `json:"last_page" yaml:"last_page"`
	Data        any        `json:"data" yaml:"data"`
	From        *int       `json:"from" yaml:"from"`
	To          *int       `json:"to" yaml:"to"`
	Total       int        `json:"total" yaml:"total"`
	PrevPageURL *string    `json:"prev_page_url" yaml:"prev_page_url"`
	NextPageURL *string    `json:"next_page_url" yaml:"next_page_url"`
	Links       []PageLink `json:"links" yaml:"links"`
}

// PageLink is one entry of a paginator's navigation links. URL is nil for
// links that lead nowhere (the "..." separator, Previous on page 1).
type PageLink struct {
	URL    *string `json:"url" yaml:"url"`
	Label  string  `json:"label" yaml:"label"`
	Active bool    `json:"active" yaml:"active"`
}

// Paginator is implemented by paginated result sets. Pagination().Data
// holds the items of the current page.
type Paginator interface {
	Pagination() Pagination
}

// Link labels.
const (
	LabelPrevious = "« Previous"
	LabelNext     = "Next »"
	LabelGap      = "..."
)

// linksOnEachSide is the number of page links shown around the current page.
const linksOnEachSide = 3

// Page is a length-aware page of items.
type Page[T any] struct {
	Items   []T
	Total   int
	Current int
	PerPage int

	// Path is the base URL for navigation links. Its query string is
	// kept and the page parameter overwritten.
	Path string
}

// NewPage builds a page. current and perPage are clamped to at least 1.
func NewPage[T any](items []T, total, current, perPage int, path string) *Page[T] {
	return &Page[T]{
		Items:   items,
		Total:   max(total, 0),
		Current: max(current, 1),
		PerPage: max(perPage, 1),
		Path:    path,
	}
}

// LastPage returns the number of the last page, at least 1.
func (p Page[T]) LastPage() int {
	return max((p.Total+p.PerPage-1)/p.PerPage, 1)
}

// Pagination implements Paginator for both Page[T] and *Page[T].
func (p Page[T]) Pagination() Pagination {
	items := p.Items
	if items == nil {
		items = []T{}
	}

	last := p.LastPage()
	pg := Pagination{
		CurrentPage: p.Current,
		PerPage:     p.PerPage,
		LastPage:    last,
		Data:        items,
		Total:       p.Total,
		Links:       p.links(last),
	}

	if len(items) > 0 {
		from := (p.Current-1)*p.PerPage + 1
		to := from + len(items) - 1
		pg.From, pg.To = &from, &to
	}
	if p.Current > 1 {
		pg.PrevPageURL = p.pageURL(p.Current - 1)
	}
	if p.Current < last {
		pg.NextPageURL = p.pageURL(p.Current + 1)
	}
	return pg
}

func (p Page[T]) links(last int) []PageLink {
	links := []PageLink{{Label: LabelPrevious}}
	if p.Current > 1 {
		links[0].URL = p.pageURL(p.Current - 1)
	}

	add := func(n int) {
		links = append(links, PageLink{
			URL:    p.pageURL(n),
			Label:  strconv.Itoa(n),
			Active: n == p.Current,
		})
	}

	lo := max(p.Current-linksOnEachSide, 1)
	hi := min(p.Current+linksOnEachSide, last)
	if lo > 1 {
		add(1)
		if lo > 2 {
			links = append(links, PageLink{Label: LabelGap})
		}
	}
	for n := lo; n <= hi; n++ {
		add(n)
	}
	if hi < last {
		if hi < last-1 {
			links = append(links, PageLink{Label: LabelGap})
		}
		add(last)
	}

	next := PageLink{Label: LabelNext}
	if p.Current < last {
		next.URL = p.pageURL(p.Current + 1)
	}
	return append(links, next)
}

func (p Page[T]) pageURL(n int) *string {
	u, err := url.Parse(p.Path)
	if err != nil {
		return nil
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

// PageParams reads the page and per_page query parameters. Missing or
// invalid values fall back to page 1 and defaultPerPage; per_page is capped
// at maxPerPage when maxPerPage > 0.
func PageParams(r *http.Request, defaultPerPage, maxPerPage int) (page, perPage int) {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err = strconv.Atoi(q.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	if maxPerPage > 0 && perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
