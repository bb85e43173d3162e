package fluent

import (
	"context"
)

// DefaultPerPage is used when Paginate is called with perPage below 1.
const DefaultPerPage = 15

// Paginator is one page of an offset paginated query.
type Paginator struct {
	items       []Row
	total       int64
	perPage     int
	currentPage int
}

// Paginate counts the matching rows, then fetches the given 1-based page.
// A stable OrderBy is needed for pages not to overlap.
//
//	for page := 1; ; page++ {
//		p, err := conn.Table("categories").OrderBy("id").Paginate(10, page)
//		if err != nil || p.IsEmpty() {
//			break
//		}
//	}
func (b *Builder) Paginate(perPage, page int) (*Paginator, error) {
	return b.PaginateCtx(b.context(), perPage, page)
}

// PaginateCtx is like Paginate but uses the given context.
func (b *Builder) PaginateCtx(ctx context.Context, perPage, page int) (*Paginator, error) {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}
	total, err := b.CountCtx(ctx)
	if err != nil {
		return nil, err
	}
	p := &Paginator{
		items:       []Row{},
		total:       total,
		perPage:     perPage,
		currentPage: page,
	}
	if total == 0 {
		return p, nil
	}
	p.items, err = b.Clone().ForPage(page, perPage).GetCtx(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Items returns the rows of the page.
func (p Paginator) Items() []Row {
	return p.items
}

func (p Paginator) CurrentPage() int {
	return p.currentPage
}

func (p Paginator) PerPage() int {
	return p.perPage
}

// Total is the number of matching rows over all pages.
func (p Paginator) Total() int64 {
	return p.total
}

// LastPage is ceil(total / perPage), at least 1.
func (p Paginator) LastPage() int {
	last := int((p.total + int64(p.perPage) - 1) / int64(p.perPage))
	if last < 1 {
		return 1
	}
	return last
}

// IsEmpty reports whether the page has no rows.
func (p Paginator) IsEmpty() bool {
	return len(p.items) == 0
}

func (p Paginator) HasMorePages() bool {
	return p.currentPage < p.LastPage()
}

func (p Paginator) OnFirstPage() bool {
	return p.currentPage <= 1
}

// From is the 1-based position of the first item of the page, 0 if empty.
func (p Paginator) From() int64 {
	if p.IsEmpty() {
		return 0
	}
	return int64(p.currentPage-1)*int64(p.perPage) + 1
}

// To is the position of the last item of the page, 0 if empty.
func (p Paginator) To() int64 {
	if p.IsEmpty() {
		return 0
	}
	return p.From() + int64(len(p.items)) - 1
}
