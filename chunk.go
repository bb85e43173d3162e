package fluent

import (
	"context"
)

// Chunk fetches the rows in windows of size rows using limit and offset and
// calls fn with each window, until a window is shorter than size or fn
// returns false. The query must have an OrderBy so that windows do not
// overlap.
//
//	err := conn.Table("categories").OrderBy("id").Chunk(10, func(rows []fluent.Row) bool {
//		for _, row := range rows {
//			fmt.Println(row["id"])
//		}
//		return true
//	})
func (b *Builder) Chunk(size int, fn func([]Row) bool) error {
	return b.ChunkCtx(b.context(), size, fn)
}

// ChunkCtx is like Chunk but uses the given context.
func (b *Builder) ChunkCtx(ctx context.Context, size int, fn func([]Row) bool) error {
	if b.err != nil {
		return b.err
	}
	if size < 1 {
		return invalidArgument("chunk size must be positive, got %d", size)
	}
	if len(b.orders) == 0 {
		return invalidArgument("chunk requires an order by clause")
	}
	for page := 1; ; page++ {
		rows, err := b.Clone().ForPage(page, size).GetCtx(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 || !fn(rows) || len(rows) < size {
			return nil
		}
	}
}

// ChunkByID is like Chunk but pages with "column > last value" instead of
// an offset, ordered by column ascending. Column values must be unique.
func (b *Builder) ChunkByID(size int, column string, fn func([]Row) bool) error {
	return b.ChunkByIDCtx(b.context(), size, column, fn)
}

// ChunkByIDCtx is like ChunkByID but uses the given context.
func (b *Builder) ChunkByIDCtx(ctx context.Context, size int, column string, fn func([]Row) bool) error {
	if b.err != nil {
		return b.err
	}
	if size < 1 {
		return invalidArgument("chunk size must be positive, got %d", size)
	}
	var last interface{}
	for {
		rows, err := b.keysetWindow(column, last, size).GetCtx(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 || !fn(rows) || len(rows) < size {
			return nil
		}
		last = rows[len(rows)-1][lastSegment(column)]
	}
}

func (b *Builder) keysetWindow(column string, last interface{}, size int) *Builder {
	q := b.Clone()
	q.orders = nil
	q.offset = 0
	if last != nil {
		q.groupWheres()
		q.Where(column, ">", last)
	}
	return q.OrderBy(column).Limit(size)
}

// LazyCursor yields rows one by one, fetching the next window of rows only
// when the current one is exhausted. It cannot be rewound; call Lazy again
// to start over.
//
//	lazy := conn.Table("categories").OrderBy("id").Lazy(100)
//	defer lazy.Close()
//	for lazy.Next() {
//		fmt.Println(lazy.Row()["id"])
//	}
//	if err := lazy.Err(); err != nil {
//		return err
//	}
type LazyCursor struct {
	ctx    context.Context
	fetch  func(ctx context.Context, last Row) ([]Row, error)
	size   int
	window []Row
	pos    int
	row    Row
	done   bool
	taken  int
	limit  int
	err    error
}

// Lazy returns a LazyCursor over offset windows of size rows. The query
// must have an OrderBy.
func (b *Builder) Lazy(size int) *LazyCursor {
	return b.LazyCtx(b.context(), size)
}

// LazyCtx is like Lazy but uses the given context.
func (b *Builder) LazyCtx(ctx context.Context, size int) *LazyCursor {
	l := &LazyCursor{ctx: ctx, size: size}
	switch {
	case b.err != nil:
		l.err = b.err
	case size < 1:
		l.err = invalidArgument("lazy window size must be positive, got %d", size)
	case len(b.orders) == 0:
		l.err = invalidArgument("lazy requires an order by clause")
	}
	q := b.Clone()
	page := 0
	l.fetch = func(ctx context.Context, _ Row) ([]Row, error) {
		page++
		return q.Clone().ForPage(page, size).GetCtx(ctx)
	}
	return l
}

// LazyByID is like Lazy but pages with "column > last value", ordered by
// column ascending.
func (b *Builder) LazyByID(size int, column string) *LazyCursor {
	return b.LazyByIDCtx(b.context(), size, column)
}

// LazyByIDCtx is like LazyByID but uses the given context.
func (b *Builder) LazyByIDCtx(ctx context.Context, size int, column string) *LazyCursor {
	l := &LazyCursor{ctx: ctx, size: size}
	switch {
	case b.err != nil:
		l.err = b.err
	case size < 1:
		l.err = invalidArgument("lazy window size must be positive, got %d", size)
	}
	q := b.Clone()
	key := lastSegment(column)
	l.fetch = func(ctx context.Context, last Row) ([]Row, error) {
		var v interface{}
		if last != nil {
			v = last[key]
		}
		return q.keysetWindow(column, v, size).GetCtx(ctx)
	}
	return l
}

// Take limits the cursor to at most n more rows.
func (l *LazyCursor) Take(n int) *LazyCursor {
	l.limit = l.taken + n
	return l
}

// Next advances to the next row.
func (l *LazyCursor) Next() bool {
	if l.err != nil || l.done {
		return false
	}
	if l.limit > 0 && l.taken >= l.limit {
		l.done = true
		return false
	}
	if l.pos >= len(l.window) {
		if l.window != nil && len(l.window) < l.size {
			l.done = true
			return false
		}
		var last Row
		if len(l.window) > 0 {
			last = l.window[len(l.window)-1]
		}
		l.window, l.err = l.fetch(l.ctx, last)
		l.pos = 0
		if l.err != nil || len(l.window) == 0 {
			l.done = true
			return false
		}
	}
	l.row = l.window[l.pos]
	l.pos++
	l.taken++
	return true
}

// Row returns the current row.
func (l *LazyCursor) Row() Row {
	return l.row
}

// Err returns the error, if any, that was encountered during iteration.
func (l *LazyCursor) Err() error {
	return l.err
}

// Close stops the iteration. Windows are read completely, so there is no
// open result set to release.
func (l *LazyCursor) Close() error {
	l.done = true
	l.window = nil
	return nil
}

// Cursor executes the query and streams its rows from a single result set.
// The returned cursor must be closed.
func (b *Builder) Cursor() (*RowCursor, error) {
	return b.CursorCtx(b.context())
}

// CursorCtx is like Cursor but uses the given context.
func (b *Builder) CursorCtx(ctx context.Context) (*RowCursor, error) {
	if b.err != nil {
		return nil, b.err
	}
	sql, args, err := b.grammar().CompileSelect(b)
	if err != nil {
		return nil, err
	}
	rows, err := b.session.query(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	return newRowCursor(rows)
}
