package fluent

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
)

type (
	// Cursor holds the order column values of the last item of a page.
	Cursor map[string]interface{}

	// CursorPaginator is one page of a keyset paginated query.
	CursorPaginator struct {
		items      []Row
		perPage    int
		cursor     string
		nextCursor string
	}
)

// Encode returns the cursor as an opaque URL safe token.
func (c Cursor) Encode() string {
	if len(c) == 0 {
		return ""
	}
	b, err := json.Marshal(map[string]interface{}(c))
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token returned by Encode. An empty token is an
// empty cursor.
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, invalidArgument("malformed cursor: %s", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, invalidArgument("malformed cursor: %s", err)
	}
	c := Cursor{}
	for k, v := range raw {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				v = i
			} else if f, err := n.Float64(); err == nil {
				v = f
			} else {
				v = n.String()
			}
		}
		c[k] = v
	}
	return c, nil
}

// CursorPaginate fetches perPage rows after the position encoded in
// cursor, which is empty for the first page. The query must be ordered
// by columns whose combined values are unique; each following page is
// selected with a keyset predicate over all order columns, so no count
// or offset is needed.
//
//	next := ""
//	for {
//		p, err := conn.Table("categories").OrderBy("id").CursorPaginate(10, next)
//		if err != nil {
//			return err
//		}
//		// use p.Items()
//		if next = p.NextCursor(); next == "" {
//			break
//		}
//	}
func (b *Builder) CursorPaginate(perPage int, cursor string) (*CursorPaginator, error) {
	return b.CursorPaginateCtx(b.context(), perPage, cursor)
}

// CursorPaginateCtx is like CursorPaginate but uses the given context.
func (b *Builder) CursorPaginateCtx(ctx context.Context, perPage int, cursor string) (*CursorPaginator, error) {
	if b.err != nil {
		return nil, b.err
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	columns, err := b.orderColumns()
	if err != nil {
		return nil, err
	}
	c, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	q := b.Clone()
	q.offset = 0
	if len(c) > 0 {
		if err := q.afterCursor(c); err != nil {
			return nil, err
		}
	}
	rows, err := q.Limit(perPage + 1).GetCtx(ctx)
	if err != nil {
		return nil, err
	}
	p := &CursorPaginator{perPage: perPage, cursor: cursor}
	if len(rows) > perPage {
		rows = rows[:perPage]
		last := rows[len(rows)-1]
		next := Cursor{}
		for _, column := range columns {
			key := lastSegment(column)
			v, ok := last[key]
			if !ok {
				return nil, invalidArgument("order column %q is not selected", column)
			}
			next[key] = v
		}
		p.nextCursor = next.Encode()
	}
	p.items = rows
	return p, nil
}

func (b *Builder) orderColumns() ([]string, error) {
	if len(b.orders) == 0 {
		return nil, invalidArgument("cursor pagination requires an order by clause")
	}
	columns := make([]string, len(b.orders))
	for i, o := range b.orders {
		s, ok := o.column.(string)
		if !ok {
			return nil, invalidArgument("cursor pagination cannot order by expression %v", o.column)
		}
		columns[i] = s
	}
	return columns, nil
}

// afterCursor adds (a > x) OR (a = x AND b > y) ... over the order columns,
// with < for descending columns.
func (b *Builder) afterCursor(c Cursor) error {
	values := make([]interface{}, len(b.orders))
	for i, o := range b.orders {
		v, ok := c[lastSegment(o.column)]
		if !ok || v == nil {
			return invalidArgument("cursor has no value for order column %v", o.column)
		}
		values[i] = v
	}
	orders := b.orders
	b.groupWheres()
	b.WhereNested(func(g *Builder) {
		for i := range orders {
			i := i
			g.OrWhereNested(func(h *Builder) {
				for j := 0; j < i; j++ {
					h.Where(orders[j].column, "=", values[j])
				}
				op := ">"
				if orders[i].direction == "desc" {
					op = "<"
				}
				h.Where(orders[i].column, op, values[i])
			})
		}
	})
	return b.err
}

// Items returns the rows of the page.
func (p CursorPaginator) Items() []Row {
	return p.items
}

func (p CursorPaginator) PerPage() int {
	return p.perPage
}

// Cursor returns the token the page was fetched with.
func (p CursorPaginator) Cursor() string {
	return p.cursor
}

// NextCursor returns the token of the next page, or "" if this is the last
// page.
func (p CursorPaginator) NextCursor() string {
	return p.nextCursor
}

func (p CursorPaginator) HasMorePages() bool {
	return p.nextCursor != ""
}

func (p CursorPaginator) IsEmpty() bool {
	return len(p.items) == 0
}
