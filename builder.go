package fluent

import (
	"strings"
)

// Builder is a chainable representation of a single query. Clause methods
// append to the query and return the same builder; nothing is executed
// until a terminal method such as Get, Count, Insert or Update is called.
//
//	rows, err := conn.Table("products").
//		Where("price", ">", 10000).
//		OrderBy("price", "desc").
//		Take(10).
//		Get()
//
// Argument errors (for example a between clause with three bounds) are
// recorded at the call that caused them and returned by the next terminal
// method before any statement is sent.
type Builder struct {
	session  Session
	table    interface{}
	columns  []interface{}
	distinct bool
	joins    []*joinClause
	wheres   []clause
	groups   []interface{}
	havings  []clause
	orders   []orderClause
	limit    int
	offset   int
	lock     lockMode
	err      error
}

func newBuilder(s Session, table interface{}) *Builder {
	return &Builder{session: s, table: table}
}

// Err returns the first argument error recorded on the builder.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Clone returns a copy of the builder which can be modified independently.
func (b *Builder) Clone() *Builder {
	n := *b
	n.columns = append([]interface{}(nil), b.columns...)
	n.joins = append([]*joinClause(nil), b.joins...)
	n.wheres = append([]clause(nil), b.wheres...)
	n.groups = append([]interface{}(nil), b.groups...)
	n.havings = append([]clause(nil), b.havings...)
	n.orders = append([]orderClause(nil), b.orders...)
	return &n
}

// Perform operations on the chain.
func (b *Builder) Tap(funcs ...func(*Builder) *Builder) *Builder {
	for i := range funcs {
		b = funcs[i](b)
	}
	return b
}

// TableName returns the table (or table expression) of the query.
func (b *Builder) TableName() string {
	switch t := b.table.(type) {
	case string:
		return t
	case Expression:
		return string(t)
	}
	return ""
}

func (b *Builder) grammar() Grammar {
	if b.session.conn == nil || b.session.conn.grammar == nil {
		return Postgres
	}
	return b.session.conn.grammar
}

// Select sets the columns to retrieve. Columns are strings such as "id",
// "products.name" or "categories.name as category_name", or expressions
// created by Raw.
func (b *Builder) Select(columns ...interface{}) *Builder {
	b.columns = nil
	return b.AddSelect(columns...)
}

// AddSelect adds columns to the existing select list.
func (b *Builder) AddSelect(columns ...interface{}) *Builder {
	for _, column := range columns {
		switch c := column.(type) {
		case string, Expression, boundExpression:
			b.columns = append(b.columns, c)
		case []string:
			for _, s := range c {
				b.columns = append(b.columns, s)
			}
		default:
			return b.fail(invalidArgument("unsupported column type %T", column))
		}
	}
	return b
}

// Distinct forces the query to return distinct rows.
func (b *Builder) Distinct() *Builder {
	b.distinct = true
	return b
}

// Join adds an inner join: JOIN table ON first operator second.
func (b *Builder) Join(table, first, operator, second string) *Builder {
	return b.join("inner", table, first, operator, second)
}

// LeftJoin adds a left join.
func (b *Builder) LeftJoin(table, first, operator, second string) *Builder {
	return b.join("left", table, first, operator, second)
}

func (b *Builder) join(kind, table, first, operator, second string) *Builder {
	op, ok := normalizeOperator(operator)
	if !ok {
		return b.fail(invalidArgument("unsupported join operator %q", operator))
	}
	b.joins = append(b.joins, &joinClause{
		kind:  kind,
		table: table,
		clauses: []clause{columnWhere{
			whereBase: whereBase{and},
			first:     first,
			operator:  op,
			second:    second,
		}},
	})
	return b
}

// GroupBy adds GROUP BY columns.
func (b *Builder) GroupBy(columns ...interface{}) *Builder {
	b.groups = append(b.groups, columns...)
	return b
}

// Having adds a HAVING condition. The column may be an expression such as
// Raw("count(*)").
func (b *Builder) Having(column interface{}, operator string, value interface{}) *Builder {
	return b.having(and, column, operator, value)
}

// OrHaving is like Having but joined with OR.
func (b *Builder) OrHaving(column interface{}, operator string, value interface{}) *Builder {
	return b.having(or, column, operator, value)
}

// HavingRaw adds a verbatim HAVING condition with ? bindings.
func (b *Builder) HavingRaw(sql string, bindings ...interface{}) *Builder {
	b.havings = append(b.havings, rawWhere{whereBase{and}, sql, bindings})
	return b
}

func (b *Builder) having(boolean string, column interface{}, operator string, value interface{}) *Builder {
	op, ok := normalizeOperator(operator)
	if !ok {
		return b.fail(invalidArgument("unsupported operator %q", operator))
	}
	b.havings = append(b.havings, basicWhere{whereBase{boolean}, column, op, value})
	return b
}

// OrderBy appends an ORDER BY column. Earlier calls take precedence, so
// OrderBy("price", "desc").OrderBy("name", "asc") sorts by price first.
// Direction is "asc" (the default when omitted) or "desc".
func (b *Builder) OrderBy(column interface{}, direction ...string) *Builder {
	dir := "asc"
	if len(direction) > 0 && direction[0] != "" {
		dir = strings.ToLower(direction[0])
	}
	if dir != "asc" && dir != "desc" {
		return b.fail(invalidArgument("order direction must be asc or desc, got %q", direction[0]))
	}
	b.orders = append(b.orders, orderClause{column: column, direction: dir})
	return b
}

// OrderByDesc is OrderBy(column, "desc").
func (b *Builder) OrderByDesc(column interface{}) *Builder {
	return b.OrderBy(column, "desc")
}

// Latest orders by column descending, "created_at" by default.
func (b *Builder) Latest(column ...string) *Builder {
	if len(column) == 0 {
		return b.OrderByDesc("created_at")
	}
	return b.OrderByDesc(column[0])
}

// Oldest orders by column ascending, "created_at" by default.
func (b *Builder) Oldest(column ...string) *Builder {
	if len(column) == 0 {
		return b.OrderBy("created_at")
	}
	return b.OrderBy(column[0])
}

// Skip sets the offset. Skip and Offset are equivalent.
func (b *Builder) Skip(n int) *Builder {
	return b.Offset(n)
}

// Offset sets the number of rows to skip.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		n = 0
	}
	b.offset = n
	return b
}

// Take sets the limit. Take and Limit are equivalent.
func (b *Builder) Take(n int) *Builder {
	return b.Limit(n)
}

// Limit sets the maximum number of rows. Zero or less removes the limit.
func (b *Builder) Limit(n int) *Builder {
	if n < 0 {
		n = 0
	}
	b.limit = n
	return b
}

// ForPage sets limit and offset for the given 1-based page.
func (b *Builder) ForPage(page, perPage int) *Builder {
	if page < 1 {
		page = 1
	}
	return b.Offset((page - 1) * perPage).Limit(perPage)
}

// LockForUpdate adds FOR UPDATE. It only has an effect inside a
// transaction; outside of one, the database decides whether the statement
// is an error.
func (b *Builder) LockForUpdate() *Builder {
	b.lock = lockForUpdate
	return b
}

// SharedLock adds FOR SHARE (LOCK IN SHARE MODE on MySQL).
func (b *Builder) SharedLock() *Builder {
	b.lock = lockShared
	return b
}

// ToSQL compiles the SELECT statement with placeholders rewritten for the
// connection's grammar.
func (b *Builder) ToSQL() (string, []interface{}, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	sql, bindings, err := b.grammar().CompileSelect(b)
	if err != nil {
		return "", nil, err
	}
	sql, err = b.grammar().Placeholders().ReplacePlaceholders(sql)
	return sql, bindings, err
}

// String returns the SELECT statement, or an empty string if the query
// cannot be compiled.
func (b *Builder) String() string {
	sql, _, _ := b.ToSQL()
	return sql
}
