package fluent

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
)

type (
	// Grammar compiles builders into dialect specific SQL. Compiled SQL uses
	// ? placeholders; Placeholders() tells the connection how to rewrite
	// them for the driver. Compiling never modifies the builder.
	Grammar interface {
		Name() string
		Wrap(value interface{}) string
		Placeholders() squirrel.PlaceholderFormat
		CompileSelect(b *Builder) (string, []interface{}, error)
		CompileAggregate(b *Builder, function string, column interface{}) (string, []interface{}, error)
		CompileExists(b *Builder) (string, []interface{}, error)
		CompileInsert(b *Builder, records []Changes) (string, []interface{}, error)
		CompileInsertOrIgnore(b *Builder, records []Changes) (string, []interface{}, error)
		CompileUpdate(b *Builder, changes Changes) (string, []interface{}, error)
		CompileDelete(b *Builder) (string, []interface{}, error)
	}

	dialect interface {
		name() string
		quote(segment string) string
		date(column string) string
		lock(mode lockMode) string
		insertOrIgnore() (prefix, suffix string)
		placeholders() squirrel.PlaceholderFormat
	}

	grammar struct {
		dialect
	}

	compiler struct {
		g        *grammar
		bindings []interface{}
	}
)

var (
	Postgres Grammar = &grammar{postgresDialect{}}
	MySQL    Grammar = &grammar{mysqlDialect{}}
	SQLite   Grammar = &grammar{sqliteDialect{}}
)

// GrammarFor returns the grammar for a driver name such as "postgres",
// "pgx", "mysql" or "sqlite3". Unknown names get Postgres.
func GrammarFor(driver string) Grammar {
	switch strings.ToLower(driver) {
	case "mysql", "mariadb":
		return MySQL
	case "sqlite", "sqlite3":
		return SQLite
	}
	return Postgres
}

func (g *grammar) Name() string {
	return g.name()
}

func (g *grammar) Placeholders() squirrel.PlaceholderFormat {
	return g.placeholders()
}

// Wrap quotes an identifier such as "products.name" or
// "categories.name as category_name". Expressions are returned verbatim.
func (g *grammar) Wrap(value interface{}) string {
	switch v := value.(type) {
	case Expression:
		return string(v)
	case boundExpression:
		return v.sql
	case string:
		if idx := aliasIndex(v); idx != -1 {
			return g.Wrap(strings.TrimSpace(v[:idx])) + " AS " + g.quoteSegment(strings.TrimSpace(v[idx+4:]))
		}
		segments := strings.Split(v, ".")
		for i := range segments {
			segments[i] = g.quoteSegment(segments[i])
		}
		return strings.Join(segments, ".")
	}
	return ""
}

func (g *grammar) quoteSegment(segment string) string {
	if segment == "*" {
		return segment
	}
	return g.quote(segment)
}

func aliasIndex(column string) int {
	return strings.Index(strings.ToLower(column), " as ")
}

func (g *grammar) newCompiler() *compiler {
	return &compiler{g: g}
}

func (g *grammar) CompileSelect(b *Builder) (string, []interface{}, error) {
	c := g.newCompiler()
	sql := c.selectSQL(b, b.columns)
	return sql, c.bindings, nil
}

// CompileAggregate compiles "SELECT function(column) AS aggregate". Orders,
// limit and offset are dropped. Grouped or distinct queries are aggregated
// through a subquery so that the result counts groups, not rows.
func (g *grammar) CompileAggregate(b *Builder, function string, column interface{}) (string, []interface{}, error) {
	c := g.newCompiler()
	q := b.Clone()
	q.orders = nil
	q.limit = 0
	q.offset = 0
	q.lock = lockNone
	expr := "*"
	if column != nil && column != "*" {
		expr = g.Wrap(column)
	}
	if len(q.groups) > 0 || q.distinct {
		inner := c.selectSQL(q, q.columns)
		if segment := lastSegment(column); expr != "*" && segment != "" {
			expr = g.quote("aggregate_table") + "." + g.quoteSegment(segment)
		}
		return "SELECT " + strings.ToUpper(function) + "(" + expr + ") AS " + g.quote("aggregate") +
			" FROM (" + inner + ") AS " + g.quote("aggregate_table"), c.bindings, nil
	}
	sql := c.selectSQL(q, []interface{}{Expression(strings.ToUpper(function) + "(" + expr + ") AS " + g.quote("aggregate"))})
	return sql, c.bindings, nil
}

// CompileExists compiles "SELECT 1 AS one ... LIMIT 1".
func (g *grammar) CompileExists(b *Builder) (string, []interface{}, error) {
	c := g.newCompiler()
	q := b.Clone()
	q.orders = nil
	q.limit = 1
	q.offset = 0
	sql := c.selectSQL(q, []interface{}{Expression("1 AS one")})
	return sql, c.bindings, nil
}

func (c *compiler) selectSQL(b *Builder, columns []interface{}) string {
	g := c.g
	sql := "SELECT "
	if b.distinct {
		sql += "DISTINCT "
	}
	if len(columns) == 0 {
		sql += "*"
	} else {
		sql += c.columnList(columns)
	}
	sql += " FROM " + g.Wrap(b.table)
	for _, join := range b.joins {
		sql += " " + c.join(join)
	}
	sql += c.wheres(" WHERE ", b.wheres)
	if len(b.groups) > 0 {
		sql += " GROUP BY " + c.columnList(b.groups)
	}
	sql += c.wheres(" HAVING ", b.havings)
	if len(b.orders) > 0 {
		orders := make([]string, len(b.orders))
		for i, o := range b.orders {
			orders[i] = c.value(o.column, true) + " " + strings.ToUpper(o.direction)
		}
		sql += " ORDER BY " + strings.Join(orders, ", ")
	}
	if b.limit > 0 {
		sql += " LIMIT " + strconv.Itoa(b.limit)
	}
	if b.offset > 0 {
		sql += " OFFSET " + strconv.Itoa(b.offset)
	}
	if lock := g.lock(b.lock); lock != "" {
		sql += " " + lock
	}
	return sql
}

func (c *compiler) columnList(columns []interface{}) string {
	out := make([]string, len(columns))
	for i, column := range columns {
		out[i] = c.value(column, true)
	}
	return strings.Join(out, ", ")
}

func (c *compiler) join(j *joinClause) string {
	sql := strings.ToUpper(j.kind) + " JOIN " + c.g.Wrap(j.table)
	if on := c.wheres("", j.clauses); on != "" {
		sql += " ON " + on
	}
	return sql
}

// wheres renders a clause list joined by each clause's connector. The
// connector of the first rendered clause is dropped.
func (c *compiler) wheres(prefix string, clauses []clause) string {
	var out string
	for _, cl := range clauses {
		part := c.clause(cl)
		if part == "" {
			continue
		}
		if out != "" {
			out += " " + strings.ToUpper(cl.connector()) + " "
		}
		out += part
	}
	if out == "" {
		return ""
	}
	return prefix + out
}

func (c *compiler) clause(cl clause) string {
	g := c.g
	switch w := cl.(type) {
	case basicWhere:
		return c.value(w.column, true) + " " + strings.ToUpper(w.operator) + " " + c.value(w.value, false)
	case columnWhere:
		return c.value(w.first, true) + " " + strings.ToUpper(w.operator) + " " + c.value(w.second, true)
	case betweenWhere:
		op := " BETWEEN "
		if w.not {
			op = " NOT BETWEEN "
		}
		return c.value(w.column, true) + op + c.value(w.low, false) + " AND " + c.value(w.high, false)
	case inWhere:
		if len(w.values) == 0 {
			if w.not {
				return "1 = 1"
			}
			return "0 = 1"
		}
		values := make([]string, len(w.values))
		for i, v := range w.values {
			values[i] = c.value(v, false)
		}
		op := " IN ("
		if w.not {
			op = " NOT IN ("
		}
		return c.value(w.column, true) + op + strings.Join(values, ", ") + ")"
	case nullWhere:
		if w.not {
			return c.value(w.column, true) + " IS NOT NULL"
		}
		return c.value(w.column, true) + " IS NULL"
	case dateWhere:
		return g.date(c.value(w.column, true)) + " " + strings.ToUpper(w.operator) + " " + c.value(w.value, false)
	case rawWhere:
		c.bindings = append(c.bindings, w.bindings...)
		return w.sql
	case nestedWhere:
		inner := c.wheres("", w.clauses)
		if inner == "" {
			return ""
		}
		return "(" + inner + ")"
	}
	return ""
}

// value renders an identifier (when identifier is true) or a bound
// parameter. Expressions are always rendered verbatim.
func (c *compiler) value(v interface{}, identifier bool) string {
	switch e := v.(type) {
	case Expression:
		return string(e)
	case boundExpression:
		c.bindings = append(c.bindings, e.bindings...)
		return e.sql
	}
	if identifier {
		if s, ok := v.(string); ok {
			return c.g.Wrap(s)
		}
	}
	c.bindings = append(c.bindings, v)
	return "?"
}

func (g *grammar) CompileInsert(b *Builder, records []Changes) (string, []interface{}, error) {
	return g.compileInsert(b, records, "INSERT INTO", "")
}

func (g *grammar) CompileInsertOrIgnore(b *Builder, records []Changes) (string, []interface{}, error) {
	prefix, suffix := g.insertOrIgnore()
	return g.compileInsert(b, records, prefix, suffix)
}

func (g *grammar) compileInsert(b *Builder, records []Changes, prefix, suffix string) (string, []interface{}, error) {
	if len(records) == 0 {
		return "", nil, invalidArgument("insert requires at least one record")
	}
	columns := sortedColumns(records[0])
	if len(columns) == 0 {
		return "", nil, invalidArgument("insert requires at least one column")
	}
	c := g.newCompiler()
	wrapped := make([]string, len(columns))
	for i, column := range columns {
		wrapped[i] = g.Wrap(column)
	}
	tuples := make([]string, len(records))
	for i, record := range records {
		if len(record) != len(columns) {
			return "", nil, invalidArgument("record %d has %d columns, want %d", i, len(record), len(columns))
		}
		values := make([]string, len(columns))
		for j, column := range columns {
			v, ok := record[column]
			if !ok {
				return "", nil, invalidArgument("record %d is missing column %q", i, column)
			}
			values[j] = c.value(v, false)
		}
		tuples[i] = "(" + strings.Join(values, ", ") + ")"
	}
	sql := prefix + " " + g.Wrap(b.table) + " (" + strings.Join(wrapped, ", ") + ") VALUES " + strings.Join(tuples, ", ") + suffix
	return sql, c.bindings, nil
}

func (g *grammar) CompileUpdate(b *Builder, changes Changes) (string, []interface{}, error) {
	if len(changes) == 0 {
		return "", nil, invalidArgument("update requires at least one column")
	}
	if len(b.joins) > 0 {
		return "", nil, invalidArgument("update with joins is not supported")
	}
	c := g.newCompiler()
	columns := sortedColumns(changes)
	sets := make([]string, len(columns))
	for i, column := range columns {
		sets[i] = g.Wrap(column) + " = " + c.value(changes[column], false)
	}
	sql := "UPDATE " + g.Wrap(b.table) + " SET " + strings.Join(sets, ", ") + c.wheres(" WHERE ", b.wheres)
	return sql, c.bindings, nil
}

func (g *grammar) CompileDelete(b *Builder) (string, []interface{}, error) {
	if len(b.joins) > 0 {
		return "", nil, invalidArgument("delete with joins is not supported")
	}
	c := g.newCompiler()
	sql := "DELETE FROM " + g.Wrap(b.table) + c.wheres(" WHERE ", b.wheres)
	return sql, c.bindings, nil
}

func sortedColumns(changes Changes) []string {
	columns := make([]string, 0, len(changes))
	for column := range changes {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// lastSegment returns the key a column is returned under in a row:
// "products.id" is "id" and "name as category_name" is "category_name".
func lastSegment(column interface{}) string {
	s, ok := column.(string)
	if !ok {
		return ""
	}
	if idx := aliasIndex(s); idx != -1 {
		return strings.TrimSpace(s[idx+4:])
	}
	if idx := strings.LastIndex(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}
