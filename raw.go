package fluent

import (
	"context"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
)

// Select runs a raw SELECT statement. Bindings are positional values for ?
// placeholders, or a single Named map for :name placeholders:
//
//	conn.Select("SELECT * FROM categories WHERE id = ?", "GADGET")
//	conn.Select("SELECT * FROM categories WHERE id = :id", fluent.Named{"id": "GADGET"})
func (s Session) Select(sql string, bindings ...interface{}) ([]Row, error) {
	return s.SelectCtx(s.context(), sql, bindings...)
}

// SelectCtx is like Select but uses the given context.
func (s Session) SelectCtx(ctx context.Context, sql string, bindings ...interface{}) ([]Row, error) {
	sql, args, err := s.resolve(sql, bindings)
	if err != nil {
		return nil, err
	}
	return s.queryRows(ctx, sql, args)
}

// MustSelect is like Select but panics if query operation fails.
func (s Session) MustSelect(sql string, bindings ...interface{}) []Row {
	rows, err := s.Select(sql, bindings...)
	if err != nil {
		panic(err)
	}
	return rows
}

// SelectOne returns the first row of a raw SELECT statement, or ErrNoRows.
func (s Session) SelectOne(sql string, bindings ...interface{}) (Row, error) {
	return s.SelectOneCtx(s.context(), sql, bindings...)
}

// SelectOneCtx is like SelectOne but uses the given context.
func (s Session) SelectOneCtx(ctx context.Context, sql string, bindings ...interface{}) (Row, error) {
	rows, err := s.SelectCtx(ctx, sql, bindings...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// Insert runs a raw INSERT statement.
func (s Session) Insert(sql string, bindings ...interface{}) error {
	return s.InsertCtx(s.context(), sql, bindings...)
}

// InsertCtx is like Insert but uses the given context.
func (s Session) InsertCtx(ctx context.Context, sql string, bindings ...interface{}) error {
	_, err := s.AffectingCtx(ctx, sql, bindings...)
	return err
}

// Update runs a raw UPDATE statement and returns the number of affected
// rows.
func (s Session) Update(sql string, bindings ...interface{}) (int64, error) {
	return s.AffectingCtx(s.context(), sql, bindings...)
}

// UpdateCtx is like Update but uses the given context.
func (s Session) UpdateCtx(ctx context.Context, sql string, bindings ...interface{}) (int64, error) {
	return s.AffectingCtx(ctx, sql, bindings...)
}

// Delete runs a raw DELETE statement and returns the number of affected
// rows.
func (s Session) Delete(sql string, bindings ...interface{}) (int64, error) {
	return s.AffectingCtx(s.context(), sql, bindings...)
}

// DeleteCtx is like Delete but uses the given context.
func (s Session) DeleteCtx(ctx context.Context, sql string, bindings ...interface{}) (int64, error) {
	return s.AffectingCtx(ctx, sql, bindings...)
}

// Statement runs any raw statement, such as DDL.
func (s Session) Statement(sql string, bindings ...interface{}) error {
	return s.StatementCtx(s.context(), sql, bindings...)
}

// StatementCtx is like Statement but uses the given context.
func (s Session) StatementCtx(ctx context.Context, sql string, bindings ...interface{}) error {
	_, err := s.AffectingCtx(ctx, sql, bindings...)
	return err
}

// MustStatement is like Statement but panics if the statement fails.
func (s Session) MustStatement(sql string, bindings ...interface{}) {
	if err := s.Statement(sql, bindings...); err != nil {
		panic(err)
	}
}

// Affecting runs a raw statement and returns the number of affected rows.
func (s Session) Affecting(sql string, bindings ...interface{}) (int64, error) {
	return s.AffectingCtx(s.context(), sql, bindings...)
}

// AffectingCtx is like Affecting but uses the given context.
func (s Session) AffectingCtx(ctx context.Context, sql string, bindings ...interface{}) (int64, error) {
	sql, args, err := s.resolve(sql, bindings)
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, sql, args)
}

func (s Session) resolve(sql string, bindings []interface{}) (string, []interface{}, error) {
	escapes := s.conn != nil && s.conn.grammar != nil && s.conn.grammar.Placeholders() == squirrel.Dollar
	return resolveBindings(sql, bindings, escapes)
}

// resolveBindings checks a raw statement against its bindings. A single
// Named (or map[string]interface{}) argument switches to :name
// placeholders, which are rewritten to ? in order of appearance. Text
// inside quotes and :: casts is skipped. When escapes is true, ?? is a
// literal question mark and is left for the placeholder format to unescape,
// and every ? inside quotes is doubled so that the format leaves it as is.
func resolveBindings(sql string, bindings []interface{}, escapes bool) (string, []interface{}, error) {
	sql, args, err := checkBindings(sql, bindings, escapes)
	if err != nil || !escapes {
		return sql, args, err
	}
	return escapeQuotedMarks(sql), args, nil
}

func checkBindings(sql string, bindings []interface{}, escapes bool) (string, []interface{}, error) {
	var named Named
	if len(bindings) == 1 {
		switch n := bindings[0].(type) {
		case Named:
			named = n
		case map[string]interface{}:
			named = Named(n)
		}
	}
	tokens := scanPlaceholders(sql, escapes)
	var positional, names int
	for _, t := range tokens {
		if t.name == "" {
			positional++
		} else {
			names++
		}
	}
	if named == nil {
		if names > 0 && len(bindings) > 0 {
			return "", nil, invalidArgument("named placeholder :%s used with positional bindings", firstName(tokens))
		}
		if names > 0 {
			return "", nil, invalidArgument("missing value for named placeholder :%s", firstName(tokens))
		}
		if positional != len(bindings) {
			return "", nil, invalidArgument("statement has %d placeholders but %d bindings were given", positional, len(bindings))
		}
		return sql, bindings, nil
	}
	if positional > 0 {
		return "", nil, invalidArgument("positional placeholder used with named bindings")
	}
	var b strings.Builder
	args := make([]interface{}, 0, len(tokens))
	used := map[string]bool{}
	last := 0
	for _, t := range tokens {
		value, ok := named[t.name]
		if !ok {
			return "", nil, invalidArgument("missing value for named placeholder :%s", t.name)
		}
		used[t.name] = true
		b.WriteString(sql[last:t.start])
		b.WriteByte('?')
		last = t.end
		args = append(args, value)
	}
	b.WriteString(sql[last:])
	var unused []string
	for name := range named {
		if !used[name] {
			unused = append(unused, name)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		return "", nil, invalidArgument("unused named bindings: %s", strings.Join(unused, ", "))
	}
	return b.String(), args, nil
}

type placeholder struct {
	start, end int
	name       string // empty for ?
}

func firstName(tokens []placeholder) string {
	for _, t := range tokens {
		if t.name != "" {
			return t.name
		}
	}
	return ""
}

func scanPlaceholders(sql string, escapes bool) (tokens []placeholder) {
	var quote byte
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if quote != 0 {
			if ch == quote {
				if i+1 < len(sql) && sql[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '?':
			if escapes && i+1 < len(sql) && sql[i+1] == '?' {
				i++
				continue
			}
			tokens = append(tokens, placeholder{start: i, end: i + 1})
		case ':':
			if i+1 < len(sql) && sql[i+1] == ':' {
				i++
				continue
			}
			j := i + 1
			for j < len(sql) && isNameByte(sql[j], j == i+1) {
				j++
			}
			if j > i+1 {
				tokens = append(tokens, placeholder{start: i, end: j, name: sql[i+1 : j]})
				i = j - 1
			}
		}
	}
	return
}

func escapeQuotedMarks(sql string) string {
	if !strings.Contains(sql, "?") {
		return sql
	}
	var b strings.Builder
	var quote byte
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		b.WriteByte(ch)
		if quote == 0 {
			if ch == '\'' || ch == '"' || ch == '`' {
				quote = ch
			}
			continue
		}
		switch {
		case ch == '?':
			b.WriteByte('?')
		case ch == quote && i+1 < len(sql) && sql[i+1] == quote:
			b.WriteByte(quote)
			i++
		case ch == quote:
			quote = 0
		}
	}
	return b.String()
}

func isNameByte(c byte, first bool) bool {
	if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return true
	}
	return !first && c >= '0' && c <= '9'
}
