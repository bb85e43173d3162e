package fluent

import (
	"reflect"
	"time"
)

// Where adds a comparison joined with AND. Operator is one of =, !=, <>,
// <, <=, >, >=, like and not like. Value is bound as a parameter unless it
// is an Expression.
//
//	conn.Table("products").Where("price", ">=", 20000)
func (b *Builder) Where(column interface{}, operator string, value interface{}) *Builder {
	return b.where(and, column, operator, value)
}

// OrWhere adds a comparison joined with OR.
func (b *Builder) OrWhere(column interface{}, operator string, value interface{}) *Builder {
	return b.where(or, column, operator, value)
}

func (b *Builder) where(boolean string, column interface{}, operator string, value interface{}) *Builder {
	op, ok := normalizeOperator(operator)
	if !ok {
		return b.fail(invalidArgument("unsupported operator %q", operator))
	}
	b.wheres = append(b.wheres, basicWhere{whereBase{boolean}, column, op, value})
	return b
}

// WhereColumn compares two columns.
func (b *Builder) WhereColumn(first, operator, second string) *Builder {
	op, ok := normalizeOperator(operator)
	if !ok {
		return b.fail(invalidArgument("unsupported operator %q", operator))
	}
	b.wheres = append(b.wheres, columnWhere{whereBase{and}, first, op, second})
	return b
}

// WhereNested adds a parenthesized group joined with AND. The callback
// receives a fresh builder whose where clauses form the group.
//
//	conn.Table("products").
//		Where("category_id", "=", "SMARTPHONE").
//		OrWhereNested(func(q *fluent.Builder) {
//			q.Where("price", ">", 1000).Where("price", "<", 5000)
//		})
func (b *Builder) WhereNested(fn func(*Builder)) *Builder {
	return b.nested(and, fn)
}

// OrWhereNested adds a parenthesized group joined with OR.
func (b *Builder) OrWhereNested(fn func(*Builder)) *Builder {
	return b.nested(or, fn)
}

func (b *Builder) nested(boolean string, fn func(*Builder)) *Builder {
	q := newBuilder(b.session, b.table)
	fn(q)
	if q.err != nil {
		return b.fail(q.err)
	}
	if len(q.wheres) > 0 {
		b.wheres = append(b.wheres, nestedWhere{whereBase{boolean}, q.wheres})
	}
	return b
}

// groupWheres wraps the where-list in one parenthesized group when it joins
// anything with OR, so that a clause appended afterwards applies to all of
// it.
func (b *Builder) groupWheres() {
	for i, w := range b.wheres {
		if i > 0 && w.connector() == or {
			b.wheres = []clause{nestedWhere{whereBase{and}, b.wheres}}
			return
		}
	}
}

// WhereBetween adds "column BETWEEN low AND high". bounds must have exactly
// two elements.
func (b *Builder) WhereBetween(column interface{}, bounds []interface{}) *Builder {
	return b.between(and, column, bounds, false)
}

// OrWhereBetween is like WhereBetween but joined with OR.
func (b *Builder) OrWhereBetween(column interface{}, bounds []interface{}) *Builder {
	return b.between(or, column, bounds, false)
}

// WhereNotBetween adds "column NOT BETWEEN low AND high".
func (b *Builder) WhereNotBetween(column interface{}, bounds []interface{}) *Builder {
	return b.between(and, column, bounds, true)
}

func (b *Builder) between(boolean string, column interface{}, bounds []interface{}, not bool) *Builder {
	if len(bounds) != 2 {
		return b.fail(invalidArgument("between requires exactly 2 bounds, got %d", len(bounds)))
	}
	b.wheres = append(b.wheres, betweenWhere{whereBase{boolean}, column, bounds[0], bounds[1], not})
	return b
}

// WhereIn adds "column IN (values...)". Values may be any slice. An empty
// list matches no rows.
func (b *Builder) WhereIn(column interface{}, values interface{}) *Builder {
	return b.in(and, column, values, false)
}

// OrWhereIn is like WhereIn but joined with OR.
func (b *Builder) OrWhereIn(column interface{}, values interface{}) *Builder {
	return b.in(or, column, values, false)
}

// WhereNotIn adds "column NOT IN (values...)". An empty list matches every
// row.
func (b *Builder) WhereNotIn(column interface{}, values interface{}) *Builder {
	return b.in(and, column, values, true)
}

func (b *Builder) in(boolean string, column interface{}, values interface{}, not bool) *Builder {
	list, ok := toSlice(values)
	if !ok {
		return b.fail(invalidArgument("in requires a slice, got %T", values))
	}
	b.wheres = append(b.wheres, inWhere{whereBase{boolean}, column, list, not})
	return b
}

func toSlice(values interface{}) ([]interface{}, bool) {
	switch v := values.(type) {
	case nil:
		return nil, true
	case []interface{}:
		return v, true
	}
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// WhereNull adds "column IS NULL".
func (b *Builder) WhereNull(column interface{}) *Builder {
	b.wheres = append(b.wheres, nullWhere{whereBase{and}, column, false})
	return b
}

// OrWhereNull adds "column IS NULL" joined with OR.
func (b *Builder) OrWhereNull(column interface{}) *Builder {
	b.wheres = append(b.wheres, nullWhere{whereBase{or}, column, false})
	return b
}

// WhereNotNull adds "column IS NOT NULL".
func (b *Builder) WhereNotNull(column interface{}) *Builder {
	b.wheres = append(b.wheres, nullWhere{whereBase{and}, column, true})
	return b
}

// WhereDate compares the date part of a column. Value is a "YYYY-MM-DD"
// string or a time.Time.
func (b *Builder) WhereDate(column interface{}, operator string, value interface{}) *Builder {
	return b.date(and, column, operator, value)
}

// OrWhereDate is like WhereDate but joined with OR.
func (b *Builder) OrWhereDate(column interface{}, operator string, value interface{}) *Builder {
	return b.date(or, column, operator, value)
}

func (b *Builder) date(boolean string, column interface{}, operator string, value interface{}) *Builder {
	op, ok := normalizeOperator(operator)
	if !ok {
		return b.fail(invalidArgument("unsupported operator %q", operator))
	}
	switch v := value.(type) {
	case time.Time:
		value = v.Format("2006-01-02")
	case *time.Time:
		value = v.Format("2006-01-02")
	}
	b.wheres = append(b.wheres, dateWhere{whereBase{boolean}, column, op, value})
	return b
}

// WhereRaw adds a verbatim condition with ? bindings.
func (b *Builder) WhereRaw(sql string, bindings ...interface{}) *Builder {
	b.wheres = append(b.wheres, rawWhere{whereBase{and}, sql, bindings})
	return b
}

// OrWhereRaw is like WhereRaw but joined with OR.
func (b *Builder) OrWhereRaw(sql string, bindings ...interface{}) *Builder {
	b.wheres = append(b.wheres, rawWhere{whereBase{or}, sql, bindings})
	return b
}
