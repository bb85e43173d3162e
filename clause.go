package fluent

import "strings"

type (
	// Expression is a raw SQL fragment. It is written into the statement
	// verbatim: never quoted as an identifier and never bound as a
	// parameter. The caller is responsible for its safety.
	Expression string

	boundExpression struct {
		sql      string
		bindings []interface{}
	}

	// Changes maps column names to values for Insert and Update. Values may
	// be an Expression.
	Changes map[string]interface{}

	// Named holds bindings for :name placeholders in raw statements.
	Named map[string]interface{}

	lockMode int

	clause interface {
		connector() string
	}

	whereBase struct {
		boolean string
	}

	basicWhere struct {
		whereBase
		column   interface{}
		operator string
		value    interface{}
	}

	columnWhere struct {
		whereBase
		first    interface{}
		operator string
		second   interface{}
	}

	betweenWhere struct {
		whereBase
		column interface{}
		low    interface{}
		high   interface{}
		not    bool
	}

	inWhere struct {
		whereBase
		column interface{}
		values []interface{}
		not    bool
	}

	nullWhere struct {
		whereBase
		column interface{}
		not    bool
	}

	dateWhere struct {
		whereBase
		column   interface{}
		operator string
		value    interface{}
	}

	rawWhere struct {
		whereBase
		sql      string
		bindings []interface{}
	}

	nestedWhere struct {
		whereBase
		clauses []clause
	}

	joinClause struct {
		kind    string
		table   interface{}
		clauses []clause
	}

	orderClause struct {
		column    interface{}
		direction string
	}
)

const (
	lockNone lockMode = iota
	lockForUpdate
	lockShared
)

const (
	and = "and"
	or  = "or"
)

var operators = map[string]bool{
	"=":        true,
	"!=":       true,
	"<>":       true,
	"<":        true,
	"<=":       true,
	">":        true,
	">=":       true,
	"like":     true,
	"not like": true,
}

// Raw marks sql as a verbatim expression, for example:
//
//	conn.Table("products").Select(fluent.Raw("count(*) as total_products"))
func Raw(sql string) Expression {
	return Expression(sql)
}

// RawWithArgs is like Raw but carries bindings for the ? placeholders in
// sql.
//
//	conn.Table("counters").Update(fluent.Changes{
//		"counter": fluent.RawWithArgs("counter * ?", 2),
//	})
func RawWithArgs(sql string, bindings ...interface{}) boundExpression {
	return boundExpression{sql: sql, bindings: bindings}
}

func (e Expression) String() string {
	return string(e)
}

func (w whereBase) connector() string {
	return w.boolean
}

func normalizeOperator(operator string) (string, bool) {
	op := strings.ToLower(strings.Join(strings.Fields(operator), " "))
	return op, operators[op]
}
