package fluent

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

func (b *Builder) context() context.Context {
	return b.session.context()
}

func (b *Builder) fetch(ctx context.Context, compile func() (string, []interface{}, error)) ([]Row, error) {
	if b.err != nil {
		return nil, b.err
	}
	sql, args, err := compile()
	if err != nil {
		return nil, err
	}
	return b.session.queryRows(ctx, sql, args)
}

func (b *Builder) affect(ctx context.Context, compile func() (string, []interface{}, error)) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	sql, args, err := compile()
	if err != nil {
		return 0, err
	}
	return b.session.exec(ctx, sql, args)
}

// Get executes the query and returns all rows.
func (b *Builder) Get() ([]Row, error) {
	return b.GetCtx(b.context())
}

// GetCtx is like Get but uses the given context.
func (b *Builder) GetCtx(ctx context.Context) ([]Row, error) {
	return b.fetch(ctx, func() (string, []interface{}, error) {
		return b.grammar().CompileSelect(b)
	})
}

// MustGet is like Get but panics if query operation fails.
func (b *Builder) MustGet() []Row {
	rows, err := b.Get()
	if err != nil {
		panic(err)
	}
	return rows
}

// First returns the first row, or ErrNoRows.
func (b *Builder) First() (Row, error) {
	return b.FirstCtx(b.context())
}

// FirstCtx is like First but uses the given context.
func (b *Builder) FirstCtx(ctx context.Context) (Row, error) {
	rows, err := b.Clone().Limit(1).GetCtx(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// MustFirst is like First but panics if query operation fails.
func (b *Builder) MustFirst() Row {
	row, err := b.First()
	if err != nil {
		panic(err)
	}
	return row
}

// Value returns a single column of the first row, or ErrNoRows.
func (b *Builder) Value(column string) (interface{}, error) {
	return b.ValueCtx(b.context(), column)
}

// ValueCtx is like Value but uses the given context.
func (b *Builder) ValueCtx(ctx context.Context, column string) (interface{}, error) {
	row, err := b.Clone().Select(column).FirstCtx(ctx)
	if err != nil {
		return nil, err
	}
	return row[lastSegment(column)], nil
}

// Pluck returns a single column of every row.
func (b *Builder) Pluck(column string) ([]interface{}, error) {
	return b.PluckCtx(b.context(), column)
}

// PluckCtx is like Pluck but uses the given context.
func (b *Builder) PluckCtx(ctx context.Context, column string) ([]interface{}, error) {
	rows, err := b.Clone().Select(column).GetCtx(ctx)
	if err != nil {
		return nil, err
	}
	key := lastSegment(column)
	out := make([]interface{}, len(rows))
	for i, row := range rows {
		out[i] = row[key]
	}
	return out, nil
}

// Scan executes the query and binds the rows into target, which is a
// pointer to a slice of structs, or a pointer to a struct for the first
// row (ErrNoRows if there is none).
//
//	var products []Product
//	err := conn.Model(Product{}).OrderBy("id").Scan(&products)
func (b *Builder) Scan(target interface{}) error {
	return b.ScanCtx(b.context(), target)
}

// ScanCtx is like Scan but uses the given context.
func (b *Builder) ScanCtx(ctx context.Context, target interface{}) error {
	q := b
	if isStructPointer(target) {
		q = b.Clone().Limit(1)
	}
	rows, err := q.GetCtx(ctx)
	if err != nil {
		return err
	}
	return bindRows(rows, target)
}

// MustScan is like Scan but panics if query operation fails.
func (b *Builder) MustScan(target interface{}) {
	if err := b.Scan(target); err != nil {
		panic(err)
	}
}

// Exists reports whether the query matches any row.
func (b *Builder) Exists() (bool, error) {
	return b.ExistsCtx(b.context())
}

// ExistsCtx is like Exists but uses the given context.
func (b *Builder) ExistsCtx(ctx context.Context) (bool, error) {
	rows, err := b.fetch(ctx, func() (string, []interface{}, error) {
		return b.grammar().CompileExists(b)
	})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// MustExists is like Exists but panics if query operation fails.
func (b *Builder) MustExists() bool {
	exists, err := b.Exists()
	if err != nil {
		panic(err)
	}
	return exists
}

func (b *Builder) aggregate(ctx context.Context, function string, column interface{}) (interface{}, error) {
	rows, err := b.fetch(ctx, func() (string, []interface{}, error) {
		return b.grammar().CompileAggregate(b, function, column)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0]["aggregate"], nil
}

// Count returns the number of rows, or of non-null values in column.
// Orders, limit and offset of the query are ignored.
func (b *Builder) Count(column ...string) (int64, error) {
	return b.CountCtx(b.context(), column...)
}

// CountCtx is like Count but uses the given context.
func (b *Builder) CountCtx(ctx context.Context, column ...string) (int64, error) {
	var c interface{} = "*"
	if len(column) > 0 {
		c = column[0]
	}
	v, err := b.aggregate(ctx, "count", c)
	if err != nil {
		return 0, err
	}
	return toInt64(v)
}

// MustCount is like Count but panics if query operation fails.
func (b *Builder) MustCount(column ...string) int64 {
	count, err := b.Count(column...)
	if err != nil {
		panic(err)
	}
	return count
}

// Min returns the smallest value of column, or nil for no rows.
func (b *Builder) Min(column string) (interface{}, error) {
	return b.aggregate(b.context(), "min", column)
}

// MinCtx is like Min but uses the given context.
func (b *Builder) MinCtx(ctx context.Context, column string) (interface{}, error) {
	return b.aggregate(ctx, "min", column)
}

// Max returns the largest value of column, or nil for no rows.
func (b *Builder) Max(column string) (interface{}, error) {
	return b.aggregate(b.context(), "max", column)
}

// MaxCtx is like Max but uses the given context.
func (b *Builder) MaxCtx(ctx context.Context, column string) (interface{}, error) {
	return b.aggregate(ctx, "max", column)
}

// Sum returns the sum of column as a decimal; zero for no rows.
func (b *Builder) Sum(column string) (decimal.Decimal, error) {
	return b.SumCtx(b.context(), column)
}

// SumCtx is like Sum but uses the given context.
func (b *Builder) SumCtx(ctx context.Context, column string) (decimal.Decimal, error) {
	v, err := b.aggregate(ctx, "sum", column)
	if err != nil {
		return decimal.Zero, err
	}
	return toDecimal(v)
}

// Avg returns the average of column as a decimal, also for integer
// columns. The result is invalid (not Valid) for no rows.
func (b *Builder) Avg(column string) (decimal.NullDecimal, error) {
	return b.AvgCtx(b.context(), column)
}

// AvgCtx is like Avg but uses the given context.
func (b *Builder) AvgCtx(ctx context.Context, column string) (decimal.NullDecimal, error) {
	v, err := b.aggregate(ctx, "avg", column)
	if err != nil || v == nil {
		return decimal.NullDecimal{}, err
	}
	d, err := toDecimal(v)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// Insert inserts one or more records with a single statement. All records
// must have the same columns.
//
//	err := conn.Table("categories").Insert(
//		fluent.Changes{"id": "GADGET", "name": "Gadget"},
//		fluent.Changes{"id": "FOOD", "name": "Food"},
//	)
func (b *Builder) Insert(records ...Changes) error {
	return b.InsertCtx(b.context(), records...)
}

// InsertCtx is like Insert but uses the given context.
func (b *Builder) InsertCtx(ctx context.Context, records ...Changes) error {
	_, err := b.affect(ctx, func() (string, []interface{}, error) {
		return b.grammar().CompileInsert(b, records)
	})
	return err
}

// MustInsert is like Insert but panics if insert operation fails.
func (b *Builder) MustInsert(records ...Changes) {
	if err := b.Insert(records...); err != nil {
		panic(err)
	}
}

// InsertOrIgnore is like Insert but skips records that violate a unique
// constraint. It returns the number of rows inserted.
func (b *Builder) InsertOrIgnore(records ...Changes) (int64, error) {
	return b.InsertOrIgnoreCtx(b.context(), records...)
}

// InsertOrIgnoreCtx is like InsertOrIgnore but uses the given context.
func (b *Builder) InsertOrIgnoreCtx(ctx context.Context, records ...Changes) (int64, error) {
	return b.affect(ctx, func() (string, []interface{}, error) {
		return b.grammar().CompileInsertOrIgnore(b, records)
	})
}

// Update applies changes to all matching rows and returns the number of
// rows affected. No matching rows is not an error.
func (b *Builder) Update(changes Changes) (int64, error) {
	return b.UpdateCtx(b.context(), changes)
}

// UpdateCtx is like Update but uses the given context.
func (b *Builder) UpdateCtx(ctx context.Context, changes Changes) (int64, error) {
	return b.affect(ctx, func() (string, []interface{}, error) {
		return b.grammar().CompileUpdate(b, changes)
	})
}

// MustUpdate is like Update but panics if update operation fails.
func (b *Builder) MustUpdate(changes Changes) int64 {
	n, err := b.Update(changes)
	if err != nil {
		panic(err)
	}
	return n
}

// Delete removes all matching rows and returns the number of rows
// affected.
func (b *Builder) Delete() (int64, error) {
	return b.DeleteCtx(b.context())
}

// DeleteCtx is like Delete but uses the given context.
func (b *Builder) DeleteCtx(ctx context.Context) (int64, error) {
	return b.affect(ctx, func() (string, []interface{}, error) {
		return b.grammar().CompileDelete(b)
	})
}

// MustDelete is like Delete but panics if delete operation fails.
func (b *Builder) MustDelete() int64 {
	n, err := b.Delete()
	if err != nil {
		panic(err)
	}
	return n
}

// Increment adds amount to column of all matching rows, together with
// optional extra changes:
//
//	conn.Table("counters").Where("id", "=", "sample").Increment("counter", 1)
//
// No matching rows is not an error; zero is returned.
func (b *Builder) Increment(column string, amount interface{}, extra ...Changes) (int64, error) {
	return b.IncrementCtx(b.context(), column, amount, extra...)
}

// IncrementCtx is like Increment but uses the given context.
func (b *Builder) IncrementCtx(ctx context.Context, column string, amount interface{}, extra ...Changes) (int64, error) {
	return b.UpdateCtx(ctx, b.incrementChanges(column, "+", amount, extra))
}

// Decrement subtracts amount from column of all matching rows.
func (b *Builder) Decrement(column string, amount interface{}, extra ...Changes) (int64, error) {
	return b.DecrementCtx(b.context(), column, amount, extra...)
}

// DecrementCtx is like Decrement but uses the given context.
func (b *Builder) DecrementCtx(ctx context.Context, column string, amount interface{}, extra ...Changes) (int64, error) {
	return b.UpdateCtx(ctx, b.incrementChanges(column, "-", amount, extra))
}

func (b *Builder) incrementChanges(column, sign string, amount interface{}, extra []Changes) Changes {
	changes := Changes{}
	for _, e := range extra {
		for k, v := range e {
			changes[k] = v
		}
	}
	changes[column] = RawWithArgs(b.grammar().Wrap(column)+" "+sign+" ?", amount)
	return changes
}

// UpdateOrInsert updates the rows matching match with values, or inserts
// match and values merged if no row matches. Both steps run in one
// transaction: the session's transaction if there is one, otherwise a new
// one.
//
//	conn.Table("categories").UpdateOrInsert(
//		fluent.Changes{"id": "GADGET"},
//		fluent.Changes{"name": "Gadget Updated"},
//	)
func (b *Builder) UpdateOrInsert(match, values Changes) error {
	return b.UpdateOrInsertCtx(b.context(), match, values)
}

// UpdateOrInsertCtx is like UpdateOrInsert but uses the given context.
func (b *Builder) UpdateOrInsertCtx(ctx context.Context, match, values Changes) error {
	if b.err != nil {
		return b.err
	}
	if len(match) == 0 {
		return invalidArgument("update or insert requires match columns")
	}
	if b.session.tx != nil {
		return b.updateOrInsert(ctx, b.session, match, values)
	}
	return b.session.TransactionCtx(ctx, func(ctx context.Context, tx *Tx) error {
		return b.updateOrInsert(ctx, tx.Session, match, values)
	})
}

func (b *Builder) updateOrInsert(ctx context.Context, s Session, match, values Changes) error {
	q := b.Clone()
	q.session = s
	columns := make([]string, 0, len(match))
	for column := range match {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		q.Where(column, "=", match[column])
	}
	if len(values) > 0 {
		n, err := q.UpdateCtx(ctx, values)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
	// some engines report zero affected rows when the values are unchanged
	exists, err := q.Clone().LockForUpdate().ExistsCtx(ctx)
	if err != nil || exists {
		return err
	}
	record := Changes{}
	for k, v := range match {
		record[k] = v
	}
	for k, v := range values {
		record[k] = v
	}
	return q.InsertCtx(ctx, record)
}
