package fluent

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/gopsql/db"
	"github.com/shopspring/decimal"
)

// DateTimeFormat is the layout time values are returned in.
const DateTimeFormat = "2006-01-02 15:04:05"

// Row maps column names to values. Values are strings, numbers, booleans
// or nil; byte slices are returned as strings and times are formatted with
// DateTimeFormat.
type Row map[string]interface{}

// String returns the value of a column as a string. Nil is "".
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the value of a column as an integer.
func (r Row) Int64(column string) (int64, error) {
	return toInt64(r[column])
}

// Float64 returns the value of a column as a float.
func (r Row) Float64(column string) (float64, error) {
	switch v := r[column].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case nil:
		return 0, nil
	}
	d, err := toDecimal(r[column])
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

// Decimal returns the value of a column as a decimal.
func (r Row) Decimal(column string) (decimal.Decimal, error) {
	return toDecimal(r[column])
}

// Bind copies the row into the struct target points to. Struct fields map
// to columns by their "column" tag or by the underscored field name.
func (r Row) Bind(target interface{}) error {
	return bindRow(r, target)
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return 0, err
		}
		return d.IntPart(), nil
	case decimal.Decimal:
		return v.IntPart(), nil
	}
	return 0, fmt.Errorf("cannot convert %T to int64", value)
}

func toDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(v)
	case []byte:
		return decimal.NewFromString(string(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	}
	i, err := toInt64(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot convert %T to decimal", value)
	}
	return decimal.NewFromInt(i), nil
}

func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(DateTimeFormat)
	case driver.Valuer:
		if dv, err := v.Value(); err == nil {
			return normalizeValue(dv)
		}
	}
	return value
}

func scanRow(rows db.Rows, columns []string) (Row, error) {
	values := make([]interface{}, len(columns))
	dests := make([]interface{}, len(columns))
	for i := range values {
		dests[i] = &values[i]
	}
	if err := rows.Scan(dests...); err != nil {
		return nil, err
	}
	row := make(Row, len(columns))
	for i, column := range columns {
		row[column] = normalizeValue(values[i])
	}
	return row, nil
}

// scanRows reads and closes rows.
func scanRows(rows db.Rows) ([]Row, error) {
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []Row{}
	for rows.Next() {
		row, err := scanRow(rows, columns)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RowCursor streams the rows of one statement. It must be closed.
//
//	cur, err := conn.Table("categories").OrderBy("id").Cursor()
//	if err != nil {
//		return err
//	}
//	defer cur.Close()
//	for cur.Next() {
//		fmt.Println(cur.Row()["name"])
//	}
//	return cur.Err()
type RowCursor struct {
	rows    db.Rows
	columns []string
	row     Row
	err     error
	closed  bool
}

func newRowCursor(rows db.Rows) (*RowCursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &RowCursor{rows: rows, columns: columns}, nil
}

// Next advances to the next row. It returns false when the rows are
// exhausted or an error occurred; the cursor is closed in both cases.
func (c *RowCursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		c.Close()
		return false
	}
	c.row, c.err = scanRow(c.rows, c.columns)
	if c.err != nil {
		c.Close()
		return false
	}
	return true
}

// Row returns the current row.
func (c *RowCursor) Row() Row {
	return c.row
}

// Err returns the error, if any, that was encountered during iteration.
func (c *RowCursor) Err() error {
	return c.err
}

// Close releases the result set. It is safe to call more than once.
func (c *RowCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}
