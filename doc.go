// Package fluent provides a chainable SQL query builder and execution core
// for PostgreSQL, MySQL and SQLite.
//
// # Overview
//
// A Connection wraps a github.com/gopsql/db handle. Queries are composed
// with a Builder and compiled by a Grammar into dialect specific SQL and an
// ordered list of bindings; nothing reaches the database until a terminal
// method such as Get, Count, Insert or Update is called.
//
// Key features include:
//   - Where trees with nested AND / OR groups, between, in, null and date
//     comparisons
//   - Joins, grouping, having, ordering and row locks
//   - Aggregates (Sum and Avg return decimals)
//   - Offset pagination, cursor (keyset) pagination, chunked and lazy
//     iteration
//   - Raw statements with positional or named bindings
//   - Transactions with callback scoping
//
// # Basic Usage
//
//	conn := fluent.NewConnection(pgx.MustOpen(url), logger.StandardLogger)
//
//	// Insert records
//	err := conn.Table("categories").Insert(
//		fluent.Changes{"id": "SMARTPHONE", "name": "Smartphone"},
//		fluent.Changes{"id": "LAPTOP", "name": "Laptop"},
//	)
//
//	// Query
//	rows, err := conn.Table("products").
//		Where("price", ">", 10000).
//		OrWhereNested(func(q *fluent.Builder) {
//			q.WhereIn("category_id", []string{"SMARTPHONE", "LAPTOP"}).
//				WhereNotNull("description")
//		}).
//		OrderBy("price", "desc").
//		Get()
//
//	// Update and delete return the number of affected rows
//	n, err := conn.Table("categories").Where("id", "=", "LAPTOP").
//		Update(fluent.Changes{"name": "Notebook"})
//	n, err = conn.Table("categories").Where("id", "=", "LAPTOP").Delete()
//
// Column names may contain a table ("products.name") and an alias
// ("categories.name as category_name"). Use Raw for SQL expressions, which
// are written into the statement verbatim:
//
//	conn.Table("products").Select(fluent.Raw("count(*) as total_products"))
//
// # Rows
//
// Rows are returned as Row values, maps from column name to value. Byte
// slices become strings and times are formatted as "2006-01-02 15:04:05".
// Use Scan to bind rows into structs:
//
//	type Product struct {
//		Id         string
//		Name       string
//		Price      int64
//		CategoryId string
//	}
//
//	var products []Product
//	err := conn.Model(Product{}).OrderBy("id").Scan(&products)
//
// Table names come from ToTableName and column names from
// DefaultColumnNamer ("CategoryId" is "category_id") unless a "column" tag
// is set.
//
// # Raw Statements
//
//	rows, err := conn.Select("SELECT * FROM categories WHERE id = ?", "GADGET")
//	err = conn.Insert("INSERT INTO categories (id, name) VALUES (:id, :name)",
//		fluent.Named{"id": "GADGET", "name": "Gadget"})
//
// The number of bindings must match the placeholders exactly, otherwise
// ErrInvalidArgument is returned before the statement is sent.
//
// # Transactions
//
//	err := conn.Transaction(func(ctx context.Context, tx *fluent.Tx) error {
//		if err := tx.Table("categories").Insert(gadget); err != nil {
//			return err // rollback
//		}
//		return tx.Table("products").Insert(product) // commit if nil
//	})
//
// Begin returns a Tx for manual control; the caller must call Commit or
// Rollback.
//
// # Errors
//
// Database errors are returned as *QueryError. Use errors.Is with
// ErrConstraintViolation, ErrConnection, ErrInvalidArgument or
// ErrTransactionState to check the kind.
//
// # Database Drivers
//
// Any db.DB works; package github.com/gopsql/fluent/connect opens one from a
// driver name and DSN, including SQLite and MySQL through database/sql:
//
//	conn, err := connect.Open("sqlite3", "file::memory:?cache=shared")
package fluent
