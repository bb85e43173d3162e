package connect_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/gopsql/fluent"
	"github.com/gopsql/fluent/config"
	"github.com/gopsql/fluent/connect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type product struct {
	Id         int64
	CategoryId string
	Name       string
	Price      int64
}

var schema = []string{
	`CREATE TABLE categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		created_at TEXT
	)`,
	`CREATE TABLE products (
		id INTEGER PRIMARY KEY,
		category_id TEXT NOT NULL,
		name TEXT NOT NULL,
		price INTEGER NOT NULL
	)`,
	`CREATE TABLE counters (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		hits INTEGER NOT NULL DEFAULT 0
	)`,
}

func openSQLite(t *testing.T) *fluent.Connection {
	t.Helper()
	conn, err := connect.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	for _, statement := range schema {
		require.NoError(t, conn.Statement(statement))
	}
	return conn
}

func seedProducts(t *testing.T, conn *fluent.Connection, n int) {
	t.Helper()
	records := make([]fluent.Changes, n)
	for i := range records {
		records[i] = fluent.Changes{
			"id":          i + 1,
			"category_id": fmt.Sprintf("CATEGORY-%d", i%3),
			"name":        fmt.Sprintf("Product %d", i+1),
			"price":       (i % 4) * 1000,
		}
	}
	require.NoError(t, conn.Seed(context.Background(), fluent.TableSeeder{Table: "products", Records: records}))
}

func ids(rows []fluent.Row) []int64 {
	out := make([]int64, 0, len(rows))
	for _, row := range rows {
		id, _ := row.Int64("id")
		out = append(out, id)
	}
	return out
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := connect.Open("oracle", "whatever")
	assert.ErrorIs(t, err, fluent.ErrInvalidArgument)

	_, err = connect.OpenConfig(&config.Config{Driver: "sqlite3"})
	assert.ErrorIs(t, err, fluent.ErrInvalidArgument)
}

func TestOpenConfig(t *testing.T) {
	conn, err := connect.OpenConfig(&config.Config{Driver: "sqlite3", DSN: ":memory:", MaxOpenConns: 4})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "sqlite3", conn.Grammar().Name())
	row, err := conn.SelectOne("SELECT 1 + 1 AS two")
	require.NoError(t, err)
	n, err := row.Int64("two")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestCountCommittedRows(t *testing.T) {
	conn := openSQLite(t)
	categories := conn.Table("categories")

	require.NoError(t, categories.Insert(fluent.Changes{"id": "SMARTPHONE", "name": "Smartphone"}))
	require.NoError(t, conn.Transaction(func(ctx context.Context, tx *fluent.Tx) error {
		return tx.Table("categories").InsertCtx(ctx, fluent.Changes{"id": "LAPTOP", "name": "Laptop"})
	}))
	err := conn.Transaction(func(ctx context.Context, tx *fluent.Tx) error {
		if err := tx.Table("categories").InsertCtx(ctx, fluent.Changes{"id": "TABLET", "name": "Tablet"}); err != nil {
			return err
		}
		return errors.New("rollback")
	})
	assert.EqualError(t, err, "rollback")

	err = conn.Transaction(func(ctx context.Context, tx *fluent.Tx) error {
		tx.Table("categories").InsertCtx(ctx, fluent.Changes{"id": "WATCH", "name": "Watch"})
		panic("test panic")
	})
	assert.EqualError(t, err, "test panic")

	count, err := categories.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestTransactionAllOrNothing(t *testing.T) {
	conn := openSQLite(t)
	err := conn.Transaction(func(ctx context.Context, tx *fluent.Tx) error {
		gadget := fluent.Changes{"id": "GADGET", "name": "Gadget"}
		if err := tx.Table("categories").InsertCtx(ctx, gadget); err != nil {
			return err
		}
		return tx.Table("categories").InsertCtx(ctx, gadget)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fluent.ErrConstraintViolation)

	var qe *fluent.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Contains(t, qe.SQL, "INSERT INTO")

	count, err := conn.Table("categories").Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestManualTransaction(t *testing.T) {
	conn := openSQLite(t)
	ctx := context.Background()

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Begin(ctx)
	assert.ErrorIs(t, err, fluent.ErrTransactionState)

	require.NoError(t, tx.Insert("INSERT INTO categories (id, name) VALUES (?, ?)", "BOOK", "Book"))
	require.NoError(t, tx.Commit())
	assert.False(t, tx.Active())
	assert.ErrorIs(t, tx.Commit(), fluent.ErrTransactionState)
	assert.ErrorIs(t, tx.Rollback(), fluent.ErrTransactionState)
	_, err = tx.Table("categories").Get()
	assert.ErrorIs(t, err, fluent.ErrTransactionState)

	tx, err = conn.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Table("categories").Where("id", "=", "BOOK").Delete()
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.True(t, conn.Table("categories").Where("id", "=", "BOOK").MustExists())
}

func TestWhereInEmpty(t *testing.T) {
	conn := openSQLite(t)
	seedProducts(t, conn, 10)

	rows, err := conn.Table("products").WhereIn("id", []int{}).Get()
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err := conn.Table("products").WhereNotIn("id", []int{}).Count()
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
}

func TestPaginate(t *testing.T) {
	conn := openSQLite(t)
	const total, perPage = 23, 5
	seedProducts(t, conn, total)

	query := conn.Table("products").OrderBy("price", "desc").OrderBy("id")

	var offsetIDs []int64
	pages := 0
	for page := 1; ; page++ {
		p, err := query.Paginate(perPage, page)
		require.NoError(t, err)
		assert.EqualValues(t, total, p.Total())
		assert.Equal(t, 5, p.LastPage())
		if p.IsEmpty() {
			break
		}
		pages++
		offsetIDs = append(offsetIDs, ids(p.Items())...)
	}
	assert.Equal(t, 5, pages)
	assert.Len(t, offsetIDs, total)
	seen := map[int64]bool{}
	for _, id := range offsetIDs {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	var cursorIDs []int64
	cursor := ""
	for {
		p, err := query.CursorPaginate(perPage, cursor)
		require.NoError(t, err)
		cursorIDs = append(cursorIDs, ids(p.Items())...)
		if !p.HasMorePages() {
			break
		}
		cursor = p.NextCursor()
	}
	assert.Equal(t, offsetIDs, cursorIDs)

	empty, err := conn.Table("products").Where("price", ">", 1000000).Paginate(perPage, 1)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 1, empty.LastPage())
}

func TestUpdateOrInsert(t *testing.T) {
	conn := openSQLite(t)
	categories := conn.Table("categories")

	require.NoError(t, categories.UpdateOrInsert(fluent.Changes{"id": "TOOLS"}, fluent.Changes{"name": "Tools"}))
	require.NoError(t, categories.UpdateOrInsert(fluent.Changes{"id": "TOOLS"}, fluent.Changes{"name": "Hand tools"}))
	require.NoError(t, categories.UpdateOrInsert(fluent.Changes{"id": "TOOLS"}, fluent.Changes{"name": "Hand tools"}))

	rows, err := conn.Table("categories").Where("id", "=", "TOOLS").Get()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hand tools", rows[0]["name"])

	assert.ErrorIs(t, categories.UpdateOrInsert(nil, fluent.Changes{"name": "x"}), fluent.ErrInvalidArgument)
}

func TestChunk(t *testing.T) {
	conn := openSQLite(t)
	seedProducts(t, conn, 100)

	var calls int
	var got []int64
	err := conn.Table("products").OrderBy("id").Chunk(1, func(rows []fluent.Row) bool {
		calls++
		assert.Len(t, rows, 1)
		got = append(got, ids(rows)...)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 100, calls)
	for i, id := range got {
		assert.EqualValues(t, i+1, id)
	}

	calls = 0
	err = conn.Table("products").OrderBy("id").Chunk(10, func(rows []fluent.Row) bool {
		calls++
		return calls < 3
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = conn.Table("products").ChunkByID(30, "id", func(rows []fluent.Row) bool {
		calls++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestLazyAndCursor(t *testing.T) {
	conn := openSQLite(t)
	seedProducts(t, conn, 25)

	lazy := conn.Table("products").OrderBy("id").Lazy(10)
	var n int64
	for lazy.Next() {
		n++
		id, err := lazy.Row().Int64("id")
		require.NoError(t, err)
		assert.Equal(t, n, id)
	}
	require.NoError(t, lazy.Err())
	require.NoError(t, lazy.Close())
	assert.EqualValues(t, 25, n)

	byID := conn.Table("products").LazyByID(7, "id").Take(12)
	n = 0
	for byID.Next() {
		n++
	}
	require.NoError(t, byID.Err())
	assert.EqualValues(t, 12, n)

	cur, err := conn.Table("products").Where("category_id", "=", "CATEGORY-0").OrderBy("id").Cursor()
	require.NoError(t, err)
	var names []string
	for cur.Next() {
		names = append(names, cur.Row().String("name"))
	}
	require.NoError(t, cur.Err())
	require.NoError(t, cur.Close())
	assert.Len(t, names, 9)
	assert.Equal(t, "Product 1", names[0])
}

func TestKeysetWithOrWhere(t *testing.T) {
	conn := openSQLite(t)
	seedProducts(t, conn, 30)
	query := func() *fluent.Builder {
		return conn.Table("products").
			Where("category_id", "=", "CATEGORY-0").
			OrWhere("category_id", "=", "CATEGORY-1")
	}

	var offsetIDs []int64
	for page := 1; ; page++ {
		p, err := query().OrderBy("id").Paginate(3, page)
		require.NoError(t, err)
		if p.IsEmpty() {
			break
		}
		offsetIDs = append(offsetIDs, ids(p.Items())...)
	}
	require.Len(t, offsetIDs, 20)

	var cursorIDs []int64
	cursor := ""
	for pages := 0; pages < 10; pages++ {
		p, err := query().OrderBy("id").CursorPaginate(3, cursor)
		require.NoError(t, err)
		cursorIDs = append(cursorIDs, ids(p.Items())...)
		if cursor = p.NextCursor(); cursor == "" {
			break
		}
	}
	assert.Empty(t, cursor)
	assert.Equal(t, offsetIDs, cursorIDs)

	var chunkIDs []int64
	calls := 0
	err := query().ChunkByID(6, "id", func(rows []fluent.Row) bool {
		calls++
		chunkIDs = append(chunkIDs, ids(rows)...)
		return calls < 10
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, offsetIDs, chunkIDs)

	lazy := query().LazyByID(7, "id")
	var lazyIDs []int64
	for lazy.Next() && len(lazyIDs) < 50 {
		id, err := lazy.Row().Int64("id")
		require.NoError(t, err)
		lazyIDs = append(lazyIDs, id)
	}
	require.NoError(t, lazy.Err())
	require.NoError(t, lazy.Close())
	assert.Equal(t, offsetIDs, lazyIDs)
}

func TestHavingWithoutGroupBy(t *testing.T) {
	conn := openSQLite(t)
	seedProducts(t, conn, 30)

	rows, err := conn.Table("products").
		Select(fluent.Raw("count(*) AS c")).
		Having(fluent.Raw("count(*)"), ">", 100).
		Get()
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = conn.Table("products").
		Select(fluent.Raw("count(*) AS c")).
		Having(fluent.Raw("count(*)"), ">", 10).
		Get()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 30, rows[0]["c"])
}

func TestContextCancelsStatement(t *testing.T) {
	conn := openSQLite(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := conn.Table("products").GetCtx(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = conn.SelectCtx(ctx, "WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM c WHERE x < 100000000000) "+
		"SELECT count(*) FROM c")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestAggregates(t *testing.T) {
	conn := openSQLite(t)
	require.NoError(t, conn.Table("products").Insert(
		fluent.Changes{"id": 1, "category_id": "SMARTPHONE", "name": "iPhone", "price": 10000000},
		fluent.Changes{"id": 2, "category_id": "SMARTPHONE", "name": "Pixel", "price": 20000000},
	))
	smartphones := conn.Table("products").Where("category_id", "=", "SMARTPHONE")

	avg, err := smartphones.Avg("price")
	require.NoError(t, err)
	require.True(t, avg.Valid)
	assert.True(t, avg.Decimal.Equal(decimal.NewFromInt(15000000)), "avg = %s", avg.Decimal)

	sum, err := smartphones.Sum("price")
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(30000000)), "sum = %s", sum)

	maxPrice, err := smartphones.Max("price")
	require.NoError(t, err)
	assert.EqualValues(t, 20000000, maxPrice)

	minPrice, err := smartphones.Min("price")
	require.NoError(t, err)
	assert.EqualValues(t, 10000000, minPrice)

	none, err := conn.Table("products").Where("category_id", "=", "NONE").Avg("price")
	require.NoError(t, err)
	assert.False(t, none.Valid)

	grouped, err := conn.Table("products").
		Select("category_id", fluent.Raw("count(*) AS total")).
		GroupBy("category_id").
		Having(fluent.Raw("count(*)"), ">", 1).
		Get()
	require.NoError(t, err)
	require.Len(t, grouped, 1)
	assert.Equal(t, "SMARTPHONE", grouped[0]["category_id"])
	assert.EqualValues(t, 2, grouped[0]["total"])
}

func TestIncrement(t *testing.T) {
	conn := openSQLite(t)
	counters := func() *fluent.Builder { return conn.Table("counters") }
	require.NoError(t, counters().Insert(fluent.Changes{"name": "visits", "hits": 0}))

	n, err := counters().Where("name", "=", "visits").Increment("hits", 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = counters().Where("name", "=", "visits").Decrement("hits", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	hits, err := counters().Where("name", "=", "visits").Value("hits")
	require.NoError(t, err)
	assert.EqualValues(t, 3, hits)

	n, err = counters().Where("name", "=", "missing").Increment("hits", 1)
	require.NoError(t, err)
	assert.Zero(t, n)
	count, err := counters().Where("name", "=", "missing").Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	err = counters().Insert(fluent.Changes{"name": "visits"})
	assert.ErrorIs(t, err, fluent.ErrConstraintViolation)
}

func TestRawStatements(t *testing.T) {
	conn := openSQLite(t)

	require.NoError(t, conn.Insert("INSERT INTO categories (id, name, created_at) VALUES (:id, :name, :created_at)",
		fluent.Named{"id": "GADGET", "name": "Gadget", "created_at": "2023-09-24 00:00:00"}))
	require.NoError(t, conn.Insert("INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)",
		"FOOD", "Food", "2023-09-25 10:00:00"))

	rows, err := conn.Select("SELECT * FROM categories WHERE id = :id", fluent.Named{"id": "GADGET"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Gadget", rows[0]["name"])
	assert.Nil(t, rows[0]["description"])

	_, err = conn.Select("SELECT * FROM categories WHERE id = ?")
	assert.ErrorIs(t, err, fluent.ErrInvalidArgument)

	n, err := conn.Update("UPDATE categories SET description = ? WHERE id IN (?, ?)", "text", "GADGET", "FOOD")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	dated, err := conn.Table("categories").WhereDate("created_at", "=", "2023-09-25").Pluck("id")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"FOOD"}, dated)

	between, err := conn.Table("categories").
		WhereBetween("created_at", []interface{}{"2023-09-24 00:00:00", "2023-09-24 23:59:59"}).
		Pluck("id")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"GADGET"}, between)

	n, err = conn.Delete("DELETE FROM categories WHERE id = :id", fluent.Named{"id": "FOOD"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = conn.Table("categories").InsertOrIgnore(
		fluent.Changes{"id": "GADGET", "name": "Gadget"},
		fluent.Changes{"id": "FOOD", "name": "Food"},
	)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = conn.Affecting("UPDATE categories SET name = upper(name)")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestScan(t *testing.T) {
	conn := openSQLite(t)
	seedProducts(t, conn, 6)

	var products []product
	require.NoError(t, conn.Model(product{}).Where("category_id", "=", "CATEGORY-1").OrderBy("id").Scan(&products))
	require.Len(t, products, 2)
	assert.Equal(t, product{Id: 2, CategoryId: "CATEGORY-1", Name: "Product 2", Price: 1000}, products[0])

	var p product
	require.NoError(t, conn.Model(product{}).OrderByDesc("id").Scan(&p))
	assert.EqualValues(t, 6, p.Id)

	err := conn.Model(product{}).Where("id", "=", 100).Scan(&p)
	assert.ErrorIs(t, err, fluent.ErrNoRows)

	joined, err := conn.Table("products as p").
		Join("counters as c", "c.name", "=", "p.name").
		Select("p.id").
		Get()
	require.NoError(t, err)
	assert.Empty(t, joined)
}

// Set FLUENT_TEST_DSN to a PostgreSQL connection string to run the
// PostgreSQL tests against every driver.
func getPostgresConnections(t *testing.T) []*fluent.Connection {
	t.Helper()
	dsn := os.Getenv("FLUENT_TEST_DSN")
	if dsn == "" {
		t.Skip("FLUENT_TEST_DSN is not set")
	}
	var connections []*fluent.Connection
	for _, driver := range []string{"pq", "pgx", "gopg"} {
		conn, err := connect.Open(driver, dsn)
		if err != nil {
			t.Logf("%s connection failed: %v", driver, err)
			continue
		}
		connections = append(connections, conn)
	}
	if len(connections) == 0 {
		t.Skip("No database connections available")
	}
	return connections
}

func TestPostgres(t *testing.T) {
	for _, conn := range getPostgresConnections(t) {
		t.Run(fmt.Sprintf("%T", conn.DB()), func(t *testing.T) {
			defer conn.Close()
			conn.MustStatement("DROP TABLE IF EXISTS fluent_categories")
			conn.MustStatement("CREATE TABLE fluent_categories (id text PRIMARY KEY, name text NOT NULL, created_at timestamptz DEFAULT now())")
			t.Cleanup(func() { conn.Statement("DROP TABLE IF EXISTS fluent_categories") })

			categories := func() *fluent.Builder { return conn.Table("fluent_categories") }
			err := conn.Transaction(func(ctx context.Context, tx *fluent.Tx) error {
				gadget := fluent.Changes{"id": "GADGET", "name": "Gadget"}
				if err := tx.Table("fluent_categories").InsertCtx(ctx, gadget); err != nil {
					return err
				}
				return tx.Table("fluent_categories").InsertCtx(ctx, gadget)
			})
			assert.ErrorIs(t, err, fluent.ErrConstraintViolation)
			assert.Zero(t, categories().MustCount())

			require.NoError(t, categories().UpdateOrInsert(fluent.Changes{"id": "TOOLS"}, fluent.Changes{"name": "Tools"}))
			require.NoError(t, categories().UpdateOrInsert(fluent.Changes{"id": "TOOLS"}, fluent.Changes{"name": "Hand tools"}))
			assert.EqualValues(t, 1, categories().MustCount())

			require.NoError(t, conn.Transaction(func(ctx context.Context, tx *fluent.Tx) error {
				row, err := tx.Table("fluent_categories").Where("id", "=", "TOOLS").LockForUpdate().FirstCtx(ctx)
				if err != nil {
					return err
				}
				assert.Equal(t, "Hand tools", row["name"])
				return nil
			}))

			n, err := categories().WhereDate("created_at", "<=", "2999-01-01").Count()
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)
		})
	}
}
