package fluent

import (
	"errors"
	"testing"
)

func TestDelete(t *testing.T) {
	t.Parallel()
	runStatementTests(t, Postgres, []statementTest{
		{
			name: "basic delete",
			compile: func() (string, []interface{}, error) {
				return Postgres.CompileDelete(pg.Table("categories"))
			},
			wantSQL: `DELETE FROM "categories"`,
		},
		{
			name: "delete with where tree",
			compile: func() (string, []interface{}, error) {
				b := pg.Table("categories").
					WhereIn("id", []string{"A", "B"}).
					OrWhereNested(func(q *Builder) {
						q.WhereNull("name").WhereNotNull("description")
					})
				return Postgres.CompileDelete(b)
			},
			wantSQL:  `DELETE FROM "categories" WHERE "id" IN ($1, $2) OR ("name" IS NULL AND "description" IS NOT NULL)`,
			wantArgs: []interface{}{"A", "B"},
		},
		{
			name: "orders and limit are ignored",
			compile: func() (string, []interface{}, error) {
				return Postgres.CompileDelete(pg.Table("categories").OrderBy("id").Take(1))
			},
			wantSQL: `DELETE FROM "categories"`,
		},
	})
}

func TestDeleteWithJoin(t *testing.T) {
	t.Parallel()
	b := pg.Table("products").Join("categories", "categories.id", "=", "products.category_id")
	if _, err := b.Delete(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Delete() error = %v, want ErrInvalidArgument", err)
	}
}
