package fluent

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Masterminds/squirrel"
)

func TestResolveBindings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		sql      string
		bindings []interface{}
		escapes  bool
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "positional",
			sql:      "INSERT INTO categories (id, name) VALUES (?, ?)",
			bindings: []interface{}{"GADGET", "Gadget"},
			wantSQL:  "INSERT INTO categories (id, name) VALUES (?, ?)",
			wantArgs: []interface{}{"GADGET", "Gadget"},
		},
		{
			name:     "named in order of appearance",
			sql:      "INSERT INTO categories (id, name, created_at) VALUES (:id, :name, :id_date)",
			bindings: []interface{}{Named{"name": "Gadget", "id": "GADGET", "id_date": "2023-09-24 00:00:00"}},
			wantSQL:  "INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)",
			wantArgs: []interface{}{"GADGET", "Gadget", "2023-09-24 00:00:00"},
		},
		{
			name:     "repeated name",
			sql:      "SELECT * FROM t WHERE a = :v OR b = :v",
			bindings: []interface{}{map[string]interface{}{"v": 1}},
			wantSQL:  "SELECT * FROM t WHERE a = ? OR b = ?",
			wantArgs: []interface{}{1, 1},
		},
		{
			name:     "quotes and casts are skipped",
			sql:      "SELECT ':skip', \"a:b\", created_at::date FROM t WHERE id = :id",
			bindings: []interface{}{Named{"id": 1}},
			wantSQL:  "SELECT ':skip', \"a:b\", created_at::date FROM t WHERE id = ?",
			wantArgs: []interface{}{1},
		},
		{
			name:     "question mark inside quotes is not counted",
			sql:      "SELECT '?', 'it''s' FROM t WHERE id = ?",
			bindings: []interface{}{1},
			wantSQL:  "SELECT '?', 'it''s' FROM t WHERE id = ?",
			wantArgs: []interface{}{1},
		},
		{
			name:     "escaped question mark",
			sql:      "SELECT data ?? 'key' FROM t WHERE id = ?",
			bindings: []interface{}{1},
			escapes:  true,
			wantSQL:  "SELECT data ?? 'key' FROM t WHERE id = ?",
			wantArgs: []interface{}{1},
		},
		{
			name:     "question mark inside quotes is doubled for dollar placeholders",
			sql:      "SELECT '?', 'it''s?' FROM t WHERE id = ?",
			bindings: []interface{}{1},
			escapes:  true,
			wantSQL:  "SELECT '??', 'it''s??' FROM t WHERE id = ?",
			wantArgs: []interface{}{1},
		},
		{
			name:    "no bindings",
			sql:     "SELECT * FROM categories",
			wantSQL: "SELECT * FROM categories",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotArgs, err := resolveBindings(tt.sql, tt.bindings, tt.escapes)
			if err != nil {
				t.Fatalf("resolveBindings() error = %v", err)
			}
			if gotSQL != tt.wantSQL {
				t.Errorf("SQL = %q, want %q", gotSQL, tt.wantSQL)
			}
			if len(gotArgs) != 0 || len(tt.wantArgs) != 0 {
				if !reflect.DeepEqual(gotArgs, tt.wantArgs) {
					t.Errorf("Args = %v, want %v", gotArgs, tt.wantArgs)
				}
			}
		})
	}
}

func TestResolveBindingsDollarNumbering(t *testing.T) {
	t.Parallel()
	want := `SELECT '?', "a?" FROM t WHERE id = $1 AND tag = '??' AND data ? 'k' AND x = $2`
	tests := []struct {
		name     string
		sql      string
		bindings []interface{}
	}{
		{
			name:     "positional",
			sql:      `SELECT '?', "a?" FROM t WHERE id = ? AND tag = '??' AND data ?? 'k' AND x = ?`,
			bindings: []interface{}{1, 2},
		},
		{
			name:     "named",
			sql:      `SELECT '?', "a?" FROM t WHERE id = :id AND tag = '??' AND data ?? 'k' AND x = :x`,
			bindings: []interface{}{Named{"id": 1, "x": 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, args, err := resolveBindings(tt.sql, tt.bindings, true)
			if err != nil {
				t.Fatalf("resolveBindings() error = %v", err)
			}
			got, err := squirrel.Dollar.ReplacePlaceholders(resolved)
			if err != nil {
				t.Fatalf("ReplacePlaceholders() error = %v", err)
			}
			if got != want {
				t.Errorf("SQL = %q, want %q", got, want)
			}
			if !reflect.DeepEqual(args, []interface{}{1, 2}) {
				t.Errorf("Args = %v, want [1 2]", args)
			}
		})
	}
}

func TestResolveBindingsInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		sql      string
		bindings []interface{}
	}{
		{"too few bindings", "SELECT * FROM t WHERE a = ? AND b = ?", []interface{}{1}},
		{"too many bindings", "SELECT * FROM t WHERE a = ?", []interface{}{1, 2}},
		{"named without bindings", "SELECT * FROM t WHERE a = :a", nil},
		{"missing name", "SELECT * FROM t WHERE a = :a AND b = :b", []interface{}{Named{"a": 1}}},
		{"unused name", "SELECT * FROM t WHERE a = :a", []interface{}{Named{"a": 1, "b": 2}}},
		{"mixed styles", "SELECT * FROM t WHERE a = :a AND b = ?", []interface{}{Named{"a": 1}}},
		{"named with positional values", "SELECT * FROM t WHERE a = :a", []interface{}{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := resolveBindings(tt.sql, tt.bindings, false); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestRawWithoutConnection(t *testing.T) {
	t.Parallel()
	if _, err := pg.Select("SELECT 1"); !errors.Is(err, ErrNoConnection) {
		t.Errorf("Select() error = %v, want ErrNoConnection", err)
	}
	if _, err := pg.Select("SELECT ?"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Select() error = %v, want ErrInvalidArgument", err)
	}
	if _, err := pg.Begin(context.Background()); !errors.Is(err, ErrNoConnection) {
		t.Errorf("Begin() error = %v, want ErrNoConnection", err)
	}
}
