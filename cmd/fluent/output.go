package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/gopsql/fluent"
	"github.com/pterm/pterm"
)

func printSuccess(format string, args ...interface{}) {
	color.New(color.FgGreen, color.Bold).Printf("✓ "+format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	color.New(color.FgCyan).Printf("ℹ "+format+"\n", args...)
}

func printJSON(w io.Writer, rows []fluent.Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func printRows(rows []fluent.Row) error {
	if len(rows) == 0 {
		printInfo("no rows")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(tableData(rows)).Render()
}

// tableData returns the header and cells of rows. Columns are sorted, with
// id first.
func tableData(rows []fluent.Row) pterm.TableData {
	seen := map[string]bool{}
	var columns []string
	for _, row := range rows {
		for column := range row {
			if !seen[column] {
				seen[column] = true
				columns = append(columns, column)
			}
		}
	}
	sort.Slice(columns, func(i, j int) bool {
		if columns[i] == "id" || columns[j] == "id" {
			return columns[i] == "id" && columns[j] != "id"
		}
		return columns[i] < columns[j]
	})
	data := pterm.TableData{columns}
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, column := range columns {
			if v, ok := row[column]; ok && v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = row.String(column)
			}
		}
		data = append(data, cells)
	}
	return data
}

// parseBindings turns command line arguments into statement bindings.
func parseBindings(args []string, named bool) ([]interface{}, error) {
	if !named {
		bindings := make([]interface{}, len(args))
		for i, arg := range args {
			bindings[i] = arg
		}
		return bindings, nil
	}
	if len(args) == 0 {
		return nil, nil
	}
	values := fluent.Named{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: binding %q is not name=value", fluent.ErrInvalidArgument, arg)
		}
		values[name] = value
	}
	return []interface{}{values}, nil
}

func parseRecords(args []string, only []string) ([]fluent.Changes, error) {
	permitted := fluent.Permit(only...)
	records := make([]fluent.Changes, 0, len(args))
	for _, arg := range args {
		if !json.Valid([]byte(arg)) {
			return nil, fmt.Errorf("%w: %q is not valid JSON", fluent.ErrInvalidArgument, arg)
		}
		record := permitted.Filter(arg)
		if len(record) == 0 {
			return nil, fmt.Errorf("%w: %s has no permitted columns", fluent.ErrInvalidArgument, arg)
		}
		records = append(records, record)
	}
	return records, nil
}

// orderedTable starts a query on table ordered by "column" or
// "column:desc" specs.
func orderedTable(conn *fluent.Connection, table string, order []string) (*fluent.Builder, error) {
	q := conn.Table(table)
	for _, o := range order {
		column, direction, _ := strings.Cut(o, ":")
		if direction == "" {
			direction = "asc"
		}
		q.OrderBy(column, direction)
	}
	return q, q.Err()
}
