package main

import (
	"fmt"
	"strings"

	"github.com/gopsql/fluent"
	"github.com/spf13/cobra"
)

func newSelectCommand(opts *options) *cobra.Command {
	var asJSON, named bool
	cmd := &cobra.Command{
		Use:   "select <sql> [bindings...]",
		Short: "Run a query and print the rows",
		Long: `Run a query and print the rows as a table.

Bindings fill the ? placeholders in order. With --named they are given as
name=value pairs and fill :name placeholders.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings, err := parseBindings(args[1:], named)
			if err != nil {
				return err
			}
			conn, err := opts.open()
			if err != nil {
				return err
			}
			defer conn.Close()
			rows, err := conn.SelectCtx(cmd.Context(), args[0], bindings...)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			return printRows(rows)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")
	cmd.Flags().BoolVar(&named, "named", false, "bindings are name=value pairs")
	return cmd
}

func newExecCommand(opts *options) *cobra.Command {
	var named bool
	cmd := &cobra.Command{
		Use:   "exec <sql> [bindings...]",
		Short: "Run a statement and print the number of affected rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings, err := parseBindings(args[1:], named)
			if err != nil {
				return err
			}
			conn, err := opts.open()
			if err != nil {
				return err
			}
			defer conn.Close()
			n, err := conn.AffectingCtx(cmd.Context(), args[0], bindings...)
			if err != nil {
				return err
			}
			printSuccess("%d row(s) affected", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&named, "named", false, "bindings are name=value pairs")
	return cmd
}

func newTableCommand(opts *options) *cobra.Command {
	var page, perPage int
	var order []string
	var cursor string
	var useCursor bool
	cmd := &cobra.Command{
		Use:   "table <name>",
		Short: "Print one page of a table",
		Long: `Print one page of a table.

--order takes column or column:desc and may be repeated. With --cursor the
page after the given token is printed instead of page --page, and the token
of the following page is shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.open()
			if err != nil {
				return err
			}
			defer conn.Close()
			q, err := orderedTable(conn, args[0], order)
			if err != nil {
				return err
			}
			if useCursor || cursor != "" {
				p, err := q.CursorPaginateCtx(cmd.Context(), perPage, cursor)
				if err != nil {
					return err
				}
				if err := printRows(p.Items()); err != nil {
					return err
				}
				if p.HasMorePages() {
					printInfo("next cursor: %s", p.NextCursor())
				}
				return nil
			}
			p, err := q.PaginateCtx(cmd.Context(), perPage, page)
			if err != nil {
				return err
			}
			if err := printRows(p.Items()); err != nil {
				return err
			}
			printInfo("page %d of %d, rows %d-%d of %d", p.CurrentPage(), p.LastPage(), p.From(), p.To(), p.Total())
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", fluent.DefaultPerPage, "rows per page")
	cmd.Flags().StringSliceVar(&order, "order", nil, "order by column[:desc]")
	cmd.Flags().StringVar(&cursor, "cursor", "", "cursor token of the page to print")
	cmd.Flags().BoolVar(&useCursor, "use-cursor", false, "paginate with cursors, starting at the first page")
	return cmd
}

func newCountCommand(opts *options) *cobra.Command {
	var where []string
	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Print the number of rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.open()
			if err != nil {
				return err
			}
			defer conn.Close()
			q := conn.Table(args[0])
			for _, w := range where {
				column, value, ok := strings.Cut(w, "=")
				if !ok {
					return fmt.Errorf("%w: where %q is not column=value", fluent.ErrInvalidArgument, w)
				}
				q.Where(column, "=", value)
			}
			n, err := q.CountCtx(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&where, "where", nil, "column=value condition, may be repeated")
	return cmd
}

func newInsertCommand(opts *options) *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "insert <table> <json>...",
		Short: "Insert JSON objects as rows",
		Long: `Insert JSON objects as rows with a single statement.

With --only, keys not listed are dropped.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := parseRecords(args[1:], only)
			if err != nil {
				return err
			}
			conn, err := opts.open()
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := conn.Table(args[0]).InsertCtx(cmd.Context(), records...); err != nil {
				return err
			}
			printSuccess("%d row(s) inserted", len(records))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "only", nil, "columns to keep")
	return cmd
}
