// Command fluent runs queries against a database configured in .fluent.yaml
// or FLUENT_* environment variables.
//
//	fluent select "SELECT * FROM categories WHERE id = ?" GADGET
//	fluent table products --order price --per-page 20 --page 2
//	fluent count products
package main

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gopsql/fluent"
	"github.com/gopsql/fluent/config"
	"github.com/gopsql/fluent/connect"
	"github.com/spf13/cobra"
)

var Version = "dev"

type options struct {
	driver string
	dsn    string
	logSQL bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "fluent",
		Short:         "Run queries with the fluent query builder",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "database driver: "+joinDrivers())
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "data source name")
	cmd.PersistentFlags().BoolVar(&opts.logSQL, "log", false, "log statements")

	cmd.AddCommand(
		newSelectCommand(opts),
		newExecCommand(opts),
		newTableCommand(opts),
		newCountCommand(opts),
		newInsertCommand(opts),
	)
	return cmd
}

// open connects with the configuration, letting flags override it.
func (o *options) open() (*fluent.Connection, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.driver != "" {
		cfg.Driver = o.driver
	}
	if o.dsn != "" {
		cfg.DSN = o.dsn
	}
	if o.logSQL {
		cfg.LogSQL = true
	}
	return connect.OpenConfig(cfg)
}

func joinDrivers() string {
	return strings.Join(connect.Drivers, ", ")
}
