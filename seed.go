package fluent

import (
	"context"
	"fmt"
)

type (
	// Seeder populates baseline rows.
	Seeder interface {
		Run(ctx context.Context, tx *Tx) error
	}

	// SeederFunc adapts a function to a Seeder.
	SeederFunc func(ctx context.Context, tx *Tx) error

	// TableSeeder inserts Records into Table with a single statement.
	TableSeeder struct {
		Table   string
		Records []Changes
	}
)

func (f SeederFunc) Run(ctx context.Context, tx *Tx) error {
	return f(ctx, tx)
}

func (s TableSeeder) Run(ctx context.Context, tx *Tx) error {
	if len(s.Records) == 0 {
		return nil
	}
	return tx.Table(s.Table).InsertCtx(ctx, s.Records...)
}

// Seed runs each seeder in its own transaction, stopping at the first
// error. Seeders that finished before the error stay committed.
func (c *Connection) Seed(ctx context.Context, seeders ...Seeder) error {
	for i, seeder := range seeders {
		if err := c.TransactionCtx(ctx, seeder.Run); err != nil {
			return fmt.Errorf("seeder %d (%T): %w", i, seeder, err)
		}
	}
	return nil
}
