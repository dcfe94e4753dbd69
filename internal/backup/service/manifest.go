package service

import (
	"context"
	"database/sql"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
)

// TableCounts collects row counts for the given tables. Counts run as a group
// so one failing table cancels the rest; the connection pool bounds actual
// parallelism.
func TableCounts(ctx context.Context, db *sql.DB, tables []string) (map[string]int64, error) {
	group, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	counts := make(map[string]int64, len(tables))

	for _, table := range tables {
		group.Go(func() error {
			// Table names come from a fixed list, never from input.
			var count int64
			err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
			if err != nil {
				return apperrors.Wrap(err, "failed to count rows in "+table)
			}

			mu.Lock()
			counts[table] = count
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return counts, nil
}
