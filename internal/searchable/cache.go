package searchable

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// ColumnLister reads the columns of a table, in table order.
type ColumnLister interface {
	Columns(ctx context.Context, table string) ([]string, error)
}

// ColumnCache memoizes ColumnLister results per table. Entries are filled
// on first use and never invalidated; a schema change needs a new cache.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ColumnCache struct {
	lister ColumnLister

	mu     sync.Mutex
	tables map[string][]string
}

// NewColumnCache creates an empty cache over l.
func NewColumnCache(l ColumnLister) *ColumnCache {
	return &ColumnCache{lister: l, tables: map[string][]string{}}
}

// Columns returns the cached columns of table, asking the lister once.
// Failed lookups are not cached.
func (c *ColumnCache) Columns(ctx context.Context, table string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cols, ok := c.tables[table]; ok {
		return cols, nil
	}
	cols, err := c.lister.Columns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	cols = slices.Clip(cols)
	c.tables[table] = cols
	return cols, nil
}
