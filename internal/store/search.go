package store

import (
	"context"
	"fmt"

	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/querysql"
)

// Querier runs one statement and returns its rows. Store and PGStore
// implement it.
type Querier interface {
	QueryRows(ctx context.Context, query string, args ...any) ([]Row, error)
}

// Search runs sel and its eager loads.
func Search(ctx context.Context, q Querier, c *querysql.SQLCompiler, sel *queryir.Select) ([]Row, error) {
	query, params, err := c.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", sel.From, err)
	}
	rows, err := q.QueryRows(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel.From, err)
	}
	if err := loadEager(ctx, q, c, rows, sel.Eager); err != nil {
		return nil, err
	}
	return rows, nil
}

// loadEager runs each eager load once for all parents and attaches the
// child rows to the parent they link to.
func loadEager(ctx context.Context, q Querier, c *querysql.SQLCompiler, parents []Row, loads []queryir.EagerLoad) error {
	for _, e := range loads {
		query, params, err := c.CompileEager(e, parentKeys(parents, e.ParentKey))
		if err != nil {
			return err
		}
		children, err := q.QueryRows(ctx, query, params...)
		if err != nil {
			return fmt.Errorf("eager load %s: %w", e.Relation.Name, err)
		}
		if err := loadEager(ctx, q, c, children, e.Select.Eager); err != nil {
			return err
		}

		byParent := make(map[string][]Row)
		for _, child := range children {
			link := keyOf(child[querysql.LinkColumn])
			delete(child, querysql.LinkColumn)
			byParent[link] = append(byParent[link], child)
		}
		for _, parent := range parents {
			parent[e.Relation.Name] = attach(e.Relation.Kind, byParent[keyOf(parent[e.ParentKey])])
		}
	}
	return nil
}

// parentKeys returns the distinct non-null values of column.
func parentKeys(rows []Row, column string) []any {
	seen := make(map[string]bool)
	var keys []any
	for _, row := range rows {
		v := row[column]
		if v == nil || seen[keyOf(v)] {
			continue
		}
		seen[keyOf(v)] = true
		keys = append(keys, v)
	}
	return keys
}

// keyOf compares keys by value across driver types (int64 vs string).
func keyOf(v any) string {
	return fmt.Sprint(v)
}

func attach(kind queryir.RelationKind, rows []Row) any {
	switch kind {
	case queryir.HasOne, queryir.BelongsTo:
		if len(rows) == 0 {
			return nil
		}
		return rows[0]
	}
	if rows == nil {
		return []Row{}
	}
	return rows
}
