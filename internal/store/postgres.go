package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

// PGStore runs searches against PostgreSQL over a single connection.
//
// The connection is not thread-safe; every call holds the lock for the
// duration of its statement.
type PGStore struct {
	conn *pgx.Conn
	lock sync.Mutex
}

// OpenPostgres connects to the database at dsn.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &PGStore{conn: conn}, nil
}

// Close closes the connection.
func (p *PGStore) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}

// Exec runs a script. Without arguments pgx uses the simple protocol, so
// the script may hold several statements.
func (p *PGStore) Exec(ctx context.Context, script string, args ...any) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if _, err := p.conn.Exec(ctx, script, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func (p *PGStore) QueryRows(ctx context.Context, query string, args ...any) ([]Row, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	rows, err := p.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = Row(m)
	}
	return out, nil
}

// Columns lists the columns of table in the current schema.
func (p *PGStore) Columns(ctx context.Context, table string) ([]string, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	rows, err := p.conn.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	return columns, nil
}
