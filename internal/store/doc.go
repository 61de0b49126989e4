// Package store executes compiled searches against SQLite or PostgreSQL.
//
// A search runs as one statement for the root entity followed by one
// statement per eager load. Eager child rows carry their link column
// (querysql.LinkColumn), are grouped by it and attached to their parent
// row under the relation name: a slice for to-many relations, a single
// row or nil for has_one and belongs_to.
//
// # Database Configuration
//
// SQLite databases are opened with:
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - foreign_keys=ON: Enforce referential integrity
//
// Both stores report table columns, so entities that declare none can be
// guarded against the live schema (searchable.ColumnLister).
package store
