// Package harness runs search conformance scenarios.
//
// A scenario pairs a CUE schema with an SQL fixture and lists search
// strings together with what they must produce. Every search goes through
// the full pipeline (parse, compile, render, execute) against a fresh
// in-memory SQLite database.
//
// # Scenario Format
//
//	name: blog_basics
//	description: "Filters, phrases and relation counts on posts"
//	schema: ../../searchable/testdata/blog
//	fixture: ../../store/testdata/blog.sql
//	entity: Post
//	now: "2024-05-10T12:00:00Z"
//	searches:
//	  - search: "stars>20 sort:id"
//	    expect:
//	      ids: [2, 3]
//	      sql: "SELECT * FROM posts WHERE stars > ? ORDER BY id ASC"
//	  - search: "stars>"
//	    expect:
//	      error: E201
//	  - search: "columns:id,\"comments.title\" take:1"
//	    expect:
//	      rows:
//	        - id: 1
//	          comments: [{title: Nice}, {title: Meh}]
//
// Expect fields are optional and only the listed ones are checked. Rows
// are subset matches. A step with an error that is not expected fails.
//
// # Deterministic Testing
//
// Relative dates resolve against the scenario's now (DefaultNow if unset),
// so a scenario produces the same SQL on every run. RunWithGolden compares
// that output against testdata/golden/<name>.golden.
package harness
