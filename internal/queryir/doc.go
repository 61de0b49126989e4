// Package queryir defines the boundary between the term compiler and the
// stores it drives.
//
// ARCHITECTURE:
//
// The compiler never builds SQL. It talks to two capabilities:
//
//	[term tree] → compiler → Backend  (filter, relation, select, sort, page)
//	                       ↘ Metadata (is X searchable, a relation, a date?)
//
// Builder is the reference Backend. It accumulates calls into a Select,
// a backend-agnostic query tree that querysql renders to SQL:
//
//	Builder → *Select → querysql.Compile → sqlite / postgres
//
// SEALED INTERFACES:
//
// Predicate is sealed with a marker method. Only types in this package
// implement it, so renderers can switch over it exhaustively:
//
//	switch p := pred.(type) {
//	case Compare:
//	    // column op ?
//	case Exists:
//	    // [NOT] EXISTS (subquery)
//	...
//	}
//
// KEY RESOLUTION:
//
// Logical keys (columns, sort, limit, ...) are resolved once by
// Metadata.ResolveKey into the closed KeyKind enumeration. The compiler
// switches over KeyKind; it never compares key strings.
//
// CONTINUATIONS:
//
// Relation sub-expressions are handed to the backend as Continuation
// values. The backend applies them synchronously against a Backend scoped
// to the related entity when it materializes the relation sub-query.
//
// VALUES:
//
// Literal values are term.Scalar (string, int64, exact decimal, bool,
// null). There are no floats anywhere in the IR, and values are always
// bound as parameters, never interpolated.
package queryir
