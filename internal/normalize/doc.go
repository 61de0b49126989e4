// Package normalize holds the pure value rewrites the term compiler
// applies before it talks to a backend: operator negation, relation count
// canonicalization, date precision widening and phrase/column expansion.
//
// Nothing here touches a backend or holds state beyond its arguments,
// except DateParser which reads its Clock for relative dates.
package normalize
