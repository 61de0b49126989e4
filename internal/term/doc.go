// Package term provides the normalized term tree produced from a search
// string and consumed by the compiler.
//
// This package contains value types only. syntax, normalize, queryir and
// compiler all import term; term imports nothing internal.
//
// Key design constraints:
//   - Tree and Value are sealed interfaces (marker methods)
//   - NO float types - decimals are carried as apd.Decimal
//   - AND-sequence order and list order are preserved exactly as written
//   - Not wraps exactly one child and is never distributed here
//   - A dotted path a.b.c is a chain of single-key Fields, {a: {b: c}}
package term
