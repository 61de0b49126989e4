// Package searchable declares which entities can be searched and how.
//
// Entities are described in CUE and checked against the #Schema
// definition embedded in this package:
//
//	entity: Post: {
//		table: "posts"
//		columns: {
//			id: type:         "int"
//			title: {}
//			created_at: type: "date"
//		}
//		relations: comments: {kind: "has_many", entity: "Comment", foreign_key: "post_id"}
//		phrase: text: [{column: "title"}]
//	}
//
// Each Entity implements queryir.Metadata. Entities that declare no
// columns read them from the database through a ColumnCache.
package searchable
