// Package syntax parses search strings into term trees.
//
// The pipeline is Lexer -> Parser -> Reduce:
//
//	stars>10 and (status:active or status:pending)
//	  -> [term stars] [comparator >] [integer 10] [and] [(] ...
//	  -> AndNode{QueryNode, OrNode{QueryNode, QueryNode}}
//	  -> term.And{{stars: [">", 10]}, {or: [{status: ["=", "active"]}, ...]}}
//
// Grammar (OR binds more loosely than AND; AND may be implicit):
//
//	Expr        := OrExpr
//	OrExpr      := AndExpr ( OR AndExpr )*
//	AndExpr     := Terminal ( AND? Terminal )*
//	Terminal    := '(' Expr ')' | NOT Terminal | NestedRelationshipTerm
//	             | RelationshipTerm | ListTerm | BetweenTerm | QueryTerm | SoloTerm
//	QueryTerm   := IDENT (ASSIGN|COMPARATOR) (Scalar|NULL)
//	ListTerm    := IDENT IN '(' ScalarList ')' | IDENT ASSIGN Scalar (',' Scalar)+
//	BetweenTerm := IDENT BETWEEN '(' Scalar ',' Scalar ')' | IDENT ASSIGN Scalar '~' Scalar
//	RelationshipTerm       := DottedIdent ( (ASSIGN|COMPARATOR) (Scalar|NULL) )?
//	NestedRelationshipTerm := Path ASSIGN '(' Expr ')' ( (ASSIGN|COMPARATOR) INTEGER )?
//	SoloTerm    := Scalar
//	Scalar      := QuotedString | Number | IDENT
//
// Keywords (in, between, and, or, not, null) are case-insensitive and
// reserved only as whole words. Quoted strings are never keys.
package syntax
