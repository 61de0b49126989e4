package syntax

// Node is a sealed interface over raw parse tree nodes.
// The parser builds them; the reducer consumes each exactly once.
type Node interface {
	parseNode() // Sealed - only types in this package implement it
}

// OrNode holds two or more alternatives.
type OrNode struct {
	Children []Node
}

func (OrNode) parseNode() {}

// AndNode holds two or more conjuncts, in source order.
type AndNode struct {
	Children []Node
}

func (AndNode) parseNode() {}

// NotNode negates a single terminal.
type NotNode struct {
	Child Node
}

func (NotNode) parseNode() {}

// QueryNode is `key op value`, e.g. `stars > 10` or `deleted_at: null`.
type QueryNode struct {
	Key   Token
	Op    Token
	Value Token
}

func (QueryNode) parseNode() {}

// ListNode is `key in (a, b)` or `key: a, b`.
type ListNode struct {
	Key    Token
	Values ScalarList
}

func (ListNode) parseNode() {}

// BetweenNode is `key between (a, b)` or `key: a ~ b`.
type BetweenNode struct {
	Key  Token
	Low  Token
	High Token
}

func (BetweenNode) parseNode() {}

// SoloNode is a bare scalar.
type SoloNode struct {
	Value Token
}

func (SoloNode) parseNode() {}

// RelationshipNode is a dotted path with an optional comparison,
// e.g. `comments.author` or `comments.author = "John"`.
type RelationshipNode struct {
	Path  []Token
	Op    *Token
	Value *Token
}

func (RelationshipNode) parseNode() {}

// NestedRelationshipNode is `path: (expr)` with an optional trailing
// count constraint, e.g. `comments: (author: John) > 3`.
type NestedRelationshipNode struct {
	Path    []Token
	Terms   NestedTerms
	CountOp *Token
	Count   *Token
}

func (NestedRelationshipNode) parseNode() {}

// ScalarList is the ordered value list of a ListNode.
type ScalarList []Token

func (ScalarList) parseNode() {}

// NestedTerms is the parenthesized sub-expression of a nested relationship.
type NestedTerms struct {
	Expr Node
}

func (NestedTerms) parseNode() {}

func (Token) parseNode() {}
