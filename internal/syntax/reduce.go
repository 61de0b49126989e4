package syntax

import (
	"fmt"
	"strconv"

	"github.com/roach88/searchstring/internal/term"
)

// Reduce converts a raw parse tree into a term tree.
//
//   - single-child Or/And nodes were already collapsed by the parser
//   - Not wraps its child; it is not distributed
//   - dotted paths fold right-to-left into nested single-key fields
//   - a nested relationship count becomes a Counted on the first relation
func Reduce(n Node) (term.Tree, error) {
	switch node := n.(type) {
	case OrNode:
		children, err := reduceAll(node.Children)
		if err != nil {
			return nil, err
		}
		return term.Or(children), nil
	case AndNode:
		children, err := reduceAll(node.Children)
		if err != nil {
			return nil, err
		}
		return term.And(children), nil
	case NotNode:
		child, err := Reduce(node.Child)
		if err != nil {
			return nil, err
		}
		return term.Not{Term: child}, nil
	case QueryNode:
		return term.F(node.Key.Value, term.Compare{
			Op:    operator(node.Op),
			Value: scalar(node.Value),
		}), nil
	case ListNode:
		values := make([]term.Scalar, len(node.Values))
		for i, tok := range node.Values {
			values[i] = scalar(tok)
		}
		return term.F(node.Key.Value, term.List{Op: term.OpIn, Values: values}), nil
	case BetweenNode:
		return term.F(node.Key.Value, term.List{
			Op:     term.OpBetween,
			Values: []term.Scalar{scalar(node.Low), scalar(node.High)},
		}), nil
	case SoloNode:
		return term.Solo(node.Value.Value), nil
	case RelationshipNode:
		return reduceRelationship(node), nil
	case NestedRelationshipNode:
		return reduceNestedRelationship(node)
	default:
		return nil, fmt.Errorf("cannot reduce parse node %T", n)
	}
}

func reduceAll(nodes []Node) ([]term.Tree, error) {
	out := make([]term.Tree, len(nodes))
	for i, n := range nodes {
		t, err := Reduce(n)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// reduceRelationship folds `a.b.c` into {a: {b: "c"}} and
// `a.b.c > 3` into {a: {b: {c: [">", 3]}}}.
func reduceRelationship(node RelationshipNode) term.Tree {
	path := node.Path
	var inner term.Field
	if node.Op != nil {
		last := path[len(path)-1]
		inner = term.F(last.Value, term.Compare{Op: operator(*node.Op), Value: scalar(*node.Value)})
		path = path[:len(path)-1]
	} else {
		last := path[len(path)-1]
		prev := path[len(path)-2]
		inner = term.F(prev.Value, term.String(last.Value))
		path = path[:len(path)-2]
	}
	return wrapPath(path, inner)
}

// reduceNestedRelationship folds `a.b: (expr) > 3` into
// {a: [[">", 3], {b: expr}]}.
func reduceNestedRelationship(node NestedRelationshipNode) (term.Tree, error) {
	terms, err := Reduce(node.Terms.Expr)
	if err != nil {
		return nil, err
	}

	path := node.Path
	var inner term.Tree = terms
	for i := len(path) - 1; i > 0; i-- {
		inner = term.F(path[i].Value, term.Nested{Tree: inner})
	}

	if node.Count == nil {
		return term.F(path[0].Value, term.Nested{Tree: inner}), nil
	}

	count, err := strconv.ParseInt(node.Count.Value, 10, 64)
	if err != nil {
		return nil, &Error{Code: ErrCodeUnexpectedToken, Found: *node.Count, Expected: []TokenKind{TokenInteger}}
	}
	return term.F(path[0].Value, term.Counted{
		Op:    operator(*node.CountOp),
		Count: count,
		Terms: inner,
	}), nil
}

// wrapPath nests inner under each path segment, outermost first.
func wrapPath(path []Token, inner term.Field) term.Tree {
	for i := len(path) - 1; i >= 0; i-- {
		inner = term.F(path[i].Value, term.Nested{Tree: inner})
	}
	return inner
}

func operator(tok Token) term.Operator {
	op, ok := term.ParseOperator(tok.Value)
	if !ok {
		return term.OpEq
	}
	return op
}

// scalar converts a value token. Integers that overflow int64 are kept
// as exact decimals.
func scalar(tok Token) term.Scalar {
	switch tok.Kind {
	case TokenNull:
		return term.Null{}
	case TokenInteger:
		if n, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
			return term.Int(n)
		}
		if d, err := term.ParseDecimal(tok.Value); err == nil {
			return d
		}
	case TokenDecimal:
		if d, err := term.ParseDecimal(tok.Value); err == nil {
			return d
		}
	}
	return term.String(tok.Value)
}
