package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/searchstring/internal/term"
)

func cmp(key string, op term.Operator, v term.Scalar) term.Field {
	return term.F(key, term.Compare{Op: op, Value: v})
}

func in(key string, vs ...term.Scalar) term.Field {
	return term.F(key, term.List{Op: term.OpIn, Values: vs})
}

func between(key string, lo, hi term.Scalar) term.Field {
	return term.F(key, term.List{Op: term.OpBetween, Values: []term.Scalar{lo, hi}})
}

func nested(key string, t term.Tree) term.Field {
	return term.F(key, term.Nested{Tree: t})
}

func counted(key string, op term.Operator, n int64, t term.Tree) term.Field {
	return term.F(key, term.Counted{Op: op, Count: n, Terms: t})
}

type S = term.Solo

func TestParse_Success(t *testing.T) {
	str := func(s string) term.String { return term.String(s) }
	num := func(n int64) term.Int { return term.Int(n) }

	tests := []struct {
		input string
		want  term.Tree
	}{
		// Assignments.
		{"foo:bar", cmp("foo", term.OpEq, str("bar"))},
		{"foo: bar", cmp("foo", term.OpEq, str("bar"))},
		{"foo :bar", cmp("foo", term.OpEq, str("bar"))},
		{"foo : bar", cmp("foo", term.OpEq, str("bar"))},
		{"foo=10", cmp("foo", term.OpEq, num(10))},
		{`foo="bar baz"`, cmp("foo", term.OpEq, str("bar baz"))},
		{`foo=""`, cmp("foo", term.OpEq, str(""))},
		{"deleted_at:null", cmp("deleted_at", term.OpEq, term.Null{})},
		{"price<=9.99", cmp("price", term.OpLte, term.MustDecimal("9.99"))},

		// Comparisons.
		{"amount>0", cmp("amount", term.OpGt, num(0))},
		{"amount> 0", cmp("amount", term.OpGt, num(0))},
		{"amount >0", cmp("amount", term.OpGt, num(0))},
		{"amount > 0", cmp("amount", term.OpGt, num(0))},
		{"amount >= 0", cmp("amount", term.OpGte, num(0))},
		{"amount < 0", cmp("amount", term.OpLt, num(0))},
		{"amount <= 0", cmp("amount", term.OpLte, num(0))},
		{"users_todos <= 10", cmp("users_todos", term.OpLte, num(10))},
		{`date > "2018-05-14 00:41:10"`, cmp("date", term.OpGt, str("2018-05-14 00:41:10"))},

		// Solo.
		{"lonely", S("lonely")},
		{" lonely ", S("lonely")},
		{`"lonely"`, S("lonely")},
		{` "lonely" `, S("lonely")},
		{`"so lonely"`, S("so lonely")},
		{"3000", S("3000")},

		// Not.
		{"not A", term.Not{Term: S("A")}},
		{"not (not A)", term.Not{Term: term.Not{Term: S("A")}}},
		{"not not A", term.Not{Term: term.Not{Term: S("A")}}},

		// And.
		{"A and B and C", term.And{S("A"), S("B"), S("C")}},
		{"(A AND B) and C", term.And{term.And{S("A"), S("B")}, S("C")}},
		{"A AND (B AND C)", term.And{S("A"), term.And{S("B"), S("C")}}},
		{"foo:bar amount>0", term.And{cmp("foo", term.OpEq, str("bar")), cmp("amount", term.OpGt, num(0))}},
		{"amount > 10 and amount <= 100", term.And{cmp("amount", term.OpGt, num(10)), cmp("amount", term.OpLte, num(100))}},

		// Or.
		{"A or B or C", term.Or{S("A"), S("B"), S("C")}},
		{"(A OR B) or C", term.Or{term.Or{S("A"), S("B")}, S("C")}},
		{"A OR (B OR C)", term.Or{S("A"), term.Or{S("B"), S("C")}}},
		{"foo:bar or amount>0", term.Or{cmp("foo", term.OpEq, str("bar")), cmp("amount", term.OpGt, num(0))}},

		// Or binds more loosely than And.
		{"A or B and C or D", term.Or{S("A"), term.And{S("B"), S("C")}, S("D")}},
		{"(A or B) and C", term.And{term.Or{S("A"), S("B")}, S("C")}},
		{"A B or C D", term.Or{term.And{S("A"), S("B")}, term.And{S("C"), S("D")}}},
		{"(A or B) and (C or D)", term.And{term.Or{S("A"), S("B")}, term.Or{S("C"), S("D")}}},

		// Lists.
		{"foo:1,2,3", in("foo", num(1), num(2), num(3))},
		{"foo: 1,2,3", in("foo", num(1), num(2), num(3))},
		{"foo : 1 , 2 , 3", in("foo", num(1), num(2), num(3))},
		{`foo = "A B C",baz,"bar"`, in("foo", str("A B C"), str("baz"), str("bar"))},
		{"foo in(1,2,3)", in("foo", num(1), num(2), num(3))},
		{" foo in ( 1 , 2 , 3 ) ", in("foo", num(1), num(2), num(3))},
		{"foo in (3)", in("foo", num(3))},

		// Between.
		{"foo:3~5", between("foo", num(3), num(5))},
		{"foo : 3 ~ 5", between("foo", num(3), num(5))},
		{`foo = "3" ~ "5"`, between("foo", str("3"), str("5"))},
		{"foo between(3,5)", between("foo", num(3), num(5))},
		{" foo between ( 3 , 5 )", between("foo", num(3), num(5))},

		// Relationships.
		{`comments.author = "John Doe"`, nested("comments", cmp("author", term.OpEq, str("John Doe")))},
		{"comments.author.tags > 3", nested("comments", nested("author", cmp("tags", term.OpGt, num(3))))},
		{"comments.author", term.F("comments", str("author"))},
		{"comments.author.tags", nested("comments", term.F("author", str("tags")))},
		{"not comments.author", term.Not{Term: term.F("comments", str("author"))}},

		// Nested relationships.
		{
			"comments: (author: John or votes > 10)",
			nested("comments", term.Or{cmp("author", term.OpEq, str("John")), cmp("votes", term.OpGt, num(10))}),
		},
		{
			"comments: (author: John) = 20",
			counted("comments", term.OpEq, 20, cmp("author", term.OpEq, str("John"))),
		},
		{
			"comments: (author: John) <= 10",
			counted("comments", term.OpLte, 10, cmp("author", term.OpEq, str("John"))),
		},
		{
			`comments: ("This is great")`,
			nested("comments", S("This is great")),
		},
		{
			`comments.author: (name: "John Doe" age > 18) > 3`,
			counted("comments", term.OpGt, 3, nested("author", term.And{
				cmp("name", term.OpEq, str("John Doe")),
				cmp("age", term.OpGt, num(18)),
			})),
		},
		{
			"comments: (achievements: (Postgres) >= 2) > 10",
			counted("comments", term.OpGt, 10, counted("achievements", term.OpGte, 2, S("Postgres"))),
		},
		{
			"comments: (not achievements: (Postgres))",
			nested("comments", term.Not{Term: nested("achievements", S("Postgres"))}),
		},
		{
			"not comments: (achievements: (Postgres))",
			term.Not{Term: nested("comments", nested("achievements", S("Postgres")))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_BlankInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		got, err := Parse(input)
		require.NoError(t, err)
		assert.Equal(t, term.And{}, got)
	}
}

func TestParse_Failure(t *testing.T) {
	tests := []struct {
		input string
		found TokenKind
		pos   int
	}{
		// Unfinished.
		{"not ", TokenEOF, 4},
		{"foo = ", TokenEOF, 6},
		{"foo <= ", TokenEOF, 7},
		{"foo in ", TokenEOF, 7},
		{"foo:3~", TokenEOF, 6},
		{"foo between", TokenEOF, 11},
		{"(", TokenEOF, 1},
		{"A or", TokenEOF, 4},

		// Strings as keys.
		{`"string as key":foo`, TokenAssign, 15},
		{`foo and bar and "string as key" > 3`, TokenComparator, 32},
		{`not "string as key" in (1,2,3)`, TokenIn, 20},

		// Lonely operators.
		{"and", TokenAnd, 0},
		{"or", TokenOr, 0},
		{"in", TokenIn, 0},
		{"=", TokenAssign, 0},
		{":", TokenAssign, 0},
		{"<", TokenComparator, 0},
		{"<=", TokenComparator, 0},
		{">", TokenComparator, 0},
		{">=", TokenComparator, 0},

		// Invalid operators.
		{"foo<>3", TokenComparator, 4},
		{"foo=>3", TokenComparator, 4},
		{"foo=<3", TokenComparator, 4},
		{"foo < in 3", TokenIn, 6},
		{"foo in = 1,2,3", TokenAssign, 7},
		{"foo == 1,2,3", TokenAssign, 5},
		{"foo := 1,2,3", TokenAssign, 5},
		{"foo:1:2:3:4", TokenAssign, 5},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)

			syntaxErr, ok := AsError(err)
			require.True(t, ok, "expected *syntax.Error, got %T", err)
			assert.Equal(t, ErrCodeUnexpectedToken, syntaxErr.Code)
			assert.Equal(t, tt.found, syntaxErr.Found.Kind, syntaxErr.Error())
			assert.Equal(t, tt.pos, syntaxErr.Found.Pos, syntaxErr.Error())
		})
	}
}

func TestParse_ErrorMessage(t *testing.T) {
	_, err := Parse("foo = ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E201: unexpected end of input at position 6")
	assert.Contains(t, err.Error(), "expected")
}

func TestParseNode_KeepsRawTree(t *testing.T) {
	node, err := ParseNode("comments: (author: John) > 3")
	require.NoError(t, err)

	nr, ok := node.(NestedRelationshipNode)
	require.True(t, ok, "got %T", node)
	require.Len(t, nr.Path, 1)
	assert.Equal(t, "comments", nr.Path[0].Value)
	require.NotNil(t, nr.CountOp)
	assert.Equal(t, ">", nr.CountOp.Value)
	assert.Equal(t, "3", nr.Count.Value)
	assert.IsType(t, QueryNode{}, nr.Terms.Expr)
}

// Every reduced tree survives a trip through canonical JSON.
func TestParse_CanonicalRoundTrip(t *testing.T) {
	inputs := []string{
		"stars>10 and (status:active or status:pending)",
		"not comments.author = \"John Doe\"",
		"comments.author: (name: \"John Doe\" age > 18) > 3",
		"created_at: 2020-01-01 ~ 2020-12-31",
		"id in (1, 2, 3) lonely",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			tree, err := Parse(input)
			require.NoError(t, err)

			data, err := term.Marshal(tree)
			require.NoError(t, err)

			decoded, err := term.DecodeJSON(data)
			require.NoError(t, err)

			again, err := term.Marshal(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}
}
