package term

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
)

// DecodeJSON builds a term tree from pre-parsed JSON terms.
//
// Object key order is significant (an object is an ordered AND of its
// keys), which is why this uses fastjson rather than encoding/json maps.
// Accepted shapes:
//
//	"lonely"                                  solo term
//	["a", "b"]                                implicit AND
//	{"title": "bar", "stars": [">", 3]}       AND of fields
//	{"or": [...]}  {"and": [...]}  {"not": t} boolean keys
//	{"comments.title": "bar"}                 dotted relationship path
//	{"status": ["a", "b"]}                    bare list means in
//	{"status": ["in", "a", "b"]}              flat range
//	{"created_at": ["between", ["x", "y"]]}   nested range
//	{"comments": [[">", 3], {"title": "x"}]}  counted relation
func DecodeJSON(data []byte) (Tree, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode terms: %w", err)
	}
	return decodeTree(v)
}

func decodeTree(v *fastjson.Value) (Tree, error) {
	switch v.Type() {
	case fastjson.TypeString:
		return Solo(string(v.GetStringBytes())), nil
	case fastjson.TypeNumber:
		return Solo(v.String()), nil
	case fastjson.TypeArray:
		arr, _ := v.Array()
		out := make(And, 0, len(arr))
		for i, elem := range arr {
			t, err := decodeTree(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, t)
		}
		return out, nil
	case fastjson.TypeObject:
		obj, _ := v.Object()
		var (
			fields   []Tree
			visitErr error
		)
		obj.Visit(func(key []byte, val *fastjson.Value) {
			if visitErr != nil {
				return
			}
			k := string(key)
			t, err := decodeEntry(k, val)
			if err != nil {
				visitErr = fmt.Errorf("%q: %w", k, err)
				return
			}
			fields = append(fields, t)
		})
		if visitErr != nil {
			return nil, visitErr
		}
		if len(fields) == 1 {
			return fields[0], nil
		}
		return And(fields), nil
	case fastjson.TypeNull:
		return And{}, nil
	default:
		return nil, fmt.Errorf("unsupported term: %s", v.Type())
	}
}

func decodeEntry(key string, v *fastjson.Value) (Tree, error) {
	switch key {
	case "or":
		return decodeOr(v)
	case "and":
		t, err := decodeTree(v)
		if err != nil {
			return nil, err
		}
		if and, ok := t.(And); ok {
			return and, nil
		}
		return And{t}, nil
	case "not":
		t, err := decodeTree(v)
		if err != nil {
			return nil, err
		}
		return Not{Term: t}, nil
	}

	// Positional keys come from sequences serialized as objects.
	if _, err := strconv.Atoi(key); err == nil {
		return decodeTree(v)
	}

	val, err := decodeValue(v)
	if err != nil {
		return nil, err
	}
	return ExpandPath(key, val), nil
}

// decodeOr turns the operand of an "or" key into an Or. An object operand
// contributes one alternative per key.
func decodeOr(v *fastjson.Value) (Tree, error) {
	switch v.Type() {
	case fastjson.TypeObject:
		t, err := decodeTree(v)
		if err != nil {
			return nil, err
		}
		if and, ok := t.(And); ok {
			return Or(and), nil
		}
		return Or{t}, nil
	case fastjson.TypeArray:
		t, err := decodeTree(v)
		if err != nil {
			return nil, err
		}
		return Or(t.(And)), nil
	default:
		t, err := decodeTree(v)
		if err != nil {
			return nil, err
		}
		return Or{t}, nil
	}
}

// ExpandPath expands a dotted key into a chain of single-key fields,
// "a.b.c" -> {a: {b: {c: value}}}. Keys without a dot are returned as is.
func ExpandPath(key string, val Value) Field {
	if !strings.Contains(key, ".") {
		return Field{Key: key, Value: val}
	}
	segments := strings.Split(strings.Trim(key, "."), ".")
	if len(segments) < 2 {
		return Field{Key: key, Value: val}
	}
	inner := Field{Key: segments[len(segments)-1], Value: val}
	for i := len(segments) - 2; i >= 0; i-- {
		inner = Field{Key: segments[i], Value: Nested{Tree: inner}}
	}
	return inner
}

func decodeValue(v *fastjson.Value) (Value, error) {
	if v.Type() == fastjson.TypeObject {
		t, err := decodeTree(v)
		if err != nil {
			return nil, err
		}
		return Nested{Tree: t}, nil
	}
	if v.Type() != fastjson.TypeArray {
		return decodeScalar(v)
	}

	arr, _ := v.Array()
	if len(arr) == 0 {
		return List{Op: OpIn}, nil
	}

	if op, count, ok := operatorExpression(arr[0]); ok {
		rest := make(And, 0, len(arr)-1)
		for i, elem := range arr[1:] {
			t, err := decodeTree(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i+1, err)
			}
			rest = append(rest, t)
		}
		c := Counted{Op: op, Count: count}
		switch len(rest) {
		case 0:
		case 1:
			c.Terms = rest[0]
		default:
			c.Terms = rest
		}
		return c, nil
	}

	if arr[0].Type() == fastjson.TypeString {
		if op, ok := ParseOperator(string(arr[0].GetStringBytes())); ok {
			switch {
			case (op.IsBasic() || op.IsLike()) && len(arr) == 2 && isScalar(arr[1]):
				s, err := decodeScalar(arr[1])
				if err != nil {
					return nil, err
				}
				return Compare{Op: op, Value: s}, nil
			case op.IsRange():
				elems := arr[1:]
				if len(arr) == 2 && arr[1].Type() == fastjson.TypeArray {
					elems, _ = arr[1].Array()
				}
				values, err := decodeScalars(elems)
				if err != nil {
					return nil, err
				}
				return List{Op: op, Values: values}, nil
			}
		}
	}

	if allScalars(arr) {
		values, err := decodeScalars(arr)
		if err != nil {
			return nil, err
		}
		return List{Op: OpIn, Values: values}, nil
	}

	t, err := decodeTree(v)
	if err != nil {
		return nil, err
	}
	return Nested{Tree: t}, nil
}

// operatorExpression matches a [basicOperator, integer] pair.
func operatorExpression(v *fastjson.Value) (Operator, int64, bool) {
	if v.Type() != fastjson.TypeArray {
		return "", 0, false
	}
	pair, _ := v.Array()
	if len(pair) != 2 || pair[0].Type() != fastjson.TypeString {
		return "", 0, false
	}
	op, ok := ParseOperator(string(pair[0].GetStringBytes()))
	if !ok || !op.IsBasic() {
		return "", 0, false
	}
	s, err := decodeScalar(pair[1])
	if err != nil {
		return "", 0, false
	}
	n, ok := Count(s)
	if !ok {
		return "", 0, false
	}
	return op, n, true
}

func decodeScalars(arr []*fastjson.Value) ([]Scalar, error) {
	out := make([]Scalar, 0, len(arr))
	for i, elem := range arr {
		s, err := decodeScalar(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeScalar(v *fastjson.Value) (Scalar, error) {
	switch v.Type() {
	case fastjson.TypeString:
		return String(v.GetStringBytes()), nil
	case fastjson.TypeNumber:
		return parseNumber(v.String())
	case fastjson.TypeTrue:
		return Bool(true), nil
	case fastjson.TypeFalse:
		return Bool(false), nil
	case fastjson.TypeNull:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("expected scalar, got %s", v.Type())
	}
}

// parseNumber keeps integers as Int and everything else as an exact Decimal.
func parseNumber(raw string) (Scalar, error) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Int(n), nil
	}
	d, err := ParseDecimal(raw)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func isScalar(v *fastjson.Value) bool {
	switch v.Type() {
	case fastjson.TypeArray, fastjson.TypeObject:
		return false
	}
	return true
}

func allScalars(arr []*fastjson.Value) bool {
	for _, v := range arr {
		if !isScalar(v) {
			return false
		}
	}
	return true
}
