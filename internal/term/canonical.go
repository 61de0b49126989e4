package term

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Marshal produces the canonical JSON form of a term tree.
//
// The shapes follow the loose term format accepted by DecodeJSON:
//
//	Solo       "lonely"
//	And        [t1, t2, ...]
//	Or         {"or": [t1, t2, ...]}
//	Not        {"not": t}
//	Field      {"key": value}
//	Compare    ["=", v]
//	List       ["in", [v1, v2, ...]]
//	Counted    [[">", 3], terms]
//
// Unlike map-based encoders, field order is preserved as written, and
// strings are NFC normalized with no HTML escaping. The output can be fed
// back to DecodeJSON as pre-parsed terms.
func Marshal(t Tree) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalTree(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalTree(buf *bytes.Buffer, t Tree) error {
	switch node := t.(type) {
	case nil:
		buf.WriteString("[]")
	case Solo:
		return marshalString(buf, string(node))
	case And:
		return marshalTrees(buf, node)
	case Or:
		buf.WriteString(`{"or":`)
		if err := marshalTrees(buf, node); err != nil {
			return err
		}
		buf.WriteByte('}')
	case Not:
		buf.WriteString(`{"not":`)
		if err := marshalTree(buf, node.Term); err != nil {
			return fmt.Errorf("not: %w", err)
		}
		buf.WriteByte('}')
	case Field:
		buf.WriteByte('{')
		if err := marshalString(buf, node.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := marshalValue(buf, node.Value); err != nil {
			return fmt.Errorf("field %q: %w", node.Key, err)
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported term node: %T", t)
	}
	return nil
}

func marshalTrees(buf *bytes.Buffer, trees []Tree) error {
	buf.WriteByte('[')
	for i, child := range trees {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalTree(buf, child); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case Scalar:
		return marshalScalar(buf, val)
	case Compare:
		buf.WriteByte('[')
		if err := marshalString(buf, string(val.Op)); err != nil {
			return err
		}
		buf.WriteByte(',')
		if err := marshalScalar(buf, val.Value); err != nil {
			return err
		}
		buf.WriteByte(']')
	case List:
		buf.WriteByte('[')
		if err := marshalString(buf, string(val.Op)); err != nil {
			return err
		}
		buf.WriteString(",[")
		for i, s := range val.Values {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalScalar(buf, s); err != nil {
				return err
			}
		}
		buf.WriteString("]]")
	case Nested:
		return marshalTree(buf, val.Tree)
	case Counted:
		buf.WriteString("[[")
		if err := marshalString(buf, string(val.Op)); err != nil {
			return err
		}
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatInt(val.Count, 10))
		buf.WriteByte(']')
		if val.Terms != nil {
			buf.WriteByte(',')
			if err := marshalTree(buf, val.Terms); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unsupported term value: %T", v)
	}
	return nil
}

func marshalScalar(buf *bytes.Buffer, s Scalar) error {
	switch val := s.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		return marshalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Decimal:
		buf.WriteString(val.String())
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	default:
		return fmt.Errorf("unsupported scalar: %T", s)
	}
	return nil
}

// marshalString writes s as a JSON string, NFC normalized and without
// HTML escaping.
func marshalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}
