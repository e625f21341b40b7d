package doctree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformed is returned by Parse when the input is not a valid document.
var ErrMalformed = errors.New("doctree: malformed document")

// Kind is the shape of a Node.
type Kind int

// Node kinds. The zero Node is Null.
const (
	Null Kind = iota
	Scalar
	Sequence
	Mapping
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Scalar:
		return "scalar"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is an immutable document value.
// For Mapping, keys and items are parallel slices in document order.
type Node struct {
	kind  Kind
	tag   string
	value string
	keys  []string
	items []Node
}

// NewScalar returns a string scalar.
func NewScalar(s string) Node {
	return Node{kind: Scalar, tag: "!!str", value: s}
}

// NewSequence returns a sequence of items.
func NewSequence(items ...Node) Node {
	return Node{kind: Sequence, items: append([]Node(nil), items...)}
}

// NewMapping returns a mapping holding pairs in the given order.
// Panics if a key is repeated.
func NewMapping(pairs ...KeyValue) Node {
	n := Node{kind: Mapping}
	for _, p := range pairs {
		if _, ok := n.Field(p.Key); ok {
			panic(fmt.Sprintf("doctree: duplicate key %q", p.Key))
		}
		n.keys = append(n.keys, p.Key)
		n.items = append(n.items, p.Value)
	}
	return n
}

// KeyValue is one mapping entry for NewMapping.
type KeyValue struct {
	Key   string
	Value Node
}

// Parse decodes a YAML (or JSON) document. Only the first document of a
// stream is read. Empty input yields a Null node and no error.
func Parse(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Node{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Node{}, nil
	}
	return convert(doc.Content[0], 0)
}

const maxDepth = 256

func convert(y *yaml.Node, depth int) (Node, error) {
	if depth > maxDepth {
		return Node{}, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxDepth)
	}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return Node{}, nil
		}
		return convert(y.Content[0], depth+1)
	case yaml.AliasNode:
		if y.Alias == nil {
			return Node{}, fmt.Errorf("%w: dangling alias", ErrMalformed)
		}
		return convert(y.Alias, depth+1)
	case yaml.ScalarNode:
		tag := y.ShortTag()
		if tag == "!!null" {
			return Node{}, nil
		}
		return Node{kind: Scalar, tag: tag, value: y.Value}, nil
	case yaml.SequenceNode:
		n := Node{kind: Sequence, items: make([]Node, 0, len(y.Content))}
		for _, c := range y.Content {
			item, err := convert(c, depth+1)
			if err != nil {
				return Node{}, err
			}
			n.items = append(n.items, item)
		}
		return n, nil
	case yaml.MappingNode:
		return convertMapping(y, depth)
	default:
		return Node{}, fmt.Errorf("%w: unsupported node kind %d", ErrMalformed, y.Kind)
	}
}

func convertMapping(y *yaml.Node, depth int) (Node, error) {
	n := Node{kind: Mapping}
	var merged []Node
	for i := 0; i+1 < len(y.Content); i += 2 {
		k, v := y.Content[i], y.Content[i+1]
		val, err := convert(v, depth+1)
		if err != nil {
			return Node{}, err
		}
		if k.ShortTag() == "!!merge" {
			merged = append(merged, mergeSources(val)...)
			continue
		}
		key := k.Value
		if k.Kind != yaml.ScalarNode {
			return Node{}, fmt.Errorf("%w: line %d: mapping key must be a scalar", ErrMalformed, k.Line)
		}
		n.set(key, val)
	}
	// Explicit keys win over merged ones.
	for _, src := range merged {
		for i, key := range src.keys {
			if _, ok := n.Field(key); !ok {
				n.keys = append(n.keys, key)
				n.items = append(n.items, src.items[i])
			}
		}
	}
	return n, nil
}

func mergeSources(v Node) []Node {
	switch v.kind {
	case Mapping:
		return []Node{v}
	case Sequence:
		var out []Node
		for _, it := range v.items {
			if it.kind == Mapping {
				out = append(out, it)
			}
		}
		return out
	default:
		return nil
	}
}

func (n *Node) set(key string, val Node) {
	for i, k := range n.keys {
		if k == key {
			n.items[i] = val
			return
		}
	}
	n.keys = append(n.keys, key)
	n.items = append(n.items, val)
}

// Kind returns the node kind.
func (n Node) Kind() Kind { return n.kind }

// Len returns the number of items of a sequence or entries of a mapping.
func (n Node) Len() int {
	if n.kind == Sequence || n.kind == Mapping {
		return len(n.items)
	}
	return 0
}

// Empty reports whether the node carries no content: null, an empty
// collection, an empty string, false or a numeric zero.
func (n Node) Empty() bool {
	switch n.kind {
	case Null:
		return true
	case Sequence, Mapping:
		return len(n.items) == 0
	case Scalar:
		switch n.tag {
		case "!!bool":
			var b bool
			return decodeScalar(n, &b) == nil && !b
		case "!!int":
			var i int64
			return decodeScalar(n, &i) == nil && i == 0
		case "!!float":
			var f float64
			return decodeScalar(n, &f) == nil && f == 0
		default:
			return n.value == ""
		}
	default:
		return true
	}
}

// Field returns the value under key of a mapping.
func (n Node) Field(key string) (Node, bool) {
	if n.kind != Mapping {
		return Node{}, false
	}
	for i, k := range n.keys {
		if k == key {
			return n.items[i], true
		}
	}
	return Node{}, false
}

// Keys returns the mapping keys in document order.
func (n Node) Keys() []string {
	if n.kind != Mapping {
		return nil
	}
	return append([]string(nil), n.keys...)
}

// Items returns the elements of a sequence.
func (n Node) Items() ([]Node, bool) {
	if n.kind != Sequence {
		return nil, false
	}
	return append([]Node(nil), n.items...), true
}

// Str returns the text of a scalar, whatever its resolved type.
func (n Node) Str() (string, bool) {
	if n.kind != Scalar {
		return "", false
	}
	return n.value, true
}

// FieldStr is Field followed by Str.
func (n Node) FieldStr(key string) (string, bool) {
	v, ok := n.Field(key)
	if !ok {
		return "", false
	}
	return v.Str()
}

// MarshalJSON renders the node with mapping keys in document order.
// Scalars keep their resolved type; NaN and infinities become strings.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n Node) writeJSON(buf *bytes.Buffer) error {
	switch n.kind {
	case Null:
		buf.WriteString("null")
	case Scalar:
		b, err := marshalPlain(n.jsonScalar())
		if err != nil {
			return fmt.Errorf("doctree: encode scalar %q: %w", n.value, err)
		}
		buf.Write(b)
	case Sequence:
		buf.WriteByte('[')
		for i, it := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Mapping:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalPlain(k)
			if err != nil {
				return fmt.Errorf("doctree: encode key %q: %w", k, err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := n.items[i].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func (n Node) jsonScalar() any {
	switch n.tag {
	case "!!bool":
		var b bool
		if decodeScalar(n, &b) == nil {
			return b
		}
	case "!!int":
		var i int64
		if decodeScalar(n, &i) == nil {
			return i
		}
		var u uint64
		if decodeScalar(n, &u) == nil {
			return u
		}
	case "!!float":
		var f float64
		if decodeScalar(n, &f) == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return n.value
}

func marshalPlain(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func decodeScalar(n Node, out any) error {
	y := yaml.Node{Kind: yaml.ScalarNode, Tag: n.tag, Value: n.value}
	return y.Decode(out)
}

// IndentJSON renders n as indented JSON without HTML escaping and without a
// trailing newline.
func IndentJSON(n Node, indent string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(n); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
