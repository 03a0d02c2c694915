// Package variables flattens webhook payloads into addressable template
// variables and renders {{path}} templates against them.
//
// Payloads are decoded into an ordered Value tree so that object keys keep
// their document order. Strings holding JSON objects or arrays are treated as
// if they were native structure, both when discovering variables and when
// resolving template paths.
package variables

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// MaxDepth bounds how deep discovery and path resolution descend. Containers
// below it are reported as opaque leaves and strings are not parsed.
const MaxDepth = 32

// Kind identifies the JSON type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value *Value
}

// Value is a decoded JSON value that preserves object key order.
type Value struct {
	Kind    Kind
	Bool    bool
	Number  json.Number
	Str     string
	Items   []*Value
	Members []Member

	// raw is the source text of arrays and objects.
	raw []byte
}

var errTrailingData = errors.New("variables: unexpected data after top-level value")

type parseFrame struct {
	value  *Value
	key    string
	hasKey bool
	index  map[string]int
}

// Parse decodes data into a Value. It walks the token stream with an explicit
// stack, so arbitrarily deep documents do not grow the call stack. Duplicate
// object keys keep their first position and their last value.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var (
		root   *Value
		stack  []*parseFrame
		starts []int64
	)

	attach := func(v *Value) {
		if len(stack) == 0 {
			root = v
			return
		}
		top := stack[len(stack)-1]
		if top.value.Kind == KindArray {
			top.value.Items = append(top.value.Items, v)
			return
		}
		if i, ok := top.index[top.key]; ok {
			top.value.Members[i].Value = v
		} else {
			top.index[top.key] = len(top.value.Members)
			top.value.Members = append(top.value.Members, Member{Key: top.key, Value: v})
		}
		top.key, top.hasKey = "", false
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("variables: decoding payload: %w", err)
		}

		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				v := &Value{Kind: KindObject}
				if t == '[' {
					v.Kind = KindArray
				}
				attach(v)
				frame := &parseFrame{value: v}
				if v.Kind == KindObject {
					frame.index = make(map[string]int)
				}
				stack = append(stack, frame)
				starts = append(starts, dec.InputOffset()-1)
			case '}', ']':
				top := stack[len(stack)-1]
				top.value.raw = data[starts[len(starts)-1]:dec.InputOffset()]
				stack = stack[:len(stack)-1]
				starts = starts[:len(starts)-1]
			}
		case string:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.value.Kind == KindObject && !top.hasKey {
					top.key, top.hasKey = t, true
					continue
				}
			}
			attach(&Value{Kind: KindString, Str: t})
		case json.Number:
			attach(&Value{Kind: KindNumber, Number: t})
		case bool:
			attach(&Value{Kind: KindBool, Bool: t})
		case nil:
			attach(&Value{Kind: KindNull})
		}

		if len(stack) == 0 && root != nil {
			break
		}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return root, nil
}

// IsContainer reports whether v is an object or an array.
func (v *Value) IsContainer() bool {
	return v != nil && (v.Kind == KindObject || v.Kind == KindArray)
}

// Get returns the member named key, or nil.
func (v *Value) Get(key string) *Value {
	if v == nil || v.Kind != KindObject {
		return nil
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// Index returns the array element addressed by a canonical decimal index, or nil.
func (v *Value) Index(segment string) *Value {
	if v == nil || v.Kind != KindArray {
		return nil
	}
	i, err := strconv.Atoi(segment)
	if err != nil || i < 0 || i >= len(v.Items) || strconv.Itoa(i) != segment {
		return nil
	}
	return v.Items[i]
}

// Compact returns the compact JSON text of v.
func (v *Value) Compact() string {
	if v == nil {
		return "null"
	}
	switch v.Kind {
	case KindObject, KindArray:
		var buf bytes.Buffer
		if err := json.Compact(&buf, v.raw); err != nil {
			return string(v.raw)
		}
		return buf.String()
	case KindString:
		b, _ := json.Marshal(v.Str)
		return string(b)
	default:
		return v.Text()
	}
}

// Text returns the textual form used in samples and rendered output.
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return formatNumber(v.Number)
	case KindString:
		return v.Str
	default:
		return v.Compact()
	}
}

// TypeName is the kind label reported for leaf variables.
func (v *Value) TypeName() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "Array"
	default:
		return "object"
	}
}

// coerce returns the structured value encoded in a string, if any. It is the
// single step both discovery and rendering use to look through JSON text.
func coerce(v *Value, depth int) (*Value, bool) {
	if v == nil || v.Kind != KindString || depth >= MaxDepth {
		return nil, false
	}
	s := strings.TrimSpace(v.Str)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}
	parsed, err := Parse([]byte(s))
	if err != nil || !parsed.IsContainer() {
		return nil, false
	}
	return parsed, true
}

func formatNumber(n json.Number) string {
	s := n.String()
	if isIntegerLiteral(s) {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isIntegerLiteral(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
