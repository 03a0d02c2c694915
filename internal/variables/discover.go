package variables

import (
	"encoding/json"
	"strconv"
)

// Variable is one addressable leaf of a payload.
type Variable struct {
	Key    string `json:"key"`
	Type   string `json:"type"`
	Sample string `json:"sample"`
}

type discoverFrame struct {
	// leaf frames emit v as a variable; the rest enumerate v's members.
	leaf  bool
	path  string
	v     *Value
	depth int
}

// Discover parses raw and flattens it. Invalid JSON and non-container roots
// yield an empty list.
func Discover(raw json.RawMessage) []Variable {
	if len(raw) == 0 {
		return []Variable{}
	}
	v, err := Parse(raw)
	if err != nil {
		return []Variable{}
	}
	return DiscoverValue(v)
}

// DiscoverValue flattens an already parsed payload.
//
// Objects are walked in key order and nested objects contribute dotted
// paths. Arrays that are members of a container are reported as a single
// "Array" variable. A string holding a JSON object or array contributes its
// members under the string's own path, followed by the string itself.
func DiscoverValue(root *Value) []Variable {
	out := []Variable{}
	if !root.IsContainer() {
		return out
	}

	stack := []discoverFrame{{path: "", v: root, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.leaf {
			out = append(out, leafVariable(f.path, f.v))
			continue
		}

		children := members(f.v)
		for i := len(children) - 1; i >= 0; i-- {
			c := children[i]
			path := joinPath(f.path, c.Key)
			depth := f.depth + 1

			switch c.Value.Kind {
			case KindObject:
				if depth >= MaxDepth {
					stack = append(stack, discoverFrame{leaf: true, path: path, v: c.Value})
					continue
				}
				stack = append(stack, discoverFrame{path: path, v: c.Value, depth: depth})
			case KindString:
				stack = append(stack, discoverFrame{leaf: true, path: path, v: c.Value})
				if parsed, ok := coerce(c.Value, depth); ok {
					stack = append(stack, discoverFrame{path: path, v: parsed, depth: depth})
				}
			default:
				stack = append(stack, discoverFrame{leaf: true, path: path, v: c.Value})
			}
		}
	}
	return out
}

func members(v *Value) []Member {
	if v.Kind == KindObject {
		return v.Members
	}
	out := make([]Member, len(v.Items))
	for i, item := range v.Items {
		out[i] = Member{Key: strconv.Itoa(i), Value: item}
	}
	return out
}

func leafVariable(path string, v *Value) Variable {
	sample := v.Text()
	if v.IsContainer() {
		sample = v.Compact()
	}
	return Variable{Key: path, Type: v.TypeName(), Sample: sample}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
