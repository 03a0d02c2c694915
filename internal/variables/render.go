package variables

import (
	"encoding/json"
	"regexp"
	"strings"
)

var markerPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Render replaces every {{path}} marker in tmpl with the value found at path
// in raw. Unresolvable paths render as the empty string; text outside markers
// is copied unchanged.
func Render(tmpl string, raw json.RawMessage) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	var root *Value
	if len(raw) > 0 {
		if v, err := Parse(raw); err == nil {
			root = v
		}
	}
	return RenderValue(tmpl, root)
}

// RenderValue is Render against a parsed payload.
func RenderValue(tmpl string, root *Value) string {
	return markerPattern.ReplaceAllStringFunc(tmpl, func(marker string) string {
		path := strings.TrimSpace(marker[2 : len(marker)-2])
		v, ok := Lookup(root, path)
		if !ok {
			return ""
		}
		return format(v)
	})
}

// Lookup resolves a dotted path against root. Strings met along the way are
// parsed as JSON; a string that is not a JSON object or array ends the lookup.
func Lookup(root *Value, path string) (*Value, bool) {
	segments := strings.Split(path, ".")
	if len(segments) > MaxDepth {
		return nil, false
	}

	current := root
	for depth, seg := range segments {
		if current == nil {
			return nil, false
		}
		if current.Kind == KindString {
			parsed, ok := coerce(current, depth)
			if !ok {
				return nil, false
			}
			current = parsed
		}
		switch current.Kind {
		case KindObject:
			current = current.Get(seg)
		case KindArray:
			current = current.Index(seg)
		default:
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func format(v *Value) string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindArray:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			switch item.Kind {
			case KindNull:
				parts[i] = ""
			case KindArray, KindObject:
				parts[i] = item.Compact()
			default:
				parts[i] = item.Text()
			}
		}
		return strings.Join(parts, ", ")
	default:
		return v.Text()
	}
}
