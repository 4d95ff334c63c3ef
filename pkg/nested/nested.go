package nested

import (
	"sort"
	"strconv"
	"strings"
)

// Notation selects how path segments are joined back into a single name.
type Notation int

const (
	// Dotted joins segments with dots: "address.city", "tags.0".
	Dotted Notation = iota
	// Subscript joins segments with brackets: "address[city]", "tags[0]".
	Subscript
)

// ParseNotation maps a configuration string onto a Notation. Unknown values
// fall back to Dotted.
func ParseNotation(raw string) Notation {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "subscript", "bracket", "brackets":
		return Subscript
	default:
		return Dotted
	}
}

// String implements fmt.Stringer.
func (n Notation) String() string {
	if n == Subscript {
		return "subscript"
	}
	return "dotted"
}

// Store reads and writes values in a tree of map[string]any and []any nodes
// addressed by hierarchical names. The zero value uses dotted notation.
type Store struct {
	Notation Notation
}

// New returns a Store using the given notation.
func New(notation Notation) Store {
	return Store{Notation: notation}
}

// Split breaks a path into segments. Dotted and subscript forms are both
// accepted and may be mixed ("items[0].name"). Empty segments are dropped.
func Split(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	segments := make([]string, 0, strings.Count(path, ".")+strings.Count(path, "[")+1)
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		switch ch := path[i]; ch {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i+1:], ']')
			if end < 0 {
				current.WriteString(path[i+1:])
				i = len(path)
				continue
			}
			if key := path[i+1 : i+1+end]; key != "" {
				segments = append(segments, key)
			}
			i += end + 1
		case ']':
			// stray closing bracket
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return segments
}

// Join builds a path from segments using the store notation.
func (s Store) Join(segments ...string) string {
	clean := make([]string, 0, len(segments))
	for _, segment := range segments {
		for _, part := range Split(segment) {
			clean = append(clean, part)
		}
	}
	if len(clean) == 0 {
		return ""
	}
	if s.Notation == Dotted {
		return strings.Join(clean, ".")
	}
	var b strings.Builder
	b.WriteString(clean[0])
	for _, segment := range clean[1:] {
		b.WriteByte('[')
		b.WriteString(segment)
		b.WriteByte(']')
	}
	return b.String()
}

// Normalize rewrites a path in the store notation.
func (s Store) Normalize(path string) string {
	return s.Join(Split(path)...)
}

// Get returns the value at path.
func (s Store) Get(tree map[string]any, path string) (any, bool) {
	segments := Split(path)
	if tree == nil || len(segments) == 0 {
		return nil, false
	}
	var current any = tree
	for _, segment := range segments {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Exists reports whether path resolves to a value (nil values count).
func (s Store) Exists(tree map[string]any, path string) bool {
	_, ok := s.Get(tree, path)
	return ok
}

// Set writes value at path, creating intermediate nodes. A numeric next
// segment creates a slice, anything else a map. Existing scalar nodes in the
// way are replaced.
func (s Store) Set(tree map[string]any, path string, value any) {
	segments := Split(path)
	if tree == nil || len(segments) == 0 {
		return
	}
	setIn(tree, segments, value)
}

// Delete removes the value at path. It reports whether anything was removed.
// Slice elements are set to nil rather than removed so sibling indices stay
// stable.
func (s Store) Delete(tree map[string]any, path string) bool {
	segments := Split(path)
	if tree == nil || len(segments) == 0 {
		return false
	}
	parent := any(tree)
	if len(segments) > 1 {
		var ok bool
		parent, ok = s.Get(tree, strings.Join(segments[:len(segments)-1], "."))
		if !ok {
			return false
		}
	}
	last := segments[len(segments)-1]
	switch node := parent.(type) {
	case map[string]any:
		if _, ok := node[last]; !ok {
			return false
		}
		delete(node, last)
		return true
	case []any:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(node) {
			return false
		}
		node[idx] = nil
		return true
	default:
		return false
	}
}

// Paths enumerates the leaf paths of tree in sorted order. Maps are always
// descended. Slices are descended only when they hold maps or slices; a slice
// of scalars is a multi-valued leaf.
func (s Store) Paths(tree map[string]any) []string {
	var out []string
	s.walk(tree, nil, &out)
	sort.Strings(out)
	return out
}

func (s Store) walk(node any, prefix []string, out *[]string) {
	switch typed := node.(type) {
	case map[string]any:
		if len(typed) == 0 && len(prefix) > 0 {
			*out = append(*out, s.Join(prefix...))
			return
		}
		for key, value := range typed {
			s.walk(value, appendSegment(prefix, key), out)
		}
	case []any:
		if !hasContainers(typed) {
			if len(prefix) > 0 {
				*out = append(*out, s.Join(prefix...))
			}
			return
		}
		for idx, value := range typed {
			s.walk(value, appendSegment(prefix, strconv.Itoa(idx)), out)
		}
	default:
		if len(prefix) > 0 {
			*out = append(*out, s.Join(prefix...))
		}
	}
}

// Clone deep-copies maps and slices; other values are shared.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = Clone(v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = Clone(v)
		}
		return out
	default:
		return typed
	}
}

// CloneMap deep-copies a tree root. A nil input yields an empty map.
func CloneMap(tree map[string]any) map[string]any {
	if tree == nil {
		return make(map[string]any)
	}
	return Clone(tree).(map[string]any)
}

func child(node any, segment string) (any, bool) {
	switch typed := node.(type) {
	case map[string]any:
		value, ok := typed[segment]
		return value, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(typed) {
			return nil, false
		}
		return typed[idx], true
	default:
		return nil, false
	}
}

func setIn(node map[string]any, segments []string, value any) {
	key := segments[0]
	if len(segments) == 1 {
		node[key] = value
		return
	}
	node[key] = setNode(node[key], segments[1:], value)
}

// setNode returns the (possibly reallocated) container holding value at
// segments below current.
func setNode(current any, segments []string, value any) any {
	segment := segments[0]
	idx, numeric := index(segment)

	if numeric {
		list, ok := current.([]any)
		if !ok {
			if m, isMap := current.(map[string]any); isMap {
				setIn(m, segments, value)
				return m
			}
			list = nil
		}
		if len(list) <= idx {
			list = append(list, make([]any, idx+1-len(list))...)
		}
		if len(segments) == 1 {
			list[idx] = value
		} else {
			list[idx] = setNode(list[idx], segments[1:], value)
		}
		return list
	}

	m, ok := current.(map[string]any)
	if !ok || m == nil {
		m = make(map[string]any)
	}
	setIn(m, segments, value)
	return m
}

func index(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return idx, true
}

func hasContainers(values []any) bool {
	for _, value := range values {
		switch value.(type) {
		case map[string]any, []any:
			return true
		}
	}
	return false
}

func appendSegment(prefix []string, segment string) []string {
	out := make([]string, len(prefix), len(prefix)+1)
	copy(out, prefix)
	return append(out, segment)
}
