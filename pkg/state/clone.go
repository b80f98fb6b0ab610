package state

// Clone returns a deep copy of a JSON-shaped value: nested
// map[string]any and []any are copied recursively, everything else is
// returned as-is. Scalars (strings, numbers, bools, nil) are immutable
// in Go so returning them directly is safe; other reference types are
// not part of the tree's value model and are stored untouched.
func Clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = Clone(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = Clone(child)
		}
		return out
	default:
		return val
	}
}

// cloneTree deep-copies a whole tree, treating nil as an empty tree.
func cloneTree(tree map[string]any) map[string]any {
	if tree == nil {
		return make(map[string]any)
	}
	return Clone(tree).(map[string]any)
}
