package state

import "strings"

// Wildcard is the subscription path that matches every change.
const Wildcard = "*"

// Lookup returns the value stored at a dot-separated path within tree,
// or (nil, false) if any segment is structurally absent. The returned
// value aliases the tree; callers that need isolation should Clone it.
func Lookup(tree map[string]any, path string) (any, bool) {
	return lookup(tree, splitPath(path))
}

// Insert writes value at a dot-separated path within tree, creating
// missing intermediate maps and coercing non-map values found mid-path
// into empty maps. An empty path is a no-op.
func Insert(tree map[string]any, path string, value any) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return
	}
	insert(tree, segs, value)
}

// Remove deletes the value at a dot-separated path within tree.
// Absent paths are a no-op.
func Remove(tree map[string]any, path string) {
	remove(tree, splitPath(path))
}

// splitPath splits a dot-separated path into its segments.
// The empty path addresses the whole tree and yields no segments.
// There is no escape syntax: a key containing a literal "." cannot
// be addressed and will be split.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// lookup walks the tree along segs and returns the value found there.
// A structurally absent path (missing key, or a non-map mid-path)
// returns (nil, false) - never an error.
func lookup(tree map[string]any, segs []string) (any, bool) {
	var current any = tree
	for _, seg := range segs {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// insert writes value at segs, creating missing intermediate maps and
// overwriting any non-map value found mid-path with an empty map (spine
// coercion). segs must be non-empty. The value is stored as given; the
// caller is responsible for copying.
func insert(tree map[string]any, segs []string, value any) {
	node := tree
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = value
}

// remove deletes the value at segs if present. Absent paths are a no-op;
// intermediate maps are left in place even when emptied.
func remove(tree map[string]any, segs []string) {
	if len(segs) == 0 {
		return
	}
	node := tree
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return
		}
		node = child
	}
	delete(node, segs[len(segs)-1])
}
