package persist

import "github.com/dyluth/drey/pkg/state"

// applyFilter reduces a snapshot to the paths that should be persisted.
// An allow-list (include) wins over a deny-list (exclude) when both are
// supplied. The snapshot is already a private deep copy, so exclusion
// mutates it in place and inclusion moves subtrees without re-copying.
// Filtering happens only at save time; the live tree is never touched.
func applyFilter(snapshot map[string]any, include, exclude []string) map[string]any {
	if len(include) > 0 {
		picked := make(map[string]any)
		for _, path := range include {
			if v, ok := state.Lookup(snapshot, path); ok {
				state.Insert(picked, path, v)
			}
		}
		return picked
	}

	for _, path := range exclude {
		state.Remove(snapshot, path)
	}
	return snapshot
}
