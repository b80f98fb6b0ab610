// Package state provides the in-memory state tree at the heart of drey.
//
// # Overview
//
// A Store owns a single nested tree of JSON-shaped values (maps, slices,
// scalars) addressed by dot-separated paths such as "user.settings.theme".
// It is the one place application state lives; everything else in drey
// (persistence, the CLI) observes or snapshots it.
//
// # Isolation
//
// Every value that crosses the Store boundary is deep-copied, in both
// directions. Callers can never mutate the live tree through a value
// returned by Get or Snapshot, and mutating a value after passing it to
// Set has no effect on the tree. This is the Store's only integrity
// guarantee - values are not type-checked.
//
// # Paths
//
// Paths are split on every "." with no escape syntax, so keys must not
// contain literal dots. Writing through a path whose intermediate segment
// holds a non-map value replaces that value with an empty map ("spine
// coercion"); this is intentional and relied upon by callers that lay
// down structure lazily.
//
// # Subscriptions
//
// Subscribers are notified synchronously, inside the Set or Update call
// that produced the change. Subscribe to a concrete path for that path's
// writes, or to state.Wildcard for every change. A batched Update delivers
// exactly one notification carrying all written paths.
//
// # Usage Example
//
//	store := state.NewStore()
//	store.Set("user.name", "alice")
//
//	cancel := store.Subscribe("user.name", func(c state.Change) {
//		fmt.Println("name is now", c.Value)
//	})
//	defer cancel()
//
//	name, ok := store.Get("user.name")
package state
