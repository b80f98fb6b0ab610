// Package persist keeps a state.Store durable across restarts.
//
// # Overview
//
// A Manager watches a state.Store and writes snapshots of it, wrapped in
// a versioned envelope, through a pluggable Serializer to a pluggable
// Backend. Loading reverses the pipeline: read, optionally decompress,
// deserialize, verify the integrity checksum, migrate the payload
// forward through registered schema migrations, and hand the result to
// the store in a single Initialize call.
//
// # Auto-save
//
// The Manager subscribes to the store's wildcard channel at construction.
// Every change re-arms a single debounce timer, so a burst of writes
// collapses into one save reflecting the last state. Direct Save and
// Load calls run synchronously and are not coalesced.
//
// # Failure model
//
// Save, Load, Initialize and Clear never panic and never surface errors
// to the caller: every failure (backend unavailable, corrupt entry,
// checksum mismatch, migration failure) is routed to the configured
// error callback and broadcast as an EventError. A failed Load leaves
// the store untouched; a failed Save leaves the previously persisted
// entry untouched, because the backend write is the final step of the
// pipeline.
//
// # Usage Example
//
//	store := state.NewStore()
//	mgr := persist.NewManager(store, persist.Options{
//		Key:      "myapp-state",
//		Version:  2,
//		Backend:  backend.NewMemory(),
//		Checksum: true,
//		Migrations: map[int]persist.Migration{
//			2: renameLegacyKeys,
//		},
//	})
//	defer mgr.Close()
//
//	mgr.Initialize()             // restore previous snapshot, if any
//	store.Set("user.name", "al") // debounced auto-save kicks in
package persist
