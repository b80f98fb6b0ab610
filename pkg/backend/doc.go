// Package backend provides storage backends for drey's persistence
// layer: an in-memory map, a directory of files, and Redis.
//
// All three satisfy the same synchronous key→string contract
// (persist.Backend): GetItem reports absence as (ok=false) rather than
// an error, and errors mean the store itself misbehaved. Backends are
// safe for concurrent use.
package backend
