package persist

import (
	"log"
	"time"

	"github.com/dyluth/drey/pkg/backend"
)

const (
	// DefaultVersion is the schema version used when none is configured.
	DefaultVersion = 1

	// DefaultKey is the backend key used when none is configured.
	DefaultKey = "drey-state"

	// DefaultDebounce is the quiet period auto-save waits for after the
	// last change before writing.
	DefaultDebounce = time.Second
)

// Options configures a Manager. The zero value is usable: every field
// is optional and falls back to a sensible default.
type Options struct {
	// Key is the backend entry the snapshot is stored under.
	Key string

	// Version is the schema version new snapshots are tagged with.
	// Loads of older snapshots walk Migrations up to this version.
	Version int

	// Backend stores the serialized envelope. Defaults to an isolated
	// in-memory backend, which persists nothing across processes but
	// keeps the Manager fully functional.
	Backend Backend

	// Debounce is the auto-save quiet period. Changes arriving within
	// it re-arm the timer, so bursts collapse into one save.
	Debounce time.Duration

	// Include restricts persistence to these dot-paths (allow-list).
	// When set, Exclude is ignored.
	Include []string

	// Exclude drops these dot-paths from persisted snapshots.
	Exclude []string

	// Migrations maps a target schema version to the migration that
	// produces it from the previous version's shape.
	Migrations map[int]Migration

	// Compress passes the serialized envelope through gzip+base64
	// before storage.
	Compress bool

	// Checksum embeds an integrity hash of the filtered payload in the
	// envelope and verifies it on load.
	Checksum bool

	// Serializer converts envelopes to and from strings. Defaults to
	// JSONSerializer.
	Serializer Serializer

	// OnError receives every handled failure. Defaults to logging to
	// the standard logger. Failures are additionally broadcast as
	// EventError regardless of this callback.
	OnError func(error)
}

// withDefaults fills unset fields without mutating the receiver.
func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.Version <= 0 {
		o.Version = DefaultVersion
	}
	if o.Backend == nil {
		o.Backend = backend.NewMemory()
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.Serializer == nil {
		o.Serializer = JSONSerializer{}
	}
	if o.OnError == nil {
		o.OnError = func(err error) { log.Printf("drey: persistence error: %v", err) }
	}
	return o
}
