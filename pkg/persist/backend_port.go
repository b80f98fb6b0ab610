package persist

// Backend is the synchronous key→string store snapshots are written to.
// Any conforming implementation is interchangeable; pkg/backend ships
// memory, file and Redis implementations.
//
// GetItem returns (value, true, nil) when the key exists and
// ("", false, nil) when it does not. Errors are reserved for the store
// itself being unreachable or unreadable.
type Backend interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}
