package persist

import "errors"

// Every failure the Manager can hit maps onto one of these sentinels.
// Errors routed to the error callback wrap a sentinel, so callers can
// branch with errors.Is.
var (
	// ErrBackendUnavailable wraps backend read/write failures.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrCorruptEntry wraps deserialization failures and envelope
	// shape mismatches.
	ErrCorruptEntry = errors.New("persisted entry is corrupt")

	// ErrIntegrityMismatch indicates the recomputed payload checksum
	// disagrees with the stored one.
	ErrIntegrityMismatch = errors.New("integrity checksum mismatch")

	// ErrMigrationFailed wraps a migration step that returned an error
	// or a malformed tree.
	ErrMigrationFailed = errors.New("schema migration failed")
)

// IsCorrupt returns true if err indicates the persisted entry cannot be
// trusted, whether it failed to decode or failed integrity verification.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptEntry) || errors.Is(err, ErrIntegrityMismatch)
}
