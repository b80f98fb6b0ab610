package persist

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// checksumTree computes a stable hex checksum of a payload tree.
//
// The tree is first encoded as canonical JSON - encoding/json sorts map
// keys, so the byte stream is deterministic for a given tree - and the
// bytes are hashed with xxhash64. The contract only needs a stable,
// deterministic hash; cryptographic strength is not required.
func checksumTree(tree map[string]any) (string, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload for checksum: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16), nil
}
