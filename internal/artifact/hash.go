package artifact

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// HashContent returns the hex-encoded 256-bit BLAKE3 digest of payload.
//
// Hashing always runs on the uncompressed payload, so identical logical
// content maps to the same id regardless of whether compression was
// applied on store.
func HashContent(payload []byte) string {
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
