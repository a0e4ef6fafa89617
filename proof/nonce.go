package proof

import "github.com/google/uuid"

// NewNonce returns a fresh opaque nonce suitable for a Proof's Nonce field.
// Proof verification never inspects Nonce's contents; callers that want
// replay protection generate one per signing call and compare it out of
// band.
func NewNonce() string {
	return uuid.NewString()
}
