package webvh

import (
	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/internal/canon"
)

// entryHash returns multibase(base58btc, SHA256(JCS(e))) with proof
// stripped, the hash used for both entry-chaining and SCID derivation.
func entryHash(e LogEntry) (string, error) {
	h, err := canon.Hash(e.withoutProof())
	if err != nil {
		return "", diderr.Wrap(diderr.KindInvalidLog, "canonicalizing log entry", err)
	}
	return h, nil
}

// keyHash returns multibase(SHA256(k_multibase)), the commitment used for
// nextKeyHashes/pre-rotation.
func keyHash(multibaseKey string) string {
	return canon.HashBytes([]byte(multibaseKey))
}
