// Package canon implements the JSON Canonicalization Scheme (RFC 8785) glue
// used identically for SCID derivation, webvh entry hashing, and Data
// Integrity proof signing/verification. See gowebpki/jcs, which this
// package wraps the same way github.com/dimkr/tootik's proof package wraps
// it for its own eddsa-jcs-2022 implementation.
package canon

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/gowebpki/jcs"
	"github.com/mr-tron/base58"
)

// JSON marshals v with encoding/json and then transforms the result into
// RFC 8785 canonical form: UTF-8, lexicographically sorted object members,
// no insignificant whitespace, numbers in shortest round-trippable form.
func JSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// Hash returns multibase(base58btc, SHA256(canonical_json(v))).
func Hash(v any) (string, error) {
	canonical, err := JSON(v)
	if err != nil {
		return "", err
	}
	return HashBytes(canonical), nil
}

// HashBytes returns multibase(base58btc, SHA256(b)) for already-canonical
// bytes.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "z" + base58.Encode(sum[:])
}

// Digest returns the raw SHA-256 digest of v's canonical JSON, for use as
// proof signing/verification input (configHash / dataHash).
func Digest(v any) ([32]byte, error) {
	canonical, err := JSON(v)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(canonical), nil
}
