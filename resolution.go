package did

import "context"

// Resolver is the hook contract for fetching remote DID artifacts
// (`did.json` for did:web, `did.jsonl` for did:webvh). Implementations own
// all I/O, retries and timeout policy; the core places no ordering
// constraint between concurrent resolutions of distinct DIDs. didweb.Client
// is the HTTP implementation of this interface.
type Resolver interface {
	// Fetch retrieves the raw bytes found at url. Implementations should
	// return an error wrapping diderr.KindNotFound on HTTP 404 and
	// diderr.KindIO on any other I/O failure.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Signer is the capability interface a controller or witness holds to
// produce Data Integrity proof signatures. Signer values are
// held by reference for the duration of a single signing call; there is no
// global registry.
type Signer interface {
	// TrySign signs msg, returning the raw signature bytes.
	TrySign(ctx context.Context, msg []byte) ([]byte, error)

	// VerifyingKey returns the raw public key bytes corresponding to the
	// signing key.
	VerifyingKey() []byte

	// Algorithm reports the signing algorithm. webvh and the Proof Engine
	// both require this to be "EdDSA"; any other value fails
	// UnsupportedAlgorithm.
	Algorithm() string

	// VerificationMethod returns the DID URL, or bare fragment, identifying
	// this key; it becomes the proof's verificationMethod. webvh takes the
	// part after '#' (the whole value when there is none) as the key's
	// multibase encoding and looks it up in updateKeys.
	VerificationMethod() string
}
