// Package proof constructs and verifies W3C Data Integrity proofs using
// the eddsa-jcs-2022 cryptosuite: Ed25519 signatures over the
// concatenation of the SHA-256 hashes of the JCS-canonicalized proof
// config and data.
// Grounded on github.com/dimkr/tootik's proof package, which implements
// the identical FEP-8b32 cryptosuite for ActivityPub objects.
package proof

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"time"

	"github.com/mr-tron/base58"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/internal/canon"
)

const (
	Type        = "DataIntegrityProof"
	CryptoSuite = "eddsa-jcs-2022"

	PurposeAuthentication  = "authentication"
	PurposeAssertionMethod = "assertionMethod"
)

// Proof is a single W3C Data Integrity proof.
type Proof struct {
	Type                string     `json:"type"`
	CryptoSuite         string     `json:"cryptosuite"`
	VerificationMethod  string     `json:"verificationMethod"`
	Purpose             string     `json:"proofPurpose"`
	Created             time.Time  `json:"created"`
	Expires             *time.Time `json:"expires,omitempty"`
	ProofValue          string     `json:"proofValue,omitempty"`
	Domain              string     `json:"domain,omitempty"`
	Challenge           string     `json:"challenge,omitempty"`
	PreviousProof       string     `json:"previousProof,omitempty"`
	Nonce               string     `json:"nonce,omitempty"`
}

// config is the subset of Proof fields canonicalized into configHash; it
// deliberately excludes proofValue.
type config struct {
	Type                string     `json:"type"`
	CryptoSuite         string     `json:"cryptosuite"`
	VerificationMethod  string     `json:"verificationMethod"`
	Purpose             string     `json:"proofPurpose"`
	Created             time.Time  `json:"created"`
	Expires             *time.Time `json:"expires,omitempty"`
	Domain              string     `json:"domain,omitempty"`
	Challenge           string     `json:"challenge,omitempty"`
	PreviousProof       string     `json:"previousProof,omitempty"`
	Nonce               string     `json:"nonce,omitempty"`
}

func (p *Proof) config() config {
	return config{
		Type:               Type,
		CryptoSuite:        CryptoSuite,
		VerificationMethod: p.VerificationMethod,
		Purpose:            p.Purpose,
		Created:            p.Created,
		Expires:            p.Expires,
		Domain:             p.Domain,
		Challenge:          p.Challenge,
		PreviousProof:      p.PreviousProof,
		Nonce:              p.Nonce,
	}
}

// Sign builds a proof over data (the target object serialized without any
// "proof" member) using signer, stamping Created with now. purpose must be
// PurposeAuthentication or PurposeAssertionMethod.
func Sign(ctx context.Context, data any, signer did.Signer, purpose string, now time.Time) (*Proof, error) {
	return SignWithNonce(ctx, data, signer, purpose, now, "")
}

// SignWithNonce behaves like Sign but stamps the proof's Nonce passthrough
// property before hashing, so it is covered by the signature like
// every other config field. Callers wanting replay protection should pass
// proof.NewNonce() and keep a record of which nonce they expect back on
// Verify; Verify itself treats Nonce as opaque.
func SignWithNonce(ctx context.Context, data any, signer did.Signer, purpose string, now time.Time, nonce string) (*Proof, error) {
	if signer.Algorithm() != "EdDSA" {
		return nil, diderr.New(diderr.KindUnsupportedAlgo, "signer algorithm must be EdDSA").WithURL(signer.VerificationMethod())
	}
	if purpose != PurposeAuthentication && purpose != PurposeAssertionMethod {
		return nil, diderr.New(diderr.KindInvalidOperation, "proofPurpose must be authentication or assertionMethod")
	}

	p := &Proof{
		Type:               Type,
		CryptoSuite:        CryptoSuite,
		VerificationMethod: signer.VerificationMethod(),
		Purpose:            purpose,
		Created:            now.UTC().Truncate(time.Second),
		Nonce:              nonce,
	}

	configHash, err := canon.Digest(p.config())
	if err != nil {
		return nil, diderr.Wrap(diderr.KindInvalidOperation, "canonicalizing proof config", err)
	}
	dataHash, err := canon.Digest(data)
	if err != nil {
		return nil, diderr.Wrap(diderr.KindInvalidOperation, "canonicalizing proof data", err)
	}

	msg := append(append([]byte(nil), configHash[:]...), dataHash[:]...)
	sig, err := signer.TrySign(ctx, msg)
	if err != nil {
		return nil, diderr.Wrap(diderr.KindInvalidSignature, "signing proof", err)
	}
	p.ProofValue = "z" + base58.Encode(sig)
	return p, nil
}

// Verify checks p against data: structural shape, recomputed hashes, and
// the Ed25519 signature under verifyingKey. It never performs network I/O —
// the caller is responsible for resolving verifyingKey from
// p.VerificationMethod before calling Verify.
func Verify(data any, p *Proof, verifyingKey []byte) error {
	if p.Type != Type {
		return diderr.New(diderr.KindInvalidSignature, "unexpected proof type: "+p.Type)
	}
	if p.CryptoSuite != CryptoSuite {
		return diderr.New(diderr.KindUnsupportedSuite, "unexpected cryptosuite: "+p.CryptoSuite)
	}
	if p.Purpose != PurposeAuthentication && p.Purpose != PurposeAssertionMethod {
		return diderr.New(diderr.KindInvalidOperation, "unexpected proofPurpose: "+p.Purpose)
	}
	if len(p.ProofValue) < 2 || p.ProofValue[0] != 'z' {
		return diderr.New(diderr.KindInvalidSignature, "proofValue is not a z-prefixed multibase string")
	}

	configHash, err := canon.Digest(p.config())
	if err != nil {
		return diderr.Wrap(diderr.KindInvalidOperation, "canonicalizing proof config", err)
	}
	dataHash, err := canon.Digest(data)
	if err != nil {
		return diderr.Wrap(diderr.KindInvalidOperation, "canonicalizing proof data", err)
	}

	sig, err := base58.Decode(p.ProofValue[1:])
	if err != nil {
		return diderr.Wrap(diderr.KindInvalidSignature, "decoding proofValue", err)
	}

	msg := append(append([]byte(nil), configHash[:]...), dataHash[:]...)
	if !verifyEd25519(verifyingKey, msg, sig) {
		return diderr.New(diderr.KindInvalidSignature, "signature verification failed").WithURL(p.VerificationMethod)
	}
	return nil
}

// MarshalJSON preserves field order matching the canonical W3C Data
// Integrity wire shape (type, cryptosuite, verificationMethod,
// proofPurpose, created, ...).
func (p *Proof) MarshalJSON() ([]byte, error) {
	type alias Proof
	return json.Marshal((*alias)(p))
}

func verifyEd25519(pub, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}
