// Package key implements the did:key method: a DID whose method-specific
// id is itself the subject's multibase-encoded public key, so resolution
// needs no network access at all.
package key

import (
	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/internal/mkey"
)

// Resolve synthesizes the DID Document for a did:key identifier: one
// verification method at "{did}#{multibase}", referenced from
// authentication/assertionMethod/capabilityInvocation/capabilityDelegation,
// and — when deriveKeyAgreement is true and the key is Ed25519 — an
// X25519 keyAgreement method derived from it.
func Resolve(subject did.DID, deriveKeyAgreement bool) (*did.Document, error) {
	if subject.Method != string(did.MethodKey) {
		return nil, diderr.New(diderr.KindUnsupportedMethod, "not a did:key identifier").WithDID(subject.String())
	}
	codec, _, err := mkey.Decode(subject.SpecID)
	if err != nil {
		return nil, diderr.Wrap(diderr.KindInvalidDid, "decoding did:key multibase id", err).WithDID(subject.String())
	}
	if codec != mkey.Ed25519 {
		return nil, diderr.New(diderr.KindUnsupportedAlgo, "only Ed25519 did:key identifiers are supported").WithDID(subject.String())
	}

	vm, err := did.NewVerificationMethodBuilder(
		did.MultibaseMaterial(subject.SpecID), subject, did.Verification(), did.TypeMultikey,
	).Build()
	if err != nil {
		return nil, err
	}
	vmID := vm.ID.String()

	b := did.NewCreateBuilder(subject).
		AddVerificationMethod(did.Embedded(vm), did.PurposeVerificationMethod).
		AddVerificationMethod(did.Reference(vmID), did.PurposeAuthentication).
		AddVerificationMethod(did.Reference(vmID), did.PurposeAssertionMethod).
		AddVerificationMethod(did.Reference(vmID), did.PurposeCapabilityInvocation).
		AddVerificationMethod(did.Reference(vmID), did.PurposeCapabilityDelegation)

	if deriveKeyAgreement {
		b = b.DeriveKeyAgreement(vmID)
	}

	return b.Build()
}

// Create derives the did:key identifier for an Ed25519 public key and
// resolves its Document, mirroring
// original_source/src/key/resolver.rs's create-then-resolve flow
// (SPEC_FULL.md §6, "did:key / did:jwk creation helpers").
func Create(ed25519Pub []byte, deriveKeyAgreement bool) (did.DID, *did.Document, error) {
	multibase := mkey.Encode(mkey.Ed25519, ed25519Pub)
	subject := did.DID{Method: string(did.MethodKey), SpecID: multibase}
	doc, err := Resolve(subject, deriveKeyAgreement)
	if err != nil {
		return did.DID{}, nil, err
	}
	return subject, doc, nil
}
