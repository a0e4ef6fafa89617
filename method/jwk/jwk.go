// Package jwk implements the did:jwk method: a DID whose method-specific
// id is the base64url encoding of a single JSON Web Key, so resolution
// needs no network access.
package jwk

import (
	"encoding/base64"
	"encoding/json"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
)

// Resolve base64url-decodes subject's method-specific id into a JWK and
// synthesizes a Document with a single JsonWebKey verification method at
// "{did}#key-0".
func Resolve(subject did.DID) (*did.Document, error) {
	if subject.Method != string(did.MethodJwk) {
		return nil, diderr.New(diderr.KindUnsupportedMethod, "not a did:jwk identifier").WithDID(subject.String())
	}

	raw, err := base64.RawURLEncoding.DecodeString(subject.SpecID)
	if err != nil {
		return nil, diderr.Wrap(diderr.KindInvalidDid, "base64url-decoding did:jwk id", err).WithDID(subject.String())
	}
	var probe json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, diderr.Wrap(diderr.KindInvalidDid, "did:jwk id does not decode to a JSON object", err).WithDID(subject.String())
	}

	vm, err := did.NewVerificationMethodBuilder(
		did.JwkMaterial(probe), subject, did.Index("key-0"), did.TypeJsonWebKey2020,
	).Build()
	if err != nil {
		return nil, err
	}
	vmID := vm.ID.String()

	return did.NewCreateBuilder(subject).
		AddVerificationMethod(did.Embedded(vm), did.PurposeVerificationMethod).
		AddVerificationMethod(did.Reference(vmID), did.PurposeAuthentication).
		AddVerificationMethod(did.Reference(vmID), did.PurposeAssertionMethod).
		AddVerificationMethod(did.Reference(vmID), did.PurposeCapabilityInvocation).
		AddVerificationMethod(did.Reference(vmID), did.PurposeCapabilityDelegation).
		Build()
}

// Create base64url-encodes jwk into a did:jwk identifier and resolves its
// Document, mirroring original_source/src/jwk/resolver.rs's
// create-then-resolve flow (SPEC_FULL.md §6).
func Create(jwkBytes json.RawMessage) (did.DID, *did.Document, error) {
	subject := did.DID{
		Method: string(did.MethodJwk),
		SpecID: base64.RawURLEncoding.EncodeToString(jwkBytes),
	}
	doc, err := Resolve(subject)
	if err != nil {
		return did.DID{}, nil, err
	}
	return subject, doc, nil
}
