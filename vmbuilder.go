package did

import (
	"encoding/json"

	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/internal/canon"
)

// KeyMaterial wraps either a multibase string or a JWK for use with
// VerificationMethodBuilder; the two constructors below are its only
// producers, mirroring the Relationship embedded-or-reference union.
type KeyMaterial struct {
	multibase string
	jwk       json.RawMessage
}

// MultibaseMaterial wraps a multibase-encoded public key.
func MultibaseMaterial(s string) KeyMaterial { return KeyMaterial{multibase: s} }

// JwkMaterial wraps a raw JSON Web Key.
func JwkMaterial(raw json.RawMessage) KeyMaterial { return KeyMaterial{jwk: raw} }

func (k KeyMaterial) hasMultibase() bool { return k.multibase != "" }
func (k KeyMaterial) hasJwk() bool       { return len(k.jwk) > 0 }

// VerificationMethodBuilder builds a single VerificationMethod, deriving
// its id according to a KeyIDScheme and cross-checking key material
// against type.
type VerificationMethodBuilder struct {
	material   KeyMaterial
	subject    DID
	scheme     KeyIDScheme
	typ        MethodType
	controller DID
	context    []any
	err        error
}

// NewVerificationMethodBuilder starts a builder for a method belonging to
// subject, using scheme to derive the method's id fragment and typ as its
// declared "type". The controller defaults to subject.
func NewVerificationMethodBuilder(material KeyMaterial, subject DID, scheme KeyIDScheme, typ MethodType) *VerificationMethodBuilder {
	return &VerificationMethodBuilder{
		material:   material,
		subject:    subject,
		scheme:     scheme,
		typ:        typ,
		controller: subject,
	}
}

// WithController overrides the default controller (subject).
func (b *VerificationMethodBuilder) WithController(controller DID) *VerificationMethodBuilder {
	if b.err != nil {
		return b
	}
	b.controller = controller
	return b
}

// WithContext appends c to the method's local @context.
func (b *VerificationMethodBuilder) WithContext(c any) *VerificationMethodBuilder {
	if b.err != nil {
		return b
	}
	b.context = append(b.context, c)
	return b
}

// Build derives the method id per b.scheme, assembles the
// VerificationMethod, and validates type/material consistency.
func (b *VerificationMethodBuilder) Build() (*VerificationMethod, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.material.hasMultibase() && !b.material.hasJwk() {
		return nil, diderr.New(diderr.KindInvalidKey, "verification method requires key material")
	}

	var fragment string
	switch b.scheme.kind {
	case "did":
		// no fragment: vm.id == subject
	case "auth":
		fragment = b.scheme.arg
	case "verification":
		switch {
		case b.material.hasMultibase():
			fragment = b.material.multibase
		case b.material.hasJwk():
			hash, err := canon.Hash(b.material.jwk)
			if err != nil {
				return nil, diderr.Wrap(diderr.KindInvalidKey, "failed to derive verification method id from jwk", err)
			}
			fragment = hash
		}
	case "index":
		fragment = b.scheme.arg
	default:
		return nil, diderr.New(diderr.KindInvalidOperation, "unknown KeyIDScheme")
	}

	vm := &VerificationMethod{
		ID:         URL{DID: b.subject, Fragment: fragment},
		Type:       b.typ,
		Controller: b.controller,
		Context:    b.context,
	}
	if b.material.hasMultibase() {
		vm.PublicKeyMultibase = b.material.multibase
	}
	if b.material.hasJwk() {
		vm.PublicKeyJwk = b.material.jwk
	}

	if err := vm.validate(); err != nil {
		return nil, err
	}
	return vm, nil
}
