package did

import (
	"fmt"
	"time"

	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/internal/mkey"
)

// KeyIDScheme selects how a VerificationMethod's id is constructed from its
// key material.
type KeyIDScheme struct {
	kind string
	arg  string
}

// Did builds vm.id = did (no fragment).
func Did() KeyIDScheme { return KeyIDScheme{kind: "did"} }

// Authorization builds vm.id = "{did}#{authKey}".
func Authorization(multibaseAuthKey string) KeyIDScheme {
	return KeyIDScheme{kind: "auth", arg: multibaseAuthKey}
}

// Verification builds vm.id = "{did}#{multibaseOfVmKey}" for multibase key
// material. For JWK material the fragment is the multibase SHA-256 hash of
// the JWK's canonical JSON, not a multibase encoding of the key itself.
func Verification() KeyIDScheme { return KeyIDScheme{kind: "verification"} }

// Index builds vm.id = "{did}#{prefix}"; prefix may embed an incrementing
// label such as "key-0".
func Index(prefix string) KeyIDScheme { return KeyIDScheme{kind: "index", arg: prefix} }

// Embedded wraps a VerificationMethod for use as an embedded relationship
// entry; Reference wraps a DID URL string for use as a referenced entry.
// Together they form the embedded-or-reference union a relationship
// entry's "kind" switches on.
type RelEntry struct {
	method *VerificationMethod
	ref    string
}

// Embedded returns a RelEntry wrapping an embedded VerificationMethod.
func Embedded(m *VerificationMethod) RelEntry { return RelEntry{method: m} }

// Reference returns a RelEntry wrapping a DID URL reference string.
func Reference(id string) RelEntry { return RelEntry{ref: id} }

func (e RelEntry) isEmbedded() bool { return e.method != nil }

// DocumentBuilder is the shared typestate accumulator behind both
// CreateBuilder and UpdateBuilder: a move-only value builder whose
// operations each return the builder for chaining, deferring every
// structural error to Build(), the way PatchBuilder defers to its own
// Build(). Go has no linear-type
// enforcement, so the Create/Update split is carried only by the `create`
// flag and the two thin constructors below rather than by a distinct type
// per capability state.
type DocumentBuilder struct {
	doc    *Document
	create bool
	err    error

	keyIndex int // next auto-incrementing "key-N" label for addVerifyingKey
}

// NewCreateBuilder starts a Create builder with an empty document for did.
func NewCreateBuilder(subject DID) *DocumentBuilder {
	return &DocumentBuilder{
		doc: &Document{
			Subject: subject,
			Context: []any{V1},
		},
		create: true,
	}
}

// NewUpdateBuilder starts an Update builder preserving doc's existing
// fields. doc is deep-copied so mutating the builder never mutates the
// caller's value; Document values are immutable snapshots.
func NewUpdateBuilder(doc *Document) *DocumentBuilder {
	return &DocumentBuilder{doc: cloneDocument(doc), create: false}
}

func cloneDocument(doc *Document) *Document {
	c := *doc
	c.Context = append([]any(nil), doc.Context...)
	c.AlsoKnownAs = append([]string(nil), doc.AlsoKnownAs...)
	c.Controllers = append(Set(nil), doc.Controllers...)
	c.VerificationMethods = append([]*VerificationMethod(nil), doc.VerificationMethods...)
	c.Services = append([]*Service(nil), doc.Services...)
	c.Authentication = cloneRelationship(doc.Authentication)
	c.AssertionMethod = cloneRelationship(doc.AssertionMethod)
	c.KeyAgreement = cloneRelationship(doc.KeyAgreement)
	c.CapabilityInvocation = cloneRelationship(doc.CapabilityInvocation)
	c.CapabilityDelegation = cloneRelationship(doc.CapabilityDelegation)
	return &c
}

func cloneRelationship(r *Relationship) *Relationship {
	if r == nil {
		return nil
	}
	return &Relationship{
		Methods: append([]*VerificationMethod(nil), r.Methods...),
		URIRefs: append([]string(nil), r.URIRefs...),
	}
}

func (b *DocumentBuilder) fail(err error) *DocumentBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// AlsoKnownAs appends uri to the alsoKnownAs list.
func (b *DocumentBuilder) AlsoKnownAs(uri string) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	b.doc.AlsoKnownAs = append(b.doc.AlsoKnownAs, uri)
	return b
}

// AddController appends did to the controller set, collapsing
// one-vs-many on mutation.
func (b *DocumentBuilder) AddController(did DID) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	b.doc.Controllers = append(b.doc.Controllers, did)
	return b
}

// RemoveController removes did from the controller set; fails NotFound if
// absent, and empties the slot when removing the last entry.
func (b *DocumentBuilder) RemoveController(did DID) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	idx := -1
	for i, c := range b.doc.Controllers {
		if c == did {
			idx = i
			break
		}
	}
	if idx < 0 {
		return b.fail(diderr.New(diderr.KindNotFound, "controller not present: "+did.String()))
	}
	b.doc.Controllers = append(b.doc.Controllers[:idx], b.doc.Controllers[idx+1:]...)
	return b
}

// AddService appends s to the services list.
func (b *DocumentBuilder) AddService(s *Service) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	if !idPattern.MatchString(s.ID) {
		return b.fail(diderr.New(diderr.KindInvalidPatch, "service id contains disallowed characters: "+s.ID))
	}
	if err := ValidateService(s); err != nil {
		return b.fail(err)
	}
	b.doc.Services = append(b.doc.Services, s)
	return b
}

// RemoveService removes the service with id; fails NotFound if absent.
func (b *DocumentBuilder) RemoveService(id string) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	idx := -1
	for i, s := range b.doc.Services {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return b.fail(diderr.New(diderr.KindNotFound, "service not present: "+id))
	}
	b.doc.Services = append(b.doc.Services[:idx], b.doc.Services[idx+1:]...)
	return b
}

// AddContext appends c to the @context list (the base V1 context is
// always re-appended by Build, so callers need not add it themselves).
func (b *DocumentBuilder) AddContext(c any) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	b.doc.Context = append(b.doc.Context, c)
	return b
}

// RemoveContext removes the first occurrence of c from the @context list.
func (b *DocumentBuilder) RemoveContext(c string) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	for i, existing := range b.doc.Context {
		if s, ok := existing.(string); ok && s == c {
			b.doc.Context = append(b.doc.Context[:i], b.doc.Context[i+1:]...)
			return b
		}
	}
	return b
}

// AddVerificationMethod installs entry under purpose. purpose may be
// PurposeVerificationMethod for the standalone list (which requires
// entry to be embedded) or any of the five relationship slots.
// PurposeKeyAgreement rejects a reference entry: a key used for
// encryption must not double as a signing reference.
func (b *DocumentBuilder) AddVerificationMethod(entry RelEntry, purpose Purpose) *DocumentBuilder {
	if b.err != nil {
		return b
	}

	if purpose == PurposeVerificationMethod {
		if !entry.isEmbedded() {
			return b.fail(diderr.New(diderr.KindInvalidOperation, "verificationMethod list requires an embedded method"))
		}
		b.doc.VerificationMethods = append(b.doc.VerificationMethods, entry.method)
		return b
	}

	if purpose == PurposeKeyAgreement && !entry.isEmbedded() {
		return b.fail(diderr.New(diderr.KindInvalidOperation, "keyAgreement requires an embedded method, not a reference"))
	}

	r := b.doc.relationship(purpose)
	if r == nil {
		r = &Relationship{}
	}
	if entry.isEmbedded() {
		r.Methods = append(r.Methods, entry.method)
	} else {
		r.URIRefs = append(r.URIRefs, entry.ref)
	}
	b.doc.setRelationship(purpose, r)
	return b
}

// AddVerifyingKey is a shortcut that creates a Multikey-Ed25519
// verification method at "{did}#key-N" (N auto-incrementing per builder),
// installed as authentication + assertionMethod, and — when
// deriveKeyAgreement is true — derives and adds an X25519 keyAgreement
// method from it too.
func (b *DocumentBuilder) AddVerifyingKey(multibaseEd25519Pub string, deriveKeyAgreement bool) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	label := fmt.Sprintf("key-%d", b.keyIndex)
	b.keyIndex++

	vmb := NewVerificationMethodBuilder(MultibaseMaterial(multibaseEd25519Pub), b.doc.Subject, Index(label), TypeMultikey)
	vm, err := vmb.Build()
	if err != nil {
		return b.fail(err)
	}

	b.AddVerificationMethod(Embedded(vm), PurposeVerificationMethod)
	b.AddVerificationMethod(Reference(vm.ID.String()), PurposeAuthentication)
	b.AddVerificationMethod(Reference(vm.ID.String()), PurposeAssertionMethod)
	if b.err != nil {
		return b
	}

	if deriveKeyAgreement {
		return b.DeriveKeyAgreement(vm.ID.String())
	}
	return b
}

// RemoveVerificationMethod searches every relationship slot and the
// standalone list for id; fails NotFound if no occurrence exists.
func (b *DocumentBuilder) RemoveVerificationMethod(id string) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	found := false

	kept := b.doc.VerificationMethods[:0]
	for _, m := range b.doc.VerificationMethods {
		if m.ID.Equal(id) {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	b.doc.VerificationMethods = kept

	for _, p := range AllRelationshipPurposes {
		r := b.doc.relationship(p)
		if r == nil {
			continue
		}
		before := r.Len()
		r.removeRef(id)
		if r.Len() != before {
			found = true
		}
	}

	if !found {
		return b.fail(diderr.New(diderr.KindNotFound, "verification method not present: "+id))
	}
	return b
}

// DeriveKeyAgreement creates an X25519 KeyAgreement VerificationMethod
// from the Ed25519 VerificationMethod at sourceVmID and embeds it in the
// keyAgreement slot; fails InvalidKey if the source is not Ed25519/Multikey.
func (b *DocumentBuilder) DeriveKeyAgreement(sourceVmID string) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	src := b.doc.VerificationMethodOrNil(sourceVmID)
	if src == nil {
		return b.fail(diderr.New(diderr.KindNotFound, "source verification method not present: "+sourceVmID))
	}
	if src.Type != TypeMultikey && src.Type != TypeEd25519VerificationKey2020 {
		return b.fail(diderr.New(diderr.KindInvalidKey, "deriveKeyAgreement source must be Ed25519"))
	}

	kaMultibase, err := deriveX25519Multibase(src.PublicKeyMultibase)
	if err != nil {
		return b.fail(err)
	}

	vmb := NewVerificationMethodBuilder(MultibaseMaterial(kaMultibase), b.doc.Subject, Verification(), TypeX25519KeyAgreementKey2020)
	ka, err := vmb.Build()
	if err != nil {
		return b.fail(err)
	}
	return b.AddVerificationMethod(Embedded(ka), PurposeKeyAgreement)
}

// deriveX25519Multibase converts a multibase-encoded Ed25519 public key
// to its multibase-encoded X25519 counterpart.
func deriveX25519Multibase(edMultibase string) (string, error) {
	codec, raw, err := mkey.Decode(edMultibase)
	if err != nil {
		return "", err
	}
	if codec != mkey.Ed25519 {
		return "", diderr.New(diderr.KindInvalidKey, "deriveKeyAgreement source key is not Ed25519-encoded")
	}
	x25519Pub, err := mkey.DeriveX25519(raw)
	if err != nil {
		return "", err
	}
	return mkey.Encode(mkey.X25519, x25519Pub), nil
}

// Build stamps metadata, ensures the base context, enforces every
// every invariant, and returns an immutable Document.
func (b *DocumentBuilder) Build() (*Document, error) {
	if b.err != nil {
		return nil, b.err
	}

	if len(b.doc.Context) == 0 || b.doc.Context[0] != V1 {
		ctx := make([]any, 0, len(b.doc.Context)+1)
		ctx = append(ctx, V1)
		for _, c := range b.doc.Context {
			if c != V1 {
				ctx = append(ctx, c)
			}
		}
		b.doc.Context = ctx
	}

	now := time.Now().UTC()
	if b.create {
		if b.doc.Metadata.Created.IsZero() {
			b.doc.Metadata.Created = now
		}
	} else {
		b.doc.Metadata.Updated = now
	}

	if err := b.doc.Validate(); err != nil {
		return nil, err
	}
	return cloneDocument(b.doc), nil
}
