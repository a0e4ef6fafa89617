package did

import (
	"github.com/webvh-go/did/diderr"
)

// patchKind tags which Patch variant a value carries: Replace /
// AddPublicKeys / RemovePublicKeys / AddServices / RemoveServices.
type patchKind int

const (
	patchReplace patchKind = iota
	patchAddPublicKeys
	patchRemovePublicKeys
	patchAddServices
	patchRemoveServices
)

// KeyPatchEntry pairs a VerificationMethod with the relationship slots it
// should be installed under, for use with AddPublicKeys.
type KeyPatchEntry struct {
	Method   *VerificationMethod
	Purposes []Purpose
}

// Patch is one entry of a patch sequence applied atomically to a Document
// by Apply. Values are produced only by PatchBuilder.
type Patch struct {
	kind patchKind

	replace *Document

	addKeys    []KeyPatchEntry
	removeKeys []string

	addServices    []*Service
	removeServices []string
}

// PatchBuilder enforces each patch kind's structural requirements at build
// time: Replace requires a document, AddServices requires at least one
// service, and so on.
type PatchBuilder struct {
	kind patchKind

	replace *Document

	addKeys    []KeyPatchEntry
	removeKeys []string

	addServices    []*Service
	removeServices []string

	err error
}

// NewReplacePatch starts a Replace patch that truncates and rebuilds the
// document's public keys and services from doc.
func NewReplacePatch(doc *Document) *PatchBuilder {
	return &PatchBuilder{kind: patchReplace, replace: doc}
}

// NewAddPublicKeysPatch starts an AddPublicKeys patch.
func NewAddPublicKeysPatch() *PatchBuilder {
	return &PatchBuilder{kind: patchAddPublicKeys}
}

// AddKey appends a VerificationMethod/purposes entry to an
// AddPublicKeys patch.
func (b *PatchBuilder) AddKey(method *VerificationMethod, purposes ...Purpose) *PatchBuilder {
	if b.err != nil {
		return b
	}
	if b.kind != patchAddPublicKeys {
		return b.fail(diderr.New(diderr.KindInvalidPatch, "AddKey only valid on an AddPublicKeys patch"))
	}
	b.addKeys = append(b.addKeys, KeyPatchEntry{Method: method, Purposes: purposes})
	return b
}

// NewRemovePublicKeysPatch starts a RemovePublicKeys patch removing the
// verification methods with the given ids.
func NewRemovePublicKeysPatch(ids ...string) *PatchBuilder {
	return &PatchBuilder{kind: patchRemovePublicKeys, removeKeys: ids}
}

// NewAddServicesPatch starts an AddServices patch.
func NewAddServicesPatch(services ...*Service) *PatchBuilder {
	return &PatchBuilder{kind: patchAddServices, addServices: services}
}

// NewRemoveServicesPatch starts a RemoveServices patch removing the
// services with the given ids.
func NewRemoveServicesPatch(ids ...string) *PatchBuilder {
	return &PatchBuilder{kind: patchRemoveServices, removeServices: ids}
}

func (b *PatchBuilder) fail(err error) *PatchBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Build validates the accumulated patch and returns it.
func (b *PatchBuilder) Build() (*Patch, error) {
	if b.err != nil {
		return nil, b.err
	}

	switch b.kind {
	case patchReplace:
		if b.replace == nil {
			return nil, diderr.New(diderr.KindInvalidPatch, "Replace requires a document")
		}
	case patchAddPublicKeys:
		if len(b.addKeys) == 0 {
			return nil, diderr.New(diderr.KindInvalidPatch, "AddPublicKeys requires at least one key")
		}
		seen := make(map[string]bool, len(b.addKeys))
		for _, e := range b.addKeys {
			id := e.Method.ID.String()
			if !idPattern.MatchString(id) {
				return nil, diderr.New(diderr.KindInvalidPatch, "verification method id contains disallowed characters: "+id)
			}
			if seen[id] {
				return nil, diderr.New(diderr.KindInvalidPatch, "duplicate verification method id within patch: "+id)
			}
			seen[id] = true
		}
	case patchRemovePublicKeys:
		if len(b.removeKeys) == 0 {
			return nil, diderr.New(diderr.KindInvalidPatch, "RemovePublicKeys requires at least one id")
		}
	case patchAddServices:
		if len(b.addServices) == 0 {
			return nil, diderr.New(diderr.KindInvalidPatch, "AddServices requires at least one service")
		}
		seen := make(map[string]bool, len(b.addServices))
		for _, s := range b.addServices {
			if !idPattern.MatchString(s.ID) {
				return nil, diderr.New(diderr.KindInvalidPatch, "service id contains disallowed characters: "+s.ID)
			}
			if err := ValidateService(s); err != nil {
				return nil, err
			}
			if seen[s.ID] {
				return nil, diderr.New(diderr.KindInvalidPatch, "duplicate service id within patch: "+s.ID)
			}
			seen[s.ID] = true
		}
	case patchRemoveServices:
		if len(b.removeServices) == 0 {
			return nil, diderr.New(diderr.KindInvalidPatch, "RemoveServices requires at least one id")
		}
	}

	return &Patch{
		kind:           b.kind,
		replace:        b.replace,
		addKeys:        append([]KeyPatchEntry(nil), b.addKeys...),
		removeKeys:     append([]string(nil), b.removeKeys...),
		addServices:    append([]*Service(nil), b.addServices...),
		removeServices: append([]string(nil), b.removeServices...),
	}, nil
}

// Apply returns a new Document with patches applied in order. A Replace
// patch truncates and rebuilds public keys, services and every
// relationship slot from its payload; any patch after a Replace is
// ignored.
func Apply(doc *Document, patches []*Patch) (*Document, error) {
	acc := cloneDocument(doc)
	replaced := false

	for _, p := range patches {
		if replaced {
			break
		}
		switch p.kind {
		case patchReplace:
			acc = cloneDocument(p.replace)
			replaced = true

		case patchAddPublicKeys:
			for _, e := range p.addKeys {
				for _, m := range acc.VerificationMethods {
					if m.ID.Equal(e.Method.ID.String()) {
						return nil, diderr.New(diderr.KindInvalidPatch, "verification method id already present: "+e.Method.ID.String())
					}
				}
				acc.VerificationMethods = append(acc.VerificationMethods, e.Method)
				for _, purpose := range e.Purposes {
					r := acc.relationship(purpose)
					if r == nil {
						r = &Relationship{}
					}
					if purpose == PurposeKeyAgreement {
						r.Methods = append(r.Methods, e.Method)
					} else {
						r.URIRefs = append(r.URIRefs, e.Method.ID.String())
					}
					acc.setRelationship(purpose, r)
				}
			}

		case patchRemovePublicKeys:
			for _, id := range p.removeKeys {
				kept := acc.VerificationMethods[:0]
				found := false
				for _, m := range acc.VerificationMethods {
					if m.ID.Equal(id) {
						found = true
						continue
					}
					kept = append(kept, m)
				}
				acc.VerificationMethods = kept
				for _, purpose := range AllRelationshipPurposes {
					if r := acc.relationship(purpose); r != nil {
						before := r.Len()
						r.removeRef(id)
						if r.Len() != before {
							found = true
						}
					}
				}
				if !found {
					return nil, diderr.New(diderr.KindNotFound, "verification method not present: "+id)
				}
			}

		case patchAddServices:
			for _, s := range p.addServices {
				for _, existing := range acc.Services {
					if existing.ID == s.ID {
						return nil, diderr.New(diderr.KindInvalidPatch, "service id already present: "+s.ID)
					}
				}
				acc.Services = append(acc.Services, s)
			}

		case patchRemoveServices:
			for _, id := range p.removeServices {
				idx := -1
				for i, s := range acc.Services {
					if s.ID == id {
						idx = i
						break
					}
				}
				if idx < 0 {
					return nil, diderr.New(diderr.KindNotFound, "service not present: "+id)
				}
				acc.Services = append(acc.Services[:idx], acc.Services[idx+1:]...)
			}
		}
	}

	return NewUpdateBuilder(acc).Build()
}
