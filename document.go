package did

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/webvh-go/did/diderr"
)

// V1 is the W3C DID Core namespace URI. Every Document's Context must
// include it as the first element.
const V1 = "https://www.w3.org/ns/did/v1"

// JSON is the media type for JSON document production and consumption.
const JSON = "application/did+json"

// MethodType names a verification method's "type" property.
type MethodType string

const (
	TypeMultikey                     MethodType = "Multikey"
	TypeEd25519VerificationKey2020   MethodType = "Ed25519VerificationKey2020"
	TypeX25519KeyAgreementKey2020    MethodType = "X25519KeyAgreementKey2020"
	TypeJsonWebKey2020               MethodType = "JsonWebKey2020"
	TypeEcdsaSecp256k1VerificationKey2019 MethodType = "EcdsaSecp256k1VerificationKey2019"
)

// multibaseTypes / jwkTypes classify which key-material representation a
// MethodType requires.
var multibaseTypes = map[MethodType]bool{
	TypeMultikey:                   true,
	TypeEd25519VerificationKey2020: true,
	TypeX25519KeyAgreementKey2020:  true,
}

var jwkTypes = map[MethodType]bool{
	TypeJsonWebKey2020:                    true,
	TypeEcdsaSecp256k1VerificationKey2019: true,
}

// Purpose names one of the five verification-relationship slots, or the
// standalone VerificationMethod list.
type Purpose string

const (
	PurposeVerificationMethod  Purpose = "verificationMethod"
	PurposeAuthentication      Purpose = "authentication"
	PurposeAssertionMethod     Purpose = "assertionMethod"
	PurposeKeyAgreement        Purpose = "keyAgreement"
	PurposeCapabilityInvocation Purpose = "capabilityInvocation"
	PurposeCapabilityDelegation Purpose = "capabilityDelegation"
)

// AllRelationshipPurposes lists the five relationship slots, in the order
// the document JSON presents them.
var AllRelationshipPurposes = []Purpose{
	PurposeAuthentication,
	PurposeAssertionMethod,
	PurposeKeyAgreement,
	PurposeCapabilityInvocation,
	PurposeCapabilityDelegation,
}

// Document holds the core properties of a DID association (its Subject),
// generalizing the teacher's Doc/Document split into the single type
// SPEC_FULL.md names.
type Document struct {
	Context     []any  `json:"@context"`
	Subject     DID    `json:"id"`
	AlsoKnownAs []string `json:"alsoKnownAs,omitempty"`
	Controllers Set    `json:"controller,omitempty"`

	VerificationMethods []*VerificationMethod `json:"verificationMethod,omitempty"`

	Authentication        *Relationship `json:"authentication,omitempty"`
	AssertionMethod       *Relationship `json:"assertionMethod,omitempty"`
	KeyAgreement          *Relationship `json:"keyAgreement,omitempty"`
	CapabilityInvocation  *Relationship `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation  *Relationship `json:"capabilityDelegation,omitempty"`

	Services []*Service `json:"service,omitempty"`

	Metadata Meta `json:"-"`
}

// Set represents a string, or a set of strings that conform to DID syntax.
type Set []DID

// Contains returns whether any of the set entries equal s.
func (set Set) Contains(s string) bool {
	for _, d := range set {
		if d.Equal(s) {
			return true
		}
	}
	return false
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (set *Set) UnmarshalJSON(bytes []byte) error {
	switch bytes[0] {
	case 'n':
		*set = nil
		return nil
	case '"':
		*set = make(Set, 1)
		return (*set)[0].UnmarshalJSON(bytes)
	case '[':
		var raws []json.RawMessage
		if err := json.Unmarshal(bytes, &raws); err != nil {
			return err
		}
		*set = make(Set, len(raws))
		for i, raw := range raws {
			if err := (*set)[i].UnmarshalJSON(raw); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("DID string or set of strings not a JSON string or array: %.12q", bytes)
	}
}

// MarshalJSON implements the json.Marshaler interface, collapsing a
// singleton set to a bare string the way "controller" is conventionally
// serialized.
func (set Set) MarshalJSON() ([]byte, error) {
	if len(set) == 1 {
		return json.Marshal(set[0])
	}
	return json.Marshal([]DID(set))
}

// Relationship expresses the relationship between the Document Subject and
// a VerificationMethod. Each entry MAY be either embedded or referenced.
type Relationship struct {
	Methods []*VerificationMethod // embedded
	URIRefs []string              // referenced
}

// Len returns the total number of entries (embedded + referenced).
func (r *Relationship) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Methods) + len(r.URIRefs)
}

// References returns every id this relationship points at, whether
// embedded or referenced.
func (r *Relationship) References() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, r.Len())
	for _, m := range r.Methods {
		out = append(out, m.ID.String())
	}
	out = append(out, r.URIRefs...)
	return out
}

// removeRef drops any entry (embedded or referenced) matching id.
func (r *Relationship) removeRef(id string) {
	if r == nil {
		return
	}
	methods := r.Methods[:0]
	for _, m := range r.Methods {
		if !m.ID.Equal(id) {
			methods = append(methods, m)
		}
	}
	r.Methods = methods

	refs := r.URIRefs[:0]
	for _, ref := range r.URIRefs {
		if ref != id {
			refs = append(refs, ref)
		}
	}
	r.URIRefs = refs
}

// MarshalJSON implements the json.Marshaler interface.
func (r *Relationship) MarshalJSON() ([]byte, error) {
	if r == nil || r.Len() == 0 {
		return []byte("null"), nil
	}
	items := make([]any, 0, r.Len())
	for _, m := range r.Methods {
		items = append(items, m)
	}
	for _, ref := range r.URIRefs {
		items = append(items, ref)
	}
	return json.Marshal(items)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *Relationship) UnmarshalJSON(bytes []byte) error {
	r.Methods = nil
	r.URIRefs = nil
	if string(bytes) == "null" {
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(bytes, &raws); err != nil {
		return fmt.Errorf("DID relationship is not a JSON array nor null: %w", err)
	}
	for _, raw := range raws {
		switch raw[0] {
		case '{':
			m := new(VerificationMethod)
			if err := json.Unmarshal(raw, m); err != nil {
				return err
			}
			r.Methods = append(r.Methods, m)
		case '"':
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			r.URIRefs = append(r.URIRefs, s)
		default:
			return fmt.Errorf("DID relationship entry is not an object nor a string: %.12q", raw)
		}
	}
	return nil
}

// VerificationMethod is a set of parameters usable to independently verify
// a proof: a cryptographic public key, plus the context that binds it to a
// DID subject.
type VerificationMethod struct {
	ID         URL        `json:"id"`
	Type       MethodType `json:"type"`
	Controller DID        `json:"controller"`
	Context    []any      `json:"@context,omitempty"`

	PublicKeyMultibase string          `json:"publicKeyMultibase,omitempty"`
	PublicKeyJwk       json.RawMessage `json:"publicKeyJwk,omitempty"`
}

// hasMultibase and hasJwk report which key-material representation is
// populated.
func (m *VerificationMethod) hasMultibase() bool { return m.PublicKeyMultibase != "" }
func (m *VerificationMethod) hasJwk() bool       { return len(m.PublicKeyJwk) > 0 }

// validate checks the invariants local to a single
// VerificationMethod (cross-document invariants are checked by
// Document.Validate).
func (m *VerificationMethod) validate() error {
	if m.hasMultibase() == m.hasJwk() {
		return diderr.New(diderr.KindInvalidKey, "verification method must use exactly one of publicKeyMultibase or publicKeyJwk").WithURL(m.ID.String())
	}
	if m.hasMultibase() && !multibaseTypes[m.Type] {
		return diderr.New(diderr.KindInvalidKey, fmt.Sprintf("type %q cannot carry publicKeyMultibase", m.Type)).WithURL(m.ID.String())
	}
	if m.hasJwk() && !jwkTypes[m.Type] {
		return diderr.New(diderr.KindInvalidKey, fmt.Sprintf("type %q cannot carry publicKeyJwk", m.Type)).WithURL(m.ID.String())
	}
	if m.Type == TypeMultikey && !m.hasMultibase() {
		return diderr.New(diderr.KindInvalidKey, "Multikey requires publicKeyMultibase").WithURL(m.ID.String())
	}
	if m.Type == TypeJsonWebKey2020 && !m.hasJwk() {
		return diderr.New(diderr.KindInvalidKey, "JsonWebKey2020 requires publicKeyJwk").WithURL(m.ID.String())
	}
	return nil
}

// Service describes a way of communicating with the Subject or an
// associated entity.
type Service struct {
	ID       string          `json:"id"`
	Type     ServiceTypes    `json:"type"`
	Endpoint ServiceEndpoint `json:"serviceEndpoint"`
}

// ServiceTypes is a string, or a list of strings.
type ServiceTypes []string

// MarshalJSON implements the json.Marshaler interface.
func (t ServiceTypes) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *ServiceTypes) UnmarshalJSON(bytes []byte) error {
	switch bytes[0] {
	case '"':
		var s string
		if err := json.Unmarshal(bytes, &s); err != nil {
			return err
		}
		*t = ServiceTypes{s}
		return nil
	case '[':
		var ss []string
		if err := json.Unmarshal(bytes, &ss); err != nil {
			return err
		}
		*t = ServiceTypes(ss)
		return nil
	default:
		return fmt.Errorf("DID service \"type\" is not a string nor a set of strings: %.12q", bytes)
	}
}

// ServiceEndpoint is a single URL string, a map, or a list containing
// either.
type ServiceEndpoint struct {
	URIRefs []string
	Objects []json.RawMessage
}

// MarshalJSON implements the json.Marshaler interface.
func (e ServiceEndpoint) MarshalJSON() ([]byte, error) {
	switch {
	case len(e.URIRefs) == 1 && len(e.Objects) == 0:
		return json.Marshal(e.URIRefs[0])
	case len(e.URIRefs) == 0 && len(e.Objects) == 1:
		return e.Objects[0], nil
	case len(e.URIRefs) == 0 && len(e.Objects) == 0:
		return nil, diderr.New(diderr.KindInvalidOperation, "no service endpoint set")
	}
	items := make([]json.RawMessage, 0, len(e.URIRefs)+len(e.Objects))
	for _, s := range e.URIRefs {
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
	}
	items = append(items, e.Objects...)
	return json.Marshal(items)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (e *ServiceEndpoint) UnmarshalJSON(bytes []byte) error {
	e.URIRefs = nil
	e.Objects = nil
	switch bytes[0] {
	case '"':
		var s string
		if err := json.Unmarshal(bytes, &s); err != nil {
			return err
		}
		e.URIRefs = []string{s}
		return nil
	case '{':
		e.Objects = []json.RawMessage{append(json.RawMessage(nil), bytes...)}
		return nil
	case '[':
		var raws []json.RawMessage
		if err := json.Unmarshal(bytes, &raws); err != nil {
			return err
		}
		for _, raw := range raws {
			switch raw[0] {
			case '"':
				var s string
				if err := json.Unmarshal(raw, &s); err != nil {
					return err
				}
				e.URIRefs = append(e.URIRefs, s)
			case '{':
				e.Objects = append(e.Objects, raw)
			default:
				return fmt.Errorf("serviceEndpoint entry is not a string nor a map: %.12q", raw)
			}
		}
		return nil
	default:
		return fmt.Errorf("serviceEndpoint is not a string, map, or array: %.12q", bytes)
	}
}

// Meta describes a Document's resolution metadata. All
// properties are optional.
type Meta struct {
	Created       time.Time `json:"created,omitempty"`
	Updated       time.Time `json:"updated,omitempty"`
	Deactivated   bool      `json:"deactivated,omitempty"`
	NextUpdate    time.Time `json:"nextUpdate,omitempty"`
	VersionID     string    `json:"versionId,omitempty"`
	NextVersionID string    `json:"nextVersionId,omitempty"`
	EquivalentID  []DID     `json:"equivalentId,omitempty"`
	CanonicalID   *DID      `json:"canonicalId,omitempty"`

	// webvh-specific metadata additions.
	SCID      string `json:"scid,omitempty"`
	Portable  bool   `json:"portable,omitempty"`
	Witness   *Witness `json:"witness,omitempty"`
}

// Witness mirrors webvh.Witness without importing package webvh (which
// itself imports did), avoiding an import cycle; the webvh package
// converts to/from this shape when attaching resolution metadata.
type Witness struct {
	Threshold int             `json:"threshold"`
	Witnesses []WitnessWeight `json:"witnesses"`
}

// WitnessWeight is one entry of Witness.Witnesses.
type WitnessWeight struct {
	ID     string `json:"id"`
	Weight int    `json:"weight"`
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-?#:/=&+%]*$`)

// VerificationMethodOrNil returns the VerificationMethods entry matching s,
// with nil for not found.
func (doc *Document) VerificationMethodOrNil(s string) *VerificationMethod {
	for _, m := range doc.VerificationMethods {
		if m.ID.Equal(s) {
			return m
		}
	}
	for _, p := range AllRelationshipPurposes {
		r := doc.relationship(p)
		if r == nil {
			continue
		}
		for _, m := range r.Methods {
			if m.ID.Equal(s) {
				return m
			}
		}
	}
	return nil
}

// ServiceOrNil returns the Services entry whose id matches s or whose type
// matches s.
func (doc *Document) ServiceOrNil(s string) *Service {
	for _, svc := range doc.Services {
		if svc.ID == s {
			return svc
		}
		for _, t := range svc.Type {
			if t == s {
				return svc
			}
		}
	}
	return nil
}

// relationship returns the Relationship slot for p, or nil for
// PurposeVerificationMethod (which has no embedded-or-reference union —
// it is always embedded).
func (doc *Document) relationship(p Purpose) *Relationship {
	switch p {
	case PurposeAuthentication:
		return doc.Authentication
	case PurposeAssertionMethod:
		return doc.AssertionMethod
	case PurposeKeyAgreement:
		return doc.KeyAgreement
	case PurposeCapabilityInvocation:
		return doc.CapabilityInvocation
	case PurposeCapabilityDelegation:
		return doc.CapabilityDelegation
	default:
		return nil
	}
}

func (doc *Document) setRelationship(p Purpose, r *Relationship) {
	switch p {
	case PurposeAuthentication:
		doc.Authentication = r
	case PurposeAssertionMethod:
		doc.AssertionMethod = r
	case PurposeKeyAgreement:
		doc.KeyAgreement = r
	case PurposeCapabilityInvocation:
		doc.CapabilityInvocation = r
	case PurposeCapabilityDelegation:
		doc.CapabilityDelegation = r
	}
}

// Validate enforces the Document invariants on an
// already-constructed value; the Document Builder calls this from Build,
// and webvh resolution calls it on every entry's embedded state.
func (doc *Document) Validate() error {
	if doc.Subject.Method == "" {
		return diderr.New(diderr.KindInvalidDid, "document id is required")
	}
	if len(doc.Context) == 0 || doc.Context[0] != V1 {
		return diderr.New(diderr.KindInvalidOperation, "@context must start with "+V1).WithDID(doc.Subject.String())
	}

	ids := make(map[string]bool, len(doc.VerificationMethods))
	for _, m := range doc.VerificationMethods {
		if err := m.validate(); err != nil {
			return err
		}
		if ids[m.ID.String()] {
			return diderr.New(diderr.KindInvalidOperation, "duplicate verification method id "+m.ID.String()).WithDID(doc.Subject.String())
		}
		ids[m.ID.String()] = true
		if !hasPrefixDID(m.ID, doc.Subject) {
			return diderr.New(diderr.KindInvalidOperation, "verification method id must begin with the document id").WithURL(m.ID.String())
		}
	}

	for _, p := range AllRelationshipPurposes {
		r := doc.relationship(p)
		if r == nil {
			continue
		}
		for _, m := range r.Methods {
			if err := m.validate(); err != nil {
				return err
			}
		}
		if p == PurposeKeyAgreement && len(r.URIRefs) > 0 {
			return diderr.New(diderr.KindInvalidOperation, "keyAgreement references are forbidden; embed the method").WithDID(doc.Subject.String())
		}
		for _, ref := range r.URIRefs {
			if !doc.referenceResolves(ref) {
				return diderr.New(diderr.KindNotFound, "relationship reference does not resolve: "+ref).WithDID(doc.Subject.String())
			}
		}
	}

	seen := make(map[string]bool, len(doc.Services))
	for _, svc := range doc.Services {
		if seen[svc.ID] {
			return diderr.New(diderr.KindInvalidOperation, "duplicate service id "+svc.ID).WithDID(doc.Subject.String())
		}
		seen[svc.ID] = true
	}
	return nil
}

// referenceResolves reports whether ref matches a verificationMethod.id in
// doc, or is an absolute DID URL.
func (doc *Document) referenceResolves(ref string) bool {
	for _, m := range doc.VerificationMethods {
		if m.ID.Equal(ref) {
			return true
		}
	}
	_, err := ParseURL(ref)
	return err == nil
}

// hasPrefixDID reports whether u's DID component equals subject, i.e. the
// verification method id begins with the document id.
func hasPrefixDID(u URL, subject DID) bool {
	return u.DID == subject
}
