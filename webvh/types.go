// Package webvh implements the did:webvh hash-linked, signed, witness-
// validated log engine: Create/Update/Deactivate builders that emit
// LogEntry records, and a verifier that resolves a log to the document
// valid at a requested version.
package webvh

import (
	"time"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/proof"
)

// MethodVersion is the webvh protocol version this package implements.
const MethodVersion = "did:webvh:1"

// WebvhPlaceholder is the literal string standing in for the SCID while the
// initial entry is built and while its SCID is re-derived.
const WebvhPlaceholder = did.WebvhPlaceholder

// Parameters carries a LogEntry's method parameters.
type Parameters struct {
	Method        string    `json:"method"`
	SCID          string    `json:"scid,omitempty"`
	UpdateKeys    []string  `json:"updateKeys,omitempty"`
	Portable      bool      `json:"portable,omitempty"`
	NextKeyHashes []string  `json:"nextKeyHashes,omitempty"`
	Witness       *Witness  `json:"witness,omitempty"`
	Deactivated   bool      `json:"deactivated,omitempty"`
	TTL           int       `json:"ttl,omitempty"`
}

// Witness is the witness-threshold policy declared in Parameters.
type Witness struct {
	Threshold int              `json:"threshold"`
	Witnesses []WitnessWeight  `json:"witnesses"`
}

// WitnessWeight is a single witness entry: a did:key identity and its
// voting weight.
type WitnessWeight struct {
	ID     string `json:"id"`
	Weight int    `json:"weight"`
}

func (w *Witness) toMeta() *did.Witness {
	if w == nil {
		return nil
	}
	out := &did.Witness{Threshold: w.Threshold}
	for _, ww := range w.Witnesses {
		out.Witnesses = append(out.Witnesses, did.WitnessWeight{ID: ww.ID, Weight: ww.Weight})
	}
	return out
}

// LogEntry is one append-only record of a did:webvh history.
type LogEntry struct {
	VersionID   string           `json:"versionId"`
	VersionTime time.Time        `json:"versionTime"`
	Parameters  Parameters       `json:"parameters"`
	State       *did.Document    `json:"state"`
	Proof       []*proof.Proof   `json:"proof"`
}

// withoutProof returns a copy of e with Proof cleared, the shape hashed
// for signing and entry-hash verification.
func (e LogEntry) withoutProof() LogEntry {
	e.Proof = nil
	return e
}

// withVersionID returns a copy of e with VersionID replaced, used to
// reconstruct the predecessor shape during entry-hash verification.
func (e LogEntry) withVersionID(versionID string) LogEntry {
	e.VersionID = versionID
	return e
}

// Log is an ordered did:webvh history, one entry per version starting at 1.
type Log struct {
	DID     did.DID
	Entries []*LogEntry
}

// Result bundles a webvh Create/Update/Deactivate outcome.
type Result struct {
	DID      did.DID
	Document *did.Document
	Log      *Log
}
