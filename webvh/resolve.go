package webvh

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/internal/canon"
	"github.com/webvh-go/did/internal/mkey"
	"github.com/webvh-go/did/proof"
)

// WitnessProof pairs a witness's Data Integrity proof with the versionId
// of the LogEntry it witnesses.
type WitnessProof struct {
	VersionID string
	Proof     *proof.Proof
}

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	Log           *Log
	WitnessProofs []WitnessProof

	// VersionID, if set, stops resolution at the entry with this exact
	// versionId.
	VersionID string
	// VersionTime, if non-zero, stops resolution at the entry valid at
	// that instant (versionTime <= VersionTime < next.versionTime).
	VersionTime time.Time
}

// Resolve verifies the hash chain and controller proofs of a did:webvh log
// up to the requested version and returns the Document valid at that
// version, or at the tip when no version is requested. Entries after the
// requested version are not checked.
func Resolve(ctx context.Context, opts ResolveOptions) (*did.Document, error) {
	if opts.Log == nil || len(opts.Log.Entries) == 0 {
		return nil, diderr.New(diderr.KindInvalidLog, "log has no entries")
	}

	var (
		prevIndex         int
		prevVersionID     string
		prevTime          time.Time
		prevNextKeyHashes []string
		prevUpdateKeys    []string
		result            *did.Document
	)

	for i, entry := range opts.Log.Entries {
		authorized := entry.Parameters.UpdateKeys
		if i > 0 {
			authorized = prevUpdateKeys
		}
		if err := verifyControllerProofs(entry, authorized); err != nil {
			return nil, diderr.Wrap(diderr.KindInvalidLog, "controller proof verification failed", err).WithIndex(i)
		}

		index, hashPart, err := parseVersionID(entry.VersionID)
		if err != nil {
			return nil, diderr.Wrap(diderr.KindInvalidLog, "malformed versionId", err).WithIndex(i)
		}
		if index != prevIndex+1 {
			return nil, diderr.New(diderr.KindInvalidLog, "non-sequential versionId index").WithIndex(i)
		}

		reconstructVersionID := prevVersionID
		if i == 0 {
			reconstructVersionID = entry.Parameters.SCID
		}
		candidate := entry.withoutProof().withVersionID(reconstructVersionID)
		recomputedHash, err := entryHash(candidate)
		if err != nil {
			return nil, diderr.Wrap(diderr.KindInvalidLog, "recomputing entry hash", err).WithIndex(i)
		}
		if recomputedHash != hashPart {
			return nil, diderr.New(diderr.KindInvalidLog, "entry hash mismatch").WithIndex(i)
		}

		if entry.VersionTime.After(time.Now()) {
			return nil, diderr.New(diderr.KindInvalidLog, "versionTime is in the future").WithIndex(i)
		}
		if !entry.VersionTime.After(prevTime) {
			return nil, diderr.New(diderr.KindInvalidLog, "versionTime is not strictly increasing").WithIndex(i)
		}

		if i == 0 {
			if err := verifySCID(*entry); err != nil {
				return nil, diderr.Wrap(diderr.KindInvalidLog, "scid verification failed", err).WithIndex(i)
			}
		}

		if len(prevNextKeyHashes) > 0 {
			for _, k := range entry.Parameters.UpdateKeys {
				if !contains(prevNextKeyHashes, keyHash(k)) {
					return nil, diderr.New(diderr.KindInvalidLog, "update key not committed by previous nextKeyHashes").WithIndex(i)
				}
			}
		}

		if entry.Parameters.Witness != nil {
			matching := make([]*proof.Proof, 0, len(opts.WitnessProofs))
			for _, wp := range opts.WitnessProofs {
				if wp.VersionID == entry.VersionID {
					matching = append(matching, wp.Proof)
				}
			}
			if len(matching) > 0 {
				if err := VerifyWitness(entry, entry.Parameters.Witness, matching); err != nil {
					return nil, err
				}
			}
		}

		result = withResolutionMetadata(entry)

		prevIndex = index
		prevVersionID = entry.VersionID
		prevTime = entry.VersionTime
		prevNextKeyHashes = entry.Parameters.NextKeyHashes
		prevUpdateKeys = entry.Parameters.UpdateKeys

		if opts.VersionID != "" && entry.VersionID == opts.VersionID {
			break
		}
		if !opts.VersionTime.IsZero() {
			isLast := i == len(opts.Log.Entries)-1
			var nextTime time.Time
			if !isLast {
				nextTime = opts.Log.Entries[i+1].VersionTime
			}
			if !entry.VersionTime.After(opts.VersionTime) && (isLast || opts.VersionTime.Before(nextTime)) {
				break
			}
		}
	}

	return result, nil
}

// withResolutionMetadata clones entry.State and attaches method-specific
// resolution metadata.
func withResolutionMetadata(entry *LogEntry) *did.Document {
	doc, err := did.NewUpdateBuilder(entry.State).Build()
	if err != nil {
		// entry.State failed Document validation; it is returned as it
		// stands in the log.
		doc = entry.State
	}
	doc.Metadata.VersionID = entry.VersionID
	doc.Metadata.SCID = entry.Parameters.SCID
	doc.Metadata.Portable = entry.Parameters.Portable
	doc.Metadata.Witness = entry.Parameters.Witness.toMeta()
	doc.Metadata.Deactivated = entry.Parameters.Deactivated
	return doc
}

// verifyControllerProofs checks every proof on entry against authorized:
// the update keys in force when the entry was signed (the entry's own for
// the first entry, the previous entry's for every later one).
func verifyControllerProofs(entry *LogEntry, authorized []string) error {
	if len(entry.Proof) == 0 {
		return diderr.New(diderr.KindInvalidLog, "entry carries no proof")
	}
	data := entry.withoutProof()
	for _, p := range entry.Proof {
		fragment := vmFragment(p.VerificationMethod)
		if !entry.Parameters.Deactivated && !contains(authorized, fragment) {
			return diderr.New(diderr.KindInvalidSignature, "verificationMethod is not an authorized update key: "+fragment)
		}
		_, rawKey, err := mkey.Decode(fragment)
		if err != nil {
			return diderr.Wrap(diderr.KindInvalidPublicKey, "decoding update key", err)
		}
		if err := proof.Verify(data, p, rawKey); err != nil {
			return err
		}
	}
	return nil
}

// verifySCID recomputes entries[0]'s SCID from its content and checks it
// against the value recorded in parameters.scid. The SCID is swapped back
// for the placeholder in the JSON text, which is hashed as it is: JSON
// holding the placeholder DID does not parse back into a Document.
func verifySCID(entry LogEntry) error {
	raw, err := json.Marshal(entry.withoutProof().withVersionID(WebvhPlaceholder))
	if err != nil {
		return diderr.Wrap(diderr.KindInvalidLog, "marshaling log entry", err)
	}
	reversed := strings.ReplaceAll(string(raw), entry.Parameters.SCID, WebvhPlaceholder)
	recomputed, err := canon.Hash(json.RawMessage(reversed))
	if err != nil {
		return diderr.Wrap(diderr.KindInvalidLog, "canonicalizing log entry", err)
	}
	if recomputed != entry.Parameters.SCID {
		return diderr.New(diderr.KindInvalidLog, "recomputed scid does not match parameters.scid")
	}
	return nil
}
