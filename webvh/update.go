package webvh

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/proof"
)

// UpdateOptions configures Update. A nil slice/unset flag
// means "inherit from the previous entry"; the explicit *Set flags let
// callers clear a previously-set value (e.g. Witness) rather than merely
// leaving it unspecified.
type UpdateOptions struct {
	Log      *Log
	Document *did.Document

	UpdateKeys []string // nil: inherit

	NextKeys []string // nil: inherit unchanged; non-nil (possibly empty): replace

	WitnessSet bool
	Witness    *Witness

	PortableSet bool
	Portable    bool

	TTLSet bool
	TTL    int

	Signer did.Signer
	Now    time.Time
}

// Update appends one LogEntry reflecting a new document state and/or
// parameter change to an existing log.
func Update(ctx context.Context, opts UpdateOptions) (*Result, error) {
	if opts.Log == nil || len(opts.Log.Entries) == 0 {
		return nil, diderr.New(diderr.KindInvalidOperation, "update requires a non-empty existing log")
	}
	last := opts.Log.Entries[len(opts.Log.Entries)-1]

	if _, err := Resolve(ctx, ResolveOptions{Log: opts.Log}); err != nil {
		return nil, diderr.Wrap(diderr.KindInvalidLog, "existing log failed re-validation", err)
	}

	if opts.Document.Subject != last.State.Subject {
		if !last.Parameters.Portable {
			return nil, diderr.New(diderr.KindInvalidOperation, "document id changed but the log is not portable")
		}
		oldSCID, _, err := did.SplitWebvhSCID(last.State.Subject.SpecID)
		if err != nil {
			return nil, err
		}
		newSCID, _, err := did.SplitWebvhSCID(opts.Document.Subject.SpecID)
		if err != nil {
			return nil, err
		}
		if oldSCID != newSCID {
			return nil, diderr.New(diderr.KindInvalidOperation, "SCID segment must not change across a portable move")
		}
	}

	updateKeys := last.Parameters.UpdateKeys
	if opts.UpdateKeys != nil {
		if len(last.Parameters.NextKeyHashes) > 0 {
			for _, k := range opts.UpdateKeys {
				if !contains(last.Parameters.NextKeyHashes, keyHash(k)) {
					return nil, diderr.New(diderr.KindInvalidKey, "new update key does not match the committed next-key hash: "+k)
				}
			}
		}
		updateKeys = opts.UpdateKeys
	}

	nextKeyHashes := last.Parameters.NextKeyHashes
	if opts.NextKeys != nil {
		nextKeyHashes = nil
		for _, k := range opts.NextKeys {
			nextKeyHashes = append(nextKeyHashes, keyHash(k))
		}
	}

	witness := last.Parameters.Witness
	if opts.WitnessSet {
		if err := ValidateWitness(opts.Witness); err != nil {
			return nil, err
		}
		witness = opts.Witness
	}

	portable := last.Parameters.Portable
	if opts.PortableSet {
		if opts.Portable && !last.Parameters.Portable {
			return nil, diderr.New(diderr.KindInvalidOperation, "portable cannot transition from false to true once declared (SCID-bound identity)")
		}
		portable = opts.Portable
	}

	ttl := last.Parameters.TTL
	if opts.TTLSet {
		ttl = opts.TTL
	}

	if fragment := vmFragment(opts.Signer.VerificationMethod()); !contains(last.Parameters.UpdateKeys, fragment) {
		return nil, diderr.New(diderr.KindInvalidKey, "signer is not one of the current update keys")
	}

	n, _, err := parseVersionID(last.VersionID)
	if err != nil {
		return nil, err
	}

	entry := LogEntry{
		VersionID:   last.VersionID,
		VersionTime: opts.Now.UTC().Truncate(time.Second),
		Parameters: Parameters{
			Method:        MethodVersion,
			SCID:          last.Parameters.SCID,
			UpdateKeys:    updateKeys,
			Portable:      portable,
			NextKeyHashes: nextKeyHashes,
			Witness:       witness,
			TTL:           ttl,
		},
		State: opts.Document,
	}

	hash, err := entryHash(entry)
	if err != nil {
		return nil, err
	}
	entry.VersionID = fmt.Sprintf("%d-%s", n+1, hash)

	p, err := proof.Sign(ctx, entry.withoutProof(), opts.Signer, proof.PurposeAssertionMethod, opts.Now)
	if err != nil {
		return nil, err
	}
	entry.Proof = []*proof.Proof{p}

	entries := append(append([]*LogEntry(nil), opts.Log.Entries...), &entry)
	return &Result{
		DID:      entry.State.Subject,
		Document: entry.State,
		Log:      &Log{DID: opts.Log.DID, Entries: entries},
	}, nil
}

func parseVersionID(versionID string) (n int, hash string, err error) {
	i := strings.IndexByte(versionID, '-')
	if i < 0 {
		return 0, "", diderr.New(diderr.KindInvalidLog, "malformed versionId: "+versionID)
	}
	n, convErr := strconv.Atoi(versionID[:i])
	if convErr != nil {
		return 0, "", diderr.Wrap(diderr.KindInvalidLog, "malformed versionId index", convErr)
	}
	return n, versionID[i+1:], nil
}

func vmFragment(vm string) string {
	i := strings.LastIndexByte(vm, '#')
	if i < 0 {
		return vm
	}
	return vm[i+1:]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
