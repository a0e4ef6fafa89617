package webvh

import (
	"context"
	"fmt"
	"time"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/proof"
)

// DeactivateOptions configures Deactivate.
type DeactivateOptions struct {
	Log    *Log
	Signer did.Signer
	Now    time.Time
}

// Deactivate appends one or two LogEntry records marking a did:webvh
// identifier as deactivated. When pre-rotation is active, a null-rotation
// entry is emitted first to clear nextKeyHashes before the deactivation
// entry itself.
func Deactivate(ctx context.Context, opts DeactivateOptions) (*Result, error) {
	if opts.Log == nil || len(opts.Log.Entries) == 0 {
		return nil, diderr.New(diderr.KindInvalidOperation, "deactivate requires a non-empty existing log")
	}
	last := opts.Log.Entries[len(opts.Log.Entries)-1]

	if _, err := Resolve(ctx, ResolveOptions{Log: opts.Log}); err != nil {
		return nil, diderr.Wrap(diderr.KindInvalidLog, "existing log failed re-validation", err)
	}

	entries := append([]*LogEntry(nil), opts.Log.Entries...)
	finalNow := opts.Now.UTC().Truncate(time.Second)

	if len(last.Parameters.NextKeyHashes) > 0 {
		nullRotation, err := appendEntry(ctx, last, last.State, last.Parameters.UpdateKeys, nil,
			last.Parameters.Witness, last.Parameters.Portable, last.Parameters.TTL, false, opts.Signer, opts.Now)
		if err != nil {
			return nil, err
		}
		entries = append(entries, nullRotation)
		last = nullRotation
		finalNow = finalNow.Add(time.Second)
	}

	deactivatedDoc, err := did.NewUpdateBuilder(last.State).Build()
	if err != nil {
		return nil, err
	}
	deactivatedDoc.Metadata.Deactivated = true
	deactivatedDoc.Metadata.Updated = finalNow

	finalEntry, err := appendEntry(ctx, last, deactivatedDoc, nil, nil,
		last.Parameters.Witness, last.Parameters.Portable, last.Parameters.TTL, true, opts.Signer, finalNow)
	if err != nil {
		return nil, err
	}
	entries = append(entries, finalEntry)

	return &Result{
		DID:      finalEntry.State.Subject,
		Document: finalEntry.State,
		Log:      &Log{DID: opts.Log.DID, Entries: entries},
	}, nil
}

// appendEntry builds, hashes and signs one LogEntry chained after prev,
// shared by the null-rotation and deactivation steps of Deactivate.
func appendEntry(ctx context.Context, prev *LogEntry, state *did.Document, updateKeys, nextKeyHashes []string,
	witness *Witness, portable bool, ttl int, deactivated bool, signer did.Signer, now time.Time) (*LogEntry, error) {

	n, _, err := parseVersionID(prev.VersionID)
	if err != nil {
		return nil, err
	}

	entry := LogEntry{
		VersionID:   prev.VersionID,
		VersionTime: now.UTC().Truncate(time.Second),
		Parameters: Parameters{
			Method:        MethodVersion,
			SCID:          prev.Parameters.SCID,
			UpdateKeys:    updateKeys,
			Portable:      portable,
			NextKeyHashes: nextKeyHashes,
			Witness:       witness,
			Deactivated:   deactivated,
			TTL:           ttl,
		},
		State: state,
	}

	hash, err := entryHash(entry)
	if err != nil {
		return nil, err
	}
	entry.VersionID = fmt.Sprintf("%d-%s", n+1, hash)

	p, err := proof.Sign(ctx, entry.withoutProof(), signer, proof.PurposeAssertionMethod, now)
	if err != nil {
		return nil, err
	}
	entry.Proof = []*proof.Proof{p}
	return &entry, nil
}
