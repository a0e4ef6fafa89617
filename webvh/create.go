package webvh

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/proof"
)

// PlaceholderDID derives the did:webvh identifier to build the initial
// Document with, substituting WebvhPlaceholder for the not-yet-known SCID.
func PlaceholderDID(targetURL string) (did.DID, error) {
	idPart, err := did.SpecIDFromWebvhURL(targetURL)
	if err != nil {
		return did.DID{}, err
	}
	return did.DID{Method: "webvh", SpecID: WebvhPlaceholder + ":" + idPart}, nil
}

// CreateOptions configures Create.
type CreateOptions struct {
	// TargetURL is the HTTPS location the resulting did.jsonl will be
	// served from.
	TargetURL string
	// Document is the initial state, built with Subject == PlaceholderDID(TargetURL).
	Document *did.Document
	// UpdateKeys authorizes signers for future entries; at least one required.
	UpdateKeys []string
	// NextKeys, if present, commits to the keys permitted for the next rotation.
	NextKeys []string
	Witness  *Witness
	Portable bool
	TTL      int
	Signer   did.Signer
	Now      time.Time
}

// Create builds the first LogEntry of a did:webvh history.
func Create(ctx context.Context, opts CreateOptions) (*Result, error) {
	placeholder, err := PlaceholderDID(opts.TargetURL)
	if err != nil {
		return nil, err
	}
	if opts.Document == nil || opts.Document.Subject != placeholder {
		return nil, diderr.New(diderr.KindInvalidOperation, "document subject must equal the placeholder DID derived from TargetURL")
	}
	if len(opts.UpdateKeys) == 0 {
		return nil, diderr.New(diderr.KindInvalidOperation, "at least one updateKey is required")
	}
	if err := ValidateWitness(opts.Witness); err != nil {
		return nil, err
	}

	var nextKeyHashes []string
	for _, k := range opts.NextKeys {
		nextKeyHashes = append(nextKeyHashes, keyHash(k))
	}

	versionTime := opts.Document.Metadata.Created
	if versionTime.IsZero() {
		versionTime = opts.Now
	}
	versionTime = versionTime.UTC().Truncate(time.Second)

	entry := LogEntry{
		VersionID:   WebvhPlaceholder,
		VersionTime: versionTime,
		Parameters: Parameters{
			Method:        MethodVersion,
			SCID:          WebvhPlaceholder,
			UpdateKeys:    opts.UpdateKeys,
			Portable:      opts.Portable,
			NextKeyHashes: nextKeyHashes,
			Witness:       opts.Witness,
			TTL:           opts.TTL,
		},
		State: opts.Document,
	}

	scid, err := entryHash(entry)
	if err != nil {
		return nil, err
	}

	entry, err = substitutePlaceholder(entry, WebvhPlaceholder, scid)
	if err != nil {
		return nil, err
	}

	hash, err := entryHash(entry)
	if err != nil {
		return nil, err
	}
	entry.VersionID = "1-" + hash

	p, err := proof.Sign(ctx, entry.withoutProof(), opts.Signer, proof.PurposeAssertionMethod, opts.Now)
	if err != nil {
		return nil, err
	}
	entry.Proof = []*proof.Proof{p}

	return &Result{
		DID:      entry.State.Subject,
		Document: entry.State,
		Log:      &Log{DID: entry.State.Subject, Entries: []*LogEntry{&entry}},
	}, nil
}

// substitutePlaceholder replaces every textual occurrence of old with new
// in e's JSON encoding and re-parses the result.
func substitutePlaceholder(e LogEntry, old, replacement string) (LogEntry, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return LogEntry{}, diderr.Wrap(diderr.KindInvalidLog, "marshaling log entry", err)
	}
	replaced := strings.ReplaceAll(string(raw), old, replacement)

	var out LogEntry
	if err := json.Unmarshal([]byte(replaced), &out); err != nil {
		return LogEntry{}, diderr.Wrap(diderr.KindInvalidLog, "re-parsing log entry after SCID substitution", err)
	}
	return out, nil
}
