// Package web implements the did:web method: transform the DID to an
// HTTPS URL, fetch `did.json` through the injected resolver hook, and
// parse it.
package web

import (
	"context"
	"encoding/json"
	"time"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
)

// Resolve transforms subject into its did.json URL, fetches it through
// resolver, and parses the result as a Document.
func Resolve(ctx context.Context, subject did.DID, resolver did.Resolver) (*did.Document, error) {
	if subject.Method != string(did.MethodWeb) {
		return nil, diderr.New(diderr.KindUnsupportedMethod, "not a did:web identifier").WithDID(subject.String())
	}

	url, err := did.WebURL(subject.SpecID)
	if err != nil {
		return nil, err
	}
	raw, err := resolver.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var doc did.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, diderr.Wrap(diderr.KindInvalidOperation, "parsing did.json", err).WithDID(subject.String())
	}
	if !doc.Subject.Equal(subject.String()) {
		return nil, diderr.New(diderr.KindInvalidOperation, "did.json id does not match the requested DID").WithDID(subject.String())
	}
	return &doc, nil
}

// Create builds the initial did.json Document for a did:web identifier
// derived from targetURL, mirroring original_source/did/src/web/create.rs:
// there is no hash-linked history for did:web, so this is just the
// Document Builder with the subject's create-time metadata stamped
// (SPEC_FULL.md §6, "did:web create helper").
func Create(targetURL string, build func(*did.DocumentBuilder) *did.DocumentBuilder, now time.Time) (did.DID, *did.Document, error) {
	specID, err := did.SpecIDFromWebURL(targetURL)
	if err != nil {
		return did.DID{}, nil, err
	}
	subject := did.DID{Method: string(did.MethodWeb), SpecID: specID}

	b := did.NewCreateBuilder(subject)
	if build != nil {
		b = build(b)
	}
	doc, err := b.Build()
	if err != nil {
		return did.DID{}, nil, err
	}
	doc.Metadata.Created = now.UTC()
	return subject, doc, nil
}
