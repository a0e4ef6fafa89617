// Package webvh implements the did:webvh resolver method plug-in:
// transform the DID to an HTTPS URL, fetch `did.jsonl` through the
// injected resolver hook, parse the newline-delimited log, and run
// webvh.Resolve with the request's query parameters.
package webvh

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
	vh "github.com/webvh-go/did/webvh"
)

// ParseLog decodes raw as a did.jsonl history: newline-delimited JSON,
// one LogEntry per non-empty line.
func ParseLog(subject did.DID, raw []byte) (*vh.Log, error) {
	var entries []*vh.LogEntry
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry vh.LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, diderr.Wrap(diderr.KindInvalidLog, "parsing did.jsonl line", err).WithDID(subject.String())
		}
		entries = append(entries, &entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, diderr.Wrap(diderr.KindIO, "reading did.jsonl", err).WithDID(subject.String())
	}
	if len(entries) == 0 {
		return nil, diderr.New(diderr.KindInvalidLog, "did.jsonl has no entries").WithDID(subject.String())
	}
	return &vh.Log{DID: subject, Entries: entries}, nil
}

// Resolve transforms subject into its did.jsonl URL, fetches it through
// resolver, and resolves the log to the Document valid at the version
// requested by query.
func Resolve(ctx context.Context, subject did.DID, resolver did.Resolver, query *did.Query) (*did.Document, error) {
	if subject.Method != string(did.MethodWebvh) {
		return nil, diderr.New(diderr.KindUnsupportedMethod, "not a did:webvh identifier").WithDID(subject.String())
	}

	url, err := did.WebvhArtifactURL(subject.SpecID)
	if err != nil {
		return nil, err
	}
	raw, err := resolver.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	log, err := ParseLog(subject, raw)
	if err != nil {
		return nil, err
	}

	opts := vh.ResolveOptions{Log: log}
	if query != nil {
		opts.VersionID = query.VersionID
		opts.VersionTime = query.VersionTime
	}
	return vh.Resolve(ctx, opts)
}
