package webvh_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webvh-go/did/webvh"
)

func TestResolveValidatesCreatedLog(t *testing.T) {
	signer := newMemSigner(t)
	result := newLog(t, "https://example.com", signer)

	doc, err := webvh.Resolve(context.Background(), webvh.ResolveOptions{Log: result.Log})
	require.NoError(t, err)
	assert.Equal(t, result.Document.Subject, doc.Subject)
	assert.Equal(t, result.Log.Entries[0].VersionID, doc.Metadata.VersionID)
	assert.Equal(t, result.Log.Entries[0].Parameters.SCID, doc.Metadata.SCID)
}

func TestResolveRejectsEmptyLog(t *testing.T) {
	_, err := webvh.Resolve(context.Background(), webvh.ResolveOptions{Log: &webvh.Log{}})
	require.Error(t, err)
}

func TestResolveRejectsTamperedEntryHash(t *testing.T) {
	signer := newMemSigner(t)
	result := newLog(t, "https://example.com", signer)

	tampered := *result.Log.Entries[0]
	tampered.Parameters.TTL = 999999
	log := &webvh.Log{DID: result.Log.DID, Entries: []*webvh.LogEntry{&tampered}}

	_, err := webvh.Resolve(context.Background(), webvh.ResolveOptions{Log: log})
	require.Error(t, err)
}

func TestResolveRejectsUnauthorizedSigner(t *testing.T) {
	signer := newMemSigner(t)
	result := newLog(t, "https://example.com", signer)

	impostor := newMemSigner(t)
	entry := *result.Log.Entries[0]
	entry.Parameters.UpdateKeys = []string{impostor.multibase()}
	log := &webvh.Log{DID: result.Log.DID, Entries: []*webvh.LogEntry{&entry}}

	_, err := webvh.Resolve(context.Background(), webvh.ResolveOptions{Log: log})
	require.Error(t, err)
}

func TestResolveStopsAtRequestedVersionID(t *testing.T) {
	signer := newMemSigner(t)
	result := newLog(t, "https://example.com", signer)

	updated, err := webvh.Update(context.Background(), webvh.UpdateOptions{
		Log:      result.Log,
		Document: result.Document,
		Signer:   signer,
		Now:      result.Log.Entries[0].VersionTime.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, updated.Log.Entries, 2)

	doc, err := webvh.Resolve(context.Background(), webvh.ResolveOptions{
		Log:       updated.Log,
		VersionID: result.Log.Entries[0].VersionID,
	})
	require.NoError(t, err)
	assert.Equal(t, result.Log.Entries[0].VersionID, doc.Metadata.VersionID)
}
