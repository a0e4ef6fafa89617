package webvh_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/webvh"
)

func TestUpdateAppendsEntry(t *testing.T) {
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
	assert.Equal(t, "2-", updated.Log.Entries[1].VersionID[:2])

	doc, err := webvh.Resolve(context.Background(), webvh.ResolveOptions{Log: updated.Log})
	require.NoError(t, err)
	assert.Equal(t, updated.Log.Entries[1].VersionID, doc.Metadata.VersionID)
}

func TestUpdateRejectsSignerNotAnUpdateKey(t *testing.T) {
	signer := newMemSigner(t)
	result := newLog(t, "https://example.com", signer)
	impostor := newMemSigner(t)

	_, err := webvh.Update(context.Background(), webvh.UpdateOptions{
		Log:      result.Log,
		Document: result.Document,
		Signer:   impostor,
		Now:      result.Log.Entries[0].VersionTime.Add(time.Hour),
	})
	require.Error(t, err)
}

func TestUpdateRotatesKeysViaNextKeyHashes(t *testing.T) {
	signer := newMemSigner(t)
	next := newMemSigner(t)
	subject, err := webvh.PlaceholderDID("https://example.com")
	require.NoError(t, err)
	doc := newDocument(t, subject)

	created, err := webvh.Create(context.Background(), webvh.CreateOptions{
		TargetURL:  "https://example.com",
		Document:   doc,
		UpdateKeys: []string{signer.multibase()},
		NextKeys:   []string{next.multibase()},
		Signer:     signer,
		Now:        time.Now(),
	})
	require.NoError(t, err)

	t1 := created.Log.Entries[0].VersionTime.Add(time.Hour)
	rotated, err := webvh.Update(context.Background(), webvh.UpdateOptions{
		Log:        created.Log,
		Document:   created.Document,
		UpdateKeys: []string{next.multibase()},
		Signer:     signer,
		Now:        t1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{next.multibase()}, rotated.Log.Entries[1].Parameters.UpdateKeys)

	_, err = webvh.Resolve(context.Background(), webvh.ResolveOptions{Log: rotated.Log})
	require.NoError(t, err)
}

func TestUpdateRejectsUncommittedRotationKey(t *testing.T) {
	signer := newMemSigner(t)
	next := newMemSigner(t)
	impostor := newMemSigner(t)
	subject, err := webvh.PlaceholderDID("https://example.com")
	require.NoError(t, err)
	doc := newDocument(t, subject)

	created, err := webvh.Create(context.Background(), webvh.CreateOptions{
		TargetURL:  "https://example.com",
		Document:   doc,
		UpdateKeys: []string{signer.multibase()},
		NextKeys:   []string{next.multibase()},
		Signer:     signer,
		Now:        time.Now(),
	})
	require.NoError(t, err)

	_, err = webvh.Update(context.Background(), webvh.UpdateOptions{
		Log:        created.Log,
		Document:   created.Document,
		UpdateKeys: []string{impostor.multibase()},
		Signer:     signer,
		Now:        created.Log.Entries[0].VersionTime.Add(time.Hour),
	})
	require.Error(t, err)
}

func TestUpdateRejectsPortableFalseToTrueTransition(t *testing.T) {
	signer := newMemSigner(t)
	result := newLog(t, "https://example.com", signer)
	require.False(t, result.Log.Entries[0].Parameters.Portable)

	_, err := webvh.Update(context.Background(), webvh.UpdateOptions{
		Log:         result.Log,
		Document:    result.Document,
		PortableSet: true,
		Portable:    true,
		Signer:      signer,
		Now:         result.Log.Entries[0].VersionTime.Add(time.Hour),
	})
	require.Error(t, err)
}

func TestUpdatePortableMoveRequiresFlag(t *testing.T) {
	signer := newMemSigner(t)
	result := newLog(t, "https://example.com", signer)

	scid, _, err := did.SplitWebvhSCID(result.Document.Subject.SpecID)
	require.NoError(t, err)
	moved := did.DID{Method: "webvh", SpecID: scid + ":other.example"}
	movedDoc, err := did.NewUpdateBuilder(result.Document).Build()
	require.NoError(t, err)
	movedDoc.Subject = moved

	_, err = webvh.Update(context.Background(), webvh.UpdateOptions{
		Log:      result.Log,
		Document: movedDoc,
		Signer:   signer,
		Now:      result.Log.Entries[0].VersionTime.Add(time.Hour),
	})
	require.Error(t, err)
}
