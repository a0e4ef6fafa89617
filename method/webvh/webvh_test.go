package webvh_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/internal/mkey"
	mwebvh "github.com/webvh-go/did/method/webvh"
	vh "github.com/webvh-go/did/webvh"
)

type memSigner struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

func newMemSigner(t *testing.T) *memSigner {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return &memSigner{pub: pub, priv: priv}
}

func (s *memSigner) TrySign(_ context.Context, msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}
func (s *memSigner) VerifyingKey() []byte       { return s.pub }
func (s *memSigner) Algorithm() string          { return "EdDSA" }
func (s *memSigner) VerificationMethod() string { return mkey.Encode(mkey.Ed25519, s.pub) }

type fakeResolver struct {
	byURL map[string][]byte
}

func (f *fakeResolver) Fetch(_ context.Context, url string) ([]byte, error) {
	return f.byURL[url], nil
}

func buildLog(t *testing.T) (did.DID, []byte) {
	t.Helper()
	signer := newMemSigner(t)
	subject, err := vh.PlaceholderDID("https://example.com/dids/alice")
	require.NoError(t, err)

	_, pub, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	doc, err := did.NewCreateBuilder(subject).
		AddVerifyingKey(mkey.Encode(mkey.Ed25519, pub), false).
		Build()
	require.NoError(t, err)

	result, err := vh.Create(context.Background(), vh.CreateOptions{
		TargetURL:  "https://example.com/dids/alice",
		Document:   doc,
		UpdateKeys: []string{signer.VerificationMethod()},
		Signer:     signer,
		Now:        time.Now(),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	for _, e := range result.Log.Entries {
		raw, err := json.Marshal(e)
		require.NoError(t, err)
		buf.Write(raw)
		buf.WriteByte('\n')
	}
	return result.DID, buf.Bytes()
}

func TestResolveFetchesAndVerifiesLog(t *testing.T) {
	subject, jsonl := buildLog(t)

	resolver := &fakeResolver{byURL: map[string][]byte{
		"https://example.com/dids/alice/did.jsonl": jsonl,
	}}

	doc, err := mwebvh.Resolve(context.Background(), subject, resolver, nil)
	require.NoError(t, err)
	assert.Equal(t, subject.String(), doc.Subject.String())
}

func TestParseLogRejectsEmpty(t *testing.T) {
	subject, _ := buildLog(t)
	_, err := mwebvh.ParseLog(subject, []byte("\n\n"))
	require.Error(t, err)
}
