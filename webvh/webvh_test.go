package webvh_test

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/internal/mkey"
	"github.com/webvh-go/did/webvh"
)

// memSigner is a did.Signer test double whose VerificationMethod is the
// raw multibase public key string, matching how did:webvh updateKeys
// entries identify a signer, independent of any document verificationMethod
// fragment.
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
func (s *memSigner) VerifyingKey() []byte { return s.pub }
func (s *memSigner) Algorithm() string    { return "EdDSA" }
func (s *memSigner) VerificationMethod() string {
	return mkey.Encode(mkey.Ed25519, s.pub)
}

func (s *memSigner) multibase() string { return mkey.Encode(mkey.Ed25519, s.pub) }

// newDocument builds a minimal valid Document for subject, embedding one
// Multikey verification method. Its created time lies two hours in the
// past, so a log created from it can take entries an hour later whose
// versionTime is not in the future.
func newDocument(t *testing.T, subject did.DID) *did.Document {
	t.Helper()
	_, pub, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	doc, err := did.NewCreateBuilder(subject).
		AddVerifyingKey(mkey.Encode(mkey.Ed25519, pub), false).
		Build()
	require.NoError(t, err)
	doc.Metadata.Created = time.Now().Add(-2 * time.Hour)
	return doc
}

// newLog creates a single-entry webvh history for targetURL, signed by
// signer, which is also the sole update key.
func newLog(t *testing.T, targetURL string, signer *memSigner) *webvh.Result {
	t.Helper()
	subject, err := webvh.PlaceholderDID(targetURL)
	require.NoError(t, err)
	doc := newDocument(t, subject)

	result, err := webvh.Create(context.Background(), webvh.CreateOptions{
		TargetURL:  targetURL,
		Document:   doc,
		UpdateKeys: []string{signer.multibase()},
		Signer:     signer,
		Now:        time.Now(),
	})
	require.NoError(t, err)
	return result
}
