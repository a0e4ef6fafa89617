package proof_test

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/proof"
)

type memSigner struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
	vm   string
}

func newMemSigner(t *testing.T, vm string) *memSigner {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return &memSigner{pub: pub, priv: priv, vm: vm}
}

func (s *memSigner) TrySign(_ context.Context, msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}
func (s *memSigner) VerifyingKey() []byte       { return s.pub }
func (s *memSigner) Algorithm() string          { return "EdDSA" }
func (s *memSigner) VerificationMethod() string { return s.vm }

func TestSignVerifyRoundTrip(t *testing.T) {
	signer := newMemSigner(t, "did:key:z6Mk...#key-1")
	data := map[string]any{"hello": "world"}

	p, err := proof.Sign(context.Background(), data, signer, proof.PurposeAssertionMethod, time.Now())
	require.NoError(t, err)
	assert.Equal(t, proof.Type, p.Type)
	assert.Equal(t, proof.CryptoSuite, p.CryptoSuite)

	require.NoError(t, proof.Verify(data, p, signer.VerifyingKey()))
}

func TestVerifyRejectsTamperedData(t *testing.T) {
	signer := newMemSigner(t, "did:key:z6Mk...#key-1")
	data := map[string]any{"hello": "world"}

	p, err := proof.Sign(context.Background(), data, signer, proof.PurposeAssertionMethod, time.Now())
	require.NoError(t, err)

	tampered := map[string]any{"hello": "mallory"}
	err = proof.Verify(tampered, p, signer.VerifyingKey())
	require.Error(t, err)
	assert.True(t, diderr.Is(err, diderr.KindInvalidSignature))
}

func TestSignWithNonceRoundTrip(t *testing.T) {
	signer := newMemSigner(t, "did:key:z6Mk...#key-1")
	data := map[string]any{"hello": "world"}
	nonce := proof.NewNonce()

	p, err := proof.SignWithNonce(context.Background(), data, signer, proof.PurposeAssertionMethod, time.Now(), nonce)
	require.NoError(t, err)
	assert.Equal(t, nonce, p.Nonce)
	require.NoError(t, proof.Verify(data, p, signer.VerifyingKey()))

	p.Nonce = proof.NewNonce()
	err = proof.Verify(data, p, signer.VerifyingKey())
	require.Error(t, err)
	assert.True(t, diderr.Is(err, diderr.KindInvalidSignature))
}

func TestSignRejectsNonEdDSAAlgorithm(t *testing.T) {
	signer := &rsaLikeSigner{memSigner: newMemSigner(t, "did:key:z6Mk...#key-1")}

	_, err := proof.Sign(context.Background(), map[string]any{}, signer, proof.PurposeAssertionMethod, time.Now())
	require.Error(t, err)
	assert.True(t, diderr.Is(err, diderr.KindUnsupportedAlgo))
}

type rsaLikeSigner struct {
	*memSigner
}

func (s *rsaLikeSigner) Algorithm() string { return "RS256" }
