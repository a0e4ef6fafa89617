package jwk_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/method/jwk"
)

// TestResolveScenario2 resolves a concrete secp256k1 did:jwk identifier
// and checks the embedded JsonWebKey2020 verification method.
func TestResolveScenario2(t *testing.T) {
	rawJwk := `{"kty":"EC","crv":"secp256k1","x":"JJzPi4qy2rvKSVO9F2-05VWeX2ohswX7STo87MGqqPw","y":"C1RtFnqW9lNLB5z72pon123dxv1kDqU3Ql5B8s0Wc_4"}`
	b64 := base64.RawURLEncoding.EncodeToString([]byte(rawJwk))
	subject := did.DID{Method: "jwk", SpecID: b64}

	doc, err := jwk.Resolve(subject)
	require.NoError(t, err)

	assert.Equal(t, "did:jwk:"+b64, doc.Subject.String())
	require.Len(t, doc.VerificationMethods, 1)
	vm := doc.VerificationMethods[0]
	assert.Equal(t, "did:jwk:"+b64+"#key-0", vm.ID.String())
	assert.Equal(t, did.TypeJsonWebKey2020, vm.Type)
	assert.JSONEq(t, rawJwk, string(vm.PublicKeyJwk))
}

func TestResolveRejectsMalformedID(t *testing.T) {
	subject := did.DID{Method: "jwk", SpecID: "not-valid-base64url-json!!"}
	_, err := jwk.Resolve(subject)
	require.Error(t, err)
}

func TestCreateRoundTrips(t *testing.T) {
	rawJwk := []byte(`{"kty":"OKP","crv":"Ed25519","x":"11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"}`)
	subject, doc, err := jwk.Create(rawJwk)
	require.NoError(t, err)
	assert.Equal(t, "jwk", subject.Method)
	assert.Equal(t, subject.String(), doc.Subject.String())
}
