package did_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    did.DID
		wantErr diderr.Kind
	}{
		{name: "key", input: "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK",
			want: did.DID{Method: "key", SpecID: "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"}},
		{name: "web with port", input: "did:web:example.com%3A8443:path",
			want: did.DID{Method: "web", SpecID: "example.com%3A8443:path"}},
		{name: "no prefix", input: "example.com", wantErr: diderr.KindInvalidDid},
		{name: "empty method", input: "did::abc", wantErr: diderr.KindInvalidDid},
		{name: "unsupported method", input: "did:sov:abc", wantErr: diderr.KindUnsupportedMethod},
		{name: "trailing slash not a bare DID", input: "did:key:abc/path", wantErr: diderr.KindInvalidDid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := did.Parse(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, diderr.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseURL(t *testing.T) {
	s := "did:web:example.com:path/to/resource?versionId=2&service=files#key-1"
	u, err := did.ParseURL(s)
	require.NoError(t, err)
	assert.Equal(t, "web", u.Method)
	assert.Equal(t, "example.com:path", u.SpecID)
	assert.Equal(t, []string{"to", "resource"}, u.Path)
	assert.Equal(t, "2", u.Query.VersionID)
	assert.Equal(t, "files", u.Query.Service)
	assert.Equal(t, "key-1", u.Fragment)
	assert.True(t, u.Equal(s))
}

func TestParseURLVersionTime(t *testing.T) {
	s := "did:webvh:abc:example.com?versionTime=2024-01-02T03:04:05Z"
	u, err := did.ParseURL(s)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), u.Query.VersionTime)
}

func TestURLStringRoundTrip(t *testing.T) {
	inputs := []string{
		"did:key:z6Mkf5rGMoatrSj1f4CyvuHBeXJELe9RPdzo2PKGNCKVtZxP",
		"did:web:example.com",
		"did:web:example.com/did.json",
		"did:webvh:Qm123:example.com:path#key-0",
	}
	for _, in := range inputs {
		u, err := did.ParseURL(in)
		require.NoError(t, err)
		assert.Equal(t, in, u.String())
	}
}

func TestDIDEqual(t *testing.T) {
	d, err := did.Parse("did:key:abc")
	require.NoError(t, err)
	assert.True(t, d.Equal("did:key:abc"))
	assert.False(t, d.Equal("did:key:xyz"))
	assert.False(t, d.Equal("not a did"))
}

func TestDIDJSONRoundTrip(t *testing.T) {
	d, err := did.Parse("did:jwk:eyJrdHkiOiJPS1AifQ")
	require.NoError(t, err)

	raw, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"did:jwk:eyJrdHkiOiJPS1AifQ"`, string(raw))

	var got did.DID
	require.NoError(t, got.UnmarshalJSON(raw))
	assert.Equal(t, d, got)
}
