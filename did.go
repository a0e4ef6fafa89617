// Package did implements the W3C Decentralized Identifier (DID) core model:
// DID and DID-URL parsing, DID documents, verification methods, builders,
// patches, and the resolver/signer capability interfaces the rest of this
// module's packages consume. JSON-LD processing is deliberately narrow:
// a DID document is plain JSON whose "@context" happens to be meaningful to
// JSON-LD processors, nothing more.
package did

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/webvh-go/did/diderr"
)

const prefix = "did:"

// Method enumerates the DID methods this module resolves.
type Method string

const (
	MethodKey   Method = "key"
	MethodJwk   Method = "jwk"
	MethodWeb   Method = "web"
	MethodWebvh Method = "webvh"
)

// supportedMethods is used for UnsupportedMethod errors and method parsing.
var supportedMethods = map[string]Method{
	"key":   MethodKey,
	"jwk":   MethodJwk,
	"web":   MethodWeb,
	"webvh": MethodWebvh,
}

// DID contains the variable attributes of a `did:<method>:<id>` identifier.
type DID struct {
	Method string
	SpecID string
}

// Parse validates s in full as a bare DID (no path/query/fragment). Errors
// are of type *diderr.Error with Kind KindInvalidDid or
// KindUnsupportedMethod.
func Parse(s string) (DID, error) {
	method, err := parseMethodName(s)
	if err != nil {
		return DID{}, err
	}
	if _, ok := supportedMethods[method]; !ok {
		return DID{}, diderr.New(diderr.KindUnsupportedMethod, fmt.Sprintf("method %q not supported", method)).WithDID(s)
	}
	specID, end := parseSpecID(s, len(prefix)+len(method)+1)
	if end < len(s) || specID == "" {
		return DID{}, diderr.New(diderr.KindInvalidDid, "trailing characters or empty id").WithDID(s)
	}
	return DID{Method: method, SpecID: specID}, nil
}

func parseMethodName(s string) (string, error) {
	if !strings.HasPrefix(s, prefix) {
		return "", diderr.New(diderr.KindInvalidDid, "must begin with \"did:\"").WithDID(s)
	}
	for i := len(prefix); i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z':
			continue
		case c == ':':
			if i == len(prefix) {
				return "", diderr.New(diderr.KindInvalidDid, "empty method name").WithDID(s)
			}
			return s[len(prefix):i], nil
		default:
			return "", diderr.New(diderr.KindInvalidDid, fmt.Sprintf("illegal character %q in method name", c)).WithDID(s)
		}
	}
	return "", diderr.New(diderr.KindInvalidDid, "method separator ':' not found").WithDID(s)
}

// parseSpecID reads s[offset:], preserving percent-encoded colons
// (representing port separators) as-is rather than decoding them.
func parseSpecID(s string, offset int) (specID string, end int) {
	i := offset
	for i < len(s) {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z',
			c == '.', c == '-', c == '_', c == ':':
			i++
		case c == '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return s[offset:i], i
			}
			i += 3
		default:
			return s[offset:i], i
		}
	}
	return s[offset:], len(s)
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

// Equal returns whether s compares equal to d.
func (d DID) Equal(s string) bool {
	other, err := Parse(s)
	if err != nil {
		return false
	}
	return d == other
}

// String returns the DID syntax.
func (d DID) String() string {
	return prefix + d.Method + ":" + d.SpecID
}

// MarshalJSON implements the json.Marshaler interface.
func (d DID) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (d *DID) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}
	if s == "" {
		*d = DID{}
		return nil
	}
	p, err := Parse(s)
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// Query holds the structured query parameters a DID URL may carry.
// Unknown keys are preserved but ignored by every operation in this module.
type Query struct {
	Service     string
	RelativeRef string
	VersionID   string
	VersionTime time.Time
	Hl          string

	// Extra carries any unrecognized parameters verbatim, so that printing
	// round-trips. A recognized parameter keeps only its first value.
	Extra url.Values
}

func (q *Query) isZero() bool {
	return q == nil || (q.Service == "" && q.RelativeRef == "" && q.VersionID == "" &&
		q.VersionTime.IsZero() && q.Hl == "" && len(q.Extra) == 0)
}

func (q *Query) values() url.Values {
	v := url.Values{}
	if q == nil {
		return v
	}
	for k, vv := range q.Extra {
		v[k] = append([]string(nil), vv...)
	}
	if q.Service != "" {
		v.Set("service", q.Service)
	}
	if q.RelativeRef != "" {
		v.Set("relativeRef", q.RelativeRef)
	}
	if q.VersionID != "" {
		v.Set("versionId", q.VersionID)
	}
	if !q.VersionTime.IsZero() {
		v.Set("versionTime", q.VersionTime.UTC().Format(time.RFC3339))
	}
	if q.Hl != "" {
		v.Set("hl", q.Hl)
	}
	return v
}

func parseQuery(raw string) (*Query, error) {
	v, err := url.ParseQuery(raw)
	if err != nil {
		return nil, diderr.Wrap(diderr.KindInvalidDidUrl, "malformed query", err)
	}
	q := &Query{Extra: url.Values{}}
	for k, vv := range v {
		switch k {
		case "service":
			q.Service = vv[0]
		case "relativeRef":
			q.RelativeRef = vv[0]
		case "versionId":
			q.VersionID = vv[0]
		case "versionTime":
			t, err := time.Parse(time.RFC3339, vv[0])
			if err != nil {
				return nil, diderr.Wrap(diderr.KindInvalidDidUrl, "malformed versionTime", err)
			}
			q.VersionTime = t
		case "hl":
			q.Hl = vv[0]
		default:
			q.Extra[k] = vv
		}
	}
	return q, nil
}

// URL holds all attributes of a DID URL: `did:<method>:<id>[/path][?query][#fragment]`.
type URL struct {
	DID
	Path     []string
	Query    *Query
	Fragment string
}

// ParseURL validates s in full as a DID URL. Errors are of type *diderr.Error.
func ParseURL(s string) (*URL, error) {
	method, err := parseMethodName(s)
	if err != nil {
		return nil, err
	}
	if _, ok := supportedMethods[method]; !ok {
		return nil, diderr.New(diderr.KindUnsupportedMethod, fmt.Sprintf("method %q not supported", method)).WithDID(s)
	}

	specID, end := parseSpecID(s, len(prefix)+len(method)+1)
	if specID == "" {
		return nil, diderr.New(diderr.KindInvalidDidUrl, "empty id").WithDID(s)
	}
	u := &URL{DID: DID{Method: method, SpecID: specID}}

	rest := s[end:]
	if rest == "" {
		return u, nil
	}

	if rest[0] == '/' {
		i := strings.IndexAny(rest, "?#")
		var pathPart string
		if i < 0 {
			pathPart = rest
			rest = ""
		} else {
			pathPart = rest[:i]
			rest = rest[i:]
		}
		u.Path = splitPath(pathPart)
	}

	if rest == "" {
		return u, nil
	}

	if rest[0] == '?' {
		i := strings.IndexByte(rest, '#')
		var queryPart string
		if i < 0 {
			queryPart = rest[1:]
			rest = ""
		} else {
			queryPart = rest[1:i]
			rest = rest[i:]
		}
		q, err := parseQuery(queryPart)
		if err != nil {
			return nil, err
		}
		u.Query = q
	}

	if rest == "" {
		return u, nil
	}

	if rest[0] != '#' {
		return nil, diderr.New(diderr.KindInvalidDidUrl, "unexpected character before fragment").WithDID(s)
	}
	u.Fragment = rest[1:]
	return u, nil
}

func splitPath(p string) []string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// String returns the DID URL syntax. parse(print(u)) == u for any value
// produced by this module.
func (u *URL) String() string {
	var b strings.Builder
	b.WriteString(u.DID.String())
	for _, seg := range u.Path {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	if !u.Query.isZero() {
		b.WriteByte('?')
		b.WriteString(u.Query.values().Encode())
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}
	return b.String()
}

// MarshalJSON implements the json.Marshaler interface.
func (u *URL) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (u *URL) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}
	p, err := ParseURL(s)
	if err != nil {
		return err
	}
	*u = *p
	return nil
}

// Equal compares u to s using DID, path, query and fragment equality.
func (u *URL) Equal(s string) bool {
	other, err := ParseURL(s)
	if err != nil {
		return false
	}
	if !u.DID.Equal(other.DID.String()) || u.Fragment != other.Fragment {
		return false
	}
	if len(u.Path) != len(other.Path) {
		return false
	}
	for i := range u.Path {
		if u.Path[i] != other.Path[i] {
			return false
		}
	}
	return u.Query.values().Encode() == other.Query.values().Encode()
}
