package did

import (
	"net/url"
	"strings"

	"github.com/webvh-go/did/diderr"
)

// WebvhPlaceholder is the literal string substituted for the eventual SCID
// while building a did:webvh log's initial entry.
const WebvhPlaceholder = "{SCID}"

// WebURL transforms a did:web method-specific id into the HTTPS URL
// serving its did.json.
func WebURL(specID string) (string, error) {
	return specIDToURL(specID, "did.json")
}

// WebvhArtifactURL transforms a did:webvh method-specific id
// ("<scid>:<id>") into the HTTPS URL serving its did.jsonl history.
func WebvhArtifactURL(specID string) (string, error) {
	_, idPart, err := SplitWebvhSCID(specID)
	if err != nil {
		return "", err
	}
	return specIDToURL(idPart, "did.jsonl")
}

func specIDToURL(specID, file string) (string, error) {
	if specID == "" {
		return "", diderr.New(diderr.KindInvalidDid, "empty method-specific id")
	}
	hasPath := strings.Contains(specID, ":")
	converted := strings.ReplaceAll(specID, ":", "/")
	converted = strings.ReplaceAll(converted, "%3A", ":")
	if !hasPath {
		return "https://" + converted + "/.well-known/" + file, nil
	}
	return "https://" + converted + "/" + file, nil
}

// SplitWebvhSCID splits a did:webvh specID "<scid>:<id>" into its scid
// and id components.
func SplitWebvhSCID(specID string) (scid, idPart string, err error) {
	i := strings.IndexByte(specID, ':')
	if i < 0 {
		return "", "", diderr.New(diderr.KindInvalidDid, "did:webvh id must contain \"<scid>:<id>\"")
	}
	return specID[:i], specID[i+1:], nil
}

// SpecIDFromWebURL derives the did:web method-specific id that would
// resolve to rawURL's did.json (the reverse of WebURL).
func SpecIDFromWebURL(rawURL string) (string, error) {
	return specIDFromURL(rawURL, "did.json")
}

// SpecIDFromWebvhURL derives the did:webvh id component (without the scid
// prefix) that would resolve to rawURL's did.jsonl.
func SpecIDFromWebvhURL(rawURL string) (string, error) {
	return specIDFromURL(rawURL, "did.jsonl")
}

func specIDFromURL(rawURL, file string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", diderr.Wrap(diderr.KindInvalidDidUrl, "malformed URL", err)
	}
	host := strings.ReplaceAll(u.Host, ":", "%3A")

	p := strings.TrimSuffix(u.Path, "/"+file)
	p = strings.TrimPrefix(p, "/")
	if p == ".well-known" {
		p = ""
	}

	if p == "" {
		return host, nil
	}
	return host + ":" + strings.Join(splitPath(p), ":"), nil
}
