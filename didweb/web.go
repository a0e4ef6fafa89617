// Package didweb provides the standard HTTP did.Resolver implementation
// used by did:web and did:webvh resolution.
package didweb

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/webvh-go/did/diderr"
)

// DownloadMaxDefault is an upper boundary for byte sizes. The default of
// 64 KiB provides good protection for most use-cases.
const DownloadMaxDefault = 1 << 16

// Client uses HTTP to fetch DID artifacts: `did.json` for did:web,
// `did.jsonl` for did:webvh. It implements did.Resolver. Multiple
// goroutines may invoke methods on a Client simultaneously.
type Client struct {
	http.Client
	// DownloadMax is the upper boundary for byte sizes. Zero defaults to
	// DownloadMaxDefault. Negative values raise the limit to 1 GiB.
	DownloadMax int
}

// Fetch retrieves the raw bytes found at url, enforcing DownloadMax and
// translating HTTP status into the diderr taxonomy.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, diderr.Wrap(diderr.KindIO, "malformed DID artifact URL", err).WithURL(url)
	}
	req.Header.Set("Accept", "application/did+json, application/did+ld+json;q=0.7, application/jsonl;q=0.5, application/json;q=0.1")

	res, err := c.httpClient().Do(req)
	if err != nil {
		return nil, diderr.Wrap(diderr.KindIO, "DID artifact lookup failed", err).WithURL(url)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, diderr.New(diderr.KindNotFound, "DID artifact not found").WithURL(url)
	default:
		return nil, diderr.New(diderr.KindIO, fmt.Sprintf("HTTP %s fetching DID artifact", res.Status)).WithURL(url)
	}

	max := DownloadMaxDefault
	switch {
	case c.DownloadMax > 0:
		max = c.DownloadMax
	case c.DownloadMax < 0:
		max = 1 << 30 // hard ceiling even with the limit "disabled"
	}
	r := io.LimitedReader{R: res.Body, N: int64(max) + 1}

	body, err := io.ReadAll(&r)
	if err != nil {
		return nil, diderr.Wrap(diderr.KindIO, "reading DID artifact body", err).WithURL(url)
	}
	if r.N <= 0 {
		return nil, diderr.New(diderr.KindIO, fmt.Sprintf("DID artifact exceeds %d byte limit", max)).WithURL(url)
	}
	return body, nil
}

func (c *Client) httpClient() *http.Client {
	if c.Transport == nil && c.CheckRedirect == nil && c.Jar == nil && c.Timeout == 0 {
		return http.DefaultClient
	}
	return &c.Client
}
