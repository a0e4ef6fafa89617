package didweb_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/didweb"
)

func TestFetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"id":"did:web:example.com"}`)
	}))
	defer srv.Close()

	body, err := new(didweb.Client).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"did:web:example.com"}`, string(body))
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "arbitrary")
	}))
	defer srv.Close()

	_, err := new(didweb.Client).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, diderr.Is(err, diderr.KindNotFound))
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "boom")
	}))
	defer srv.Close()

	_, err := new(didweb.Client).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, diderr.Is(err, diderr.KindIO))
}

func TestFetchDownloadMaxExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"id":"did:web:example.com","padding":"`+string(make([]byte, 128))+`"}`)
	}))
	defer srv.Close()

	client := &didweb.Client{DownloadMax: 16}
	_, err := client.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, diderr.Is(err, diderr.KindIO))
}
