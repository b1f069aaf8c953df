package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	body, err := NewFetcher("", 0).Fetch(context.Background(), srv.URL+"/cal.ics")
	require.NoError(t, err)
	require.Equal(t, sampleFeed, string(body))
}

func TestFetcherNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(t.TempDir(), 0).Fetch(context.Background(), srv.URL+"/private.ics?token=secret")
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
	require.NotContains(t, err.Error(), "secret")
}

func TestFetcherEmptyURL(t *testing.T) {
	_, err := NewFetcher("", 0).Fetch(context.Background(), "")
	require.Error(t, err)
}

func TestFetcherConditionalCache(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 0)

	first, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	second, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.EqualValues(t, 2, hits.Load())
	require.EqualValues(t, 1, notModified.Load())
}

func TestFetcherNotModifiedWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	_, err := NewFetcher("", 0).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	require.Equal(t, "https://example.com/...(redacted)", RedactURL("https://example.com/path/to/private.ics?token=abcd"))
	require.Equal(t, "http://127.0.0.1:8080/...(redacted)", RedactURL("http://127.0.0.1:8080"))
	require.Equal(t, "ics://...(redacted)", RedactURL("not a url"))
}

func TestFetcherTransportErrorIsRedacted(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/private.ics?token=secret"
	srv.Close()

	_, err := NewFetcher("", 0).Fetch(context.Background(), url)
	require.Error(t, err)
	require.NotContains(t, err.Error(), "secret")
	require.Contains(t, err.Error(), "redacted")
}
