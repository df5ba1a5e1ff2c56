package entitycache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/moxious/historynet/resolver/pkg/lookup"
)

func TestHTTPFetcherEncodesQuery(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":{"Q1":{"identity":{"externalId":"Q1","canonicalTitle":"Ada"},"appearances":[],"totalAppearances":1}},"notFound":["No Such Title"]}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL + "/")
	res, err := f.FetchBatch(context.Background(), lookup.BatchQuery{
		ExternalIDs: []string{"Q1", "Q2"},
		Titles:      []string{"No Such Title"},
	})
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}

	if got.Get("externalIds") != "Q1,Q2" {
		t.Fatalf("externalIds = %q", got.Get("externalIds"))
	}
	if got.Get("titles") != "No Such Title" {
		t.Fatalf("titles = %q", got.Get("titles"))
	}
	if got.Has("nodeIds") {
		t.Fatalf("empty kind must be omitted, got %q", got.Get("nodeIds"))
	}

	if res.Results["Q1"] == nil || res.Results["Q1"].Identity.CanonicalTitle != "Ada" {
		t.Fatalf("decoded results = %+v", res.Results)
	}
	if len(res.NotFound) != 1 || res.NotFound[0] != "No Such Title" {
		t.Fatalf("notFound = %v", res.NotFound)
	}
}

func TestHTTPFetcherServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL).FetchBatch(context.Background(), lookup.BatchQuery{ExternalIDs: []string{"Q1"}})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestHTTPFetcherUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL).FetchBatch(context.Background(), lookup.BatchQuery{ExternalIDs: []string{"Q1"}})
	if err == nil || errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected a distinct error for a 500, got %v", err)
	}
}

func TestHTTPFetcherNilResultsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"notFound":["Q9"]}`))
	}))
	defer srv.Close()

	res, err := NewHTTPFetcher(srv.URL).FetchBatch(context.Background(), lookup.BatchQuery{ExternalIDs: []string{"Q9"}})
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if res.Results == nil {
		t.Fatal("results map must never be nil")
	}
}
