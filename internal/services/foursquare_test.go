package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFoursquareClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("query") != "Cardiology Doctor" {
			t.Errorf("query = %q, want %q", q.Get("query"), "Cardiology Doctor")
		}
		if q.Get("near") != "Austin" {
			t.Errorf("near = %q, want %q", q.Get("near"), "Austin")
		}
		if q.Get("radius") != "5000" {
			t.Errorf("radius = %q, want %q", q.Get("radius"), "5000")
		}
		if q.Get("client_id") == "" || q.Get("client_secret") == "" {
			t.Error("credentials missing from request")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":{"venues":[{"name":"Heart Clinic"},{"name":"Downtown Medical"}]}}`))
	}))
	defer server.Close()

	client := NewFoursquareClient("id", "secret")
	client.baseURL = server.URL

	venues, err := client.Search(context.Background(), "Cardiology Doctor", "Austin", 5000)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(venues) != 2 {
		t.Fatalf("Venues = %d, want 2", len(venues))
	}
	// Order must match the API response.
	if venues[0].Name != "Heart Clinic" || venues[1].Name != "Downtown Medical" {
		t.Errorf("Venues = %v, out of order", venues)
	}
}

func TestFoursquareClientUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"meta":{"errorType":"invalid_auth"}}`))
	}))
	defer server.Close()

	client := NewFoursquareClient("id", "secret")
	client.baseURL = server.URL

	_, err := client.Search(context.Background(), "Doctor", "Austin", 5000)
	if !errors.Is(err, ErrEnrichmentUnavailable) {
		t.Errorf("Error = %v, want ErrEnrichmentUnavailable", err)
	}
}

func TestFoursquareClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewFoursquareClient("id", "secret")
	client.baseURL = server.URL

	_, err := client.Search(context.Background(), "Doctor", "Austin", 5000)
	if !errors.Is(err, ErrEnrichmentUnavailable) {
		t.Errorf("Error = %v, want ErrEnrichmentUnavailable", err)
	}
}
