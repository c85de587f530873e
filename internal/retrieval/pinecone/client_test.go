package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New("key", srv.URL, "exams", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, srv
}

func TestQueryVector(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "key" {
			t.Fatal("missing api key header")
		}
		var req struct {
			Namespace       string    `json:"namespace"`
			TopK            int       `json:"topK"`
			Vector          []float32 `json:"vector"`
			IncludeMetadata bool      `json:"includeMetadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Namespace != "exams" || req.TopK != 3 || !req.IncludeMetadata {
			t.Fatalf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{"id": "MK-001", "score": 0.91, "metadata": map[string]string{"master_key": "MK-001", "name": "Hemograma"}},
			},
		})
	})

	matches, err := client.QueryVector(context.Background(), []float32{0.1, 0.2}, 3)
	if err != nil {
		t.Fatalf("QueryVector: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].ID != "MK-001" || matches[0].Score != 0.91 {
		t.Fatalf("unexpected match: %+v", matches[0])
	}
	if matches[0].Metadata["name"] != "Hemograma" {
		t.Fatalf("metadata lost: %v", matches[0].Metadata)
	}
}

func TestQueryVectorRejectsEmptyVector(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	if _, err := client.QueryVector(context.Background(), nil, 3); err == nil {
		t.Fatal("expected error for empty vector")
	}
}

func TestQueryVectorHTTPError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index not ready", http.StatusServiceUnavailable)
	})
	if _, err := client.QueryVector(context.Background(), []float32{1}, 1); err == nil {
		t.Fatal("expected http error to surface")
	}
}

func TestUpsert(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Namespace string   `json:"namespace"`
			Vectors   []Vector `json:"vectors"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Vectors) != 2 {
			t.Fatalf("expected 2 vectors, got %d", len(req.Vectors))
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"upsertedCount": 2})
	})

	count, err := client.Upsert(context.Background(), []Vector{
		{ID: "MK-001", Values: []float32{1}},
		{ID: "MK-002", Values: []float32{2}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 upserted, got %d", count)
	}
}

func TestUpsertNoVectors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	count, err := client.Upsert(context.Background(), nil)
	if err != nil || count != 0 {
		t.Fatalf("expected no-op, got count=%d err=%v", count, err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New("", "host", ""); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := New("key", "", ""); err == nil {
		t.Fatal("expected error for missing host")
	}
	client, err := New("key", "my-index.svc.pinecone.io", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.host != "https://my-index.svc.pinecone.io" {
		t.Fatalf("expected https prefix, got %s", client.host)
	}
}
