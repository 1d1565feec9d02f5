package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEmbed_LoopsPrompts(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		prompts = append(prompts, req.Prompt)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float64{float64(len(req.Prompt)), 1.0},
		})
	}))
	defer srv.Close()

	c := NewEmbeddingClient(srv.URL, "nomic-embed-text", 2*time.Second)
	vectors, err := c.Embed(context.Background(), []string{"first", "second text"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if vectors[0][0] != 5 || vectors[1][0] != 11 {
		t.Errorf("expected per-prompt vectors in order, got %v", vectors)
	}
	if len(prompts) != 2 || prompts[0] != "first" || prompts[1] != "second text" {
		t.Errorf("unexpected prompts sent: %v", prompts)
	}
}

func TestEmbed_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model not pulled"})
	}))
	defer srv.Close()

	c := NewEmbeddingClient(srv.URL, "nomic-embed-text", 2*time.Second)
	_, err := c.Embed(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error")
	}

	var notFound *ModelNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected ModelNotFoundError, got %T: %v", err, err)
	}
}

func TestEmbed_HostDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewEmbeddingClient(url, "nomic-embed-text", 1*time.Second)
	_, err := c.Embed(context.Background(), []string{"text"})

	var unreachable *UnreachableError
	if !errors.As(err, &unreachable) {
		t.Errorf("expected UnreachableError, got %T: %v", err, err)
	}
}

func TestEmbed_EmptyInput(t *testing.T) {
	c := NewEmbeddingClient("http://localhost:11434", "nomic-embed-text", time.Second)
	vectors, err := c.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("expected no vectors, got %d", len(vectors))
	}
}
