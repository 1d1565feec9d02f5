package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newChatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestChat_Success(t *testing.T) {
	var captured chatPayload
	srv := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": `{"decision":"ACCEPT"}`},
			"done":    true,
		})
	})

	c := NewClient(srv.URL, 2*time.Second, 0)
	content, err := c.Chat(context.Background(), ChatRequest{
		Model: "llama3.1",
		Messages: []Message{
			{Role: "system", Content: "You are a data quality analyst."},
			{Role: "user", Content: "analyze this"},
		},
		JSON: true,
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if content != `{"decision":"ACCEPT"}` {
		t.Errorf("unexpected content: %q", content)
	}

	if captured.Model != "llama3.1" {
		t.Errorf("expected model llama3.1, got %s", captured.Model)
	}
	if captured.Stream {
		t.Error("expected non-streaming request")
	}
	if captured.Format != "json" {
		t.Errorf("expected json format, got %q", captured.Format)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Errorf("unexpected messages: %+v", captured.Messages)
	}
}

func TestChat_EmptyModelAndMessages(t *testing.T) {
	c := NewClient("http://localhost:11434", 2*time.Second, 0)

	if _, err := c.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := c.Chat(context.Background(), ChatRequest{Model: "llama3.1"}); err == nil {
		t.Error("expected error for empty messages")
	}
}

func TestChat_ModelNotFound(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'missing' not found"})
	})

	c := NewClient(srv.URL, 2*time.Second, 2)
	_, err := c.Chat(context.Background(), ChatRequest{Model: "missing", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error")
	}

	var notFound *ModelNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected ModelNotFoundError, got %T: %v", err, err)
	}
}

func TestChat_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid options"})
	})

	c := NewClient(srv.URL, 2*time.Second, 3)
	_, err := c.Chat(context.Background(), ChatRequest{Model: "llama3.1", Messages: []Message{{Role: "user", Content: "hi"}}})

	var badReq *BadRequestError
	if !errors.As(err, &badReq) {
		t.Fatalf("expected BadRequestError, got %T: %v", err, err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", got)
	}
}

func TestChat_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "recovered"},
			"done":    true,
		})
	})

	c := NewClient(srv.URL, 2*time.Second, 3)
	c.baseDelay = time.Millisecond
	content, err := c.Chat(context.Background(), ChatRequest{Model: "llama3.1", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Chat failed after retries: %v", err)
	}
	if content != "recovered" {
		t.Errorf("unexpected content: %q", content)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestChat_RetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c := NewClient(srv.URL, 2*time.Second, 2)
	c.baseDelay = time.Millisecond
	_, err := c.Chat(context.Background(), ChatRequest{Model: "llama3.1", Messages: []Message{{Role: "user", Content: "hi"}}})

	var rateLimited *RateLimitError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 calls (1 + 2 retries), got %d", got)
	}
}

func TestChat_HostDown(t *testing.T) {
	// A closed server port is refused immediately.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, 1*time.Second, 0)
	_, err := c.Chat(context.Background(), ChatRequest{Model: "llama3.1", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}

	var unreachable *UnreachableError
	if !errors.As(err, &unreachable) {
		t.Errorf("expected UnreachableError, got %T: %v", err, err)
	}
}

func TestChat_ContextCancelled(t *testing.T) {
	srv := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "late"},
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, 2*time.Second, 0)
	if _, err := c.Chat(ctx, ChatRequest{Model: "llama3.1", Messages: []Message{{Role: "user", Content: "hi"}}}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
