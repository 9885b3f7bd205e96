package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"generated"}}]}`)
	}))
	defer srv.Close()

	client := NewOpenAI(srv.URL, "test-key")
	result, err := client.Generate(context.Background(), Request{Model: "gpt-4o-mini", System: "s", User: "u"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if result.Content != "generated" {
		t.Fatalf("wrong content: %s", result.Content)
	}
}

func TestOpenAIEmptyChoicesIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL, "test-key").Generate(context.Background(), Request{Model: "m"})
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestOpenAIServerErrorIsCommunicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL, "test-key").Generate(context.Background(), Request{Model: "m"})
	if !errors.Is(err, ErrCommunication) {
		t.Fatalf("expected ErrCommunication, got %v", err)
	}
}

func TestOpenAIBaseURLHandling(t *testing.T) {
	// The /v1 segment is appended at most once regardless of the host form.
	for _, host := range []string{"http://box:8080", "http://box:8080/", "http://box:8080/v1"} {
		client := NewOpenAI(host, "k")
		if client == nil {
			t.Fatalf("nil client for host %s", host)
		}
	}
}
