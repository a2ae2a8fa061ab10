package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("error = %v, want ErrNoAPIKey", err)
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("model = %q, want gpt-4o from options", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Errorf("got %d messages, want 2", len(req.Messages))
		}

		fmt.Fprint(w, `{
			"model": "gpt-4o",
			"choices": [{"message": {"content": "138,955 BTC as of March 19, 2023."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 12, "total_tokens": 54}
		}`)
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("test-key", WithOpenAIBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAIClient failed: %v", err)
	}

	resp, err := c.Chat(context.Background(), []Message{
		SystemMessage("You answer questions about corporate bitcoin treasuries."),
		UserMessage("How much does MicroStrategy hold?"),
	}, &ChatOptions{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content == "" {
		t.Error("empty content")
	}
	if resp.Usage.TotalTokens != 54 {
		t.Errorf("total tokens = %d, want 54", resp.Usage.TotalTokens)
	}
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnauthorized, `{"error": {"message": "bad key"}}`, ErrNoAPIKey},
		{http.StatusTooManyRequests, `{"error": {"message": "slow down"}}`, ErrRateLimit},
		{http.StatusBadRequest, `{"error": {"message": "too long", "code": "context_length_exceeded"}}`, ErrContextLength},
		{http.StatusBadRequest, `{"error": {"message": "no such model", "code": "model_not_found"}}`, ErrInvalidModel},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			fmt.Fprint(w, tt.body)
		}))

		c, err := NewOpenAIClient("test-key", WithOpenAIBaseURL(srv.URL))
		if err != nil {
			t.Fatalf("NewOpenAIClient failed: %v", err)
		}
		_, err = c.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.want)
		}
		srv.Close()
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q, want /models", r.URL.Path)
		}
		fmt.Fprint(w, `{"data": []}`)
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("test-key", WithOpenAIBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAIClient failed: %v", err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
