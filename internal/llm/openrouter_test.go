package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iksnae/prattle/internal"
	"github.com/tidwall/gjson"
)

func newTestOpenRouter(t *testing.T, handler http.HandlerFunc) *OpenRouter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenRouter(OpenRouterConfig{APIKey: "test-key", BaseURL: srv.URL})
}

var testMessages = []internal.ChatMessage{
	{Role: internal.RoleSystem, Content: "be brief"},
	{Role: internal.RoleUser, Content: "Hello"},
}

func TestOpenRouter_Complete(t *testing.T) {
	var body string
	or := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("X-Title") == "" {
			t.Error("X-Title header missing")
		}
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Hi there"}}],
			"usage":{"prompt_tokens":6,"completion_tokens":4,"cost":0.0001}}`)
	})

	res, err := or.Complete(context.Background(), testMessages, "test/model")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if res.Text != "Hi there" {
		t.Errorf("Text = %q, want %q", res.Text, "Hi there")
	}
	want := internal.TokenUsage{PromptTokens: 6, CompletionTokens: 4, Cost: 0.0001}
	if res.Usage == nil || *res.Usage != want {
		t.Errorf("Usage = %+v, want %+v", res.Usage, want)
	}

	if gjson.Get(body, "model").String() != "test/model" || gjson.Get(body, "stream").Bool() {
		t.Errorf("request body = %s", body)
	}
	if !gjson.Get(body, "usage.include").Bool() {
		t.Errorf("usage accounting not requested: %s", body)
	}
	if gjson.Get(body, "messages.1.content").String() != "Hello" || gjson.Get(body, "messages.0.role").String() != "system" {
		t.Errorf("messages = %s", gjson.Get(body, "messages").Raw)
	}
}

func TestOpenRouter_CompletePricingFallback(t *testing.T) {
	var modelCalls int32
	or := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			atomic.AddInt32(&modelCalls, 1)
			fmt.Fprint(w, `{"data":[{"id":"test/model","pricing":{"prompt":"0.001","completion":"0.002"}}]}`)
		default:
			fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`)
		}
	})

	for i := 0; i < 2; i++ {
		res, err := or.Complete(context.Background(), testMessages, "test/model")
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if got := res.Usage.Cost; got < 0.01999 || got > 0.02001 {
			t.Errorf("Cost = %v, want 0.02", got)
		}
	}
	if n := atomic.LoadInt32(&modelCalls); n != 1 {
		t.Errorf("/models fetched %d times, want 1", n)
	}
}

func TestOpenRouter_CompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"http error with message", http.StatusUnauthorized, `{"error":{"message":"No auth credentials found"}}`, "No auth credentials found"},
		{"http error plain body", http.StatusBadGateway, "upstream down", "upstream down"},
		{"api error in body", http.StatusOK, `{"error":{"message":"model not found"}}`, "model not found"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			or := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := or.Complete(context.Background(), testMessages, "m")
			var sumErr *internal.SummarizerError
			if !errors.As(err, &sumErr) {
				t.Fatalf("Complete() error = %v, want *SummarizerError", err)
			}
			if sumErr.Provider != "openrouter" || sumErr.Model != "m" {
				t.Errorf("SummarizerError = %+v", sumErr)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestOpenRouter_Stream(t *testing.T) {
	or := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(readBody(r), `"stream":true`) {
			t.Error("stream not requested")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Hi"}}]}`+"\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":" there"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{}}],"usage":{"prompt_tokens":6,"completion_tokens":4,"cost":0.0001}}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var chunks []internal.Chunk
	err := or.Stream(context.Background(), testMessages, "m", func(c internal.Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks = %+v, want 2", chunks)
	}
	if chunks[0].Text != "Hi" || chunks[0].Usage != nil {
		t.Errorf("chunk 0 = %+v", chunks[0])
	}
	if chunks[1].Text != " there" || chunks[1].Usage == nil || chunks[1].Usage.TotalTokens() != 10 {
		t.Errorf("chunk 1 = %+v, want text with usage", chunks[1])
	}

	res, err := internal.CollectStream(context.Background(), or, testMessages, "m", nil)
	if err != nil {
		t.Fatalf("CollectStream() error = %v", err)
	}
	if res.Text != "Hi there" || res.Usage.Cost != 0.0001 {
		t.Errorf("CollectStream() = %+v", res)
	}
}

func TestOpenRouter_StreamCallbackError(t *testing.T) {
	or := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"a"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"b"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stop := errors.New("stop")
	err := or.Stream(context.Background(), testMessages, "m", func(c internal.Chunk) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Stream() error = %v, want %v", err, stop)
	}
}

func newTimedOpenRouter(t *testing.T, timeout time.Duration, handler http.HandlerFunc) *OpenRouter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenRouter(OpenRouterConfig{APIKey: "test-key", BaseURL: srv.URL, Timeout: timeout})
}

func TestOpenRouter_StreamLongerThanTimeout(t *testing.T) {
	or := newTimedOpenRouter(t, 300*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 6; i++ {
			fmt.Fprintf(w, `data: {"choices":[{"delta":{"content":"x%d "}}]}`+"\n\n", i)
			w.(http.Flusher).Flush()
			time.Sleep(100 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	res, err := internal.CollectStream(context.Background(), or, testMessages, "m", nil)
	if err != nil {
		t.Fatalf("CollectStream() error = %v", err)
	}
	if want := "x0 x1 x2 x3 x4 x5 "; res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
}

func TestOpenRouter_StreamIdle(t *testing.T) {
	or := newTimedOpenRouter(t, 200*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"partial"}}]}`+"\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	var got []string
	err := or.Stream(context.Background(), testMessages, "m", func(c internal.Chunk) error {
		got = append(got, c.Text)
		return nil
	})
	var sumErr *internal.SummarizerError
	if !errors.As(err, &sumErr) {
		t.Fatalf("Stream() error = %v, want SummarizerError", err)
	}
	if !strings.Contains(err.Error(), "no data for") {
		t.Errorf("Stream() error = %v, want idle timeout", err)
	}
	if len(got) != 0 {
		t.Errorf("chunks = %q, want none delivered after a failed stream", got)
	}
}

func TestOpenRouter_ContextCancelled(t *testing.T) {
	or := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"late"}}]}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := or.Complete(ctx, testMessages, "m")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		settings internal.Settings
		wantType string
		wantErr  bool
	}{
		{"openrouter", internal.Settings{Provider: internal.ProviderOpenRouter, APIKey: "k"}, "*llm.OpenRouter", false},
		{"anthropic", internal.Settings{Provider: internal.ProviderAnthropic, APIKey: "k"}, "*llm.Anthropic", false},
		{"missing key", internal.Settings{Provider: internal.ProviderOpenRouter}, "", true},
		{"unknown provider", internal.Settings{Provider: "other", APIKey: "k"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.settings)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if got := fmt.Sprintf("%T", s); got != tt.wantType {
					t.Errorf("New() type = %s, want %s", got, tt.wantType)
				}
			}
		})
	}
}

func readBody(r *http.Request) string {
	data, _ := io.ReadAll(r.Body)
	return string(data)
}
