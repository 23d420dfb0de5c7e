package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iksnae/prattle/internal"
	"github.com/tidwall/gjson"
)

const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout           = 60 * time.Second
	appReferer               = "https://github.com/iksnae/prattle"
	appTitle                 = "Prattle"
	maxErrorBody             = 512
)

// OpenRouterConfig configures the OpenRouter client
type OpenRouterConfig struct {
	APIKey     string
	BaseURL    string        // defaults to DefaultOpenRouterBaseURL
	Timeout    time.Duration // connect, response headers and stream idle gap; defaults to 60s
	HTTPClient *http.Client  // replaces the default transport when set
}

// OpenRouter is a StreamingSummarizer backed by the OpenRouter chat
// completions API. It is safe for concurrent use.
type OpenRouter struct {
	cfg    OpenRouterConfig
	client *http.Client

	mu      sync.Mutex
	pricing map[string]modelPricing
}

// modelPricing is the USD cost per token
type modelPricing struct {
	prompt     float64
	completion float64
}

// NewOpenRouter creates a client
func NewOpenRouter(cfg OpenRouterConfig) *OpenRouter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClient(cfg.Timeout)
	}
	return &OpenRouter{cfg: cfg, client: client}
}

// newHTTPClient bounds each step of a request instead of its total
// duration, so a long streamed reply is never cut off. Cancellation of a
// whole request goes through its context.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

type orRequest struct {
	Model    string                 `json:"model"`
	Messages []internal.ChatMessage `json:"messages"`
	Stream   bool                   `json:"stream"`
	Usage    orUsageOptions         `json:"usage"`
}

type orUsageOptions struct {
	Include bool `json:"include"`
}

// Complete implements internal.Summarizer
func (o *OpenRouter) Complete(ctx context.Context, messages []internal.ChatMessage, model string) (*internal.Completion, error) {
	resp, err := o.post(ctx, messages, model, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, o.fail(model, fmt.Errorf("read response body: %w", err))
	}
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return nil, o.fail(model, fmt.Errorf("API error: %s", msg.String()))
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return nil, o.fail(model, fmt.Errorf("no choices returned (HTTP %d)", resp.StatusCode))
	}

	return &internal.Completion{
		Text:  content.String(),
		Usage: o.usage(ctx, gjson.GetBytes(body, "usage"), model),
	}, nil
}

// Stream implements internal.StreamingSummarizer. Server-sent events are
// read line by line until [DONE]; usage arrives on the final event.
func (o *OpenRouter) Stream(ctx context.Context, messages []internal.ChatMessage, model string, fn func(internal.Chunk) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := o.post(ctx, messages, model, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body := newIdleReader(resp.Body, o.cfg.Timeout, cancel)
	defer body.stop()

	var pending *internal.Chunk
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}
		if !gjson.Valid(data) {
			internal.LogDebug("Skipping malformed stream event: %s", data)
			continue
		}
		event := gjson.Parse(data)
		if msg := event.Get("error.message"); msg.Exists() {
			return o.fail(model, fmt.Errorf("API error: %s", msg.String()))
		}

		chunk := internal.Chunk{Text: event.Get("choices.0.delta.content").String()}
		if u := event.Get("usage"); u.Exists() && u.Type != gjson.Null {
			chunk.Usage = o.usage(ctx, u, model)
		}
		if chunk.Text == "" && chunk.Usage == nil {
			continue
		}

		// Hold one chunk back so usage can be merged into the terminal one.
		if pending != nil {
			if chunk.Text == "" && chunk.Usage != nil {
				pending.Usage = chunk.Usage
				continue
			}
			if err := fn(*pending); err != nil {
				return err
			}
		}
		c := chunk
		pending = &c
	}
	if err := scanner.Err(); err != nil {
		if body.expired() {
			return o.fail(model, fmt.Errorf("read stream: no data for %s: %w", o.cfg.Timeout, err))
		}
		return o.fail(model, fmt.Errorf("read stream: %w", err))
	}
	if pending != nil {
		return fn(*pending)
	}
	return nil
}

// idleReader cancels the request when no data arrives for timeout.
type idleReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
	fired   atomic.Bool
}

func newIdleReader(r io.Reader, timeout time.Duration, cancel context.CancelFunc) *idleReader {
	ir := &idleReader{r: r, timeout: timeout}
	ir.timer = time.AfterFunc(timeout, func() {
		ir.fired.Store(true)
		cancel()
	})
	return ir
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.timer.Reset(ir.timeout)
	}
	return n, err
}

func (ir *idleReader) stop() {
	ir.timer.Stop()
}

func (ir *idleReader) expired() bool {
	return ir.fired.Load()
}

func (o *OpenRouter) post(ctx context.Context, messages []internal.ChatMessage, model string, stream bool) (*http.Response, error) {
	data, err := json.Marshal(orRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
		Usage:    orUsageOptions{Include: true},
	})
	if err != nil {
		return nil, o.fail(model, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, o.fail(model, fmt.Errorf("create http request: %w", err))
	}
	o.setHeaders(req)

	internal.LogDebug("POST %s model=%s stream=%v messages=%d", req.URL, model, stream, len(messages))
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, o.fail(model, fmt.Errorf("http request: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := gjson.GetBytes(body, "error.message").String()
		if detail == "" {
			detail = strings.TrimSpace(string(body))
		}
		return nil, o.fail(model, fmt.Errorf("HTTP %d: %s", resp.StatusCode, detail))
	}
	return resp, nil
}

func (o *OpenRouter) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("HTTP-Referer", appReferer)
	req.Header.Set("X-Title", appTitle)
}

// usage converts a usage object. The cost reported by usage accounting is
// preferred; otherwise it is computed from the model's listed pricing.
func (o *OpenRouter) usage(ctx context.Context, u gjson.Result, model string) *internal.TokenUsage {
	if !u.Exists() || u.Type == gjson.Null {
		return nil
	}
	usage := &internal.TokenUsage{
		PromptTokens:     int(u.Get("prompt_tokens").Int()),
		CompletionTokens: int(u.Get("completion_tokens").Int()),
	}
	if cost := u.Get("cost"); cost.Exists() {
		usage.Cost = cost.Float()
		return usage
	}
	if p, ok := o.modelPricing(ctx, model); ok {
		usage.Cost = float64(usage.PromptTokens)*p.prompt + float64(usage.CompletionTokens)*p.completion
	}
	return usage
}

// modelPricing looks model up in the /models catalogue, fetched once
func (o *OpenRouter) modelPricing(ctx context.Context, model string) (modelPricing, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pricing == nil {
		pricing, err := o.fetchPricing(ctx)
		if err != nil {
			internal.LogWarn("Failed to fetch model pricing: %v", err)
			return modelPricing{}, false
		}
		o.pricing = pricing
	}
	p, ok := o.pricing[model]
	return p, ok
}

func (o *OpenRouter) fetchPricing(ctx context.Context) (map[string]modelPricing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	o.setHeaders(req)
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	pricing := make(map[string]modelPricing)
	gjson.GetBytes(body, "data").ForEach(func(_, m gjson.Result) bool {
		pricing[m.Get("id").String()] = modelPricing{
			prompt:     m.Get("pricing.prompt").Float(),
			completion: m.Get("pricing.completion").Float(),
		}
		return true
	})
	return pricing, nil
}

func (o *OpenRouter) fail(model string, err error) error {
	return &internal.SummarizerError{Provider: "openrouter", Model: model, Err: err}
}
