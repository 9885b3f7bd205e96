// internal/llm/ollama.go
//
// Adapter for the native Ollama chat endpoint. One non-streaming POST to
// /api/chat per request; the generated text is expected under
// message.content and any other shape is a protocol error.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"flowscribe/internal/config"
)

const ollamaTimeout = 60 * time.Second

// Ollama talks to one configured Ollama host.
type Ollama struct {
	host string
	http *http.Client
}

// NewOllama creates the adapter. The per-request timeout guards against a
// hung backend; it surfaces as a communication error.
func NewOllama(host string) *Ollama {
	return &Ollama{
		host: strings.TrimRight(host, "/"),
		http: &http.Client{Timeout: ollamaTimeout},
	}
}

// Name identifies the backend for logging.
func (o *Ollama) Name() string { return "ollama" }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

// ollamaOptions mirrors config.SamplingOptions with Ollama's wire names.
// Unset knobs are omitted so the server applies its own defaults.
type ollamaOptions struct {
	NumPredict    *int     `json:"num_predict,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	NumCtx        *int     `json:"num_ctx,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Generate implements Client.
func (o *Ollama) Generate(ctx context.Context, req Request) (Result, error) {
	payload := ollamaRequest{
		Model: req.Model,
		Messages: []ollamaMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Stream:  false,
		Options: convertOptions(req.Options),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, &CommunicationError{Backend: o.Name(), Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Result{}, &CommunicationError{Backend: o.Name(), Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return Result{}, &CommunicationError{Backend: o.Name(), Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &CommunicationError{Backend: o.Name(), Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &CommunicationError{
			Backend: o.Name(),
			Cause:   fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 512)),
		}
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, &ProtocolError{Backend: o.Name(), Reason: "response is not valid JSON", RawBody: string(raw)}
	}
	if parsed.Message.Content == "" {
		return Result{}, &ProtocolError{Backend: o.Name(), Reason: "missing message.content", RawBody: string(raw)}
	}

	return Result{Content: parsed.Message.Content}, nil
}

func convertOptions(opts config.SamplingOptions) *ollamaOptions {
	if opts.NumPredict == nil && opts.Temperature == nil && opts.TopP == nil &&
		opts.NumCtx == nil && opts.RepeatPenalty == nil {
		return nil
	}
	return &ollamaOptions{
		NumPredict:    opts.NumPredict,
		Temperature:   opts.Temperature,
		TopP:          opts.TopP,
		NumCtx:        opts.NumCtx,
		RepeatPenalty: opts.RepeatPenalty,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
