// internal/llm/openai.go
//
// Adapter for OpenAI-compatible chat-completions endpoints (the hosted API
// or any local server exposing /v1/chat/completions) via go-openai.

package llm

import (
	"context"
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements Client on top of an OpenAI-compatible endpoint.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates the adapter. host is the server root; the /v1 segment is
// appended unless already present so the same host field works for both
// backends.
func NewOpenAI(host, apiKey string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	base := strings.TrimRight(host, "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	cfg.BaseURL = base
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

// Name identifies the backend for logging.
func (p *OpenAI) Name() string { return "openai" }

// Generate implements Client. num_ctx and repeat_penalty are Ollama-specific
// knobs with no chat-completions equivalent and are not forwarded.
func (p *OpenAI) Generate(ctx context.Context, req Request) (Result, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	}
	if req.Options.NumPredict != nil {
		chatReq.MaxTokens = *req.Options.NumPredict
	}
	if req.Options.Temperature != nil {
		chatReq.Temperature = float32(*req.Options.Temperature)
	}
	if req.Options.TopP != nil {
		chatReq.TopP = float32(*req.Options.TopP)
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Result{}, &CommunicationError{Backend: p.Name(), Cause: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		raw, _ := json.Marshal(resp)
		return Result{}, &ProtocolError{Backend: p.Name(), Reason: "no generated text in completion", RawBody: string(raw)}
	}

	return Result{Content: resp.Choices[0].Message.Content}, nil
}
