package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"concierge/pkg/llm"

	jsoniter "github.com/json-iterator/go"
	"github.com/ollama/ollama/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OllamaClient wraps the official Ollama API client for local models.
type OllamaClient struct {
	client      *api.Client
	model       string
	options     map[string]any
	debugChunks bool
}

// NewOllamaClient creates an Ollama client. Local generation can be slow,
// so the HTTP client imposes no response timeout of its own.
func NewOllamaClient(model string, baseURL string, options map[string]any, debugChunks bool) (*OllamaClient, error) {
	var client *api.Client
	var err error

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 0,
	}

	customClient := &http.Client{
		Transport: transport,
		Timeout:   0,
	}

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		client = api.NewClient(u, customClient)
	} else {
		client, err = api.ClientFromEnvironment()
	}

	if err != nil {
		return nil, err
	}

	slog.Info("Ollama client initialized", "model", model, "base_url", baseURL)

	return &OllamaClient{
		client:      client,
		model:       model,
		options:     options,
		debugChunks: debugChunks,
	}, nil
}

func (o *OllamaClient) Provider() string {
	return "ollama"
}

// Ping implements llm.LLMClient via the Ollama heartbeat endpoint.
func (o *OllamaClient) Ping(ctx context.Context) error {
	return o.client.Heartbeat(ctx)
}

func (o *OllamaClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "server busy")
}

// StreamChat implements llm.LLMClient.
func (o *OllamaClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	apiMessages := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		apiMessages = append(apiMessages, api.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	chunkCh := make(chan llm.StreamChunk, 100)

	go func() {
		defer close(chunkCh)

		streamVal := true
		req := &api.ChatRequest{
			Model:    o.model,
			Messages: apiMessages,
			Options:  o.options,
			Stream:   &streamVal,
		}

		debugger := llm.NewStreamDebugger(ctx, "ollama", o.debugChunks)
		defer debugger.Close()

		var lastUsage *llm.Usage
		finishReason := llm.StopReasonStop

		err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			if o.debugChunks {
				if raw, err := json.Marshal(resp); err == nil {
					debugger.Write(raw)
				}
			}

			if resp.Message.Content != "" {
				chunkCh <- llm.NewTextChunk(resp.Message.Content)
			}

			if resp.Done {
				if resp.DoneReason == "length" {
					finishReason = llm.StopReasonLength
				}
				lastUsage = &llm.Usage{
					PromptTokens:     resp.Metrics.PromptEvalCount,
					CompletionTokens: resp.Metrics.EvalCount,
					TotalTokens:      resp.Metrics.PromptEvalCount + resp.Metrics.EvalCount,
					StopReason:       finishReason,
				}
			}
			return nil
		})

		if err != nil {
			chunkCh <- llm.NewErrorChunk(fmt.Sprintf("Stream error: %v", err), err)
			return
		}

		chunkCh <- llm.NewFinalChunk(finishReason, lastUsage)
	}()

	return chunkCh, nil
}
