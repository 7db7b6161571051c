package openailm

import (
	"context"
	"fmt"
	"strings"

	"concierge/pkg/llm"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client is a wrapper around the official OpenAI Go SDK, also used for
// any OpenAI-compatible endpoint via base_url.
type Client struct {
	client      *openai.Client
	provider    string
	model       string
	options     map[string]any
	debugChunks bool
}

// NewClient creates a new OpenAI client.
func NewClient(provider string, apiKey string, model string, baseURL string, options map[string]any, debugChunks bool) (*Client, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	return &Client{
		client:      &client,
		provider:    provider,
		model:       model,
		options:     options,
		debugChunks: debugChunks,
	}, nil
}

func (c *Client) Provider() string {
	return c.provider
}

// Ping implements llm.LLMClient using the models listing as a cheap probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.Models.List(ctx)
	return err
}

func (c *Client) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	// Transient: network-level issues
	if strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") {
		return true
	}

	// Transient: server-side temporary failures
	if strings.Contains(msg, "429") ||
		strings.Contains(msg, "500 internal") ||
		strings.Contains(msg, "502 bad gateway") ||
		strings.Contains(msg, "503 service unavailable") ||
		strings.Contains(msg, "overloaded") {
		return true
	}

	// Everything else (400 Bad Request, 401 Unauthorized, ...) is final
	return false
}

// StreamChat implements llm.LLMClient via the chat completions stream.
func (c *Client) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	chunkCh := make(chan llm.StreamChunk, 100)

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: c.convertMessages(messages),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}

	opts := []option.RequestOption{}

	if t, ok := c.options["temperature"].(float64); ok {
		opts = append(opts, option.WithJSONSet("temperature", t))
	}

	if p, ok := c.options["top_p"].(float64); ok {
		opts = append(opts, option.WithJSONSet("top_p", p))
	}

	if maxTok, ok := c.options["max_tokens"].(float64); ok {
		opts = append(opts, option.WithJSONSet("max_completion_tokens", int(maxTok)))
	}

	go func() {
		defer close(chunkCh)

		stream := c.client.Chat.Completions.NewStreaming(ctx, params, opts...)
		defer stream.Close()

		debugger := llm.NewStreamDebugger(ctx, c.provider, c.debugChunks)
		defer debugger.Close()

		var lastFinishReason string
		var lastUsage *llm.Usage

		for stream.Next() {
			chunk := stream.Current()

			debugger.WriteString(chunk.RawJSON())

			if len(chunk.Choices) > 0 {
				choice := chunk.Choices[0]
				if choice.Delta.Content != "" {
					chunkCh <- llm.NewTextChunk(choice.Delta.Content)
				}
				if choice.FinishReason != "" {
					lastFinishReason = choice.FinishReason
				}
			}

			if chunk.Usage.TotalTokens > 0 {
				lastUsage = &llm.Usage{
					PromptTokens:     int(chunk.Usage.PromptTokens),
					CompletionTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:      int(chunk.Usage.TotalTokens),
				}
			}
		}

		if err := stream.Err(); err != nil {
			chunkCh <- llm.NewErrorChunk(fmt.Sprintf("Stream error: %v", err), err)
			return
		}

		reason := normalizeStopReason(lastFinishReason)
		if lastUsage != nil {
			lastUsage.StopReason = reason
		}
		chunkCh <- llm.NewFinalChunk(reason, lastUsage)
	}()

	return chunkCh, nil
}

func (c *Client) convertMessages(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			converted = append(converted, openai.SystemMessage(m.Content))
		case "assistant":
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}
	return converted
}

func normalizeStopReason(reason string) string {
	switch reason {
	case "length", "max_tokens":
		return llm.StopReasonLength
	default:
		return llm.StopReasonStop
	}
}
