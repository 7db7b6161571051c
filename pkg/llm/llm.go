package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Usage holds normalized token accounting reported by a provider.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// LLMClient is the streaming chat primitive the orchestrator depends on.
type LLMClient interface {
	// StreamChat starts a streaming completion for the message list and
	// returns a channel of incremental chunks. The channel is closed
	// after the final chunk or an error chunk.
	StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error)

	// Ping is the availability probe used before a turn starts and by
	// the health endpoint.
	Ping(ctx context.Context) error

	// IsTransientError reports whether the error is worth retrying
	// (rate limits, 5xx, network timeouts).
	IsTransientError(err error) bool
}

// FallbackClient tries a list of clients in order, retrying each on
// transient errors, so a provider outage degrades instead of failing.
type FallbackClient struct {
	Clients    []LLMClient
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.Warn("Previous provider failed, trying fallback", "provider_index", i+1)
		}

		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				slog.Info("Retrying provider", "provider_index", i+1, "attempt", retry, "max", maxRetries)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			ch, err := client.StreamChat(ctx, messages)
			if err == nil {
				return ch, nil
			}

			lastErr = err

			if client.IsTransientError(err) && retry < maxRetries {
				slog.Warn("Provider failed with transient error, retrying", "provider_index", i+1, "error", err)
				continue
			}

			slog.Error("Provider failed", "provider_index", i+1, "error", err)
			break
		}
	}
	return nil, fmt.Errorf("all fallback providers failed. Last error: %v", lastErr)
}

// Ping succeeds if any wrapped client is reachable.
func (f *FallbackClient) Ping(ctx context.Context) error {
	var lastErr error
	for _, client := range f.Clients {
		if err := client.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("no provider reachable: %w", lastErr)
}

// IsTransientError implements LLMClient. A FallbackClient error means all
// children already failed, so it is treated as final.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}
