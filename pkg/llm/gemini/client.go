package gemini

import (
	"context"
	"fmt"
	"strings"

	"concierge/pkg/llm"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/genai"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GeminiClient wraps the Google GenAI SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	options     map[string]any
	debugChunks bool
}

// NewGeminiClient creates a Gemini client with a single model and API key.
func NewGeminiClient(apiKey string, model string, options map[string]any, debugChunks bool) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		options:     options,
		debugChunks: debugChunks,
	}, nil
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

// Ping implements llm.LLMClient. CountTokens is the cheapest call that
// exercises both auth and model availability.
func (g *GeminiClient) Ping(ctx context.Context) error {
	_, err := g.client.Models.CountTokens(ctx, g.model, genai.Text("ping"), nil)
	return err
}

func (g *GeminiClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "unavailable")
}

// StreamChat implements llm.LLMClient.
func (g *GeminiClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	apiMessages, systemInstruction := g.convertMessages(messages)

	chunkCh := make(chan llm.StreamChunk, 100)

	go func() {
		defer close(chunkCh)

		cfg := &genai.GenerateContentConfig{
			SystemInstruction: systemInstruction,
		}
		if t, ok := g.options["temperature"].(float64); ok {
			t32 := float32(t)
			cfg.Temperature = &t32
		}
		if maxTok, ok := g.options["max_tokens"].(float64); ok {
			cfg.MaxOutputTokens = int32(maxTok)
		}

		iter := g.client.Models.GenerateContentStream(ctx, g.model, apiMessages, cfg)

		debugger := llm.NewStreamDebugger(ctx, "gemini", g.debugChunks)
		defer debugger.Close()

		var lastUsage *llm.Usage
		finishReason := llm.StopReasonStop

		for resp, err := range iter {
			if err != nil {
				chunkCh <- llm.NewErrorChunk(fmt.Sprintf("Stream error: %v", err), err)
				return
			}

			if g.debugChunks {
				if raw, mErr := json.Marshal(resp); mErr == nil {
					debugger.Write(raw)
				}
			}

			if resp.UsageMetadata != nil {
				u := resp.UsageMetadata
				lastUsage = &llm.Usage{
					PromptTokens:     int(u.PromptTokenCount),
					CompletionTokens: int(u.CandidatesTokenCount),
					TotalTokens:      int(u.TotalTokenCount),
				}
			}

			for _, candidate := range resp.Candidates {
				if candidate.FinishReason == genai.FinishReasonMaxTokens {
					finishReason = llm.StopReasonLength
				}
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part.Text != "" && !part.Thought {
						chunkCh <- llm.NewTextChunk(part.Text)
					}
				}
			}
		}

		if lastUsage != nil {
			lastUsage.StopReason = finishReason
		}
		chunkCh <- llm.NewFinalChunk(finishReason, lastUsage)
	}()

	return chunkCh, nil
}

// convertMessages maps the unified message list onto genai contents.
// Gemini carries the system prompt out-of-band as a system instruction.
func (g *GeminiClient) convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, m := range messages {
		switch m.Role {
		case "system":
			systemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: m.Content}},
			}
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}
	return contents, systemInstruction
}
