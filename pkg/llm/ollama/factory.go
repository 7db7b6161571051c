package ollama

import (
	"log/slog"

	"concierge/pkg/config"
	"concierge/pkg/llm"
)

// OllamaFactory handles creation of Ollama clients.
type OllamaFactory struct{}

// Create implements ProviderFactory.
func (f *OllamaFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	var clients []llm.LLMClient

	for _, model := range cfg.Models {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = sys.OllamaDefaultURL
		}
		client, err := NewOllamaClient(model, baseURL, cfg.Options, sys.DebugChunks)
		if err != nil {
			slog.Error("Failed to create Ollama client", "model", model, "error", err)
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("ollama", &OllamaFactory{})
}
