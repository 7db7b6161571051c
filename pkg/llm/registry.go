package llm

import (
	"concierge/pkg/config"
)

// ProviderGroupConfig defines one provider group from the llm config
// section: a provider type plus the models and keys to instantiate.
type ProviderGroupConfig struct {
	Type    string         `json:"type"`
	APIKeys []string       `json:"api_keys,omitempty"`
	Models  []string       `json:"models"`
	BaseURL string         `json:"base_url,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// ProviderFactory builds atomic clients for one provider group.
type ProviderFactory interface {
	Create(groupConfig ProviderGroupConfig, systemConfig *config.SystemConfig) ([]LLMClient, error)
}

// Global provider registry, populated by provider packages in init().
var providerRegistry = make(map[string]ProviderFactory)

// RegisterProvider registers a ProviderFactory under a provider type name.
func RegisterProvider(name string, factory ProviderFactory) {
	providerRegistry[name] = factory
}

// GetProviderFactory retrieves a registered ProviderFactory.
func GetProviderFactory(name string) (ProviderFactory, bool) {
	f, ok := providerRegistry[name]
	return f, ok
}
