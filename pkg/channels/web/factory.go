package web

import (
	"fmt"

	"concierge/pkg/api"
	"concierge/pkg/channels"
	"concierge/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

type WebFactory struct{}

// Create implements channels.ChannelFactory.
func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Channel, error) {
	var pCfg WebConfig
	if err := json.Unmarshal(rawConfig, &pCfg); err != nil {
		return nil, fmt.Errorf("failed to parse web config: %w", err)
	}
	return NewWebChannel(pCfg), nil
}

func init() {
	channels.RegisterChannel("web", &WebFactory{})
}
