package telegram

import (
	"fmt"

	"concierge/pkg/api"
	"concierge/pkg/channels"
	"concierge/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type TelegramFactory struct{}

// Create implements channels.ChannelFactory.
func (f *TelegramFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Channel, error) {
	var tgCfg TelegramConfig
	if err := json.Unmarshal(rawConfig, &tgCfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}
	if tgCfg.Token == "" {
		return nil, fmt.Errorf("missing telegram token")
	}
	return NewTelegramChannel(tgCfg)
}

func init() {
	channels.RegisterChannel("telegram", &TelegramFactory{})
}
