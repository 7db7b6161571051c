package channels

import (
	"log/slog"

	"concierge/pkg/api"
	"concierge/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// LoadFromConfig resolves each configured channel section against the
// factory registry and returns the constructed channels. Unknown names
// and failed constructions are logged and skipped so one bad section
// never blocks startup.
func LoadFromConfig(configs map[string]jsoniter.RawMessage, system *config.SystemConfig) []api.Channel {
	var out []api.Channel
	for name, rawConfig := range configs {
		factory, ok := GetChannelFactory(name)
		if !ok {
			slog.Warn("Unknown channel type", "name", name)
			continue
		}

		channel, err := factory.Create(rawConfig, system)
		if err != nil {
			slog.Error("Failed to create channel", "name", name, "error", err)
			continue
		}
		if channel == nil {
			continue
		}

		out = append(out, channel)
		slog.Info("Channel created", "name", name)
	}
	return out
}
