// Package channels holds the factory registry that maps channel names in
// the config file to their constructors. Concrete channels register
// themselves in init(); blank-import pkg/channels/autoload to load the
// built-in set.
package channels

import (
	"concierge/pkg/api"
	"concierge/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// ChannelFactory creates a concrete channel from its raw config section.
// New platforms plug in here without touching the gateway core.
type ChannelFactory interface {
	Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (api.Channel, error)
}

var channelRegistry = make(map[string]ChannelFactory)

// RegisterChannel adds a factory under a platform name. Called from the
// concrete packages' init().
func RegisterChannel(name string, factory ChannelFactory) {
	channelRegistry[name] = factory
}

// GetChannelFactory retrieves a registered factory by platform name.
func GetChannelFactory(name string) (ChannelFactory, bool) {
	f, ok := channelRegistry[name]
	return f, ok
}
