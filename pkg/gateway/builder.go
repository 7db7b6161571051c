package gateway

import (
	"fmt"

	"concierge/pkg/api"
	"concierge/pkg/monitor"
)

// Builder assembles a Manager from pre-built parts and starts it. All
// components are injected as instances; the builder only wires and boots.
type Builder struct {
	manager  *Manager
	monitor  monitor.Monitor
	channels []api.Channel
	engine   api.AgentEngine
}

func NewBuilder() *Builder {
	return &Builder{manager: NewManager()}
}

// WithMonitor injects a traffic monitor, started during Build.
func (b *Builder) WithMonitor(m monitor.Monitor) *Builder {
	b.monitor = m
	return b
}

// WithChannel adds pre-built channel instances.
func (b *Builder) WithChannel(channels ...api.Channel) *Builder {
	b.channels = append(b.channels, channels...)
	return b
}

// WithEngine injects the agent engine.
func (b *Builder) WithEngine(engine api.AgentEngine) *Builder {
	b.engine = engine
	return b
}

// Build wires everything together, starts the monitor and all channels,
// and returns the running Manager.
func (b *Builder) Build() (*Manager, error) {
	if b.engine == nil {
		return nil, fmt.Errorf("gateway requires an agent engine")
	}
	b.manager.SetEngine(b.engine)

	if b.monitor != nil {
		b.manager.SetMonitor(b.monitor)
		if err := b.monitor.Start(); err != nil {
			return nil, fmt.Errorf("failed to start monitor: %w", err)
		}
	}

	for _, c := range b.channels {
		b.manager.Register(c)
	}

	if err := b.manager.StartAll(); err != nil {
		return nil, fmt.Errorf("failed to start channels: %w", err)
	}

	return b.manager, nil
}
