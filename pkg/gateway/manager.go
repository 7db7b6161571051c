// Package gateway routes requests from inbound channels to the agent
// engine and fans observability copies out to the monitor.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"concierge/pkg/api"
	"concierge/pkg/monitor"
	"concierge/pkg/utils"
)

// Manager owns the registered channels and implements api.ChannelContext:
// every inbound request from any channel funnels through Dispatch.
type Manager struct {
	channels map[string]api.Channel
	engine   api.AgentEngine
	monitor  monitor.Monitor
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

func NewManager() *Manager {
	return &Manager{channels: make(map[string]api.Channel)}
}

// SetEngine injects the agent engine. Must be called before StartAll.
func (m *Manager) SetEngine(engine api.AgentEngine) {
	m.engine = engine
}

// SetMonitor injects an optional traffic monitor.
func (m *Manager) SetMonitor(mon monitor.Monitor) {
	m.monitor = mon
}

// Engine implements api.EngineProvider for channels that report health.
func (m *Manager) Engine() api.AgentEngine {
	return m.engine
}

// Register adds a channel. Channels are registered before StartAll and
// never while running.
func (m *Manager) Register(c api.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[c.ID()] = c
}

// GetChannel fetches a registered channel by id.
func (m *Manager) GetChannel(id string) (api.Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.channels[id]
	return c, ok
}

// StartAll starts every registered channel, passing the manager as the
// channel context.
func (m *Manager) StartAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, c := range m.channels {
		slog.Info("Starting channel", "channel", id)
		if err := c.Start(m); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops every channel and waits for in-flight turns to finish.
func (m *Manager) StopAll() {
	m.mu.RLock()
	for id, c := range m.channels {
		slog.Info("Stopping channel", "channel", id)
		if err := c.Stop(); err != nil {
			slog.Error("Channel stop failed", "channel", id, "error", err)
		}
	}
	m.mu.RUnlock()

	m.wg.Wait()
}

// Dispatch implements api.ChannelContext. Each request gets its own
// goroutine and request id; the engine signals completion on the sink, so
// Dispatch returns as soon as the turn is scheduled.
func (m *Manager) Dispatch(ctx context.Context, channelID string, req *api.ChatRequest, sink api.EventSink) {
	reqCtx := monitor.WithRequestID(ctx, utils.GenerateID())

	if userTurn, ok := req.LastUserTurn(); ok {
		slog.InfoContext(reqCtx, "request received", "channel", channelID, "conversation", req.ConversationID)
		m.broadcast(channelID, "USER", userTurn.Content)
	}

	engine := m.engine
	if engine == nil {
		slog.ErrorContext(reqCtx, "no engine configured")
		sink.Emit(api.ErrorEvent(api.ErrCodeAgentError, "agent engine not configured"))
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		engine.Process(reqCtx, req, &observedSink{inner: sink, manager: m, channelID: channelID})
	}()
}

// broadcast copies one exchange to the monitor, if any.
func (m *Manager) broadcast(channelID, messageType, content string) {
	if m.monitor == nil || content == "" {
		return
	}
	m.monitor.OnMessage(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: messageType,
		ChannelID:   channelID,
		Content:     content,
	})
}

// observedSink wraps the channel's sink to mirror the assembled assistant
// reply into the monitor once the turn finishes.
type observedSink struct {
	inner     api.EventSink
	manager   *Manager
	channelID string
	text      []byte
}

func (s *observedSink) Emit(event api.StreamEvent) {
	switch event.Type {
	case api.EventTextDelta:
		s.text = append(s.text, event.Content...)
	case api.EventDone, api.EventError:
		s.manager.broadcast(s.channelID, "ASSISTANT", string(s.text))
	}
	s.inner.Emit(event)
}

func (s *observedSink) Closed() bool {
	return s.inner.Closed()
}
