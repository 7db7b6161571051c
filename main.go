package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"concierge/pkg/agent"
	"concierge/pkg/agent/mock"
	"concierge/pkg/api"
	"concierge/pkg/channels"
	_ "concierge/pkg/channels/autoload"
	"concierge/pkg/config"
	"concierge/pkg/conversation"
	"concierge/pkg/gateway"
	"concierge/pkg/llm"
	_ "concierge/pkg/llm/autoload"
	"concierge/pkg/monitor"
	"concierge/pkg/prompt"
	"concierge/pkg/tools"
	"concierge/pkg/tools/calendar"
	"concierge/pkg/tools/email"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	cfg, sysCfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	monitor.SetupSlog(sysCfg.LogLevel)
	monitor.PrintBanner()

	engine, err := buildEngine(cfg, sysCfg)
	if err != nil {
		slog.Error("Failed to build agent engine", "error", err)
		os.Exit(1)
	}

	channelList := channels.LoadFromConfig(cfg.Channels, sysCfg)
	if len(channelList) == 0 {
		slog.Error("No channels configured; nothing to serve")
		os.Exit(1)
	}

	gw, err := gateway.NewBuilder().
		WithMonitor(monitor.NewCLIMonitor()).
		WithEngine(engine).
		WithChannel(channelList...).
		Build()
	if err != nil {
		slog.Error("Failed to build gateway", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Config hot-reload: a restart keeps channel credentials and the
	// provider stack in sync with the files on disk.
	reload := config.WatchConfig(ctx, "config.json", "system.json")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-reload:
			slog.Info("Configuration changed, shutting down for restart")
			gw.StopAll()
			os.Exit(0)
		case <-sigChan:
			slog.Info("Received shutdown signal, stopping services")
			gw.StopAll()
			return
		}
	}
}

// buildEngine assembles the real orchestrator, or the scripted mock when
// UseMockAgent is set.
func buildEngine(cfg *config.Config, sysCfg *config.SystemConfig) (api.AgentEngine, error) {
	if sysCfg.UseMockAgent {
		slog.Warn("Mock agent enabled; no LLM or live APIs will be used")
		return mock.NewEngine(sysCfg.WordDelayMs), nil
	}

	client, err := llm.NewFromConfig(cfg.LLM, sysCfg)
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry()
	mailClient := email.NewClient()
	if sysCfg.EnableTools {
		email.Register(registry, mailClient)
		calendar.Register(registry, calendar.NewClient(sysCfg.Environment))
	}

	store := conversation.NewStore(sysCfg.MaxHistoryEntries)
	contextBuilder := prompt.NewContextBuilder(
		cfg.User.Email,
		cfg.User.DisplayName,
		cfg.User.Timezone,
		mailClient.UnreadCount,
	)

	return agent.NewEngine(client, registry, store, sysCfg, agent.Options{
		ContextBuilder: contextBuilder,
	}), nil
}
