// Package web serves the HTTP surface: POST /chat with a server-sent
// event stream, a websocket variant at /ws, and /health.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"concierge/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // decoupled UI, origin enforced upstream
	},
}

type WebConfig struct {
	Port int `json:"port"` // Default: 9453
}

type WebChannel struct {
	config WebConfig
	server *http.Server
	gw     api.ChannelContext
}

func NewWebChannel(cfg WebConfig) *WebChannel {
	if cfg.Port == 0 {
		cfg.Port = 9453
	}
	return &WebChannel{config: cfg}
}

func (c *WebChannel) ID() string {
	return "web"
}

func (c *WebChannel) Start(ctx api.ChannelContext) error {
	c.gw = ctx

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/chat", c.handleChat)
	r.Get("/ws", c.handleWebSocket)
	r.Get("/health", c.handleHealth)

	c.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.config.Port),
		Handler: r,
	}

	slog.Info("Web API listening", "port", c.config.Port)

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Web API server error", "error", err)
		}
	}()

	return nil
}

func (c *WebChannel) Stop() error {
	if c.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.server.Shutdown(ctx)
	}
	return nil
}

// handleChat runs one turn over SSE. The handler blocks until the sink
// sees a terminal event or the client goes away.
func (c *WebChannel) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := newSSESink(w, flusher)
	c.gw.Dispatch(r.Context(), c.ID(), &req, sink)

	select {
	case <-sink.done:
	case <-r.Context().Done():
		sink.abandon()
	}
}

// handleWebSocket serves the same turn protocol over a persistent socket:
// each client text frame is one ChatRequest, each event goes back as one
// JSON frame.
func (c *WebChannel) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS upgrade failed", "error", err)
		return
	}
	conn := &safeConn{Conn: rawConn}
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req api.ChatRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			conn.writeEvent(api.ErrorEvent(api.ErrCodeValidation, "invalid request payload"))
			continue
		}
		if req.ConversationID == "" {
			req.ConversationID = uuid.NewString()
		}

		sink := newWSSink(conn)
		c.gw.Dispatch(r.Context(), c.ID(), &req, sink)

		select {
		case <-sink.done:
		case <-r.Context().Done():
			return
		}
	}
}

func (c *WebChannel) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}

	if provider, ok := c.gw.(api.EngineProvider); ok {
		if engine := provider.Engine(); engine != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			if err := engine.Ping(ctx); err != nil {
				body["status"] = "degraded"
				body["llm"] = err.Error()
			} else {
				body["llm"] = "reachable"
			}
			body["tools"] = engine.ToolNames()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if body["status"] != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("health encode failed", "error", err)
	}
}

// safeConn serializes concurrent writes on one websocket connection.
type safeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *safeConn) WriteMessage(messageType int, data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.Conn.WriteMessage(messageType, data)
}

func (sc *safeConn) writeEvent(event api.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return sc.WriteMessage(websocket.TextMessage, data)
}
