// Package telegram bridges the agent to the Telegram Bot API. Telegram
// has no mid-message streaming, so each turn's events are buffered and
// flushed as message bubbles when the turn finishes.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"concierge/pkg/api"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// messageLimit is Telegram's per-bubble character bound, kept slightly
// under the hard 4096 cap.
const messageLimit = 4000

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	Token string `json:"token"` // BOT API token from @BotFather
}

// TelegramChannel implements api.Channel over long polling.
type TelegramChannel struct {
	config     TelegramConfig
	bot        *tgbotapi.BotAPI
	stopCtx    context.Context
	stopCancel context.CancelFunc
}

func NewTelegramChannel(cfg TelegramConfig) (api.Channel, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Dedicated HTTP client whose dials die with stopCtx, so an active
	// long poll aborts immediately on Stop instead of waiting out its
	// timeout and colliding with a restarted bot (409 Conflict).
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	botHTTPClient := &http.Client{
		Timeout: 90 * time.Second,
		Transport: &http.Transport{
			DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
				mergedCtx, mergedCancel := context.WithCancel(dialCtx)
				go func() {
					select {
					case <-ctx.Done():
						mergedCancel()
					case <-mergedCtx.Done():
					}
				}()
				return dialer.DialContext(mergedCtx, network, addr)
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, botHTTPClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)

	return &TelegramChannel{
		config:     cfg,
		bot:        bot,
		stopCtx:    ctx,
		stopCancel: cancel,
	}, nil
}

func (t *TelegramChannel) ID() string {
	return "telegram"
}

// Start runs the long-polling loop in a background goroutine. Each text
// message becomes one ChatRequest keyed by chat id, so every Telegram
// chat maps to its own conversation.
func (t *TelegramChannel) Start(ctx api.ChannelContext) error {
	go func() {
		offset := 0
		for {
			select {
			case <-t.stopCtx.Done():
				return
			default:
			}

			reqConfig := tgbotapi.NewUpdate(offset)
			reqConfig.Timeout = 60

			updates, err := t.bot.GetUpdates(reqConfig)
			if err != nil {
				select {
				case <-t.stopCtx.Done():
					return
				default:
					slog.Debug("Failed to get telegram updates", "error", err)
					time.Sleep(3 * time.Second)
					continue
				}
			}

			for _, update := range updates {
				if update.UpdateID >= offset {
					offset = update.UpdateID + 1
				}
				if update.Message == nil || update.Message.Text == "" {
					continue
				}

				chatID := update.Message.Chat.ID
				req := &api.ChatRequest{
					Messages: []api.Turn{
						{Role: api.RoleUser, Content: update.Message.Text},
					},
					ConversationID: "telegram-" + strconv.FormatInt(chatID, 10),
				}

				ctx.Dispatch(t.stopCtx, t.ID(), req, newTurnSink(t, chatID))
			}
		}
	}()

	return nil
}

func (t *TelegramChannel) Stop() error {
	t.stopCancel()
	if httpClient, ok := t.bot.Client.(*http.Client); ok && httpClient != nil {
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
	return nil
}

// send delivers a message, chunking at the bubble limit.
func (t *TelegramChannel) send(chatID int64, message string) error {
	msgRunes := []rune(message)
	for start := 0; start < len(msgRunes); start += messageLimit {
		end := start + messageLimit
		if end > len(msgRunes) {
			end = len(msgRunes)
		}
		msg := tgbotapi.NewMessage(chatID, string(msgRunes[start:end]))
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram send failed: %w", err)
		}
	}
	return nil
}

// turnSink buffers one turn's events. Status events show as the typing
// indicator; text and widget renderings flush as bubbles on done.
type turnSink struct {
	channel *TelegramChannel
	chatID  int64
	mu      sync.Mutex
	closed  bool
	text    strings.Builder
	widgets []api.WidgetBlock
}

func newTurnSink(channel *TelegramChannel, chatID int64) *turnSink {
	return &turnSink{channel: channel, chatID: chatID}
}

func (s *turnSink) Emit(event api.StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	switch event.Type {
	case api.EventStatus:
		action := tgbotapi.NewChatAction(s.chatID, tgbotapi.ChatTyping)
		if _, err := s.channel.bot.Send(action); err != nil {
			slog.Debug("typing action failed", "error", err)
		}
	case api.EventTextDelta:
		s.text.WriteString(event.Content)
	case api.EventWidget:
		if event.Widget != nil {
			s.widgets = append(s.widgets, *event.Widget)
		}
	case api.EventDone:
		s.closed = true
		s.flush()
	case api.EventError:
		s.closed = true
		if err := s.channel.send(s.chatID, "Sorry, something went wrong: "+event.Message); err != nil {
			slog.Error("telegram error reply failed", "error", err)
		}
	}
}

func (s *turnSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *turnSink) flush() {
	var b strings.Builder
	b.WriteString(s.text.String())
	for _, w := range s.widgets {
		line := renderWidgetLine(w)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}

	if b.Len() == 0 {
		return
	}
	if err := s.channel.send(s.chatID, b.String()); err != nil {
		slog.Error("telegram reply failed", "error", err)
	}
}

// renderWidgetLine degrades a widget to a single text line, since
// Telegram cannot render the structured blocks.
func renderWidgetLine(w api.WidgetBlock) string {
	switch w.Type {
	case api.WidgetEmailPreview:
		return fmt.Sprintf("✉ %v — %v", w.Data["from"], w.Data["subject"])
	case api.WidgetCalendarEvent, api.WidgetMeetingCard:
		title := w.Data["title"]
		when := w.Data["startTime"]
		if when == nil {
			when = w.Data["time"]
		}
		return fmt.Sprintf("\U0001F4C5 %v at %v", title, when)
	default:
		return ""
	}
}
