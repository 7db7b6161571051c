// Package email wraps the external mail API as registered agent tools.
// All endpoints resolve against the per-session base URL carried in the
// request context.
package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"concierge/pkg/session"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const sessionHeader = "X-Session-Token"

// Message state bitset.
const (
	stateUnread        = 1 << 0
	stateStarred       = 1 << 1
	stateDraft         = 1 << 2
	stateHasAttachment = 1 << 3
	stateTracked       = 1 << 4
)

// Client is a thin HTTP client over the mail API. It is stateless; the
// session handle arrives per call via context.
type Client struct {
	http *http.Client
}

func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: 30 * time.Second}}
}

// wireMessage is the upstream message shape. State is a bitset decoded
// into Flags before anything downstream sees it.
type wireMessage struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
	Body    string `json:"body,omitempty"`
	Date    string `json:"date"`
	State   int    `json:"state"`
}

// Flags is the decoded message state.
type Flags struct {
	Unread        bool `json:"unread"`
	Starred       bool `json:"starred"`
	Draft         bool `json:"draft"`
	HasAttachment bool `json:"hasAttachment"`
	Tracked       bool `json:"tracked"`
}

// Message is the tool-facing message record.
type Message struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet,omitempty"`
	Body    string `json:"body,omitempty"`
	Date    string `json:"date"`
	Flags   Flags  `json:"flags"`
}

func decodeFlags(state int) Flags {
	return Flags{
		Unread:        state&stateUnread != 0,
		Starred:       state&stateStarred != 0,
		Draft:         state&stateDraft != 0,
		HasAttachment: state&stateHasAttachment != 0,
		Tracked:       state&stateTracked != 0,
	}
}

func (m wireMessage) decode() Message {
	return Message{
		ID:      m.ID,
		From:    m.From,
		To:      m.To,
		Subject: m.Subject,
		Snippet: m.Snippet,
		Body:    m.Body,
		Date:    m.Date,
		Flags:   decodeFlags(m.State),
	}
}

// do issues one authenticated request against the session's base URL.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	handle, ok := session.FromContext(ctx)
	if !ok || handle.Token == "" {
		return fmt.Errorf("no active session")
	}
	if handle.BaseURL == "" {
		return fmt.Errorf("session has no mail API base URL")
	}

	endpoint := session.JoinURL(handle.BaseURL, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set(sessionHeader, handle.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail API %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type messageList struct {
	Messages []wireMessage `json:"messages"`
}

// FetchMessages lists inbox messages, optionally unread-only and filtered
// to a single date (YYYY-MM-DD).
func (c *Client) FetchMessages(ctx context.Context, unreadOnly bool, filterDate string, limit int) ([]Message, error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("unread", "true")
	}
	if filterDate != "" {
		q.Set("date", filterDate)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	var list messageList
	if err := c.do(ctx, http.MethodGet, "/api/mail/messages", q, nil, &list); err != nil {
		return nil, err
	}
	return decodeAll(list.Messages), nil
}

// SearchMessages runs a free-text search over the mailbox.
func (c *Client) SearchMessages(ctx context.Context, query string, limit int) ([]Message, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	var list messageList
	if err := c.do(ctx, http.MethodGet, "/api/mail/messages/search", q, nil, &list); err != nil {
		return nil, err
	}
	return decodeAll(list.Messages), nil
}

// GetMessage fetches one message in full, body included.
func (c *Client) GetMessage(ctx context.Context, id string) (Message, error) {
	var wire wireMessage
	if err := c.do(ctx, http.MethodGet, "/api/mail/messages/"+url.PathEscape(id), nil, nil, &wire); err != nil {
		return Message{}, err
	}
	return wire.decode(), nil
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// SendMessage sends a message and returns the new message id.
func (c *Client) SendMessage(ctx context.Context, to, subject, body string) (string, error) {
	var resp sendResponse
	err := c.do(ctx, http.MethodPost, "/api/mail/messages/send", nil,
		sendRequest{To: to, Subject: subject, Body: body}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateDraft saves a draft and returns its id.
func (c *Client) CreateDraft(ctx context.Context, to, subject, body string) (string, error) {
	var resp sendResponse
	err := c.do(ctx, http.MethodPost, "/api/mail/drafts", nil,
		sendRequest{To: to, Subject: subject, Body: body}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UnreadCount is the activity-snapshot probe used by the prompt context
// builder. It reuses the unread listing and counts.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	msgs, err := c.FetchMessages(ctx, true, "", 0)
	if err != nil {
		return 0, err
	}
	return len(msgs), nil
}

func decodeAll(wire []wireMessage) []Message {
	out := make([]Message, len(wire))
	for i, m := range wire {
		out[i] = m.decode()
	}
	return out
}
