package email

import (
	"context"

	"concierge/pkg/api"
	"concierge/pkg/widgets"
)

// Register wires the mail tools into the registry.
func Register(reg api.ToolRegistry, c *Client) {
	reg.Register(api.Tool{Descriptor: fetchMessagesDesc, Handler: c.handleFetchMessages})
	reg.Register(api.Tool{Descriptor: searchMessagesDesc, Handler: c.handleSearchMessages})
	reg.Register(api.Tool{Descriptor: getMessageDesc, Handler: c.handleGetMessage})
	reg.Register(api.Tool{Descriptor: sendMessageDesc, Handler: c.handleSendMessage})
	reg.Register(api.Tool{Descriptor: createDraftDesc, Handler: c.handleCreateDraft})
}

var fetchMessagesDesc = api.ToolDescriptor{
	Name:        "fetch_messages",
	Description: "List inbox messages, newest first.",
	Parameters: map[string]api.ParamSpec{
		"unreadOnly": {Type: "boolean", Description: "Only return unread messages.", Default: false},
		"filterDate": {Type: "string", Description: "Restrict to one day, YYYY-MM-DD."},
		"limit":      {Type: "integer", Description: "Maximum messages to return.", Default: 20},
	},
	Domain: api.DomainEmail,
	Kind:   api.ActionKindAPI,
	Hints: api.UsageHints{
		WhenToUse:    "The user asks what is in their inbox or whether there is new or unread mail.",
		WhenNotToUse: "The user is looking for a specific message or sender; use search_messages.",
		Output:       api.OutputBoth,
	},
}

var searchMessagesDesc = api.ToolDescriptor{
	Name:        "search_messages",
	Description: "Free-text search over the mailbox (senders, subjects, bodies).",
	Parameters: map[string]api.ParamSpec{
		"query": {Type: "string", Description: "Search terms. Strip filler words."},
		"limit": {Type: "integer", Description: "Maximum results.", Default: 20},
	},
	Required: []string{"query"},
	Domain:   api.DomainEmail,
	Kind:     api.ActionKindAPI,
	Hints: api.UsageHints{
		WhenToUse: "The user is looking for a specific message, sender, or topic.",
		Output:    api.OutputBoth,
	},
}

var getMessageDesc = api.ToolDescriptor{
	Name:        "get_message",
	Description: "Fetch one message in full, body included.",
	Parameters: map[string]api.ParamSpec{
		"id": {Type: "string", Description: "Message id from a prior listing."},
	},
	Required: []string{"id"},
	Domain:   api.DomainEmail,
	Kind:     api.ActionKindAPI,
	Hints: api.UsageHints{
		WhenToUse:     "The user wants to read a specific message whose id is already known.",
		Prerequisites: []string{"A message id from fetch_messages or search_messages."},
		Output:        api.OutputText,
	},
}

var sendMessageDesc = api.ToolDescriptor{
	Name:        "send_message",
	Description: "Send an email immediately.",
	Parameters: map[string]api.ParamSpec{
		"to":      {Type: "string", Description: "Recipient email address. Must be a real address, never invented."},
		"subject": {Type: "string", Description: "Subject line."},
		"body":    {Type: "string", Description: "Plain-text body."},
	},
	Required: []string{"to", "subject", "body"},
	Domain:   api.DomainEmail,
	Kind:     api.ActionKindAPI,
	Hints: api.UsageHints{
		WhenToUse:    "The user explicitly asked to send, with a confirmed recipient address.",
		WhenNotToUse: "The user wants to review first, or the recipient address is unknown; use create_draft or ask.",
		Output:       api.OutputText,
	},
}

var createDraftDesc = api.ToolDescriptor{
	Name:        "create_draft",
	Description: "Save an email as a draft for the user to review.",
	Parameters: map[string]api.ParamSpec{
		"to":      {Type: "string", Description: "Recipient email address, if known."},
		"subject": {Type: "string", Description: "Subject line."},
		"body":    {Type: "string", Description: "Plain-text body."},
	},
	Required: []string{"subject"},
	Domain:   api.DomainEmail,
	Kind:     api.ActionKindAPI,
	Hints: api.UsageHints{
		WhenToUse: "The user wants an email written but not sent yet.",
		Output:    api.OutputText,
	},
}

func (c *Client) handleFetchMessages(ctx context.Context, args map[string]any) api.ToolResult {
	msgs, err := c.FetchMessages(ctx,
		boolArg(args, "unreadOnly"),
		stringArg(args, "filterDate"),
		intArg(args, "limit", 20))
	if err != nil {
		return api.ErrorResult(err.Error())
	}
	return api.ToolResult{Success: true, Data: msgs, Widgets: previewWidgets(msgs)}
}

func (c *Client) handleSearchMessages(ctx context.Context, args map[string]any) api.ToolResult {
	msgs, err := c.SearchMessages(ctx, stringArg(args, "query"), intArg(args, "limit", 20))
	if err != nil {
		return api.ErrorResult(err.Error())
	}
	return api.ToolResult{Success: true, Data: msgs, Widgets: previewWidgets(msgs)}
}

func (c *Client) handleGetMessage(ctx context.Context, args map[string]any) api.ToolResult {
	msg, err := c.GetMessage(ctx, stringArg(args, "id"))
	if err != nil {
		return api.ErrorResult(err.Error())
	}
	return api.ToolResult{Success: true, Data: msg}
}

func (c *Client) handleSendMessage(ctx context.Context, args map[string]any) api.ToolResult {
	id, err := c.SendMessage(ctx,
		stringArg(args, "to"),
		stringArg(args, "subject"),
		stringArg(args, "body"))
	if err != nil {
		return api.ErrorResult(err.Error())
	}
	return api.ToolResult{Success: true, Data: map[string]any{"id": id, "sent": true}}
}

func (c *Client) handleCreateDraft(ctx context.Context, args map[string]any) api.ToolResult {
	id, err := c.CreateDraft(ctx,
		stringArg(args, "to"),
		stringArg(args, "subject"),
		stringArg(args, "body"))
	if err != nil {
		return api.ErrorResult(err.Error())
	}
	return api.ToolResult{Success: true, Data: map[string]any{"id": id, "draft": true}}
}

// previewWidgets builds one email_preview per message, capped so a large
// listing does not flood the client.
func previewWidgets(msgs []Message) []api.WidgetBlock {
	const maxWidgets = 5

	var out []api.WidgetBlock
	for i, m := range msgs {
		if i >= maxWidgets {
			break
		}
		out = append(out, widgets.NewBlock(api.WidgetEmailPreview, map[string]any{
			"from":    m.From,
			"subject": m.Subject,
			"snippet": m.Snippet,
			"date":    m.Date,
			"unread":  m.Flags.Unread,
		}))
	}
	return out
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
