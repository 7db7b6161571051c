package calendar

import (
	"context"

	"concierge/pkg/api"
	"concierge/pkg/widgets"
)

// Register wires the calendar tools into the registry.
func Register(reg api.ToolRegistry, c *Client) {
	reg.Register(api.Tool{Descriptor: listEventsDesc, Handler: c.handleListEvents})
	reg.Register(api.Tool{Descriptor: searchEventsDesc, Handler: c.handleSearchEvents})
	reg.Register(api.Tool{Descriptor: createEventDesc, Handler: c.handleCreateEvent})
	reg.Register(api.Tool{Descriptor: respondEventDesc, Handler: c.handleRespondEvent})
	reg.Register(api.Tool{Descriptor: listCalendarsDesc, Handler: c.handleListCalendars})
}

var listEventsDesc = api.ToolDescriptor{
	Name:        "list_events",
	Description: "List calendar events in a date range, start-time order.",
	Parameters: map[string]api.ParamSpec{
		"startDate":  {Type: "string", Description: "Range start, YYYY-MM-DD. Defaults to today."},
		"endDate":    {Type: "string", Description: "Range end, YYYY-MM-DD. Defaults to startDate."},
		"calendarId": {Type: "string", Description: "Restrict to one calendar."},
	},
	Domain: api.DomainCalendar,
	Kind:   api.ActionKindAPI,
	Hints: api.UsageHints{
		WhenToUse: "The user asks what is on their calendar or schedule.",
		Output:    api.OutputBoth,
	},
}

var searchEventsDesc = api.ToolDescriptor{
	Name:        "search_events",
	Description: "Free-text search over event titles and attendees.",
	Parameters: map[string]api.ParamSpec{
		"query": {Type: "string", Description: "Search terms, e.g. a meeting title or attendee name."},
	},
	Required: []string{"query"},
	Domain:   api.DomainCalendar,
	Kind:     api.ActionKindAPI,
	Hints: api.UsageHints{
		WhenToUse: "The user is looking for a specific meeting rather than a date range.",
		Output:    api.OutputBoth,
	},
}

var createEventDesc = api.ToolDescriptor{
	Name:        "create_event",
	Description: "Create a calendar event.",
	Parameters: map[string]api.ParamSpec{
		"title":       {Type: "string", Description: "Event title."},
		"startTime":   {Type: "string", Description: "Start, RFC 3339 or YYYY-MM-DDTHH:MM."},
		"endTime":     {Type: "string", Description: "End; defaults to one hour after start."},
		"location":    {Type: "string", Description: "Location or meeting room."},
		"description": {Type: "string", Description: "Free-text description."},
		"attendees":   {Type: "array", Description: "Attendee email addresses.", Items: &api.ParamSpec{Type: "string"}},
	},
	Required: []string{"title", "startTime"},
	Domain:   api.DomainCalendar,
	Kind:     api.ActionKindAPI,
	Hints: api.UsageHints{
		WhenToUse:    "The user explicitly asked to schedule something, with title and time confirmed.",
		WhenNotToUse: "The time or title is still ambiguous; ask first.",
		Output:       api.OutputBoth,
	},
}

var respondEventDesc = api.ToolDescriptor{
	Name:        "respond_event",
	Description: "Record the user's response to an event invitation.",
	Parameters: map[string]api.ParamSpec{
		"eventId":  {Type: "string", Description: "Event id from a prior listing."},
		"response": {Type: "string", Description: "The RSVP.", Enum: []string{"accepted", "declined", "tentative"}},
	},
	Required: []string{"eventId", "response"},
	Domain:   api.DomainCalendar,
	Kind:     api.ActionKindAPI,
	Hints: api.UsageHints{
		WhenToUse:     "The user asked to accept, decline, or tentatively accept an invitation.",
		Prerequisites: []string{"An event id from list_events or search_events."},
		Output:        api.OutputText,
	},
}

var listCalendarsDesc = api.ToolDescriptor{
	Name:        "list_calendars",
	Description: "List the user's calendars.",
	Domain:      api.DomainCalendar,
	Kind:        api.ActionKindAPI,
	Hints: api.UsageHints{
		WhenToUse:    "The user asks about their calendars themselves.",
		WhenNotToUse: "The user asks about events; use list_events.",
		Output:       api.OutputText,
	},
}

func (c *Client) handleListEvents(ctx context.Context, args map[string]any) api.ToolResult {
	events, err := c.ListEvents(ctx,
		stringArg(args, "startDate"),
		stringArg(args, "endDate"),
		stringArg(args, "calendarId"))
	if err != nil {
		return api.ErrorResult(err.Error())
	}
	return api.ToolResult{Success: true, Data: events, Widgets: eventWidgets(events)}
}

func (c *Client) handleSearchEvents(ctx context.Context, args map[string]any) api.ToolResult {
	events, err := c.SearchEvents(ctx, stringArg(args, "query"))
	if err != nil {
		return api.ErrorResult(err.Error())
	}
	return api.ToolResult{Success: true, Data: events, Widgets: eventWidgets(events)}
}

func (c *Client) handleCreateEvent(ctx context.Context, args map[string]any) api.ToolResult {
	req := createEventRequest{
		Title:       stringArg(args, "title"),
		StartTime:   stringArg(args, "startTime"),
		EndTime:     stringArg(args, "endTime"),
		Location:    stringArg(args, "location"),
		Description: stringArg(args, "description"),
		Attendees:   stringSliceArg(args, "attendees"),
	}
	event, err := c.CreateEvent(ctx, req)
	if err != nil {
		return api.ErrorResult(err.Error())
	}
	return api.ToolResult{Success: true, Data: event, Widgets: eventWidgets([]Event{event})}
}

func (c *Client) handleRespondEvent(ctx context.Context, args map[string]any) api.ToolResult {
	eventID := stringArg(args, "eventId")
	response := stringArg(args, "response")
	if err := c.RespondEvent(ctx, eventID, response); err != nil {
		return api.ErrorResult(err.Error())
	}
	return api.ToolResult{Success: true, Data: map[string]any{"eventId": eventID, "response": response}}
}

func (c *Client) handleListCalendars(ctx context.Context, args map[string]any) api.ToolResult {
	calendars, err := c.ListCalendars(ctx)
	if err != nil {
		return api.ErrorResult(err.Error())
	}
	return api.ToolResult{Success: true, Data: calendars}
}

// eventWidgets builds one calendar_event widget per event, capped like
// the mail previews.
func eventWidgets(events []Event) []api.WidgetBlock {
	const maxWidgets = 5

	var out []api.WidgetBlock
	for i, e := range events {
		if i >= maxWidgets {
			break
		}
		data := map[string]any{
			"title":     e.Title,
			"startTime": e.StartTime,
		}
		if e.EndTime != "" {
			data["endTime"] = e.EndTime
		}
		if e.Location != "" {
			data["location"] = e.Location
		}
		if e.MeetingLink != "" {
			data["meetingLink"] = e.MeetingLink
		}
		if len(e.Attendees) > 0 {
			names := make([]string, len(e.Attendees))
			for j, a := range e.Attendees {
				if a.Name != "" {
					names[j] = a.Name
				} else {
					names[j] = a.Email
				}
			}
			data["attendees"] = names
		}
		out = append(out, widgets.NewBlock(api.WidgetCalendarEvent, data))
	}
	return out
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
