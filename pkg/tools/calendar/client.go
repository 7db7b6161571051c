// Package calendar wraps the external calendar API as registered agent
// tools. Unlike mail, the calendar API lives at a fixed per-environment
// base URL; only the session token comes from the request.
package calendar

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

const (
	sessionHeader = "X-Session-Token"
	icalHeader    = "X-Supports-ICal"

	stagingBaseURL    = "https://calendar-api.staging.concierge.dev"
	productionBaseURL = "https://calendar-api.concierge.dev"
)

// Calendar-list attribute bitset.
const (
	listAttrHidden   = 1 << 0
	listAttrSelected = 1 << 1
)

// Calendar attribute bitset.
const (
	calAttrDeleted = 1 << 0
	calAttrPrimary = 1 << 1
	calAttrICal    = 1 << 2
)

// Event attribute bitset.
const (
	eventAttrRecurring          = 1 << 0
	eventAttrAllDay             = 1 << 1
	eventAttrGuestsMayModify    = 1 << 2
	eventAttrGuestsMayInvite    = 1 << 3
	eventAttrGuestsMaySeeList   = 1 << 4
	eventAttrDeleted            = 1 << 5
	eventAttrExternal           = 1 << 8
	eventAttrParentIsSecondary  = 1 << 9
	eventAttrParentEvent        = 1 << 10
	eventAttrICal               = 1 << 13
	eventAttrAppointment        = 1 << 14
)

// Attendee attribute bitset.
const (
	attendeeAttrOptional  = 1 << 0
	attendeeAttrOrganizer = 1 << 1
)

// BaseURLFor maps an environment name to the calendar API base URL.
// Anything other than "production" gets staging.
func BaseURLFor(environment string) string {
	if environment == "production" {
		return productionBaseURL
	}
	return stagingBaseURL
}

// Client is a thin HTTP client over the calendar API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given environment ("staging" or
// "production").
func NewClient(environment string) *Client {
	return &Client{
		baseURL: BaseURLFor(environment),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type wireAttendee struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Response  string `json:"response,omitempty"`
	Attribute int    `json:"attribute"`
}

type wireEvent struct {
	ID          string         `json:"id"`
	CalendarID  string         `json:"calendarId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	MeetingLink string         `json:"meetingLink,omitempty"`
	StartTime   string         `json:"startTime"`
	EndTime     string         `json:"endTime,omitempty"`
	Attribute   int            `json:"attribute"`
	Attendees   []wireAttendee `json:"attendees,omitempty"`
}

type wireCalendar struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Attribute     int    `json:"attribute"`
	ListAttribute int    `json:"listAttribute"`
}

// Attendee is the decoded attendee record.
type Attendee struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Response  string `json:"response,omitempty"`
	Optional  bool   `json:"optional"`
	Organizer bool   `json:"organizer"`
}

// EventFlags is the decoded event attribute bitset.
type EventFlags struct {
	Recurring         bool `json:"recurring"`
	AllDay            bool `json:"allDay"`
	GuestsMayModify   bool `json:"guestsMayModify"`
	GuestsMayInvite   bool `json:"guestsMayInvite"`
	GuestsMaySeeList  bool `json:"guestsMaySeeList"`
	Deleted           bool `json:"deleted"`
	External          bool `json:"external"`
	ParentIsSecondary bool `json:"parentIsSecondary"`
	ParentEvent       bool `json:"parentEvent"`
	ICal              bool `json:"iCal"`
	Appointment       bool `json:"appointment"`
}

// Event is the tool-facing event record.
type Event struct {
	ID          string     `json:"id"`
	CalendarID  string     `json:"calendarId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	MeetingLink string     `json:"meetingLink,omitempty"`
	StartTime   string     `json:"startTime"`
	EndTime     string     `json:"endTime,omitempty"`
	Flags       EventFlags `json:"flags"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

// Calendar is the tool-facing calendar record.
type Calendar struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Deleted  bool   `json:"deleted"`
	Primary  bool   `json:"primary"`
	ICal     bool   `json:"iCal"`
	Hidden   bool   `json:"hidden"`
	Selected bool   `json:"selected"`
}

func decodeEventFlags(attr int) EventFlags {
	return EventFlags{
		Recurring:         attr&eventAttrRecurring != 0,
		AllDay:            attr&eventAttrAllDay != 0,
		GuestsMayModify:   attr&eventAttrGuestsMayModify != 0,
		GuestsMayInvite:   attr&eventAttrGuestsMayInvite != 0,
		GuestsMaySeeList:  attr&eventAttrGuestsMaySeeList != 0,
		Deleted:           attr&eventAttrDeleted != 0,
		External:          attr&eventAttrExternal != 0,
		ParentIsSecondary: attr&eventAttrParentIsSecondary != 0,
		ParentEvent:       attr&eventAttrParentEvent != 0,
		ICal:              attr&eventAttrICal != 0,
		Appointment:       attr&eventAttrAppointment != 0,
	}
}

func (a wireAttendee) decode() Attendee {
	return Attendee{
		Email:     a.Email,
		Name:      a.Name,
		Response:  a.Response,
		Optional:  a.Attribute&attendeeAttrOptional != 0,
		Organizer: a.Attribute&attendeeAttrOrganizer != 0,
	}
}

func (e wireEvent) decode() Event {
	attendees := make([]Attendee, len(e.Attendees))
	for i, a := range e.Attendees {
		attendees[i] = a.decode()
	}
	return Event{
		ID:          e.ID,
		CalendarID:  e.CalendarID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		MeetingLink: e.MeetingLink,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Flags:       decodeEventFlags(e.Attribute),
		Attendees:   attendees,
	}
}

func (c wireCalendar) decode() Calendar {
	return Calendar{
		ID:       c.ID,
		Name:     c.Name,
		Deleted:  c.Attribute&calAttrDeleted != 0,
		Primary:  c.Attribute&calAttrPrimary != 0,
		ICal:     c.Attribute&calAttrICal != 0,
		Hidden:   c.ListAttribute&listAttrHidden != 0,
		Selected: c.ListAttribute&listAttrSelected != 0,
	}
}

// do issues one authenticated request against the environment base URL.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	handle, ok := session.FromContext(ctx)
	if !ok || handle.Token == "" {
		return fmt.Errorf("no active session")
	}

	endpoint := session.JoinURL(c.baseURL, path)
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
	req.Header.Set(icalHeader, "true")
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
		return fmt.Errorf("calendar API %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type eventList struct {
	Events []wireEvent `json:"events"`
}

type calendarList struct {
	Calendars []wireCalendar `json:"calendars"`
}

// ListEvents returns events in [startDate, endDate] (YYYY-MM-DD, both
// optional) for one calendar or all.
func (c *Client) ListEvents(ctx context.Context, startDate, endDate, calendarID string) ([]Event, error) {
	q := url.Values{}
	if startDate != "" {
		q.Set("start", startDate)
	}
	if endDate != "" {
		q.Set("end", endDate)
	}
	if calendarID != "" {
		q.Set("calendarId", calendarID)
	}

	var list eventList
	if err := c.do(ctx, http.MethodGet, "/api/calendar/events", q, nil, &list); err != nil {
		return nil, err
	}
	return decodeEvents(list.Events), nil
}

// SearchEvents runs a free-text search over event titles and attendees.
func (c *Client) SearchEvents(ctx context.Context, query string) ([]Event, error) {
	var list eventList
	q := url.Values{"q": {query}}
	if err := c.do(ctx, http.MethodGet, "/api/calendar/events/search", q, nil, &list); err != nil {
		return nil, err
	}
	return decodeEvents(list.Events), nil
}

type createEventRequest struct {
	Title       string   `json:"title"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime,omitempty"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
}

// CreateEvent creates an event and returns its decoded record.
func (c *Client) CreateEvent(ctx context.Context, req createEventRequest) (Event, error) {
	var wire wireEvent
	if err := c.do(ctx, http.MethodPost, "/api/calendar/events", nil, req, &wire); err != nil {
		return Event{}, err
	}
	return wire.decode(), nil
}

type respondRequest struct {
	Response string `json:"response"`
}

// RespondEvent records the user's RSVP (accepted, declined, tentative).
func (c *Client) RespondEvent(ctx context.Context, eventID, response string) error {
	path := "/api/calendar/events/" + url.PathEscape(eventID) + "/respond"
	return c.do(ctx, http.MethodPost, path, nil, respondRequest{Response: response}, nil)
}

// ListCalendars returns the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context) ([]Calendar, error) {
	var list calendarList
	if err := c.do(ctx, http.MethodGet, "/api/calendar/calendars", nil, nil, &list); err != nil {
		return nil, err
	}
	out := make([]Calendar, len(list.Calendars))
	for i, cal := range list.Calendars {
		out[i] = cal.decode()
	}
	return out, nil
}

func decodeEvents(wire []wireEvent) []Event {
	out := make([]Event, len(wire))
	for i, e := range wire {
		out[i] = e.decode()
	}
	return out
}
