// Package widgets validates widget descriptors and builds the typed
// WidgetBlocks emitted on the event stream.
package widgets

import (
	"fmt"
	"sync/atomic"

	"concierge/pkg/api"
)

// requiredData lists the data keys a predefined widget type must carry.
var requiredData = map[string][]string{
	api.WidgetEmailPreview:  {"from", "subject"},
	api.WidgetCalendarEvent: {"title", "startTime"},
	api.WidgetSearchResults: {"results"},
	api.WidgetForm:          {"fields"},
	api.WidgetMeetingCard:   {"title", "time"},
	api.WidgetFlightCard:    {"flightNumber", "departure", "arrival"},
}

// allowedComponents is the whitelist for custom vdom trees.
var allowedComponents = map[string]bool{
	"container": true,
	"row":       true,
	"column":    true,
	"card":      true,
	"text":      true,
	"heading":   true,
	"button":    true,
	"image":     true,
	"input":     true,
	"select":    true,
	"list":      true,
	"list_item": true,
	"divider":   true,
	"badge":     true,
	"link":      true,
}

var widgetCounter uint64

// nextID mints a process-unique widget id.
func nextID() string {
	return fmt.Sprintf("widget-%d", atomic.AddUint64(&widgetCounter, 1))
}

// ValidateData checks a predefined descriptor's data against the schema
// for its type.
func ValidateData(typ string, data map[string]any) error {
	required, ok := requiredData[typ]
	if !ok {
		return fmt.Errorf("unknown widget type: %s", typ)
	}
	for _, key := range required {
		if _, present := data[key]; !present {
			return fmt.Errorf("widget type %q missing data field %q", typ, key)
		}
	}
	return nil
}

// ValidateVDOM walks a custom tree and rejects non-whitelisted components.
func ValidateVDOM(node *api.VDOMNode) error {
	if node == nil {
		return fmt.Errorf("custom widget has no vdom tree")
	}
	if !allowedComponents[node.Component] {
		return fmt.Errorf("vdom component %q is not allowed", node.Component)
	}
	for _, child := range node.Children {
		if child.Node != nil {
			if err := ValidateVDOM(child.Node); err != nil {
				return err
			}
		}
	}
	return nil
}

// defaultActions infers the action set appropriate to a predefined type.
func defaultActions(typ string, data map[string]any) []string {
	switch typ {
	case api.WidgetEmailPreview:
		return []string{"reply", "archive", "open"}
	case api.WidgetCalendarEvent:
		if link, ok := data["meetingLink"].(string); ok && link != "" {
			return []string{"join", "decline", "details"}
		}
		return []string{"accept", "decline", "details"}
	case api.WidgetMeetingCard:
		return []string{"join", "decline", "details"}
	case api.WidgetSearchResults:
		return []string{"open"}
	case api.WidgetForm:
		return []string{"submit", "cancel"}
	case api.WidgetFlightCard:
		return []string{"check_in", "details"}
	default:
		return nil
	}
}

// Generator assembles WidgetBlocks from tool results and from descriptors
// the LLM emitted directly.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// FromToolResults concatenates the widgets of successful results in the
// given call order. Widgets missing an id get one minted here.
func (g *Generator) FromToolResults(results map[string]api.ToolResult, order []string) []api.WidgetBlock {
	var out []api.WidgetBlock
	for _, callID := range order {
		res, ok := results[callID]
		if !ok || !res.Success {
			continue
		}
		for _, w := range res.Widgets {
			if w.ID == "" {
				w.ID = nextID()
			}
			out = append(out, w)
		}
	}
	return out
}

// FromLLM validates descriptors and builds blocks. Invalid descriptors are
// dropped with the error returned alongside the survivors; a bad widget
// never fails the turn.
func (g *Generator) FromLLM(descriptors []api.WidgetDescriptor) ([]api.WidgetBlock, []error) {
	var out []api.WidgetBlock
	var errs []error

	for _, d := range descriptors {
		if d.Type == api.WidgetCustom {
			if err := ValidateVDOM(d.VDOM); err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, api.WidgetBlock{
				ID:   nextID(),
				Type: api.WidgetCustom,
				VDOM: d.VDOM,
			})
			continue
		}

		if err := ValidateData(d.Type, d.Data); err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, api.WidgetBlock{
			ID:      nextID(),
			Type:    d.Type,
			Data:    d.Data,
			Actions: defaultActions(d.Type, d.Data),
		})
	}
	return out, errs
}

// NewBlock builds a predefined block with inferred actions, used by tool
// handlers when shaping their results.
func NewBlock(typ string, data map[string]any) api.WidgetBlock {
	return api.WidgetBlock{
		ID:      nextID(),
		Type:    typ,
		Data:    data,
		Actions: defaultActions(typ, data),
	}
}
