// Package prompt assembles the per-request system prompt: a keyword
// router picks the domain and capability fragments a query needs, and
// only the matching tool subset is rendered into the prompt.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"concierge/pkg/api"
)

// Router selects prompt fragments by query intent. It is built once at
// startup and read-only afterwards.
type Router struct {
	persona        string
	guardrails     string
	responseFormat string
	domains        []Fragment
	capabilities   []Fragment
}

// NewRouter builds a router with the built-in fragment set.
func NewRouter() *Router {
	return &Router{
		persona:        personaBody,
		guardrails:     guardrailsBody,
		responseFormat: responseFormatBody,
		domains:        defaultDomainFragments(),
		capabilities:   defaultCapabilityFragments(),
	}
}

// DetectDomains lowercases the query and matches each domain fragment's
// keywords by substring. No match falls back to ["general"].
func (r *Router) DetectDomains(query string) []string {
	q := strings.ToLower(query)

	var matched []string
	for _, d := range r.domains {
		if len(d.Keywords) == 0 {
			continue
		}
		for _, kw := range d.Keywords {
			if strings.Contains(q, kw) {
				matched = append(matched, d.Name)
				break
			}
		}
	}

	if len(matched) == 0 {
		return []string{api.DomainGeneral}
	}
	return matched
}

// DetectCapabilities returns the capability fragments triggered by the
// query. Independent of domain detection; zero matches is normal.
func (r *Router) DetectCapabilities(query string) []string {
	q := strings.ToLower(query)

	var matched []string
	for _, c := range r.capabilities {
		for _, kw := range c.Keywords {
			if strings.Contains(q, kw) {
				matched = append(matched, c.Name)
				break
			}
		}
	}
	return matched
}

// RelevantTools filters to tools whose domain is in the detected set.
// Tools without a domain tag are always offered.
func (r *Router) RelevantTools(all []api.ToolDescriptor, domains []string) []api.ToolDescriptor {
	inSet := make(map[string]bool, len(domains))
	for _, d := range domains {
		inSet[d] = true
	}

	var out []api.ToolDescriptor
	for _, t := range all {
		if t.Domain == "" || inSet[t.Domain] {
			out = append(out, t)
		}
	}
	return out
}

// Assemble renders the full system prompt for one request. Sections are
// headed and joined with blank lines; the same inputs always yield
// byte-identical output.
func (r *Router) Assemble(query string, tools []api.ToolDescriptor, userContext string) string {
	var sections []string

	sections = append(sections, section("Persona", r.persona))
	sections = append(sections, section("Guardrails", r.guardrails))

	domains := r.DetectDomains(query)
	for _, d := range r.domains {
		if containsString(domains, d.Name) {
			sections = append(sections, section(d.Heading, d.Body))
		}
	}

	caps := r.DetectCapabilities(query)
	for _, c := range r.capabilities {
		if containsString(caps, c.Name) {
			sections = append(sections, section(c.Heading, c.Body))
		}
	}

	sections = append(sections, section("Available Tools", renderTools(tools)))
	sections = append(sections, section("Response Format", r.responseFormat))

	if userContext != "" {
		sections = append(sections, section("User Context", userContext))
	}

	return strings.Join(sections, "\n\n")
}

func section(heading, body string) string {
	return "## " + heading + "\n\n" + strings.TrimSpace(body)
}

// renderTools lists each tool with its parameters and usage hints. The
// parameter order is sorted so assembly stays deterministic.
func renderTools(tools []api.ToolDescriptor) string {
	if len(tools) == 0 {
		return "No tools available."
	}

	var b strings.Builder
	for i, t := range tools {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\n%s", t.Name, t.Description)

		if t.Hints.WhenToUse != "" {
			fmt.Fprintf(&b, "\nUse when: %s", t.Hints.WhenToUse)
		}
		if t.Hints.WhenNotToUse != "" {
			fmt.Fprintf(&b, "\nDo not use when: %s", t.Hints.WhenNotToUse)
		}

		if len(t.Parameters) > 0 {
			required := make(map[string]bool, len(t.Required))
			for _, name := range t.Required {
				required[name] = true
			}

			names := make([]string, 0, len(t.Parameters))
			for name := range t.Parameters {
				names = append(names, name)
			}
			sort.Strings(names)

			b.WriteString("\nParameters:")
			for _, name := range names {
				p := t.Parameters[name]
				mark := "optional"
				if required[name] {
					mark = "required"
				}
				fmt.Fprintf(&b, "\n- %s (%s, %s): %s", name, p.Type, mark, p.Description)
				if len(p.Enum) > 0 {
					fmt.Fprintf(&b, " One of: %s.", strings.Join(p.Enum, ", "))
				}
			}
		}
	}
	return b.String()
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
