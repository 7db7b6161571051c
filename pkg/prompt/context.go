package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ActivityProbe reports a light activity snapshot, currently the unread
// email count. Failures are swallowed; the snapshot is best-effort.
type ActivityProbe func(ctx context.Context) (unread int, err error)

// ContextBuilder renders the optional user-context prompt section.
type ContextBuilder struct {
	Email       string
	DisplayName string
	Timezone    string
	Probe       ActivityProbe

	// now is swappable in tests.
	now func() time.Time
}

func NewContextBuilder(email, displayName, timezone string, probe ActivityProbe) *ContextBuilder {
	return &ContextBuilder{
		Email:       email,
		DisplayName: displayName,
		Timezone:    timezone,
		Probe:       probe,
		now:         time.Now,
	}
}

// Build produces the user-context block. An empty result is legal and
// means the section is skipped entirely.
func (b *ContextBuilder) Build(ctx context.Context) string {
	if b == nil {
		return ""
	}

	loc := time.UTC
	if b.Timezone != "" {
		if l, err := time.LoadLocation(b.Timezone); err == nil {
			loc = l
		} else {
			slog.WarnContext(ctx, "unknown timezone, using UTC", "timezone", b.Timezone)
		}
	}
	now := b.now().In(loc)

	var lines []string
	lines = append(lines, fmt.Sprintf("Current time: %s", now.Format("Monday, January 2, 2006 at 3:04 PM MST")))
	lines = append(lines, fmt.Sprintf("Timezone: %s", loc.String()))

	if b.Email != "" {
		who := b.Email
		if b.DisplayName != "" {
			who = fmt.Sprintf("%s <%s>", b.DisplayName, b.Email)
		}
		lines = append(lines, fmt.Sprintf("User: %s", who))
	}

	if b.Probe != nil {
		if unread, err := b.Probe(ctx); err == nil {
			lines = append(lines, fmt.Sprintf("Unread emails: %d", unread))
		} else {
			slog.DebugContext(ctx, "activity probe failed", "error", err)
		}
	}

	return strings.Join(lines, "\n")
}
