package badge

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/calsnap/internal/application"
	"github.com/bnema/calsnap/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// Spinner replaces the static polling glyph, for animated views.
	Spinner string
}

func renderBadge(b domain.Badge, opts RenderOptions, s styles) string {
	switch b.Kind {
	case domain.BadgeSpinner:
		glyph := b.String()
		if opts.Spinner != "" {
			glyph = opts.Spinner
		}
		return s.badgeSpin.Render(glyph + " processing")
	case domain.BadgeCount:
		return s.badgeCount.Render(b.String())
	case domain.BadgeError:
		return s.badgeError.Render(b.String())
	default:
		return s.badgeEmpty.Render("no new events")
	}
}

func renderView(overview application.Overview, opts RenderOptions, s styles) string {
	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, s.title.Render("Calendar sessions"), " ", renderBadge(overview.Badge, opts, s)),
		s.header.Render(fmt.Sprintf("sessions: %d  queued: %d  polling: %d", len(overview.Records), len(overview.Pending()), len(overview.Active))),
	}

	if len(overview.Records) == 0 {
		lines = append(lines, s.empty.Render("No sessions yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, record := range overview.Records {
		queued := slices.Contains(overview.Queue, record.ID)
		lines = append(lines, s.section.Render(renderRecord(record, queued, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderRecord(record domain.SessionRecord, queued bool, opts RenderOptions, s styles) string {
	heading := s.session.Render(recordTitle(record))
	if queued {
		heading = lipgloss.JoinHorizontal(lipgloss.Top, heading, " ", s.queued.Render("● new"))
	}

	parts := []string{
		heading,
		s.meta.Render(fmt.Sprintf("%s · %s · %s", record.ID, record.InputType, formatAge(record.CreatedAt, opts.Now))),
	}

	switch record.Status {
	case domain.StatusPolling:
		parts = append(parts, s.detail.Render("processing…"))
	case domain.StatusError:
		parts = append(parts, s.warning.Render(record.ErrorMessage))
	case domain.StatusProcessed:
		parts = append(parts, s.detail.Render(eventLine(record)))
	}
	if record.AddedToCalendar {
		parts = append(parts, s.meta.Render("added to calendar"))
	}
	if record.DismissedAt != nil {
		parts = append(parts, s.meta.Render("dismissed "+formatAge(*record.DismissedAt, opts.Now)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func recordTitle(record domain.SessionRecord) string {
	title := strings.TrimSpace(record.Title)
	if title == "" {
		title = "Untitled session"
	}
	if icon := strings.TrimSpace(record.Icon); icon != "" {
		return icon + " " + title
	}
	return title
}

func eventLine(record domain.SessionRecord) string {
	var count string
	switch record.EventCount {
	case 0:
		return "no events found"
	case 1:
		count = "1 event"
	default:
		count = fmt.Sprintf("%d events", record.EventCount)
	}
	if len(record.EventSummaries) == 0 {
		return count
	}
	return count + ": " + strings.Join(record.EventSummaries, ", ")
}

func formatAge(at time.Time, now time.Time) string {
	if at.IsZero() {
		return "unknown time"
	}
	if now.IsZero() || now.Before(at) {
		return at.Format("15:04 on 02 Jan")
	}

	age := now.Sub(at)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return at.Format("15:04 on 02 Jan")
	}
}
