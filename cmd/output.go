package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	badgerender "github.com/bnema/calsnap/internal/adapters/render/badge"
	"github.com/bnema/calsnap/internal/application"
	"github.com/bnema/calsnap/internal/domain"
)

type recordOutput struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	Title           string         `json:"title,omitempty"`
	Icon            string         `json:"icon,omitempty"`
	InputType       string         `json:"input_type"`
	EventCount      int            `json:"event_count"`
	EventSummaries  []string       `json:"event_summaries,omitempty"`
	Events          []domain.Event `json:"events,omitempty"`
	AddedToCalendar bool           `json:"added_to_calendar"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	DismissedAt     *time.Time     `json:"dismissed_at,omitempty"`
}

type overviewOutput struct {
	Sessions []recordOutput `json:"sessions"`
	Queue    []string       `json:"queue"`
	Badge    domain.Badge   `json:"badge"`
}

func newRecordOutput(record domain.SessionRecord) recordOutput {
	return recordOutput{
		ID:              string(record.ID),
		Status:          string(record.Status),
		Title:           record.Title,
		Icon:            record.Icon,
		InputType:       string(record.InputType),
		EventCount:      record.EventCount,
		EventSummaries:  record.EventSummaries,
		Events:          record.Events,
		AddedToCalendar: record.AddedToCalendar,
		ErrorMessage:    record.ErrorMessage,
		CreatedAt:       record.CreatedAt,
		DismissedAt:     record.DismissedAt,
	}
}

func writeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func writeOverviewOutput(cmd *cobra.Command, app *app, overview application.Overview, asJSON bool) error {
	if asJSON {
		out := overviewOutput{
			Sessions: make([]recordOutput, 0, len(overview.Records)),
			Queue:    make([]string, 0, len(overview.Queue)),
			Badge:    overview.Badge,
		}
		for _, record := range overview.Records {
			out.Sessions = append(out.Sessions, newRecordOutput(record))
		}
		for _, id := range overview.Queue {
			out.Queue = append(out.Queue, string(id))
		}
		return writeJSON(cmd, out)
	}

	rendered, err := badgerender.Render(overview, badgerender.RenderOptions{Now: app.clock.Now()})
	if err != nil {
		return fmt.Errorf("render sessions: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func writeRecordOutput(cmd *cobra.Command, record domain.SessionRecord, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, newRecordOutput(record))
	}

	out := cmd.OutOrStdout()
	switch record.Status {
	case domain.StatusProcessed:
		if _, err := fmt.Fprintf(out, "%s: %s\n", record.ID, summaryLine(record)); err != nil {
			return err
		}
	case domain.StatusError:
		if _, err := fmt.Fprintf(out, "%s: error: %s\n", record.ID, record.ErrorMessage); err != nil {
			return err
		}
	default:
		if _, err := fmt.Fprintf(out, "%s: submitted, polling in the background\n", record.ID); err != nil {
			return err
		}
	}
	return nil
}

func summaryLine(record domain.SessionRecord) string {
	var line string
	switch record.EventCount {
	case 0:
		return "no events found"
	case 1:
		line = "1 event"
	default:
		line = fmt.Sprintf("%d events", record.EventCount)
	}
	if len(record.EventSummaries) > 0 {
		line += ": " + strings.Join(record.EventSummaries, ", ")
	}
	return line
}
