package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bnema/calsnap/internal/application"
	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

type sessionsHandler struct {
	sessions Sessions
}

type submitRequest struct {
	Content   string `json:"content"`
	URL       string `json:"url"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	Data      []byte `json:"data"`
	InputType string `json:"input_type"`
	Title     string `json:"title"`
}

type sessionView struct {
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
	Queued          bool           `json:"queued"`
	Active          bool           `json:"active"`
}

type listResponse struct {
	Sessions []sessionView `json:"sessions"`
	Queue    []string      `json:"queue"`
	Badge    domain.Badge  `json:"badge"`
}

type badgeResponse struct {
	Kind  domain.BadgeKind `json:"kind"`
	Count int              `json:"count"`
	Text  string           `json:"text"`
}

func (h *sessionsHandler) Register(e *echo.Echo) {
	e.GET("/badge", h.badge)

	g := e.Group("/sessions")
	g.GET("", h.list)
	g.POST("", h.submit)
	g.POST("/dismiss-all", h.dismissAll)
	g.GET("/:id", h.get)
	g.POST("/:id/dismiss", h.dismiss)
	g.POST("/:id/push", h.push)
}

func (h *sessionsHandler) list(c echo.Context) error {
	overview, err := h.sessions.Overview(c.Request().Context())
	if err != nil {
		return err
	}

	resp := listResponse{
		Sessions: make([]sessionView, 0, len(overview.Records)),
		Queue:    make([]string, 0, len(overview.Queue)),
		Badge:    overview.Badge,
	}
	for _, record := range overview.Records {
		resp.Sessions = append(resp.Sessions, newSessionView(record, overview))
	}
	for _, id := range overview.Queue {
		resp.Queue = append(resp.Queue, string(id))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *sessionsHandler) get(c echo.Context) error {
	ctx := c.Request().Context()
	record, err := h.sessions.Get(ctx, domain.SessionID(c.Param("id")))
	if err != nil {
		return err
	}
	overview, err := h.sessions.Overview(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionView(record, overview))
}

func (h *sessionsHandler) submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	record, err := h.sessions.Submit(c.Request().Context(), application.SubmitCommand{
		Content: ports.Content{
			Text:      req.Content,
			URL:       strings.TrimSpace(req.URL),
			FileName:  req.FileName,
			MimeType:  req.MimeType,
			Data:      req.Data,
			InputType: domain.InputType(strings.ToLower(strings.TrimSpace(req.InputType))),
		},
		Title: req.Title,
	})
	if err != nil {
		return err
	}

	view := newSessionView(record, application.Overview{})
	view.Active = true
	return c.JSON(http.StatusAccepted, view)
}

func (h *sessionsHandler) dismiss(c echo.Context) error {
	if err := h.sessions.Dismiss(c.Request().Context(), domain.SessionID(c.Param("id"))); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *sessionsHandler) dismissAll(c echo.Context) error {
	dismissed, err := h.sessions.DismissAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"dismissed": dismissed})
}

func (h *sessionsHandler) push(c echo.Context) error {
	if err := h.sessions.PushEvents(c.Request().Context(), domain.SessionID(c.Param("id"))); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *sessionsHandler) badge(c echo.Context) error {
	overview, err := h.sessions.Overview(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, badgeResponse{
		Kind:  overview.Badge.Kind,
		Count: overview.Badge.Count,
		Text:  overview.Badge.String(),
	})
}

func newSessionView(record domain.SessionRecord, overview application.Overview) sessionView {
	view := sessionView{
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
	for _, id := range overview.Queue {
		if id == record.ID {
			view.Queued = true
			break
		}
	}
	for _, id := range overview.Active {
		if id == record.ID {
			view.Active = true
			break
		}
	}
	return view
}
