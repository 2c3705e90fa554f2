// Package httpapi exposes the session controller over a local HTTP API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bnema/calsnap/internal/application"
	"github.com/bnema/calsnap/internal/domain"
)

const shutdownTimeout = 5 * time.Second

// Sessions is the part of the controller the API drives.
type Sessions interface {
	Submit(ctx context.Context, cmd application.SubmitCommand) (domain.SessionRecord, error)
	Get(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error)
	Overview(ctx context.Context) (application.Overview, error)
	Dismiss(ctx context.Context, id domain.SessionID) error
	DismissAll(ctx context.Context) (int, error)
	PushEvents(ctx context.Context, id domain.SessionID) error
}

type Options struct {
	Logger  *log.Logger
	Metrics http.Handler
}

type Server struct {
	echo     *echo.Echo
	sessions Sessions
	logger   *log.Logger
}

func New(sessions Sessions, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, sessions: sessions, logger: opts.Logger}
	e.HTTPErrorHandler = s.handleError

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	h := &sessionsHandler{sessions: sessions}
	h.Register(e)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve control api on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shut down control api: %w", err)
		}
		<-errCh
		return nil
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if httpErr.Message != nil {
			msg = fmt.Sprint(httpErr.Message)
		}
	} else {
		code = statusFor(err)
	}

	req := c.Request()
	s.logger.Printf("httpapi: %d %s %s: %v", code, req.Method, req.URL.Path, err)
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrEmptyContent),
		errors.Is(err, application.ErrUnsupportedInputType),
		errors.Is(err, domain.ErrSessionNotProcessed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
