// Package server exposes the webhook endpoint that turns forge events into
// review runs.
package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/patchpilot/internal/driver"
	"github.com/patchpilot/internal/forge/github"
)

// reviewTimeout bounds one webhook-triggered run end to end.
const reviewTimeout = 10 * time.Minute

// Runner starts a review for a target. Satisfied by *driver.Driver.
type Runner interface {
	Run(ctx context.Context, target driver.Target) error
}

// Server is the webhook listener.
type Server struct {
	echo   *echo.Echo
	port   int
	secret string
	runner Runner
	log    zerolog.Logger
}

// New builds the server. secret is the shared webhook secret; when empty,
// signature verification is skipped, which only makes sense behind a
// trusted proxy.
func New(port int, secret string, runner Runner, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		port:   port,
		secret: secret,
		runner: runner,
		log:    log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.health)
	s.echo.POST("/webhook/github", s.githubWebhook)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// githubWebhook validates and dispatches a GitHub delivery. The review runs
// in the background; the hook answers before the model does.
func (s *Server) githubWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
	}

	if !s.verifySignature(body, c.Request().Header.Get("X-Hub-Signature-256")) {
		s.log.Warn().Msg("webhook signature mismatch")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "signature mismatch"})
	}

	switch event := c.Request().Header.Get("X-GitHub-Event"); event {
	case "ping":
		return c.JSON(http.StatusOK, map[string]string{"status": "pong"})
	case "pull_request":
	default:
		s.log.Debug().Str("event", event).Msg("ignoring webhook event type")
		return c.JSON(http.StatusAccepted, map[string]string{"status": "ignored"})
	}

	ev, err := github.ParseEvent(body)
	if err != nil {
		s.log.Warn().Err(err).Msg("rejecting malformed pull_request payload")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if !ev.Supported() {
		s.log.Info().Str("action", ev.Action).Str("ref", ev.Ref.String()).Msg("ignoring pull_request action")
		return c.JSON(http.StatusAccepted, map[string]string{"status": "ignored"})
	}

	target := driver.Target{Ref: ev.Ref}
	if ev.Incremental() {
		target.BaseSHA = ev.Before
		target.HeadSHA = ev.After
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reviewTimeout)
		defer cancel()
		if err := s.runner.Run(ctx, target); err != nil {
			s.log.Error().Err(err).Str("ref", ev.Ref.String()).Msg("webhook review failed")
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}

// verifySignature checks the X-Hub-Signature-256 HMAC over the raw body.
func (s *Server) verifySignature(body []byte, header string) bool {
	if s.secret == "" {
		return true
	}

	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	want, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// Start runs the server until an interrupt arrives, then shuts down
// gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	s.log.Info().Int("port", s.port).Msg("webhook server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
