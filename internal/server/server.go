// Package server exposes the HTTP capture endpoint used by phone shortcuts.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"life-os/internal/metrics"
	"life-os/internal/model"
	"life-os/internal/service"
)

const maxBodyBytes = 64 << 10

type Capturer interface {
	Capture(ctx context.Context, text string) (service.CaptureResult, error)
}

type Config struct {
	Addr string
	// APIKey guards /capture; an empty key rejects every request.
	APIKey string
}

// Server provides HTTP endpoints for captures, health and metrics.
type Server struct {
	echo    *echo.Echo
	capture Capturer
	metrics *metrics.Metrics
	logger  *zap.Logger
	config  Config
}

// New builds the server. capture may be nil, in which case /capture answers 500.
func New(cfg Config, capture Capturer, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "http"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{echo: e, capture: capture, metrics: m, logger: logger, config: cfg}

	e.GET("/health", s.handleHealth)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	e.Any("/capture", s.handleCapture, withCORS)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func withCORS(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		return next(c)
	}
}

type captureRequest struct {
	Text string `json:"text"`
}

type processedItem struct {
	Type                   *string  `json:"type"`
	Description            string   `json:"description"`
	DueDate                *string  `json:"due_date,omitempty"`
	DueTime                *string  `json:"due_time,omitempty"`
	Urgency                string   `json:"urgency,omitempty"`
	Category               string   `json:"category,omitempty"`
	Location               *string  `json:"location,omitempty"`
	People                 []string `json:"people,omitempty"`
	RoutedTo               string   `json:"routed_to,omitempty"`
	CalendarCreated        bool     `json:"calendar_created"`
	NeedsClarification     bool     `json:"needs_clarification"`
	ClarificationQuestions []string `json:"clarification_questions,omitempty"`
	Summary                string   `json:"summary"`
}

type captureResponse struct {
	Success   bool           `json:"success"`
	ID        string         `json:"id,omitempty"`
	Processed *processedItem `json:"processed,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleCapture(c echo.Context) error {
	req := c.Request()
	if req.Method == http.MethodOptions {
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}
	if req.Method != http.MethodPost {
		return s.fail(c, http.StatusMethodNotAllowed, "Method not allowed. Use POST.")
	}
	if !s.authorized(req) {
		return s.fail(c, http.StatusUnauthorized, "Unauthorized.")
	}

	var body captureRequest
	if err := json.NewDecoder(http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)).Decode(&body); err != nil {
		return s.fail(c, http.StatusBadRequest, "Invalid request: body must be a JSON object")
	}
	text := strings.TrimSpace(body.Text)
	if text == "" {
		return s.fail(c, http.StatusBadRequest, "Invalid request: missing or empty 'text' field")
	}
	if s.capture == nil {
		return s.fail(c, http.StatusInternalServerError, "capture is not configured")
	}

	res, err := s.capture.Capture(req.Context(), text)
	if err != nil {
		s.logger.Error("capture failed", zap.Error(err))
		if errors.Is(err, service.ErrEmptyCapture) {
			return s.fail(c, http.StatusBadRequest, "Invalid request: missing or empty 'text' field")
		}
		return s.fail(c, http.StatusInternalServerError, "Failed to save to inbox.")
	}

	s.metrics.HTTPCapture(http.StatusOK)
	return c.JSON(http.StatusOK, captureResponse{Success: true, ID: res.ID, Processed: toProcessed(res)})
}

func (s *Server) fail(c echo.Context, status int, msg string) error {
	s.metrics.HTTPCapture(status)
	return c.JSON(status, captureResponse{Success: false, Error: msg})
}

func (s *Server) authorized(req *http.Request) bool {
	if s.config.APIKey == "" {
		return false
	}
	key := req.Header.Get("X-API-Key")
	if auth := req.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		key = strings.TrimPrefix(auth, "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.config.APIKey)) == 1
}

func toProcessed(res service.CaptureResult) *processedItem {
	if !res.Processed {
		return &processedItem{Description: res.Item.Description, Summary: res.Summary}
	}
	item := res.Item
	typ := string(item.ItemType)
	p := &processedItem{
		Type:                   &typ,
		Description:            item.Description,
		Urgency:                string(item.Urgency),
		Category:               string(item.Category),
		People:                 item.People,
		RoutedTo:               string(res.Destination),
		CalendarCreated:        res.CalendarCreated,
		NeedsClarification:     item.NeedsClarification,
		ClarificationQuestions: item.ClarificationQuestions,
		Summary:                res.Summary,
	}
	if item.DueDate != nil {
		d := model.FormatDate(item.DueDate)
		p.DueDate = &d
	}
	if item.DueTime != nil {
		t := model.FormatClock(item.DueTime)
		p.DueTime = &t
	}
	if item.Location != "" {
		loc := item.Location
		p.Location = &loc
	}
	return p
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
