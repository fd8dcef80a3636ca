package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/airtrace-io/pollution-collector/internal/lib/logger/sl"
	"github.com/airtrace-io/pollution-collector/internal/observability"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

type HealthChecker interface {
	Name() string
	Check(ctx context.Context) (Status, string)
}

type Server struct {
	log      *slog.Logger
	address  string
	server   *http.Server
	checkers []HealthChecker
	mu       sync.RWMutex
}

func NewServer(log *slog.Logger, address string) *Server {
	return &Server{
		log:      log,
		address:  address,
		checkers: make([]HealthChecker, 0),
	}
}

func (s *Server) AddChecker(checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers = append(s.checkers, checker)
}

func (s *Server) Start() error {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)
	r.Handle("/metrics", observability.MetricsHandler())

	s.server = &http.Server{
		Addr:         s.address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("starting health server", slog.String("address", s.address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("health server error", sl.Err(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checkers := make([]HealthChecker, len(s.checkers))
	copy(checkers, s.checkers)
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:     StatusHealthy,
		Components: make([]ComponentHealth, 0, len(checkers)),
		Timestamp:  time.Now().UTC(),
	}

	for _, checker := range checkers {
		status, message := checker.Check(ctx)
		response.Components = append(response.Components, ComponentHealth{
			Name:    checker.Name(),
			Status:  status,
			Message: message,
		})

		if status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if status == StatusDegraded && response.Status == StatusHealthy {
			response.Status = StatusDegraded
		}
	}

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// StorageHealthChecker pings the InfluxDB endpoint. A failing ping degrades
// the report; only the poll loop's failure budget ends the process.
type StorageHealthChecker struct {
	pingFunc func(ctx context.Context) error
}

func NewStorageHealthChecker(pingFunc func(ctx context.Context) error) *StorageHealthChecker {
	return &StorageHealthChecker{pingFunc: pingFunc}
}

func (c *StorageHealthChecker) Name() string {
	return "storage"
}

func (c *StorageHealthChecker) Check(ctx context.Context) (Status, string) {
	if err := c.pingFunc(ctx); err != nil {
		return StatusDegraded, err.Error()
	}
	return StatusHealthy, ""
}

// PollerHealthChecker reports the poll loop's consecutive-failure streak.
type PollerHealthChecker struct {
	streakFunc func() int
	maxRetry   int
}

func NewPollerHealthChecker(streakFunc func() int, maxRetry int) *PollerHealthChecker {
	return &PollerHealthChecker{streakFunc: streakFunc, maxRetry: maxRetry}
}

func (c *PollerHealthChecker) Name() string {
	return "poller"
}

func (c *PollerHealthChecker) Check(ctx context.Context) (Status, string) {
	streak := c.streakFunc()
	switch {
	case streak >= c.maxRetry:
		return StatusUnhealthy, fmt.Sprintf("failure budget exhausted (%d/%d)", streak, c.maxRetry)
	case streak > 0:
		return StatusDegraded, fmt.Sprintf("%d consecutive failed cycles (budget %d)", streak, c.maxRetry)
	default:
		return StatusHealthy, ""
	}
}
