package writer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/airtrace-io/pollution-collector/internal/failure"
	"github.com/airtrace-io/pollution-collector/internal/model"
	"github.com/airtrace-io/pollution-collector/internal/observability"
)

// Writer persists one time-series point per call.
type Writer interface {
	Write(ctx context.Context, p model.Point) error
	Ping(ctx context.Context) error
}

// InfluxConfig configures the InfluxDB v1 writer. Endpoint must already be
// normalized.
type InfluxConfig struct {
	Endpoint string
	Database string
	Username string
	Password string
	Token    string
	Timeout  time.Duration
}

// InfluxWriter posts points to the InfluxDB v1 /write API. One HTTP call per
// point, no internal retry, no buffering: a failed point is reported upward
// and discarded.
type InfluxWriter struct {
	log      *slog.Logger
	writeURL string
	pingURL  string
	token    string
	client   *http.Client
}

func NewInfluxWriter(log *slog.Logger, cfg InfluxConfig) *InfluxWriter {
	params := url.Values{}
	params.Set("db", cfg.Database)
	if cfg.Username != "" {
		params.Set("u", cfg.Username)
		params.Set("p", cfg.Password)
	}

	return &InfluxWriter{
		log:      log,
		writeURL: cfg.Endpoint + "/write?" + params.Encode(),
		pingURL:  cfg.Endpoint + "/ping",
		token:    cfg.Token,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (w *InfluxWriter) Write(ctx context.Context, p model.Point) error {
	start := time.Now()

	line := p.LineProtocol()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.writeURL, strings.NewReader(line))
	if err != nil {
		return failure.New(failure.ClassNetwork, "create request: %v", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if w.token != "" {
		req.Header.Set("Authorization", "Token "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return failure.New(failure.ClassNetwork, "execute request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		observability.WriteDuration.Observe(time.Since(start).Seconds())
		w.log.Debug("point written",
			slog.String("measurement", p.Measurement),
			slog.Int("fields", len(p.Fields)),
		)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return classifyWriteStatus(resp.StatusCode, strings.TrimSpace(string(body)))
}

func classifyWriteStatus(code int, body string) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return failure.New(failure.ClassAuthRejected, "storage rejected credentials (status %d): %s", code, body)
	case code == http.StatusNotFound:
		return failure.New(failure.ClassDatabaseNotFound, "database not found (status %d): %s", code, body)
	case code >= 500:
		return failure.New(failure.ClassServerError, "storage server error (status %d): %s", code, body)
	default:
		return failure.New(failure.ClassServerError, "unexpected status code %d: %s", code, body)
	}
}

// Ping checks storage reachability. Used by the health server only, never by
// the poll loop.
func (w *InfluxWriter) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.pingURL, nil)
	if err != nil {
		return failure.New(failure.ClassNetwork, "create ping request: %v", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return failure.New(failure.ClassNetwork, "ping failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return failure.New(failure.ClassServerError, "storage unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// LogWriter logs points instead of sending them (dry-run mode).
type LogWriter struct {
	log *slog.Logger
}

func NewLogWriter(log *slog.Logger) *LogWriter {
	return &LogWriter{log: log}
}

func (w *LogWriter) Write(ctx context.Context, p model.Point) error {
	w.log.Info("WRITE",
		slog.String("measurement", p.Measurement),
		slog.String("line", p.LineProtocol()),
	)
	return nil
}

func (w *LogWriter) Ping(ctx context.Context) error {
	return nil
}
