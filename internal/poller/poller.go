package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/airtrace-io/pollution-collector/internal/failure"
	"github.com/airtrace-io/pollution-collector/internal/lib/logger/sl"
	"github.com/airtrace-io/pollution-collector/internal/model"
	"github.com/airtrace-io/pollution-collector/internal/observability"
)

// ErrRetriesExhausted is returned by Run when max consecutive cycle failures
// is reached. The process must exit non-zero on it.
var ErrRetriesExhausted = errors.New("max consecutive cycle failures reached")

// Fetcher performs one provider request per call.
type Fetcher interface {
	Fetch(ctx context.Context) (model.Reading, error)
}

// Writer persists one point per call.
type Writer interface {
	Write(ctx context.Context, p model.Point) error
}

// Poller drives the repeating fetch-write cycle and owns the consecutive-
// failure counter. A failure in either leg counts as one failed cycle; a
// fully successful cycle resets the counter.
type Poller struct {
	log      *slog.Logger
	fetcher  Fetcher
	writer   Writer
	interval time.Duration
	maxRetry int

	// Mirror of the failure counter for health checks and metrics. The
	// counter itself lives on Run's stack and is never shared.
	streak atomic.Int64
}

func New(log *slog.Logger, fetcher Fetcher, writer Writer, interval time.Duration, maxRetry int) *Poller {
	return &Poller{
		log:      log,
		fetcher:  fetcher,
		writer:   writer,
		interval: interval,
		maxRetry: maxRetry,
	}
}

// FailureStreak reports the current run of consecutive failed cycles.
func (p *Poller) FailureStreak() int {
	return int(p.streak.Load())
}

// Run executes cycles until ctx is cancelled (returns nil) or maxRetry
// consecutive cycles fail (returns ErrRetriesExhausted). The ticker anchors
// each cycle to the start of the previous one: a slow cycle shortens the next
// wait, and a cycle overrunning the interval starts its successor
// immediately.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("starting poll loop",
		slog.Duration("interval", p.interval),
		slog.Int("max_retry", p.maxRetry),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0

	for {
		failures = p.cycle(ctx, failures)

		if failures >= p.maxRetry {
			p.log.Error("failure budget exhausted, terminating",
				slog.Int("consecutive_failures", failures),
				slog.Int("max_retry", p.maxRetry),
			)
			return ErrRetriesExhausted
		}

		select {
		case <-ctx.Done():
			p.log.Info("context cancelled, stopping poll loop")
			return nil
		case <-ticker.C:
		}
	}
}

// cycle runs one fetch-write attempt and returns the updated consecutive-
// failure count. Classified errors are logged and converted into a counter
// increment, never propagated.
func (p *Poller) cycle(ctx context.Context, failures int) int {
	log := p.log.With(slog.String("cycle_id", uuid.New().String()))
	start := time.Now()

	reading, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return p.failed(ctx, log, "fetch", err, failures)
	}

	if err := p.writer.Write(ctx, model.PointFromReading(reading)); err != nil {
		return p.failed(ctx, log, "write", err, failures)
	}

	p.streak.Store(0)
	observability.FailureStreak.Set(0)
	observability.CyclesTotal.WithLabelValues("success").Inc()
	observability.LastSuccessTimestamp.SetToCurrentTime()

	log.Info("reading written",
		slog.String("location", reading.Location),
		slog.Int("aqi", reading.AQI),
		slog.Time("measured_at", reading.Timestamp),
		slog.Duration("elapsed", time.Since(start)),
	)

	return 0
}

func (p *Poller) failed(ctx context.Context, log *slog.Logger, stage string, err error, failures int) int {
	// A call aborted by shutdown is not a cycle failure.
	if ctx.Err() != nil {
		return failures
	}

	failures++
	class := failure.ClassOf(err)

	p.streak.Store(int64(failures))
	observability.FailureStreak.Set(float64(failures))
	observability.CyclesTotal.WithLabelValues("failure").Inc()
	observability.CycleFailuresTotal.WithLabelValues(stage, string(class)).Inc()

	log.Error("cycle failed",
		slog.String("stage", stage),
		slog.String("class", string(class)),
		slog.Int("consecutive_failures", failures),
		slog.Int("max_retry", p.maxRetry),
		sl.Err(err),
	)

	return failures
}
