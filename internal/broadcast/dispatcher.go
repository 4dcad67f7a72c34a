// ABOUTME: Fans one payload out to many recipients with per-recipient failure isolation
// ABOUTME: Bounded worker pool, atomic counters and an aggregate delivery report

package broadcast

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/2389/raketa/internal/notify"
)

// DefaultWorkers bounds concurrent sends when no worker count is configured.
const DefaultWorkers = 8

// Failure is one recipient that could not be reached.
type Failure struct {
	Recipient int64
	Err       error
}

// Report summarises a finished broadcast. Sent+Failed always equals Attempted.
type Report struct {
	ID        string
	Attempted int
	Sent      int
	Failed    int
	Failures  []Failure
	Duration  time.Duration
}

// Dispatcher delivers payloads through a notify.Gateway.
type Dispatcher struct {
	gateway notify.Gateway
	workers int
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. workers <= 0 selects DefaultWorkers.
func NewDispatcher(gw notify.Gateway, workers int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		gateway: gw,
		workers: workers,
		logger:  logger.With("component", "broadcast"),
	}
}

// Broadcast attempts delivery to every recipient. A failed recipient is
// logged and counted; it never stops delivery to the others. There is no
// cancellation once started: ctx is passed to the gateway for per-send
// deadlines only.
func (d *Dispatcher) Broadcast(ctx context.Context, recipients []int64, payload notify.Payload) Report {
	start := time.Now()
	id := uuid.New().String()
	logger := d.logger.With("broadcast_id", id)
	logger.Info("broadcast started", "recipients", len(recipients))

	var (
		sent, failed atomic.Int64
		failures     = make([]error, len(recipients))
	)

	// Workers never return an error, so the group only provides the limit.
	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, to := range recipients {
		g.Go(func() error {
			if err := notify.Deliver(ctx, d.gateway, to, payload); err != nil {
				failed.Add(1)
				failures[i] = err
				logger.Warn("delivery failed", "recipient", to, "error", err)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		ID:        id,
		Attempted: len(recipients),
		Sent:      int(sent.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
	}
	for i, err := range failures {
		if err != nil {
			report.Failures = append(report.Failures, Failure{Recipient: recipients[i], Err: err})
		}
	}

	logger.Info("broadcast finished",
		"sent", report.Sent,
		"failed", report.Failed,
		"duration", report.Duration)
	return report
}
