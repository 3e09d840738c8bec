// Package scheduler runs the periodic ledger jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Expirer is the part of the ledger the sweeper drives.
type Expirer interface {
	ExpireStale(ctx context.Context, ttl time.Duration, batch int) (int, error)
}

const defaultBatch = 500

type Expiry struct {
	c       *cron.Cron
	ledger  Expirer
	ttl     time.Duration
	batch   int
	timeout time.Duration
	log     *slog.Logger
}

// NewExpiry schedules a sweep of stale PENDING transactions on spec, a cron
// expression or descriptor such as "@every 1m".
func NewExpiry(spec string, ledger Expirer, ttl time.Duration, log *slog.Logger) (*Expiry, error) {
	e := &Expiry{
		c:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ledger:  ledger,
		ttl:     ttl,
		batch:   defaultBatch,
		timeout: time.Minute,
		log:     log,
	}
	if _, err := e.c.AddFunc(spec, e.Sweep); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Expiry) Start() {
	e.c.Start()
	e.log.Info("expiry sweeper started", "ttl", e.ttl.String())
}

// Stop halts scheduling and waits for a running sweep to finish.
func (e *Expiry) Stop(ctx context.Context) {
	select {
	case <-e.c.Stop().Done():
	case <-ctx.Done():
	}
}

// Sweep runs a single pass.
func (e *Expiry) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	n, err := e.ledger.ExpireStale(ctx, e.ttl, e.batch)
	if err != nil {
		e.log.Error("expiry sweep failed", "err", err)
		return
	}
	if n > 0 {
		e.log.Debug("expiry sweep", "expired", n)
	}
}
