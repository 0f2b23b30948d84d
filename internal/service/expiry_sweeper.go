package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

const (
	defaultSweepInterval = 15 * time.Minute
	defaultSweepBatch    = 200
)

// ExpirySweeper periodically moves orders past their expiry to EXPIRED.
// Redemption already rejects such orders on its own; the sweep only makes
// the stored status catch up.
type ExpirySweeper struct {
	store    OrderStore
	orders   *OrderService
	metrics  MetricsRecorder
	interval time.Duration
	batch    int
	now      func() time.Time
}

// NewExpirySweeper creates an ExpirySweeper. Non-positive interval or batch
// fall back to defaults.
func NewExpirySweeper(store OrderStore, orders *OrderService, metrics MetricsRecorder, interval time.Duration, batch int) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &ExpirySweeper{
		store:    store,
		orders:   orders,
		metrics:  metricsOrNoop(metrics),
		interval: interval,
		batch:    batch,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is canceled.
func (s *ExpirySweeper) Run(ctx context.Context) error {
	if _, err := s.Sweep(ctx); err != nil {
		log.Error().Err(err).Msg("expiry sweep failed")
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("expiry sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}

// Sweep expires one batch of due orders and returns how many changed.
// Orders finalized concurrently are skipped, not reported as failures.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.store.ListExpirable(ctx, s.now().UTC(), s.batch)
	if err != nil {
		return 0, fmt.Errorf("list expirable orders: %w", err)
	}

	var errs error
	count := 0
	for _, id := range ids {
		if _, err := s.orders.Expire(ctx, id); err != nil {
			if errors.Is(err, ErrAlreadyFinalized) || errors.Is(err, ErrInvalidTransition) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
			continue
		}
		count++
	}

	s.metrics.OrdersExpired(count)
	log.Info().Int("candidates", len(ids)).Int("expired", count).Msg("expiry sweep complete")
	return count, errs
}
