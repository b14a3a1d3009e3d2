package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"event-ticketing/internal/domain/order"
	"event-ticketing/internal/pkg/clock"
	"event-ticketing/internal/pkg/config"
	"event-ticketing/internal/usecase/shared"
)

const sweepBatchSize = 100

// ExpiredOrderSource lists pending orders whose reservation window has passed.
type ExpiredOrderSource interface {
	ListExpiredPendingIDs(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
}

// Sweeper cancels expired pending orders and returns their reserved inventory.
// It also purges webhook event records past the retention window. Each order
// is handled in its own transaction so one poisoned row cannot stall the rest
// of the batch.
type Sweeper struct {
	uow       shared.UnitOfWork
	source    ExpiredOrderSource
	clock     clock.Clock
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger

	stop chan struct{}
	done chan struct{}
}

func NewSweeper(uow shared.UnitOfWork, source ExpiredOrderSource, clk clock.Clock, cfg config.TicketingConfig, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		uow:       uow,
		source:    source,
		clock:     clk,
		interval:  cfg.SweepInterval,
		retention: cfg.WebhookRetention,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.run()
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			s.SweepOnce(ctx)
			s.purgeWebhookEvents(ctx)
			cancel()
		}
	}
}

// SweepOnce drains expired pending orders in batches until none remain.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	for {
		now := s.clock.Now()
		ids, err := s.source.ListExpiredPendingIDs(ctx, now, sweepBatchSize)
		if err != nil {
			s.logger.Error("sweeper: failed to list expired orders", "error", err)
			return
		}
		if len(ids) == 0 {
			return
		}

		for _, id := range ids {
			if err := s.cancelExpired(ctx, id); err != nil {
				s.logger.Error("sweeper: failed to cancel expired order", "order_id", id, "error", err)
			}
		}

		if len(ids) < sweepBatchSize {
			return
		}
	}
}

func (s *Sweeper) cancelExpired(ctx context.Context, id uuid.UUID) error {
	return s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// Re-check under the row lock: a webhook may have completed the
		// order between listing and locking.
		if o.Status() != order.StatusPending || !o.HasExpired(s.clock.Now()) {
			return nil
		}

		if err := tx.Orders().MarkCancelled(ctx, id); err != nil {
			if errors.Is(err, shared.ErrStaleTransition) {
				return nil
			}
			return err
		}
		for _, item := range o.Items() {
			if err := tx.Inventory().ReleaseReserved(ctx, item.TicketTypeID(), item.Quantity()); err != nil {
				return err
			}
		}

		s.logger.Info("sweeper: released expired reservation",
			"order_id", id, "order_number", o.OrderNumber(), "quantity", o.TotalQuantity())
		return nil
	})
}

func (s *Sweeper) purgeWebhookEvents(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.retention)
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		n, err := tx.WebhookEvents().DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("sweeper: purged webhook events", "count", n, "cutoff", cutoff)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("sweeper: failed to purge webhook events", "error", err)
	}
}
