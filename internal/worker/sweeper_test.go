//go:build unit

package worker_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"event-ticketing/internal/domain/order"
	"event-ticketing/internal/domain/ticket"
	"event-ticketing/internal/pkg/clock"
	"event-ticketing/internal/pkg/config"
	"event-ticketing/internal/usecase/shared"
	"event-ticketing/internal/worker"
)

// The fakes below implement just enough of the write-side ports to drive the
// sweeper; methods the sweeper never touches panic so a regression is loud.

type fakeState struct {
	orders    map[uuid.UUID]*order.Order
	cancelled []uuid.UUID
	released  map[uuid.UUID]int32
	purgedAt  *time.Time
}

func newFakeState() *fakeState {
	return &fakeState{
		orders:   make(map[uuid.UUID]*order.Order),
		released: make(map[uuid.UUID]int32),
	}
}

type fakeUoW struct{ state *fakeState }

func (u *fakeUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, &fakeTx{state: u.state})
}

type fakeTx struct{ state *fakeState }

func (t *fakeTx) Orders() shared.OrderRepository               { return &fakeOrders{state: t.state} }
func (t *fakeTx) Inventory() shared.InventoryRepository        { return &fakeInventory{state: t.state} }
func (t *fakeTx) Promos() shared.PromoRepository               { panic("not used") }
func (t *fakeTx) WebhookEvents() shared.WebhookEventRepository { return &fakeWebhookEvents{state: t.state} }
func (t *fakeTx) Attendees() shared.AttendeeRepository         { panic("not used") }

type fakeOrders struct{ state *fakeState }

func (r *fakeOrders) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.state.orders[id]
	if !ok {
		return nil, shared.ErrStaleTransition
	}
	return o, nil
}

func (r *fakeOrders) MarkCancelled(_ context.Context, id uuid.UUID) error {
	o := r.state.orders[id]
	if o.Status() != order.StatusPending && o.Status() != order.StatusProcessing {
		return shared.ErrStaleTransition
	}
	r.state.cancelled = append(r.state.cancelled, id)
	return nil
}

func (r *fakeOrders) Create(context.Context, *order.Order) error { panic("not used") }
func (r *fakeOrders) FindByGatewayRefForUpdate(context.Context, string, string) (*order.Order, error) {
	panic("not used")
}
func (r *fakeOrders) AttachSession(context.Context, uuid.UUID, string, string, *time.Time) error {
	panic("not used")
}
func (r *fakeOrders) MarkCompleted(context.Context, uuid.UUID, string, time.Time) error {
	panic("not used")
}
func (r *fakeOrders) MarkFailed(context.Context, uuid.UUID) error { panic("not used") }
func (r *fakeOrders) MarkRefunded(context.Context, uuid.UUID, order.Refund) error {
	panic("not used")
}
func (r *fakeOrders) RecordPartialRefund(context.Context, uuid.UUID, order.Refund) error {
	panic("not used")
}

type fakeInventory struct{ state *fakeState }

func (r *fakeInventory) ReleaseReserved(_ context.Context, ticketTypeID uuid.UUID, quantity int32) error {
	r.state.released[ticketTypeID] += quantity
	return nil
}

func (r *fakeInventory) LockForOrder(context.Context, []uuid.UUID) ([]*ticket.TicketType, error) {
	panic("not used")
}
func (r *fakeInventory) Reserve(context.Context, uuid.UUID, int32) error { panic("not used") }
func (r *fakeInventory) ConvertReservedToSold(context.Context, uuid.UUID, int32) error {
	panic("not used")
}
func (r *fakeInventory) RollbackSold(context.Context, uuid.UUID, int32) error { panic("not used") }

type fakeWebhookEvents struct{ state *fakeState }

func (r *fakeWebhookEvents) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.state.purgedAt = &cutoff
	return 3, nil
}

func (r *fakeWebhookEvents) Claim(context.Context, string, string, []byte, time.Time) (bool, error) {
	panic("not used")
}
func (r *fakeWebhookEvents) Release(context.Context, string) error { panic("not used") }

type fakeSource struct {
	state *fakeState
	clk   clock.Clock
}

func (s *fakeSource) ListExpiredPendingIDs(_ context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, o := range s.state.orders {
		if o.Status() == order.StatusPending && o.HasExpired(now) {
			ids = append(ids, id)
		}
		if int32(len(ids)) == limit {
			break
		}
	}
	// Exclude orders the sweep already cancelled; the real query only sees
	// rows still in pending.
	filtered := ids[:0]
	for _, id := range ids {
		if !contains(s.state.cancelled, id) {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func seedOrder(t *testing.T, state *fakeState, status order.Status, expiresAt time.Time, ticketTypeID uuid.UUID, quantity int32) uuid.UUID {
	t.Helper()

	buyer, err := order.NewBuyer("buyer@example.com", "Jamie Buyer", "")
	require.NoError(t, err)
	item, err := order.ReconstructItem(ticketTypeID, quantity, 2500, 2500*int64(quantity))
	require.NoError(t, err)

	id := uuid.New()
	now := expiresAt.Add(-30 * time.Minute)
	state.orders[id] = order.ReconstructOrder(
		id, order.NewOrderNumber(), uuid.New(), buyer, []order.Item{item},
		order.Breakdown{SubtotalCents: 2500 * int64(quantity), TotalCents: 2575 * int64(quantity)},
		"USD", status, nil, "", "", nil, "", nil, expiresAt, nil, now, now,
	)
	return id
}

func newSweeper(state *fakeState, clk clock.Clock) *worker.Sweeper {
	cfg := config.NewTestConfig().Ticketing
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return worker.NewSweeper(&fakeUoW{state: state}, &fakeSource{state: state, clk: clk}, clk, cfg, logger)
}

func TestSweepOnce(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("cancels expired pending orders and releases inventory", func(t *testing.T) {
		state := newFakeState()
		clk := clock.NewMockClock(base)
		ttID := uuid.New()

		expired := seedOrder(t, state, order.StatusPending, base.Add(-time.Minute), ttID, 3)
		live := seedOrder(t, state, order.StatusPending, base.Add(10*time.Minute), ttID, 2)

		newSweeper(state, clk).SweepOnce(context.Background())

		require.Equal(t, []uuid.UUID{expired}, state.cancelled)
		require.Equal(t, int32(3), state.released[ttID])
		require.NotContains(t, state.cancelled, live)
	})

	t.Run("skips orders another writer already completed", func(t *testing.T) {
		state := newFakeState()
		clk := clock.NewMockClock(base)
		ttID := uuid.New()

		completed := seedOrder(t, state, order.StatusCompleted, base.Add(-time.Minute), ttID, 2)
		// The listing query raced: it returns the id even though the row is
		// no longer pending. The re-check under the row lock must skip it.
		source := &fakeSource{state: state, clk: clk}
		ids, err := source.ListExpiredPendingIDs(context.Background(), clk.Now(), 100)
		require.NoError(t, err)
		require.Empty(t, ids)

		newSweeper(state, clk).SweepOnce(context.Background())
		require.Empty(t, state.cancelled)
		require.Zero(t, state.released[ttID])
		_ = completed
	})

	t.Run("does nothing when no orders are expired", func(t *testing.T) {
		state := newFakeState()
		clk := clock.NewMockClock(base)

		seedOrder(t, state, order.StatusPending, base.Add(time.Hour), uuid.New(), 1)

		newSweeper(state, clk).SweepOnce(context.Background())
		require.Empty(t, state.cancelled)
	})

	t.Run("order expiring exactly now is not yet swept", func(t *testing.T) {
		state := newFakeState()
		clk := clock.NewMockClock(base)
		ttID := uuid.New()

		seedOrder(t, state, order.StatusPending, base, ttID, 1)

		newSweeper(state, clk).SweepOnce(context.Background())
		require.Empty(t, state.cancelled)

		clk.Advance(time.Second)
		newSweeper(state, clk).SweepOnce(context.Background())
		require.Len(t, state.cancelled, 1)
	})
}

func TestSweeperLifecycle(t *testing.T) {
	t.Parallel()

	state := newFakeState()
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	s := newSweeper(state, clk)
	s.Start()
	s.Stop()
}
